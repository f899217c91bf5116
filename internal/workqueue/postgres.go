package workqueue

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"docket/internal/sentinel"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore is the durable work queue backed by the work_items table.
// Uniqueness of the external id and restrict-on-delete against relations are
// enforced by the database, not in application code, so the check/insert race
// window is closed at the single point of coordination.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the work_items table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS work_items (
			id          BIGSERIAL PRIMARY KEY,
			external_id UUID NOT NULL UNIQUE,
			tenant_id   TEXT NOT NULL,
			scope       INTEGER NOT NULL,
			status      INTEGER NOT NULL DEFAULT 0,
			request     TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			target_id   BIGINT NOT NULL DEFAULT 0,
			raw_body    TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return translatePQ(err)
}

func (s *PostgresStore) Create(ctx context.Context, item *WorkItem) error {
	if item == nil {
		return sentinel.ErrInvalidInput
	}
	if item.ExternalID == uuid.Nil {
		item.ExternalID = uuid.New()
	}
	item.Status = StatusPending

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO work_items (external_id, tenant_id, scope, status, request, description, target_id, raw_body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		item.ExternalID.String(), item.TenantID, int(item.Scope), int(item.Status),
		item.Request, item.Description, item.TargetID, item.RawBody,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	return translatePQ(err)
}

const workItemColumns = `id, external_id, tenant_id, scope, status, request, description, target_id, raw_body, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workItemColumns+` FROM work_items WHERE id = $1`, id)
	return scanWorkItem(row)
}

func (s *PostgresStore) GetByExternalID(ctx context.Context, externalID string) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workItemColumns+` FROM work_items WHERE external_id = $1`, externalID)
	return scanWorkItem(row)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*WorkItem, error) {
	query, args := filterQuery(`SELECT `+workItemColumns+` FROM work_items`, f)
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, translatePQ(err)
	}
	defer rows.Close()

	var out []*WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, translatePQ(rows.Err())
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	query, args := filterQuery(`SELECT COUNT(*) FROM work_items`, f)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, translatePQ(err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateStatusIf(ctx context.Context, id int64, expected, next Status, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_items
		SET status = $1, description = CASE WHEN $2 <> '' THEN $2 ELSE description END, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		int(next), description, id, int(expected))
	if err != nil {
		return translatePQ(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translatePQ(err)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrStatusMismatch
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status Status, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_items
		SET status = $1, description = CASE WHEN $2 <> '' THEN $2 ELSE description END, updated_at = NOW()
		WHERE id = $3`,
		int(status), description, id)
	return affectedOrNotFound(res, err)
}

func (s *PostgresStore) SetTarget(ctx context.Context, id int64, targetID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE work_items SET target_id = $1, updated_at = NOW() WHERE id = $2`, targetID, id)
	return affectedOrNotFound(res, err)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_items WHERE id = $1`, id)
	return affectedOrNotFound(res, err)
}

func (s *PostgresStore) DeleteCompletedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	// Items still referenced by relations are skipped via NOT EXISTS rather
	// than tripping the restrict constraint item by item.
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM work_items w
		WHERE w.status = $1
		  AND w.updated_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM work_relations r
			WHERE r.source_id = w.id OR r.target_id = w.id
		  )`,
		int(StatusCompleted), cutoff)
	if err != nil {
		return 0, translatePQ(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, translatePQ(err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(row rowScanner) (*WorkItem, error) {
	var (
		item   WorkItem
		extID  string
		scope  int
		status int
	)
	err := row.Scan(&item.ID, &extID, &item.TenantID, &scope, &status,
		&item.Request, &item.Description, &item.TargetID, &item.RawBody,
		&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, translatePQ(err)
	}
	parsed, err := uuid.Parse(extID)
	if err != nil {
		return nil, err
	}
	item.ExternalID = parsed
	item.Scope = Scope(scope)
	item.Status = Status(status)
	return &item, nil
}

func filterQuery(base string, f Filter) (string, []any) {
	query := base + ` WHERE 1=1`
	var args []any
	if f.TenantID != "" {
		args = append(args, f.TenantID)
		query += ` AND tenant_id = $` + strconv.Itoa(len(args))
	}
	if f.Scope != nil {
		args = append(args, int(*f.Scope))
		query += ` AND scope = $` + strconv.Itoa(len(args))
	}
	if f.Status != nil {
		args = append(args, int(*f.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.OlderThan != nil {
		args = append(args, *f.OlderThan)
		query += ` AND updated_at < $` + strconv.Itoa(len(args))
	}
	return query, args
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return translatePQ(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translatePQ(err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// translatePQ maps driver failures onto sentinel errors so upper layers never
// see lib/pq types. Constraint violations keep their meaning; anything that
// smells like a lost connection is reported transient.
func translatePQ(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return sentinel.ErrAlreadyExists
		case pqForeignKeyViolation:
			return sentinel.ErrRestricted
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return sentinel.ErrUnavailable
	}
	return err
}
