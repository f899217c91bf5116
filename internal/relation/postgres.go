package relation

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"docket/internal/sentinel"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore persists relation edges in the work_relations table. Pair
// uniqueness and endpoint existence are constraints owned by the database;
// restrict-on-delete in both directions keeps lineage intact.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the work_relations table if missing. The work_items
// table must exist first.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS work_relations (
			id         BIGSERIAL PRIMARY KEY,
			source_id  BIGINT NOT NULL REFERENCES work_items(id) ON DELETE RESTRICT,
			target_id  BIGINT NOT NULL REFERENCES work_items(id) ON DELETE RESTRICT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (source_id, target_id)
		)`)
	return translateEdgeErr(err)
}

func (s *PostgresStore) Create(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error) {
	edge := &WorkRelation{SourceID: sourceID, TargetID: targetID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO work_relations (source_id, target_id)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		sourceID, targetID).Scan(&edge.ID, &edge.CreatedAt)
	if err != nil {
		return nil, translateEdgeErr(err)
	}
	return edge, nil
}

func (s *PostgresStore) CreateOrGet(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error) {
	edge := &WorkRelation{SourceID: sourceID, TargetID: targetID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO work_relations (source_id, target_id)
		VALUES ($1, $2)
		ON CONFLICT (source_id, target_id) DO NOTHING
		RETURNING id, created_at`,
		sourceID, targetID).Scan(&edge.ID, &edge.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s.GetByPair(ctx, sourceID, targetID)
	}
	if err != nil {
		return nil, translateEdgeErr(err)
	}
	return edge, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*WorkRelation, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, source_id, target_id, created_at FROM work_relations WHERE id = $1`, id))
}

func (s *PostgresStore) GetByPair(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, source_id, target_id, created_at FROM work_relations WHERE source_id = $1 AND target_id = $2`,
		sourceID, targetID))
}

func (s *PostgresStore) ListFrom(ctx context.Context, sourceID int64) ([]*WorkRelation, error) {
	return s.listWhere(ctx, `source_id = $1`, sourceID)
}

func (s *PostgresStore) ListTo(ctx context.Context, targetID int64) ([]*WorkRelation, error) {
	return s.listWhere(ctx, `target_id = $1`, targetID)
}

func (s *PostgresStore) ListTouching(ctx context.Context, itemID int64) ([]*WorkRelation, error) {
	return s.listWhere(ctx, `source_id = $1 OR target_id = $1`, itemID)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_relations WHERE id = $1`, id)
	if err != nil {
		return translateEdgeErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translateEdgeErr(err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteFrom(ctx context.Context, sourceID int64) (int, error) {
	return s.deleteWhere(ctx, `source_id = $1`, sourceID)
}

func (s *PostgresStore) DeleteTo(ctx context.Context, targetID int64) (int, error) {
	return s.deleteWhere(ctx, `target_id = $1`, targetID)
}

func (s *PostgresStore) DeleteTouching(ctx context.Context, itemID int64) (int, error) {
	return s.deleteWhere(ctx, `source_id = $1 OR target_id = $1`, itemID)
}

func (s *PostgresStore) Exists(ctx context.Context, sourceID, targetID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM work_relations WHERE source_id = $1 AND target_id = $2)`,
		sourceID, targetID).Scan(&exists)
	return exists, translateEdgeErr(err)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_relations`).Scan(&count)
	return count, translateEdgeErr(err)
}

func (s *PostgresStore) HasAny(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM work_relations WHERE source_id = $1 OR target_id = $1)`,
		itemID).Scan(&exists)
	return exists, translateEdgeErr(err)
}

func (s *PostgresStore) scanOne(row *sql.Row) (*WorkRelation, error) {
	var edge WorkRelation
	err := row.Scan(&edge.ID, &edge.SourceID, &edge.TargetID, &edge.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, translateEdgeErr(err)
	}
	return &edge, nil
}

func (s *PostgresStore) listWhere(ctx context.Context, where string, arg any) ([]*WorkRelation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, target_id, created_at FROM work_relations WHERE `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, translateEdgeErr(err)
	}
	defer rows.Close()

	var out []*WorkRelation
	for rows.Next() {
		var edge WorkRelation
		if err := rows.Scan(&edge.ID, &edge.SourceID, &edge.TargetID, &edge.CreatedAt); err != nil {
			return nil, translateEdgeErr(err)
		}
		out = append(out, &edge)
	}
	return out, translateEdgeErr(rows.Err())
}

func (s *PostgresStore) deleteWhere(ctx context.Context, where string, arg any) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_relations WHERE `+where, arg)
	if err != nil {
		return 0, translateEdgeErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, translateEdgeErr(err)
	}
	return int(affected), nil
}

// translateEdgeErr maps driver failures onto sentinel errors. A foreign key
// violation on insert means a missing endpoint, so it reads as not-found
// rather than restricted.
func translateEdgeErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return sentinel.ErrAlreadyExists
		case pqForeignKeyViolation:
			return sentinel.ErrNotFound
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return sentinel.ErrUnavailable
	}
	return err
}
