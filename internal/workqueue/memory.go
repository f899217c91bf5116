package workqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docket/internal/sentinel"
)

// InMemoryStore keeps work items in memory guarded by a RWMutex. It backs
// tests and single-process deployments; PostgresStore is the durable variant.
type InMemoryStore struct {
	mu     sync.RWMutex
	items  map[int64]*WorkItem
	extIdx map[string]int64
	nextID int64

	guard RelationGuard
	now   func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items:  make(map[int64]*WorkItem),
		extIdx: make(map[string]int64),
		now:    time.Now,
	}
}

// SetRelationGuard wires the relation store in after construction; the two
// stores reference each other through narrow interfaces.
func (s *InMemoryStore) SetRelationGuard(g RelationGuard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard = g
}

// SetClock overrides the time source for tests.
func (s *InMemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *InMemoryStore) Create(_ context.Context, item *WorkItem) error {
	if item == nil {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ExternalID == uuid.Nil {
		item.ExternalID = uuid.New()
	}
	if _, exists := s.extIdx[item.ExternalID.String()]; exists {
		return sentinel.ErrAlreadyExists
	}

	s.nextID++
	now := s.now()
	item.ID = s.nextID
	item.Status = StatusPending
	item.CreatedAt = now
	item.UpdatedAt = now

	stored := *item
	s.items[item.ID] = &stored
	s.extIdx[item.ExternalID.String()] = item.ID
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id int64) (*WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *InMemoryStore) GetByExternalID(_ context.Context, externalID string) (*WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.extIdx[externalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.items[id]
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]*WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*WorkItem
	for _, item := range s.items {
		if !matches(item, f) {
			continue
		}
		copied := *item
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, f Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, item := range s.items {
		if matches(item, f) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) UpdateStatusIf(_ context.Context, id int64, expected, next Status, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if item.Status != expected {
		return sentinel.ErrStatusMismatch
	}
	item.Status = next
	if description != "" {
		item.Description = description
	}
	item.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, id int64, status Status, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	item.Status = status
	if description != "" {
		item.Description = description
	}
	item.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) SetTarget(_ context.Context, id int64, targetID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	item.TargetID = targetID
	item.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	guard := s.guard
	_, ok := s.items[id]
	s.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}

	if guard != nil {
		related, err := guard.HasAny(ctx, id)
		if err != nil {
			return err
		}
		if related {
			return sentinel.ErrRestricted
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.extIdx, item.ExternalID.String())
	delete(s.items, id)
	return nil
}

func (s *InMemoryStore) DeleteCompletedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	completed := StatusCompleted
	aged, err := s.List(ctx, Filter{Status: &completed, OlderThan: &cutoff})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, item := range aged {
		switch err := s.Delete(ctx, item.ID); err {
		case nil:
			removed++
		case sentinel.ErrRestricted, sentinel.ErrNotFound:
			// Guarded or already gone: skip, the sweep is best effort.
		default:
			return removed, err
		}
	}
	return removed, nil
}

func matches(item *WorkItem, f Filter) bool {
	if f.TenantID != "" && item.TenantID != f.TenantID {
		return false
	}
	if f.Scope != nil && item.Scope != *f.Scope {
		return false
	}
	if f.Status != nil && item.Status != *f.Status {
		return false
	}
	if f.OlderThan != nil && !item.UpdatedAt.Before(*f.OlderThan) {
		return false
	}
	return true
}
