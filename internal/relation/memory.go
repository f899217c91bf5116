package relation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"docket/internal/sentinel"
)

type pair struct{ source, target int64 }

// InMemoryStore keeps relation edges in memory guarded by a RWMutex, with a
// pair index standing in for the database uniqueness constraint.
type InMemoryStore struct {
	mu      sync.RWMutex
	edges   map[int64]*WorkRelation
	pairIdx map[pair]int64
	nextID  int64

	items ItemStore
	now   func() time.Time
}

func NewInMemoryStore(items ItemStore) *InMemoryStore {
	return &InMemoryStore{
		edges:   make(map[int64]*WorkRelation),
		pairIdx: make(map[pair]int64),
		items:   items,
		now:     time.Now,
	}
}

func (s *InMemoryStore) Create(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error) {
	if err := s.checkEndpoints(ctx, sourceID, targetID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pairIdx[pair{sourceID, targetID}]; exists {
		return nil, sentinel.ErrAlreadyExists
	}

	s.nextID++
	edge := &WorkRelation{
		ID:        s.nextID,
		SourceID:  sourceID,
		TargetID:  targetID,
		CreatedAt: s.now(),
	}
	s.edges[edge.ID] = edge
	s.pairIdx[pair{sourceID, targetID}] = edge.ID
	copied := *edge
	return &copied, nil
}

func (s *InMemoryStore) CreateOrGet(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error) {
	if existing, err := s.GetByPair(ctx, sourceID, targetID); err == nil {
		return existing, nil
	}
	edge, err := s.Create(ctx, sourceID, targetID)
	if errors.Is(err, sentinel.ErrAlreadyExists) {
		// Lost a race with a concurrent creator; the edge is there now.
		return s.GetByPair(ctx, sourceID, targetID)
	}
	return edge, err
}

func (s *InMemoryStore) GetByID(_ context.Context, id int64) (*WorkRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edge, ok := s.edges[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *edge
	return &copied, nil
}

func (s *InMemoryStore) GetByPair(_ context.Context, sourceID, targetID int64) (*WorkRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pairIdx[pair{sourceID, targetID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.edges[id]
	return &copied, nil
}

func (s *InMemoryStore) ListFrom(_ context.Context, sourceID int64) ([]*WorkRelation, error) {
	return s.list(func(e *WorkRelation) bool { return e.SourceID == sourceID })
}

func (s *InMemoryStore) ListTo(_ context.Context, targetID int64) ([]*WorkRelation, error) {
	return s.list(func(e *WorkRelation) bool { return e.TargetID == targetID })
}

func (s *InMemoryStore) ListTouching(_ context.Context, itemID int64) ([]*WorkRelation, error) {
	return s.list(func(e *WorkRelation) bool { return e.SourceID == itemID || e.TargetID == itemID })
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edge, ok := s.edges[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.pairIdx, pair{edge.SourceID, edge.TargetID})
	delete(s.edges, id)
	return nil
}

func (s *InMemoryStore) DeleteFrom(_ context.Context, sourceID int64) (int, error) {
	return s.deleteWhere(func(e *WorkRelation) bool { return e.SourceID == sourceID }), nil
}

func (s *InMemoryStore) DeleteTo(_ context.Context, targetID int64) (int, error) {
	return s.deleteWhere(func(e *WorkRelation) bool { return e.TargetID == targetID }), nil
}

func (s *InMemoryStore) DeleteTouching(_ context.Context, itemID int64) (int, error) {
	return s.deleteWhere(func(e *WorkRelation) bool { return e.SourceID == itemID || e.TargetID == itemID }), nil
}

func (s *InMemoryStore) Exists(_ context.Context, sourceID, targetID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pairIdx[pair{sourceID, targetID}]
	return ok, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges), nil
}

func (s *InMemoryStore) HasAny(_ context.Context, itemID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, edge := range s.edges {
		if edge.SourceID == itemID || edge.TargetID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) checkEndpoints(ctx context.Context, sourceID, targetID int64) error {
	if s.items == nil {
		return nil
	}
	if _, err := s.items.GetByID(ctx, sourceID); err != nil {
		return err
	}
	if _, err := s.items.GetByID(ctx, targetID); err != nil {
		return err
	}
	return nil
}

func (s *InMemoryStore) list(keep func(*WorkRelation) bool) ([]*WorkRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*WorkRelation
	for _, edge := range s.edges {
		if keep(edge) {
			copied := *edge
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) deleteWhere(drop func(*WorkRelation) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, edge := range s.edges {
		if drop(edge) {
			delete(s.pairIdx, pair{edge.SourceID, edge.TargetID})
			delete(s.edges, id)
			removed++
		}
	}
	return removed
}
