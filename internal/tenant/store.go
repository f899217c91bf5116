package tenant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docket/internal/sentinel"
	"docket/pkg/secrets"
)

// InMemoryStore stores tenants in memory. Tenant provisioning is a rare
// administrative action, so the whole collection fits comfortably here; a
// relational table can replace it without touching callers.
type InMemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
	nameIdx map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tenants: make(map[string]*Tenant), nameIdx: make(map[string]string)}
}

func (s *InMemoryStore) Create(_ context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.nameIdx[strings.ToLower(t.Name)]; taken {
		return sentinel.ErrAlreadyExists
	}
	key := t.ID.String()
	s.tenants[key] = t
	s.nameIdx[strings.ToLower(t.Name)] = key
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[id.String()]; ok {
		return t, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.nameIdx[strings.ToLower(name)]; ok {
		return s.tenants[id], nil
	}
	return nil, sentinel.ErrNotFound
}

// All returns every tenant; the secret resolver scans them.
func (s *InMemoryStore) All(_ context.Context) ([]*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}

// Seed provisions a tenant with the given shared secret and returns it.
// Used at startup and in tests.
func Seed(s *InMemoryStore, name, secret, endpoint string) (*Tenant, error) {
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, err
	}
	t := &Tenant{
		ID:         uuid.New(),
		Name:       name,
		SecretHash: hash,
		Endpoint:   endpoint,
		CreatedAt:  time.Now(),
	}
	if err := s.Create(context.Background(), t); err != nil {
		return nil, err
	}
	return t, nil
}
