package db

import (
	"context"
	"sort"
	"sync"

	"github.com/jonathan/contract-auditor/internal/types"
)

// MemoryStore keeps contracts in process memory. Records are deep-copied on the
// way in and out, so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	contracts map[string]*types.Contract
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contracts: make(map[string]*types.Contract)}
}

// Load returns a copy of the stored contract.
func (s *MemoryStore) Load(ctx context.Context, id string) (*types.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "load", ID: id, Cause: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// Save replaces the stored record with a copy of c.
func (s *MemoryStore) Save(ctx context.Context, c *types.Contract) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "save", ID: c.ID, Cause: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contracts[c.ID] = c.Clone()
	return nil
}

// List returns matching contracts newest first.
func (s *MemoryStore) List(ctx context.Context, filter types.ContractFilter) ([]types.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Cause: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []types.Contract{}
	for _, c := range s.contracts {
		if !filter.Matches(c) {
			continue
		}
		summary := c.Clone()
		summary.Document = nil
		summary.RawText = ""
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a contract.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "delete", ID: id, Cause: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contracts, id)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
