package assetstore

import (
	"context"
	"sync"

	"spyral/internal/asset"
	"spyral/pkg/platform/sentinel"
)

// InMemory is the development and test asset store. A single mutex
// serializes every mutation, which satisfies the one-writer-per-record
// discipline trivially.
type InMemory struct {
	mu     sync.RWMutex
	assets map[uint64]*asset.Asset
	nextID uint64
}

func NewInMemory() *InMemory {
	return &InMemory{assets: make(map[uint64]*asset.Asset), nextID: 1}
}

func (s *InMemory) NextID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *InMemory) Create(_ context.Context, a *asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.assets[a.ID] = clone(a)
	return nil
}

func (s *InMemory) Find(_ context.Context, id uint64) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// Update mutates a copy under the store lock and swaps it in only when
// mutate succeeds, so a failed mutation leaves the record untouched.
func (s *InMemory) Update(_ context.Context, id uint64, mutate func(*asset.Asset) error) (*asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.assets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := clone(stored)
	if err := mutate(next); err != nil {
		return nil, err
	}
	s.assets[id] = next
	return clone(next), nil
}

// clone deep-copies the record so callers never alias store-owned state.
func clone(a *asset.Asset) *asset.Asset {
	c := *a
	c.Collaborators = append([]asset.Collaborator(nil), a.Collaborators...)
	return &c
}
