package events

import (
	"context"
	"sync"
)

// InMemoryStore is the default event log. Append-only per asset.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[uint64][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[uint64][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.AssetID] = append(s.events[event.AssetID], event)
	return nil
}

func (s *InMemoryStore) ListByAsset(_ context.Context, assetID uint64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[assetID]...), nil
}
