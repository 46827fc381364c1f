package pendingstore

import (
	"context"
	"sync"
	"time"

	"spyral/internal/asset"
	"spyral/pkg/platform/sentinel"
)

// InMemory keeps pending verification records in a map keyed by the
// externally assigned request id. Take removes the record under the
// same lock that found it, so consume-once holds under concurrent
// deliveries.
type InMemory struct {
	mu      sync.Mutex
	pending map[string]asset.PendingVerification
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{pending: make(map[string]asset.PendingVerification), now: time.Now}
}

// SetClock overrides the expiry clock for tests.
func (s *InMemory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *InMemory) Put(_ context.Context, requestID string, p asset.PendingVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[requestID]; ok {
		return sentinel.ErrConflict
	}
	s.pending[requestID] = p
	return nil
}

func (s *InMemory) Take(_ context.Context, requestID string) (asset.PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[requestID]
	if !ok {
		return asset.PendingVerification{}, sentinel.ErrNotFound
	}
	delete(s.pending, requestID)
	if !p.ExpiresAt.IsZero() && s.now().After(p.ExpiresAt) {
		return asset.PendingVerification{}, sentinel.ErrExpired
	}
	return p, nil
}
