package registry

import (
	"context"
	"sync"

	"spyral/pkg/platform/sentinel"
)

// InMemory is a registry double for development and tests. Register
// records an owner at creation; Approve grants delegate rights for one
// asset, mirroring the external registry's approval semantics.
type InMemory struct {
	mu        sync.RWMutex
	owners    map[uint64]string
	approvals map[uint64]map[string]bool
}

func NewInMemory() *InMemory {
	return &InMemory{
		owners:    make(map[uint64]string),
		approvals: make(map[uint64]map[string]bool),
	}
}

func (r *InMemory) Register(assetID uint64, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[assetID] = owner
}

func (r *InMemory) Approve(assetID uint64, delegate string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.approvals[assetID] == nil {
		r.approvals[assetID] = make(map[string]bool)
	}
	r.approvals[assetID][delegate] = true
}

func (r *InMemory) IsAuthorized(_ context.Context, assetID uint64, caller string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[assetID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if owner == caller {
		return true, nil
	}
	return r.approvals[assetID][caller], nil
}

func (r *InMemory) OwnerOf(_ context.Context, assetID uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[assetID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return owner, nil
}
