package revenue

import (
	"context"
	"sync"
)

// InMemoryPayout is a payment-rail double for development and tests. It
// accumulates balances per holder instead of moving real funds.
type InMemoryPayout struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewInMemoryPayout() *InMemoryPayout {
	return &InMemoryPayout{balances: make(map[string]int64)}
}

func (p *InMemoryPayout) Transfer(_ context.Context, holder string, amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[holder] += amount
	return nil
}

func (p *InMemoryPayout) Reverse(_ context.Context, holder string, amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[holder] -= amount
	return nil
}

// Balance returns what a holder has received so far.
func (p *InMemoryPayout) Balance(holder string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[holder]
}
