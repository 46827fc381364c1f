package verification

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SentRequest is one dispatch captured by the in-memory network.
type SentRequest struct {
	RequestID string
	Script    string
	Argument  string
}

// InMemoryNetwork is a network double for development and tests. It
// assigns request ids and records dispatches; fulfillment is driven by
// the test (or a dev tool) calling the gateway's Fulfill directly.
type InMemoryNetwork struct {
	mu   sync.Mutex
	sent []SentRequest
}

func NewInMemoryNetwork() *InMemoryNetwork {
	return &InMemoryNetwork{}
}

func (n *InMemoryNetwork) Send(_ context.Context, script, argument string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := uuid.NewString()
	n.sent = append(n.sent, SentRequest{RequestID: id, Script: script, Argument: argument})
	return id, nil
}

// Sent returns a copy of every dispatch in order.
func (n *InMemoryNetwork) Sent() []SentRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentRequest{}, n.sent...)
}
