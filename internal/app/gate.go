package app

import (
	"context"
	"sync"
)

// ConcurrencyGate bounds the number of download jobs executing at once
type ConcurrencyGate struct {
	slots chan struct{}
}

// NewConcurrencyGate creates a gate with capacity slots (at least one)
func NewConcurrencyGate(capacity int) *ConcurrencyGate {
	if capacity < 1 {
		capacity = 1
	}
	return &ConcurrencyGate{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func frees the slot and is safe to call more than once.
func (g *ConcurrencyGate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-g.slots })
	}, nil
}

// InUse returns the number of held slots
func (g *ConcurrencyGate) InUse() int {
	return len(g.slots)
}

// Capacity returns the total number of slots
func (g *ConcurrencyGate) Capacity() int {
	return cap(g.slots)
}
