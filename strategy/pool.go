package strategy

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently running loads. A Pool may be
// shared by many leaves.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	active atomic.Int64
}

// NewPool creates a pool admitting size concurrent loads. A size below one
// is treated as one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}

	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.active.Add(1)

	return nil
}

// Release frees a slot taken by Acquire.
func (p *Pool) Release() {
	p.active.Add(-1)
	p.sem.Release(1)
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return p.size }

// Active returns the number of slots currently taken.
func (p *Pool) Active() int { return int(p.active.Load()) }
