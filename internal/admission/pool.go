// Package admission limits how many probes may hold a connection slot at once.
package admission

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrInvalidSize is returned by New when the pool would have no capacity.
var ErrInvalidSize = errors.New("admission pool size must be at least 1")

// Pool is a fixed-size counting limiter. Every granted Permit must be
// released exactly once to return its capacity.
type Pool struct {
	size int64
	sem  *semaphore.Weighted

	inFlight  atomic.Int64
	highWater atomic.Int64
	granted   atomic.Int64
}

// New creates a pool holding exactly size permits.
func New(size int) (*Pool, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	return &Pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}, nil
}

// Acquire blocks until a permit is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Permit, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.granted.Add(1)
	n := p.inFlight.Add(1)
	for {
		hw := p.highWater.Load()
		if n <= hw || p.highWater.CompareAndSwap(hw, n) {
			break
		}
	}
	return &Permit{pool: p}, nil
}

// Size returns the capacity the pool was created with.
func (p *Pool) Size() int { return int(p.size) }

// InFlight returns the number of permits currently held.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// HighWater returns the largest number of permits ever held at the same time.
func (p *Pool) HighWater() int { return int(p.highWater.Load()) }

// Granted returns the total number of permits handed out so far.
func (p *Pool) Granted() int { return int(p.granted.Load()) }

// Permit is one unit of pool capacity.
type Permit struct {
	pool     *Pool
	released atomic.Bool
}

// Release hands the permit back to its pool. Only the first call has an
// effect, so it is safe to defer it next to an explicit release.
func (p *Permit) Release() {
	if p == nil || !p.released.CompareAndSwap(false, true) {
		return
	}
	p.pool.inFlight.Add(-1)
	p.pool.sem.Release(1)
}
