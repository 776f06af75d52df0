// Package kmem is the allocation budget shared by the device buffers.
//
// A Pool hands out zeroed byte slices and tracks how many bytes are live.
// With a non-zero limit, an allocation that would exceed it fails the way a
// kernel allocator does under memory pressure.
package kmem

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var ErrNoMemory = errors.New("kmem: cannot allocate memory")

type Pool struct {
	limit int64
	inUse atomic.Int64
	peak  atomic.Int64
}

// NewPool returns a pool capped at limit bytes. A limit <= 0 means unbounded.
func NewPool(limit int64) *Pool {
	if limit < 0 {
		limit = 0
	}
	return &Pool{limit: limit}
}

// Alloc returns n zeroed bytes charged against the pool.
func (p *Pool) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrNoMemory, n)
	}
	for {
		cur := p.inUse.Load()
		next := cur + int64(n)
		if p.limit > 0 && next > p.limit {
			return nil, fmt.Errorf("%w: size=%d in_use=%d limit=%d", ErrNoMemory, n, cur, p.limit)
		}
		if p.inUse.CompareAndSwap(cur, next) {
			p.raisePeak(next)
			return make([]byte, n), nil
		}
	}
}

// Free returns b's bytes to the pool. Freeing nil is a no-op.
func (p *Pool) Free(b []byte) {
	if b == nil {
		return
	}
	p.inUse.Add(-int64(len(b)))
}

func (p *Pool) InUse() int64 { return p.inUse.Load() }
func (p *Pool) Peak() int64  { return p.peak.Load() }
func (p *Pool) Limit() int64 { return p.limit }

func (p *Pool) raisePeak(v int64) {
	for {
		cur := p.peak.Load()
		if v <= cur || p.peak.CompareAndSwap(cur, v) {
			return
		}
	}
}
