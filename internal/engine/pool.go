package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// blockingPool bounds how many blocking filesystem operations (listings,
// bucket creation, open/read/write) run at once. Goroutines waiting for a
// slot park cheaply; holders own file descriptors.
type blockingPool struct {
	sem *semaphore.Weighted
}

func newBlockingPool(size int) *blockingPool {
	return &blockingPool{sem: semaphore.NewWeighted(int64(max(size, 1)))}
}

// do runs fn while holding one slot. fn must not wait on other pool work.
func (p *blockingPool) do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
