package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// workerPool is a fixed-size goroutine pool with a bounded input queue.
type workerPool[T, R any] struct {
	queue   chan T
	process func(ctx context.Context, t T) (R, error)
	active  atomic.Int32
	wg      sync.WaitGroup
	once    sync.Once
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity cap.
func newWorkerPool[T, R any](ctx context.Context, n, cap int, fn func(context.Context, T) (R, error)) *workerPool[T, R] {
	p := &workerPool[T, R]{
		queue:   make(chan T, cap),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			p.active.Add(1)
			_, _ = p.process(ctx, t)
			p.active.Add(-1)
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues a task without blocking (returns false if full).
func (p *workerPool[T, R]) Submit(t T) bool {
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for all workers to finish. Queued tasks
// are still processed unless the pool context is cancelled.
func (p *workerPool[T, R]) Drain() {
	p.once.Do(func() { close(p.queue) })
	p.wg.Wait()
}

// QueueLen returns how many tasks are currently queued.
func (p *workerPool[T, R]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T, R]) QueueCap() int {
	return cap(p.queue)
}

// Active returns how many workers are processing a task.
func (p *workerPool[T, R]) Active() int {
	return int(p.active.Load())
}
