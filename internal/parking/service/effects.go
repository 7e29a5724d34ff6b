package service

import (
	"context"
	"sync"
)

type effectBatch struct {
	ctx     context.Context
	effects []effect
}

// effectQueue hands effect batches to one worker goroutine in FIFO order.
// push never blocks; it refuses a batch once limit batches are waiting.
type effectQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []effectBatch
	limit   int
	busy    bool
	closed  bool
	done    chan struct{}
	apply   func(ctx context.Context, e effect)
}

func newEffectQueue(limit int, apply func(ctx context.Context, e effect)) *effectQueue {
	q := &effectQueue{
		limit: limit,
		done:  make(chan struct{}),
		apply: apply,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *effectQueue) push(b effectBatch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.pending) >= q.limit {
		return false
	}
	q.pending = append(q.pending, b)
	q.cond.Broadcast()
	return true
}

func (q *effectQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		b := q.pending[0]
		q.pending[0] = effectBatch{}
		q.pending = q.pending[1:]
		q.busy = true
		q.mu.Unlock()

		for _, e := range b.effects {
			q.apply(b.ctx, e)
		}

		q.mu.Lock()
		q.busy = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

// wait blocks until every pushed batch has been applied.
func (q *effectQueue) wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) > 0 || q.busy {
		q.cond.Wait()
	}
}

// close refuses further batches and waits for the worker to drain, or for ctx.
func (q *effectQueue) close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
