package tasks

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one background job with its retry budget
type task struct {
	name     string
	fn       func(ctx context.Context) error
	attempts int
}

// Queue is an in-process background worker pool. Jobs that return an error
// are retried with doubling delays until the attempt budget runs out; the
// last error is logged and the job dropped. Not durable across restarts:
// every chain it runs is idempotent and can be re-triggered from its source
// record.
type Queue struct {
	jobs       chan *task
	maxRetries int
	baseDelay  time.Duration
	taskCtx    func() context.Context

	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	cancelFn context.CancelFunc
}

// New builds a queue with the given worker count and per-job retry budget
func New(workers, buffer, maxRetries int, baseDelay time.Duration) *Queue {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 256
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:       make(chan *task, buffer),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		taskCtx:    func() context.Context { return ctx },
		cancelFn:   cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	return q
}

// Enqueue submits a named job. A full buffer runs the job inline rather than
// dropping it: payment chains must not be lost.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) {
	t := &task{name: name, fn: fn}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		log.Printf("[Tasks] Queue closed, dropping %q", name)
		return
	}
	select {
	case q.jobs <- t:
		q.mu.Unlock()
	default:
		q.mu.Unlock()
		log.Printf("[Tasks] Buffer full, running %q inline", name)
		q.run(q.taskCtx(), t)
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for t := range q.jobs {
		q.run(ctx, t)
	}
}

func (q *Queue) run(ctx context.Context, t *task) {
	err := t.fn(ctx)
	if err == nil {
		return
	}
	t.attempts++
	if t.attempts > q.maxRetries {
		log.Printf("[Tasks] %q failed after %d attempts: %v", t.name, t.attempts, err)
		return
	}

	delay := q.baseDelay << (t.attempts - 1)
	log.Printf("[Tasks] %q failed (attempt %d/%d), retrying in %s: %v",
		t.name, t.attempts, q.maxRetries+1, delay, err)

	time.AfterFunc(delay, func() {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			log.Printf("[Tasks] Queue closed, dropping retry of %q", t.name)
			return
		}
		select {
		case q.jobs <- t:
			q.mu.Unlock()
		default:
			q.mu.Unlock()
			q.run(q.taskCtx(), t)
		}
	})
}

// Shutdown stops accepting work, drains every queued job, and waits for the
// running ones to return before cancelling their context. Retries that come
// due after shutdown are dropped; their chains re-trigger from the source
// record on the next start.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancelFn()
}
