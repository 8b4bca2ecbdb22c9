package breaker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"estate-backend/internal/metrics"
)

// State of the circuit
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// gaugeValue follows the circuit_breaker_state metric encoding
func (s State) gaugeValue() float64 {
	switch s {
	case StateOpen:
		return 2
	case StateHalfOpen:
		return 1
	default:
		return 0
	}
}

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// ErrOpen is returned when the circuit is open and the cooldown has not elapsed
var ErrOpen = errors.New("circuit breaker is open")

// Operation is a protected unit of work
type Operation func(ctx context.Context) error

type retryItem struct {
	name     string
	op       Operation
	attempts int
}

// CircuitBreaker guards calls to an external dependency. After
// FailureThreshold consecutive failures the circuit opens and calls fail
// fast with ErrOpen. Cooldown grows exponentially with continued failures
// (base * 2^(failures-threshold)) up to MaxRecovery. A success in half-open
// closes the circuit, resets the failure count and replays the retry queue.
//
// State is per-process: each instance tracks its own counters behind a
// mutex. Multiple replicas each keep an independent view of the dependency.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	baseRecovery     time.Duration
	maxRecovery      time.Duration
	maxRetries       int
	maxQueue         int

	mu           sync.Mutex
	state        State
	failureCount int
	openedAt     time.Time
	queue        []*retryItem

	now func() time.Time
}

// New builds a breaker with explicit tuning
func New(name string, failureThreshold int, baseRecovery, maxRecovery time.Duration, maxRetries int) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		baseRecovery:     baseRecovery,
		maxRecovery:      maxRecovery,
		maxRetries:       maxRetries,
		maxQueue:         100,
		state:            StateClosed,
		now:              time.Now,
	}
}

// NewDefault builds a breaker with the standard tuning: 3 failures to open,
// 10s base cooldown doubling up to 60s, 3 replay attempts per queued item.
func NewDefault(name string) *CircuitBreaker {
	return New(name, 3, 10*time.Second, 60*time.Second, 3)
}

// cooldown must be called with the mutex held
func (cb *CircuitBreaker) cooldown() time.Duration {
	over := cb.failureCount - cb.failureThreshold
	if over < 0 {
		over = 0
	}
	d := cb.baseRecovery
	for i := 0; i < over; i++ {
		d *= 2
		if d >= cb.maxRecovery {
			return cb.maxRecovery
		}
	}
	if d > cb.maxRecovery {
		d = cb.maxRecovery
	}
	return d
}

// Execute runs op through the circuit. While the circuit is open and the
// cooldown has not elapsed it returns ErrOpen without calling op.
func (cb *CircuitBreaker) Execute(ctx context.Context, opName string, op Operation) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown() {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.state = StateHalfOpen
		metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(cb.state.gaugeValue())
		log.Printf("[Breaker] %s: HALF_OPEN, probing with %s", cb.name, opName)
	}
	cb.mu.Unlock()

	err := op(ctx)

	cb.mu.Lock()
	if err != nil {
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
			metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(cb.state.gaugeValue())
			log.Printf("[Breaker] %s: OPEN after %d failures, cooldown %s (last: %s, err: %v)",
				cb.name, cb.failureCount, cb.cooldown(), opName, err)
		}
		cb.mu.Unlock()
		return err
	}

	wasDown := cb.state != StateClosed || cb.failureCount > 0
	cb.state = StateClosed
	cb.failureCount = 0
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(0)
	cb.mu.Unlock()

	if wasDown {
		log.Printf("[Breaker] %s: CLOSED, replaying queued operations", cb.name)
		cb.flushQueue(ctx)
	}
	return nil
}

// Enqueue adds an operation to the FIFO retry queue, to be replayed the next
// time the circuit closes. Items beyond the queue bound are dropped.
func (cb *CircuitBreaker) Enqueue(opName string, op Operation) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if len(cb.queue) >= cb.maxQueue {
		log.Printf("[Breaker] %s: retry queue full, dropping %s", cb.name, opName)
		return
	}
	cb.queue = append(cb.queue, &retryItem{name: opName, op: op})
}

// flushQueue replays queued items in order. A renewed failure puts the item
// back at the front (unless it exhausted its attempts) and stops the flush.
func (cb *CircuitBreaker) flushQueue(ctx context.Context) {
	for {
		cb.mu.Lock()
		if len(cb.queue) == 0 || cb.state != StateClosed {
			cb.mu.Unlock()
			return
		}
		item := cb.queue[0]
		cb.queue = cb.queue[1:]
		cb.mu.Unlock()

		item.attempts++
		if err := item.op(ctx); err != nil {
			cb.mu.Lock()
			cb.failureCount++
			if cb.failureCount >= cb.failureThreshold {
				cb.state = StateOpen
				cb.openedAt = cb.now()
			}
			if item.attempts < cb.maxRetries {
				cb.queue = append([]*retryItem{item}, cb.queue...)
				log.Printf("[Breaker] %s: replay of %s failed (attempt %d/%d), re-queued: %v",
					cb.name, item.name, item.attempts, cb.maxRetries, err)
			} else {
				log.Printf("[Breaker] %s: dropping %s after %d attempts: %v",
					cb.name, item.name, item.attempts, err)
			}
			cb.mu.Unlock()
			return
		}
		log.Printf("[Breaker] %s: replayed %s", cb.name, item.name)
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown() {
		return StateHalfOpen
	}
	return cb.state
}

// QueueLen returns the number of operations waiting for replay
func (cb *CircuitBreaker) QueueLen() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.queue)
}
