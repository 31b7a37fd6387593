package tutor

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Circuit breaker defaults.
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 60 * time.Second
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// CircuitBreaker stops calling a failing operation for a cooldown period
// after threshold consecutive failures. State transitions are evaluated
// lazily when Execute or State is called.
type CircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state       BreakerState
	failures    int
	openedAt    time.Time
	trialActive bool
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments take
// the defaults.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		state:     BreakerClosed,
	}
}

// WithClock replaces the breaker's time source.
func (b *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	return b
}

// State returns the current state, moving open to half-open once the
// cooldown has elapsed.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *CircuitBreaker) advance() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.trialActive = false
	}
}

// Execute runs op through the breaker. While open, and while a half-open
// trial is in flight, it fails fast with an API error wrapping
// ErrCircuitOpen without invoking op.
func (b *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := op(ctx)
	b.record(err)
	return err
}

// ExecuteBreaker runs a value-returning op through b.
func ExecuteBreaker[T any](ctx context.Context, b *CircuitBreaker, op Operation[T]) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			result = v
		}
		return err
	})
	return result, err
}

func (b *CircuitBreaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()

	switch b.state {
	case BreakerOpen:
		return b.rejection()
	case BreakerHalfOpen:
		if b.trialActive {
			return b.rejection()
		}
		b.trialActive = true
	}
	return nil
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = BreakerClosed
		b.failures = 0
		b.trialActive = false
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
		b.trialActive = false
	}
}

func (b *CircuitBreaker) rejection() *Error {
	return &Error{
		Kind:        KindAPI,
		Message:     "circuit breaker is open",
		UserMessage: msgUnavailable,
		StatusCode:  http.StatusServiceUnavailable,
		Err:         ErrCircuitOpen,
	}
}
