package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultMaxRecoveryAttempts bounds ErrorRecovery.Recover calls per error.
const DefaultMaxRecoveryAttempts = 3

// ErrRecoveryExhausted is returned once the recovery budget is spent.
var ErrRecoveryExhausted = errors.New("recovery attempts exhausted")

// ErrorRecovery tracks one surfaced error and bounded attempts to recover
// from it.
type ErrorRecovery struct {
	mu          sync.Mutex
	maxAttempts int
	err         *Error
	attempts    int

	// OnRecovered is called after a successful recovery.
	OnRecovered func()
	// OnFailed is called when the budget is spent.
	OnFailed func(*Error)
}

// NewErrorRecovery creates a tracker. Non-positive maxAttempts takes the default.
func NewErrorRecovery(maxAttempts int) *ErrorRecovery {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxRecoveryAttempts
	}
	return &ErrorRecovery{maxAttempts: maxAttempts}
}

// SetError classifies err, makes it current and resets the attempt count.
func (r *ErrorRecovery) SetError(err error) *Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = Classify(err)
	r.attempts = 0
	return r.err
}

// Clear forgets the current error.
func (r *ErrorRecovery) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = nil
	r.attempts = 0
}

// Err returns the current error, or nil.
func (r *ErrorRecovery) Err() *Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Attempts returns how many recoveries have been tried for the current error.
func (r *ErrorRecovery) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// CanRetry reports whether the current error is retryable and budget remains.
func (r *ErrorRecovery) CanRetry() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil && r.err.Retryable && r.attempts < r.maxAttempts
}

// Recover runs fn to recover from the current error. On success the error
// is cleared. On failure the new error becomes current.
func (r *ErrorRecovery) Recover(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	if r.err == nil {
		r.mu.Unlock()
		return nil
	}
	if r.attempts >= r.maxAttempts {
		current := r.err
		r.mu.Unlock()
		if r.OnFailed != nil {
			r.OnFailed(current)
		}
		return ErrRecoveryExhausted
	}
	r.attempts++
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		classified := Classify(err)
		r.mu.Lock()
		r.err = classified
		exhausted := r.attempts >= r.maxAttempts
		r.mu.Unlock()
		if exhausted && r.OnFailed != nil {
			r.OnFailed(classified)
		}
		return classified
	}

	r.Clear()
	if r.OnRecovered != nil {
		r.OnRecovered()
	}
	return nil
}

// AutoRecover calls Recover only when the current error is retryable.
func (r *ErrorRecovery) AutoRecover(ctx context.Context, fn func(ctx context.Context) error) error {
	current := r.Err()
	if current == nil || !current.Retryable {
		return nil
	}
	return r.Recover(ctx, fn)
}

// RecoveryAction is a way out offered after an unexpected failure.
type RecoveryAction string

const (
	ActionRetry    RecoveryAction = "retry"
	ActionReload   RecoveryAction = "reload"
	ActionResetAll RecoveryAction = "reset_all"
)

// DefaultResetThreshold is the number of consecutive failures after which
// a Boundary offers ActionResetAll.
const DefaultResetThreshold = 2

// Boundary is a catch-all around a unit of work. Panics become Unknown
// errors. Retry and reload are always offered; clearing all local state
// is offered only after repeated consecutive failures.
type Boundary struct {
	mu             sync.Mutex
	failures       int
	last           *Error
	resetThreshold int
	logger         *slog.Logger
}

// NewBoundary creates a boundary. Non-positive resetThreshold takes the default.
func NewBoundary(resetThreshold int, logger *slog.Logger) *Boundary {
	if resetThreshold <= 0 {
		resetThreshold = DefaultResetThreshold
	}
	return &Boundary{resetThreshold: resetThreshold, logger: logger}
}

// Run executes fn. A returned error or a panic counts as a failure; a
// clean run resets the failure count.
func (b *Boundary) Run(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Error{
				Kind:        KindUnknown,
				Message:     fmt.Sprintf("panic: %v", p),
				UserMessage: msgUnexpected,
			}
			b.log().Debug("boundary recovered panic", "stack", string(debug.Stack()))
		}
		b.record(err)
	}()
	return fn()
}

func (b *Boundary) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return Logger()
}

func (b *Boundary) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.last = nil
		return
	}
	b.failures++
	b.last = Classify(err)
	LogError(b.log(), b.last, "boundary")
}

// Failures returns the consecutive failure count.
func (b *Boundary) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// LastError returns the most recent failure, or nil after a clean run.
func (b *Boundary) LastError() *Error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Actions returns the recovery actions to offer now.
func (b *Boundary) Actions() []RecoveryAction {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures == 0 {
		return nil
	}
	actions := []RecoveryAction{ActionRetry, ActionReload}
	if b.failures >= b.resetThreshold {
		actions = append(actions, ActionResetAll)
	}
	return actions
}

// Reset clears the failure history, as after a reload.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.last = nil
}
