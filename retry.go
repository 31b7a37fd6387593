package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry defaults.
const (
	DefaultMaxAttempts   = 3
	DefaultInitialDelay  = time.Second
	DefaultMaxDelay      = 10 * time.Second
	DefaultBackoffFactor = 2.0

	// jitterFraction bounds the random extra delay as a fraction of the base delay.
	jitterFraction = 0.1
)

// RetryOptions configures WithRetry. Zero values take the defaults.
type RetryOptions struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// ShouldRetry decides whether a failed attempt is retried. The default
	// retries exactly the errors marked Retryable.
	ShouldRetry func(err *Error, attempt int) bool

	// OnRetry is called before sleeping with the failed attempt number
	// and the delay about to be waited.
	OnRetry func(err *Error, attempt int, delay time.Duration)

	// Classifier classifies attempt failures. The zero Classifier is used if nil.
	Classifier *Classifier

	// Logger receives the terminal failure record. Defaults to the package logger.
	Logger *slog.Logger
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.BackoffFactor <= 0 {
		o.BackoffFactor = DefaultBackoffFactor
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = func(err *Error, _ int) bool { return err.Retryable }
	}
	return o
}

func (o RetryOptions) classify(err error) *Error {
	if o.Classifier != nil {
		return o.Classifier.Classify(err)
	}
	return Classify(err)
}

// BackoffDelay returns the wait after failed attempt n (1-based) before jitter.
func (o RetryOptions) BackoffDelay(attempt int) time.Duration {
	o = o.withDefaults()
	base := float64(o.InitialDelay) * math.Pow(o.BackoffFactor, float64(attempt-1))
	if base > float64(o.MaxDelay) {
		return o.MaxDelay
	}
	return time.Duration(base)
}

func (o RetryOptions) delay(attempt int, err *Error) time.Duration {
	base := o.BackoffDelay(attempt)
	d := base + time.Duration(rand.Float64()*jitterFraction*float64(base))
	if err != nil && err.RetryAfter > d {
		d = err.RetryAfter
	}
	if d > o.MaxDelay {
		d = o.MaxDelay
	}
	return d
}

// Operation is a unit of work that may be retried.
type Operation[T any] func(ctx context.Context) (T, error)

// WithRetry runs op until it succeeds, the failure is not retryable, or
// MaxAttempts invocations have been made. Failures are returned as *Error.
func WithRetry[T any](ctx context.Context, op Operation[T], opts RetryOptions) (T, error) {
	opts = opts.withDefaults()

	var (
		result  T
		attempt int
		lastErr *Error
	)

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= opts.MaxAttempts {
			return 0, true
		}
		d := opts.delay(attempt, lastErr)
		if opts.OnRetry != nil {
			opts.OnRetry(lastErr, attempt, d)
		}
		return d, false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := op(ctx)
		if err == nil {
			result = v
			return nil
		}
		lastErr = opts.classify(err)
		if attempt >= opts.MaxAttempts || !opts.ShouldRetry(lastErr, attempt) {
			return lastErr
		}
		return retry.RetryableError(lastErr)
	})
	if err == nil {
		return result, nil
	}

	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return zero, opts.classify(ctxErr)
	}

	classified := opts.classify(err)
	LogError(opts.Logger, classified, fmt.Sprintf("retry: failed after %d attempts", attempt))
	return zero, classified
}

// WithTimeout runs op and fails with a network error carrying message if
// it does not finish within timeout. The context passed to op is
// cancelled on timeout; a late result is discarded.
func WithTimeout[T any](ctx context.Context, op Operation[T], timeout time.Duration, message string) (T, error) {
	var zero T
	if message == "" {
		message = msgTimeout
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome{v, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.v, out.err
	case <-timer.C:
		return zero, &Error{
			Kind:        KindNetwork,
			Message:     message,
			UserMessage: message,
			Retryable:   true,
			Err:         context.DeadlineExceeded,
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// WithRetryAndTimeout time-boxes every attempt of op and retries per opts.
func WithRetryAndTimeout[T any](ctx context.Context, op Operation[T], timeout time.Duration, opts RetryOptions) (T, error) {
	return WithRetry(ctx, func(ctx context.Context) (T, error) {
		return WithTimeout(ctx, op, timeout, "")
	}, opts)
}

// WithOnlineRetry behaves like WithRetry but never retries while monitor
// reports offline.
func WithOnlineRetry[T any](ctx context.Context, monitor ConnectivityMonitor, op Operation[T], opts RetryOptions) (T, error) {
	custom := opts.ShouldRetry
	opts.ShouldRetry = func(err *Error, attempt int) bool {
		if monitor != nil && !monitor.IsOnline() {
			return false
		}
		if custom != nil {
			return custom(err, attempt)
		}
		return err.Retryable
	}
	return WithRetry(ctx, op, opts)
}

// RetryQueue runs retried operations one at a time in submission order.
type RetryQueue struct {
	mu         sync.Mutex
	pending    []*queuedTask
	processing bool
}

type queuedTask struct {
	ctx  context.Context
	op   func(ctx context.Context) error
	opts RetryOptions
	done chan error
}

// ErrQueueCleared is delivered to tasks dropped by Clear.
var ErrQueueCleared = errors.New("retry queue cleared")

// NewRetryQueue creates an empty queue.
func NewRetryQueue() *RetryQueue {
	return &RetryQueue{}
}

// Add enqueues op and returns a channel that receives its final error
// (nil on success) once it has run.
func (q *RetryQueue) Add(ctx context.Context, op func(ctx context.Context) error, opts RetryOptions) <-chan error {
	task := &queuedTask{ctx: ctx, op: op, opts: opts, done: make(chan error, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, task)
	start := !q.processing
	q.processing = true
	q.mu.Unlock()

	if start {
		go q.process()
	}
	return task.done
}

// Len returns the number of tasks waiting to run.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Clear drops every task that has not started.
func (q *RetryQueue) Clear() {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, task := range dropped {
		task.done <- ErrQueueCleared
	}
}

func (q *RetryQueue) process() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		task := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		_, err := WithRetry(task.ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, task.op(ctx)
		}, task.opts)
		task.done <- err
	}
}
