package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Backend is the transport to the generative service. Implementations
// return raw transport errors; RemoteClient classifies them.
type Backend interface {
	GenerateConversation(ctx context.Context, topic string) ([]ConversationLine, error)
	PronunciationFeedback(ctx context.Context, transcript, correctPhrase string) (*Feedback, error)
}

// Remote call defaults.
const (
	DefaultConversationTimeout  = 30 * time.Second
	DefaultFeedbackTimeout      = 15 * time.Second
	DefaultConversationAttempts = 3
	DefaultFeedbackAttempts     = 2
)

// Operation names used as log context.
const (
	opGenerateConversation  = "generateConversation"
	opPronunciationFeedback = "getPronunciationFeedback"
)

// RemoteOptions configures a RemoteClient. Zero values take the defaults.
type RemoteOptions struct {
	ConversationTimeout  time.Duration
	FeedbackTimeout      time.Duration
	ConversationAttempts int
	FeedbackAttempts     int

	// Retry carries the backoff settings shared by both operations.
	// MaxAttempts in it is ignored.
	Retry RetryOptions

	BreakerThreshold int
	BreakerCooldown  time.Duration

	Connectivity ConnectivityMonitor
	Logger       *slog.Logger
	Debug        *DebugLogger
}

func (o RemoteOptions) withDefaults() RemoteOptions {
	if o.ConversationTimeout <= 0 {
		o.ConversationTimeout = DefaultConversationTimeout
	}
	if o.FeedbackTimeout <= 0 {
		o.FeedbackTimeout = DefaultFeedbackTimeout
	}
	if o.ConversationAttempts <= 0 {
		o.ConversationAttempts = DefaultConversationAttempts
	}
	if o.FeedbackAttempts <= 0 {
		o.FeedbackAttempts = DefaultFeedbackAttempts
	}
	return o
}

// RemoteClient calls the Backend through timeouts, retries and a circuit
// breaker per operation. Every error it returns is an *Error.
type RemoteClient struct {
	backend    Backend
	opts       RemoteOptions
	classifier Classifier

	conversationBreaker *CircuitBreaker
	feedbackBreaker     *CircuitBreaker
}

// NewRemoteClient wraps backend.
func NewRemoteClient(backend Backend, opts RemoteOptions) *RemoteClient {
	opts = opts.withDefaults()
	return &RemoteClient{
		backend:             backend,
		opts:                opts,
		classifier:          Classifier{Connectivity: opts.Connectivity},
		conversationBreaker: NewCircuitBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
		feedbackBreaker:     NewCircuitBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
	}
}

// BreakerStates reports the breaker state of each operation.
func (c *RemoteClient) BreakerStates() map[string]BreakerState {
	return map[string]BreakerState{
		opGenerateConversation:  c.conversationBreaker.State(),
		opPronunciationFeedback: c.feedbackBreaker.State(),
	}
}

func (c *RemoteClient) retryOptions(operation string, attempts int) RetryOptions {
	opts := c.opts.Retry
	opts.MaxAttempts = attempts
	opts.Classifier = &c.classifier
	opts.Logger = c.opts.Logger
	onRetry := opts.OnRetry
	opts.OnRetry = func(err *Error, attempt int, delay time.Duration) {
		c.opts.Debug.LogRetry(operation, attempt, delay, err)
		if onRetry != nil {
			onRetry(err, attempt, delay)
		}
	}
	return opts
}

// GenerateConversation produces the dialogue for topic, which is the topic
// ID for built-in topics and the learner's title for custom ones.
func (c *RemoteClient) GenerateConversation(ctx context.Context, topic string) ([]ConversationLine, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, NewError(KindValidation, "topic is required", false)
	}

	opts := c.retryOptions(opGenerateConversation, c.opts.ConversationAttempts)
	lines, err := ExecuteBreaker(ctx, c.conversationBreaker, func(ctx context.Context) ([]ConversationLine, error) {
		return WithOnlineRetry(ctx, c.opts.Connectivity, func(ctx context.Context) ([]ConversationLine, error) {
			return WithTimeout(ctx, func(ctx context.Context) ([]ConversationLine, error) {
				lines, err := c.backend.GenerateConversation(ctx, topic)
				if err != nil {
					return nil, err
				}
				if len(lines) == 0 {
					return nil, NewError(KindValidation, "conversation response is empty", false)
				}
				return lines, nil
			}, c.opts.ConversationTimeout, "")
		}, opts)
	})
	if err != nil {
		return nil, c.fail(err, opGenerateConversation)
	}
	return lines, nil
}

// PronunciationFeedback scores transcript against correctPhrase.
func (c *RemoteClient) PronunciationFeedback(ctx context.Context, transcript, correctPhrase string) (*Feedback, error) {
	if strings.TrimSpace(transcript) == "" || strings.TrimSpace(correctPhrase) == "" {
		return nil, NewError(KindValidation, "transcript and correctPhrase are required", false)
	}

	opts := c.retryOptions(opPronunciationFeedback, c.opts.FeedbackAttempts)
	fb, err := ExecuteBreaker(ctx, c.feedbackBreaker, func(ctx context.Context) (*Feedback, error) {
		return WithOnlineRetry(ctx, c.opts.Connectivity, func(ctx context.Context) (*Feedback, error) {
			return WithTimeout(ctx, func(ctx context.Context) (*Feedback, error) {
				fb, err := c.backend.PronunciationFeedback(ctx, transcript, correctPhrase)
				if err != nil {
					return nil, err
				}
				if err := validateFeedback(fb); err != nil {
					return nil, err
				}
				return fb, nil
			}, c.opts.FeedbackTimeout, "")
		}, opts)
	})
	if err != nil {
		return nil, c.fail(err, opPronunciationFeedback)
	}
	return fb, nil
}

func validateFeedback(fb *Feedback) error {
	switch {
	case fb == nil:
		return NewError(KindValidation, "feedback response is empty", false)
	case strings.TrimSpace(fb.Text) == "":
		return NewError(KindValidation, "feedback response has no text", false)
	case fb.Score < 0 || fb.Score > 100:
		return NewError(KindValidation, fmt.Sprintf("feedback score %v out of range", fb.Score), false)
	}
	return nil
}

func (c *RemoteClient) fail(err error, operation string) *Error {
	classified := c.classifier.Classify(err)
	LogError(c.opts.Logger, classified, operation)
	return classified
}
