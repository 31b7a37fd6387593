package tutor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// CustomTopicTTL is how long a cached custom-topic conversation is served.
// Built-in topics never expire.
const CustomTopicTTL = 24 * time.Hour

// ConversationGenerator produces conversations. *RemoteClient implements it.
type ConversationGenerator interface {
	GenerateConversation(ctx context.Context, topic string) ([]ConversationLine, error)
}

// ConversationCache stores conversations per topic. *Store implements it.
type ConversationCache interface {
	GetConversation(topicID string) (*CachedConversation, error)
	PutConversation(topic Topic, lines []ConversationLine, fetchedAt time.Time) error
	ClearConversations() (int, error)
}

// ConversationResult is what a load produced.
type ConversationResult struct {
	Topic     Topic              `json:"topic"`
	Lines     []ConversationLine `json:"lines"`
	FromCache bool               `json:"from_cache"`
	FetchedAt time.Time          `json:"fetched_at"`

	// Warning is set when fresh data could not be fetched and cached
	// lines are served instead. It does not block the result.
	Warning *Error `json:"-"`
}

// LoadOptions tunes a single load.
type LoadOptions struct {
	// PreferCache returns a valid cached conversation without contacting
	// the generator.
	PreferCache bool
}

// ConversationLoader fetches conversations through the generator with
// the cache as a best-effort read-through and write-through layer.
// Concurrent loads of the same topic share one fetch.
type ConversationLoader struct {
	gen    ConversationGenerator
	cache  ConversationCache
	now    func() time.Time
	logger *slog.Logger
	group  singleflight.Group
}

// NewConversationLoader creates a loader. cache may be nil.
func NewConversationLoader(gen ConversationGenerator, cache ConversationCache) *ConversationLoader {
	return &ConversationLoader{gen: gen, cache: cache, now: time.Now}
}

// WithClock replaces the loader's time source.
func (l *ConversationLoader) WithClock(now func() time.Time) *ConversationLoader {
	l.now = now
	return l
}

// WithLogger sets the logger for cache failures.
func (l *ConversationLoader) WithLogger(logger *slog.Logger) *ConversationLoader {
	l.logger = logger
	return l
}

func (l *ConversationLoader) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return Logger()
}

// Cached returns the usable cached conversation for topic, or nil.
// Cache failures are logged and reported as a miss.
func (l *ConversationLoader) Cached(topic Topic) *CachedConversation {
	if l.cache == nil {
		return nil
	}
	cached, err := l.cache.GetConversation(topic.ID)
	if err != nil {
		l.log().Warn("conversation cache read failed", "topic", topic.ID, "error", err)
		return nil
	}
	if cached == nil || len(cached.Lines) == 0 {
		return nil
	}
	if topic.IsCustom() && l.now().Sub(cached.FetchedAt) > CustomTopicTTL {
		l.log().Debug("cached custom conversation expired", "topic", topic.ID)
		return nil
	}
	return cached
}

// Load returns the conversation for topic. Fresh data is fetched unless
// opts.PreferCache finds a usable cache entry. When the fetch fails and a
// usable cache entry exists, the cached lines are returned with Warning
// set; otherwise the classified failure is returned.
func (l *ConversationLoader) Load(ctx context.Context, topic Topic, opts LoadOptions) (*ConversationResult, error) {
	cached := l.Cached(topic)
	if cached != nil && opts.PreferCache {
		return &ConversationResult{Topic: topic, Lines: cached.Lines, FromCache: true, FetchedAt: cached.FetchedAt}, nil
	}

	// The shared fetch outlives any single caller; each caller stops
	// waiting on its own context.
	ch := l.group.DoChan(topic.ID, func() (any, error) {
		return l.gen.GenerateConversation(context.WithoutCancel(ctx), topic.Prompt())
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	v, err := res.Val, res.Err
	if err != nil {
		classified := Classify(err)
		if cached != nil {
			warning := *classified
			warning.UserMessage = msgContentStale
			return &ConversationResult{
				Topic:     topic,
				Lines:     cached.Lines,
				FromCache: true,
				FetchedAt: cached.FetchedAt,
				Warning:   &warning,
			}, nil
		}
		blocking := *classified
		blocking.UserMessage = msgGenerateFailed
		return nil, &blocking
	}

	lines := v.([]ConversationLine)
	fetchedAt := l.now()
	if l.cache != nil {
		if err := l.cache.PutConversation(topic, lines, fetchedAt); err != nil {
			l.log().Warn("conversation cache write failed", "topic", topic.ID, "error", err)
		}
	}
	return &ConversationResult{Topic: topic, Lines: lines, FetchedAt: fetchedAt}, nil
}

// ClearCache drops every cached conversation.
func (l *ConversationLoader) ClearCache() (int, error) {
	if l.cache == nil {
		return 0, nil
	}
	return l.cache.ClearConversations()
}
