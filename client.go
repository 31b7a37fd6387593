package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Custom topic history location and length.
const (
	customTopicsNamespace = "custom_topics"
	customTopicsKey       = "history"
	MaxCustomTopics       = 10
)

// Client ties the local store, favorites, the conversation loader and the
// remote backend together for one learner profile.
type Client struct {
	config       Config
	store        *Store
	favorites    *Favorites
	remote       *RemoteClient
	loader       *ConversationLoader
	connectivity *Connectivity
	queue        *RetryQueue
	session      *Session
	debug        *DebugLogger
	ownsDebug    bool
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	closed bool
}

type clientOptions struct {
	backend      Backend
	connectivity *Connectivity
	debug        *DebugLogger
	logger       *slog.Logger
	now          func() time.Time
}

// Option customizes New.
type Option func(*clientOptions)

// WithBackend supplies the transport used for generation and feedback.
// Without one the client is offline.
func WithBackend(b Backend) Option {
	return func(o *clientOptions) { o.backend = b }
}

// WithConnectivity shares a connectivity monitor with the client.
func WithConnectivity(c *Connectivity) Option {
	return func(o *clientOptions) { o.connectivity = c }
}

// WithDebugLogger shares a wire-level debug logger, typically the one
// given to the backend. The caller keeps ownership and closes it.
func WithDebugLogger(d *DebugLogger) Option {
	return func(o *clientOptions) { o.debug = d }
}

// WithLogger sets the client's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithClock replaces the time source for reviews and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// New opens the profile's store and builds a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := clientOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.connectivity == nil {
		o.connectivity = NewConnectivity(true)
	}

	debug, ownsDebug := o.debug, false
	if debug == nil {
		var err error
		if debug, err = NewDebugLogger(cfg.Debug, cfg.DebugLogPath); err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		ownsDebug = true
	}

	st, err := NewStore(cfg.LocalPath)
	if err != nil {
		if ownsDebug {
			_ = debug.Close()
		}
		return nil, fmt.Errorf("client: %w", err)
	}

	c := &Client{
		config:       cfg,
		store:        st,
		connectivity: o.connectivity,
		queue:        NewRetryQueue(),
		session:      NewSession(),
		debug:        debug,
		ownsDebug:    ownsDebug,
		logger:       o.logger,
		now:          o.now,
	}

	c.favorites = LoadFavorites(st,
		WithFavoritesClock(o.now),
		WithReviewHook(c.recordReview),
	)

	var gen ConversationGenerator = offlineGenerator{}
	if o.backend != nil {
		c.remote = NewRemoteClient(o.backend, RemoteOptions{
			ConversationTimeout: cfg.ConversationTimeout,
			FeedbackTimeout:     cfg.FeedbackTimeout,
			BreakerThreshold:    cfg.BreakerThreshold,
			BreakerCooldown:     cfg.BreakerCooldown,
			Connectivity:        o.connectivity,
			Logger:              o.logger,
			Debug:               debug,
		})
		gen = c.remote
	}
	c.loader = NewConversationLoader(gen, st).WithClock(o.now).WithLogger(o.logger)

	return c, nil
}

// offlineGenerator answers every request with an unavailable error so
// cached conversations are still served.
type offlineGenerator struct{}

func (offlineGenerator) GenerateConversation(context.Context, string) ([]ConversationLine, error) {
	return nil, noBackendError()
}

func noBackendError() *Error {
	return &Error{
		Kind:        KindNetwork,
		Message:     ErrNoBackend.Error(),
		UserMessage: msgUnavailable,
		Err:         ErrNoBackend,
	}
}

func (c *Client) recordReview(r ReviewRecord) {
	if err := c.store.AppendReview(r); err != nil {
		c.logger.Warn("review log write failed", "russian", r.Russian, "error", err)
	}
}

// Config returns the resolved configuration.
func (c *Client) Config() Config { return c.config }

// Store returns the underlying store.
func (c *Client) Store() *Store { return c.store }

// Favorites returns the favorites list.
func (c *Client) Favorites() *Favorites { return c.favorites }

// Session returns the word reference tracker.
func (c *Client) Session() *Session { return c.session }

// Connectivity returns the client's connectivity monitor.
func (c *Client) Connectivity() *Connectivity { return c.connectivity }

// Online reports whether a backend is configured and reachable.
func (c *Client) Online() bool {
	return c.remote != nil && c.connectivity.IsOnline()
}

// Topics returns the built-in catalog.
func (c *Client) Topics() []TopicCategory { return Catalog() }

// Topic finds a built-in or previously created custom topic.
func (c *Client) Topic(id string) (Topic, error) {
	if t, ok := FindTopic(id); ok {
		return t, nil
	}
	records, err := c.CustomTopics()
	if err != nil {
		return Topic{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return Topic{ID: r.ID, Title: r.Title, Level: LevelIntermediate}, nil
		}
	}
	return Topic{}, fmt.Errorf("%w: %s", ErrUnknownTopic, id)
}

// CustomTopic creates a custom topic for title and records it in the
// history. Reusing a title returns its existing topic.
func (c *Client) CustomTopic(title string) (Topic, error) {
	title = strings.TrimSpace(title)
	records, err := c.CustomTopics()
	if err != nil {
		return Topic{}, err
	}
	for _, r := range records {
		if strings.EqualFold(r.Title, title) {
			return Topic{ID: r.ID, Title: r.Title, Level: LevelIntermediate}, nil
		}
	}

	topic, err := NewCustomTopic(title)
	if err != nil {
		return Topic{}, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	records = append([]CustomTopicRecord{{ID: topic.ID, Title: topic.Title, CreatedAt: c.now().UTC()}}, records...)
	if len(records) > MaxCustomTopics {
		records = records[:MaxCustomTopics]
	}
	data, err := json.Marshal(records)
	if err != nil {
		return Topic{}, fmt.Errorf("encode custom topics: %w", err)
	}
	if err := c.store.Put(customTopicsNamespace, customTopicsKey, data); err != nil {
		return Topic{}, err
	}
	return topic, nil
}

// CustomTopics returns the custom topic history, newest first.
func (c *Client) CustomTopics() ([]CustomTopicRecord, error) {
	data, ok, err := c.store.Get(customTopicsNamespace, customTopicsKey)
	if err != nil || !ok {
		return nil, err
	}
	var records []CustomTopicRecord
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Warn("custom topic history unreadable, ignoring", "error", err)
		return nil, nil
	}
	return records, nil
}

// Conversation loads the dialogue for topic and tracks its words in the
// session.
func (c *Client) Conversation(ctx context.Context, topic Topic, opts LoadOptions) (*ConversationResult, error) {
	res, err := c.loader.Load(ctx, topic, opts)
	if err != nil {
		return nil, err
	}
	c.session.TrackLines(res.Lines)
	if res.Warning != nil {
		LogError(c.logger, res.Warning, "conversation")
	}
	return res, nil
}

// Prefetch queues background loads of topics. The returned channel
// receives one result per topic in order and is closed afterwards.
func (c *Client) Prefetch(ctx context.Context, topics []Topic) <-chan error {
	out := make(chan error, len(topics))
	results := make([]<-chan error, 0, len(topics))
	for _, t := range topics {
		topic := t
		results = append(results, c.queue.Add(ctx, func(ctx context.Context) error {
			_, err := c.loader.Load(ctx, topic, LoadOptions{PreferCache: true})
			return err
		}, RetryOptions{MaxAttempts: 1, Logger: c.logger}))
	}
	go func() {
		defer close(out)
		for _, ch := range results {
			out <- <-ch
		}
	}()
	return out
}

// PronunciationFeedback scores transcript against correctPhrase.
func (c *Client) PronunciationFeedback(ctx context.Context, transcript, correctPhrase string) (*Feedback, error) {
	if c.remote == nil {
		return nil, noBackendError()
	}
	return c.remote.PronunciationFeedback(ctx, transcript, correctPhrase)
}

// NewRoleplay starts a roleplay over script with the client as feedback
// provider.
func (c *Client) NewRoleplay(script []ConversationLine) *Roleplay {
	if c.remote == nil {
		return NewRoleplay(script, offlineFeedback{})
	}
	return NewRoleplay(script, c.remote)
}

type offlineFeedback struct{}

func (offlineFeedback) PronunciationFeedback(context.Context, string, string) (*Feedback, error) {
	return nil, noBackendError()
}

// AddFavorite adds word to the favorites.
func (c *Client) AddFavorite(word Word) (bool, error) { return c.favorites.Add(word) }

// RemoveFavorite removes a favorite by its Russian form.
func (c *Client) RemoveFavorite(russian string) (bool, error) { return c.favorites.Remove(russian) }

// Rate records a review of a favorite.
func (c *Client) Rate(russian string, rating Rating) (FavoriteWord, error) {
	fw, ok, err := c.favorites.Update(russian, rating)
	if err != nil {
		return FavoriteWord{}, err
	}
	if !ok {
		return FavoriteWord{}, fmt.Errorf("%w: %s", ErrNotFavorite, russian)
	}
	return fw, nil
}

// ReviewQueue returns the favorites due today, earliest first.
func (c *Client) ReviewQueue() []FavoriteWord { return c.favorites.ReviewQueue() }

// Reviews returns the review log since t.
func (c *Client) Reviews(since time.Time) ([]ReviewRecord, error) { return c.store.Reviews(since) }

// ExportFavorites writes the favorites as JSON or XLSX.
func (c *Client) ExportFavorites(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		return c.favorites.ExportJSON(w, c.config.Profile)
	case "xlsx":
		return c.favorites.ExportXLSX(w)
	default:
		return &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported export format %q", format)}
	}
}

// ImportFavorites reads favorites as JSON or XLSX.
func (c *Client) ImportFavorites(r io.Reader, format string, strategy MergeStrategy) (*ImportResult, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return c.favorites.ImportJSON(r, strategy)
	case "xlsx":
		return c.favorites.ImportXLSX(r, strategy)
	default:
		return nil, &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported import format %q", format)}
	}
}

// ClientStats summarizes the profile.
type ClientStats struct {
	Profile     string                  `json:"profile"`
	Favorites   int                     `json:"favorites"`
	Due         int                     `json:"due"`
	Online      bool                    `json:"online"`
	Breakers    map[string]BreakerState `json:"breakers,omitempty"`
	Store       *StoreStats             `json:"store"`
	QueuedTasks int                     `json:"queued_tasks"`
}

// Stats reports profile statistics.
func (c *Client) Stats() (*ClientStats, error) {
	st, err := c.store.Stats()
	if err != nil {
		return nil, err
	}
	stats := &ClientStats{
		Profile:     c.config.Profile,
		Favorites:   c.favorites.Len(),
		Due:         c.favorites.DueCount(),
		Online:      c.Online(),
		Store:       st,
		QueuedTasks: c.queue.Len(),
	}
	if c.remote != nil {
		stats.Breakers = c.remote.BreakerStates()
	}
	return stats, nil
}

// ClearCache drops cached conversations. Favorites are kept.
func (c *Client) ClearCache() (int, error) {
	return c.loader.ClearCache()
}

// ResetAll deletes every piece of local data in the profile.
func (c *Client) ResetAll() error {
	c.queue.Clear()
	if err := c.store.Reset(); err != nil {
		return err
	}
	c.session.Clear()
	return c.favorites.Replace(nil)
}

// Close stops background work and closes the store.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.queue.Clear()
	if c.ownsDebug {
		_ = c.debug.Close()
	}
	return c.store.Close()
}
