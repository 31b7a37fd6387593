package tutor

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/asofia888/russian-talk-tutor/internal/store/migrations"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const schemaVersion = "3"

// timeLayout is a fixed-width UTC layout so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the local SQLite database: a namespaced key/value table for
// small documents such as the favorites list, the conversation cache and
// the review log.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewStore opens or creates a local store at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("store: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("store: run migrations: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, schemaVersion)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the store. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Get returns the value stored under namespace/key. The boolean is false
// when no value exists.
func (s *Store) Get(namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrStoreClosed
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s/%s: %w", namespace, key, err)
	}
	return []byte(value), true, nil
}

// Put replaces the value under namespace/key.
func (s *Store) Put(namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, namespace, key, string(value), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store: put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes namespace/key. Deleting a missing key is not an error.
func (s *Store) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// CachedConversation is a stored conversation for one topic.
type CachedConversation struct {
	ID         string
	TopicID    string
	TopicTitle string
	Lines      []ConversationLine
	FetchedAt  time.Time
}

// GetConversation returns the cached conversation for topicID, or nil.
// Rows that no longer decode are treated as absent.
func (s *Store) GetConversation(topicID string) (*CachedConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var (
		c         CachedConversation
		linesJSON string
		fetchedAt string
	)
	err := s.db.QueryRow(`
		SELECT id, topic_id, topic_title, lines, fetched_at
		FROM conversation_cache WHERE topic_id = ?
	`, topicID).Scan(&c.ID, &c.TopicID, &c.TopicTitle, &linesJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get conversation %s: %w", topicID, err)
	}

	if err := json.Unmarshal([]byte(linesJSON), &c.Lines); err != nil {
		Logger().Warn("discarding undecodable cached conversation", "topic", topicID, "error", err)
		return nil, nil
	}
	c.FetchedAt, err = time.Parse(timeLayout, fetchedAt)
	if err != nil {
		return nil, nil
	}
	return &c, nil
}

// PutConversation caches lines for topic, replacing any earlier copy.
func (s *Store) PutConversation(topic Topic, lines []ConversationLine, fetchedAt time.Time) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("store: encode conversation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err = s.db.Exec(`
		INSERT INTO conversation_cache (id, topic_id, topic_title, lines, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(topic_id) DO UPDATE SET
			topic_title = excluded.topic_title,
			lines = excluded.lines,
			fetched_at = excluded.fetched_at
	`, ulid.Make().String(), topic.ID, topic.Title, string(data), fetchedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store: put conversation %s: %w", topic.ID, err)
	}
	return nil
}

// DeleteConversation removes one cached conversation.
func (s *Store) DeleteConversation(topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.Exec(`DELETE FROM conversation_cache WHERE topic_id = ?`, topicID); err != nil {
		return fmt.Errorf("store: delete conversation %s: %w", topicID, err)
	}
	return nil
}

// ClearConversations removes every cached conversation and returns how
// many were removed.
func (s *Store) ClearConversations() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	res, err := s.db.Exec(`DELETE FROM conversation_cache`)
	if err != nil {
		return 0, fmt.Errorf("store: clear conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ReviewRecord is one entry of the review log.
type ReviewRecord struct {
	ID         string    `json:"id"`
	Russian    string    `json:"russian"`
	Rating     Rating    `json:"rating"`
	Interval   int       `json:"interval"`
	EaseFactor float64   `json:"easeFactor"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

// AppendReview records a review. An empty ID is assigned a ULID.
func (s *Store) AppendReview(r ReviewRecord) error {
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO review_log (id, russian, rating, interval, ease_factor, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Russian, string(r.Rating), r.Interval, r.EaseFactor, r.ReviewedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store: append review: %w", err)
	}
	return nil
}

// Reviews returns review records at or after since, oldest first.
func (s *Store) Reviews(since time.Time) ([]ReviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT id, russian, rating, interval, ease_factor, reviewed_at
		FROM review_log WHERE reviewed_at >= ? ORDER BY reviewed_at, id
	`, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("store: query reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ReviewRecord
	for rows.Next() {
		var (
			r          ReviewRecord
			rating     string
			reviewedAt string
		)
		if err := rows.Scan(&r.ID, &r.Russian, &rating, &r.Interval, &r.EaseFactor, &reviewedAt); err != nil {
			return nil, fmt.Errorf("store: scan review: %w", err)
		}
		r.Rating = Rating(rating)
		r.ReviewedAt, _ = time.Parse(timeLayout, reviewedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// StoreStats summarizes the local store.
type StoreStats struct {
	CachedConversations int    `json:"cached_conversations"`
	Reviews             int    `json:"reviews"`
	SchemaVersion       string `json:"schema_version"`
}

// Stats returns store statistics.
func (s *Store) Stats() (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	stats := &StoreStats{SchemaVersion: schemaVersion}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM conversation_cache`).Scan(&stats.CachedConversations); err != nil {
		return nil, fmt.Errorf("store: count conversations: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM review_log`).Scan(&stats.Reviews); err != nil {
		return nil, fmt.Errorf("store: count reviews: %w", err)
	}
	return stats, nil
}

// GetMetadata returns a metadata value, or "" if unset.
func (s *Store) GetMetadata(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata sets a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set metadata %s: %w", key, err)
	}
	return nil
}

// Reset deletes all learner data: key/value documents, cached
// conversations and the review log. The schema is kept.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"kv", "conversation_cache", "review_log"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("store: reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
