package tutor

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Favorites persistence location.
const (
	FavoritesNamespace = "favorites"
	FavoritesKey       = "favoriteWords-v2-russian"
)

// DocumentStore persists small JSON documents. *Store implements it.
type DocumentStore interface {
	Get(namespace, key string) ([]byte, bool, error)
	Put(namespace, key string, value []byte) error
}

// MemoryDocuments is an in-memory DocumentStore.
type MemoryDocuments struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemoryDocuments creates an empty in-memory document store.
func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{docs: make(map[string][]byte)}
}

// Get implements DocumentStore.
func (m *MemoryDocuments) Get(namespace, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.docs[namespace+"/"+key]
	return append([]byte(nil), v...), ok, nil
}

// Put implements DocumentStore.
func (m *MemoryDocuments) Put(namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[namespace+"/"+key] = append([]byte(nil), value...)
	return nil
}

// Favorites is the learner's saved word list and its review schedules.
// All methods are safe for concurrent use; every mutation rewrites the
// persisted list.
type Favorites struct {
	mu       sync.Mutex
	docs     DocumentStore
	now      func() time.Time
	collator *collate.Collator
	items    []FavoriteWord
	onReview func(ReviewRecord)
}

// FavoritesOption configures LoadFavorites.
type FavoritesOption func(*Favorites)

// WithFavoritesClock sets the clock used for "today".
func WithFavoritesClock(now func() time.Time) FavoritesOption {
	return func(f *Favorites) { f.now = now }
}

// WithReviewHook registers fn to be called after each applied rating.
func WithReviewHook(fn func(ReviewRecord)) FavoritesOption {
	return func(f *Favorites) { f.onReview = fn }
}

// LoadFavorites reads the persisted list. A missing, unreadable or
// undecodable list yields an empty one; the problem is logged.
func LoadFavorites(docs DocumentStore, opts ...FavoritesOption) *Favorites {
	f := &Favorites{
		docs:     docs,
		now:      time.Now,
		collator: collate.New(language.Russian),
	}
	for _, opt := range opts {
		opt(f)
	}

	data, ok, err := docs.Get(FavoritesNamespace, FavoritesKey)
	switch {
	case err != nil:
		Logger().Warn("favorites: read failed, starting empty", "error", err)
	case ok:
		var items []FavoriteWord
		if err := json.Unmarshal(data, &items); err != nil {
			Logger().Warn("favorites: stored list is corrupt, starting empty", "error", err)
		} else {
			f.items = f.dedupe(items)
		}
	}
	f.sortLocked()
	return f
}

func (f *Favorites) dedupe(items []FavoriteWord) []FavoriteWord {
	seen := make(map[string]bool, len(items))
	out := make([]FavoriteWord, 0, len(items))
	for _, item := range items {
		if item.Russian == "" || seen[item.Russian] {
			continue
		}
		seen[item.Russian] = true
		item.Schedule = item.Schedule.normalized()
		out = append(out, item)
	}
	return out
}

func (f *Favorites) sortLocked() {
	slices.SortStableFunc(f.items, func(a, b FavoriteWord) int {
		return f.collator.CompareString(a.Russian, b.Russian)
	})
}

func (f *Favorites) indexLocked(russian string) int {
	for i := range f.items {
		if f.items[i].Russian == russian {
			return i
		}
	}
	return -1
}

// persistLocked writes the list. The in-memory list stays authoritative
// when the write fails.
func (f *Favorites) persistLocked() error {
	data, err := json.Marshal(f.items)
	if err != nil {
		return fmt.Errorf("favorites: encode: %w", err)
	}
	if err := f.docs.Put(FavoritesNamespace, FavoritesKey, data); err != nil {
		Logger().Warn("favorites: persist failed", "error", err)
		return fmt.Errorf("favorites: persist: %w", err)
	}
	return nil
}

// Add saves word with a fresh schedule due today. Adding a word whose
// Russian text is already saved changes nothing and reports false.
func (f *Favorites) Add(word Word) (bool, error) {
	if strings.TrimSpace(word.Russian) == "" {
		return false, errors.New("favorites: word has no russian text")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.indexLocked(word.Russian) >= 0 {
		return false, nil
	}
	f.items = append(f.items, FavoriteWord{Word: word, Schedule: NewSchedule(f.now())})
	f.sortLocked()
	return true, f.persistLocked()
}

// Remove deletes the favorite with the given Russian text.
func (f *Favorites) Remove(russian string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexLocked(russian)
	if i < 0 {
		return false, nil
	}
	f.items = slices.Delete(f.items, i, i+1)
	return true, f.persistLocked()
}

// Update applies a review rating to the favorite with the given Russian
// text. A missing word is a no-op and reports false.
func (f *Favorites) Update(russian string, rating Rating) (FavoriteWord, bool, error) {
	if !rating.IsValid() {
		return FavoriteWord{}, false, fmt.Errorf("favorites: invalid rating %q", rating)
	}

	f.mu.Lock()
	i := f.indexLocked(russian)
	if i < 0 {
		f.mu.Unlock()
		return FavoriteWord{}, false, nil
	}
	now := f.now()
	f.items[i].Schedule = Reschedule(f.items[i].Schedule, rating, now)
	updated := f.items[i]
	err := f.persistLocked()
	hook := f.onReview
	f.mu.Unlock()

	if hook != nil {
		hook(ReviewRecord{
			Russian:    updated.Russian,
			Rating:     rating,
			Interval:   updated.Interval,
			EaseFactor: updated.EaseFactor,
			ReviewedAt: now,
		})
	}
	return updated, true, err
}

// IsFavorite reports whether a word with the given Russian text is saved.
func (f *Favorites) IsFavorite(russian string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexLocked(russian) >= 0
}

// Get returns the favorite with the given Russian text.
func (f *Favorites) Get(russian string) (FavoriteWord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexLocked(russian); i >= 0 {
		return f.items[i], true
	}
	return FavoriteWord{}, false
}

// List returns all favorites in Russian collation order.
func (f *Favorites) List() []FavoriteWord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

// Len returns the number of favorites.
func (f *Favorites) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// ReviewQueue returns the favorites due today, earliest first.
func (f *Favorites) ReviewQueue() []FavoriteWord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ReviewQueue(f.items, f.now())
}

// Next returns the head of the review queue.
func (f *Favorites) Next() (FavoriteWord, bool) {
	queue := f.ReviewQueue()
	if len(queue) == 0 {
		return FavoriteWord{}, false
	}
	return queue[0], true
}

// DueCount returns the number of favorites due today.
func (f *Favorites) DueCount() int {
	return len(f.ReviewQueue())
}

// Replace swaps the whole list, as an import does. Duplicates keep
// their first occurrence.
func (f *Favorites) Replace(items []FavoriteWord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = f.dedupe(items)
	f.sortLocked()
	return f.persistLocked()
}

// Merge adds the words in items that are not saved yet, keeping their
// schedules, and returns how many were added.
func (f *Favorites) Merge(items []FavoriteWord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, item := range f.dedupe(items) {
		if f.indexLocked(item.Russian) >= 0 {
			continue
		}
		f.items = append(f.items, item)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	f.sortLocked()
	return added, f.persistLocked()
}
