package tutor_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	tutor "github.com/asofia888/russian-talk-tutor"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFavorites(t *testing.T, docs tutor.DocumentStore) (*tutor.Favorites, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: day0}
	return tutor.LoadFavorites(docs, tutor.WithFavoritesClock(clock.Now)), clock
}

func coffee() tutor.Word {
	return tutor.Word{Russian: "кофе", Pronunciation: "コーフェ", Translation: "コーヒー"}
}

func TestFavorites_AddIsIdempotent(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())

	added, err := favs.Add(coffee())
	if err != nil || !added {
		t.Fatalf("first Add() = %v, %v", added, err)
	}
	added, err = favs.Add(tutor.Word{Russian: "кофе", Translation: "別の訳"})
	if err != nil || added {
		t.Fatalf("duplicate Add() = %v, %v; want false", added, err)
	}
	if favs.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", favs.Len())
	}
	got, _ := favs.Get("кофе")
	if got.Translation != "コーヒー" {
		t.Errorf("duplicate add overwrote the word: %+v", got)
	}
}

func TestFavorites_AddRejectsEmpty(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())
	if _, err := favs.Add(tutor.Word{Russian: "  "}); err == nil {
		t.Error("Add with blank russian should fail")
	}
}

func TestFavorites_PersistAndReload(t *testing.T) {
	docs := tutor.NewMemoryDocuments()
	favs, _ := newFavorites(t, docs)
	_, _ = favs.Add(coffee())
	_, _ = favs.Add(tutor.Word{Russian: "вода", Translation: "水"})
	if _, _, err := favs.Update("кофе", tutor.RatingGood); err != nil {
		t.Fatal(err)
	}

	reloaded, _ := newFavorites(t, docs)
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded Len() = %d, want 2", reloaded.Len())
	}
	got, ok := reloaded.Get("кофе")
	if !ok || got.Repetition != 1 || got.Interval != 1 {
		t.Errorf("reloaded schedule = %+v", got.Schedule)
	}
}

func TestFavorites_CorruptDocumentStartsEmpty(t *testing.T) {
	docs := tutor.NewMemoryDocuments()
	_ = docs.Put(tutor.FavoritesNamespace, tutor.FavoritesKey, []byte("{not json"))

	favs, _ := newFavorites(t, docs)
	if favs.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for a corrupt document", favs.Len())
	}
}

func TestFavorites_ListUsesRussianCollation(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())
	for _, w := range []string{"яблоко", "ёж", "борщ", "ель", "аптека"} {
		if _, err := favs.Add(tutor.Word{Russian: w}); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"аптека", "борщ", "ёж", "ель", "яблоко"}
	list := favs.List()
	for i, fw := range list {
		if fw.Russian != want[i] {
			t.Fatalf("order = %v, want %v", russianOf(list), want)
		}
	}
}

func russianOf(list []tutor.FavoriteWord) []string {
	out := make([]string, len(list))
	for i, fw := range list {
		out[i] = fw.Russian
	}
	return out
}

func TestFavorites_RemoveAndIsFavorite(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())
	_, _ = favs.Add(coffee())

	if !favs.IsFavorite("кофе") {
		t.Fatal("IsFavorite should be true after Add")
	}
	removed, err := favs.Remove("кофе")
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v", removed, err)
	}
	if favs.IsFavorite("кофе") {
		t.Error("IsFavorite should be false after Remove")
	}
	removed, err = favs.Remove("кофе")
	if err != nil || removed {
		t.Errorf("second Remove() = %v, %v; want false", removed, err)
	}
}

func TestFavorites_UpdateMissingIsNoop(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())

	_, ok, err := favs.Update("нет", tutor.RatingGood)
	if err != nil || ok {
		t.Errorf("Update(missing) = %v, %v; want false, nil", ok, err)
	}
	if _, _, err := favs.Update("нет", tutor.Rating("meh")); err == nil {
		t.Error("Update with an invalid rating should fail")
	}
}

func TestFavorites_ReviewQueueFollowsClock(t *testing.T) {
	favs, clock := newFavorites(t, tutor.NewMemoryDocuments())
	_, _ = favs.Add(coffee())
	_, _ = favs.Add(tutor.Word{Russian: "вода"})

	if favs.DueCount() != 2 {
		t.Fatalf("DueCount() = %d, want 2 new words due", favs.DueCount())
	}
	if _, _, err := favs.Update("кофе", tutor.RatingGood); err != nil {
		t.Fatal(err)
	}
	next, ok := favs.Next()
	if !ok || next.Russian != "вода" {
		t.Fatalf("Next() = %v, %v; want вода", next.Russian, ok)
	}

	clock.Advance(24 * time.Hour)
	if favs.DueCount() != 2 {
		t.Errorf("next day DueCount() = %d, want 2", favs.DueCount())
	}
}

func TestFavorites_ReviewHook(t *testing.T) {
	var records []tutor.ReviewRecord
	favs := tutor.LoadFavorites(tutor.NewMemoryDocuments(),
		tutor.WithFavoritesClock(func() time.Time { return day0 }),
		tutor.WithReviewHook(func(r tutor.ReviewRecord) { records = append(records, r) }),
	)
	_, _ = favs.Add(coffee())
	_, _, _ = favs.Update("кофе", tutor.RatingEasy)

	if len(records) != 1 {
		t.Fatalf("hook called %d times, want 1", len(records))
	}
	r := records[0]
	if r.Russian != "кофе" || r.Rating != tutor.RatingEasy || r.Interval != 1 || r.EaseFactor != 2.65 {
		t.Errorf("record = %+v", r)
	}
	if !r.ReviewedAt.Equal(day0) {
		t.Errorf("ReviewedAt = %v, want %v", r.ReviewedAt, day0)
	}
}

type failingDocs struct{ tutor.DocumentStore }

func (failingDocs) Put(string, string, []byte) error { return errors.New("disk full") }

func TestFavorites_PersistFailureKeepsMemory(t *testing.T) {
	favs, _ := newFavorites(t, failingDocs{tutor.NewMemoryDocuments()})

	added, err := favs.Add(coffee())
	if err == nil {
		t.Fatal("Add should report the persist failure")
	}
	if !added || !favs.IsFavorite("кофе") {
		t.Error("the in-memory list should keep the word")
	}
}

func TestFavorites_ConcurrentMutations(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())
	_, _ = favs.Add(coffee())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = favs.Add(coffee())
		}()
		go func() {
			defer wg.Done()
			_, _, _ = favs.Update("кофе", tutor.RatingGood)
		}()
	}
	wg.Wait()

	if favs.Len() != 1 {
		t.Errorf("Len() = %d, want 1", favs.Len())
	}
	got, _ := favs.Get("кофе")
	if got.Repetition != 5 {
		t.Errorf("repetition = %d, want 5 applied ratings", got.Repetition)
	}
}

func TestFavorites_ReplaceAndMerge(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())
	_, _ = favs.Add(coffee())

	incoming := []tutor.FavoriteWord{
		{Word: tutor.Word{Russian: "кофе", Translation: "珈琲"}, Schedule: tutor.Schedule{Repetition: 3, Interval: 15, EaseFactor: 2.5}},
		{Word: tutor.Word{Russian: "чай", Translation: "お茶"}, Schedule: tutor.Schedule{Repetition: 1, Interval: 1, EaseFactor: 2.5}},
		{Word: tutor.Word{Russian: "чай", Translation: "重複"}},
	}

	added, err := favs.Merge(incoming)
	if err != nil || added != 1 {
		t.Fatalf("Merge() = %d, %v; want 1", added, err)
	}
	if got, _ := favs.Get("кофе"); got.Translation != "コーヒー" {
		t.Error("Merge must keep the saved word")
	}
	if got, _ := favs.Get("чай"); got.Interval != 1 || got.Translation != "お茶" {
		t.Errorf("merged word = %+v, want the first occurrence with its schedule", got)
	}

	if err := favs.Replace(incoming[:1]); err != nil {
		t.Fatal(err)
	}
	if favs.Len() != 1 {
		t.Fatalf("Len() after Replace = %d, want 1", favs.Len())
	}
	if got, _ := favs.Get("кофе"); got.Interval != 15 {
		t.Errorf("Replace should install the imported schedule, got %+v", got.Schedule)
	}
}

func TestFavorites_ImportFloorsEase(t *testing.T) {
	favs, _ := newFavorites(t, tutor.NewMemoryDocuments())

	incoming := []tutor.FavoriteWord{
		{Word: tutor.Word{Russian: "кофе", Translation: "コーヒー"}, Schedule: tutor.Schedule{Repetition: -2, Interval: 4, EaseFactor: 0.5}},
		{Word: tutor.Word{Russian: "чай", Translation: "お茶"}, Schedule: tutor.Schedule{Repetition: 1, Interval: 1}},
	}
	if err := favs.Replace(incoming); err != nil {
		t.Fatal(err)
	}

	got, _ := favs.Get("кофе")
	if got.EaseFactor != tutor.MinEaseFactor || got.Repetition != 0 {
		t.Errorf("imported schedule = %+v, want ease floored to %v and repetition 0", got.Schedule, tutor.MinEaseFactor)
	}
	if got, _ := favs.Get("чай"); got.EaseFactor != tutor.InitialEaseFactor {
		t.Errorf("missing ease = %v, want %v", got.EaseFactor, tutor.InitialEaseFactor)
	}
}
