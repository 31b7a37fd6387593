package tutor

import (
	"fmt"
	"strings"
	"sync"
)

// Session hands out short references (W1, W2, ...) for words shown during
// one session so later commands can name them without retyping Russian.
type Session struct {
	mu      sync.Mutex
	words   map[string]Word   // ref -> word
	reverse map[string]string // russian -> ref
	counter int
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		words:   make(map[string]Word),
		reverse: make(map[string]string),
	}
}

// Track registers word and returns its reference. A word already tracked
// keeps its reference.
func (s *Session) Track(word Word) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.reverse[word.Russian]; ok {
		s.words[ref] = word
		return ref
	}
	s.counter++
	ref := fmt.Sprintf("W%d", s.counter)
	s.words[ref] = word
	s.reverse[word.Russian] = ref
	return ref
}

// TrackLines registers every word of lines and returns the references in
// line order.
func (s *Session) TrackLines(lines []ConversationLine) []string {
	var refs []string
	for _, line := range lines {
		for _, w := range line.Words {
			refs = append(refs, s.Track(w))
		}
	}
	return refs
}

// Resolve returns the word for ref. References are case-insensitive.
func (s *Session) Resolve(ref string) (Word, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.words[strings.ToUpper(strings.TrimSpace(ref))]
	return w, ok
}

// Lookup accepts a reference or the Russian form itself.
func (s *Session) Lookup(refOrRussian string) (Word, bool) {
	if w, ok := s.Resolve(refOrRussian); ok {
		return w, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.reverse[strings.TrimSpace(refOrRussian)]; ok {
		return s.words[ref], true
	}
	return Word{}, false
}

// Count returns the number of tracked words.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.words)
}

// Clear forgets every reference.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = make(map[string]Word)
	s.reverse = make(map[string]string)
	s.counter = 0
}
