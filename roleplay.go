package tutor

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// RoleplayStatus is the phase of a roleplay session.
type RoleplayStatus string

const (
	StatusSelectingRole RoleplayStatus = "selecting_role"
	StatusPlaying       RoleplayStatus = "playing"
	StatusEnded         RoleplayStatus = "ended"
)

// Message is one entry of the roleplay transcript. AI messages carry the
// spoken line; user messages carry the recognized transcript, the
// reference phrase and, once resolved, feedback or an error.
type Message struct {
	ID            string `json:"id"`
	Speaker       string `json:"speaker"`
	Text          string `json:"text"`
	IsUser        bool   `json:"isUser"`
	Pronunciation string `json:"pronunciation,omitempty"`

	CorrectPhrase        string    `json:"correctPhrase,omitempty"`
	CorrectPronunciation string    `json:"correctPronunciation,omitempty"`
	Feedback             *Feedback `json:"feedback,omitempty"`
	FeedbackLoading      bool      `json:"isFeedbackLoading,omitempty"`
	FeedbackError        string    `json:"feedbackError,omitempty"`
}

// Resolved reports whether a user message has feedback or an error attached.
func (m Message) Resolved() bool {
	return m.Feedback != nil || m.FeedbackError != ""
}

// RoleplayState is the value the turn engine transitions.
type RoleplayState struct {
	Status      RoleplayStatus `json:"status"`
	UserRole    string         `json:"userRole,omitempty"`
	Messages    []Message      `json:"messages"`
	CurrentLine int            `json:"currentLineIndex"`
}

// NewRoleplayState returns the initial state: waiting for a role.
func NewRoleplayState() RoleplayState {
	return RoleplayState{Status: StatusSelectingRole}
}

func (s RoleplayState) clone() RoleplayState {
	s.Messages = slices.Clone(s.Messages)
	return s
}

func (s RoleplayState) messageIndex(id string) int {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Event is a roleplay transition. The set of events is closed.
type Event interface {
	apply(RoleplayState) RoleplayState
}

// SelectRole starts the session with the learner speaking Role.
type SelectRole struct{ Role string }

// AddAIMessage records the partner's line after it has been spoken.
type AddAIMessage struct {
	ID   string
	Line ConversationLine
}

// AddUserMessagePending records a user utterance awaiting feedback.
type AddUserMessagePending struct {
	ID         string
	Transcript string
	Line       ConversationLine
}

// AttachFeedback resolves a pending user message with feedback.
type AttachFeedback struct {
	MessageID string
	Feedback  Feedback
}

// AttachFeedbackError resolves a pending user message with an error.
type AttachFeedbackError struct {
	MessageID string
	Error     string
}

// ProceedToNextLine moves past the learner's line.
type ProceedToNextLine struct{}

// EndRoleplay finishes the session.
type EndRoleplay struct{}

// Reduce applies e to s and returns the new state. s is not modified.
// Events that are invalid in the current state return s unchanged.
func Reduce(s RoleplayState, e Event) RoleplayState {
	if e == nil {
		return s
	}
	return e.apply(s.clone())
}

func (e SelectRole) apply(s RoleplayState) RoleplayState {
	if s.Status != StatusSelectingRole || e.Role == "" {
		return s
	}
	return RoleplayState{Status: StatusPlaying, UserRole: e.Role}
}

func (e AddAIMessage) apply(s RoleplayState) RoleplayState {
	if s.Status != StatusPlaying || e.Line.Speaker == s.UserRole {
		return s
	}
	s.Messages = append(s.Messages, Message{
		ID:            e.ID,
		Speaker:       e.Line.Speaker,
		Text:          e.Line.Russian,
		Pronunciation: e.Line.Pronunciation,
	})
	s.CurrentLine++
	return s
}

func (e AddUserMessagePending) apply(s RoleplayState) RoleplayState {
	if s.Status != StatusPlaying || strings.TrimSpace(e.Transcript) == "" {
		return s
	}
	s.Messages = append(s.Messages, Message{
		ID:                   e.ID,
		Speaker:              s.UserRole,
		Text:                 e.Transcript,
		IsUser:               true,
		CorrectPhrase:        e.Line.Russian,
		CorrectPronunciation: e.Line.Pronunciation,
		FeedbackLoading:      true,
	})
	return s
}

func (e AttachFeedback) apply(s RoleplayState) RoleplayState {
	i := s.messageIndex(e.MessageID)
	if i < 0 || !s.Messages[i].IsUser || s.Messages[i].Resolved() {
		return s
	}
	fb := e.Feedback
	s.Messages[i].Feedback = &fb
	s.Messages[i].FeedbackLoading = false
	return s
}

func (e AttachFeedbackError) apply(s RoleplayState) RoleplayState {
	i := s.messageIndex(e.MessageID)
	if i < 0 || !s.Messages[i].IsUser || s.Messages[i].Resolved() {
		return s
	}
	msg := e.Error
	if msg == "" {
		msg = msgUnexpected
	}
	s.Messages[i].FeedbackError = msg
	s.Messages[i].FeedbackLoading = false
	return s
}

func (ProceedToNextLine) apply(s RoleplayState) RoleplayState {
	if s.Status != StatusPlaying {
		return s
	}
	s.CurrentLine++
	return s
}

func (EndRoleplay) apply(s RoleplayState) RoleplayState {
	s.Status = StatusEnded
	return s
}

// FeedbackProvider scores a user utterance. *RemoteClient implements it.
type FeedbackProvider interface {
	PronunciationFeedback(ctx context.Context, transcript, correctPhrase string) (*Feedback, error)
}

// Roleplay owns one session's state and script. Each method builds one
// event and applies it; feedback is fetched in the background and
// attached only while its message is still pending.
type Roleplay struct {
	mu        sync.Mutex
	state     RoleplayState
	script    []ConversationLine
	feedback  FeedbackProvider
	listeners []func(RoleplayState)
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	newID  func() string
}

// NewRoleplay creates a session over script. feedback may be nil, in
// which case user messages resolve with an error.
func NewRoleplay(script []ConversationLine, feedback FeedbackProvider) *Roleplay {
	ctx, cancel := context.WithCancel(context.Background())
	return &Roleplay{
		state:    NewRoleplayState(),
		script:   slices.Clone(script),
		feedback: feedback,
		ctx:      ctx,
		cancel:   cancel,
		newID:    func() string { return ulid.Make().String() },
	}
}

// OnChange registers fn to receive the state after every applied event.
// fn runs outside the session lock.
func (r *Roleplay) OnChange(fn func(RoleplayState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// dispatch applies e and notifies listeners if the state changed.
func (r *Roleplay) dispatch(e Event) RoleplayState {
	r.mu.Lock()
	notify := r.reduceLocked(e)
	r.mu.Unlock()
	return notify()
}

// reduceLocked applies e and returns a func that delivers the change to
// listeners. Call it after releasing r.mu.
func (r *Roleplay) reduceLocked(e Event) func() RoleplayState {
	before := r.state
	r.state = Reduce(r.state, e)
	after := r.state.clone()
	if sameState(before, r.state) {
		return func() RoleplayState { return after }
	}
	listeners := slices.Clone(r.listeners)
	return func() RoleplayState {
		for _, fn := range listeners {
			fn(after)
		}
		return after
	}
}

func sameState(a, b RoleplayState) bool {
	if a.Status != b.Status || a.UserRole != b.UserRole || a.CurrentLine != b.CurrentLine || len(a.Messages) != len(b.Messages) {
		return false
	}
	for i := range a.Messages {
		x, y := a.Messages[i], b.Messages[i]
		if x.ID != y.ID || x.FeedbackLoading != y.FeedbackLoading || x.Feedback != y.Feedback || x.FeedbackError != y.FeedbackError {
			return false
		}
	}
	return true
}

// Script returns the conversation being played.
func (r *Roleplay) Script() []ConversationLine {
	return slices.Clone(r.script)
}

// Speakers returns the distinct speaker labels in order of appearance.
func (r *Roleplay) Speakers() []string {
	var out []string
	for _, line := range r.script {
		if !slices.Contains(out, line.Speaker) {
			out = append(out, line.Speaker)
		}
	}
	return out
}

// Snapshot returns a copy of the current state.
func (r *Roleplay) Snapshot() RoleplayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// CurrentLine returns the script line at the cursor.
func (r *Roleplay) CurrentLine() (ConversationLine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lineAtLocked(r.state.CurrentLine)
}

func (r *Roleplay) lineAtLocked(i int) (ConversationLine, bool) {
	if i < 0 || i >= len(r.script) {
		return ConversationLine{}, false
	}
	return r.script[i], true
}

// IsUserTurn reports whether the line at the cursor is the learner's.
func (r *Roleplay) IsUserTurn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	line, ok := r.lineAtLocked(r.state.CurrentLine)
	return ok && r.state.Status == StatusPlaying && line.Speaker == r.state.UserRole
}

// SelectRole starts the session with the learner speaking role.
func (r *Roleplay) SelectRole(role string) error {
	if !slices.Contains(r.Speakers(), role) {
		return &ValidationError{Field: "role", Message: "not a speaker in this conversation: " + role}
	}
	r.dispatch(SelectRole{Role: role})
	return nil
}

// AddAIMessage appends the partner's line and advances the cursor. It is
// rejected when the line at the cursor is the learner's.
func (r *Roleplay) AddAIMessage(line ConversationLine) error {
	r.mu.Lock()
	status := r.state.Status
	current, ok := r.lineAtLocked(r.state.CurrentLine)
	role := r.state.UserRole
	r.mu.Unlock()

	switch {
	case status != StatusPlaying:
		return ErrNotPlaying
	case !ok:
		return ErrNoLine
	case current.Speaker == role || line.Speaker == role:
		return ErrWrongTurn
	}
	r.dispatch(AddAIMessage{ID: r.newID(), Line: line})
	return nil
}

// AddUserMessage appends the learner's utterance as a pending message
// and requests feedback in the background. An empty transcript, or no
// line at the cursor, is ignored and returns an empty ID. The cursor does
// not move; call ProceedToNextLine after the learner has read feedback.
func (r *Roleplay) AddUserMessage(transcript string, line ConversationLine) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", nil
	}

	id := r.newID()

	r.mu.Lock()
	if _, ok := r.lineAtLocked(r.state.CurrentLine); !ok {
		r.mu.Unlock()
		return "", nil
	}
	if r.state.Status != StatusPlaying || r.closed {
		r.mu.Unlock()
		return "", ErrNotPlaying
	}
	notify := r.reduceLocked(AddUserMessagePending{ID: id, Transcript: transcript, Line: line})
	r.wg.Add(1)
	r.mu.Unlock()

	notify()
	go r.fetchFeedback(id, transcript, line.Russian)
	return id, nil
}

func (r *Roleplay) fetchFeedback(id, transcript, correctPhrase string) {
	defer r.wg.Done()

	if r.feedback == nil {
		r.resolve(AttachFeedbackError{MessageID: id, Error: ErrNoBackend.Error()})
		return
	}
	fb, err := r.feedback.PronunciationFeedback(r.ctx, transcript, correctPhrase)
	if err != nil {
		r.resolve(AttachFeedbackError{MessageID: id, Error: Classify(err).Message})
		return
	}
	r.resolve(AttachFeedback{MessageID: id, Feedback: *fb})
}

// resolve applies a feedback outcome unless the session was closed.
func (r *Roleplay) resolve(e Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	notify := r.reduceLocked(e)
	r.mu.Unlock()
	notify()
}

// ProceedToNextLine advances the cursor past the learner's line.
func (r *Roleplay) ProceedToNextLine() error {
	if r.Snapshot().Status != StatusPlaying {
		return ErrNotPlaying
	}
	r.dispatch(ProceedToNextLine{})
	return nil
}

// EndRoleplay finishes the session.
func (r *Roleplay) EndRoleplay() {
	r.dispatch(EndRoleplay{})
}

// Evaluate ends the session once the cursor has passed the last line and
// returns the resulting state.
func (r *Roleplay) Evaluate() RoleplayState {
	r.mu.Lock()
	past := r.state.Status == StatusPlaying && r.state.CurrentLine >= len(r.script)
	r.mu.Unlock()

	if past {
		return r.dispatch(EndRoleplay{})
	}
	return r.Snapshot()
}

// Wait blocks until every outstanding feedback request has finished.
func (r *Roleplay) Wait() {
	r.wg.Wait()
}

// Close cancels outstanding feedback requests. Results that arrive later
// are discarded. Close is idempotent.
func (r *Roleplay) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}
