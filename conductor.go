package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// SpeechLang is the language tag used for synthesized partner lines.
const SpeechLang = "ru-RU"

// SpeechOutput speaks text. Speak returns once speech has finished.
type SpeechOutput interface {
	Speak(ctx context.Context, text, lang string) error
	Cancel()
}

// Recognition is one result from a SpeechInput. Final marks the end of
// an utterance; Err reports a recognition failure.
type Recognition struct {
	Transcript string
	Final      bool
	Err        error
}

// SpeechInput recognizes the learner's speech. Start begins listening
// and returns a channel of results that is closed when listening stops.
type SpeechInput interface {
	Start(ctx context.Context) (<-chan Recognition, error)
	Stop()
}

// TurnKind describes what a Step did.
type TurnKind string

const (
	TurnPartner TurnKind = "partner"
	TurnLearner TurnKind = "learner"
	TurnEnded   TurnKind = "ended"
	TurnIdle    TurnKind = "idle"
)

// Turn is the outcome of one Step.
type Turn struct {
	Kind      TurnKind
	Line      ConversationLine
	MessageID string
	State     RoleplayState
}

// Conductor drives a Roleplay with speech: partner lines are spoken
// before they are recorded and learner utterances are submitted once.
type Conductor struct {
	rp  *Roleplay
	out SpeechOutput
	in  SpeechInput

	mu       sync.Mutex
	speaking bool
	closed   bool
}

// NewConductor wires speech to rp.
func NewConductor(rp *Roleplay, out SpeechOutput, in SpeechInput) *Conductor {
	return &Conductor{rp: rp, out: out, in: in}
}

// Roleplay returns the driven session.
func (c *Conductor) Roleplay() *Roleplay { return c.rp }

// Step performs the next turn. On the partner's line it speaks the line
// and records it once speech completes. On the learner's line it listens,
// submits the transcript and waits for feedback; the cursor stays put
// until Proceed is called. Past the last line the session ends.
func (c *Conductor) Step(ctx context.Context) (Turn, error) {
	state := c.rp.Evaluate()
	if state.Status != StatusPlaying {
		if state.Status == StatusEnded {
			return Turn{Kind: TurnEnded, State: state}, nil
		}
		return Turn{Kind: TurnIdle, State: state}, nil
	}

	line, ok := c.rp.CurrentLine()
	if !ok {
		c.rp.EndRoleplay()
		return Turn{Kind: TurnEnded, State: c.rp.Snapshot()}, nil
	}

	if line.Speaker != state.UserRole {
		if err := c.speakPartner(ctx, line); err != nil {
			return Turn{Kind: TurnPartner, Line: line, State: c.rp.Snapshot()}, err
		}
		return Turn{Kind: TurnPartner, Line: line, State: c.rp.Snapshot()}, nil
	}

	id, err := c.Listen(ctx, line)
	if err != nil {
		return Turn{Kind: TurnLearner, Line: line, State: c.rp.Snapshot()}, err
	}
	c.rp.Wait()
	return Turn{Kind: TurnLearner, Line: line, MessageID: id, State: c.rp.Snapshot()}, nil
}

func (c *Conductor) speakPartner(ctx context.Context, line ConversationLine) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotPlaying
	}
	if c.speaking {
		c.mu.Unlock()
		return nil
	}
	c.speaking = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.speaking = false
		c.mu.Unlock()
	}()

	if c.out != nil {
		if err := c.out.Speak(ctx, line.Russian, SpeechLang); err != nil {
			return fmt.Errorf("speak partner line: %w", err)
		}
	}
	return c.rp.AddAIMessage(line)
}

// Listen records one learner utterance for line and submits it. Interim
// results are accumulated; the buffer is submitted on the first final
// result or when listening stops, and then cleared. An empty utterance
// submits nothing and returns an empty ID.
func (c *Conductor) Listen(ctx context.Context, line ConversationLine) (string, error) {
	if c.in == nil {
		return "", errors.New("listen: no speech input configured")
	}
	results, err := c.in.Start(ctx)
	if err != nil {
		return "", fmt.Errorf("listen: start recognition: %w", err)
	}
	defer c.in.Stop()

	var buf strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r, ok := <-results:
			if !ok {
				return c.submit(&buf, line)
			}
			if r.Err != nil {
				return "", fmt.Errorf("listen: recognition: %w", r.Err)
			}
			if r.Final {
				buf.Reset()
				buf.WriteString(r.Transcript)
				return c.submit(&buf, line)
			}
			buf.Reset()
			buf.WriteString(r.Transcript)
		}
	}
}

func (c *Conductor) submit(buf *strings.Builder, line ConversationLine) (string, error) {
	transcript := strings.TrimSpace(buf.String())
	buf.Reset()
	return c.rp.AddUserMessage(transcript, line)
}

// Proceed moves past the learner's line after feedback has been read.
func (c *Conductor) Proceed() error {
	return c.rp.ProceedToNextLine()
}

// Close cancels speech, stops recognition and discards outstanding
// feedback. It is safe to call more than once.
func (c *Conductor) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if c.out != nil {
		c.out.Cancel()
	}
	if c.in != nil {
		c.in.Stop()
	}
	c.rp.Close()
}
