package tutor_test

import (
	"context"
	"errors"
	"testing"

	tutor "github.com/asofia888/russian-talk-tutor"
)

type fakeSpeaker struct {
	spoken    []string
	langs     []string
	err       error
	cancelled int
}

func (s *fakeSpeaker) Speak(_ context.Context, text, lang string) error {
	if s.err != nil {
		return s.err
	}
	s.spoken = append(s.spoken, text)
	s.langs = append(s.langs, lang)
	return nil
}

func (s *fakeSpeaker) Cancel() { s.cancelled++ }

// fakeListener replays one utterance per Start call.
type fakeListener struct {
	utterances [][]tutor.Recognition
	starts     int
	stops      int
}

func (l *fakeListener) Start(context.Context) (<-chan tutor.Recognition, error) {
	ch := make(chan tutor.Recognition, 8)
	if l.starts < len(l.utterances) {
		for _, r := range l.utterances[l.starts] {
			ch <- r
		}
	}
	l.starts++
	close(ch)
	return ch, nil
}

func (l *fakeListener) Stop() { l.stops++ }

func TestConductor_PlaysSession(t *testing.T) {
	script := cafeScript()
	rp := tutor.NewRoleplay(script, &fixedFeedback{fb: &tutor.Feedback{Score: 80, Text: "良い", IsCorrect: true}})
	if err := rp.SelectRole("B"); err != nil {
		t.Fatal(err)
	}
	speaker := &fakeSpeaker{}
	listener := &fakeListener{utterances: [][]tutor.Recognition{{
		{Transcript: "Кофе"},
		{Transcript: "Кофе, пожалуйста", Final: true},
	}}}
	c := tutor.NewConductor(rp, speaker, listener)
	defer c.Close()
	ctx := context.Background()

	turn, err := c.Step(ctx)
	if err != nil || turn.Kind != tutor.TurnPartner {
		t.Fatalf("first Step() = %+v, %v; want partner turn", turn.Kind, err)
	}
	if len(speaker.spoken) != 1 || speaker.spoken[0] != script[0].Russian || speaker.langs[0] != tutor.SpeechLang {
		t.Errorf("spoken = %v %v", speaker.spoken, speaker.langs)
	}

	turn, err = c.Step(ctx)
	if err != nil || turn.Kind != tutor.TurnLearner || turn.MessageID == "" {
		t.Fatalf("second Step() = %+v, %v; want learner turn with a message", turn, err)
	}
	last := turn.State.Messages[len(turn.State.Messages)-1]
	if last.Text != "Кофе, пожалуйста" || last.Feedback == nil {
		t.Errorf("learner message = %+v", last)
	}
	if listener.stops == 0 {
		t.Error("recognition was not stopped")
	}

	// The cursor stays on the learner's line until Proceed.
	turn, _ = c.Step(ctx)
	if turn.Kind != tutor.TurnLearner || turn.MessageID != "" {
		t.Errorf("Step() before Proceed = %+v, want a learner turn with no utterance", turn.Kind)
	}
	if err := c.Proceed(); err != nil {
		t.Fatal(err)
	}

	if turn, err = c.Step(ctx); err != nil || turn.Kind != tutor.TurnPartner {
		t.Fatalf("third line: %+v, %v", turn.Kind, err)
	}
	if turn, err = c.Step(ctx); err != nil || turn.Kind != tutor.TurnEnded {
		t.Fatalf("after the script: %+v, %v; want ended", turn.Kind, err)
	}
	if turn.State.Status != tutor.StatusEnded {
		t.Errorf("status = %s", turn.State.Status)
	}
}

func TestConductor_EmptyUtteranceSubmitsNothing(t *testing.T) {
	script := cafeScript()
	rp := tutor.NewRoleplay(script, &fixedFeedback{fb: &tutor.Feedback{Score: 80, Text: "ok"}})
	_ = rp.SelectRole("A")
	c := tutor.NewConductor(rp, &fakeSpeaker{}, &fakeListener{utterances: [][]tutor.Recognition{{{Transcript: "  ", Final: true}}}})
	defer c.Close()

	turn, err := c.Step(context.Background())
	if err != nil || turn.Kind != tutor.TurnLearner || turn.MessageID != "" {
		t.Fatalf("Step() = %+v, %v", turn, err)
	}
	if n := len(rp.Snapshot().Messages); n != 0 {
		t.Errorf("messages = %d, want 0", n)
	}
}

func TestConductor_InterimResultSubmittedWhenListeningStops(t *testing.T) {
	script := cafeScript()
	rp := tutor.NewRoleplay(script, &fixedFeedback{fb: &tutor.Feedback{Score: 80, Text: "ok"}})
	_ = rp.SelectRole("A")
	c := tutor.NewConductor(rp, nil, &fakeListener{utterances: [][]tutor.Recognition{{{Transcript: "Здравствуйте"}}}})
	defer c.Close()

	id, err := c.Listen(context.Background(), script[0])
	if err != nil || id == "" {
		t.Fatalf("Listen() = %q, %v", id, err)
	}
	rp.Wait()
	if got := rp.Snapshot().Messages[0].Text; got != "Здравствуйте" {
		t.Errorf("submitted %q", got)
	}
}

func TestConductor_RecognitionError(t *testing.T) {
	rp := tutor.NewRoleplay(cafeScript(), nil)
	_ = rp.SelectRole("A")
	micDenied := errors.New("not-allowed")
	c := tutor.NewConductor(rp, nil, &fakeListener{utterances: [][]tutor.Recognition{{{Err: micDenied}}}})
	defer c.Close()

	if _, err := c.Step(context.Background()); !errors.Is(err, micDenied) {
		t.Errorf("Step() error = %v, want the recognition error", err)
	}
}

func TestConductor_SpeechError(t *testing.T) {
	rp := tutor.NewRoleplay(cafeScript(), nil)
	_ = rp.SelectRole("B")
	synthFailed := errors.New("synthesis failed")
	c := tutor.NewConductor(rp, &fakeSpeaker{err: synthFailed}, nil)
	defer c.Close()

	if _, err := c.Step(context.Background()); !errors.Is(err, synthFailed) {
		t.Errorf("Step() error = %v", err)
	}
	if n := len(rp.Snapshot().Messages); n != 0 {
		t.Errorf("line recorded although speech failed: %d messages", n)
	}
}

func TestConductor_IdleAndClose(t *testing.T) {
	rp := tutor.NewRoleplay(cafeScript(), nil)
	speaker := &fakeSpeaker{}
	listener := &fakeListener{}
	c := tutor.NewConductor(rp, speaker, listener)

	if turn, err := c.Step(context.Background()); err != nil || turn.Kind != tutor.TurnIdle {
		t.Errorf("Step() before a role = %+v, %v; want idle", turn.Kind, err)
	}

	_ = rp.SelectRole("B")
	c.Close()
	c.Close()
	if speaker.cancelled != 2 || listener.stops != 2 {
		t.Errorf("cancelled=%d stops=%d, want 2 each", speaker.cancelled, listener.stops)
	}
	if _, err := c.Step(context.Background()); !errors.Is(err, tutor.ErrNotPlaying) {
		t.Errorf("Step() after Close = %v, want ErrNotPlaying", err)
	}
}
