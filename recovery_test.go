package tutor_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	tutor "github.com/asofia888/russian-talk-tutor"
)

func TestErrorRecovery_RecoversRetryableError(t *testing.T) {
	r := tutor.NewErrorRecovery(2)
	recovered := false
	r.OnRecovered = func() { recovered = true }

	r.SetError(tutor.ClassifyStatus(503, "busy"))
	if !r.CanRetry() {
		t.Fatal("CanRetry() = false for a retryable error")
	}
	if err := r.Recover(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if !recovered || r.Err() != nil || r.Attempts() != 0 {
		t.Errorf("after recovery: recovered=%v err=%v attempts=%d", recovered, r.Err(), r.Attempts())
	}
}

func TestErrorRecovery_Budget(t *testing.T) {
	r := tutor.NewErrorRecovery(2)
	var failed *tutor.Error
	r.OnFailed = func(e *tutor.Error) { failed = e }

	r.SetError(tutor.ClassifyStatus(500, ""))
	fail := func(context.Context) error { return tutor.ClassifyStatus(502, "bad gateway") }

	for i := 0; i < 2; i++ {
		if err := r.Recover(context.Background(), fail); err == nil {
			t.Fatalf("attempt %d: Recover() = nil, want error", i+1)
		}
	}
	if r.CanRetry() {
		t.Error("CanRetry() = true after the budget is spent")
	}
	if failed == nil || failed.StatusCode != 502 {
		t.Errorf("OnFailed got %+v", failed)
	}
	if err := r.Recover(context.Background(), fail); !errors.Is(err, tutor.ErrRecoveryExhausted) {
		t.Errorf("Recover() = %v, want ErrRecoveryExhausted", err)
	}
}

func TestErrorRecovery_NonRetryable(t *testing.T) {
	r := tutor.NewErrorRecovery(0)
	r.SetError(tutor.ClassifyStatus(401, "bad key"))
	if r.CanRetry() {
		t.Error("CanRetry() = true for an auth error")
	}

	called := false
	if err := r.AutoRecover(context.Background(), func(context.Context) error {
		called = true
		return nil
	}); err != nil || called {
		t.Errorf("AutoRecover() ran fn for a non-retryable error (err=%v)", err)
	}
	if r.Err() == nil {
		t.Error("error should remain current")
	}
}

func TestErrorRecovery_NoError(t *testing.T) {
	r := tutor.NewErrorRecovery(1)
	if r.CanRetry() {
		t.Error("CanRetry() = true without an error")
	}
	if err := r.Recover(context.Background(), func(context.Context) error { return errors.New("x") }); err != nil {
		t.Errorf("Recover() without an error = %v", err)
	}
}

func TestBoundary_RecoversPanic(t *testing.T) {
	b := tutor.NewBoundary(0, nil)
	err := b.Run(func() error { panic("boom") })

	var e *tutor.Error
	if !errors.As(err, &e) || e.Kind != tutor.KindUnknown {
		t.Fatalf("Run() = %v, want unknown *Error", err)
	}
	if e.UserMessage == "" {
		t.Error("panic error has no user message")
	}
	if b.Failures() != 1 || b.LastError() == nil {
		t.Errorf("Failures() = %d LastError() = %v", b.Failures(), b.LastError())
	}
}

func TestBoundary_Actions(t *testing.T) {
	b := tutor.NewBoundary(0, nil)
	if got := b.Actions(); got != nil {
		t.Errorf("Actions() before a failure = %v", got)
	}

	boom := errors.New("boom")
	if err := b.Run(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want the raw error", err)
	}
	want := []tutor.RecoveryAction{tutor.ActionRetry, tutor.ActionReload}
	if got := b.Actions(); !slices.Equal(got, want) {
		t.Errorf("Actions() after one failure = %v, want %v", got, want)
	}

	_ = b.Run(func() error { return boom })
	want = append(want, tutor.ActionResetAll)
	if got := b.Actions(); !slices.Equal(got, want) {
		t.Errorf("Actions() after two failures = %v, want %v", got, want)
	}

	_ = b.Run(func() error { return nil })
	if b.Failures() != 0 || b.Actions() != nil {
		t.Error("a clean run should reset the boundary")
	}

	_ = b.Run(func() error { return boom })
	b.Reset()
	if b.Failures() != 0 || b.LastError() != nil {
		t.Error("Reset() should clear the history")
	}
}
