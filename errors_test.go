package tutor_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	tutor "github.com/asofia888/russian-talk-tutor"
)

func TestSentinelErrors_ErrorsIs(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"ErrStoreClosed", tutor.ErrStoreClosed},
		{"ErrCircuitOpen", tutor.ErrCircuitOpen},
		{"ErrNoBackend", tutor.ErrNoBackend},
		{"ErrUnknownTopic", tutor.ErrUnknownTopic},
		{"ErrNotFavorite", tutor.ErrNotFavorite},
		{"ErrNotPlaying", tutor.ErrNotPlaying},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("operation failed: %w", tt.sentinel)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.sentinel)
			}
		})
	}
}

func TestValidationError_ErrorFormat(t *testing.T) {
	err := &tutor.ValidationError{Field: "LocalPath", Message: "required"}
	want := "config: LocalPath: required"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		kind      tutor.ErrorKind
		retryable bool
	}{
		{400, tutor.KindValidation, false},
		{401, tutor.KindAuth, false},
		{403, tutor.KindAuth, false},
		{404, tutor.KindAPI, false},
		{429, tutor.KindRateLimit, true},
		{500, tutor.KindAPI, true},
		{502, tutor.KindAPI, true},
		{503, tutor.KindAPI, true},
		{504, tutor.KindAPI, true},
		{507, tutor.KindAPI, true},
		{418, tutor.KindAPI, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			e := tutor.ClassifyStatus(tt.status, "")
			if e.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", e.Kind, tt.kind)
			}
			if e.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", e.Retryable, tt.retryable)
			}
			if e.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", e.StatusCode, tt.status)
			}
			if e.UserMessage == "" {
				t.Error("UserMessage is empty")
			}
			if e.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if got := tutor.Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestClassify_AlreadyClassifiedIsUnchanged(t *testing.T) {
	orig := tutor.NewError(tutor.KindRateLimit, "slow down", true)
	wrapped := fmt.Errorf("outer: %w", orig)
	if got := tutor.Classify(wrapped); got != orig {
		t.Errorf("Classify returned %p, want the original %p", got, orig)
	}
}

func TestClassify_StatusErrorCarriesRetryAfter(t *testing.T) {
	err := &tutor.StatusError{Operation: "generate", StatusCode: 429, Message: "busy", RetryAfter: 3 * time.Second}

	e := tutor.Classify(err)
	if e.Kind != tutor.KindRateLimit || !e.Retryable {
		t.Fatalf("got %+v, want retryable rate_limit", e)
	}
	if e.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v, want 3s", e.RetryAfter)
	}
	if e.Message != "busy" {
		t.Errorf("Message = %q, want the server message", e.Message)
	}
	var se *tutor.StatusError
	if !errors.As(e, &se) {
		t.Error("classified error should unwrap to the StatusError")
	}
}

func TestClassify_Messages(t *testing.T) {
	tests := []struct {
		msg       string
		kind      tutor.ErrorKind
		retryable bool
	}{
		{"failed to fetch", tutor.KindNetwork, true},
		{"Network request failed", tutor.KindNetwork, true},
		{"connection reset", tutor.KindNetwork, true},
		{"rate limit exceeded", tutor.KindRateLimit, true},
		{"got 429 from upstream", tutor.KindRateLimit, true},
		{"invalid api key", tutor.KindAuth, false},
		{"401 Unauthorized", tutor.KindAuth, false},
		{"something odd", tutor.KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			e := tutor.Classify(errors.New(tt.msg))
			if e.Kind != tt.kind || e.Retryable != tt.retryable {
				t.Errorf("Classify(%q) = %s/%v, want %s/%v", tt.msg, e.Kind, e.Retryable, tt.kind, tt.retryable)
			}
		})
	}
}

func TestClassify_ContextErrors(t *testing.T) {
	e := tutor.Classify(fmt.Errorf("call: %w", context.DeadlineExceeded))
	if e.Kind != tutor.KindNetwork || !e.Retryable {
		t.Errorf("deadline: got %s/%v, want retryable network", e.Kind, e.Retryable)
	}

	e = tutor.Classify(context.Canceled)
	if e.Retryable {
		t.Error("cancellation should not be retryable")
	}
	if !errors.Is(e, context.Canceled) {
		t.Error("classified cancellation should unwrap to context.Canceled")
	}
}

func TestClassify_NetError(t *testing.T) {
	err := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	e := tutor.Classify(err)
	if e.Kind != tutor.KindNetwork || !e.Retryable {
		t.Errorf("got %s/%v, want retryable network", e.Kind, e.Retryable)
	}
}

func TestClassifier_OfflineMakesEverythingNetwork(t *testing.T) {
	c := tutor.Classifier{Connectivity: tutor.NewConnectivity(false)}

	e := c.Classify(&tutor.StatusError{StatusCode: 400, Message: "bad"})
	if e.Kind != tutor.KindNetwork || !e.Retryable {
		t.Errorf("offline: got %s/%v, want retryable network", e.Kind, e.Retryable)
	}
}

func TestNewError_DefaultUserMessage(t *testing.T) {
	for _, kind := range []tutor.ErrorKind{
		tutor.KindNetwork, tutor.KindAPI, tutor.KindValidation,
		tutor.KindAuth, tutor.KindRateLimit, tutor.KindUnknown,
	} {
		e := tutor.NewError(kind, "x", false)
		if e.UserMessage == "" {
			t.Errorf("%s: empty user message", kind)
		}
	}
}

func TestError_Format(t *testing.T) {
	e := tutor.ClassifyStatus(503, "down")
	want := "api error (status 503): down"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLogError_ToleratesNil(t *testing.T) {
	tutor.LogError(nil, nil, "ctx")
	tutor.LogError(nil, errors.New("boom"), "ctx")
}
