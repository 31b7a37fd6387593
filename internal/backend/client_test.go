package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/asofia888/russian-talk-tutor/internal/backend"
)

func TestGenerateConversation(t *testing.T) {
	var gotTopic, gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != backend.PathGenerateConversation {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotTopic = body["topic"]
		_, _ = w.Write([]byte(`[{"speaker":"A","russian":"Привет!","pronunciation":"プリヴェート","japanese":"やあ","words":[{"russian":"Привет","pronunciation":"プリヴェート","japanese":"やあ"}]}]`))
	}))
	defer srv.Close()

	c := backend.NewHTTPClient(srv.URL+"/", "k-123")
	lines, err := c.GenerateConversation(context.Background(), "b-greetings")
	if err != nil {
		t.Fatalf("GenerateConversation() error = %v", err)
	}
	if gotTopic != "b-greetings" || gotAuth != "Bearer k-123" || gotContentType != "application/json" {
		t.Errorf("request topic=%q auth=%q content-type=%q", gotTopic, gotAuth, gotContentType)
	}
	if len(lines) != 1 || lines[0].Translation != "やあ" || len(lines[0].Words) != 1 {
		t.Errorf("lines = %+v", lines)
	}
}

func TestGenerateConversation_NoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Authorization = %q, want none", auth)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := backend.NewHTTPClient(srv.URL, "").GenerateConversation(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateConversation_StatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		retryAfter string
		wantMsg    string
		wantDelay  time.Duration
	}{
		{"service error json", 500, `{"error":"Failed to generate conversation","details":"quota"}`, "", "Failed to generate conversation: quota", 0},
		{"plain body", 502, "bad gateway", "", "bad gateway", 0},
		{"rate limited", 429, `{"error":"slow down"}`, "7", "slow down", 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := backend.NewHTTPClient(srv.URL, "").GenerateConversation(context.Background(), "b-family")
			var se *tutor.StatusError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StatusError", err)
			}
			if se.StatusCode != tt.status || se.Message != tt.wantMsg || se.RetryAfter != tt.wantDelay {
				t.Errorf("StatusError = %+v", se)
			}

			classified := tutor.Classify(err)
			if classified.StatusCode != tt.status {
				t.Errorf("classified status = %d", classified.StatusCode)
			}
		})
	}
}

func TestGenerateConversation_LongErrorBodyIsTrimmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	_, err := backend.NewHTTPClient(srv.URL, "").GenerateConversation(context.Background(), "x")
	var se *tutor.StatusError
	if !errors.As(err, &se) || len(se.Message) > 210 {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateConversation_LongErrorBodyKeepsRunesWhole(t *testing.T) {
	// One ASCII byte shifts the two-byte Cyrillic runes so byte 200 falls mid-rune.
	detail := "x" + strings.Repeat("ж", 150)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": detail})
	}))
	defer srv.Close()

	_, err := backend.NewHTTPClient(srv.URL, "").GenerateConversation(context.Background(), "x")
	var se *tutor.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if !utf8.ValidString(se.Message) {
		t.Errorf("message is not valid UTF-8: %q", se.Message)
	}
	if !strings.HasSuffix(se.Message, "...") || !strings.HasPrefix(se.Message, "xжж") {
		t.Errorf("message = %q, want a trimmed prefix", se.Message)
	}
}

func TestGenerateConversation_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, err := backend.NewHTTPClient(srv.URL, "").GenerateConversation(context.Background(), "x")
	var e *tutor.Error
	if !errors.As(err, &e) || e.Kind != tutor.KindValidation {
		t.Errorf("err = %v, want validation *Error", err)
	}
}

func TestPronunciationFeedback(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != backend.PathPronunciationFeedback {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"score":85,"feedback":"語尾をはっきり","is_correct":true}`))
	}))
	defer srv.Close()

	fb, err := backend.NewHTTPClient(srv.URL, "").PronunciationFeedback(context.Background(), "привет", "Привет!")
	if err != nil {
		t.Fatalf("PronunciationFeedback() error = %v", err)
	}
	if got["transcript"] != "привет" || got["correctPhrase"] != "Привет!" {
		t.Errorf("request body = %v", got)
	}
	if fb.Score != 85 || fb.Text != "語尾をはっきり" || !fb.IsCorrect {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestPronunciationFeedback_MissingFields(t *testing.T) {
	for _, body := range []string{`{"feedback":"ok"}`, `{"score":50}`, `[]`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := backend.NewHTTPClient(srv.URL, "").PronunciationFeedback(context.Background(), "a", "b")
		srv.Close()

		var e *tutor.Error
		if !errors.As(err, &e) || e.Kind != tutor.KindValidation {
			t.Errorf("body %s: err = %v, want validation *Error", body, err)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := backend.NewHTTPClient(srv.URL, "").GenerateConversation(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestPing(t *testing.T) {
	status := http.StatusNoContent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			t.Errorf("method = %s, want OPTIONS", r.Method)
		}
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := backend.NewHTTPClient(srv.URL, "")
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}

	status = http.StatusServiceUnavailable
	var se *tutor.StatusError
	if err := c.Ping(context.Background()); !errors.As(err, &se) || se.StatusCode != 503 {
		t.Errorf("Ping() = %v, want 503 StatusError", err)
	}
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if err := backend.NewHTTPClient(url, "").Ping(context.Background()); err == nil {
		t.Error("Ping() to a closed server succeeded")
	}
}

func TestDebugTracing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score":10,"feedback":"x","is_correct":false}`))
	}))
	defer srv.Close()

	var buf strings.Builder
	c := backend.NewHTTPClient(srv.URL, "").WithDebug(tutor.NewDebugLoggerTo(&buf))
	if _, err := c.PronunciationFeedback(context.Background(), "a", "b"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "--> POST "+srv.URL+backend.PathPronunciationFeedback) || !strings.Contains(buf.String(), "<-- 200") {
		t.Errorf("trace = %s", buf.String())
	}
}

func TestRequestIDs(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(backend.RequestIDHeader))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := backend.NewHTTPClient(srv.URL, "")
	for i := 0; i < 2; i++ {
		if _, err := c.GenerateConversation(context.Background(), "x"); err != nil {
			t.Fatal(err)
		}
	}
	if len(ids) != 2 || ids[0] == "" || ids[0] == ids[1] {
		t.Errorf("request IDs = %q, want two distinct IDs", ids)
	}
}
