// Package backend implements the HTTP transport to the conversation and
// pronunciation feedback service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request ID the service echoes in its logs.
const RequestIDHeader = "X-Request-ID"

// Endpoint paths.
const (
	PathGenerateConversation  = "/api/generate-conversation"
	PathPronunciationFeedback = "/api/pronunciation-feedback"
)

// maxErrorBody bounds how much of an error body is kept in messages.
const maxErrorBody = 200

// HTTPClient implements tutor.Backend using net/http.
// It is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	debug      *tutor.DebugLogger
}

var _ tutor.Backend = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the service at baseURL. apiKey is
// optional and sent as a bearer token when set.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// Per-call deadlines come from the caller's context; this is a backstop.
			Timeout: 2 * time.Minute,
		},
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom transports).
func (c *HTTPClient) WithHTTPClient(client *http.Client) *HTTPClient {
	c.httpClient = client
	return c
}

// WithDebug enables wire tracing.
func (c *HTTPClient) WithDebug(l *tutor.DebugLogger) *HTTPClient {
	c.debug = l
	return c
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "russian-talk-tutor/1.0")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// newStatusError builds the error for a non-200 response, preferring the
// service's {"error": ...} message over the raw body.
func newStatusError(op string, resp *http.Response, body []byte) *tutor.StatusError {
	msg := ""
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		msg = eb.Error
		if eb.Details != "" {
			msg += ": " + eb.Details
		}
	} else if len(body) > 0 {
		msg = string(body)
	}
	if len(msg) > maxErrorBody {
		msg = tutor.TruncateUTF8(msg, maxErrorBody) + "..."
	}
	return &tutor.StatusError{
		Operation:  op,
		StatusCode: resp.StatusCode,
		Message:    msg,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// post sends body as JSON to path and returns the 200 response body.
func (c *HTTPClient) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	c.debug.LogRequest(http.MethodPost, url+" id="+reqID, body)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.debug.LogError(op, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	c.debug.LogResponse(resp.StatusCode, time.Since(start), respBody)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(op, resp, respBody)
	}
	return respBody, nil
}

// GenerateConversation implements tutor.Backend.
func (c *HTTPClient) GenerateConversation(ctx context.Context, topic string) ([]tutor.ConversationLine, error) {
	body, err := c.post(ctx, "generate_conversation", PathGenerateConversation, map[string]string{"topic": topic})
	if err != nil {
		return nil, err
	}

	var lines []tutor.ConversationLine
	if err := json.Unmarshal(body, &lines); err != nil {
		return nil, tutor.NewError(tutor.KindValidation, fmt.Sprintf("conversation response is not an array of lines: %v", err), false)
	}
	return lines, nil
}

type feedbackWire struct {
	Score     *float64 `json:"score"`
	Feedback  *string  `json:"feedback"`
	IsCorrect bool     `json:"is_correct"`
}

// PronunciationFeedback implements tutor.Backend.
func (c *HTTPClient) PronunciationFeedback(ctx context.Context, transcript, correctPhrase string) (*tutor.Feedback, error) {
	body, err := c.post(ctx, "pronunciation_feedback", PathPronunciationFeedback, map[string]string{
		"transcript":    transcript,
		"correctPhrase": correctPhrase,
	})
	if err != nil {
		return nil, err
	}

	var wire feedbackWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, tutor.NewError(tutor.KindValidation, fmt.Sprintf("feedback response is not an object: %v", err), false)
	}
	if wire.Score == nil || wire.Feedback == nil {
		return nil, tutor.NewError(tutor.KindValidation, "feedback response is missing score or feedback", false)
	}
	return &tutor.Feedback{Score: *wire.Score, Text: *wire.Feedback, IsCorrect: wire.IsCorrect}, nil
}

// Ping checks that the service answers. It sends the CORS preflight
// request the service handlers accept without doing any work.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, c.baseURL+PathGenerateConversation, nil)
	if err != nil {
		return fmt.Errorf("ping: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return &tutor.StatusError{Operation: "ping", StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return nil
}
