package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Common errors returned by the tutor client.
var (
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrCircuitOpen is wrapped by the error a circuit breaker returns
	// while it rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrNoBackend is returned when a remote operation is requested but no
	// backend is configured.
	ErrNoBackend = errors.New("no backend configured")

	// ErrUnknownTopic is returned when a topic ID is not in the catalog.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrNotFavorite is returned when a word is not in the favorites list.
	ErrNotFavorite = errors.New("word is not a favorite")

	// ErrNotPlaying is returned when a roleplay turn is attempted outside the playing status.
	ErrNotPlaying = errors.New("roleplay is not playing")

	// ErrWrongTurn is returned when a turn is submitted by the wrong side.
	ErrWrongTurn = errors.New("not this speaker's turn")

	// ErrNoLine is returned when the roleplay cursor is past the script.
	ErrNoLine = errors.New("no script line at cursor")
)

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// StatusError is a transport failure that carries an HTTP status.
// Backends return it so that classification can use the status table.
type StatusError struct {
	Operation  string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
}

// ErrorKind is the closed set of error categories.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindAPI        ErrorKind = "api"
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindRateLimit  ErrorKind = "rate_limit"
	KindUnknown    ErrorKind = "unknown"
)

// User-facing messages. The application is displayed in Japanese.
const (
	msgNetwork        = "インターネット接続を確認してください。"
	msgTimeout        = "リクエストがタイムアウトしました"
	msgBadRequest     = "リクエストが無効です。入力内容を確認してください。"
	msgUnauthorized   = "認証エラーが発生しました。"
	msgAuthReload     = "認証エラーが発生しました。アプリを再読み込みしてください。"
	msgForbidden      = "アクセス権限がありません。"
	msgNotFound       = "リソースが見つかりませんでした。"
	msgRateLimited    = "利用上限に達しました。しばらく待ってから再度お試しください。"
	msgServer         = "サーバーエラーが発生しました。しばらく待ってから再度お試しください。"
	msgUnexpected     = "予期しないエラーが発生しました。"
	msgUnavailable    = "サービスが一時的に利用できません。しばらく待ってから再度お試しください。"
	msgInvalidData    = "受信したデータが不正です。もう一度お試しください。"
	msgCancelled      = "操作がキャンセルされました。"
	msgContentStale   = "コンテンツの更新に失敗しました。オフライン版のデータを表示しています。"
	msgGenerateFailed = "会話の生成に失敗しました。ネットワーク接続を確認するか、後でもう一度お試しください。"
)

// Error is a classified failure. Every error that leaves the remote
// client boundary is an *Error.
type Error struct {
	Kind        ErrorKind
	Message     string
	UserMessage string
	Retryable   bool
	StatusCode  int
	RetryAfter  time.Duration
	Err         error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error with the default user message for kind.
func NewError(kind ErrorKind, message string, retryable bool) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		UserMessage: defaultUserMessage(kind),
		Retryable:   retryable,
	}
}

func defaultUserMessage(kind ErrorKind) string {
	switch kind {
	case KindNetwork:
		return msgNetwork
	case KindAuth:
		return msgAuthReload
	case KindRateLimit:
		return msgRateLimited
	case KindValidation:
		return msgInvalidData
	case KindAPI:
		return msgServer
	default:
		return msgUnexpected
	}
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// HTTPStatus implements StatusCoder.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Classifier maps arbitrary failures into the error taxonomy.
// Connectivity is optional; when it reports offline every failure is a
// network error.
type Classifier struct {
	Connectivity ConnectivityMonitor
}

// Classify maps err into the taxonomy using no connectivity signal.
// It returns nil for a nil error.
func Classify(err error) *Error {
	return Classifier{}.Classify(err)
}

// Classify maps err into the taxonomy. Already classified errors are
// returned unchanged.
func (c Classifier) Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if c.Connectivity != nil && !c.Connectivity.IsOnline() {
		return &Error{
			Kind:        KindNetwork,
			Message:     err.Error(),
			UserMessage: msgNetwork,
			Retryable:   true,
			Err:         err,
		}
	}

	var se *StatusError
	if errors.As(err, &se) {
		out := ClassifyStatus(se.StatusCode, se.Message)
		out.RetryAfter = se.RetryAfter
		out.Err = err
		return out
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		out := ClassifyStatus(sc.HTTPStatus(), err.Error())
		out.Err = err
		return out
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:        KindNetwork,
			Message:     msgTimeout,
			UserMessage: msgNetwork,
			Retryable:   true,
			Err:         err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{
			Kind:        KindUnknown,
			Message:     err.Error(),
			UserMessage: msgCancelled,
			Err:         err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{
			Kind:        KindNetwork,
			Message:     err.Error(),
			UserMessage: msgNetwork,
			Retryable:   true,
			Err:         err,
		}
	}

	return classifyMessage(err)
}

func classifyMessage(err error) *Error {
	msg := strings.ToLower(err.Error())
	out := &Error{Message: err.Error(), Err: err}

	switch {
	case containsAny(msg, "network", "fetch", "timeout", "connection"):
		out.Kind = KindNetwork
		out.UserMessage = msgNetwork
		out.Retryable = true
	case containsAny(msg, "rate limit", "429"):
		out.Kind = KindRateLimit
		out.UserMessage = msgRateLimited
		out.Retryable = true
	case containsAny(msg, "unauthorized", "401", "api key", "authentication"):
		out.Kind = KindAuth
		out.UserMessage = msgAuthReload
	default:
		out.Kind = KindUnknown
		out.UserMessage = msgUnexpected
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ClassifyStatus maps an HTTP status and server message to a classified error.
func ClassifyStatus(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}

	out := &Error{Message: message, StatusCode: status}
	switch {
	case status == http.StatusBadRequest:
		out.Kind = KindValidation
		out.UserMessage = msgBadRequest
	case status == http.StatusUnauthorized:
		out.Kind = KindAuth
		out.UserMessage = msgUnauthorized
	case status == http.StatusForbidden:
		out.Kind = KindAuth
		out.UserMessage = msgForbidden
	case status == http.StatusNotFound:
		out.Kind = KindAPI
		out.UserMessage = msgNotFound
	case status == http.StatusTooManyRequests:
		out.Kind = KindRateLimit
		out.UserMessage = msgRateLimited
		out.Retryable = true
	case status >= 500:
		out.Kind = KindAPI
		out.UserMessage = msgServer
		out.Retryable = true
		switch status {
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		default:
			out.UserMessage = msgUnexpected
		}
	default:
		out.Kind = KindAPI
		out.UserMessage = msgUnexpected
	}
	return out
}

// LogError writes one structured record describing err. It never panics
// and tolerates a nil logger or a nil error.
func LogError(logger *slog.Logger, err error, context string) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = Logger()
	}
	defer func() { _ = recover() }()

	e := Classify(err)
	logger.Error("tutor error",
		slog.String("context", context),
		slog.String("type", string(e.Kind)),
		slog.String("message", e.Message),
		slog.String("user_message", e.UserMessage),
		slog.Bool("retryable", e.Retryable),
		slog.Int("status_code", e.StatusCode),
		slog.Time("timestamp", time.Now()),
	)
}
