package tutor

import (
	"os"
	"strconv"
	"time"

	"github.com/asofia888/russian-talk-tutor/internal/store"
)

// Config configures the tutor Client.
type Config struct {
	// LocalPath is the path to the local SQLite database.
	// If empty, it is derived from Profile.
	LocalPath string

	// Profile selects the learner profile. If empty, resolved as
	// TUTOR_PROFILE env > "default".
	Profile string

	// BackendURL is the base URL of the generative backend.
	// If empty, the client runs offline: cached conversations and
	// favorites work, generation and feedback return ErrNoBackend.
	BackendURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	ConversationTimeout time.Duration
	FeedbackTimeout     time.Duration

	// BreakerThreshold is the number of consecutive failures that opens
	// an operation's circuit. BreakerCooldown is how long it stays open.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFile receives structured logs. Defaults to stderr.
	LogFile string

	// Debug enables wire-level logging of backend traffic.
	Debug bool
	// DebugLogPath is where wire-level logs go. Defaults to stderr.
	DebugLogPath string
}

// DefaultConfig returns a Config for the default profile.
func DefaultConfig() Config {
	return Config{
		Profile:             store.DefaultProfile,
		LocalPath:           store.DBPath(store.DefaultProfile),
		ConversationTimeout: DefaultConversationTimeout,
		FeedbackTimeout:     DefaultFeedbackTimeout,
		BreakerThreshold:    DefaultBreakerThreshold,
		BreakerCooldown:     DefaultBreakerCooldown,
		LogLevel:            "info",
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	TUTOR_DB_PATH      → LocalPath
//	TUTOR_PROFILE      → Profile
//	TUTOR_BACKEND_URL  → BackendURL
//	TUTOR_API_KEY      → APIKey
//	TUTOR_LOG_LEVEL    → LogLevel
//	TUTOR_LOG_FILE     → LogFile
//	TUTOR_DEBUG        → Debug (any value strconv.ParseBool accepts as true, or any non-empty value)
//	TUTOR_DEBUG_LOG    → DebugLogPath
func ConfigFromEnv() Config {
	return Config{
		LocalPath:    os.Getenv("TUTOR_DB_PATH"),
		Profile:      os.Getenv(store.ProfileEnv),
		BackendURL:   os.Getenv("TUTOR_BACKEND_URL"),
		APIKey:       os.Getenv("TUTOR_API_KEY"),
		LogLevel:     os.Getenv("TUTOR_LOG_LEVEL"),
		LogFile:      os.Getenv("TUTOR_LOG_FILE"),
		Debug:        envBool("TUTOR_DEBUG"),
		DebugLogPath: os.Getenv("TUTOR_DEBUG_LOG"),
	}
}

func envBool(key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

// Validate checks the configuration. It returns *ValidationError.
func (c *Config) Validate() error {
	if c.LocalPath == "" {
		return &ValidationError{Field: "LocalPath", Message: "required: path to SQLite database"}
	}
	if c.Profile != "" {
		if err := store.ValidateProfileID(c.Profile); err != nil {
			return &ValidationError{Field: "Profile", Message: err.Error()}
		}
	}
	if c.ConversationTimeout < 0 {
		return &ValidationError{Field: "ConversationTimeout", Message: "must be non-negative"}
	}
	if c.FeedbackTimeout < 0 {
		return &ValidationError{Field: "FeedbackTimeout", Message: "must be non-negative"}
	}
	if c.BreakerThreshold < 0 {
		return &ValidationError{Field: "BreakerThreshold", Message: "must be non-negative"}
	}
	if c.BreakerCooldown < 0 {
		return &ValidationError{Field: "BreakerCooldown", Message: "must be non-negative"}
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return &ValidationError{Field: "LogLevel", Message: err.Error()}
		}
	}
	return nil
}

// IsOffline reports whether no backend is configured.
func (c *Config) IsOffline() bool {
	return c.BackendURL == ""
}

// WithDefaults fills unset fields. The profile resolves as explicit >
// TUTOR_PROFILE > "default" and LocalPath follows the profile. The first
// time the default profile is used, a legacy single-profile database is
// adopted into it.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Profile == "" {
		if resolved, err := store.ResolveProfile(""); err == nil {
			c.Profile = resolved
		} else {
			c.Profile = store.DefaultProfile
		}
	}

	if c.LocalPath == "" {
		if c.Profile == store.DefaultProfile {
			if res, err := store.AdoptLegacyDatabase("", store.DefaultRoot()); err != nil {
				Logger().Warn("legacy database not adopted", "error", err)
			} else if res.Migrated {
				Logger().Info("adopted legacy database", "from", res.SourcePath, "to", res.DestPath)
			}
		}
		c.LocalPath = store.DBPath(c.Profile)
	}

	if c.ConversationTimeout == 0 {
		c.ConversationTimeout = defaults.ConversationTimeout
	}
	if c.FeedbackTimeout == 0 {
		c.FeedbackTimeout = defaults.FeedbackTimeout
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = defaults.BreakerThreshold
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = defaults.BreakerCooldown
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	return c
}
