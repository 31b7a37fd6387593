package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/asofia888/russian-talk-tutor/internal/backend"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgDBPath     string
	cfgProfile    string
	cfgBackendURL string
	cfgAPIKey     string
	cfgEnvFile    string
	outputJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Russian Talk Tutor - conversation practice and vocabulary review",
	Long: `Russian Talk Tutor generates Russian dialogues for everyday topics,
lets you roleplay them with pronunciation feedback, and schedules the
words you save for spaced repetition review.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotEnv(cfgEnvFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDBPath, "db-path", "", "Path to the local database (default: profile database)")
	rootCmd.PersistentFlags().StringVar(&cfgProfile, "profile", "", "Learner profile (default: $TUTOR_PROFILE or \"default\")")
	rootCmd.PersistentFlags().StringVar(&cfgBackendURL, "backend-url", "", "Base URL of the conversation service")
	rootCmd.PersistentFlags().StringVar(&cfgAPIKey, "api-key", "", "API key for the conversation service")
	rootCmd.PersistentFlags().StringVar(&cfgEnvFile, "env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() tutor.Config {
	cfg := tutor.ConfigFromEnv()
	if cfgDBPath != "" {
		cfg.LocalPath = cfgDBPath
	}
	if cfgProfile != "" {
		cfg.Profile = cfgProfile
	}
	if cfgBackendURL != "" {
		cfg.BackendURL = cfgBackendURL
	}
	if cfgAPIKey != "" {
		cfg.APIKey = cfgAPIKey
	}
	return cfg.WithDefaults()
}

// app is an opened client with the resources it depends on.
type app struct {
	client  *tutor.Client
	backend *backend.HTTPClient
	closers []io.Closer
}

func (a *app) Close() {
	_ = a.client.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// probe checks the backend once and updates the client's connectivity.
func (a *app) probe(ctx context.Context) bool {
	if a.backend == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.client.Connectivity().Probe(ctx, a.backend.Ping)
}

// watch keeps connectivity current until ctx is done.
func (a *app) watch(ctx context.Context, interval time.Duration) {
	if a.backend == nil {
		return
	}
	go a.client.Connectivity().Watch(ctx, interval, a.backend.Ping)
}

// openApp configures logging, builds the HTTP backend when a URL is set,
// and opens the client.
func openApp() (*app, error) {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{}
	logCloser, err := tutor.ConfigureLogging(tutor.LoggingOptions{Level: cfg.LogLevel, File: cfg.LogFile})
	a.closers = append(a.closers, logCloser)
	if err != nil {
		tutor.Logger().Warn("logging partially configured", "error", err)
	}

	debug, err := tutor.NewDebugLogger(cfg.Debug, cfg.DebugLogPath)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	a.closers = append(a.closers, debug)

	opts := []tutor.Option{tutor.WithDebugLogger(debug)}
	if !cfg.IsOffline() {
		a.backend = backend.NewHTTPClient(cfg.BackendURL, cfg.APIKey).WithDebug(debug)
		opts = append(opts, tutor.WithBackend(a.backend))
	}

	client, err := tutor.New(cfg, opts...)
	if err != nil {
		for i := len(a.closers) - 1; i >= 0; i-- {
			_ = a.closers[i].Close()
		}
		return nil, fmt.Errorf("initialize client: %w", err)
	}
	a.client = client
	return a, nil
}
