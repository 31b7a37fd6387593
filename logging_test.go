package tutor_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tutor "github.com/asofia888/russian-talk-tutor"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{" INFO ", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := tutor.ParseLogLevel(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestConfigureLogging(t *testing.T) {
	prev := tutor.Logger()
	t.Cleanup(func() { tutor.SetLogger(prev) })

	path := filepath.Join(t.TempDir(), "logs", "tutor.log")
	closer, err := tutor.ConfigureLogging(tutor.LoggingOptions{Level: "warn", File: path})
	if err != nil {
		t.Fatalf("ConfigureLogging() error = %v", err)
	}

	tutor.Logger().Info("hidden")
	tutor.Logger().Warn("shown", "topic", "b-greetings")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") || !strings.Contains(out, "topic=b-greetings") {
		t.Errorf("log file = %q", out)
	}
}

func TestConfigureLogging_BadLevelStillInstalls(t *testing.T) {
	prev := tutor.Logger()
	t.Cleanup(func() { tutor.SetLogger(prev) })

	closer, err := tutor.ConfigureLogging(tutor.LoggingOptions{Level: "loud"})
	if err == nil {
		t.Error("ConfigureLogging() accepted an unknown level")
	}
	if closer == nil || tutor.Logger() == nil {
		t.Fatal("logger not installed")
	}
	_ = closer.Close()
}

func TestSetLogger_Nil(t *testing.T) {
	prev := tutor.Logger()
	t.Cleanup(func() { tutor.SetLogger(prev) })

	tutor.SetLogger(nil)
	tutor.Logger().Error("discarded")
}
