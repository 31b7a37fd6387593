package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tutor "github.com/asofia888/russian-talk-tutor"
)

func TestHasMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"## Падежи", true},
		{"**Привет** means hi", true},
		{"- item", true},
		{"`кофе`", true},
		{"plain explanation", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := hasMarkdown(tt.in); got != tt.want {
			t.Errorf("hasMarkdown(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGrammarMarkdown(t *testing.T) {
	gp := &tutor.GrammarPoint{
		Title:       "対格",
		Explanation: "目的語は対格になります。",
		Examples: []tutor.ExampleSentence{
			{Russian: "Я люблю кофе.", Pronunciation: "ヤー リュブリュー コーフェ", Translation: "コーヒーが好きです。"},
		},
	}
	md := grammarMarkdown(gp)
	if !strings.HasPrefix(md, "## 対格\n\n") {
		t.Errorf("markdown should start with the title heading:\n%s", md)
	}
	if !strings.Contains(md, "- **Я люблю кофе.** (ヤー リュブリュー コーフェ) コーヒーが好きです。") {
		t.Errorf("example missing:\n%s", md)
	}
}

func TestOutputError_ShowsUserMessage(t *testing.T) {
	var buf bytes.Buffer
	outputError(&buf, tutor.ClassifyStatus(429, "quota exceeded"))
	out := buf.String()
	if !strings.Contains(out, "quota exceeded") {
		t.Errorf("technical message missing: %q", out)
	}
	if e := tutor.ClassifyStatus(429, ""); !strings.Contains(out, e.UserMessage) {
		t.Errorf("user message missing: %q", out)
	}

	buf.Reset()
	outputError(&buf, errors.New("plain failure"))
	if !strings.Contains(buf.String(), "plain failure") {
		t.Errorf("plain error = %q", buf.String())
	}
}

func TestScrubSensitiveData(t *testing.T) {
	prev := cfgAPIKey
	t.Cleanup(func() { cfgAPIKey = prev })

	cfgAPIKey = "sk-secret"
	got := scrubSensitiveData("request with sk-secret failed")
	if strings.Contains(got, "sk-secret") || !strings.Contains(got, "[REDACTED]") {
		t.Errorf("scrubSensitiveData() = %q", got)
	}

	cfgAPIKey = ""
	if got := scrubSensitiveData("unchanged"); got != "unchanged" {
		t.Errorf("scrubSensitiveData() = %q", got)
	}
}

func TestPrintFeedback(t *testing.T) {
	var buf bytes.Buffer
	printFeedback(&buf, &tutor.Feedback{Score: 92, Text: "とても自然です", IsCorrect: true})
	out := buf.String()
	for _, want := range []string{"92/100", "正解", "とても自然です"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestPrintFavorites_Empty(t *testing.T) {
	var buf bytes.Buffer
	printFavorites(&buf, nil, tutor.NewSession())
	if strings.TrimSpace(buf.String()) != "No favorites yet." {
		t.Errorf("output = %q", buf.String())
	}
}
