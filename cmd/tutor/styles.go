package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	colorPrimary      = lipgloss.Color("#1C57A5") // birch-bark blue
	colorPrimaryLight = lipgloss.Color("#5B8FD6")
	colorAccent       = lipgloss.Color("#D52B1E") // matryoshka red

	colorText  = lipgloss.Color("#F4F4F2")
	colorMuted = lipgloss.Color("240")

	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
)

// Styles
var (
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	infoStyle     = lipgloss.NewStyle().Foreground(colorPrimary)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle    = lipgloss.NewStyle().Foreground(colorPrimaryLight).Bold(true)
	russianStyle  = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	speakerStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	scoreBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorPrimary).Padding(0, 1)
)

// Icons
const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "⚠"
	iconInfo    = "●"
	iconSpeak   = "♪"
)

// isTTY reports whether stdout is a terminal.
func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// style renders s with st only on a terminal.
func style(st lipgloss.Style, s string) string {
	if isTTY() {
		return st.Render(s)
	}
	return s
}

func printStyled(w io.Writer, icon string, st lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "%s %s\n", style(st, icon), msg)
}

func printSuccess(w io.Writer, format string, args ...any) {
	printStyled(w, iconSuccess, successStyle, format, args...)
}

func printError(w io.Writer, format string, args ...any) {
	printStyled(w, iconError, errorStyle, format, args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	printStyled(w, iconWarning, warningStyle, format, args...)
}

func printInfo(w io.Writer, format string, args ...any) {
	printStyled(w, iconInfo, infoStyle, format, args...)
}

func printMuted(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, style(mutedStyle, fmt.Sprintf(format, args...)))
}

func printLabel(w io.Writer, label string) {
	fmt.Fprint(w, style(labelStyle, label))
}

// renderMarkdown renders grammar explanations with glamour on a terminal.
func renderMarkdown(content string) string {
	if !isTTY() || !hasMarkdown(content) {
		return content
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

// hasMarkdown checks for markdown syntax, most specific markers first.
func hasMarkdown(content string) bool {
	markers := []string{
		"```",
		"## ",
		"# ",
		"**",
		"1. ",
		"- ",
		"* ",
		"](http",
		"`",
	}
	for _, marker := range markers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}
