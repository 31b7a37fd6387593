package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

const (
	spinnerFrameWidth = 2
	spinnerAnimDelay  = 80 * time.Millisecond
	spinnerClearPad   = 5
)

// simpleSpinner animates a braille spinner while an operation runs.
// Off a terminal it prints the message once.
type simpleSpinner struct {
	frames   []string
	message  string
	w        io.Writer
	clearLen int

	stop chan struct{}
	done sync.WaitGroup
}

func newSimpleSpinner(w io.Writer, message string) *simpleSpinner {
	return &simpleSpinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message:  message,
		w:        w,
		clearLen: spinnerFrameWidth + 1 + 2*utf8.RuneCountInString(message),
		stop:     make(chan struct{}),
	}
}

func (s *simpleSpinner) Start() {
	if !isTTY() {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		return
	}

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		frameStyle := lipgloss.NewStyle().Foreground(colorPrimary)
		ticker := time.NewTicker(spinnerAnimDelay)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", frameStyle.Render(s.frames[i%len(s.frames)]), s.message)
			select {
			case <-s.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *simpleSpinner) Stop() {
	close(s.stop)
	s.done.Wait()
	if isTTY() {
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.clearLen+spinnerClearPad)+"\r")
	}
}

// runWithSpinner runs operation while a spinner shows message.
func runWithSpinner(w io.Writer, message string, operation func() error) error {
	spin := newSimpleSpinner(w, message)
	spin.Start()
	err := operation()
	spin.Stop()
	return err
}
