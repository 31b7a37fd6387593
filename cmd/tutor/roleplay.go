package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/spf13/cobra"
)

var (
	roleplayRole   string
	roleplayCustom string
	roleplayCached bool
)

var roleplayCmd = &cobra.Command{
	Use:   "roleplay [topic-id]",
	Short: "Practice a dialogue by playing one of its roles",
	Long: `Play one speaker of a topic's dialogue. The partner's lines are shown
as they would be spoken; type your line when it is your turn and get a
pronunciation score before moving on. An empty line asks again and end
of input stops the session.

Example:
  tutor roleplay b-ordering-food --role B
  tutor roleplay --custom "ホテルのチェックイン"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoleplay,
}

func init() {
	roleplayCmd.Flags().StringVar(&roleplayRole, "role", "", "Speaker to play (default: prompt)")
	roleplayCmd.Flags().StringVar(&roleplayCustom, "custom", "", "Free-form topic title")
	roleplayCmd.Flags().BoolVar(&roleplayCached, "cached", false, "Use a cached conversation when available")
	rootCmd.AddCommand(roleplayCmd)
}

// terminalSpeaker prints partner lines in place of speech synthesis.
type terminalSpeaker struct {
	w     io.Writer
	lines map[string]tutor.ConversationLine
	pause time.Duration
}

func (s *terminalSpeaker) Speak(ctx context.Context, text, _ string) error {
	if line, ok := s.lines[text]; ok {
		fmt.Fprintf(s.w, "%s ", style(infoStyle, iconSpeak))
		printLine(s.w, line)
	} else {
		fmt.Fprintf(s.w, "%s %s\n", style(infoStyle, iconSpeak), text)
	}
	if s.pause <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.pause):
		return nil
	}
}

func (s *terminalSpeaker) Cancel() {}

// terminalListener reads one typed line per utterance in place of speech
// recognition.
type terminalListener struct {
	mu  sync.Mutex
	in  *bufio.Reader
	w   io.Writer
	eof bool
}

func (l *terminalListener) Start(ctx context.Context) (<-chan tutor.Recognition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.eof {
		return nil, io.EOF
	}

	fmt.Fprint(l.w, style(labelStyle, "あなた > "))
	ch := make(chan tutor.Recognition, 1)
	line, err := l.in.ReadString('\n')
	text := strings.TrimSpace(line)
	switch {
	case err != nil && text == "":
		l.eof = true
	case text != "":
		ch <- tutor.Recognition{Transcript: text, Final: true}
	}
	close(ch)
	return ch, nil
}

func (l *terminalListener) Stop() {}

func runRoleplay(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.watch(ctx, 30*time.Second)

	topic, err := resolveTopic(a.client, args, roleplayCustom)
	if err != nil {
		return err
	}
	var res *tutor.ConversationResult
	err = runWithSpinner(cmd.ErrOrStderr(), "会話を準備中", func() error {
		var err error
		res, err = a.client.Conversation(ctx, topic, tutor.LoadOptions{PreferCache: roleplayCached})
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	rp := a.client.NewRoleplay(res.Lines)

	role, err := chooseRole(out, in, rp.Speakers())
	if err != nil {
		return err
	}
	if err := rp.SelectRole(role); err != nil {
		return err
	}

	lines := make(map[string]tutor.ConversationLine, len(res.Lines))
	for _, l := range res.Lines {
		lines[l.Russian] = l
	}
	conductor := tutor.NewConductor(rp,
		&terminalSpeaker{w: out, lines: lines},
		&terminalListener{in: in, w: out},
	)
	defer conductor.Close()

	printInfo(out, "%s: you are %s", res.Topic.Title, role)
	fmt.Fprintln(out)

	boundary := tutor.NewBoundary(0, tutor.Logger())
	for {
		var turn tutor.Turn
		err := boundary.Run(func() error {
			var err error
			turn, err = conductor.Step(ctx)
			return err
		})
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			outputError(cmd.ErrOrStderr(), err)
			if !offerRecovery(out, in, boundary, a.client) {
				break
			}
			continue
		}

		switch turn.Kind {
		case tutor.TurnEnded, tutor.TurnIdle:
			return finishRoleplay(cmd, rp.Snapshot())
		case tutor.TurnLearner:
			if turn.MessageID == "" {
				continue
			}
			showTurnFeedback(out, turn)
			if err := conductor.Proceed(); err != nil {
				return err
			}
		}
	}

	rp.EndRoleplay()
	return finishRoleplay(cmd, rp.Snapshot())
}

// chooseRole uses --role or asks which speaker to play.
func chooseRole(out io.Writer, in *bufio.Reader, speakers []string) (string, error) {
	if roleplayRole != "" {
		return roleplayRole, nil
	}
	if len(speakers) == 0 {
		return "", fmt.Errorf("conversation has no speakers")
	}
	for {
		fmt.Fprintf(out, "Choose your role (%s): ", strings.Join(speakers, " / "))
		line, err := in.ReadString('\n')
		choice := strings.TrimSpace(line)
		for _, s := range speakers {
			if strings.EqualFold(s, choice) {
				return s, nil
			}
		}
		if err != nil {
			return "", fmt.Errorf("no role chosen")
		}
	}
}

func showTurnFeedback(out io.Writer, turn tutor.Turn) {
	for _, m := range turn.State.Messages {
		if m.ID != turn.MessageID {
			continue
		}
		fmt.Fprintf(out, "    %s %s\n", style(mutedStyle, "正しい文:"), m.CorrectPhrase)
		switch {
		case m.Feedback != nil:
			printFeedback(out, m.Feedback)
		case m.FeedbackError != "":
			printWarning(out, "%s", m.FeedbackError)
		}
		fmt.Fprintln(out)
	}
}

// offerRecovery lists the actions the boundary allows and applies the
// chosen one. It reports whether the session should continue.
func offerRecovery(out io.Writer, in *bufio.Reader, b *tutor.Boundary, c *tutor.Client) bool {
	actions := b.Actions()
	labels := map[tutor.RecoveryAction]string{
		tutor.ActionRetry:    "r) 再試行",
		tutor.ActionReload:   "l) キャッシュを消して再読み込み",
		tutor.ActionResetAll: "x) すべてのローカルデータを削除",
	}
	for _, act := range actions {
		fmt.Fprintf(out, "  %s\n", labels[act])
	}
	fmt.Fprint(out, "  q) 終了 > ")
	line, _ := in.ReadString('\n')

	switch strings.TrimSpace(strings.ToLower(line)) {
	case "r":
		return true
	case "l":
		if _, err := c.ClearCache(); err != nil {
			printWarning(out, "clear cache: %v", err)
		}
		b.Reset()
		return true
	case "x":
		for _, act := range actions {
			if act == tutor.ActionResetAll {
				if err := c.ResetAll(); err != nil {
					printWarning(out, "reset: %v", err)
				}
				return false
			}
		}
	}
	return false
}

type roleplaySummary struct {
	Role     string  `json:"role"`
	Turns    int     `json:"turns"`
	Scored   int     `json:"scored"`
	Average  float64 `json:"average_score"`
	Correct  int     `json:"correct"`
	Messages int     `json:"messages"`
}

func summarize(state tutor.RoleplayState) roleplaySummary {
	sum := roleplaySummary{Role: state.UserRole, Messages: len(state.Messages)}
	total := 0.0
	for _, m := range state.Messages {
		if !m.IsUser {
			continue
		}
		sum.Turns++
		if m.Feedback != nil {
			sum.Scored++
			total += m.Feedback.Score
			if m.Feedback.IsCorrect {
				sum.Correct++
			}
		}
	}
	if sum.Scored > 0 {
		sum.Average = total / float64(sum.Scored)
	}
	return sum
}

func finishRoleplay(cmd *cobra.Command, state tutor.RoleplayState) error {
	sum := summarize(state)
	if outputJSON {
		return outputAsJSON(cmd, sum)
	}
	out := cmd.OutOrStdout()
	printSuccess(out, "ロールプレイ終了")
	if sum.Scored > 0 {
		fmt.Fprintf(out, "  %d turn(s), average %.0f/100, %d correct\n", sum.Turns, sum.Average, sum.Correct)
	} else {
		fmt.Fprintf(out, "  %d turn(s)\n", sum.Turns)
	}
	return nil
}
