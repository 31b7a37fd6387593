package main

import (
	"context"
	"fmt"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/spf13/cobra"
)

var (
	convCustom      string
	convPreferCache bool
	convRecover     int
	convPrefetch    []string
)

var conversationCmd = &cobra.Command{
	Use:     "conversation [topic-id]",
	Aliases: []string{"conv"},
	Short:   "Show the dialogue for a topic",
	Long: `Generate (or load from cache) the Russian dialogue for a topic.

Each word is listed with a reference (W1, W2, ...) that can be passed to
'tutor favorites add' together with --topic.

Example:
  tutor conversation b-greetings
  tutor conversation --custom "空港でスーツケースをなくした"
  tutor conversation b-family --cached
  tutor conversation --prefetch b-greetings,b-family`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConversation,
}

func init() {
	conversationCmd.Flags().StringVar(&convCustom, "custom", "", "Free-form topic title")
	conversationCmd.Flags().BoolVar(&convPreferCache, "cached", false, "Use a cached conversation when available")
	conversationCmd.Flags().IntVar(&convRecover, "recover", 0, "Extra attempts after a retryable failure")
	conversationCmd.Flags().StringSliceVar(&convPrefetch, "prefetch", nil, "Cache these topics in the background")
	rootCmd.AddCommand(conversationCmd)
}

func runConversation(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(convPrefetch) > 0 {
		return runPrefetch(cmd, a)
	}

	topic, err := resolveTopic(a.client, args, convCustom)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var res *tutor.ConversationResult
	load := func(ctx context.Context) error {
		var err error
		res, err = a.client.Conversation(ctx, topic, tutor.LoadOptions{PreferCache: convPreferCache})
		return err
	}

	err = runWithSpinner(cmd.ErrOrStderr(), "会話を生成中", func() error { return load(ctx) })
	if err != nil && convRecover > 0 {
		rec := tutor.NewErrorRecovery(convRecover)
		rec.SetError(err)
		for rec.CanRetry() {
			printWarning(cmd.ErrOrStderr(), "%s (retry %d/%d)", rec.Err().UserMessage, rec.Attempts()+1, convRecover)
			_ = rec.Recover(ctx, load)
		}
		err = nil
		if e := rec.Err(); e != nil {
			err = e
		}
	}
	if err != nil {
		return err
	}

	if outputJSON {
		return outputAsJSON(cmd, res)
	}
	printConversation(cmd.OutOrStdout(), res, a.client.Session())
	return nil
}

// resolveTopic picks the topic from a positional ID or a custom title.
func resolveTopic(c *tutor.Client, args []string, custom string) (tutor.Topic, error) {
	switch {
	case custom != "":
		return c.CustomTopic(custom)
	case len(args) == 1:
		return c.Topic(args[0])
	default:
		return tutor.Topic{}, fmt.Errorf("a topic ID or --custom title is required (see 'tutor topics')")
	}
}

func runPrefetch(cmd *cobra.Command, a *app) error {
	topics := make([]tutor.Topic, 0, len(convPrefetch))
	for _, id := range convPrefetch {
		t, err := a.client.Topic(id)
		if err != nil {
			return err
		}
		topics = append(topics, t)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	failed := 0
	i := 0
	for err := range a.client.Prefetch(ctx, topics) {
		if err != nil {
			failed++
			printWarning(out, "%s: %v", topics[i].ID, err)
		} else {
			printSuccess(out, "%s cached", topics[i].ID)
		}
		i++
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d topics could not be cached", failed, len(topics))
	}
	return nil
}
