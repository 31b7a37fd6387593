package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review saved words that are due today",
	Long: `Walk through the words due today. For each word press Enter to reveal
the translation, then rate your recall:

  a  again  (forgot; see it again tomorrow)
  g  good   (recalled)
  e  easy   (recalled without effort)
  q  quit

Example:
  tutor review
  tutor review list
  tutor review rate кофе good`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the words due today",
	RunE:  runReviewList,
}

var reviewRateCmd = &cobra.Command{
	Use:   "rate <russian> <again|good|easy>",
	Short: "Rate one word without the interactive session",
	Args:  cobra.ExactArgs(2),
	RunE:  runReviewRate,
}

func init() {
	reviewCmd.AddCommand(reviewListCmd, reviewRateCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	queue := a.client.ReviewQueue()
	if outputJSON {
		return outputAsJSON(cmd, queue)
	}
	if len(queue) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing is due today.")
		return nil
	}
	printFavorites(cmd.OutOrStdout(), queue, a.client.Session())
	return nil
}

func runReviewRate(cmd *cobra.Command, args []string) error {
	rating, err := tutor.ParseRating(args[1])
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fw, err := a.client.Rate(args[0], rating)
	if err != nil {
		return err
	}
	if outputJSON {
		return outputAsJSON(cmd, fw)
	}
	printSuccess(cmd.OutOrStdout(), "%s: next review %s (interval %dd)",
		fw.Russian, fw.NextReviewDate.Format("2006-01-02"), fw.Interval)
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	queue := a.client.ReviewQueue()
	if len(queue) == 0 {
		fmt.Fprintln(out, "Nothing is due today.")
		return nil
	}
	fmt.Fprintf(out, "%d word(s) due.\n\n", len(queue))

	reviewed := 0
	for i, fw := range queue {
		fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(queue), style(russianStyle, fw.Russian))
		printMuted(out, "Enter で答えを表示")
		if _, err := in.ReadString('\n'); err != nil {
			break
		}
		if fw.Pronunciation != "" {
			fmt.Fprintf(out, "    %s\n", style(mutedStyle, fw.Pronunciation))
		}
		fmt.Fprintf(out, "    %s\n", fw.Translation)

		rating, quit, err := promptRating(out, in)
		if err != nil || quit {
			break
		}
		updated, err := a.client.Rate(fw.Russian, rating)
		if err != nil {
			return err
		}
		reviewed++
		printMuted(out, "next review %s", updated.NextReviewDate.Format("2006-01-02"))
		fmt.Fprintln(out)
	}

	printSuccess(out, "Reviewed %d of %d word(s)", reviewed, len(queue))
	return nil
}

// promptRating reads a rating key until a valid one or q is entered.
func promptRating(out io.Writer, in *bufio.Reader) (tutor.Rating, bool, error) {
	for {
		fmt.Fprint(out, "  [a]gain [g]ood [e]asy [q]uit > ")
		line, err := in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "a", "again":
			return tutor.RatingAgain, false, nil
		case "g", "good":
			return tutor.RatingGood, false, nil
		case "e", "easy":
			return tutor.RatingEasy, false, nil
		case "q", "quit":
			return "", true, nil
		}
		if err != nil {
			return "", true, err
		}
	}
}
