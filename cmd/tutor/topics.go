package main

import (
	"fmt"
	"strings"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/spf13/cobra"
)

var topicsLevel string

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List conversation topics",
	Long: `List the built-in conversation topics by level, followed by the custom
topics you created.

Example:
  tutor topics
  tutor topics --level Beginner`,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().StringVar(&topicsLevel, "level", "", "Filter by level: Beginner, Intermediate, Advanced")
	rootCmd.AddCommand(topicsCmd)
}

type topicsOutput struct {
	Categories []tutor.TopicCategory    `json:"categories"`
	Custom     []tutor.CustomTopicRecord `json:"custom,omitempty"`
}

func runTopics(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var cats []tutor.TopicCategory
	for _, cat := range a.client.Topics() {
		filtered := tutor.TopicCategory{Name: cat.Name}
		for _, t := range cat.Topics {
			if topicsLevel == "" || strings.EqualFold(string(t.Level), topicsLevel) {
				filtered.Topics = append(filtered.Topics, t)
			}
		}
		if len(filtered.Topics) > 0 {
			cats = append(cats, filtered)
		}
	}
	custom, err := a.client.CustomTopics()
	if err != nil {
		return err
	}

	if outputJSON {
		return outputAsJSON(cmd, topicsOutput{Categories: cats, Custom: custom})
	}

	out := cmd.OutOrStdout()
	if len(cats) == 0 {
		fmt.Fprintf(out, "No topics for level %q.\n", topicsLevel)
		return nil
	}
	for _, cat := range cats {
		printLabel(out, cat.Name)
		fmt.Fprintln(out)
		for _, t := range cat.Topics {
			fmt.Fprintf(out, "  %-24s %s\n", t.ID, t.Title)
			if t.Description != "" {
				fmt.Fprintf(out, "  %-24s %s\n", "", style(mutedStyle, t.Description))
			}
		}
		fmt.Fprintln(out)
	}
	if len(custom) > 0 && topicsLevel == "" {
		printLabel(out, "カスタム (Custom)")
		fmt.Fprintln(out)
		for _, r := range custom {
			fmt.Fprintf(out, "  %-24s %s\n", r.ID, r.Title)
		}
	}
	return nil
}
