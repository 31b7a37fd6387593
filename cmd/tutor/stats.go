package main

import (
	"context"
	"fmt"
	"slices"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show profile statistics",
	Long: `Display statistics about the active profile: favorites, reviews,
cached conversations and the state of the remote service.

Example:
  tutor stats
  tutor stats --health`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var statsHealth bool

func init() {
	statsCmd.Flags().BoolVar(&statsHealth, "health", false, "Probe the conversation service")
	rootCmd.AddCommand(statsCmd)
}

type statsOutput struct {
	*tutor.ClientStats
	DatabasePath string `json:"database_path"`
	Reachable    *bool  `json:"reachable,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var reachable *bool
	if statsHealth {
		ok := a.probe(context.Background())
		reachable = &ok
	}

	stats, err := a.client.Stats()
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, statsOutput{
			ClientStats:  stats,
			DatabasePath: a.client.Store().Path(),
			Reachable:    reachable,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", style(labelStyle, "Profile "+stats.Profile))
	fmt.Fprintf(out, "Database:             %s\n", a.client.Store().Path())
	fmt.Fprintf(out, "Favorites:            %d (%d due)\n", stats.Favorites, stats.Due)
	fmt.Fprintf(out, "Reviews logged:       %d\n", stats.Store.Reviews)
	fmt.Fprintf(out, "Cached conversations: %d\n", stats.Store.CachedConversations)
	fmt.Fprintf(out, "Schema version:       %s\n", stats.Store.SchemaVersion)
	fmt.Fprintf(out, "Queued tasks:         %d\n", stats.QueuedTasks)

	switch {
	case a.backend == nil:
		fmt.Fprintf(out, "Backend:              %s\n", style(mutedStyle, "not configured"))
	case stats.Online:
		fmt.Fprintf(out, "Backend:              %s\n", style(successStyle, "online"))
	default:
		fmt.Fprintf(out, "Backend:              %s\n", style(warningStyle, "offline"))
	}

	if len(stats.Breakers) > 0 {
		ops := make([]string, 0, len(stats.Breakers))
		for op := range stats.Breakers {
			ops = append(ops, op)
		}
		slices.Sort(ops)
		fmt.Fprintln(out, "Circuit breakers:")
		for _, op := range ops {
			fmt.Fprintf(out, "  %-26s %s\n", op, stats.Breakers[op])
		}
	}
	return nil
}
