package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	resetCache bool
	resetAll   bool
	resetYes   bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear cached conversations or all local data",
	Long: `Clear local data for the active profile.

--cache removes cached conversations only. --all also removes favorites,
review history and custom topics, and requires --yes.

Example:
  tutor reset --cache
  tutor reset --all --yes`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetCache, "cache", false, "Remove cached conversations")
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Remove all local data")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Confirm --all")
	resetCmd.MarkFlagsMutuallyExclusive("cache", "all")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetCache && !resetAll {
		return fmt.Errorf("nothing to reset: pass --cache or --all")
	}
	if resetAll && !resetYes {
		return fmt.Errorf("--all deletes every favorite and review; pass --yes to confirm")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if resetCache {
		n, err := a.client.ClearCache()
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		if outputJSON {
			return outputAsJSON(cmd, map[string]int{"cleared": n})
		}
		printSuccess(out, "Cleared %d cached conversation(s)", n)
		return nil
	}

	if err := a.client.ResetAll(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if outputJSON {
		return outputAsJSON(cmd, map[string]bool{"reset": true})
	}
	printSuccess(out, "All local data for profile %s was deleted", a.client.Config().Profile)
	return nil
}
