package main

import (
	"fmt"

	"github.com/asofia888/russian-talk-tutor/internal/store"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List learner profiles",
	Long: `List the profiles that have a database under the profiles root.
The active profile is marked with *. Select one with --profile or
TUTOR_PROFILE.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

type profilesOutput struct {
	Root     string   `json:"root"`
	Active   string   `json:"active"`
	Profiles []string `json:"profiles"`
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	root := store.DefaultRoot()
	ids, err := store.ListProfiles(root)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	if outputJSON {
		if ids == nil {
			ids = []string{}
		}
		return outputAsJSON(cmd, profilesOutput{Root: root, Active: cfg.Profile, Profiles: ids})
	}

	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		printMuted(out, "No profiles under %s", root)
		return nil
	}
	for _, id := range ids {
		marker := " "
		if id == cfg.Profile {
			marker = style(successStyle, "*")
		}
		fmt.Fprintf(out, "%s %s\n", marker, id)
	}
	return nil
}
