package main

import (
	"time"

	tutormcp "github.com/asofia888/russian-talk-tutor/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server over stdio",
	Long: `Start a Model Context Protocol (MCP) server over stdio so an assistant
can load dialogues, save favorites and run reviews for you.

Configuration example:

  {
    "mcpServers": {
      "russian-tutor": {
        "command": "tutor",
        "args": ["mcp"],
        "env": {
          "TUTOR_PROFILE": "default",
          "TUTOR_BACKEND_URL": "https://tutor.example.com"
        }
      }
    }
  }

Environment variables:
  TUTOR_DB_PATH      Path to the local SQLite database
  TUTOR_PROFILE      Learner profile (default: default)
  TUTOR_BACKEND_URL  Conversation service URL (optional; offline without it)
  TUTOR_API_KEY      Conversation service API key`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.watch(cmd.Context(), time.Minute)

	server := tutormcp.NewServer(a.client)
	return server.Run()
}
