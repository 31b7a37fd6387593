package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/asofia888/russian-talk-tutor/internal/store"
)

// handleProfileInfo handles the tutor_profile_info tool call.
func (s *Server) handleProfileInfo(_ context.Context, _ map[string]any) (*ToolResult, error) {
	stats, err := s.client.Stats()
	if err != nil {
		return errorResult("profile info failed: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile: %s\n", stats.Profile))
	sb.WriteString(fmt.Sprintf("  Database: %s\n", s.client.Store().Path()))
	sb.WriteString(fmt.Sprintf("  Favorites: %d (%d due today)\n", stats.Favorites, stats.Due))
	sb.WriteString(fmt.Sprintf("  Reviews logged: %d\n", stats.Store.Reviews))
	sb.WriteString(fmt.Sprintf("  Cached conversations: %d\n", stats.Store.CachedConversations))
	sb.WriteString(fmt.Sprintf("  Schema version: %s\n", stats.Store.SchemaVersion))
	if !stats.Online {
		sb.WriteString("  Backend: offline\n")
	} else {
		sb.WriteString("  Backend: online\n")
	}
	if len(stats.Breakers) > 0 {
		ops := make([]string, 0, len(stats.Breakers))
		for op := range stats.Breakers {
			ops = append(ops, op)
		}
		slices.Sort(ops)
		sb.WriteString("  Circuit breakers:\n")
		for _, op := range ops {
			sb.WriteString(fmt.Sprintf("    %s: %s\n", op, stats.Breakers[op]))
		}
	}
	return &ToolResult{Content: strings.TrimRight(sb.String(), "\n")}, nil
}

// handleProfileList handles the tutor_profile_list tool call.
func (s *Server) handleProfileList(_ context.Context, _ map[string]any) (*ToolResult, error) {
	ids, err := store.ListProfiles(store.DefaultRoot())
	if err != nil {
		return errorResult("list profiles failed: %v", err), nil
	}
	active := s.client.Config().Profile
	if len(ids) == 0 {
		return &ToolResult{Content: fmt.Sprintf("No profiles found under %s.", store.DefaultRoot())}, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d profile(s):\n", len(ids)))
	for _, id := range ids {
		marker := " "
		if id == active {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", marker, id))
	}
	return &ToolResult{Content: strings.TrimRight(sb.String(), "\n")}, nil
}
