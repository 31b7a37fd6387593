// Package mcp exposes the tutor over the Model Context Protocol.
//
// NewServer builds a complete stdio MCP server with mcp-go. RegisterTools
// is the alternative for hosts that bring their own tool registry; its
// handlers return structured values instead of formatted text.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	tutor "github.com/asofia888/russian-talk-tutor"
)

// Registry receives tool registrations.
type Registry interface {
	Register(tool Tool)
}

// Tool is a tool definition for a custom registry.
type Tool struct {
	Name        string
	Description string
	Parameters  Schema
	Handler     Handler
}

// Schema maps parameter names to their definitions.
type Schema map[string]ParameterDef

// ParameterDef defines a single parameter.
type ParameterDef struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Handler handles one invocation with raw JSON parameters.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// RegisterTools registers the structured tutor tools with registry.
func RegisterTools(registry Registry, client *tutor.Client) {
	registry.Register(Tool{
		Name:        "tutor_topics",
		Description: "List built-in conversation topics",
		Parameters: Schema{
			"level": {
				Type:        "string",
				Description: "Filter by level",
				Enum:        []string{string(tutor.LevelBeginner), string(tutor.LevelIntermediate), string(tutor.LevelAdvanced)},
			},
		},
		Handler: makeTopicsHandler(),
	})

	registry.Register(Tool{
		Name:        "tutor_conversation",
		Description: "Load the dialogue for a topic",
		Parameters: Schema{
			"topic_id": {
				Type:        "string",
				Description: "Topic ID",
				Required:    true,
			},
			"prefer_cache": {
				Type:        "boolean",
				Description: "Serve cached lines without contacting the backend",
				Default:     false,
			},
		},
		Handler: makeConversationHandler(client),
	})

	registry.Register(Tool{
		Name:        "tutor_review_next",
		Description: "List favorites due for review",
		Parameters:  Schema{},
		Handler:     makeReviewNextHandler(client),
	})

	registry.Register(Tool{
		Name:        "tutor_review_rate",
		Description: "Rate a favorite and reschedule it",
		Parameters: Schema{
			"russian": {
				Type:        "string",
				Description: "The Russian word",
				Required:    true,
			},
			"rating": {
				Type:        "string",
				Description: "Recall grade",
				Required:    true,
				Enum:        []string{string(tutor.RatingAgain), string(tutor.RatingGood), string(tutor.RatingEasy)},
			},
		},
		Handler: makeReviewRateHandler(client),
	})
}

type topicsParams struct {
	Level string `json:"level"`
}

func makeTopicsHandler() Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params topicsParams
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, fmt.Errorf("parse params: %w", err)
			}
		}
		if params.Level == "" {
			return tutor.Catalog(), nil
		}
		return tutor.TopicsByLevel(tutor.Level(params.Level)), nil
	}
}

type conversationParams struct {
	TopicID     string `json:"topic_id"`
	PreferCache bool   `json:"prefer_cache"`
}

func makeConversationHandler(client *tutor.Client) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params conversationParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
		if params.TopicID == "" {
			return nil, fmt.Errorf("topic_id is required")
		}
		topic, err := client.Topic(params.TopicID)
		if err != nil {
			return nil, err
		}
		return client.Conversation(ctx, topic, tutor.LoadOptions{PreferCache: params.PreferCache})
	}
}

func makeReviewNextHandler(client *tutor.Client) Handler {
	return func(_ context.Context, _ json.RawMessage) (any, error) {
		return client.ReviewQueue(), nil
	}
}

type rateParams struct {
	Russian string `json:"russian"`
	Rating  string `json:"rating"`
}

func makeReviewRateHandler(client *tutor.Client) Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params rateParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
		rating, err := tutor.ParseRating(params.Rating)
		if err != nil {
			return nil, err
		}
		return client.Rate(params.Russian, rating)
	}
}
