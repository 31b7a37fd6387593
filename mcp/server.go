package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tutor "github.com/asofia888/russian-talk-tutor"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes a tutor Client as MCP tools.
type Server struct {
	client    *tutor.Client
	mcpServer *server.MCPServer
}

// ToolResult is the outcome of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates an MCP server with the tutor tools registered.
func NewServer(client *tutor.Client) *Server {
	s := &Server{client: client}
	s.mcpServer = server.NewMCPServer(
		"russian-talk-tutor",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdin and stdout.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes one raw JSON-RPC message.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

type toolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

type toolDef struct {
	tool    mcp.Tool
	handler toolHandler
}

func (s *Server) tools() []toolDef {
	return []toolDef{
		{mcp.NewTool("tutor_topics",
			mcp.WithDescription("List conversation topics grouped by category. Custom topics created earlier are listed last."),
			mcp.WithString("level", mcp.Description("Filter by level: Beginner, Intermediate or Advanced")),
		), s.handleTopics},
		{mcp.NewTool("tutor_conversation",
			mcp.WithDescription("Load the Russian dialogue for a topic. Every word gets a session reference (W1, W2, ...) usable with tutor_favorite_add."),
			mcp.WithString("topic_id", mcp.Description("Built-in or custom topic ID")),
			mcp.WithString("custom_title", mcp.Description("Free-form topic; creates a custom topic when topic_id is empty")),
			mcp.WithBoolean("prefer_cache", mcp.Description("Serve a cached conversation without contacting the backend")),
		), s.handleConversation},
		{mcp.NewTool("tutor_case_drill",
			mcp.WithDescription("Show why a word takes its grammatical case and the six-case singular and plural table of its base form."),
			mcp.WithString("word", mcp.Description("Session reference (W1) or a favorite's Russian word"), mcp.Required()),
		), s.handleCaseDrill},
		{mcp.NewTool("tutor_favorite_add",
			mcp.WithDescription("Add a word to favorites for spaced repetition review."),
			mcp.WithString("word", mcp.Description("Session reference (W1) or the Russian word"), mcp.Required()),
			mcp.WithString("japanese", mcp.Description("Translation, required when word is not a session reference")),
			mcp.WithString("pronunciation", mcp.Description("Pronunciation in katakana")),
		), s.handleFavoriteAdd},
		{mcp.NewTool("tutor_favorite_remove",
			mcp.WithDescription("Remove a word from favorites."),
			mcp.WithString("word", mcp.Description("Session reference (W1) or the Russian word"), mcp.Required()),
		), s.handleFavoriteRemove},
		{mcp.NewTool("tutor_review_next",
			mcp.WithDescription("List favorites due for review today, earliest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of words (default: 10)")),
		), s.handleReviewNext},
		{mcp.NewTool("tutor_review_rate",
			mcp.WithDescription("Rate the recall of a favorite and reschedule it."),
			mcp.WithString("word", mcp.Description("Session reference (W1) or the Russian word"), mcp.Required()),
			mcp.WithString("rating", mcp.Description("again, good or easy"), mcp.Required()),
		), s.handleReviewRate},
		{mcp.NewTool("tutor_pronunciation_feedback",
			mcp.WithDescription("Score a spoken transcript against the correct Russian phrase."),
			mcp.WithString("transcript", mcp.Description("What the learner said"), mcp.Required()),
			mcp.WithString("correct_phrase", mcp.Description("The phrase the learner should have said"), mcp.Required()),
		), s.handlePronunciationFeedback},
		{mcp.NewTool("tutor_profile_info",
			mcp.WithDescription("Show statistics for the active profile: favorites, due words, cache and breaker state."),
		), s.handleProfileInfo},
		{mcp.NewTool("tutor_profile_list",
			mcp.WithDescription("List learner profiles that exist on this machine."),
		), s.handleProfileList},
	}
}

func (s *Server) registerTools() {
	for _, def := range s.tools() {
		handler := def.handler
		s.mcpServer.AddTool(def.tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := handler(ctx, req.GetArguments())
			if err != nil {
				return nil, err
			}
			return toMCPResult(result), nil
		})
	}
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	defs := s.tools()
	infos := make([]ToolInfo, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, ToolInfo{Name: def.tool.Name, Description: def.tool.Description})
	}
	return infos
}

// CallTool runs a tool by name. Used for tests and direct invocation.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	for _, def := range s.tools() {
		if def.tool.Name == name {
			return def.handler(ctx, args)
		}
	}
	return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
	}
	if r.IsError {
		result.IsError = true
	}
	return result
}

func errorResult(format string, args ...any) *ToolResult {
	return &ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}

// userFacing prefers the classified user message for tutor errors.
func userFacing(err error) string {
	var te *tutor.Error
	if errors.As(err, &te) && te.UserMessage != "" {
		return fmt.Sprintf("%s (%s)", te.UserMessage, te.Message)
	}
	return err.Error()
}

func (s *Server) handleTopics(_ context.Context, args map[string]any) (*ToolResult, error) {
	level := tutor.Level(stringArg(args, "level"))

	var sb strings.Builder
	for _, cat := range s.client.Topics() {
		var rows []string
		for _, t := range cat.Topics {
			if level != "" && !strings.EqualFold(string(t.Level), string(level)) {
				continue
			}
			rows = append(rows, fmt.Sprintf("  %s  %s (%s)", t.ID, t.Title, t.Level))
		}
		if len(rows) == 0 {
			continue
		}
		sb.WriteString(cat.Name + "\n")
		sb.WriteString(strings.Join(rows, "\n"))
		sb.WriteString("\n\n")
	}

	custom, err := s.client.CustomTopics()
	if err != nil {
		return errorResult("read custom topics: %v", err), nil
	}
	if len(custom) > 0 && level == "" {
		sb.WriteString("Custom\n")
		for _, r := range custom {
			sb.WriteString(fmt.Sprintf("  %s  %s\n", r.ID, r.Title))
		}
	}
	if sb.Len() == 0 {
		return &ToolResult{Content: "No topics match."}, nil
	}
	return &ToolResult{Content: strings.TrimRight(sb.String(), "\n")}, nil
}

func (s *Server) handleConversation(ctx context.Context, args map[string]any) (*ToolResult, error) {
	topicID := stringArg(args, "topic_id")
	customTitle := stringArg(args, "custom_title")

	var topic tutor.Topic
	var err error
	switch {
	case topicID != "":
		topic, err = s.client.Topic(topicID)
	case customTitle != "":
		topic, err = s.client.CustomTopic(customTitle)
	default:
		return errorResult("topic_id or custom_title is required"), nil
	}
	if err != nil {
		return errorResult("%v", err), nil
	}

	res, err := s.client.Conversation(ctx, topic, tutor.LoadOptions{PreferCache: boolArg(args, "prefer_cache")})
	if err != nil {
		return errorResult("%s", userFacing(err)), nil
	}
	return &ToolResult{Content: formatConversation(res, s.client.Session())}, nil
}

func formatConversation(res *tutor.ConversationResult, session *tutor.Session) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s [%s]\n", res.Topic.Title, res.Topic.ID))
	if res.Warning != nil {
		sb.WriteString("Note: " + res.Warning.UserMessage + "\n")
	}
	sb.WriteString("\n")
	for _, line := range res.Lines {
		sb.WriteString(fmt.Sprintf("%s: %s\n", line.Speaker, line.Russian))
		sb.WriteString(fmt.Sprintf("    %s\n", line.Translation))
		var refs, cases []string
		for _, w := range line.Words {
			ref := session.Track(w)
			refs = append(refs, fmt.Sprintf("[%s] %s = %s", ref, w.Russian, w.Translation))
			if d, ok := w.Drill(); ok {
				cases = append(cases, fmt.Sprintf("[%s] %s: %s (%s) of %s. %s", ref, d.Russian, d.CaseNameLocal, d.CaseName, d.BaseForm, d.Explanation))
			}
		}
		if len(refs) > 0 {
			sb.WriteString("    " + strings.Join(refs, "; ") + "\n")
		}
		for _, c := range cases {
			sb.WriteString("    Case " + c + "\n")
		}
		if line.GrammarPoint != nil {
			sb.WriteString(fmt.Sprintf("    Grammar: %s\n", line.GrammarPoint.Title))
		}
	}
	sb.WriteString("\nUse tutor_favorite_add with a word reference (W1, W2, ...) to save a word, or tutor_case_drill for its declension table.")
	return sb.String()
}

// resolveWord finds a word by session reference, favorite, or raw fields.
func (s *Server) resolveWord(args map[string]any) (tutor.Word, bool) {
	ref := stringArg(args, "word")
	if w, ok := s.client.Session().Lookup(ref); ok {
		return w, true
	}
	if fw, ok := s.client.Favorites().Get(ref); ok {
		return fw.Word, true
	}
	return tutor.Word{
		Russian:       ref,
		Translation:   stringArg(args, "japanese"),
		Pronunciation: stringArg(args, "pronunciation"),
	}, false
}

func (s *Server) handleCaseDrill(_ context.Context, args map[string]any) (*ToolResult, error) {
	if stringArg(args, "word") == "" {
		return errorResult("word is required"), nil
	}
	w, known := s.resolveWord(args)
	if !known {
		return errorResult("%s is neither a session reference nor a favorite", w.Russian), nil
	}
	d, ok := w.Drill()
	if !ok {
		return errorResult("no case information for %s", w.Russian), nil
	}
	return &ToolResult{Content: formatCaseDrill(d)}, nil
}

func formatCaseDrill(d tutor.CaseDrill) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Case drill: %s (used as %s)\n", d.BaseForm, d.Russian))
	sb.WriteString(fmt.Sprintf("Case: %s (%s)\n", d.CaseNameLocal, d.CaseName))
	sb.WriteString("Why: " + d.Explanation + "\n\n")
	sb.WriteString("| Case | Singular | Plural |\n|---|---|---|\n")
	for _, row := range d.Rows {
		name := fmt.Sprintf("%s (%s)", row.CaseLocal, row.Case)
		if row.Current {
			name = "**" + name + "** ←"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", name, row.Singular, row.Plural))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Server) handleFavoriteAdd(_ context.Context, args map[string]any) (*ToolResult, error) {
	if stringArg(args, "word") == "" {
		return errorResult("word is required"), nil
	}
	w, known := s.resolveWord(args)
	if !known && w.Translation == "" {
		return errorResult("japanese is required when word is not a session reference"), nil
	}
	added, err := s.client.AddFavorite(w)
	if err != nil {
		return errorResult("add favorite failed: %v", err), nil
	}
	if !added {
		return &ToolResult{Content: fmt.Sprintf("%s is already a favorite.", w.Russian)}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("Added %s (%s) to favorites. First review: today.", w.Russian, w.Translation)}, nil
}

func (s *Server) handleFavoriteRemove(_ context.Context, args map[string]any) (*ToolResult, error) {
	if stringArg(args, "word") == "" {
		return errorResult("word is required"), nil
	}
	w, _ := s.resolveWord(args)
	removed, err := s.client.RemoveFavorite(w.Russian)
	if err != nil {
		return errorResult("remove favorite failed: %v", err), nil
	}
	if !removed {
		return errorResult("%s is not a favorite", w.Russian), nil
	}
	return &ToolResult{Content: fmt.Sprintf("Removed %s from favorites.", w.Russian)}, nil
}

func (s *Server) handleReviewNext(_ context.Context, args map[string]any) (*ToolResult, error) {
	limit := 10
	if n, ok := args["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}
	queue := s.client.ReviewQueue()
	if len(queue) == 0 {
		return &ToolResult{Content: "Nothing is due for review today."}, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d word(s) due:\n", len(queue)))
	for i, fw := range queue {
		if i == limit {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(queue)-limit))
			break
		}
		ref := s.client.Session().Track(fw.Word)
		sb.WriteString(fmt.Sprintf("  [%s] %s (%s) interval %dd, ease %.2f\n",
			ref, fw.Russian, fw.Pronunciation, fw.Interval, fw.EaseFactor))
	}
	sb.WriteString("\nRate each with tutor_review_rate: again, good or easy.")
	return &ToolResult{Content: sb.String()}, nil
}

func (s *Server) handleReviewRate(_ context.Context, args map[string]any) (*ToolResult, error) {
	if stringArg(args, "word") == "" {
		return errorResult("word is required"), nil
	}
	rating, err := tutor.ParseRating(stringArg(args, "rating"))
	if err != nil {
		return errorResult("%v", err), nil
	}
	w, _ := s.resolveWord(args)
	fw, err := s.client.Rate(w.Russian, rating)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return &ToolResult{Content: fmt.Sprintf("%s rated %s. Next review %s (interval %dd, ease %.2f).",
		fw.Russian, rating, fw.NextReviewDate.Format("2006-01-02"), fw.Interval, fw.EaseFactor)}, nil
}

func (s *Server) handlePronunciationFeedback(ctx context.Context, args map[string]any) (*ToolResult, error) {
	transcript := stringArg(args, "transcript")
	correct := stringArg(args, "correct_phrase")
	if transcript == "" || correct == "" {
		return errorResult("transcript and correct_phrase are required"), nil
	}
	fb, err := s.client.PronunciationFeedback(ctx, transcript, correct)
	if err != nil {
		return errorResult("%s", userFacing(err)), nil
	}
	verdict := "needs work"
	if fb.IsCorrect {
		verdict = "correct"
	}
	return &ToolResult{Content: fmt.Sprintf("Score: %.0f/100 (%s)\n%s", fb.Score, verdict, fb.Text)}, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
