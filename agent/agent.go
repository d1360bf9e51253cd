package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"rental-agent/config"
	apperrors "rental-agent/errors"
	"rental-agent/llmclient"
	"rental-agent/prompts"
	"rental-agent/search"
	"rental-agent/web/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FallbackMessage is the user-visible reply when a turn fails upstream.
const FallbackMessage = "I ran into a problem while working on that. Please try again in a moment."

// ChatModel is the language-model runtime boundary.
type ChatModel interface {
	Chat(ctx context.Context, host string, messages []types.AgentMessage, tools []llmclient.Tool, temperature *float64) (*llmclient.ChatResult, error)
}

// Searcher is the hybrid retrieval boundary.
type Searcher interface {
	Search(ctx context.Context, queryText string, filter search.Filter, limit int) ([]types.SearchResult, error)
}

// Store is the session and listing persistence the agent needs.
type Store interface {
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string, metadata map[string]string, userID *uuid.UUID) (uuid.UUID, error)
	GetHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]types.Message, error)
	GetListingsByIDs(ctx context.Context, ids *search.IDSet) ([]types.Listing, error)
	SetSessionTitle(ctx context.Context, sessionID uuid.UUID, title string) error
	MergeSessionMetadata(ctx context.Context, sessionID uuid.UUID, patch map[string]string) error
}

type Agent struct {
	cfg      *config.Config
	llm      ChatModel
	searcher Searcher
	store    Store
	logger   *zap.Logger
}

func NewAgent(cfg *config.Config, llm ChatModel, searcher Searcher, store Store, logger *zap.Logger) *Agent {
	logger.Info("Agent initialized",
		zap.Int("max_tool_rounds", cfg.MaxToolRounds),
		zap.Int("history_window", cfg.HistoryWindow))
	return &Agent{
		cfg:      cfg,
		llm:      llm,
		searcher: searcher,
		store:    store,
		logger:   logger,
	}
}

// ChatResult is what a completed turn returns to the caller.
type ChatResult struct {
	AssistantText string               `json:"assistant_text"`
	SessionID     uuid.UUID            `json:"session_id"`
	Metadata      types.SearchMetadata `json:"search_metadata"`
}

// Chat runs one conversational turn: it sends the user input plus the
// trimmed session history to the model, executes the tool calls the model
// requests, and derives search metadata from the trace. Session and user
// identity are threaded through explicitly; the agent holds no per-call
// mutable state, so concurrent turns for different sessions are safe.
// Both the user and assistant messages are appended only after the turn
// completes.
func (a *Agent) Chat(ctx context.Context, input string, sessionID uuid.UUID, userID *uuid.UUID) (*ChatResult, error) {
	history, err := a.store.GetHistory(ctx, sessionID, a.cfg.HistoryWindow)
	if err != nil {
		a.logger.Warn("Failed to load session history, continuing without it",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
		history = nil
	}
	isNewSession := len(history) == 0

	messages := make([]types.AgentMessage, 0, len(history)+2)
	messages = append(messages, types.AgentMessage{Role: "system", Content: prompts.AgentSystem()})
	messages = append(messages, historyToAgentMessages(history)...)
	messages = append(messages, types.AgentMessage{Role: "user", Content: input})

	var records []ToolCallRecord
	var lastResultIDs []string
	var finalText string

	for round := 0; round < a.cfg.MaxToolRounds; round++ {
		llmCtx, cancel := context.WithTimeout(ctx, a.cfg.LLMRequestTimeout)
		result, err := a.llm.Chat(llmCtx, a.cfg.MainLLMHost, messages, ToolDefinitions(), nil)
		cancel()
		if err != nil {
			a.logger.Error("LLM call failed, aborting turn",
				zap.Error(err),
				zap.Int("round", round),
				zap.String("session_id", sessionID.String()))
			a.appendErrorTurn(ctx, sessionID, input, userID)
			return nil, fmt.Errorf("%w: %v", apperrors.ErrLLMCommunication, err)
		}

		if len(result.ToolCalls) == 0 {
			finalText = result.Content
			break
		}

		// Echo the assistant's tool-call turn so the observations that follow
		// resolve against it
		messages = append(messages, assistantToolCallMessage(result))

		for _, call := range result.ToolCalls {
			args, parseErr := ParseToolArguments(call.Name, call.Arguments)
			if parseErr != nil {
				// Partial extraction: keep the raw payload, log, continue the turn
				a.logger.Warn("Failed to parse tool arguments, keeping raw form",
					zap.Error(parseErr),
					zap.String("tool", call.Name),
					zap.String("session_id", sessionID.String()))
			}
			records = append(records, ToolCallRecord{Name: call.Name, Arguments: args})

			observation, resultIDs, execErr := a.executeToolCall(ctx, call.Name, args)
			if execErr != nil {
				a.logger.Error("Tool execution failed, aborting turn",
					zap.Error(execErr),
					zap.String("tool", call.Name),
					zap.String("session_id", sessionID.String()))
				a.appendErrorTurn(ctx, sessionID, input, userID)
				return nil, execErr
			}
			if resultIDs != nil {
				lastResultIDs = resultIDs
			}
			messages = append(messages, types.AgentMessage{
				Role:       "tool",
				Content:    observation,
				Name:       call.Name,
				ToolCallID: call.ID,
			})
		}

		if round == a.cfg.MaxToolRounds-1 {
			a.logger.Warn("Reached maximum tool rounds without a final answer",
				zap.String("session_id", sessionID.String()))
			finalText = FallbackMessage
		}
	}

	cleaned, markerSeen := StripSearchMarker(finalText)
	metadata := ExtractMetadata(records, lastResultIDs, markerSeen)

	a.persistTurn(ctx, sessionID, userID, input, cleaned, records, metadata)

	if isNewSession {
		go a.generateSessionTitle(sessionID, input)
	}

	return &ChatResult{
		AssistantText: cleaned,
		SessionID:     sessionID,
		Metadata:      metadata,
	}, nil
}

func assistantToolCallMessage(result *llmclient.ChatResult) types.AgentMessage {
	msg := types.AgentMessage{Role: "assistant", Content: result.Content}
	for _, call := range result.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, types.MessageToolCall{
			ID:   call.ID,
			Type: "function",
			Function: types.MessageToolCallFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	return msg
}

// executeToolCall runs one tool invocation and returns the observation for
// the model plus, for retrieval calls, the fused result IDs.
func (a *Agent) executeToolCall(ctx context.Context, name string, args ToolArguments) (string, []string, error) {
	switch typed := args.(type) {
	case SearchArguments:
		return a.executeSearch(ctx, typed)
	case DetailsArguments:
		observation, err := a.executeDetails(ctx, typed)
		return observation, nil, err
	case RawArguments:
		return "The tool arguments could not be parsed. Retry with valid JSON arguments.", nil, nil
	default:
		return fmt.Sprintf("Unknown tool %q.", name), nil, nil
	}
}

func (a *Agent) executeSearch(ctx context.Context, args SearchArguments) (string, []string, error) {
	filter := search.Compile(args.Filters)
	limit := args.Limit
	if limit <= 0 {
		limit = a.cfg.DefaultSearchLimit
	}
	if limit > a.cfg.MaxSearchLimit {
		limit = a.cfg.MaxSearchLimit
	}

	results, err := a.searcher.Search(ctx, args.Query, filter, limit)
	if err != nil {
		return "", nil, err
	}

	ids := make([]string, 0, len(results))
	summaries := make([]listingSummary, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.Listing.ID.String())
		summaries = append(summaries, summarizeListing(res))
	}

	if len(summaries) == 0 {
		return "No listings matched. Suggest loosening a constraint.", ids, nil
	}
	observation, err := json.Marshal(summaries)
	if err != nil {
		return "", nil, fmt.Errorf("marshal search observation: %w", err)
	}
	return string(observation), ids, nil
}

func (a *Agent) executeDetails(ctx context.Context, args DetailsArguments) (string, error) {
	filter := search.Compile(map[string]string{"ids": strings.Join(args.ListingIDs, ",")})
	if filter.IDs == nil {
		return "None of the provided listing IDs were valid.", nil
	}

	listings, err := a.store.GetListingsByIDs(ctx, filter.IDs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrDatabaseOperation, err)
	}
	if len(listings) == 0 {
		return "No listings found for the provided IDs.", nil
	}

	observation, err := json.Marshal(listings)
	if err != nil {
		return "", fmt.Errorf("marshal details observation: %w", err)
	}
	return string(observation), nil
}

// listingSummary is the compact projection returned to the model as a tool
// observation, keeping the prompt small.
type listingSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Market   string  `json:"market,omitempty"`
	Country  string  `json:"country,omitempty"`
	Price    float64 `json:"price"`
	Bedrooms int     `json:"bedrooms"`
	Rating   float64 `json:"rating,omitempty"`
	Score    float64 `json:"score"`
}

func summarizeListing(res types.SearchResult) listingSummary {
	return listingSummary{
		ID:       res.Listing.ID.String(),
		Name:     res.Listing.Name,
		Market:   res.Listing.Market,
		Country:  res.Listing.Country,
		Price:    res.Listing.Price,
		Bedrooms: res.Listing.Bedrooms,
		Rating:   res.Listing.ReviewScore,
		Score:    res.Score,
	}
}

// persistTurn appends the user and assistant messages with the derived
// metadata attached to the assistant message.
func (a *Agent) persistTurn(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, input, assistantText string, records []ToolCallRecord, metadata types.SearchMetadata) {
	if _, err := a.store.AppendMessage(ctx, sessionID, "user", input, nil, userID); err != nil {
		a.logger.Error("Failed to append user message",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
	}

	msgMetadata := map[string]string{
		"tool_calls": strconv.Itoa(len(records)),
	}
	if mdJSON, err := json.Marshal(metadata); err == nil {
		msgMetadata["search_metadata"] = string(mdJSON)
	}
	if _, err := a.store.AppendMessage(ctx, sessionID, "assistant", assistantText, msgMetadata, userID); err != nil {
		a.logger.Error("Failed to append assistant message",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
	}

	// Keep the session's rolling metadata pointing at the latest search so
	// clients restoring a session can reconstruct their filter controls
	if metadata.SearchPerformed && metadata.SearchQuery != "" {
		patch := map[string]string{"last_search_query": metadata.SearchQuery}
		if filtersJSON, err := json.Marshal(metadata.SearchFilters); err == nil && metadata.SearchFilters != nil {
			patch["last_search_filters"] = string(filtersJSON)
		}
		if err := a.store.MergeSessionMetadata(ctx, sessionID, patch); err != nil {
			a.logger.Warn("Failed to update session search metadata",
				zap.Error(err),
				zap.String("session_id", sessionID.String()))
		}
	}
}

// appendErrorTurn preserves conversation continuity on upstream failure by
// storing the user turn and an error-flagged fallback reply.
func (a *Agent) appendErrorTurn(ctx context.Context, sessionID uuid.UUID, input string, userID *uuid.UUID) {
	if _, err := a.store.AppendMessage(ctx, sessionID, "user", input, nil, userID); err != nil {
		a.logger.Warn("Failed to append user message after turn failure",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
	}
	errMetadata := map[string]string{"error": "true"}
	if _, err := a.store.AppendMessage(ctx, sessionID, "assistant", FallbackMessage, errMetadata, userID); err != nil {
		a.logger.Warn("Failed to append error-flagged assistant message",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
	}
}

func (a *Agent) generateSessionTitle(sessionID uuid.UUID, firstMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.LLMRequestTimeout)
	defer cancel()

	title, err := a.GenerateTitle(ctx, firstMessage)
	if err != nil {
		a.logger.Warn("Failed to generate session title",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
		return
	}
	if err := a.store.SetSessionTitle(ctx, sessionID, title); err != nil {
		a.logger.Warn("Failed to store session title",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
	}
}

func (a *Agent) GenerateTitle(ctx context.Context, content string) (string, error) {
	userPrompt := fmt.Sprintf(`User message:
%s

Respond with only the title.`, content)

	messages := []types.AgentMessage{
		{Role: "system", Content: prompts.TitleGenerator()},
		{Role: "user", Content: userPrompt},
	}

	result, err := a.llm.Chat(ctx, a.cfg.SummarizationLLMHost, messages, nil, nil)
	if err != nil {
		return "", fmt.Errorf("llm chat call failed for title generation: %w", err)
	}

	cleaned := sanitizeTitle(strings.TrimSpace(result.Content))
	if cleaned == "" {
		a.logger.Warn("LLM returned invalid title, using fallback",
			zap.String("raw_title", result.Content))
		return "Rental Search Session", nil
	}
	return cleaned, nil
}
