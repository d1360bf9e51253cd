package types

import (
	"time"

	"github.com/google/uuid"
)

// AgentMessage represents a message in the format expected by the agent and LLM.
type AgentMessage struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Name       string            `json:"name,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolCalls  []MessageToolCall `json:"tool_calls,omitempty"`
}

// MessageToolCall echoes a tool invocation on an assistant message so the
// following tool-role observations resolve against it.
type MessageToolCall struct {
	ID       string                  `json:"id"`
	Type     string                  `json:"type"`
	Function MessageToolCallFunction `json:"function"`
}

type MessageToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single conversation message as stored in the DB.
// Messages are immutable once appended.
type Message struct {
	ID        uuid.UUID         `json:"id"`
	SessionID uuid.UUID         `json:"session_id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session represents a conversation session. UserID is nil for anonymous
// sessions.
type Session struct {
	ID            uuid.UUID         `json:"id"`
	UserID        *uuid.UUID        `json:"user_id,omitempty"`
	Title         string            `json:"title"`
	TotalMessages int               `json:"total_messages"`
	CreatedAt     time.Time         `json:"created_at"`
	LastActive    time.Time         `json:"last_active"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Listing is the stored projection of a rental property.
type Listing struct {
	ID              uuid.UUID `json:"id"`
	LegacyID        int64     `json:"legacy_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PropertyType    string    `json:"property_type"`
	RoomType        string    `json:"room_type"`
	Neighbourhood   string    `json:"neighbourhood"`
	Market          string    `json:"market"`
	Country         string    `json:"country"`
	Price           float64   `json:"price"`
	Bedrooms        int       `json:"bedrooms"`
	Bathrooms       float64   `json:"bathrooms"`
	Accommodates    int       `json:"accommodates"`
	ReviewScore     float64   `json:"review_score"`
	HostIsSuperhost bool      `json:"host_is_superhost"`
	InstantBookable bool      `json:"instant_bookable"`
	Amenities       []string  `json:"amenities,omitempty"`
}

// Search result source tags.
const (
	SourceSemantic = "semantic"
	SourceLexical  = "lexical"
)

// SearchResult is one scored hit in a fused result list. Within a fused list
// the listing ID is unique.
type SearchResult struct {
	Listing Listing `json:"listing"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
}

// SearchMetadata is derived from a turn's tool-call trace and attached to the
// assistant message so the calling UI can mirror what the model searched for.
type SearchMetadata struct {
	SearchPerformed          bool              `json:"search_performed"`
	SearchQuery              string            `json:"search_query,omitempty"`
	SearchFilters            map[string]string `json:"search_filters,omitempty"`
	SearchLimit              int               `json:"search_limit,omitempty"`
	ResultIDs                []string          `json:"result_ids,omitempty"`
	PropertyDetailsRequested bool              `json:"property_details_requested,omitempty"`
	PropertyIDs              []string          `json:"property_ids,omitempty"`
}
