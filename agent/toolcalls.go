package agent

import (
	"encoding/json"
	"fmt"
	"strconv"

	"rental-agent/llmclient"
)

// Tool names declared to the model. search_listings is the retrieval-capable
// tool; its presence in a turn's trace is the authoritative "search
// performed" signal.
const (
	ToolSearchListings    = "search_listings"
	ToolGetListingDetails = "get_listing_details"
)

// ToolCallRecord is one tool invocation the model made during a turn, with
// its arguments re-derived into a typed variant. Order reflects invocation
// order.
type ToolCallRecord struct {
	Name      string
	Arguments ToolArguments
}

// ToolArguments is a closed set of per-tool argument variants. Malformed or
// unknown payloads become RawArguments rather than aborting the turn.
type ToolArguments interface {
	isToolArguments()
}

// SearchArguments are the parsed arguments of a search_listings call. Filters
// holds the raw filter parameters exactly as the filter compiler expects
// them.
type SearchArguments struct {
	Query   string
	Filters map[string]string
	Limit   int
}

// DetailsArguments are the parsed arguments of a get_listing_details call.
type DetailsArguments struct {
	ListingIDs []string
}

// RawArguments preserves an argument payload that failed to parse.
type RawArguments struct {
	Raw string
}

func (SearchArguments) isToolArguments()  {}
func (DetailsArguments) isToolArguments() {}
func (RawArguments) isToolArguments()     {}

// searchFilterKeys are the argument fields forwarded to the filter compiler.
var searchFilterKeys = []string{
	"ids", "property_type", "room_type", "country", "location", "market",
	"min_price", "max_price", "min_bedrooms", "min_bathrooms",
	"min_accommodates", "min_rating", "superhost_only", "instant_bookable",
}

// ParseToolArguments re-derives typed arguments from the model's raw payload.
// On failure it returns RawArguments alongside the parse error so the caller
// can log and continue.
func ParseToolArguments(name, raw string) (ToolArguments, error) {
	switch name {
	case ToolSearchListings:
		return parseSearchArguments(raw)
	case ToolGetListingDetails:
		return parseDetailsArguments(raw)
	default:
		return RawArguments{Raw: raw}, fmt.Errorf("unknown tool %q", name)
	}
}

func parseSearchArguments(raw string) (ToolArguments, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return RawArguments{Raw: raw}, fmt.Errorf("decode search arguments: %w", err)
	}

	args := SearchArguments{Filters: map[string]string{}}
	if q, ok := payload["query"].(string); ok {
		args.Query = q
	}
	if limit, ok := payload["limit"].(float64); ok {
		args.Limit = int(limit)
	}
	for _, key := range searchFilterKeys {
		val, ok := payload[key]
		if !ok {
			continue
		}
		if s := stringifyArgument(val); s != "" {
			args.Filters[key] = s
		}
	}
	return args, nil
}

func parseDetailsArguments(raw string) (ToolArguments, error) {
	var payload struct {
		ListingIDs []any `json:"listing_ids"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return RawArguments{Raw: raw}, fmt.Errorf("decode details arguments: %w", err)
	}

	args := DetailsArguments{}
	for _, id := range payload.ListingIDs {
		if s := stringifyArgument(id); s != "" {
			args.ListingIDs = append(args.ListingIDs, s)
		}
	}
	return args, nil
}

// stringifyArgument normalizes model-emitted scalars: numbers and booleans
// arrive as JSON types but the filter compiler consumes strings.
func stringifyArgument(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// ToolDefinitions returns the tool schema declared to the model.
func ToolDefinitions() []llmclient.Tool {
	return []llmclient.Tool{
		{
			Type: "function",
			Function: llmclient.ToolFunction{
				Name:        ToolSearchListings,
				Description: "Search the rental property catalog. Combines semantic and keyword retrieval; supports structured filters.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"query": {"type": "string", "description": "Free-text description of what the user wants"},
						"location": {"type": "string", "description": "Neighbourhood, market, or country, partial match"},
						"country": {"type": "string"},
						"property_type": {"type": "string"},
						"room_type": {"type": "string"},
						"min_price": {"type": "number"},
						"max_price": {"type": "number"},
						"min_bedrooms": {"type": "integer"},
						"min_bathrooms": {"type": "integer"},
						"min_accommodates": {"type": "integer"},
						"min_rating": {"type": "number"},
						"superhost_only": {"type": "boolean"},
						"instant_bookable": {"type": "boolean"},
						"ids": {"type": "string", "description": "Comma-separated listing IDs; bypasses all other filters"},
						"limit": {"type": "integer", "description": "Maximum number of results"}
					},
					"required": ["query"]
				}`),
			},
		},
		{
			Type: "function",
			Function: llmclient.ToolFunction{
				Name:        ToolGetListingDetails,
				Description: "Fetch full details for specific listings by ID.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"listing_ids": {
							"type": "array",
							"items": {"type": "string"},
							"description": "Listing IDs from earlier search results"
						}
					},
					"required": ["listing_ids"]
				}`),
			},
		},
	}
}
