package agent

import (
	"strings"

	"rental-agent/web/types"
)

// SearchMarker is the machine-readable marker the system prompt instructs the
// model to emit when it searched. It is a best-effort fallback signal; the
// tool-call trace is authoritative.
const SearchMarker = "[SEARCH_PERFORMED]"

// StripSearchMarker removes the marker from the model's final text and
// reports whether it was present.
func StripSearchMarker(text string) (string, bool) {
	if !strings.Contains(text, SearchMarker) {
		return text, false
	}
	cleaned := strings.ReplaceAll(text, SearchMarker, "")
	return strings.TrimSpace(cleaned), true
}

// ExtractMetadata derives UI-facing search metadata from a turn's ordered
// tool-call trace. The last retrieval call wins for query/filters/limit since
// a single turn may refine its search; resultIDs come from the most recent
// fused search the orchestrator ran. markerSeen is the text-marker fallback
// signal for turns where the trace carries no retrieval call.
func ExtractMetadata(records []ToolCallRecord, resultIDs []string, markerSeen bool) types.SearchMetadata {
	md := types.SearchMetadata{}

	for _, record := range records {
		switch record.Name {
		case ToolSearchListings:
			// The tool was invoked even if its arguments failed to parse
			md.SearchPerformed = true
			if args, ok := record.Arguments.(SearchArguments); ok {
				md.SearchQuery = args.Query
				if len(args.Filters) > 0 {
					md.SearchFilters = args.Filters
				} else {
					md.SearchFilters = nil
				}
				md.SearchLimit = args.Limit
			}
		case ToolGetListingDetails:
			if args, ok := record.Arguments.(DetailsArguments); ok {
				md.PropertyDetailsRequested = true
				md.PropertyIDs = append(md.PropertyIDs, args.ListingIDs...)
			}
		}
	}

	if md.SearchPerformed {
		md.ResultIDs = resultIDs
	} else if markerSeen {
		md.SearchPerformed = true
	}

	return md
}
