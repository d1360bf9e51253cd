package handlers

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "rental-agent/errors"
	"rental-agent/search"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SearchHandler struct {
	searcher           *search.Hybrid
	defaultSearchLimit int
	maxSearchLimit     int
	logger             *zap.Logger
}

func NewSearchHandler(searcher *search.Hybrid, defaultLimit, maxLimit int, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher:           searcher,
		defaultSearchLimit: defaultLimit,
		maxSearchLimit:     maxLimit,
		logger:             logger,
	}
}

// Search runs a hybrid listing search directly, without the conversational
// layer. Every query parameter besides q and limit is treated as a raw
// filter parameter; the compiler ignores what it doesn't recognize.
func (h *SearchHandler) Search(c *gin.Context) {
	queryText := strings.TrimSpace(c.Query("q"))
	if queryText == "" {
		respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "q is required"), "Please provide a search query.")
		return
	}

	limit := h.defaultSearchLimit
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "limit must be a positive integer"), "The limit parameter is not valid.")
			return
		}
		limit = parsed
	}
	if limit > h.maxSearchLimit {
		limit = h.maxSearchLimit
	}

	rawParams := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if key == "q" || key == "limit" || len(values) == 0 {
			continue
		}
		rawParams[key] = values[0]
	}
	filter := search.Compile(rawParams)

	results, err := h.searcher.Search(c.Request.Context(), queryText, filter, limit)
	if err != nil {
		h.logger.Error("Hybrid search failed",
			zap.Error(err),
			zap.String("query", queryText))
		respondFailure(c, err, "Search is unavailable right now. Please try again.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   queryText,
		"count":   len(results),
		"results": results,
	})
}
