package handlers

import (
	"net/http"
	"strconv"

	"rental-agent/database"
	apperrors "rental-agent/errors"
	"rental-agent/web/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxHistoryLimit caps callers' history page size so one request cannot pull
// an unbounded slice of the messages table.
const maxHistoryLimit = 200

// parseHistoryLimit validates the limit query parameter, falling back to the
// handler default when absent and clamping oversized requests.
func parseHistoryLimit(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, apperrors.ErrInvalidInput
	}
	if parsed > maxHistoryLimit {
		return maxHistoryLimit, nil
	}
	return parsed, nil
}

type SessionHandler struct {
	store         *database.PostgresStore
	historyWindow int
	logger        *zap.Logger
}

func NewSessionHandler(store *database.PostgresStore, historyWindow int, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:         store,
		historyWindow: historyWindow,
		logger:        logger,
	}
}

// GetSession returns the session record with its counters and rolling
// metadata.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "malformed session id"), "The session ID is not valid.")
		return
	}

	session, err := h.store.GetSessionByID(c.Request.Context(), sessionID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			h.logger.Error("Failed to load session",
				zap.Error(err),
				zap.String("session_id", sessionID.String()))
		}
		respondFailure(c, err, "Could not load the session.")
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetHistory returns the chronologically last `limit` messages of a session.
func (h *SessionHandler) GetHistory(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "malformed session id"), "The session ID is not valid.")
		return
	}

	limit, err := parseHistoryLimit(c.Query("limit"), h.historyWindow)
	if err != nil {
		respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "limit must be a positive integer"), "The limit parameter is not valid.")
		return
	}

	messages, err := h.store.GetHistory(c.Request.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("Failed to load session history",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
		respondFailure(c, err, "Could not load the conversation history.")
		return
	}
	if messages == nil {
		messages = []types.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// DeleteSession removes a session and its messages.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "malformed session id"), "The session ID is not valid.")
		return
	}

	if err := h.store.DeleteSession(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("Failed to delete session",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
		respondFailure(c, err, "Could not delete the session.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": sessionID})
}
