package handlers

import (
	"net/http"
	"strings"

	"rental-agent/agent"
	apperrors "rental-agent/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	agent  *agent.Agent
	logger *zap.Logger
}

type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

func NewChatHandler(agent *agent.Agent, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		agent:  agent,
		logger: logger,
	}
}

// SendMessage runs one conversational turn. The session ID comes from the
// request body when the caller manages sessions itself, otherwise from the
// cookie middleware.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "message is required"), "Please provide a message.")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "message is empty"), "Please provide a message.")
		return
	}

	sessionID := c.MustGet("sessionID").(uuid.UUID)
	if req.SessionID != "" {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			respondFailure(c, apperrors.WrapError(apperrors.ErrInvalidInput, "malformed session id"), "The session ID is not valid.")
			return
		}
		sessionID = parsed
	}

	result, err := h.agent.Chat(c.Request.Context(), req.Message, sessionID, nil)
	if err != nil {
		h.logger.Error("Chat turn failed",
			zap.Error(err),
			zap.String("session_id", sessionID.String()))
		respondFailure(c, err, agent.FallbackMessage)
		return
	}

	c.JSON(http.StatusOK, result)
}
