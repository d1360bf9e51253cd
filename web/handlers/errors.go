package handlers

import (
	"net/http"

	apperrors "rental-agent/errors"

	"github.com/gin-gonic/gin"
)

// FailureResponse is the structured failure object returned for search and
// chat errors. Engine errors never escape uncaught; callers always get this
// shape plus a human-readable fallback message.
type FailureResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondFailure maps the error taxonomy onto HTTP statuses and writes the
// structured failure object.
func respondFailure(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsInvalidInput(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsUpstream(err):
		status = http.StatusBadGateway
	}
	c.JSON(status, FailureResponse{
		Error:   err.Error(),
		Message: fallback,
	})
}
