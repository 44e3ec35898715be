package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediafetch-go/internal/domain"
)

// statusFor maps a service error onto an HTTP status
func statusFor(err error) int {
	var inputErr *domain.InputError
	var exhausted *domain.ExhaustedError

	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsFatal(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &exhausted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Unclassified errors are attached to
// the context for the request logger and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()

	var inputErr *domain.InputError
	if errors.As(err, &inputErr) {
		message = inputErr.Message
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "Internal server error"
	}

	c.JSON(status, errorBody(message))
}

func errorBody(message string) gin.H {
	return gin.H{"status": "error", "message": message}
}
