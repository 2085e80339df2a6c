package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"order-fulfillment/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyProcessed), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. The error is attached to the context for
// the access log; internal errors are answered with a generic message.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, errorBody{Error: "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error()})
}
