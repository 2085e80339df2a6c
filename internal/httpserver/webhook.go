package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/service/payment"
)

const maxWebhookBody = 1 << 20

// paymentWebhook answers 200 for every delivery it verified, whether or not
// it could be applied, so the payment processor stops retrying.
func (h *handlers) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody{Error: "payload too large"})
			return
		}
		writeError(c, err)
		return
	}

	res, err := h.webhooks.HandleWebhook(c.Request.Context(), payload, c.GetHeader(payment.SignatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "invalid signature"})
			return
		}
		writeError(c, err)
		return
	}
	if res.Err != nil {
		_ = c.Error(fmt.Errorf("webhook %s %s: %w", res.EventID, res.Outcome, res.Err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "handled": res.Handled, "duplicate": res.Duplicate})
}
