package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"order-fulfillment/internal/domain"
)

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.orders.ListByUser(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders)})
}

func (h *handlers) getOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) getOrderByNumber(c *gin.Context) {
	number := strings.TrimSpace(c.Param("orderNumber"))
	order, err := h.orders.GetByNumber(c.Request.Context(), number)
	if err != nil {
		writeError(c, err)
		return
	}
	if order.UserID != callerID(c) {
		writeError(c, fmt.Errorf("%w: order %s belongs to another user", domain.ErrUnauthorized, number))
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
			return
		}
	}
	cancelled, err := h.orders.Cancel(c.Request.Context(), order.ID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelled)
}

// setOrderStatus is an operator route; it skips the ownership check.
func (h *handlers) setOrderStatus(c *gin.Context) {
	id, err := pathID(c, "orderId")
	if err != nil {
		writeError(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) ownedOrder(c *gin.Context) (*domain.Order, bool) {
	id, err := pathID(c, "orderId")
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if order.UserID != callerID(c) {
		writeError(c, fmt.Errorf("%w: order %d belongs to another user", domain.ErrUnauthorized, id))
		return nil, false
	}
	return order, true
}
