package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"order-fulfillment/internal/domain"
)

type handlers struct {
	carts    cartService
	orders   orderService
	catalog  catalogService
	webhooks webhookProcessor
}

type cartResponse struct {
	ID         int64             `json:"id"`
	UserID     int64             `json:"userId"`
	Status     domain.CartStatus `json:"status"`
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"totalItems"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func toCartResponse(c *domain.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Status:     c.Status,
		Items:      items,
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice(),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type addItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handlers) createCart(c *gin.Context) {
	cart, err := h.carts.CreateOrGetActive(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) getCart(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) addItem(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	updated, err := h.carts.AddItem(c.Request.Context(), cart.ID, req.ProductID, req.Quantity)
	h.respondCart(c, updated, err)
}

func (h *handlers) updateItem(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		writeError(c, err)
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	updated, err := h.carts.UpdateItemQuantity(c.Request.Context(), cart.ID, productID, req.Quantity)
	h.respondCart(c, updated, err)
}

func (h *handlers) removeItem(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		writeError(c, err)
		return
	}
	updated, err := h.carts.RemoveItem(c.Request.Context(), cart.ID, productID)
	h.respondCart(c, updated, err)
}

func (h *handlers) clearCart(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	updated, err := h.carts.Clear(c.Request.Context(), cart.ID)
	h.respondCart(c, updated, err)
}

func (h *handlers) deleteCart(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	if err := h.carts.Delete(c.Request.Context(), cart.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setCartStatus(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	status, err := domain.ParseCartStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	updated, err := h.carts.TransitionStatus(c.Request.Context(), cart.ID, status)
	h.respondCart(c, updated, err)
}

func (h *handlers) checkout(c *gin.Context) {
	cart, ok := h.ownedCart(c)
	if !ok {
		return
	}
	order, err := h.orders.Checkout(c.Request.Context(), cart.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *handlers) respondCart(c *gin.Context, cart *domain.Cart, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

// ownedCart loads the cart named in the path and checks that the caller
// owns it. On failure the response is already written.
func (h *handlers) ownedCart(c *gin.Context) (*domain.Cart, bool) {
	id, err := pathID(c, "cartId")
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	cart, err := h.carts.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if cart.UserID != callerID(c) {
		writeError(c, fmt.Errorf("%w: cart %d belongs to another user", domain.ErrUnauthorized, id))
		return nil, false
	}
	return cart, true
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, name)
	}
	return id, nil
}
