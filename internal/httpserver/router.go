package httpserver

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/metrics"
	"order-fulfillment/internal/service/payment"
)

type cartService interface {
	CreateOrGetActive(ctx context.Context, userID int64) (*domain.Cart, error)
	Get(ctx context.Context, cartID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, cartID, productID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID int64) (*domain.Cart, error)
	Clear(ctx context.Context, cartID int64) (*domain.Cart, error)
	Delete(ctx context.Context, cartID int64) error
	TransitionStatus(ctx context.Context, cartID int64, status domain.CartStatus) (*domain.Cart, error)
}

type orderService interface {
	Checkout(ctx context.Context, cartID int64) (*domain.Order, error)
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, orderID int64, reason string) (*domain.Order, error)
}

type catalogService interface {
	List(ctx context.Context, includeUnavailable bool) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
}

type webhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (payment.Result, error)
}

// Deps groups the services the router dispatches to.
type Deps struct {
	CartSvc     cartService
	OrderSvc    orderService
	CatalogSvc  catalogService
	Webhooks    webhookProcessor
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if deps.CartSvc == nil || deps.OrderSvc == nil || deps.Webhooks == nil {
		return nil, errors.New("httpserver: cart, order and webhook services are required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		requestContext(),
		accessLog(logger),
		observe(deps.Metrics),
		gin.CustomRecovery(recoverPanic(logger)),
		cors.New(corsConfig(deps.CORSOrigins)),
	)

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	h := &handlers{carts: deps.CartSvc, orders: deps.OrderSvc, catalog: deps.CatalogSvc, webhooks: deps.Webhooks}

	api := router.Group("/api")
	api.POST("/payments/webhook", h.paymentWebhook)
	if deps.CatalogSvc != nil {
		api.GET("/products", h.listProducts)
		api.GET("/products/:productId", h.getProduct)
		api.GET("/products/by-sku/:sku", h.getProductBySKU)
	}

	authed := api.Group("", requireUser())
	carts := authed.Group("/carts")
	carts.POST("", h.createCart)
	carts.GET("/:cartId", h.getCart)
	carts.POST("/:cartId/items", h.addItem)
	carts.PUT("/:cartId/items/:productId", h.updateItem)
	carts.DELETE("/:cartId/items/:productId", h.removeItem)
	carts.DELETE("/:cartId/items", h.clearCart)
	carts.DELETE("/:cartId", h.deleteCart)
	carts.PUT("/:cartId/status", h.setCartStatus)
	carts.POST("/:cartId/checkout", h.checkout)

	orders := authed.Group("/orders")
	orders.GET("", h.listOrders)
	orders.GET("/:orderId", h.getOrder)
	orders.GET("/by-number/:orderNumber", h.getOrderByNumber)
	orders.POST("/:orderId/cancel", h.cancelOrder)
	orders.PUT("/:orderId/status", requireRole(roleAdmin), h.setOrderStatus)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", headerUserID, headerUserRole, headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
