package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"order-fulfillment/internal/logging"
	"order-fulfillment/internal/metrics"
	"order-fulfillment/internal/tracing"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"

	roleAdmin = "admin"

	userIDKey = "userID"
)

var propagator = propagation.TraceContext{}

// requestContext tags every request with an id, continues an incoming W3C
// trace and stores both as log fields in the request context.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracing.Start(ctx, "http "+c.Request.Method+" "+c.FullPath())
		fields := []zap.Field{zap.String("request_id", id)}
		if traceID, spanID := tracing.IDs(ctx); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID), zap.String("span_id", spanID))
		}
		c.Request = c.Request.WithContext(logging.ContextWithFields(ctx, fields...))
		c.Next()

		var err error
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			err = fmt.Errorf("http status %d", status)
		}
		tracing.End(span, err)
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := logging.FromContext(c.Request.Context(), logger)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/readyz" || c.Request.URL.Path == "/metrics":
			log.Debug("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

func recoverPanic(logger *zap.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		logging.FromContext(c.Request.Context(), logger).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// requireUser reads the caller id set by the identity proxy in front of
// this service. The header is trusted as is.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "missing " + headerUserID + " header"})
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid " + headerUserID + " header"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(strings.TrimSpace(c.GetHeader(headerUserRole)), role) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

func callerID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
