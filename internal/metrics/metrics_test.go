package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("test")

	m.Checkout(OutcomeSuccess)
	m.Checkout(OutcomeSuccess)
	m.Checkout(OutcomeRejected)
	m.WebhookEvent("", OutcomeIgnored)
	m.EventPublished("order-events", OutcomeError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkouts.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("unknown", OutcomeIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("order-events", OutcomeError)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Checkout(OutcomeSuccess)
	m.WebhookEvent("x", OutcomeSuccess)
	m.EventPublished("t", OutcomeSuccess)
	m.ObserveHTTP("/", http.MethodGet, 200, time.Millisecond)
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.ObserveHTTP("/api/carts", http.MethodPost, 201, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_http_request_duration_seconds_count{method="POST",route="/api/carts",status="201"} 1`), body)
}
