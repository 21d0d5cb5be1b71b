package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOrderMetricsExposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	srv := NewServerMetrics(reg)

	m.Placed.Inc()
	m.Transitions.WithLabelValues("confirmed").Inc()
	m.Cancelled.WithLabelValues("customer").Inc()
	srv.Requests.WithLabelValues("GET /products", "200").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Placed))

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	for _, line := range []string{
		"minimarket_orders_placed_total 1",
		`minimarket_orders_transitions_total{state="confirmed"} 1`,
		`minimarket_http_requests_total{handler="GET /products",status="200"} 1`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewOrderMetrics(reg)
	assert.Panics(t, func() { NewOrderMetrics(reg) })
}
