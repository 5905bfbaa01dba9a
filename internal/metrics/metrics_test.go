package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flexprice/tenantcore/internal/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTransitionCounter(t *testing.T) {
	m := NewMetrics()
	m.Transition(types.TenantStatusActive, types.TenantStatusSuspended)
	m.Transition(types.TenantStatusActive, types.TenantStatusSuspended)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("active", "suspended")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTP("GET", "/v1/tenants/:id", 200, 15*time.Millisecond)
	m.RateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "tenantcore_http_requests_total"))
	assert.True(t, strings.Contains(body, "tenantcore_rate_limited_requests_total 1"))
}
