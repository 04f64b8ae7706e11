package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveProviderRequest(t *testing.T) {
	m := NewMetrics("test_observe_provider", prometheus.NewRegistry())

	m.ObserveProviderRequest("stripe", "create_payment", 120*time.Millisecond, true)
	m.ObserveProviderRequest("stripe", "create_payment", 80*time.Millisecond, true)
	m.ObserveProviderRequest("payu", "refund", 50*time.Millisecond, false)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.ProviderRequests.WithLabelValues("stripe", "create_payment", "success")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.ProviderRequests.WithLabelValues("payu", "refund", "failure")))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(m.ProviderRequests.WithLabelValues("payu", "refund", "success")))
}
