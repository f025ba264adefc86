package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Decision("ai")
	m.Decision("ai")
	m.Email("complaint", false)
	m.AIRequest("ok", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoutingDecisions.WithLabelValues("ai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues("complaint", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRequests.WithLabelValues("ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Decision("ai")
		m.RoutingFailure("no_department")
		m.AIRequest("error", time.Second)
		m.Candidates("fallback", 3)
		m.ReportFinished("Failed")
		m.Email("followup", true)
		m.Followup("sent")
		m.StreamOpened()
		m.StreamClosed()
	})
}
