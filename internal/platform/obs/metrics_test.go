package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Cycle("dispatched")
	m.Cycle("dispatched")
	m.Cycle("skipped")
	m.Notification("sms", true)
	m.Notification("sms", false)
	m.DistanceFallback()
	m.OptimizeDuration(20 * time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues("dispatched")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("skipped")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("sms", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.distanceFallbacks))
}

func TestMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.Cycle("failed")
	require.Equal(t, 1.0, testutil.ToFloat64(second.cycles.WithLabelValues("failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Cycle("dispatched")
	m.Notification("telegram", true)
	m.DistanceFallback()
	m.OptimizeDuration(time.Second)
}
