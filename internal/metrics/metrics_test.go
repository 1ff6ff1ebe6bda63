package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.MessageSent(PathHTTP, true)
	m.PushAttempted(nil)
	m.TickCompleted(OutcomeOK, time.Second)
	m.Fired("daily")
	m.ObserveConnections(func() int { return 1 })
	m.ObserveDroppedEvents(func() int64 { return 1 })
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.MessageSent(PathLive, true)
	m.MessageSent(PathLive, true)
	m.MessageSent(PathHTTP, false)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues(PathLive, "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues(PathHTTP, "false")))

	m.PushAttempted(nil)
	m.PushAttempted(errors.New("boom"))
	m.PushAttempted(errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PushTotal.WithLabelValues("sent")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PushTotal.WithLabelValues("failed")))

	m.TickCompleted(OutcomeOK, 10*time.Millisecond)
	m.TickCompleted(OutcomeBusy, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksTotal.WithLabelValues(OutcomeBusy)))
}

func TestObservedGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	conns := 3
	m.ObserveConnections(func() int { return conns })
	m.ObserveDroppedEvents(func() int64 { return 7 })

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[f.GetName()] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil && len(metric.GetLabel()) == 0:
				values[f.GetName()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, values["diet_live_connections"])
	assert.Equal(t, 7.0, values["diet_events_dropped_total"])
}
