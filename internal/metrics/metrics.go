package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects delivery and scheduler metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// MessagesTotal counts persisted chat messages.
	// Labels: path (http|live), delivered (true|false)
	MessagesTotal *prometheus.CounterVec

	// PushTotal counts push attempts.
	// Labels: result (sent|failed)
	PushTotal *prometheus.CounterVec

	// TicksTotal counts scheduler ticks.
	// Labels: outcome (ok|skipped|busy|error)
	TicksTotal *prometheus.CounterVec

	// TickDuration measures completed ticks in seconds.
	TickDuration prometheus.Histogram

	// FiredTotal counts scheduled definitions fired.
	// Labels: schedule_type (once|daily)
	FiredTotal *prometheus.CounterVec

	registerer prometheus.Registerer
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diet_messages_total",
				Help: "Chat messages persisted, by ingress path and live delivery outcome",
			},
			[]string{"path", "delivered"},
		),
		PushTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diet_push_total",
				Help: "Push notification attempts by result",
			},
			[]string{"result"},
		),
		TicksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diet_scheduler_ticks_total",
				Help: "Scheduler ticks by outcome",
			},
			[]string{"outcome"},
		),
		TickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "diet_scheduler_tick_duration_seconds",
				Help:    "Duration of scheduler ticks in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		FiredTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diet_scheduled_fired_total",
				Help: "Scheduled notifications fired by schedule type",
			},
			[]string{"schedule_type"},
		),
		registerer: reg,
	}
}

// ObserveConnections exports the number of live channels as a gauge.
func (m *Metrics) ObserveConnections(count func() int) {
	if m == nil {
		return
	}
	promauto.With(m.registerer).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "diet_live_connections",
			Help: "Currently registered live channels",
		},
		func() float64 { return float64(count()) },
	)
}

// ObserveDroppedEvents exports the number of domain events dropped by a
// full publish queue.
func (m *Metrics) ObserveDroppedEvents(count func() int64) {
	if m == nil {
		return
	}
	promauto.With(m.registerer).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "diet_events_dropped_total",
			Help: "Domain events dropped because the publish queue was full",
		},
		func() float64 { return float64(count()) },
	)
}

func (m *Metrics) MessageSent(path string, delivered bool) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(path, strconv.FormatBool(delivered)).Inc()
}

func (m *Metrics) PushAttempted(err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.PushTotal.WithLabelValues(result).Inc()
}

// TickCompleted records one tick. Only ticks that ran are timed.
func (m *Metrics) TickCompleted(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TicksTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeError {
		m.TickDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Fired(kind string) {
	if m == nil {
		return
	}
	m.FiredTotal.WithLabelValues(kind).Inc()
}

// Tick outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeBusy    = "busy"
	OutcomeError   = "error"
)

// Path labels for MessageSent.
const (
	PathHTTP = "http"
	PathLive = "live"
)
