package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	Turns          *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
	NodeVisits     *prometheus.CounterVec
	Completions    *prometheus.CounterVec
	ExternalErrors *prometheus.CounterVec
	ActiveTurns    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// means the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_turns_total",
				Help: "Total number of processed turns",
			},
			[]string{"stage", "outcome"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_turn_duration_seconds",
				Help:    "Duration of turn processing, NLU and NLG calls included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_visits_total",
				Help: "Total number of node entries",
			},
			[]string{"node_id", "stage"},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_sessions_completed_total",
				Help: "Total number of completed sessions",
			},
			[]string{"end_reason"},
		),
		ExternalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_external_errors_total",
				Help: "Recovered NLU/NLG failures",
			},
			[]string{"op"},
		),
		ActiveTurns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbor_turns_in_flight",
				Help: "Turns currently being processed",
			},
		),
	}
	reg.MustRegister(m.Turns, m.TurnDuration, m.NodeVisits, m.Completions, m.ExternalErrors, m.ActiveTurns)
	return m
}

// Hooks records engine events into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(_ context.Context, _ *domain.TurnEvent) {
			m.ActiveTurns.Inc()
		},
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			m.ActiveTurns.Dec()
			outcome := "ok"
			if e.Failed {
				outcome = "failed"
			}
			stage := string(e.Stage)
			if stage == "" {
				stage = "none"
			}
			m.Turns.WithLabelValues(stage, outcome).Inc()
			m.TurnDuration.WithLabelValues(stage).Observe(e.Duration.Seconds())
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID, string(e.Stage)).Inc()
		},
		OnSessionComplete: func(_ context.Context, e *domain.SessionEvent) {
			m.Completions.WithLabelValues(e.EndReason).Inc()
		},
		OnExternalError: func(_ context.Context, e *domain.ExternalErrorEvent) {
			m.ExternalErrors.WithLabelValues(e.Op).Inc()
		},
	}
}
