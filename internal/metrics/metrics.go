// Package metrics exposes game loop counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/kaiplay/internal/interaction"
)

// Metrics groups the collectors updated by the game loop.
type Metrics struct {
	FramesProcessed prometheus.Counter
	FramesSkipped   *prometheus.CounterVec
	FrameLatency    prometheus.Histogram
	HandsTracked    prometheus.Gauge
	Events          *prometheus.CounterVec
	Sessions        *prometheus.CounterVec
	ActiveSession   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests rely on.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames that went through detection and the game update",
		}),
		FramesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames dropped before the game update, by reason",
		}, []string{"reason"}),
		FrameLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_latency_seconds",
			Help:      "Time from frame read to published overlay",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		HandsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hands_tracked",
			Help:      "Hands tracked in the last frame",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_events_total",
			Help:      "Gameplay events by game and kind",
		}, []string{"game", "kind"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by game and outcome",
		}, []string{"game", "outcome"}),
		ActiveSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "1 while a game session is running",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.FramesProcessed,
			m.FramesSkipped,
			m.FrameLatency,
			m.HandsTracked,
			m.Events,
			m.Sessions,
			m.ActiveSession,
		)
	}
	return m
}

// Skip reasons.
const (
	SkipRead   = "read"
	SkipDetect = "detect"
	SkipPanic  = "panic"
)

// ObserveFrame records one processed frame.
func (m *Metrics) ObserveFrame(started time.Time, hands int) {
	m.FramesProcessed.Inc()
	m.FrameLatency.Observe(time.Since(started).Seconds())
	m.HandsTracked.Set(float64(hands))
}

// Skip records a skipped frame.
func (m *Metrics) Skip(reason string) {
	m.FramesSkipped.WithLabelValues(reason).Inc()
}

// ObserveEvents counts gameplay events for game.
func (m *Metrics) ObserveEvents(game string, events []interaction.Event) {
	for _, e := range events {
		m.Events.WithLabelValues(game, string(e.Kind)).Inc()
	}
}

// Session outcomes.
const (
	OutcomeComplete = "complete"
	OutcomeStopped  = "stopped"
	OutcomeFailed   = "failed"
)

// SessionStarted marks a session as running.
func (m *Metrics) SessionStarted() {
	m.ActiveSession.Set(1)
}

// SessionEnded records how a session for game finished.
func (m *Metrics) SessionEnded(game, outcome string) {
	m.ActiveSession.Set(0)
	m.Sessions.WithLabelValues(game, outcome).Inc()
}
