// Package metrics provides Prometheus collectors for the rating engine.
//
// All methods are safe on a nil *Metrics, so components can be built
// without metrics in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cogniz"

// Metrics holds the engine's collectors.
type Metrics struct {
	ratingUpdates    *prometheus.CounterVec
	ratingDelta      prometheus.Histogram
	skillRating      *prometheus.GaugeVec
	trialsRecorded   *prometheus.CounterVec
	sessionsStarted  *prometheus.CounterVec
	sessionsEnded    *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	validationErrors prometheus.Counter
	usageErrors      *prometheus.CounterVec
	storageErrors    *prometheus.CounterVec
	plansComposed    prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ratingUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_updates_total",
			Help:      "Rating updates applied, by skill.",
		}, []string{"skill"}),
		ratingDelta: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rating_delta",
			Help:      "Distribution of Elo deltas applied to skills.",
			Buckets:   []float64{-32, -16, -8, -4, -1, 0, 1, 4, 8, 16, 32},
		}),
		skillRating: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skill_rating",
			Help:      "Current rating of each skill.",
		}, []string{"skill"}),
		trialsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_recorded_total",
			Help:      "Trials recorded, by game and outcome.",
		}, []string{"game", "outcome"}),
		sessionsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions started, by game.",
		}, []string{"game"}),
		sessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions ended, by game.",
		}, []string{"game"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently open.",
		}),
		validationErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_validation_errors_total",
			Help:      "Trial inputs rejected at the boundary.",
		}),
		usageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_errors_total",
			Help:      "Out-of-order or unknown-id calls, by operation.",
		}, []string{"op"}),
		storageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Persistence failures swallowed by the engine, by operation.",
		}, []string{"op"}),
		plansComposed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_composed_total",
			Help:      "Training plans produced.",
		}),
	}
}

// RatingUpdated records one applied rating update.
func (m *Metrics) RatingUpdated(skillID string, delta float64, newRating int) {
	if m == nil {
		return
	}
	m.ratingUpdates.WithLabelValues(skillID).Inc()
	m.ratingDelta.Observe(delta)
	m.skillRating.WithLabelValues(skillID).Set(float64(newRating))
}

// RatingSet records a rating without an update (load or reset).
func (m *Metrics) RatingSet(skillID string, rating int) {
	if m == nil {
		return
	}
	m.skillRating.WithLabelValues(skillID).Set(float64(rating))
}

// TrialRecorded counts a recorded trial.
func (m *Metrics) TrialRecorded(gameID string, correct bool) {
	if m == nil {
		return
	}
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	m.trialsRecorded.WithLabelValues(gameID, outcome).Inc()
}

// SessionStarted counts a started session.
func (m *Metrics) SessionStarted(gameID string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(gameID).Inc()
	m.activeSessions.Inc()
}

// SessionEnded counts an ended session.
func (m *Metrics) SessionEnded(gameID string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(gameID).Inc()
	m.activeSessions.Dec()
}

// ValidationError counts a rejected trial input.
func (m *Metrics) ValidationError() {
	if m == nil {
		return
	}
	m.validationErrors.Inc()
}

// UsageError counts a non-fatal usage error.
func (m *Metrics) UsageError(op string) {
	if m == nil {
		return
	}
	m.usageErrors.WithLabelValues(op).Inc()
}

// StorageError counts a swallowed persistence failure.
func (m *Metrics) StorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

// PlanComposed counts a composed plan.
func (m *Metrics) PlanComposed() {
	if m == nil {
		return
	}
	m.plansComposed.Inc()
}
