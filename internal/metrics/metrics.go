// Package metrics exposes Prometheus collectors for validation runs and voting
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names
const (
	MetricTasksTotal   = "corroborate_validator_tasks_total"
	MetricTaskDuration = "corroborate_validator_task_duration_seconds"
	MetricTriplesTotal = "corroborate_triples_total"
	MetricVotesTotal   = "corroborate_votes_total"
	MetricVoteRatio    = "corroborate_vote_ratio"
)

// Task outcomes
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Triple outcomes
const (
	TripleScheduled    = "scheduled"
	TripleSkipped      = "skipped"
	TriplePersisted    = "persisted"
	TripleFailed       = "failed"
	TriplePersistError = "persist_error"
	TripleDiscarded    = "discarded"
)

// Vote decisions
const (
	DecisionPassed   = "passed"
	DecisionRejected = "rejected"
)

// Metrics contains the collectors. A nil *Metrics records nothing.
type Metrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	triplesTotal *prometheus.CounterVec
	votesTotal   *prometheus.CounterVec
	voteRatio    prometheus.Histogram
}

// New creates unregistered collectors; call Register to expose them
func New() *Metrics {
	return &Metrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricTasksTotal,
				Help: "Validator invocations by algorithm and status",
			},
			[]string{"algorithm", "status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricTaskDuration,
				Help:    "Validator invocation duration in seconds by algorithm",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"algorithm"},
		),
		triplesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricTriplesTotal,
				Help: "(query, algorithm, article) triples by outcome",
			},
			[]string{"outcome"},
		),
		votesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricVotesTotal,
				Help: "Query votes by decision",
			},
			[]string{"decision"},
		),
		voteRatio: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricVoteRatio,
				Help:    "Distribution of per-query validation ratios",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
	}
}

// Register registers all collectors with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.tasksTotal,
		m.taskDuration,
		m.triplesTotal,
		m.votesTotal,
		m.voteRatio,
	}
}

// ObserveTask records one validator invocation
func (m *Metrics) ObserveTask(algorithm string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	m.tasksTotal.WithLabelValues(algorithm, status).Inc()
	m.taskDuration.WithLabelValues(algorithm).Observe(d.Seconds())
}

// AddTriples counts n triples with the given outcome
func (m *Metrics) AddTriples(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.triplesTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveVote records one query decision
func (m *Metrics) ObserveVote(passed bool, ratio float64) {
	if m == nil {
		return
	}
	decision := DecisionRejected
	if passed {
		decision = DecisionPassed
	}
	m.votesTotal.WithLabelValues(decision).Inc()
	m.voteRatio.Observe(ratio)
}

// Handler serves the registry in the Prometheus exposition format
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
