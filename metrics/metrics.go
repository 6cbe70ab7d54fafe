// Package metrics exposes Prometheus collectors for request orchestration.
//
// A nil *Metrics is a valid recorder that does nothing, so components can
// record unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rrouter"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the orchestration collectors.
type Metrics struct {
	Deliveries        *prometheus.CounterVec
	LeafCompletions   *prometheus.CounterVec
	StaleCompletions  *prometheus.CounterVec
	CoalescedRequests *prometheus.CounterVec
	DispatchFailures  *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Terminal results delivered to callers, by policy and outcome.",
		}, []string{"policy", "outcome"}),
		LeafCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaf_completions_total",
			Help:      "Leaf reports accepted for merging, by step and normalized outcome.",
		}, []string{"step", "outcome"}),
		StaleCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_completions_total",
			Help:      "Leaf reports dropped because their request was superseded or finished.",
		}, []string{"policy"}),
		CoalescedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_requests_total",
			Help:      "Requests absorbed by an identical in-flight request.",
		}, []string{"policy"}),
		DispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_failures_total",
			Help:      "Requests that could not dispatch any leaf.",
		}, []string{"policy"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time from dispatching request to terminal delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"policy", "outcome"}),
	}

	reg.MustRegister(
		m.Deliveries,
		m.LeafCompletions,
		m.StaleCompletions,
		m.CoalescedRequests,
		m.DispatchFailures,
		m.OperationDuration,
	)

	return m
}

// Delivered records a terminal delivery and the operation's duration.
func (m *Metrics) Delivered(policy string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}

	outcome := outcomeLabel(success)
	m.Deliveries.WithLabelValues(policy, outcome).Inc()
	m.OperationDuration.WithLabelValues(policy, outcome).Observe(elapsed.Seconds())
}

// LeafCompleted records an accepted leaf report.
func (m *Metrics) LeafCompleted(step string, success bool) {
	if m == nil {
		return
	}

	m.LeafCompletions.WithLabelValues(step, outcomeLabel(success)).Inc()
}

// Stale records a dropped leaf report.
func (m *Metrics) Stale(policy string) {
	if m == nil {
		return
	}

	m.StaleCompletions.WithLabelValues(policy).Inc()
}

// Coalesced records a request absorbed by an identical in-flight one.
func (m *Metrics) Coalesced(policy string) {
	if m == nil {
		return
	}

	m.CoalescedRequests.WithLabelValues(policy).Inc()
}

// DispatchFailed records a request that launched nothing.
func (m *Metrics) DispatchFailed(policy string) {
	if m == nil {
		return
	}

	m.DispatchFailures.WithLabelValues(policy).Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return OutcomeSuccess
	}

	return OutcomeFailure
}
