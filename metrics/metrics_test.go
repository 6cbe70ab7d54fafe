package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Delivered("only_local", true, 10*time.Millisecond)
	m.LeafCompleted("local", false)
	m.Stale("only_local")
	m.Coalesced("only_local")
	m.DispatchFailed("only_local")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}

	assert.ElementsMatch(t, []string{
		"rrouter_deliveries_total",
		"rrouter_leaf_completions_total",
		"rrouter_stale_completions_total",
		"rrouter_coalesced_requests_total",
		"rrouter_dispatch_failures_total",
		"rrouter_operation_duration_seconds",
	}, names)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Delivered("race_local_and_remote", true, time.Millisecond)
	m.Delivered("race_local_and_remote", true, time.Millisecond)
	m.Delivered("race_local_and_remote", false, time.Millisecond)
	m.LeafCompleted("remote", true)
	m.Stale("race_local_and_remote")
	m.Coalesced("only_remote")
	m.Coalesced("only_remote")
	m.DispatchFailed("only_local")

	assert.InDelta(t, 2, testutil.ToFloat64(m.Deliveries.WithLabelValues("race_local_and_remote", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Deliveries.WithLabelValues("race_local_and_remote", OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LeafCompletions.WithLabelValues("remote", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StaleCompletions.WithLabelValues("race_local_and_remote")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CoalescedRequests.WithLabelValues("only_remote")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DispatchFailures.WithLabelValues("only_local")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Delivered("p", true, time.Second)
		m.LeafCompleted("local", true)
		m.Stale("p")
		m.Coalesced("p")
		m.DispatchFailed("p")
	})
}
