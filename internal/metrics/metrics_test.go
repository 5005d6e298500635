package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ChoreCompleted()
	m.ChoreCompleted()
	m.AuthzDecision("delete_chore", false)
	m.AuthzDecision("delete_chore", true)
	m.AuthzDecision("delete_chore", true)
	m.RosterChanged("add")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.completions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authzDecisions.WithLabelValues("delete_chore", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authzDecisions.WithLabelValues("delete_chore", "deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rosterChanges.WithLabelValues("add")))
}

func TestObserveDroppedBroadcasts(t *testing.T) {
	m := New()
	var dropped uint64 = 3
	m.ObserveDroppedBroadcasts(func() uint64 { return dropped })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "choreboss_ws_dropped_total 3")

	dropped = 5
	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "choreboss_ws_dropped_total 5")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChoreCompleted()
		m.AuthzDecision("add_person", true)
		m.RosterChanged("delete")
		m.ObserveDroppedBroadcasts(func() uint64 { return 1 })
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ChoreCompleted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "choreboss_chore_completions_total 1"))
}
