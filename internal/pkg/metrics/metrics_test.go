package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewNop()

	m.ObserveFetchAttempt("overpass", "ok", 120*time.Millisecond)
	m.ObserveFetchAttempt("overpass", "ok", 80*time.Millisecond)
	m.RecordSourceOutcome("OSM", "failed")
	m.RecordSearchCache(true)
	m.RecordRefresh("OSM", 12, nil)
	m.RecordRefresh("OSM", 0, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchAttemptsTotal.WithLabelValues("overpass", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceOutcomesTotal.WithLabelValues("OSM", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.RefreshRowsTotal.WithLabelValues("OSM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshRunsTotal.WithLabelValues("OSM", "failed")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetchAttempt("x", "ok", time.Second)
		m.RecordSourceOutcome("x", "ok")
		m.ObserveAggregation(time.Second)
		m.RecordSearchCache(false)
		m.RecordRefresh("x", 1, nil)
	})
}
