// Package metrics содержит Prometheus метрики конвейера агрегации.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "service_aggregator"

// Metrics - все метрики сервиса
type Metrics struct {
	// Исходящие HTTP вызовы
	FetchAttemptsTotal  *prometheus.CounterVec   // попытки по target и outcome
	FetchDurationSecond *prometheus.HistogramVec // длительность попытки по target

	// Агрегация
	SourceOutcomesTotal       *prometheus.CounterVec // исход по источнику: ok, failed, timeout
	AggregationDurationSecond prometheus.Histogram
	SearchCacheTotal          *prometheus.CounterVec // hit, miss

	// Обновление данных
	RefreshRowsTotal *prometheus.CounterVec // записанные строки по provider
	RefreshRunsTotal *prometheus.CounterVec // запуски по provider и outcome

	Registry prometheus.Gatherer
}

// New регистрирует метрики в reg. Если reg == nil, создаётся отдельный реестр.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		FetchAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Outbound HTTP attempts by target and outcome",
		}, []string{"target", "outcome"}),

		FetchDurationSecond: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_attempt_duration_seconds",
			Help:      "Duration of a single outbound HTTP attempt",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"target"}),

		SourceOutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_source_outcomes_total",
			Help:      "Aggregation source results by source and outcome",
		}, []string{"source", "outcome"}),

		AggregationDurationSecond: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "End to end aggregation latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 10},
		}),

		SearchCacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Search cache lookups by result",
		}, []string{"result"}),

		RefreshRowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_rows_total",
			Help:      "Rows written by provider refreshes",
		}, []string{"provider"}),

		RefreshRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Provider refresh runs by outcome",
		}, []string{"provider", "outcome"}),

		Registry: reg,
	}
}

// NewNop - метрики в отдельном реестре, для тестов и CLI
func NewNop() *Metrics {
	return New(nil)
}

func (m *Metrics) ObserveFetchAttempt(target, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchAttemptsTotal.WithLabelValues(target, outcome).Inc()
	m.FetchDurationSecond.WithLabelValues(target).Observe(d.Seconds())
}

func (m *Metrics) RecordSourceOutcome(source, outcome string) {
	if m == nil {
		return
	}
	m.SourceOutcomesTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveAggregation(d time.Duration) {
	if m == nil {
		return
	}
	m.AggregationDurationSecond.Observe(d.Seconds())
}

func (m *Metrics) RecordSearchCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRefresh(provider string, rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.RefreshRunsTotal.WithLabelValues(provider, "failed").Inc()
		return
	}
	m.RefreshRunsTotal.WithLabelValues(provider, "ok").Inc()
	m.RefreshRowsTotal.WithLabelValues(provider).Add(float64(rows))
}
