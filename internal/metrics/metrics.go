// Package metrics defines the Prometheus collectors for Dove imports and
// the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bellfinder"

// Outcome label values.
const (
	OutcomeParsed   = "parsed"
	OutcomeSkipped  = "skipped"
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Metrics holds the application counters, histograms and gauges.
type Metrics struct {
	DoveRows     *prometheus.CounterVec // labels: outcome={parsed,skipped}
	DoveFeeds    *prometheus.CounterVec // labels: outcome={accepted,rejected}
	TowersLoaded prometheus.Gauge

	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests and the CLI use.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DoveRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dove_rows_total",
			Help:      "Dove feed data rows by outcome.",
		}, []string{"outcome"}),
		DoveFeeds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dove_feeds_total",
			Help:      "Dove feeds parsed, by whether they were accepted.",
		}, []string{"outcome"}),
		TowersLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "towers_loaded",
			Help:      "Towers stored by the last accepted Dove import.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.DoveRows,
			m.DoveFeeds,
			m.TowersLoaded,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}

	return m
}

// ObserveFeed records the outcome of parsing one Dove feed.
func (m *Metrics) ObserveFeed(parsed, skipped int, rejected bool) {
	if rejected {
		m.DoveFeeds.WithLabelValues(OutcomeRejected).Inc()
		return
	}
	m.DoveFeeds.WithLabelValues(OutcomeAccepted).Inc()
	m.DoveRows.WithLabelValues(OutcomeParsed).Add(float64(parsed))
	m.DoveRows.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// PoolStats is a snapshot of the database connection pool.
type PoolStats struct {
	Total    int32
	Acquired int32
	Idle     int32
}

// RegisterPool exports connection pool gauges read from stats at scrape
// time.
func RegisterPool(reg prometheus.Registerer, stats func() PoolStats) {
	gauge := func(name, help string, value func(PoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(stats())) })
	}

	reg.MustRegister(
		gauge("total_conns", "Open connections in the pool.", func(s PoolStats) int32 { return s.Total }),
		gauge("acquired_conns", "Connections currently in use.", func(s PoolStats) int32 { return s.Acquired }),
		gauge("idle_conns", "Idle connections in the pool.", func(s PoolStats) int32 { return s.Idle }),
	)
}
