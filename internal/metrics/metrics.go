// Package metrics exposes loader and API counters on a dedicated Prometheus registry.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recruitsuite"

type Metrics struct {
	Registry *prometheus.Registry

	CalendarRows  *prometheus.CounterVec
	MemberRows    *prometheus.CounterVec
	MembersAdded  *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	LastRunStatus prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CalendarRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "calendar_rows_total",
			Help:      "Calendar rows processed, by outcome.",
		}, []string{"outcome"}),
		MemberRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "member_rows_total",
			Help:      "Member rows processed, by outcome.",
		}, []string{"outcome"}),
		MembersAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "members_created_total",
			Help:      "Member rows created, by role.",
		}, []string{"role"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a batch load.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastRunStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "last_run_success",
			Help:      "1 when the last batch load finished without rejected rows.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests, by route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.Registry.MustRegister(
		m.CalendarRows,
		m.MemberRows,
		m.MembersAdded,
		m.RunDuration,
		m.LastRunStatus,
		m.HTTPRequests,
		m.HTTPLatency,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// WriteTextfile dumps the registry in the node-exporter textfile format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
