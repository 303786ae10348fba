// Package metrics holds the Prometheus instruments of a workflow run. A run
// is a short-lived process, so values are pushed to a Pushgateway rather
// than scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "journalsync"

type Metrics struct {
	registry *prometheus.Registry

	exportsTotal   *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	entries        *prometheus.GaugeVec
	pending        prometheus.Gauge
	lastRun        prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		exportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Journal export attempts by result.",
			},
			[]string{"journal", "result"},
		),
		exportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_duration_seconds",
				Help:      "Time from login to a saved export artifact.",
				Buckets:   []float64{5, 15, 30, 60, 120, 300},
			},
			[]string{"journal"},
		),
		entries: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "entries",
				Help:      "Entries of the last export by change kind.",
			},
			[]string{"journal", "kind"},
		),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_migrations",
			Help:      "Migration requests not yet completed.",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last workflow run finished.",
		}),
	}
}

func (m *Metrics) ObserveExport(journalName string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.exportsTotal.WithLabelValues(journalName, result).Inc()
	m.exportDuration.WithLabelValues(journalName).Observe(d.Seconds())
}

// SetEntries records the per-kind counts of a journal diff.
func (m *Metrics) SetEntries(journalName string, counts map[string]int) {
	for kind, n := range counts {
		m.entries.WithLabelValues(journalName, kind).Set(float64(n))
	}
}

func (m *Metrics) SetPendingMigrations(n int) { m.pending.Set(float64(n)) }

func (m *Metrics) MarkRun(at time.Time) { m.lastRun.Set(float64(at.Unix())) }

// Push sends every instrument to the Pushgateway at url, replacing the
// previous push of job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
