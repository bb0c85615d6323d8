// Package metrics records build statistics in a Prometheus registry.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "rulesets"

// Stage names for [Metrics.SetEntries].
const (
	StageInput    = "input"
	StageDeduped  = "deduped"
	StageExcluded = "excluded"
	StageOutput   = "output"
)

// Metrics holds the collectors of one build run.
//
// Metrics is safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	entries       *prometheus.GaugeVec
	skipped       *prometheus.GaugeVec
	buildDuration prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// New returns metrics registered in a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetches_total",
				Help:      "Number of successful source fetches by origin.",
			},
			[]string{"ruleset", "source", "origin"},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetch_failures_total",
				Help:      "Number of failed source fetches.",
			},
			[]string{"ruleset", "source"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "entries",
				Help:      "Number of ruleset entries after each stage of the last build.",
			},
			[]string{"ruleset", "stage"},
		),
		skipped: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "skipped_lines",
				Help:      "Number of source lines skipped while parsing in the last build.",
			},
			[]string{"ruleset"},
		),
		buildDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of the last build.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build.",
		}),
	}
	m.registry.MustRegister(m.fetches, m.fetchFailures, m.entries, m.skipped, m.buildDuration, m.lastSuccess)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch counts a successful fetch.
func (m *Metrics) ObserveFetch(ruleset, source string, origin fmt.Stringer) {
	m.fetches.WithLabelValues(ruleset, source, origin.String()).Inc()
}

// ObserveFetchFailure counts a failed fetch.
func (m *Metrics) ObserveFetchFailure(ruleset, source string) {
	m.fetchFailures.WithLabelValues(ruleset, source).Inc()
}

// SetEntries records the number of entries of a ruleset after a stage.
func (m *Metrics) SetEntries(ruleset, stage string, n int) {
	m.entries.WithLabelValues(ruleset, stage).Set(float64(n))
}

// SetSkipped records the number of skipped source lines of a ruleset.
func (m *Metrics) SetSkipped(ruleset string, n int) {
	m.skipped.WithLabelValues(ruleset).Set(float64(n))
}

// ObserveBuild records the duration of a build, and its completion time if it succeeded.
func (m *Metrics) ObserveBuild(d time.Duration, succeeded bool, now time.Time) {
	m.buildDuration.Set(d.Seconds())
	if succeeded {
		m.lastSuccess.Set(float64(now.Unix()))
	}
}

// WriteTextfile writes the metrics to path in the text exposition format,
// for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// WriteText writes the metrics to w in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
