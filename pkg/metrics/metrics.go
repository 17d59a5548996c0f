// Package metrics counts what a run did in Prometheus form.
//
// pxfollow is a one-shot CLI, so nothing is served over HTTP. The counters
// live in a private registry and are written as a node-exporter textfile at
// the end of a run when output.metrics_file is set.
//
// Metrics:
//   - pxfollow_pages_fetched_total (Counter): follow-list pages fetched
//   - pxfollow_entities_enumerated_total (Counter): entities collected by enumeration
//   - pxfollow_duplicates_dropped_total (Counter): repeated IDs removed before mutation
//   - pxfollow_mutations_total{outcome} (Counter): visibility changes by outcome
//     ("success", "api_rejected", "transport_error")
//   - pxfollow_automation_clicks_total (Counter): toggles clicked by UI automation
//   - pxfollow_stalls_total{state} (Counter): automation stalls by state
//   - pxfollow_run_duration_seconds (Gauge): wall time of the last run
//
// All Recorder methods are safe on a nil receiver so components can take an
// optional *Recorder.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the run's counters and their registry
type Recorder struct {
	registry *prometheus.Registry

	PagesFetched       prometheus.Counter
	EntitiesEnumerated prometheus.Counter
	DuplicatesDropped  prometheus.Counter
	Mutations          *prometheus.CounterVec
	AutomationClicks   prometheus.Counter
	Stalls             *prometheus.CounterVec
	RunDuration        prometheus.Gauge
}

// New creates a Recorder with a fresh registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "pxfollow_pages_fetched_total",
			Help: "Total number of follow-list pages fetched",
		}),
		EntitiesEnumerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pxfollow_entities_enumerated_total",
			Help: "Total number of followed users collected by enumeration",
		}),
		DuplicatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pxfollow_duplicates_dropped_total",
			Help: "Total number of repeated user IDs removed before mutation",
		}),
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pxfollow_mutations_total",
			Help: "Total number of visibility changes by outcome",
		}, []string{"outcome"}),
		AutomationClicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "pxfollow_automation_clicks_total",
			Help: "Total number of visibility toggles clicked by UI automation",
		}),
		Stalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pxfollow_stalls_total",
			Help: "Total number of UI automation stalls by state",
		}, []string{"state"}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pxfollow_run_duration_seconds",
			Help: "Wall time of the last run in seconds",
		}),
	}
}

// Registry exposes the private registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) PageFetched(entities int) {
	if r == nil {
		return
	}
	r.PagesFetched.Inc()
	r.EntitiesEnumerated.Add(float64(entities))
}

func (r *Recorder) Deduplicated(dropped int) {
	if r == nil || dropped <= 0 {
		return
	}
	r.DuplicatesDropped.Add(float64(dropped))
}

func (r *Recorder) Mutation(outcome string) {
	if r == nil {
		return
	}
	r.Mutations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Click() {
	if r == nil {
		return
	}
	r.AutomationClicks.Inc()
}

func (r *Recorder) Stall(state string) {
	if r == nil {
		return
	}
	r.Stalls.WithLabelValues(state).Inc()
}

func (r *Recorder) ObserveRun(d time.Duration) {
	if r == nil {
		return
	}
	r.RunDuration.Set(d.Seconds())
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The write is atomic so a node-exporter scrape never sees a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
