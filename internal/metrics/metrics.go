// Package metrics records library and schedule gauges in a private Prometheus
// registry. There is no listener; WriteTextfile emits the node_exporter
// textfile-collector format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/snapetech/pseudotv/internal/schedule"
)

const namespace = "pseudotv"

// Recorder owns the registry and its collectors.
type Recorder struct {
	reg *prometheus.Registry

	libraryItems  prometheus.Gauge
	poolItems     *prometheus.GaugeVec
	entries       *prometheus.GaugeVec
	horizon       prometheus.Gauge
	buildSeconds  prometheus.Gauge
	lastBuildTime prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		libraryItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "library_items",
			Help: "Media items found in the library.",
		}),
		poolItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "channel_pool_items",
			Help: "Library items matching each channel's rule.",
		}, []string{"channel"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "channel_schedule_entries",
			Help: "Airings placed per channel in the last build.",
		}, []string{"channel"}),
		horizon: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "schedule_horizon_seconds",
			Help: "Length of the last built schedule window.",
		}),
		buildSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "schedule_build_seconds",
			Help: "Wall time of the last schedule build.",
		}),
		lastBuildTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "schedule_last_build_timestamp_seconds",
			Help: "Unix time the last schedule build finished.",
		}),
	}
	r.reg.MustRegister(r.libraryItems, r.poolItems, r.entries, r.horizon, r.buildSeconds, r.lastBuildTime)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// ObserveLibrary sets the library size.
func (r *Recorder) ObserveLibrary(items int) {
	r.libraryItems.Set(float64(items))
}

// ObserveBuild records a finished build and how long it took.
func (r *Recorder) ObserveBuild(s *schedule.Schedule, took time.Duration, finished time.Time) {
	r.poolItems.Reset()
	r.entries.Reset()
	for _, l := range s.Lineups() {
		r.poolItems.WithLabelValues(l.Channel.Name).Set(float64(len(l.Pool)))
		r.entries.WithLabelValues(l.Channel.Name).Set(0)
	}
	for _, e := range s.Entries() {
		r.entries.WithLabelValues(e.Channel).Inc()
	}
	r.horizon.Set(s.Horizon.Sub(s.Start).Seconds())
	r.buildSeconds.Set(took.Seconds())
	r.lastBuildTime.Set(float64(finished.Unix()))
}

// WriteTextfile writes the current values to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
