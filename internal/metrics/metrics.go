// Package metrics records vault operation outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aethel-dev/aethel/pkg/core"
)

const namespace = "aethel"

// Collector implements vault.Recorder.
type Collector struct {
	PatchesTotal  *prometheus.CounterVec
	PatchDuration *prometheus.HistogramVec
	ReadsTotal    *prometheus.CounterVec
	PacksLoaded   prometheus.Gauge
	PacksSkipped  prometheus.Gauge
}

// New registers the collector's metrics with reg.
// Pass prometheus.NewRegistry() in tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		PatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "patch",
			Name:      "total",
			Help:      "Patches applied by mode and outcome",
		}, []string{"mode", "outcome"}),
		PatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "patch",
			Name:      "duration_seconds",
			Help:      "Time spent applying a patch, lock wait included",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"mode"}),
		ReadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "read",
			Name:      "total",
			Help:      "Document reads by outcome",
		}, []string{"outcome"}),
		PacksLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "packs",
			Name:      "loaded",
			Help:      "Packs loaded by the last discovery",
		}),
		PacksSkipped: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "packs",
			Name:      "skipped",
			Help:      "Pack directories skipped by the last discovery",
		}),
	}
}

// ObservePatch records one patch outcome.
func (c *Collector) ObservePatch(mode core.PatchMode, outcome string, elapsed time.Duration) {
	c.PatchesTotal.WithLabelValues(string(mode), outcome).Inc()
	c.PatchDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}

// ObserveRead records one read outcome.
func (c *Collector) ObserveRead(outcome string) {
	c.ReadsTotal.WithLabelValues(outcome).Inc()
}

// ObservePacks records the result of a pack discovery.
func (c *Collector) ObservePacks(loaded, skipped int) {
	c.PacksLoaded.Set(float64(loaded))
	c.PacksSkipped.Set(float64(skipped))
}
