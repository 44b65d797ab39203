package powerkit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	spawnStarted   = "started"
	spawnContended = "contended"
	spawnFailed    = "failed"
)

// Metrics counts pipeline outcomes. A nil *Metrics records nothing.
type Metrics struct {
	renders  *prometheus.CounterVec
	collects *prometheus.CounterVec
	duration *prometheus.HistogramVec
	spawns   *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powerkit",
			Name:      "renders_total",
			Help:      "Render decisions by tier and visibility.",
		}, []string{"tier", "hidden"}),
		collects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powerkit",
			Name:      "collections_total",
			Help:      "Plugin collections by plugin and result.",
		}, []string{"plugin", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "powerkit",
			Name:      "collection_duration_seconds",
			Help:      "Time spent in plugin Collect.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"plugin"}),
		spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "powerkit",
			Name:      "refresh_requests_total",
			Help:      "Background refresh requests by outcome.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.renders, m.collects, m.duration, m.spawns)
	return m
}

func (m *Metrics) observeRender(out Output) {
	if m == nil {
		return
	}
	hidden := "false"
	if out.Hidden {
		hidden = "true"
	}
	m.renders.WithLabelValues(string(out.Tier), hidden).Inc()
}

func (m *Metrics) observeCollect(plugin string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.collects.WithLabelValues(plugin, result).Inc()
	m.duration.WithLabelValues(plugin).Observe(d.Seconds())
}

func (m *Metrics) observeSpawn(result string) {
	if m == nil {
		return
	}
	m.spawns.WithLabelValues(result).Inc()
}
