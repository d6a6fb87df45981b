// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring. Backed by a
// private prometheus.Registry rather than a bare map, so every counter
// named across the component design (steering match/drop counts, DRR
// quota exhaustion, credit exhaustion, per-ikernel statistics) is a real
// typed prometheus.Counter/Gauge that cmd/nicactl can expose over
// promhttp. GetSnapshot keeps the original read-only map contract for
// the gateway debug probe.

package control

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MetricsRegistry holds every named counter and gauge for one Engine.
type MetricsRegistry struct {
	reg *prometheus.Registry

	mu       sync.RWMutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// NewMetricsRegistry creates an empty registry backed by its own
// prometheus.Registry, so multiple Engines in one process never collide
// on metric names.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		reg:      prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}
}

// Registry exposes the underlying prometheus.Registry, e.g. for
// promhttp.HandlerFor in cmd/nicactl.
func (mr *MetricsRegistry) Registry() *prometheus.Registry {
	return mr.reg
}

// Counter returns the named counter, registering it on first use.
func (mr *MetricsRegistry) Counter(name, help string) prometheus.Counter {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok := mr.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	mr.reg.MustRegister(c)
	mr.counters[name] = c
	return c
}

// Gauge returns the named gauge, registering it on first use.
func (mr *MetricsRegistry) Gauge(name, help string) prometheus.Gauge {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if g, ok := mr.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	mr.reg.MustRegister(g)
	mr.gauges[name] = g
	return g
}

// Inc increments a named counter by 1, creating it with name as its own
// help text on first use. Component code that only needs fire-and-forget
// counting (e.g. steering drop reasons) can call this directly.
func (mr *MetricsRegistry) Inc(name string) {
	mr.Counter(name, name).Inc()
}

// Add increments a named counter by delta.
func (mr *MetricsRegistry) Add(name string, delta float64) {
	mr.Counter(name, name).Add(delta)
}

// Set sets a named gauge to value, creating it on first use. Replaces the
// teacher's free-form Set(key string, value any): values here are always
// float64, matching what a gauge can represent.
func (mr *MetricsRegistry) Set(name string, value float64) {
	mr.Gauge(name, name).Set(value)
}

// GetSnapshot returns the current value of every registered counter and
// gauge, for the gateway's debug/Stats() read path.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.counters)+len(mr.gauges))
	for k, c := range mr.counters {
		out[k] = readMetricValue(c)
	}
	for k, g := range mr.gauges {
		out[k] = readMetricValue(g)
	}
	return out
}

func readMetricValue(m prometheus.Metric) float64 {
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		return 0
	}
	if c := pb.GetCounter(); c != nil {
		return c.GetValue()
	}
	if g := pb.GetGauge(); g != nil {
		return g.GetValue()
	}
	return 0
}
