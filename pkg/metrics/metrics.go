// Package metrics exposes optional Prometheus instrumentation for the
// discovery and dispatch engines, grounded in abh/rrrgo's
// prometheus.CounterVec/Gauge wiring (cmd/rrr-server/main.go). Instrumentation
// is off by default; callers that want it call Enable() once at startup and
// thereafter Default() returns a live Collector instead of the no-op one.
package metrics

import (
	"sync"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records discovery/dispatch activity as Prometheus metrics. The
// zero value is a safe no-op so packages can hold a Collector unconditionally
// and only pay for instrumentation once Enable has been called.
type Collector struct {
	enabled bool

	filesDiscovered *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	workersActive   prometheus.Gauge
}

var (
	mu      sync.Mutex
	current = &Collector{}
)

// Enable registers tempo's collectors against reg (use
// prometheus.DefaultRegisterer for the global registry) and makes Default
// return the live collector from then on. Calling Enable twice is a no-op.
func Enable(reg prometheus.Registerer) *Collector {
	mu.Lock()
	defer mu.Unlock()
	if current.enabled {
		return current
	}

	c := &Collector{
		enabled: true,
		filesDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempo_files_discovered_total",
			Help: "Files yielded by a dataset's discovery walk, by dataset template.",
		}, []string{"template"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempo_cache_hits_total",
			Help: "FileInfo cache lookups satisfied without a fresh stat.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempo_cache_misses_total",
			Help: "FileInfo cache lookups that required a fresh stat.",
		}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tempo_dispatch_workers_active",
			Help: "Dispatch worker goroutines currently processing a task.",
		}),
	}
	reg.MustRegister(c.filesDiscovered, c.cacheHits, c.cacheMisses, c.workersActive)
	current = c
	return current
}

// Default returns the process-wide Collector: a no-op until Enable is called.
func Default() *Collector {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// CacheHitRatio reports hits/(hits+misses) recorded so far, or 0 if nothing
// has been recorded yet. It is computed from live counter values, not
// maintained incrementally, so it is safe to call at any time.
func (c *Collector) CacheHitRatio() float64 {
	if c == nil || !c.enabled {
		return 0
	}
	hits := counterValue(c.cacheHits)
	misses := counterValue(c.cacheMisses)
	if hits+misses == 0 {
		return 0
	}
	return hits / (hits + misses)
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}

// FilesDiscovered increments the discovered-files counter for template by n.
func (c *Collector) FilesDiscovered(template string, n int) {
	if c == nil || !c.enabled || n <= 0 {
		return
	}
	c.filesDiscovered.WithLabelValues(template).Add(float64(n))
}

// CacheHit records one FileInfo cache hit.
func (c *Collector) CacheHit() {
	if c == nil || !c.enabled {
		return
	}
	c.cacheHits.Inc()
}

// CacheMiss records one FileInfo cache miss.
func (c *Collector) CacheMiss() {
	if c == nil || !c.enabled {
		return
	}
	c.cacheMisses.Inc()
}

// WorkerStarted increments the active-workers gauge; pair with WorkerStopped.
func (c *Collector) WorkerStarted() {
	if c == nil || !c.enabled {
		return
	}
	c.workersActive.Inc()
}

// WorkerStopped decrements the active-workers gauge.
func (c *Collector) WorkerStopped() {
	if c == nil || !c.enabled {
		return
	}
	c.workersActive.Dec()
}
