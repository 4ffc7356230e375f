package scheduler

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus collectors a Scheduler updates during
// RenderFrame. A metrics built by newMetrics is safe to use even when reg
// is nil and nothing ever scrapes it.
type metrics struct {
	frameDuration   prometheus.Histogram
	bricksDrawn     prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	outOfBudget     prometheus.Counter
	residentBytes   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tuvok",
			Subsystem: "scheduler",
			Name:      "frame_duration_seconds",
			Help:      "Wall-clock time spent in RenderFrame.",
			Buckets:   prometheus.DefBuckets,
		}),
		bricksDrawn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tuvok",
			Subsystem: "scheduler",
			Name:      "bricks_drawn",
			Help:      "Number of bricks drawn per frame after culling and LOD refinement.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tuvok",
			Subsystem: "scheduler",
			Name:      "cache_hits_total",
			Help:      "Brick cache acquisitions that found the brick already resident.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tuvok",
			Subsystem: "scheduler",
			Name:      "cache_misses_total",
			Help:      "Brick cache acquisitions that required an upload.",
		}),
		outOfBudget: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tuvok",
			Subsystem: "scheduler",
			Name:      "out_of_budget_total",
			Help:      "Acquire calls that failed and triggered a coarsen-and-restart.",
		}),
		residentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tuvok",
			Subsystem: "scheduler",
			Name:      "resident_bytes",
			Help:      "GPU texture bytes resident in the brick cache at the end of the last frame.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.frameDuration, m.bricksDrawn, m.cacheHits, m.cacheMisses, m.outOfBudget, m.residentBytes)
	}
	return m
}
