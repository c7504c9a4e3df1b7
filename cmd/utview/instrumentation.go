package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/libut/utview/internal/session"
	"github.com/libut/utview/internal/tracestore"
)

var (
	tracesLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utview_traces_loaded_total",
		Help: "Traces reconstructed, by origin.",
	}, []string{"origin"})
	intervalsReconstructed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "utview_intervals_reconstructed_total",
		Help: "Task intervals produced by stack reconstruction.",
	})
	reconstructionAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "utview_reconstruction_anomalies_total",
		Help: "Samples the reconstruction skipped or repaired, by kind.",
	}, []string{"kind"})
	viewportRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "utview_viewport_recomputes_total",
		Help: "Viewport queries run by sessions.",
	})
	visibleIntervals = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "utview_viewport_visible_intervals",
		Help:    "Intervals returned by a viewport recompute.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "utview_sessions_active",
		Help: "Viewport sessions currently held in memory.",
	})
)

func observeCollection(origin string, c *tracestore.Collection) {
	tracesLoaded.WithLabelValues(origin).Inc()
	intervalsReconstructed.Add(float64(c.IntervalCount()))
	for _, t := range c.Threads {
		for _, a := range t.Anomalies {
			reconstructionAnomalies.WithLabelValues(string(a.Kind)).Inc()
		}
	}
}

func observeFrame(f session.Frame) {
	viewportRecomputes.Inc()
	var n int
	for _, t := range f.Threads {
		n += len(t.Intervals)
	}
	visibleIntervals.Observe(float64(n))
}
