package voxel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// passesTotal counts completed passes by execution mode and arity
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxelfunc_passes_total",
		Help: "Total voxel passes by execution mode and arity",
	}, []string{"mode", "shape"})

	// passElements counts the elements visited by completed passes
	passElements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxelfunc_pass_elements_total",
		Help: "Total voxels or scalars visited by voxel passes",
	}, []string{"mode", "shape"})

	// passDuration tracks the wall time of a pass
	passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxelfunc_pass_duration_seconds",
		Help:    "Voxel pass duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12), // 10us to ~40s
	}, []string{"mode"})
)
