/*
Package voxel applies functors to every voxel of one, two or three 4-D images.

A pass binds images to a functor:

	p := voxel.Binary(src, dst, voxel.BinaryFunc[float32, float32](
	    func(i, j, k, l int, in, out *float32) { *out = 2 * *in },
	))
	voxel.ParallelForEachVoxel(p)

The last image of a pass drives the iteration. Every other image is addressed
with the same voxel index and may be empty, in which case its functor argument
is nil.

Functors either transform voxels in place or reduce them into an accumulated
result. Reductions implement Split and Join; parallel traversals run them on
partial copies and fold the copies back into the functor held by the pass:

	stats := &similarity.Moments[float32]{}
	voxel.ParallelForEachVoxel(voxel.Unary(im, stats))
	fmt.Println(stats.Mean())

Predicated passes (UnaryIf, BinaryIf, TernaryIf) evaluate a Domain on the last
image and call the inside functor where it holds and the outside functor
elsewhere.

Sub-regions are given to the ...In entry points as volume.Attributes,
region.Linear, region.Rect2D or region.Rect3D.

Misuse is a programming error. Passing a reduction to an entry point that
would drop its state, or images whose extents do not fit together, panics
with a *ConfigError or *ExtentError before any voxel is touched.
*/
package voxel

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'voxel'
func tracer() tracing.Trace {
	return tracing.Select("voxel")
}
