package voxel

import (
	"fmt"
	"time"

	"voxelfunc/pkg/parallel"
	"voxelfunc/pkg/region"
	"voxelfunc/pkg/volume"
)

// Region is the set of explicit bounds accepted by the ...In entry points.
//
//   - volume.Attributes: the box [0,X)x[0,Y)x[0,Z) of the driving image.
//     For a time series all T channels are visited, one after the other,
//     otherwise only the channel selected with WithChannel.
//   - region.Linear: a flat index interval, visited with the index form of
//     the functors.
//   - region.Rect2D: rows (y) by columns (x) of the plane and channel
//     selected with WithPlane and WithChannel.
//   - region.Rect3D: pages (z) by rows by columns of the channel selected
//     with WithChannel.
type Region interface {
	volume.Attributes | region.Linear | region.Rect2D | region.Rect3D
}

// Option configures a single traversal.
type Option func(*options)

type options struct {
	sched   *parallel.Scheduler
	plane   int
	channel int
}

// WithScheduler selects the scheduler of a parallel traversal. Without it
// parallel.Default() is used.
func WithScheduler(s *parallel.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// WithPlane fixes the z plane of a Rect2D traversal.
func WithPlane(k int) Option {
	return func(o *options) { o.plane = k }
}

// WithChannel fixes the t channel of Rect2D, Rect3D and non time series
// Attributes traversals.
func WithChannel(l int) Option {
	return func(o *options) { o.channel = l }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.sched == nil {
		o.sched = parallel.Default()
	}
	return o
}

// ForEachScalar visits every scalar of the driving image, X*Y*Z*T elements,
// on the calling goroutine. Functors are called in their index form.
func ForEachScalar(p *Pass) {
	scalars("ForEachScalar", p.k, false, options{})
}

// ForEachScalarIf is ForEachScalar for a predicated pass.
func ForEachScalarIf(p *IfPass) {
	scalars("ForEachScalarIf", p.k, false, options{})
}

// ForEachVoxel visits every voxel of the driving image on the calling
// goroutine. For a time series this is every scalar; otherwise the t axis
// holds channels and only the X*Y*Z voxels of channel 0 are visited, the
// functor reaching the other channels itself.
func ForEachVoxel(p *Pass) {
	voxels("ForEachVoxel", p.k, false, options{})
}

// ForEachVoxelIf is ForEachVoxel for a predicated pass.
func ForEachVoxelIf(p *IfPass) {
	voxels("ForEachVoxelIf", p.k, false, options{})
}

// ForEachVoxelIn visits the voxels of r on the calling goroutine.
func ForEachVoxelIn[R Region](p *Pass, r R, opts ...Option) {
	within("ForEachVoxelIn", p.k, r, false, collect(opts))
}

// ForEachVoxelIfIn is ForEachVoxelIn for a predicated pass.
func ForEachVoxelIfIn[R Region](p *IfPass, r R, opts ...Option) {
	within("ForEachVoxelIfIn", p.k, r, false, collect(opts))
}

// ParallelForEachScalar is ForEachScalar run on a fork-join scheduler.
// Reductions are merged into the pass functors before it returns.
func ParallelForEachScalar(p *Pass, opts ...Option) {
	scalars("ParallelForEachScalar", p.k, true, collect(opts))
}

// ParallelForEachScalarIf is ParallelForEachScalar for a predicated pass.
func ParallelForEachScalarIf(p *IfPass, opts ...Option) {
	scalars("ParallelForEachScalarIf", p.k, true, collect(opts))
}

// ParallelForEachVoxel is ForEachVoxel run on a fork-join scheduler.
func ParallelForEachVoxel(p *Pass, opts ...Option) {
	voxels("ParallelForEachVoxel", p.k, true, collect(opts))
}

// ParallelForEachVoxelIf is ParallelForEachVoxel for a predicated pass.
func ParallelForEachVoxelIf(p *IfPass, opts ...Option) {
	voxels("ParallelForEachVoxelIf", p.k, true, collect(opts))
}

// ParallelForEachVoxelIn is ForEachVoxelIn run on a fork-join scheduler.
func ParallelForEachVoxelIn[R Region](p *Pass, r R, opts ...Option) {
	within("ParallelForEachVoxelIn", p.k, r, true, collect(opts))
}

// ParallelForEachVoxelIfIn is ParallelForEachVoxelIn for a predicated pass.
func ParallelForEachVoxelIfIn[R Region](p *IfPass, r R, opts ...Option) {
	within("ParallelForEachVoxelIfIn", p.k, r, true, collect(opts))
}

func scalars(op string, k kernel, par bool, o options) {
	linear(op, k, region.LinearOf(k.primary()), par, o)
}

// voxels picks between scalar and voxel iteration once, from the temporal
// spacing of the driving image.
func voxels(op string, k kernel, par bool, o options) {
	attr := k.primary()
	if attr.IsTimeSeries() {
		scalars(op, k, par, o)
		return
	}
	linear(op, k, region.NewLinear(0, attr.NumberOfSpatialVoxels()), par, o)
}

func within[R Region](op string, k kernel, r R, par bool, o options) {
	attr := k.primary()
	switch r := any(r).(type) {
	case volume.Attributes:
		if r.X > attr.X || r.Y > attr.Y || r.Z > attr.Z || r.Validate() != nil {
			fail(&ExtentError{Op: op, Primary: attr, Reason: fmt.Sprintf("attributes %v", r)})
		}
		if r.IsTimeSeries() {
			if r.EffectiveT() > attr.EffectiveT() {
				fail(&ExtentError{Op: op, Primary: attr, Reason: fmt.Sprintf("attributes %v", r)})
			}
		} else {
			requireChannel(op, attr, o.channel)
		}
		attributes(op, k, r, par, o)
	case region.Linear:
		if r.Begin < 0 || r.End > attr.NumberOfVoxels() {
			fail(&ExtentError{Op: op, Primary: attr, Reason: fmt.Sprintf("linear range %v", r)})
		}
		linear(op, k, r, par, o)
	case region.Rect2D:
		if !inside(r.Rows, attr.Y) || !inside(r.Cols, attr.X) || o.plane < 0 || o.plane >= attr.Z {
			fail(&ExtentError{Op: op, Primary: attr, Reason: fmt.Sprintf("rectangle %v in plane %d", r, o.plane)})
		}
		requireChannel(op, attr, o.channel)
		run(op, k, r, (*body).rect2, par, o)
	case region.Rect3D:
		if !inside(r.Pages, attr.Z) || !inside(r.Rows, attr.Y) || !inside(r.Cols, attr.X) {
			fail(&ExtentError{Op: op, Primary: attr, Reason: fmt.Sprintf("box %v", r)})
		}
		requireChannel(op, attr, o.channel)
		run(op, k, r, (*body).rect3, par, o)
	}
}

func inside(r region.Linear, n int) bool {
	return r.Empty() || (r.Begin >= 0 && r.End <= n)
}

func requireChannel(op string, attr volume.Attributes, l int) {
	if l < 0 || l >= attr.EffectiveT() {
		fail(&ExtentError{Op: op, Primary: attr, Reason: fmt.Sprintf("channel %d", l)})
	}
}

// attributes runs a sub-attributes traversal. Sequentially the body walks the
// nested loops itself; in parallel the call site drives the t loop for time
// series and every channel is a separate Rect3D traversal.
func attributes(op string, k kernel, a volume.Attributes, par bool, o options) {
	if !par {
		if a.NumberOfSpatialVoxels() == 0 {
			return
		}
		l, n := o.channel, a.NumberOfSpatialVoxels()
		if a.IsTimeSeries() {
			l, n = a.EffectiveT()-1, a.NumberOfVoxels()
		}
		k.check(op, k.primary().Index(a.X-1, a.Y-1, a.Z-1, l)+1)
		start := time.Now()
		root := newBody(k.split(), o)
		root.whole(a)
		k.join(root.k)
		observe(op, k, false, n, start)
		return
	}

	box := region.Rect3DOf(a)
	if !a.IsTimeSeries() {
		run(op, k, box, (*body).rect3, par, o)
		return
	}
	for l := 0; l < a.EffectiveT(); l++ {
		o.channel = l
		run(op, k, box, (*body).rect3, par, o)
	}
}

func linear(op string, k kernel, r region.Linear, par bool, o options) {
	run(op, k, r, (*body).linear, par, o)
}

// run executes one traversal of r. The root body works on a split of the
// pass kernel; once the traversal is done it is joined back, so reductions
// end up in the caller's functors whichever way the work was partitioned.
func run[R region.Range[R]](op string, k kernel, r R, walk func(*body, R), par bool, o options) {
	n := r.Len()
	if n == 0 {
		return
	}
	k.check(op, last(k.primary(), r, o)+1)

	start := time.Now()
	root := newBody(k.split(), o)
	switch {
	case !par:
		walk(root, r)
	case k.reduction():
		parallel.Reduce(o.sched, r, task[R]{b: root, walk: walk})
	default:
		parallel.For(o.sched, r, func(sub R) { walk(root, sub) })
	}
	k.join(root.k)
	observe(op, k, par, n, start)
}

// last returns the highest flat index a traversal of r touches.
func last[R any](attr volume.Attributes, r R, o options) int {
	switch r := any(r).(type) {
	case region.Linear:
		return r.End - 1
	case region.Rect2D:
		return attr.Index(r.Cols.End-1, r.Rows.End-1, o.plane, o.channel)
	case region.Rect3D:
		return attr.Index(r.Cols.End-1, r.Rows.End-1, r.Pages.End-1, o.channel)
	}
	return attr.NumberOfVoxels() - 1
}

func observe(op string, k kernel, par bool, n int, start time.Time) {
	mode := "sequential"
	if par {
		mode = "parallel"
	}
	elapsed := time.Since(start)
	passesTotal.WithLabelValues(mode, k.shape()).Inc()
	passElements.WithLabelValues(mode, k.shape()).Add(float64(n))
	passDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	tracer().Debugf("%s: %s %s pass over %d elements of %v in %v", op, mode, k.shape(), n, k.primary(), elapsed)
}
