// Package similarity measures how alike two images are. The measures are
// voxel reductions, so they run on the parallel traversal engine and can be
// restricted to the foreground of the reference image.
package similarity

import (
	"errors"
	"fmt"
	"math"

	"voxelfunc/pkg/parallel"
	"voxelfunc/pkg/volume"
	"voxelfunc/pkg/voxel"
)

// ErrNoOverlap is returned when no voxel pair is left to compare.
var ErrNoOverlap = errors.New("similarity: no voxels to compare")

// Metrics holds the quality measures of an image against a reference.
type Metrics struct {
	// MI is the mutual information of the joint intensity histogram, in nats.
	// Higher values indicate more shared information.
	MI float64

	// EntropyDiff is the absolute difference of the marginal entropies.
	EntropyDiff float64

	// RMSE is the root mean square intensity difference.
	RMSE float64

	// SSIM is the global structural similarity index, 1 for identical images.
	SSIM float64

	// Voxels is the number of compared voxel pairs
	Voxels int
}

func (m Metrics) String() string {
	return fmt.Sprintf("MI=%.4f EntropyDiff=%.4f RMSE=%.4f SSIM=%.4f over %d voxels",
		m.MI, m.EntropyDiff, m.RMSE, m.SSIM, m.Voxels)
}

// Options control Compare.
type Options struct {
	// Bins is the number of histogram bins per image
	Bins int

	// Foreground restricts the comparison to the foreground of the reference
	Foreground bool

	// Scheduler runs the passes; nil selects parallel.Default()
	Scheduler *parallel.Scheduler
}

// DefaultOptions compares the whole images with 256 histogram bins.
func DefaultOptions() Options {
	return Options{Bins: 256}
}

// summary gathers everything the first pass of Compare needs in one functor.
type summary[T1, T2 volume.Scalar] struct {
	voxel.Reduction
	r1    *MinMax[T1]
	r2    *MinMax[T2]
	cross *CrossMoments[T1, T2]
	ssd   *SumOfSquaredDifferences[T1, T2]
}

func newSummary[T1, T2 volume.Scalar]() *summary[T1, T2] {
	return &summary[T1, T2]{
		r1:    &MinMax[T1]{},
		r2:    &MinMax[T2]{},
		cross: &CrossMoments[T1, T2]{},
		ssd:   &SumOfSquaredDifferences[T1, T2]{},
	}
}

func (s *summary[T1, T2]) Voxel(i, j, k, l int, p1 *T1, p2 *T2) {
	if p1 == nil || p2 == nil {
		return
	}
	s.r1.add(p1)
	s.r2.add(p2)
	s.cross.Voxel(i, j, k, l, p1, p2)
	s.ssd.Voxel(i, j, k, l, p1, p2)
}

func (s *summary[T1, T2]) Split() *summary[T1, T2] { return newSummary[T1, T2]() }

func (s *summary[T1, T2]) Join(other *summary[T1, T2]) {
	s.r1.Join(other.r1)
	s.r2.Join(other.r2)
	s.cross.Join(other.cross)
	s.ssd.Join(other.ssd)
}

// Compare measures image a against the reference b. Both images must have
// the same extents. With opts.Foreground only voxels where b differs from its
// background value are compared.
func Compare[T1, T2 volume.Scalar](a *volume.Image[T1], b *volume.Image[T2], opts Options) (Metrics, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return Metrics{}, ErrNoOverlap
	}
	if a.NumberOfVoxels() != b.NumberOfVoxels() || !a.Attributes().SameSpatialExtent(b.Attributes()) {
		return Metrics{}, fmt.Errorf("similarity: image %v does not match reference %v", a.Attributes(), b.Attributes())
	}
	if opts.Bins < 2 {
		return Metrics{}, fmt.Errorf("similarity: need at least 2 histogram bins, got %d", opts.Bins)
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = parallel.Default()
	}

	sum := newSummary[T1, T2]()
	run(a, b, sum, opts.Foreground, sched)
	if sum.cross.N == 0 {
		return Metrics{}, ErrNoOverlap
	}

	lo1, hi1 := float64(sum.r1.Min), float64(sum.r1.Max)
	lo2, hi2 := float64(sum.r2.Min), float64(sum.r2.Max)
	hist := NewJointHistogram[T1, T2](opts.Bins, lo1, hi1, lo2, hi2)
	run(a, b, hist, opts.Foreground, sched)

	h1, h2, h12 := hist.Entropies()
	dynamic := math.Max(hi1, hi2) - math.Min(lo1, lo2)
	if dynamic <= 0 {
		dynamic = 1
	}
	return Metrics{
		MI:          h1 + h2 - h12,
		EntropyDiff: math.Abs(h1 - h2),
		RMSE:        sum.ssd.RMSE(),
		SSIM:        sum.cross.SSIM(dynamic),
		Voxels:      sum.cross.N,
	}, nil
}

// run visits every scalar pair once, optionally restricted to the foreground
// of b.
func run[T1, T2 volume.Scalar, F voxel.BinaryFunction[T1, T2]](
	a *volume.Image[T1], b *volume.Image[T2], fn F, foreground bool, sched *parallel.Scheduler,
) {
	if foreground {
		voxel.ParallelForEachScalarIf(
			voxel.BinaryIf(a, b, voxel.Foreground[T2]{}, fn, voxel.NopBinary[T1, T2]{}),
			voxel.WithScheduler(sched),
		)
		return
	}
	voxel.ParallelForEachScalar(voxel.Binary(a, b, fn), voxel.WithScheduler(sched))
}
