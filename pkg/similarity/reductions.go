package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"voxelfunc/pkg/volume"
	"voxelfunc/pkg/voxel"
)

// Moments accumulates the count, sum and sum of squares of the voxels of one
// image. Nil voxels of empty images are skipped.
type Moments[T volume.Scalar] struct {
	voxel.Reduction
	N          int
	Sum, SumSq float64
}

func (m *Moments[T]) Voxel(_, _, _, _ int, p *T) {
	m.add(p)
}

func (m *Moments[T]) VoxelAt(_ *volume.Image[T], _ int, p *T) {
	m.add(p)
}

func (m *Moments[T]) add(p *T) {
	if p == nil {
		return
	}
	v := float64(*p)
	m.N++
	m.Sum += v
	m.SumSq += v * v
}

func (m *Moments[T]) Split() *Moments[T] { return &Moments[T]{} }

func (m *Moments[T]) Join(other *Moments[T]) {
	m.N += other.N
	m.Sum += other.Sum
	m.SumSq += other.SumSq
}

// Mean returns the sample mean, or NaN without samples.
func (m *Moments[T]) Mean() float64 {
	if m.N == 0 {
		return math.NaN()
	}
	return m.Sum / float64(m.N)
}

// Variance returns the unbiased sample variance, as stat.Variance does.
func (m *Moments[T]) Variance() float64 {
	if m.N < 2 {
		return math.NaN()
	}
	n := float64(m.N)
	return (m.SumSq - m.Sum*m.Sum/n) / (n - 1)
}

// MinMax tracks the intensity range of one image.
type MinMax[T volume.Scalar] struct {
	voxel.Reduction
	Min, Max T
	N        int
}

func (m *MinMax[T]) Voxel(_, _, _, _ int, p *T) {
	m.add(p)
}

func (m *MinMax[T]) VoxelAt(_ *volume.Image[T], _ int, p *T) {
	m.add(p)
}

func (m *MinMax[T]) add(p *T) {
	if p == nil {
		return
	}
	if m.N == 0 || *p < m.Min {
		m.Min = *p
	}
	if m.N == 0 || *p > m.Max {
		m.Max = *p
	}
	m.N++
}

func (m *MinMax[T]) Split() *MinMax[T] { return &MinMax[T]{} }

func (m *MinMax[T]) Join(other *MinMax[T]) {
	if other.N == 0 {
		return
	}
	if m.N == 0 {
		*m = *other
		return
	}
	m.Min = min(m.Min, other.Min)
	m.Max = max(m.Max, other.Max)
	m.N += other.N
}

// SumOfSquaredDifferences accumulates (a-b)^2 over the voxels where both
// images hold a value.
type SumOfSquaredDifferences[T1, T2 volume.Scalar] struct {
	voxel.Reduction
	N   int
	Sum float64
}

func (s *SumOfSquaredDifferences[T1, T2]) Voxel(_, _, _, _ int, p1 *T1, p2 *T2) {
	if p1 == nil || p2 == nil {
		return
	}
	d := float64(*p1) - float64(*p2)
	s.Sum += d * d
	s.N++
}

func (s *SumOfSquaredDifferences[T1, T2]) Split() *SumOfSquaredDifferences[T1, T2] {
	return &SumOfSquaredDifferences[T1, T2]{}
}

func (s *SumOfSquaredDifferences[T1, T2]) Join(other *SumOfSquaredDifferences[T1, T2]) {
	s.N += other.N
	s.Sum += other.Sum
}

// MSE returns the mean squared difference.
func (s *SumOfSquaredDifferences[T1, T2]) MSE() float64 {
	if s.N == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.N)
}

// RMSE returns the root mean squared difference.
func (s *SumOfSquaredDifferences[T1, T2]) RMSE() float64 {
	return math.Sqrt(s.MSE())
}

// CrossMoments accumulates the first and second order moments of a pair of
// images, enough for their means, variances and covariance.
type CrossMoments[T1, T2 volume.Scalar] struct {
	voxel.Reduction
	N             int
	S1, S2        float64
	S11, S22, S12 float64
}

func (c *CrossMoments[T1, T2]) Voxel(_, _, _, _ int, p1 *T1, p2 *T2) {
	if p1 == nil || p2 == nil {
		return
	}
	x, y := float64(*p1), float64(*p2)
	c.N++
	c.S1 += x
	c.S2 += y
	c.S11 += x * x
	c.S22 += y * y
	c.S12 += x * y
}

func (c *CrossMoments[T1, T2]) Split() *CrossMoments[T1, T2] { return &CrossMoments[T1, T2]{} }

func (c *CrossMoments[T1, T2]) Join(other *CrossMoments[T1, T2]) {
	c.N += other.N
	c.S1 += other.S1
	c.S2 += other.S2
	c.S11 += other.S11
	c.S22 += other.S22
	c.S12 += other.S12
}

// Means returns the sample means of both images.
func (c *CrossMoments[T1, T2]) Means() (float64, float64) {
	n := float64(c.N)
	return c.S1 / n, c.S2 / n
}

// Covariance returns the unbiased variances of both images and their
// covariance, normalised the way stat.Variance and stat.Covariance are.
func (c *CrossMoments[T1, T2]) Covariance() (v1, v2, cov float64) {
	n := float64(c.N)
	if c.N < 2 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	v1 = (c.S11 - c.S1*c.S1/n) / (n - 1)
	v2 = (c.S22 - c.S2*c.S2/n) / (n - 1)
	cov = (c.S12 - c.S1*c.S2/n) / (n - 1)
	return v1, v2, cov
}

// SSIM returns the global structural similarity index for intensities with
// dynamic range l.
func (c *CrossMoments[T1, T2]) SSIM(l float64) float64 {
	const k1, k2 = 0.01, 0.03
	c1 := (k1 * l) * (k1 * l)
	c2 := (k2 * l) * (k2 * l)

	mx, my := c.Means()
	vx, vy, cov := c.Covariance()
	num := (2*mx*my + c1) * (2*cov + c2)
	den := (mx*mx + my*my + c1) * (vx + vy + c2)
	if den <= 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// GaussianMI returns the mutual information of two jointly Gaussian variables
// with the accumulated covariance, in nats.
func (c *CrossMoments[T1, T2]) GaussianMI() float64 {
	vx, vy, cov := c.Covariance()
	if !(vx > 0 && vy > 0) {
		return 0
	}
	det := vx*vy - cov*cov
	if det <= 0 {
		return math.Inf(1)
	}
	return 0.5 * math.Log(vx*vy/det)
}

// JointHistogram bins pairs of intensities into a Bins x Bins matrix. Rows
// index the first image, columns the second. Values outside the configured
// ranges are clamped into the border bins.
type JointHistogram[T1, T2 volume.Scalar] struct {
	voxel.Reduction
	Bins   int
	Lo, Hi [2]float64
	Counts *mat.Dense
}

// NewJointHistogram returns an empty histogram with bins bins per axis over
// [lo1, hi1] for the first image and [lo2, hi2] for the second.
func NewJointHistogram[T1, T2 volume.Scalar](bins int, lo1, hi1, lo2, hi2 float64) *JointHistogram[T1, T2] {
	return &JointHistogram[T1, T2]{
		Bins:   bins,
		Lo:     [2]float64{lo1, lo2},
		Hi:     [2]float64{hi1, hi2},
		Counts: mat.NewDense(bins, bins, nil),
	}
}

func (h *JointHistogram[T1, T2]) bin(axis int, v float64) int {
	w := h.Hi[axis] - h.Lo[axis]
	if w <= 0 {
		return 0
	}
	b := int((v - h.Lo[axis]) / w * float64(h.Bins))
	return max(0, min(b, h.Bins-1))
}

func (h *JointHistogram[T1, T2]) Voxel(_, _, _, _ int, p1 *T1, p2 *T2) {
	if p1 == nil || p2 == nil {
		return
	}
	r, c := h.bin(0, float64(*p1)), h.bin(1, float64(*p2))
	h.Counts.Set(r, c, h.Counts.At(r, c)+1)
}

func (h *JointHistogram[T1, T2]) Split() *JointHistogram[T1, T2] {
	return NewJointHistogram[T1, T2](h.Bins, h.Lo[0], h.Hi[0], h.Lo[1], h.Hi[1])
}

func (h *JointHistogram[T1, T2]) Join(other *JointHistogram[T1, T2]) {
	h.Counts.Add(h.Counts, other.Counts)
}

// Total returns the number of binned pairs.
func (h *JointHistogram[T1, T2]) Total() float64 {
	return mat.Sum(h.Counts)
}

// Entropies returns the marginal entropies of both images and their joint
// entropy, in nats.
func (h *JointHistogram[T1, T2]) Entropies() (h1, h2, h12 float64) {
	n := h.Total()
	if n == 0 {
		return 0, 0, 0
	}
	p1 := make([]float64, h.Bins)
	p2 := make([]float64, h.Bins)
	joint := make([]float64, 0, h.Bins*h.Bins)
	for r := 0; r < h.Bins; r++ {
		row := mat.Row(nil, r, h.Counts)
		p1[r] = floats.Sum(row)
		floats.Add(p2, row)
		joint = append(joint, row...)
	}
	floats.Scale(1/n, p1)
	floats.Scale(1/n, p2)
	floats.Scale(1/n, joint)
	return stat.Entropy(p1), stat.Entropy(p2), stat.Entropy(joint)
}

// MutualInformation returns H1 + H2 - H12 in nats.
func (h *JointHistogram[T1, T2]) MutualInformation() float64 {
	h1, h2, h12 := h.Entropies()
	return h1 + h2 - h12
}
