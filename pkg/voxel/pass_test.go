package voxel

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"voxelfunc/pkg/parallel"
	"voxelfunc/pkg/region"
	"voxelfunc/pkg/volume"
)

// sum is a unary reduction counting and adding up the voxels it sees
type sum struct {
	Reduction
	n     int
	total int64
	nils  int
}

func (s *sum) Voxel(i, j, k, l int, p *int32) {
	s.n++
	if p == nil {
		s.nils++
		return
	}
	s.total += int64(*p)
}

func (s *sum) Split() *sum { return &sum{} }

func (s *sum) Join(other *sum) {
	s.n += other.n
	s.total += other.total
	s.nils += other.nils
}

// valueSum reports IsReduction but cannot be split or joined
type valueSum struct {
	Reduction
}

func (valueSum) Voxel(int, int, int, int, *int32) {}

func randomImage(attr volume.Attributes, seed int64) (*volume.Image[int32], int64) {
	rng := rand.New(rand.NewSource(seed))
	im := volume.NewImage[int32](attr)
	var total int64
	for idx := range im.Data() {
		v := int32(rng.Intn(2000) - 1000)
		im.Set(idx, v)
		total += int64(v)
	}
	return im, total
}

// TestReductionMatchesSequential checks that parallel sums agree with the
// sequential sum for several grains
func TestReductionMatchesSequential(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "voxel")
	defer teardown()

	attr := volume.NewAttributes(17, 9, 5, 1)
	im, want := randomImage(attr, 7)

	seq := &sum{}
	ForEachVoxel(Unary(im, seq))
	if seq.total != want || seq.n != attr.NumberOfVoxels() {
		t.Fatalf("Expected sequential sum %d over %d voxels, got %d over %d", want, attr.NumberOfVoxels(), seq.total, seq.n)
	}

	for _, grain := range []int{1, 13, 500, attr.NumberOfVoxels()} {
		t.Run(fmt.Sprintf("grain=%d", grain), func(t *testing.T) {
			s := parallel.New(4, parallel.WithGrain(grain))

			par := &sum{}
			ParallelForEachVoxel(Unary(im, par), WithScheduler(s))
			if par.total != seq.total || par.n != seq.n {
				t.Errorf("Expected parallel sum %d over %d voxels, got %d over %d", seq.total, seq.n, par.total, par.n)
			}

			box := &sum{}
			ParallelForEachVoxelIn(Unary(im, box), region.Rect3DOf(attr), WithScheduler(s))
			if box.total != seq.total {
				t.Errorf("Expected box sum %d, got %d", seq.total, box.total)
			}
		})
	}
}

// TestReductionAccumulates checks that repeated passes keep adding to the
// caller's functor
func TestReductionAccumulates(t *testing.T) {
	attr := volume.NewAttributes(8, 8, 2, 1)
	im, want := randomImage(attr, 3)

	s := &sum{}
	p := Unary(im, s)
	ParallelForEachVoxel(p)
	ForEachVoxel(p)
	if s.total != 2*want {
		t.Errorf("Expected accumulated sum %d, got %d", 2*want, s.total)
	}
}

// TestValueEntryPointsRejectReductions checks the by-value guard
func TestValueEntryPointsRejectReductions(t *testing.T) {
	attr := volume.NewAttributes(4, 4, 4, 1)
	im, _ := randomImage(attr, 1)
	f32 := volume.NewImage[float32](attr)
	u8 := volume.NewImage[uint8](attr)
	nop := NopUnary[int32]{}

	tests := []struct {
		name string
		run  func(s *sum)
	}{
		{"unary", func(s *sum) { ParallelForEachVoxel(UnaryValue(im, s)) }},
		{"unary if inside", func(s *sum) { ForEachVoxelIf(UnaryIfValue(im, Always[int32]{}, s, nop)) }},
		{"unary if outside", func(s *sum) { ForEachVoxelIf(UnaryIfValue(im, Always[int32]{}, nop, s)) }},
		{"binary", func(s *sum) {
			ForEachVoxel(BinaryValue(im, im, BinaryFunc[int32, int32](func(int, int, int, int, *int32, *int32) {})))
			ForEachVoxel(BinaryValue(im, im, &pairSum{}))
		}},
		{"ternary", func(s *sum) {
			ForEachVoxel(TernaryValue(im, f32, u8, &tripleCount{}))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &sum{}
			err := expectPanic[*ConfigError](t, func() { tc.run(s) })
			if err.Op == "" || err.Reason == "" {
				t.Errorf("Expected op and reason in %v", err)
			}
			if s.n != 0 {
				t.Errorf("Expected no voxel to be visited, got %d", s.n)
			}
		})
	}

	t.Run("transform by value", func(t *testing.T) {
		out := volume.NewImage[int32](attr)
		ParallelForEachVoxel(BinaryValue(im, out, BinaryFunc[int32, int32](func(i, j, k, l int, src, dst *int32) {
			*dst = *src
		})))
		for idx := range im.Data() {
			if out.Get(idx) != im.Get(idx) {
				t.Fatalf("Expected copied voxel %d", idx)
			}
		}
	})

	t.Run("reduction by reference", func(t *testing.T) {
		s := &sum{}
		ParallelForEachVoxel(Unary(im, s))
		if s.n != attr.NumberOfVoxels() {
			t.Errorf("Expected %d voxels, got %d", attr.NumberOfVoxels(), s.n)
		}
	})
}

// TestReductionWithoutJoin checks that a functor claiming to reduce must be
// splittable
func TestReductionWithoutJoin(t *testing.T) {
	im, _ := randomImage(volume.NewAttributes(2, 2, 2, 1), 1)
	expectPanic[*ConfigError](t, func() { Unary(im, valueSum{}) })
}

type pairSum struct {
	Reduction
	total int64
}

func (s *pairSum) Voxel(i, j, k, l int, p1, p2 *int32) {
	if p1 != nil {
		s.total += int64(*p1)
	}
	if p2 != nil {
		s.total += int64(*p2)
	}
}

func (s *pairSum) Split() *pairSum { return &pairSum{} }

func (s *pairSum) Join(other *pairSum) { s.total += other.total }

type tripleCount struct {
	Reduction
	n, nils [3]int
}

func (c *tripleCount) Voxel(i, j, k, l int, p1 *int32, p2 *float32, p3 *uint8) {
	for s, p := range []bool{p1 == nil, p2 == nil, p3 == nil} {
		c.n[s]++
		if p {
			c.nils[s]++
		}
	}
}

func (c *tripleCount) Split() *tripleCount { return &tripleCount{} }

func (c *tripleCount) Join(other *tripleCount) {
	for s := range c.n {
		c.n[s] += other.n[s]
		c.nils[s] += other.nils[s]
	}
}

// TestPredicateRouting writes 1 inside and 2 outside the region x >= 2
func TestPredicateRouting(t *testing.T) {
	attr := volume.NewAttributes(4, 4, 4, 1)
	right := DomainFunc[uint8](func(_ *volume.Image[uint8], i, j, k, l int, _ *uint8) bool {
		return i >= 2
	})
	set := func(v uint8) UnaryFunc[uint8] {
		return func(i, j, k, l int, p *uint8) { *p = v }
	}

	runs := map[string]func(p *IfPass){
		"sequential voxels": func(p *IfPass) { ForEachVoxelIf(p) },
		"parallel voxels":   func(p *IfPass) { ParallelForEachVoxelIf(p, WithScheduler(parallel.New(4, parallel.WithGrain(3)))) },
		"parallel scalars":  func(p *IfPass) { ParallelForEachScalarIf(p) },
		"sequential box":    func(p *IfPass) { ForEachVoxelIfIn(p, region.Rect3DOf(attr)) },
		"parallel box":      func(p *IfPass) { ParallelForEachVoxelIfIn(p, region.Rect3DOf(attr)) },
		"parallel attrs":    func(p *IfPass) { ParallelForEachVoxelIfIn(p, attr) },
		"sequential attrs":  func(p *IfPass) { ForEachVoxelIfIn(p, attr) },
	}

	for name, run := range runs {
		t.Run(name, func(t *testing.T) {
			im := volume.NewImage[uint8](attr)
			run(UnaryIfValue(im, right, set(1), set(2)))
			for idx := range im.Data() {
				i, j, k, _ := attr.Coordinates(idx)
				want := uint8(1)
				if i < 2 {
					want = 2
				}
				if got := im.Get(idx); got != want {
					t.Fatalf("Expected %d at (%d,%d,%d), got %d", want, i, j, k, got)
				}
			}
		})
	}
}

// TestPredicatedReduction checks that inside and outside reductions are both
// merged back and partition the image
func TestPredicatedReduction(t *testing.T) {
	attr := volume.NewAttributes(9, 7, 5, 1)
	im, want := randomImage(attr, 11)

	var wantInside int64
	var nInside int
	for _, v := range im.Data() {
		if v >= 0 {
			wantInside += int64(v)
			nInside++
		}
	}

	for n, s := range schedulers() {
		t.Run(fmt.Sprintf("scheduler %d", n), func(t *testing.T) {
			inside, outside := &sum{}, &sum{}
			ParallelForEachVoxelIf(UnaryIf(im, Threshold[int32]{Min: 0}, inside, outside), WithScheduler(s))
			if inside.total != wantInside || inside.n != nInside {
				t.Errorf("Expected inside sum %d over %d voxels, got %d over %d", wantInside, nInside, inside.total, inside.n)
			}
			if inside.total+outside.total != want || inside.n+outside.n != attr.NumberOfVoxels() {
				t.Errorf("Expected inside and outside to partition the image, got %d+%d voxels", inside.n, outside.n)
			}
		})
	}
}

// TestPredicateOnLastImage checks that the domain sees the driving image
func TestPredicateOnLastImage(t *testing.T) {
	attr := volume.NewAttributes(4, 4, 1, 1)
	first := volume.NewImage[int32](attr)
	last := volume.NewImage[int32](attr)
	first.Fill(5)
	last.SetBackground(0)
	last.Set(3, 1)
	last.Set(7, 1)

	counted := &pairSum{}
	ParallelForEachVoxelIf(BinaryIf(first, last, Foreground[int32]{}, counted, NopBinary[int32, int32]{}))
	if counted.total != 2*(5+1) {
		t.Errorf("Expected the foreground of the last image to select two voxels, got total %d", counted.total)
	}
}

// TestEmptyImagesYieldNil checks that empty inputs give nil pointers in
// their slot only
func TestEmptyImagesYieldNil(t *testing.T) {
	attr := volume.NewAttributes(5, 3, 2, 1)
	full := volume.NewImage[uint8](attr)
	middle := volume.NewImage[float32](attr)

	tests := []struct {
		name     string
		first    *volume.Image[int32]
		second   *volume.Image[float32]
		wantNils [3]int
	}{
		{"nil first", nil, middle, [3]int{30, 0, 0}},
		{"empty first", volume.NewImage[int32](volume.Attributes{}), middle, [3]int{30, 0, 0}},
		{"empty first and second", nil, volume.NewImage[float32](volume.NewAttributes(0, 0, 0, 0)), [3]int{30, 30, 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &tripleCount{}
			ParallelForEachVoxel(Ternary(tc.first, tc.second, full, c))
			if c.nils != tc.wantNils {
				t.Errorf("Expected nil counts %v, got %v", tc.wantNils, c.nils)
			}
			if c.n[2] != attr.NumberOfVoxels() {
				t.Errorf("Expected %d voxels, got %d", attr.NumberOfVoxels(), c.n[2])
			}
		})
	}

	t.Run("empty primary", func(t *testing.T) {
		s := &sum{}
		ParallelForEachVoxel(Unary(volume.NewImage[int32](volume.Attributes{}), s))
		if s.n != 0 {
			t.Errorf("Expected no voxel of an empty image to be visited, got %d", s.n)
		}
	})

	t.Run("nil primary", func(t *testing.T) {
		expectPanic[*ConfigError](t, func() { Unary[int32, *sum](nil, &sum{}) })
	})
}

// TestExtentMismatch checks that inputs of different sizes are rejected
func TestExtentMismatch(t *testing.T) {
	small := volume.NewImage[int32](volume.NewAttributes(4, 4, 3, 1))
	big := volume.NewImage[int32](volume.NewAttributes(4, 4, 4, 1))
	frames := volume.NewImage[int32](volume.NewTimeSeries(4, 4, 4, 3, 1))

	err := expectPanic[*ExtentError](t, func() { Binary(small, big, &pairSum{}) })
	if err.Slot != 1 {
		t.Errorf("Expected slot 1, got %d", err.Slot)
	}

	err = expectPanic[*ExtentError](t, func() {
		thin := volume.NewImage[float32](volume.NewAttributes(4, 4, 3, 1))
		Ternary(big, thin, volume.NewImage[uint8](volume.NewAttributes(4, 4, 4, 1)), &tripleCount{})
	})
	if err.Slot != 2 {
		t.Errorf("Expected slot 2, got %d", err.Slot)
	}

	// big has the spatial extent of frames but a single channel
	s := &pairSum{}
	p := Binary(big, frames, s)
	err = expectPanic[*ExtentError](t, func() { ParallelForEachScalar(p) })
	if err.Slot != 1 {
		t.Errorf("Expected slot 1 for the short buffer, got %d", err.Slot)
	}
	ForEachVoxelIn(p, region.NewLinear(0, big.NumberOfVoxels()))
}
