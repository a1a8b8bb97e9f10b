// Package models holds the synthetic volumes used by the benchmark command and
// by tests across the module.
package models

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"voxelfunc/pkg/volume"
	"voxelfunc/pkg/voxel"
)

// Phantom describes a synthetic test volume: an ellipsoid of smoothly
// decaying intensity on a constant background
type Phantom struct {
	// Attr are the extents and spacing of the generated image
	Attr volume.Attributes

	// Background is the intensity outside the ellipsoid; it is also set as
	// the background value of the generated image
	Background float64

	// Peak is the intensity at the centre of the ellipsoid
	Peak float64

	// Radius holds the semi-axes as fractions of the half extents along x, y, z
	Radius [3]float64

	// Drift is added to the intensity for every step along t
	Drift float64
}

// DefaultPhantom returns a phantom filling most of attr with intensities in
// [0, 1]
func DefaultPhantom(attr volume.Attributes) Phantom {
	return Phantom{
		Attr:       attr,
		Background: 0,
		Peak:       1,
		Radius:     [3]float64{0.8, 0.6, 0.7},
	}
}

// Build renders the phantom
func (p Phantom) Build() *volume.Image[float64] {
	im := volume.NewImage[float64](p.Attr)
	im.SetBackground(p.Background)

	a := p.Attr
	cx, cy, cz := float64(a.X-1)/2, float64(a.Y-1)/2, float64(a.Z-1)/2
	rx := math.Max(p.Radius[0]*float64(a.X)/2, 1)
	ry := math.Max(p.Radius[1]*float64(a.Y)/2, 1)
	rz := math.Max(p.Radius[2]*float64(a.Z)/2, 1)

	voxel.ParallelForEachScalar(voxel.UnaryValue(im, voxel.UnaryFunc[float64](func(i, j, k, l int, v *float64) {
		dx, dy, dz := (float64(i)-cx)/rx, (float64(j)-cy)/ry, (float64(k)-cz)/rz
		r2 := dx*dx + dy*dy + dz*dz
		if r2 >= 1 {
			*v = p.Background
			return
		}
		*v = p.Background + (p.Peak-p.Background)*(1-r2) + p.Drift*float64(l)
	})))
	return im
}

// Ramp returns an image whose voxels hold i+j+k+l
func Ramp(attr volume.Attributes) *volume.Image[float32] {
	im := volume.NewImage[float32](attr)
	voxel.ParallelForEachScalar(voxel.UnaryValue(im, voxel.UnaryFunc[float32](func(i, j, k, l int, v *float32) {
		*v = float32(i + j + k + l)
	})))
	return im
}

// Perturb returns a copy of im with Gaussian noise of standard deviation
// sigma added to every foreground scalar. The noise is reproducible for a
// given seed.
func Perturb(im *volume.Image[float64], sigma float64, seed uint64) *volume.Image[float64] {
	out := im.Clone()
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}

	// the source is not safe for concurrent use, so draw sequentially
	voxel.ForEachScalarIf(voxel.UnaryIfValue(out, voxel.Foreground[float64]{},
		voxel.UnaryFunc[float64](func(i, j, k, l int, v *float64) {
			*v += noise.Rand()
		}),
		voxel.NopUnary[float64]{},
	))
	return out
}
