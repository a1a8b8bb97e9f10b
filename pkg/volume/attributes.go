// Package volume provides the 4-D image type and the domain descriptor that the
// voxel traversal engine iterates over.
package volume

import (
	"fmt"
)

// Attributes describes the discrete coordinate space of a 4-D image.
//
// Extents are given in voxels along x, y, z and t. The spacing fields hold the
// physical size of a voxel along each axis. TSize has a special meaning: a
// non-zero value marks the t axis as a genuine time series, while zero marks it
// as a channel (vector) axis whose samples are folded into one voxel tuple.
type Attributes struct {
	// X, Y, Z, T are the extents of the image in voxels
	X, Y, Z, T int

	// XSize, YSize, ZSize are the voxel dimensions in mm
	XSize, YSize, ZSize float64

	// TSize is the temporal spacing; zero means the t axis holds channels
	TSize float64
}

// NewAttributes returns attributes for an x*y*z*t image with unit spatial
// spacing. The t axis is a channel axis.
func NewAttributes(x, y, z, t int) Attributes {
	return Attributes{X: x, Y: y, Z: z, T: t, XSize: 1, YSize: 1, ZSize: 1}
}

// NewTimeSeries returns attributes for an x*y*z image sequence of t frames
// taken dt apart.
func NewTimeSeries(x, y, z, t int, dt float64) Attributes {
	attr := NewAttributes(x, y, z, t)
	attr.TSize = dt
	return attr
}

// Validate reports an error if any extent is negative.
func (a Attributes) Validate() error {
	if a.X < 0 || a.Y < 0 || a.Z < 0 || a.T < 0 {
		return fmt.Errorf("invalid image extents %dx%dx%dx%d: extents must be non-negative", a.X, a.Y, a.Z, a.T)
	}
	return nil
}

// IsTimeSeries reports whether the t axis is iterated as time rather than
// folded into voxel tuples.
func (a Attributes) IsTimeSeries() bool {
	return a.TSize != 0
}

// EffectiveT returns the number of t samples used for iteration. An extent of
// zero counts as one.
func (a Attributes) EffectiveT() int {
	if a.T <= 0 {
		return 1
	}
	return a.T
}

// NumberOfSpatialVoxels returns X*Y*Z.
func (a Attributes) NumberOfSpatialVoxels() int {
	return a.X * a.Y * a.Z
}

// NumberOfVoxels returns the number of scalars in the image, X*Y*Z*T.
func (a Attributes) NumberOfVoxels() int {
	return a.NumberOfSpatialVoxels() * a.EffectiveT()
}

// Index converts voxel coordinates into a flat buffer index.
func (a Attributes) Index(i, j, k, l int) int {
	return ((l*a.Z+k)*a.Y+j)*a.X + i
}

// Coordinates converts a flat buffer index back into voxel coordinates.
func (a Attributes) Coordinates(idx int) (i, j, k, l int) {
	n := a.X * a.Y
	nz := n * a.Z
	if nz == 0 {
		return 0, 0, 0, 0
	}
	l = idx / nz
	idx -= l * nz
	k = idx / n
	idx -= k * n
	j = idx / a.X
	i = idx - j*a.X
	return i, j, k, l
}

// Contains reports whether (i, j, k, l) lies inside the image.
func (a Attributes) Contains(i, j, k, l int) bool {
	return i >= 0 && i < a.X &&
		j >= 0 && j < a.Y &&
		k >= 0 && k < a.Z &&
		l >= 0 && l < a.EffectiveT()
}

// SameSpatialExtent reports whether both descriptors have the same x, y and z
// extents.
func (a Attributes) SameSpatialExtent(b Attributes) bool {
	return a.X == b.X && a.Y == b.Y && a.Z == b.Z
}

// Equal reports whether both descriptors have identical extents and spacing.
func (a Attributes) Equal(b Attributes) bool {
	return a == b
}

// String formats the attributes as "XxYxZxT".
func (a Attributes) String() string {
	kind := "channels"
	if a.IsTimeSeries() {
		kind = "frames"
	}
	return fmt.Sprintf("%dx%dx%dx%d (%s)", a.X, a.Y, a.Z, a.T, kind)
}
