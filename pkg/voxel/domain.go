package voxel

import (
	"voxelfunc/pkg/volume"
)

// Domain decides which voxels belong to the region of interest of a
// predicated pass. It is always evaluated on the last image of the pass.
//
// Implementations must be pure: the same coordinates and buffer contents give
// the same answer for the whole pass. p is nil when the image is empty.
type Domain[T volume.Scalar] interface {
	// IsInside tests the voxel at (i, j, k, l).
	IsInside(im *volume.Image[T], i, j, k, l int, p *T) bool

	// IsInsideAt tests the voxel at flat index idx.
	IsInsideAt(im *volume.Image[T], idx int, p *T) bool
}

// Always accepts every voxel.
type Always[T volume.Scalar] struct{}

func (Always[T]) IsInside(*volume.Image[T], int, int, int, int, *T) bool { return true }
func (Always[T]) IsInsideAt(*volume.Image[T], int, *T) bool { return true }

// Foreground accepts voxels that differ from the image's background value.
// Images without a background value are foreground everywhere.
type Foreground[T volume.Scalar] struct{}

func (Foreground[T]) IsInside(im *volume.Image[T], i, j, k, l int, p *T) bool {
	return isForeground(im, p)
}

func (Foreground[T]) IsInsideAt(im *volume.Image[T], idx int, p *T) bool {
	return isForeground(im, p)
}

// Background accepts exactly the voxels Foreground rejects.
type Background[T volume.Scalar] struct{}

func (Background[T]) IsInside(im *volume.Image[T], i, j, k, l int, p *T) bool {
	return !isForeground(im, p)
}

func (Background[T]) IsInsideAt(im *volume.Image[T], idx int, p *T) bool {
	return !isForeground(im, p)
}

func isForeground[T volume.Scalar](im *volume.Image[T], p *T) bool {
	if p == nil {
		return false
	}
	bg, ok := im.Background()
	return !ok || *p != bg
}

// Threshold accepts voxels whose value is at least Min.
type Threshold[T volume.Scalar] struct {
	Min T
}

func (d Threshold[T]) IsInside(_ *volume.Image[T], _, _, _, _ int, p *T) bool {
	return p != nil && *p >= d.Min
}

func (d Threshold[T]) IsInsideAt(_ *volume.Image[T], _ int, p *T) bool {
	return p != nil && *p >= d.Min
}

// DomainFunc adapts a coordinate predicate to Domain. The flat index form
// converts the index back into coordinates.
type DomainFunc[T volume.Scalar] func(im *volume.Image[T], i, j, k, l int, p *T) bool

func (f DomainFunc[T]) IsInside(im *volume.Image[T], i, j, k, l int, p *T) bool {
	return f(im, i, j, k, l, p)
}

func (f DomainFunc[T]) IsInsideAt(im *volume.Image[T], idx int, p *T) bool {
	i, j, k, l := im.Attributes().Coordinates(idx)
	return f(im, i, j, k, l, p)
}
