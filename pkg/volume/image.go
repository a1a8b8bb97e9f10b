package volume

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Scalar is the set of voxel types an Image can hold.
type Scalar interface {
	constraints.Integer | constraints.Float
}

// Image is a dense 4-D array of scalars stored in row-major order with x
// varying fastest, then y, z and t.
//
// The buffer is owned by whoever created the image. The traversal engine only
// borrows it and never reallocates it.
type Image[T Scalar] struct {
	// attr describes the extents and spacing of the image
	attr Attributes

	// data is the voxel buffer, len(data) == attr.NumberOfVoxels()
	data []T

	// background is the padding value used by foreground predicates
	background    T
	hasBackground bool
}

// NewImage allocates a zero filled image with the given attributes.
// Negative extents produce an empty image.
func NewImage[T Scalar](attr Attributes) *Image[T] {
	if attr.Validate() != nil {
		return &Image[T]{attr: Attributes{}}
	}
	return &Image[T]{
		attr: attr,
		data: make([]T, attr.NumberOfVoxels()),
	}
}

// NewImageFromData wraps an existing buffer. The buffer is not copied.
func NewImageFromData[T Scalar](attr Attributes, data []T) (*Image[T], error) {
	if err := attr.Validate(); err != nil {
		return nil, err
	}
	if len(data) != attr.NumberOfVoxels() {
		return nil, fmt.Errorf("buffer holds %d voxels, attributes %v require %d",
			len(data), attr, attr.NumberOfVoxels())
	}
	return &Image[T]{attr: attr, data: data}, nil
}

// Attributes returns the domain descriptor of the image.
func (im *Image[T]) Attributes() Attributes {
	return im.attr
}

// X returns the extent along x.
func (im *Image[T]) X() int { return im.attr.X }

// Y returns the extent along y.
func (im *Image[T]) Y() int { return im.attr.Y }

// Z returns the extent along z.
func (im *Image[T]) Z() int { return im.attr.Z }

// T returns the extent along t.
func (im *Image[T]) T() int { return im.attr.T }

// NumberOfVoxels returns the total number of scalars in the buffer.
func (im *Image[T]) NumberOfVoxels() int {
	return len(im.data)
}

// IsEmpty reports whether the image holds no voxels. A nil image is empty.
func (im *Image[T]) IsEmpty() bool {
	return im == nil || len(im.data) == 0
}

// Data returns the raw voxel buffer.
func (im *Image[T]) Data() []T {
	return im.data
}

// Ptr returns a pointer to the voxel at flat index idx, or nil if the image
// is empty.
func (im *Image[T]) Ptr(idx int) *T {
	if im.IsEmpty() {
		return nil
	}
	return &im.data[idx]
}

// At returns the voxel at (i, j, k, l).
func (im *Image[T]) At(i, j, k, l int) T {
	return im.data[im.attr.Index(i, j, k, l)]
}

// Put stores v at (i, j, k, l).
func (im *Image[T]) Put(i, j, k, l int, v T) {
	im.data[im.attr.Index(i, j, k, l)] = v
}

// Get returns the voxel at flat index idx.
func (im *Image[T]) Get(idx int) T {
	return im.data[idx]
}

// Set stores v at flat index idx.
func (im *Image[T]) Set(idx int, v T) {
	im.data[idx] = v
}

// Fill sets every voxel to v.
func (im *Image[T]) Fill(v T) {
	for i := range im.data {
		im.data[i] = v
	}
}

// Clone returns a deep copy of the image, including its background setting.
func (im *Image[T]) Clone() *Image[T] {
	c := *im
	c.data = make([]T, len(im.data))
	copy(c.data, im.data)
	return &c
}

// SetBackground sets the padding value. Voxels equal to it are background.
func (im *Image[T]) SetBackground(v T) {
	im.background = v
	im.hasBackground = true
}

// ClearBackground removes the padding value so every voxel is foreground.
func (im *Image[T]) ClearBackground() {
	var zero T
	im.background = zero
	im.hasBackground = false
}

// Background returns the padding value and whether one is set.
func (im *Image[T]) Background() (T, bool) {
	return im.background, im.hasBackground
}

// IsForeground reports whether the voxel at idx differs from the background
// value. Without a background value every voxel is foreground.
func (im *Image[T]) IsForeground(idx int) bool {
	return !im.hasBackground || im.data[idx] != im.background
}
