// Package region defines the half-open index ranges that bound voxel loops and
// drive the partitioning done by the fork-join scheduler.
//
// Three shapes are provided: Linear (a flat index interval), Rect2D (rows by
// columns) and Rect3D (pages by rows by columns). All of them are immutable
// values. Splitting bisects a range into two halves whose union is the
// original and whose intersection is empty.
package region

import (
	"fmt"

	"voxelfunc/pkg/volume"
)

// Range is the constraint the scheduler places on a range type R.
type Range[R any] interface {
	// Len returns the number of elements covered by the range.
	Len() int

	// Divisible reports whether the range may be split for the given grain.
	Divisible(grain int) bool

	// Split bisects the range.
	Split() (R, R)
}

// Linear is the half-open interval [Begin, End).
type Linear struct {
	Begin, End int
}

// NewLinear returns the interval [begin, end).
func NewLinear(begin, end int) Linear {
	return Linear{Begin: begin, End: end}
}

// Len returns End-Begin, or zero for an empty interval.
func (r Linear) Len() int {
	if r.End <= r.Begin {
		return 0
	}
	return r.End - r.Begin
}

// Empty reports whether the interval covers no index.
func (r Linear) Empty() bool {
	return r.End <= r.Begin
}

// Divisible reports whether the interval is longer than grain and can be cut.
func (r Linear) Divisible(grain int) bool {
	return r.Len() > max(grain, 1)
}

// Split cuts the interval at its midpoint.
func (r Linear) Split() (Linear, Linear) {
	mid := r.Begin + r.Len()/2
	return Linear{r.Begin, mid}, Linear{mid, r.End}
}

// String formats the interval as "[begin,end)".
func (r Linear) String() string {
	return fmt.Sprintf("[%d,%d)", r.Begin, r.End)
}

// Rect2D is the product of a row interval (y) and a column interval (x).
type Rect2D struct {
	Rows, Cols Linear
}

// NewRect2D returns rows [r0,r1) by columns [c0,c1).
func NewRect2D(r0, r1, c0, c1 int) Rect2D {
	return Rect2D{Rows: Linear{r0, r1}, Cols: Linear{c0, c1}}
}

// Len returns the number of (row, col) cells.
func (r Rect2D) Len() int {
	return r.Rows.Len() * r.Cols.Len()
}

// Empty reports whether the rectangle covers no cell.
func (r Rect2D) Empty() bool {
	return r.Rows.Empty() || r.Cols.Empty()
}

// Divisible reports whether the rectangle holds more than grain cells and
// has an axis of length two or more.
func (r Rect2D) Divisible(grain int) bool {
	return r.Len() > max(grain, 1) && (r.Rows.Len() > 1 || r.Cols.Len() > 1)
}

// Split bisects the longer axis. Ties are broken in favour of rows.
func (r Rect2D) Split() (Rect2D, Rect2D) {
	a, b := r, r
	if r.Rows.Len() >= r.Cols.Len() {
		a.Rows, b.Rows = r.Rows.Split()
	} else {
		a.Cols, b.Cols = r.Cols.Split()
	}
	return a, b
}

func (r Rect2D) String() string {
	return fmt.Sprintf("rows%v x cols%v", r.Rows, r.Cols)
}

// Rect3D is the product of page (z), row (y) and column (x) intervals.
type Rect3D struct {
	Pages, Rows, Cols Linear
}

// NewRect3D returns pages [p0,p1) by rows [r0,r1) by columns [c0,c1).
func NewRect3D(p0, p1, r0, r1, c0, c1 int) Rect3D {
	return Rect3D{Pages: Linear{p0, p1}, Rows: Linear{r0, r1}, Cols: Linear{c0, c1}}
}

// Len returns the number of (page, row, col) cells.
func (r Rect3D) Len() int {
	return r.Pages.Len() * r.Rows.Len() * r.Cols.Len()
}

// Empty reports whether the box covers no cell.
func (r Rect3D) Empty() bool {
	return r.Pages.Empty() || r.Rows.Empty() || r.Cols.Empty()
}

// Divisible reports whether the box holds more than grain cells and has an
// axis of length two or more.
func (r Rect3D) Divisible(grain int) bool {
	return r.Len() > max(grain, 1) &&
		(r.Pages.Len() > 1 || r.Rows.Len() > 1 || r.Cols.Len() > 1)
}

// Split bisects the longest axis. Ties prefer pages, then rows.
func (r Rect3D) Split() (Rect3D, Rect3D) {
	a, b := r, r
	p, q, c := r.Pages.Len(), r.Rows.Len(), r.Cols.Len()
	switch {
	case p >= q && p >= c:
		a.Pages, b.Pages = r.Pages.Split()
	case q >= c:
		a.Rows, b.Rows = r.Rows.Split()
	default:
		a.Cols, b.Cols = r.Cols.Split()
	}
	return a, b
}

func (r Rect3D) String() string {
	return fmt.Sprintf("pages%v x rows%v x cols%v", r.Pages, r.Rows, r.Cols)
}

// LinearOf covers every scalar of an image with the given attributes.
func LinearOf(attr volume.Attributes) Linear {
	return Linear{0, attr.NumberOfVoxels()}
}

// Rect2DOf covers one xy-plane of an image with the given attributes.
func Rect2DOf(attr volume.Attributes) Rect2D {
	return NewRect2D(0, attr.Y, 0, attr.X)
}

// Rect3DOf covers one channel of an image with the given attributes.
func Rect3DOf(attr volume.Attributes) Rect3D {
	return NewRect3D(0, attr.Z, 0, attr.Y, 0, attr.X)
}
