package voxel

import (
	"voxelfunc/pkg/region"
	"voxelfunc/pkg/volume"
)

// body walks a kernel over one range. It is copied for every forked partition
// of a reduction; transform partitions share a single body.
//
// plane and channel fix the coordinates a range does not carry itself: the
// z plane of a Rect2D and the t channel of a Rect2D or Rect3D.
type body struct {
	k       kernel
	attr    volume.Attributes
	plane   int
	channel int
}

func newBody(k kernel, o options) *body {
	return &body{k: k, attr: k.primary(), plane: o.plane, channel: o.channel}
}

// whole visits the box described by a in t, z, y, x order. The t axis is
// iterated only when a is a time series, otherwise the channel of the body
// is used.
func (b *body) whole(a volume.Attributes) {
	t0, t1 := b.channel, b.channel+1
	if a.IsTimeSeries() {
		t0, t1 = 0, a.EffectiveT()
	}
	s1 := b.attr.X - a.X
	s2 := (b.attr.Y - a.Y) * b.attr.X
	for l := t0; l < t1; l++ {
		idx := b.attr.Index(0, 0, 0, l)
		for k := 0; k < a.Z; k++ {
			for j := 0; j < a.Y; j++ {
				for i := 0; i < a.X; i++ {
					b.k.voxel(i, j, k, l, idx)
					idx++
				}
				idx += s1
			}
			idx += s2
		}
	}
}

// linear visits flat indices, using the index form of the functors.
func (b *body) linear(r region.Linear) {
	for idx := r.Begin; idx < r.End; idx++ {
		b.k.voxelAt(idx)
	}
}

// rect2 visits rows (y) by columns (x) of the body's plane and channel.
func (b *body) rect2(r region.Rect2D) {
	if r.Empty() {
		return
	}
	idx := b.attr.Index(r.Cols.Begin, r.Rows.Begin, b.plane, b.channel)
	stride := b.attr.X - r.Cols.Len()
	for j := r.Rows.Begin; j < r.Rows.End; j++ {
		for i := r.Cols.Begin; i < r.Cols.End; i++ {
			b.k.voxel(i, j, b.plane, b.channel, idx)
			idx++
		}
		idx += stride
	}
}

// rect3 visits pages (z) by rows (y) by columns (x) of the body's channel.
func (b *body) rect3(r region.Rect3D) {
	if r.Empty() {
		return
	}
	l := b.channel
	idx := b.attr.Index(r.Cols.Begin, r.Rows.Begin, r.Pages.Begin, l)
	s1 := b.attr.X - r.Cols.Len()
	s2 := (b.attr.Y - r.Rows.Len()) * b.attr.X
	for k := r.Pages.Begin; k < r.Pages.End; k++ {
		for j := r.Rows.Begin; j < r.Rows.End; j++ {
			for i := r.Cols.Begin; i < r.Cols.End; i++ {
				b.k.voxel(i, j, k, l, idx)
				idx++
			}
			idx += s1
		}
		idx += s2
	}
}

// split returns an independent body over the same images for a sibling
// partition.
func (b *body) split() *body {
	c := *b
	c.k = b.k.split()
	return &c
}

func (b *body) join(other *body) {
	b.k.join(other.k)
}

// task adapts a body and one of its range walkers to parallel.Body.
type task[R any] struct {
	b    *body
	walk func(*body, R)
}

func (t task[R]) Run(r R) { t.walk(t.b, r) }

func (t task[R]) Split() task[R] { return task[R]{b: t.b.split(), walk: t.walk} }

func (t task[R]) Join(other task[R]) { t.b.join(other.b) }
