package voxel

import (
	"fmt"

	"voxelfunc/pkg/volume"
)

// kernel is the arity independent view of a pass used by the traversal body.
// Every image of a pass is addressed with the same flat index; the last image
// drives the iteration and is the one the domain predicate looks at.
type kernel interface {
	// primary returns the attributes of the last image
	primary() volume.Attributes

	// shape names the arity, used for tracing and metrics
	shape() string

	// reduction reports whether the inside or the outside functor reduces
	reduction() bool

	// check panics if a non-empty image holds fewer than n voxels
	check(op string, n int)

	// voxel applies the pass at (i, j, k, l), which is flat index idx
	voxel(i, j, k, l, idx int)

	// voxelAt applies the pass at flat index idx
	voxelAt(idx int)

	// split returns a kernel over the same images with fresh partial functors
	split() kernel

	// join folds the partial functors of other into the receiver
	join(other kernel)
}

// binding is one functor of a pass.
type binding[F Function] struct {
	fn     F
	reduce bool
}

func bind[F Function](op string, fn F) binding[F] {
	b := binding[F]{fn: fn, reduce: fn.IsReduction()}
	if b.reduce {
		if _, ok := any(fn).(Reducible[F]); !ok {
			fail(&ConfigError{
				Op:     op,
				Reason: fmt.Sprintf("%T reports IsReduction but has no Split() %T and Join(%T) methods", fn, fn, fn),
			})
		}
	}
	return b
}

// fork returns the binding for a sibling partition. Transforms are shared.
func (b binding[F]) fork() binding[F] {
	if b.reduce {
		b.fn = any(b.fn).(Reducible[F]).Split()
	}
	return b
}

func (b binding[F]) merge(other binding[F]) {
	if b.reduce {
		any(b.fn).(Reducible[F]).Join(other.fn)
	}
}

// buffer returns the voxels of im, or nil if im is empty.
func buffer[T volume.Scalar](im *volume.Image[T]) []T {
	if im.IsEmpty() {
		return nil
	}
	return im.Data()
}

// at returns a pointer to d[idx], or nil for the buffer of an empty image.
func at[T volume.Scalar](d []T, idx int) *T {
	if d == nil {
		return nil
	}
	return &d[idx]
}

func requirePrimary[T volume.Scalar](op string, im *volume.Image[T]) {
	if im == nil {
		fail(&ConfigError{Op: op, Reason: "the last image drives the iteration and must not be nil"})
	}
}

// requireSpatial panics if a non-empty input does not share the x, y, z
// extents of the primary image.
func requireSpatial[T volume.Scalar](op string, slot int, im *volume.Image[T], primary volume.Attributes) {
	if im.IsEmpty() || im.Attributes().SameSpatialExtent(primary) {
		return
	}
	fail(&ExtentError{
		Op:      op,
		Slot:    slot,
		Primary: primary,
		Reason:  fmt.Sprintf("spatial extent %v differs", im.Attributes()),
	})
}

// requireLen panics if a non-empty image cannot be indexed up to n.
func requireLen[T volume.Scalar](op string, slot int, im *volume.Image[T], n int, primary volume.Attributes) {
	if im.IsEmpty() || im.NumberOfVoxels() >= n {
		return
	}
	fail(&ExtentError{
		Op:      op,
		Slot:    slot,
		Primary: primary,
		Reason:  fmt.Sprintf("pass needs %d voxels, image %v holds %d", n, im.Attributes(), im.NumberOfVoxels()),
	})
}

type unary[T volume.Scalar, F UnaryFunction[T], O UnaryFunction[T]] struct {
	im   *volume.Image[T]
	attr volume.Attributes
	d    []T

	inside  binding[F]
	outside binding[O]
	dom     Domain[T]

	insideAt  UnaryIndexer[T]
	outsideAt UnaryIndexer[T]
}

func newUnary[T volume.Scalar, F UnaryFunction[T], O UnaryFunction[T]](
	op string, im *volume.Image[T], dom Domain[T], inside F, outside O,
) *unary[T, F, O] {
	requirePrimary(op, im)
	u := &unary[T, F, O]{
		im:      im,
		attr:    im.Attributes(),
		d:       buffer(im),
		inside:  bind(op, inside),
		outside: bind(op, outside),
		dom:     dom,
	}
	u.indexers()
	return u
}

func (u *unary[T, F, O]) indexers() {
	u.insideAt, _ = any(u.inside.fn).(UnaryIndexer[T])
	u.outsideAt, _ = any(u.outside.fn).(UnaryIndexer[T])
}

func (u *unary[T, F, O]) primary() volume.Attributes { return u.attr }

func (u *unary[T, F, O]) shape() string { return "unary" }

func (u *unary[T, F, O]) reduction() bool { return u.inside.reduce || u.outside.reduce }

func (u *unary[T, F, O]) check(op string, n int) {
	requireLen(op, 1, u.im, n, u.attr)
}

func (u *unary[T, F, O]) voxel(i, j, k, l, idx int) {
	p := at(u.d, idx)
	if u.dom == nil || u.dom.IsInside(u.im, i, j, k, l, p) {
		u.inside.fn.Voxel(i, j, k, l, p)
	} else {
		u.outside.fn.Voxel(i, j, k, l, p)
	}
}

func (u *unary[T, F, O]) voxelAt(idx int) {
	p := at(u.d, idx)
	if u.dom == nil || u.dom.IsInsideAt(u.im, idx, p) {
		if u.insideAt != nil {
			u.insideAt.VoxelAt(u.im, idx, p)
			return
		}
		i, j, k, l := u.attr.Coordinates(idx)
		u.inside.fn.Voxel(i, j, k, l, p)
		return
	}
	if u.outsideAt != nil {
		u.outsideAt.VoxelAt(u.im, idx, p)
		return
	}
	i, j, k, l := u.attr.Coordinates(idx)
	u.outside.fn.Voxel(i, j, k, l, p)
}

func (u *unary[T, F, O]) split() kernel {
	c := *u
	c.inside = u.inside.fork()
	c.outside = u.outside.fork()
	c.indexers()
	return &c
}

func (u *unary[T, F, O]) join(other kernel) {
	o := other.(*unary[T, F, O])
	u.inside.merge(o.inside)
	u.outside.merge(o.outside)
}

type binary[T1, T2 volume.Scalar, F BinaryFunction[T1, T2], O BinaryFunction[T1, T2]] struct {
	im1  *volume.Image[T1]
	im2  *volume.Image[T2]
	attr volume.Attributes
	d1   []T1
	d2   []T2

	inside  binding[F]
	outside binding[O]
	dom     Domain[T2]

	insideAt  BinaryIndexer[T1, T2]
	outsideAt BinaryIndexer[T1, T2]
}

func newBinary[T1, T2 volume.Scalar, F BinaryFunction[T1, T2], O BinaryFunction[T1, T2]](
	op string, im1 *volume.Image[T1], im2 *volume.Image[T2], dom Domain[T2], inside F, outside O,
) *binary[T1, T2, F, O] {
	requirePrimary(op, im2)
	attr := im2.Attributes()
	requireSpatial(op, 1, im1, attr)
	b := &binary[T1, T2, F, O]{
		im1:     im1,
		im2:     im2,
		attr:    attr,
		d1:      buffer(im1),
		d2:      buffer(im2),
		inside:  bind(op, inside),
		outside: bind(op, outside),
		dom:     dom,
	}
	b.indexers()
	return b
}

func (b *binary[T1, T2, F, O]) indexers() {
	b.insideAt, _ = any(b.inside.fn).(BinaryIndexer[T1, T2])
	b.outsideAt, _ = any(b.outside.fn).(BinaryIndexer[T1, T2])
}

func (b *binary[T1, T2, F, O]) primary() volume.Attributes { return b.attr }

func (b *binary[T1, T2, F, O]) shape() string { return "binary" }

func (b *binary[T1, T2, F, O]) reduction() bool { return b.inside.reduce || b.outside.reduce }

func (b *binary[T1, T2, F, O]) check(op string, n int) {
	requireLen(op, 1, b.im1, n, b.attr)
	requireLen(op, 2, b.im2, n, b.attr)
}

func (b *binary[T1, T2, F, O]) voxel(i, j, k, l, idx int) {
	p1, p2 := at(b.d1, idx), at(b.d2, idx)
	if b.dom == nil || b.dom.IsInside(b.im2, i, j, k, l, p2) {
		b.inside.fn.Voxel(i, j, k, l, p1, p2)
	} else {
		b.outside.fn.Voxel(i, j, k, l, p1, p2)
	}
}

func (b *binary[T1, T2, F, O]) voxelAt(idx int) {
	p1, p2 := at(b.d1, idx), at(b.d2, idx)
	if b.dom == nil || b.dom.IsInsideAt(b.im2, idx, p2) {
		if b.insideAt != nil {
			b.insideAt.VoxelAt(b.im2, idx, p1, p2)
			return
		}
		i, j, k, l := b.attr.Coordinates(idx)
		b.inside.fn.Voxel(i, j, k, l, p1, p2)
		return
	}
	if b.outsideAt != nil {
		b.outsideAt.VoxelAt(b.im2, idx, p1, p2)
		return
	}
	i, j, k, l := b.attr.Coordinates(idx)
	b.outside.fn.Voxel(i, j, k, l, p1, p2)
}

func (b *binary[T1, T2, F, O]) split() kernel {
	c := *b
	c.inside = b.inside.fork()
	c.outside = b.outside.fork()
	c.indexers()
	return &c
}

func (b *binary[T1, T2, F, O]) join(other kernel) {
	o := other.(*binary[T1, T2, F, O])
	b.inside.merge(o.inside)
	b.outside.merge(o.outside)
}

type ternary[T1, T2, T3 volume.Scalar, F TernaryFunction[T1, T2, T3], O TernaryFunction[T1, T2, T3]] struct {
	im1  *volume.Image[T1]
	im2  *volume.Image[T2]
	im3  *volume.Image[T3]
	attr volume.Attributes
	d1   []T1
	d2   []T2
	d3   []T3

	inside  binding[F]
	outside binding[O]
	dom     Domain[T3]

	insideAt  TernaryIndexer[T1, T2, T3]
	outsideAt TernaryIndexer[T1, T2, T3]
}

func newTernary[T1, T2, T3 volume.Scalar, F TernaryFunction[T1, T2, T3], O TernaryFunction[T1, T2, T3]](
	op string, im1 *volume.Image[T1], im2 *volume.Image[T2], im3 *volume.Image[T3], dom Domain[T3], inside F, outside O,
) *ternary[T1, T2, T3, F, O] {
	requirePrimary(op, im3)
	attr := im3.Attributes()
	requireSpatial(op, 1, im1, attr)
	requireSpatial(op, 2, im2, attr)
	t := &ternary[T1, T2, T3, F, O]{
		im1:     im1,
		im2:     im2,
		im3:     im3,
		attr:    attr,
		d1:      buffer(im1),
		d2:      buffer(im2),
		d3:      buffer(im3),
		inside:  bind(op, inside),
		outside: bind(op, outside),
		dom:     dom,
	}
	t.indexers()
	return t
}

func (t *ternary[T1, T2, T3, F, O]) indexers() {
	t.insideAt, _ = any(t.inside.fn).(TernaryIndexer[T1, T2, T3])
	t.outsideAt, _ = any(t.outside.fn).(TernaryIndexer[T1, T2, T3])
}

func (t *ternary[T1, T2, T3, F, O]) primary() volume.Attributes { return t.attr }

func (t *ternary[T1, T2, T3, F, O]) shape() string { return "ternary" }

func (t *ternary[T1, T2, T3, F, O]) reduction() bool { return t.inside.reduce || t.outside.reduce }

func (t *ternary[T1, T2, T3, F, O]) check(op string, n int) {
	requireLen(op, 1, t.im1, n, t.attr)
	requireLen(op, 2, t.im2, n, t.attr)
	requireLen(op, 3, t.im3, n, t.attr)
}

func (t *ternary[T1, T2, T3, F, O]) voxel(i, j, k, l, idx int) {
	p1, p2, p3 := at(t.d1, idx), at(t.d2, idx), at(t.d3, idx)
	if t.dom == nil || t.dom.IsInside(t.im3, i, j, k, l, p3) {
		t.inside.fn.Voxel(i, j, k, l, p1, p2, p3)
	} else {
		t.outside.fn.Voxel(i, j, k, l, p1, p2, p3)
	}
}

func (t *ternary[T1, T2, T3, F, O]) voxelAt(idx int) {
	p1, p2, p3 := at(t.d1, idx), at(t.d2, idx), at(t.d3, idx)
	if t.dom == nil || t.dom.IsInsideAt(t.im3, idx, p3) {
		if t.insideAt != nil {
			t.insideAt.VoxelAt(t.im3, idx, p1, p2, p3)
			return
		}
		i, j, k, l := t.attr.Coordinates(idx)
		t.inside.fn.Voxel(i, j, k, l, p1, p2, p3)
		return
	}
	if t.outsideAt != nil {
		t.outsideAt.VoxelAt(t.im3, idx, p1, p2, p3)
		return
	}
	i, j, k, l := t.attr.Coordinates(idx)
	t.outside.fn.Voxel(i, j, k, l, p1, p2, p3)
}

func (t *ternary[T1, T2, T3, F, O]) split() kernel {
	c := *t
	c.inside = t.inside.fork()
	c.outside = t.outside.fork()
	c.indexers()
	return &c
}

func (t *ternary[T1, T2, T3, F, O]) join(other kernel) {
	o := other.(*ternary[T1, T2, T3, F, O])
	t.inside.merge(o.inside)
	t.outside.merge(o.outside)
}
