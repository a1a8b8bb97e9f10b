package voxel

import (
	"voxelfunc/pkg/volume"
)

// Function is the capability every voxel functor exposes.
//
// IsReduction reports whether invocations accumulate state that has to be
// merged across parallel partitions. It must return the same value for every
// instance of a type. Reductions must also implement Reducible.
type Function interface {
	IsReduction() bool
}

// Reducible is implemented by reduction functors of type F.
//
// Split returns a new functor with the identity state, used for a sibling
// partition. Join folds the state of other into the receiver. Join is called
// once per pair of sibling partitions in no particular order, so it must be
// commutative and associative for reproducible results.
type Reducible[F any] interface {
	Split() F
	Join(other F)
}

// UnaryFunction is a functor over one image. Voxel receives the coordinates
// of the current voxel and a pointer to it, or nil if the image is empty.
type UnaryFunction[T volume.Scalar] interface {
	Function
	Voxel(i, j, k, l int, p *T)
}

// UnaryIndexer is the optional flat index form of a UnaryFunction. Linear
// range passes call it instead of Voxel when it is implemented, so the functor
// does not need the coordinates reconstructed from the index.
type UnaryIndexer[T volume.Scalar] interface {
	VoxelAt(im *volume.Image[T], idx int, p *T)
}

// BinaryFunction is a functor over two images.
type BinaryFunction[T1, T2 volume.Scalar] interface {
	Function
	Voxel(i, j, k, l int, p1 *T1, p2 *T2)
}

// BinaryIndexer is the flat index form of a BinaryFunction. im is the second
// image, which drives the iteration.
type BinaryIndexer[T1, T2 volume.Scalar] interface {
	VoxelAt(im *volume.Image[T2], idx int, p1 *T1, p2 *T2)
}

// TernaryFunction is a functor over three images.
type TernaryFunction[T1, T2, T3 volume.Scalar] interface {
	Function
	Voxel(i, j, k, l int, p1 *T1, p2 *T2, p3 *T3)
}

// TernaryIndexer is the flat index form of a TernaryFunction. im is the third
// image, which drives the iteration.
type TernaryIndexer[T1, T2, T3 volume.Scalar] interface {
	VoxelAt(im *volume.Image[T3], idx int, p1 *T1, p2 *T2, p3 *T3)
}

// Transform can be embedded by functors that only write through their
// pointers.
type Transform struct{}

// IsReduction returns false.
func (Transform) IsReduction() bool { return false }

// Reduction can be embedded by functors that accumulate state. The embedding
// type still has to implement Reducible.
type Reduction struct{}

// IsReduction returns true.
func (Reduction) IsReduction() bool { return true }

// UnaryFunc adapts a plain function to UnaryFunction. It is never a reduction
// and must be safe for concurrent calls.
type UnaryFunc[T volume.Scalar] func(i, j, k, l int, p *T)

func (f UnaryFunc[T]) IsReduction() bool { return false }

func (f UnaryFunc[T]) Voxel(i, j, k, l int, p *T) { f(i, j, k, l, p) }

// BinaryFunc adapts a plain function to BinaryFunction.
type BinaryFunc[T1, T2 volume.Scalar] func(i, j, k, l int, p1 *T1, p2 *T2)

func (f BinaryFunc[T1, T2]) IsReduction() bool { return false }

func (f BinaryFunc[T1, T2]) Voxel(i, j, k, l int, p1 *T1, p2 *T2) { f(i, j, k, l, p1, p2) }

// TernaryFunc adapts a plain function to TernaryFunction.
type TernaryFunc[T1, T2, T3 volume.Scalar] func(i, j, k, l int, p1 *T1, p2 *T2, p3 *T3)

func (f TernaryFunc[T1, T2, T3]) IsReduction() bool { return false }

func (f TernaryFunc[T1, T2, T3]) Voxel(i, j, k, l int, p1 *T1, p2 *T2, p3 *T3) {
	f(i, j, k, l, p1, p2, p3)
}

// NopUnary is the default outside functor of predicated unary passes.
type NopUnary[T volume.Scalar] struct{ Transform }

func (NopUnary[T]) Voxel(int, int, int, int, *T) {}
func (NopUnary[T]) VoxelAt(*volume.Image[T], int, *T) {}

// NopBinary is the default outside functor of predicated binary passes.
type NopBinary[T1, T2 volume.Scalar] struct{ Transform }

func (NopBinary[T1, T2]) Voxel(int, int, int, int, *T1, *T2) {}
func (NopBinary[T1, T2]) VoxelAt(*volume.Image[T2], int, *T1, *T2) {}

// NopTernary is the default outside functor of predicated ternary passes.
type NopTernary[T1, T2, T3 volume.Scalar] struct{ Transform }

func (NopTernary[T1, T2, T3]) Voxel(int, int, int, int, *T1, *T2, *T3) {}
func (NopTernary[T1, T2, T3]) VoxelAt(*volume.Image[T3], int, *T1, *T2, *T3) {}
