package voxel

import (
	"voxelfunc/pkg/volume"
)

// Pass binds one to three images to a functor. It is consumed by the
// ForEach entry points.
//
// The last image drives the iteration: its extents bound the loops and the
// other images are addressed with the same voxel index. Inputs may be empty
// (or nil), in which case their functor argument is nil for every voxel.
// Non-empty inputs must share the x, y and z extents of the last image.
//
// Passes built with Unary, Binary and Ternary hold the functor by reference.
// A reduction functor runs on partial copies obtained from Split, which are
// joined back into it when the traversal completes, so the caller reads the
// accumulated result from its own functor. Transforms are shared by all
// partitions and must be safe for concurrent calls.
//
// The ...Value constructors hold the functor by value: they accept transforms
// only and panic with a *ConfigError, before any voxel is visited, when given
// a reduction.
type Pass struct {
	k kernel
}

// IfPass is a Pass restricted by a Domain predicate. Where the predicate holds
// on the last image the inside functor runs, elsewhere the outside functor
// runs with identical arguments.
type IfPass struct {
	k kernel
}

// Unary binds fn to im.
func Unary[T volume.Scalar, F UnaryFunction[T]](im *volume.Image[T], fn F) *Pass {
	return &Pass{k: newUnary("Unary", im, nil, fn, NopUnary[T]{})}
}

// UnaryValue binds a transform to im.
func UnaryValue[T volume.Scalar, F UnaryFunction[T]](im *volume.Image[T], fn F) *Pass {
	requireTransform("UnaryValue", fn)
	return Unary(im, fn)
}

// UnaryIf binds inside and outside functors to im, selected by dom.
func UnaryIf[T volume.Scalar, D Domain[T], F UnaryFunction[T], O UnaryFunction[T]](
	im *volume.Image[T], dom D, inside F, outside O,
) *IfPass {
	return &IfPass{k: newUnary[T, F, O]("UnaryIf", im, dom, inside, outside)}
}

// UnaryIfValue is UnaryIf for transforms held by value.
func UnaryIfValue[T volume.Scalar, D Domain[T], F UnaryFunction[T], O UnaryFunction[T]](
	im *volume.Image[T], dom D, inside F, outside O,
) *IfPass {
	requireTransform("UnaryIfValue", inside, outside)
	return UnaryIf(im, dom, inside, outside)
}

// Binary binds fn to im1 and im2. im2 drives the iteration.
func Binary[T1, T2 volume.Scalar, F BinaryFunction[T1, T2]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], fn F,
) *Pass {
	return &Pass{k: newBinary("Binary", im1, im2, nil, fn, NopBinary[T1, T2]{})}
}

// BinaryValue binds a transform to im1 and im2.
func BinaryValue[T1, T2 volume.Scalar, F BinaryFunction[T1, T2]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], fn F,
) *Pass {
	requireTransform("BinaryValue", fn)
	return Binary(im1, im2, fn)
}

// BinaryIf binds inside and outside functors to im1 and im2, selected by dom
// evaluated on im2.
func BinaryIf[T1, T2 volume.Scalar, D Domain[T2], F BinaryFunction[T1, T2], O BinaryFunction[T1, T2]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], dom D, inside F, outside O,
) *IfPass {
	return &IfPass{k: newBinary[T1, T2, F, O]("BinaryIf", im1, im2, dom, inside, outside)}
}

// BinaryIfValue is BinaryIf for transforms held by value.
func BinaryIfValue[T1, T2 volume.Scalar, D Domain[T2], F BinaryFunction[T1, T2], O BinaryFunction[T1, T2]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], dom D, inside F, outside O,
) *IfPass {
	requireTransform("BinaryIfValue", inside, outside)
	return BinaryIf(im1, im2, dom, inside, outside)
}

// Ternary binds fn to im1, im2 and im3. im3 drives the iteration.
func Ternary[T1, T2, T3 volume.Scalar, F TernaryFunction[T1, T2, T3]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], im3 *volume.Image[T3], fn F,
) *Pass {
	return &Pass{k: newTernary("Ternary", im1, im2, im3, nil, fn, NopTernary[T1, T2, T3]{})}
}

// TernaryValue binds a transform to im1, im2 and im3.
func TernaryValue[T1, T2, T3 volume.Scalar, F TernaryFunction[T1, T2, T3]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], im3 *volume.Image[T3], fn F,
) *Pass {
	requireTransform("TernaryValue", fn)
	return Ternary(im1, im2, im3, fn)
}

// TernaryIf binds inside and outside functors to three images, selected by
// dom evaluated on im3.
func TernaryIf[T1, T2, T3 volume.Scalar, D Domain[T3], F TernaryFunction[T1, T2, T3], O TernaryFunction[T1, T2, T3]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], im3 *volume.Image[T3], dom D, inside F, outside O,
) *IfPass {
	return &IfPass{k: newTernary[T1, T2, T3, F, O]("TernaryIf", im1, im2, im3, dom, inside, outside)}
}

// TernaryIfValue is TernaryIf for transforms held by value.
func TernaryIfValue[T1, T2, T3 volume.Scalar, D Domain[T3], F TernaryFunction[T1, T2, T3], O TernaryFunction[T1, T2, T3]](
	im1 *volume.Image[T1], im2 *volume.Image[T2], im3 *volume.Image[T3], dom D, inside F, outside O,
) *IfPass {
	requireTransform("TernaryIfValue", inside, outside)
	return TernaryIf(im1, im2, im3, dom, inside, outside)
}
