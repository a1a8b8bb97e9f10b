package voxel

import (
	"fmt"

	"voxelfunc/pkg/volume"
)

// ConfigError reports a pass that was set up against its calling convention,
// such as a reduction functor given to an entry point that discards partial
// results. It is raised with panic before any voxel is visited.
type ConfigError struct {
	// Op is the entry point that rejected the pass
	Op string

	// Reason describes the violated convention
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("voxel: %s: %s", e.Op, e.Reason)
}

// ExtentError reports images of one pass whose extents do not fit together,
// or a region that reaches outside the image driving the pass. It is raised
// with panic before any voxel is visited.
type ExtentError struct {
	// Op is the entry point that rejected the pass
	Op string

	// Slot is the 1-based position of the offending image, 0 for a region
	Slot int

	// Primary are the attributes of the image that drives the iteration
	Primary volume.Attributes

	// Reason describes the mismatch
	Reason string
}

func (e *ExtentError) Error() string {
	if e.Slot == 0 {
		return fmt.Sprintf("voxel: %s: region outside image %v: %s", e.Op, e.Primary, e.Reason)
	}
	return fmt.Sprintf("voxel: %s: image %d does not match image %v: %s", e.Op, e.Slot, e.Primary, e.Reason)
}

// fail traces err and panics with it.
func fail(err error) {
	tracer().Errorf("%v", err)
	panic(err)
}

// requireTransform panics with a ConfigError if any of fns is a reduction.
// It guards the entry points that take a functor by value.
func requireTransform(op string, fns ...Function) {
	for _, fn := range fns {
		if fn.IsReduction() {
			fail(&ConfigError{
				Op:     op,
				Reason: fmt.Sprintf("%T is a reduction and its result would be lost; pass the functor by reference instead", fn),
			})
		}
	}
}
