// Package visualization renders planes and sub-blocks of 4-D images. The
// extraction runs as region passes on the voxel traversal engine.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"voxelfunc/pkg/parallel"
	"voxelfunc/pkg/region"
	"voxelfunc/pkg/similarity"
	"voxelfunc/pkg/volume"
	"voxelfunc/pkg/voxel"
)

// Viewer extracts 2D slices and 3D regions from an image.
type Viewer struct {
	// im is the viewed image
	im *volume.Image[float64]

	// lo and hi bound the intensity window mapped onto the 16 bit gray range
	lo, hi float64

	// sched runs the extraction passes
	sched *parallel.Scheduler
}

// NewViewer creates a viewer for im. The intensity window is set to the range
// of the image. A nil scheduler selects parallel.Default().
func NewViewer(im *volume.Image[float64], sched *parallel.Scheduler) *Viewer {
	if sched == nil {
		sched = parallel.Default()
	}
	v := &Viewer{im: im, lo: 0, hi: 1, sched: sched}

	r := &similarity.MinMax[float64]{}
	voxel.ParallelForEachScalar(voxel.Unary(im, r), voxel.WithScheduler(sched))
	if r.N > 0 && r.Max > r.Min {
		v.lo, v.hi = r.Min, r.Max
	}
	return v
}

// SetWindow sets the intensities mapped to black and white.
func (v *Viewer) SetWindow(lo, hi float64) {
	v.lo, v.hi = lo, hi
}

// Window returns the intensities mapped to black and white.
func (v *Viewer) Window() (lo, hi float64) {
	return v.lo, v.hi
}

func (v *Viewer) gray(x float64) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	s := (x - v.lo) / (v.hi - v.lo) * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(s))))}
}

// ExtractSlice extracts a 2D plane of channel along the given axis.
// For axis z the slice is x by y, for y it is x by z and for x it is z by y.
func (v *Viewer) ExtractSlice(axis string, position, channel int) (*image.Gray16, error) {
	attr := v.im.Attributes()
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	if channel < 0 || channel >= attr.EffectiveT() {
		return nil, fmt.Errorf("channel %d outside [0,%d)", channel, attr.EffectiveT())
	}
	opts := []voxel.Option{voxel.WithScheduler(v.sched), voxel.WithChannel(channel)}

	var img *image.Gray16
	switch axis {
	case "x", "X":
		if position >= attr.X {
			return nil, fmt.Errorf("position %d exceeds width %d", position, attr.X)
		}
		img = image.NewGray16(image.Rect(0, 0, attr.Z, attr.Y))
		box := region.NewRect3D(0, attr.Z, 0, attr.Y, position, position+1)
		voxel.ParallelForEachVoxelIn(v.pass(func(i, j, k int, x float64) {
			img.SetGray16(k, j, v.gray(x))
		}), box, opts...)

	case "y", "Y":
		if position >= attr.Y {
			return nil, fmt.Errorf("position %d exceeds height %d", position, attr.Y)
		}
		img = image.NewGray16(image.Rect(0, 0, attr.X, attr.Z))
		box := region.NewRect3D(0, attr.Z, position, position+1, 0, attr.X)
		voxel.ParallelForEachVoxelIn(v.pass(func(i, j, k int, x float64) {
			img.SetGray16(i, k, v.gray(x))
		}), box, opts...)

	case "z", "Z":
		if position >= attr.Z {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, attr.Z)
		}
		img = image.NewGray16(image.Rect(0, 0, attr.X, attr.Y))
		voxel.ParallelForEachVoxelIn(v.pass(func(i, j, k int, x float64) {
			img.SetGray16(i, j, v.gray(x))
		}), region.Rect2DOf(attr), append(opts, voxel.WithPlane(position))...)

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// pass binds a per voxel callback to the viewed image. Every voxel writes a
// distinct pixel, so the callback may run concurrently.
func (v *Viewer) pass(fn func(i, j, k int, x float64)) *voxel.Pass {
	return voxel.UnaryValue(v.im, voxel.UnaryFunc[float64](func(i, j, k, _ int, p *float64) {
		fn(i, j, k, *p)
	}))
}

// ExtractRegion copies a block of channel into a new single channel image
// with the spacing of the viewed image.
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ, channel int) (*volume.Image[float64], error) {
	attr := v.im.Attributes()
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	if startX+sizeX > attr.X || startY+sizeY > attr.Y || startZ+sizeZ > attr.Z {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}
	if channel < 0 || channel >= attr.EffectiveT() {
		return nil, fmt.Errorf("channel %d outside [0,%d)", channel, attr.EffectiveT())
	}

	sub := attr
	sub.X, sub.Y, sub.Z, sub.T = sizeX, sizeY, sizeZ, 1
	out := volume.NewImage[float64](sub)
	if bg, ok := v.im.Background(); ok {
		out.SetBackground(bg)
	}

	box := region.NewRect3D(startZ, startZ+sizeZ, startY, startY+sizeY, startX, startX+sizeX)
	voxel.ParallelForEachVoxelIn(v.pass(func(i, j, k int, x float64) {
		out.Put(i-startX, j-startY, k-startZ, 0, x)
	}), box, voxel.WithScheduler(v.sched), voxel.WithChannel(channel))
	return out, nil
}

// SaveSlice saves an extracted slice as a 16 bit PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", filename, err)
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice of channel along the
// specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string, channel int) error {
	attr := v.im.Attributes()
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = attr.X
	case "y", "Y":
		maxPos = attr.Y
	case "z", "Z":
		maxPos = attr.Z
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos, channel)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
