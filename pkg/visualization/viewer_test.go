package visualization

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"voxelfunc/internal/models"
	"voxelfunc/pkg/parallel"
	"voxelfunc/pkg/volume"
)

// gradient returns an image whose voxels hold x + 10*y + 100*z + 1000*t
func gradient(attr volume.Attributes) *volume.Image[float64] {
	im := volume.NewImage[float64](attr)
	for idx := range im.Data() {
		x, y, z, t := attr.Coordinates(idx)
		im.Set(idx, float64(x+10*y+100*z+1000*t))
	}
	return im
}

// TestNewViewer verifies that the window covers the image range
func TestNewViewer(t *testing.T) {
	im := gradient(volume.NewAttributes(10, 10, 5, 1))
	viewer := NewViewer(im, parallel.New(4))

	lo, hi := viewer.Window()
	if lo != 0 || hi != 9+90+400 {
		t.Errorf("Expected window [0,499], got [%v,%v]", lo, hi)
	}

	flat := volume.NewImage[float64](volume.NewAttributes(3, 3, 3, 1))
	flat.Fill(7)
	lo, hi = NewViewer(flat, nil).Window()
	if lo != 0 || hi != 1 {
		t.Errorf("Expected the unit window for a constant image, got [%v,%v]", lo, hi)
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	attr := volume.NewAttributes(width, height, depth, 2)
	viewer := NewViewer(gradient(attr), parallel.New(3, parallel.WithGrain(4)))
	viewer.SetWindow(0, 65535)

	tests := []struct {
		axis          string
		position      int
		channel       int
		width, height int
		at            func(px, py int) int
	}{
		{"z", 3, 0, width, height, func(px, py int) int { return px + 10*py + 300 }},
		{"z", 1, 1, width, height, func(px, py int) int { return px + 10*py + 100 + 1000 }},
		{"y", 6, 0, width, depth, func(px, py int) int { return px + 60 + 100*py }},
		{"x", 4, 1, depth, height, func(px, py int) int { return 4 + 10*py + 100*px + 1000 }},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s=%d/t=%d", tc.axis, tc.position, tc.channel), func(t *testing.T) {
			img, err := viewer.ExtractSlice(tc.axis, tc.position, tc.channel)
			if err != nil {
				t.Fatalf("Failed to extract slice: %v", err)
			}
			bounds := img.Bounds()
			if bounds.Dx() != tc.width || bounds.Dy() != tc.height {
				t.Fatalf("Expected slice dimensions %dx%d, got %dx%d", tc.width, tc.height, bounds.Dx(), bounds.Dy())
			}
			for py := 0; py < tc.height; py++ {
				for px := 0; px < tc.width; px++ {
					if got, want := int(img.Gray16At(px, py).Y), tc.at(px, py); got != want {
						t.Fatalf("Expected %d at (%d,%d), got %d", want, px, py, got)
					}
				}
			}
		})
	}

	if _, err := viewer.ExtractSlice("invalid", 0, 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", depth, 0); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("z", 0, 2); err == nil {
		t.Error("Expected error for out of bounds channel, got nil")
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	attr := volume.NewAttributes(10, 10, 5, 2)
	im := gradient(attr)
	viewer := NewViewer(im, nil)

	startX, startY, startZ := 2, 3, 1
	sizeX, sizeY, sizeZ := 4, 3, 2

	sub, err := viewer.ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ, 1)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}
	if got := sub.NumberOfVoxels(); got != sizeX*sizeY*sizeZ {
		t.Errorf("Expected region size %d, got %d", sizeX*sizeY*sizeZ, got)
	}
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				want := im.At(startX+x, startY+y, startZ+z, 1)
				if got := sub.At(x, y, z, 0); got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %f, got %f", x, y, z, want, got)
				}
			}
		}
	}

	if _, err := viewer.ExtractRegion(-1, 0, 0, 1, 1, 1, 0); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}
	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 1, 1, 0); err == nil {
		t.Error("Expected error for zero size, got nil")
	}
	if _, err := viewer.ExtractRegion(attr.X-1, 0, 0, 2, 1, 1, 0); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved and
// read back
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	attr := volume.NewAttributes(12, 9, 4, 1)
	viewer := NewViewer(models.DefaultPhantom(attr).Build(), nil)

	outputDir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", outputDir, 0); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for z := 0; z < attr.Z; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		f, err := os.Open(filename)
		if err != nil {
			t.Fatalf("Expected slice file %s: %v", filename, err)
		}
		cfg, err := png.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("Failed to decode %s: %v", filename, err)
		}
		if cfg.Width != attr.X || cfg.Height != attr.Y {
			t.Errorf("Expected %dx%d slice, got %dx%d", attr.X, attr.Y, cfg.Width, cfg.Height)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir, 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
