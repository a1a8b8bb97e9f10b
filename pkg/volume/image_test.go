package volume

import (
	"testing"
)

// TestAttributesCounts verifies voxel counts, including the T == 0 convention
func TestAttributesCounts(t *testing.T) {
	tests := []struct {
		name           string
		attr           Attributes
		wantSpatial    int
		wantVoxels     int
		wantEffectiveT int
		wantTimeSeries bool
	}{
		{"single frame", NewAttributes(4, 3, 2, 1), 24, 24, 1, false},
		{"zero t", NewAttributes(4, 3, 2, 0), 24, 24, 1, false},
		{"vector", NewAttributes(4, 3, 2, 3), 24, 72, 3, false},
		{"time series", NewTimeSeries(4, 3, 2, 5, 0.5), 24, 120, 5, true},
		{"empty", NewAttributes(0, 3, 2, 1), 0, 0, 1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.attr.NumberOfSpatialVoxels(); got != tc.wantSpatial {
				t.Errorf("Expected %d spatial voxels, got %d", tc.wantSpatial, got)
			}
			if got := tc.attr.NumberOfVoxels(); got != tc.wantVoxels {
				t.Errorf("Expected %d voxels, got %d", tc.wantVoxels, got)
			}
			if got := tc.attr.EffectiveT(); got != tc.wantEffectiveT {
				t.Errorf("Expected effective t %d, got %d", tc.wantEffectiveT, got)
			}
			if got := tc.attr.IsTimeSeries(); got != tc.wantTimeSeries {
				t.Errorf("Expected time series %v, got %v", tc.wantTimeSeries, got)
			}
		})
	}
}

// TestIndexRoundTrip checks that Index and Coordinates are inverse mappings
func TestIndexRoundTrip(t *testing.T) {
	attr := NewAttributes(5, 4, 3, 2)
	idx := 0
	for l := 0; l < attr.T; l++ {
		for k := 0; k < attr.Z; k++ {
			for j := 0; j < attr.Y; j++ {
				for i := 0; i < attr.X; i++ {
					if got := attr.Index(i, j, k, l); got != idx {
						t.Fatalf("Index(%d,%d,%d,%d) = %d, want %d", i, j, k, l, got, idx)
					}
					ci, cj, ck, cl := attr.Coordinates(idx)
					if ci != i || cj != j || ck != k || cl != l {
						t.Fatalf("Coordinates(%d) = (%d,%d,%d,%d), want (%d,%d,%d,%d)",
							idx, ci, cj, ck, cl, i, j, k, l)
					}
					idx++
				}
			}
		}
	}
}

func TestValidate(t *testing.T) {
	if err := NewAttributes(-1, 2, 2, 1).Validate(); err == nil {
		t.Error("Expected error for negative extent")
	}
	if err := NewAttributes(0, 0, 0, 0).Validate(); err != nil {
		t.Errorf("Unexpected error for zero extents: %v", err)
	}
}

// TestImageAccess verifies coordinate and flat access agree
func TestImageAccess(t *testing.T) {
	im := NewImage[float32](NewAttributes(3, 3, 2, 2))
	if im.NumberOfVoxels() != 36 {
		t.Fatalf("Expected 36 voxels, got %d", im.NumberOfVoxels())
	}

	im.Put(2, 1, 1, 1, 7)
	idx := im.Attributes().Index(2, 1, 1, 1)
	if im.Get(idx) != 7 {
		t.Errorf("Expected 7 at index %d, got %f", idx, im.Get(idx))
	}
	if *im.Ptr(idx) != 7 {
		t.Errorf("Expected pointer to read 7, got %f", *im.Ptr(idx))
	}

	im.Set(0, 3)
	if im.At(0, 0, 0, 0) != 3 {
		t.Errorf("Expected 3 at origin, got %f", im.At(0, 0, 0, 0))
	}
}

func TestEmptyImage(t *testing.T) {
	var nilImage *Image[uint8]
	if !nilImage.IsEmpty() {
		t.Error("Expected nil image to be empty")
	}
	if nilImage.Ptr(0) != nil {
		t.Error("Expected nil pointer from nil image")
	}

	im := NewImage[uint8](NewAttributes(0, 4, 4, 1))
	if !im.IsEmpty() {
		t.Error("Expected zero-extent image to be empty")
	}
	if im.Ptr(0) != nil {
		t.Error("Expected nil pointer from empty image")
	}

	bad := NewImage[uint8](NewAttributes(-2, 4, 4, 1))
	if !bad.IsEmpty() {
		t.Error("Expected image with negative extent to be empty")
	}
}

func TestNewImageFromData(t *testing.T) {
	attr := NewAttributes(2, 2, 1, 1)
	if _, err := NewImageFromData(attr, []int16{1, 2, 3}); err == nil {
		t.Error("Expected error for short buffer")
	}

	data := []int16{1, 2, 3, 4}
	im, err := NewImageFromData(attr, data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	im.Set(3, 9)
	if data[3] != 9 {
		t.Error("Expected image to share the caller's buffer")
	}
}

func TestCloneAndBackground(t *testing.T) {
	im := NewImage[int32](NewAttributes(2, 2, 2, 1))
	im.Fill(5)
	im.SetBackground(0)
	im.Set(0, 0)

	c := im.Clone()
	c.Set(1, 42)
	if im.Get(1) == 42 {
		t.Error("Expected clone to own a separate buffer")
	}
	if bg, ok := c.Background(); !ok || bg != 0 {
		t.Errorf("Expected clone to keep background 0, got %d (%v)", bg, ok)
	}

	if im.IsForeground(0) {
		t.Error("Expected voxel 0 to be background")
	}
	if !im.IsForeground(1) {
		t.Error("Expected voxel 1 to be foreground")
	}

	im.ClearBackground()
	if !im.IsForeground(0) {
		t.Error("Expected every voxel to be foreground without a background value")
	}
}
