// Copyright 2018 Fabian Wenzelmann
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mosaicify

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

func sameColor(c1, c2 color.Color) bool {
	r1, g1, b1, a1 := c1.RGBA()
	r2, g2, b2, a2 := c2.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func TestResizeStrategies(t *testing.T) {
	img := imaging.New(40, 10, red)
	resizers := []ImageResizer{
		NewNfntResizer(resize.Bilinear),
		NewImagingResizer(imaging.Lanczos),
	}
	for _, resizer := range resizers {
		for _, s := range []ResizeStrategy{ForceResize, FillResize} {
			res := s(resizer, 7, 5, img)
			if res.Bounds().Dx() != 7 || res.Bounds().Dy() != 5 {
				t.Errorf("Expected 7x5 image, got %v", res.Bounds())
			}
		}
	}
}

func TestGetInterP(t *testing.T) {
	if GetInterP(0) != resize.NearestNeighbor || GetInterP(5) != resize.Lanczos3 || GetInterP(42) != resize.Lanczos3 {
		t.Error("Unexpected interpolation functions")
	}
}

func TestImageCache(t *testing.T) {
	cache := NewImageCache(2)
	img := imaging.New(1, 1, red)
	cache.Put(0, 1, 1, img)
	cache.Put(1, 1, 1, img)
	cache.Put(1, 1, 1, img)
	if cache.Len() != 2 {
		t.Errorf("Expected 2 cached images, got %d", cache.Len())
	}
	cache.Put(2, 1, 1, img)
	if cache.Get(0, 1, 1) != nil {
		t.Error("Expected oldest image to be removed")
	}
	if cache.Get(1, 1, 1) == nil || cache.Get(2, 1, 1) == nil {
		t.Error("Expected newer images in cache")
	}
	if cache.Get(1, 2, 2) != nil {
		t.Error("Sizes must be part of the key")
	}
}

func TestComposeMosaic(t *testing.T) {
	storage := NewMemoryImageStorage(imaging.New(4, 4, red), imaging.New(3, 3, blue))
	assignment := newAssignment(2, 2)
	assignment.IDs[0][0] = 0
	assignment.IDs[0][1] = 1
	assignment.IDs[1][0] = 1
	// (1, 1) stays empty
	div, err := DivideGrid(image.Rect(0, 0, 9, 6), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	var calls int
	mosaic, err := ComposeMosaic(storage, assignment, div, NewNfntResizer(resize.NearestNeighbor), nil, 2, 1, func(num int) { calls = num })
	if err != nil {
		t.Fatal(err)
	}
	if mosaic.Bounds() != image.Rect(0, 0, 9, 6) {
		t.Errorf("Unexpected bounds %v", mosaic.Bounds())
	}
	checks := []struct {
		x, y     int
		expected color.Color
	}{
		{0, 0, red},
		{4, 2, red},
		{5, 0, blue},
		{8, 2, blue},
		{0, 3, blue},
		{6, 4, color.RGBA{}},
	}
	for _, c := range checks {
		if got := mosaic.At(c.x, c.y); !sameColor(got, c.expected) {
			t.Errorf("Pixel (%d, %d): expected %v, got %v", c.x, c.y, c.expected, got)
		}
	}
	if calls != 3 {
		t.Errorf("Expected 3 composed tiles, got %d", calls)
	}
}

func TestComposeMosaicMismatch(t *testing.T) {
	storage := NewMemoryImageStorage(imaging.New(1, 1, red))
	div, err := DivideGrid(image.Rect(0, 0, 4, 4), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ComposeMosaic(storage, newAssignment(1, 2), div, nil, nil, 1, 1, nil); err == nil {
		t.Error("Expected error for different grid sizes")
	}
}

func TestSaveImage(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mosaic.png")
	if err := SaveImage(file, imaging.New(3, 2, green), 0); err == nil {
		t.Error("Expected error for quality 0")
	}
	if err := SaveImage(file, imaging.New(3, 2, green), 90); err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 || !sameColor(img.At(1, 1), green) {
		t.Errorf("Unexpected saved image %v", img.Bounds())
	}
}
