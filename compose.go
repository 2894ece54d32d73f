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
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/sync/errgroup"
)

var (
	// ImageCacheSize is the size of images caches. Some procedures (especially
	// the composition of mosaics) might be much more performant if they're
	// allowed to cache images. This variable controls the size of such caches,
	// it must be a number ≥ 1.
	ImageCacheSize = 15
)

// ImageResizer resizes an image to the given width and height.
type ImageResizer interface {
	Resize(width, height uint, img image.Image) image.Image
}

// NfntResizer uses the nfnt/resize package to resize an image.
type NfntResizer struct {
	// InterP is the interpolation function to use.
	InterP resize.InterpolationFunction
}

// NewNfntResizer returns a new resizer given the interpolation function.
func NewNfntResizer(interP resize.InterpolationFunction) NfntResizer {
	return NfntResizer{interP}
}

// Resize calls nfnt/resize methods.
func (resizer NfntResizer) Resize(width, height uint, img image.Image) image.Image {
	return resize.Resize(width, height, img, resizer.InterP)
}

// GetInterP returns an interpolation function given a desired quality.
// The higher the quality the better the interpolation should be, but execution
// time is higher. Currently supported are values between 0 and 5, each
// selecting a different interpolation function. Values greater than 5 are
// treated as 5.
func GetInterP(quality uint) resize.InterpolationFunction {
	switch quality {
	case 0:
		return resize.NearestNeighbor
	case 1:
		return resize.Bilinear
	case 2:
		return resize.Bicubic
	case 3:
		return resize.MitchellNetravali
	case 4:
		return resize.Lanczos2
	default:
		return resize.Lanczos3
	}
}

// ImagingResizer uses disintegration/imaging to resize an image.
type ImagingResizer struct {
	Filter imaging.ResampleFilter
}

// NewImagingResizer returns a new resizer using the given filter.
func NewImagingResizer(filter imaging.ResampleFilter) ImagingResizer {
	return ImagingResizer{Filter: filter}
}

// Resize calls imaging.Resize.
func (resizer ImagingResizer) Resize(width, height uint, img image.Image) image.Image {
	return imaging.Resize(img, int(width), int(height), resizer.Filter)
}

var (
	// DefaultResizer is the resizer that is used by default, if you're
	// looking for a resizer default argument this seems useful.
	DefaultResizer = NewNfntResizer(resize.Lanczos3)
)

// ResizeStrategy is a function that scales an image (img) to an image of
// exactly the size defined by tileWidth and tileHeight.
// This is used to compose the mosaic when the selected images must be
// resized to fit in the tiles.
//
// We think of an ImageResizer as the engine that performs the scaling and of
// a ResizeStrategy as something that decides how to scale an image s.t. it
// fits nicely.
type ResizeStrategy func(resizer ImageResizer, tileWidth, tileHeight uint, img image.Image) image.Image

// ForceResize is a resize strategy that resizes to the given width and height,
// ignoring the ratio of the original image.
func ForceResize(resizer ImageResizer, tileWidth, tileHeight uint, img image.Image) image.Image {
	return resizer.Resize(tileWidth, tileHeight, img)
}

// FillResize keeps the ratio of the image: It scales the image s.t. it covers
// the whole tile and cuts away what is left over on both sides.
func FillResize(resizer ImageResizer, tileWidth, tileHeight uint, img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth, srcHeight := bounds.Dx(), bounds.Dy()
	if srcWidth == 0 || srcHeight == 0 {
		return ForceResize(resizer, tileWidth, tileHeight, img)
	}
	scale := math.Max(float64(tileWidth)/float64(srcWidth), float64(tileHeight)/float64(srcHeight))
	width := max(uint(math.Ceil(float64(srcWidth)*scale)), tileWidth)
	height := max(uint(math.Ceil(float64(srcHeight)*scale)), tileHeight)
	scaled := resizer.Resize(width, height, img)
	return imaging.CropCenter(scaled, int(tileWidth), int(tileHeight))
}

// ImageCache is used to cache resized versions of images during mosaic
// generation. The same image with the same size might appear often in a mosaic
// (when duplicates are allowed). This and the fact that resizing an image is
// not very fast makes it useful to cache the images.
//
// Caches are safe for concurrent use.
type ImageCache struct {
	m           sync.Mutex
	size        int
	content     map[string]image.Image
	insertOrder []string
}

// NewImageCache returns an empty image cache. size is the number of images that
// will be cached. size must be ≥ 1.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = 1
	}
	return &ImageCache{
		size:        size,
		content:     make(map[string]image.Image, size),
		insertOrder: make([]string, 0, size),
	}
}

func (cache *ImageCache) keyFormat(id ImageID, width, height int) string {
	return fmt.Sprintf("%d-%d-%d", id, width, height)
}

// Put adds an image to the cache. Usually Put is called after Get: If the
// image was not found in the cache it is scaled and then added to the cache via
// Put. If the cache is full the oldest entry is removed.
func (cache *ImageCache) Put(id ImageID, width, height int, img image.Image) {
	cache.m.Lock()
	defer cache.m.Unlock()
	key := cache.keyFormat(id, width, height)
	if _, has := cache.content[key]; has {
		return
	}
	if len(cache.insertOrder) >= cache.size {
		fst := cache.insertOrder[0]
		cache.insertOrder = cache.insertOrder[1:]
		delete(cache.content, fst)
	}
	cache.insertOrder = append(cache.insertOrder, key)
	cache.content[key] = img
}

// Get returns the image from the cache. If the return value is nil the image
// was not found in the cache and should be added to the cache by Put.
func (cache *ImageCache) Get(id ImageID, width, height int) image.Image {
	cache.m.Lock()
	defer cache.m.Unlock()
	return cache.content[cache.keyFormat(id, width, height)]
}

// Len returns the number of cached images.
func (cache *ImageCache) Len() int {
	cache.m.Lock()
	defer cache.m.Unlock()
	return len(cache.content)
}

func insertTile(into draw.Image, area image.Rectangle, storage ImageStorage,
	dbImage ImageID, resizer ImageResizer, s ResizeStrategy,
	cache *ImageCache) error {
	tileWidth := area.Dx()
	tileHeight := area.Dy()
	img := cache.Get(dbImage, tileWidth, tileHeight)
	if img == nil {
		var imgErr error
		img, imgErr = storage.LoadImage(dbImage)
		if imgErr != nil {
			return imgErr
		}
		img = s(resizer, uint(tileWidth), uint(tileHeight), img)
		cache.Put(dbImage, tileWidth, tileHeight, img)
	}
	draw.Draw(into, area, img, img.Bounds().Min, draw.Src)
	return nil
}

// ComposeMosaic draws the images selected in assignment into a new image.
// The tile in row i and column j is drawn into the area mosaicDivision[i][j],
// the bounds of the result are the union of all areas. Usually the division is
// computed with DivideGrid on the desired output bounds.
//
// Tiles are composed by numRoutines goroutines concurrently. Cells without an
// image (NoImageID, for example from a partially failed run) are left black.
func ComposeMosaic(storage ImageStorage, assignment *Assignment,
	mosaicDivision TileDivision, resizer ImageResizer, s ResizeStrategy,
	numRoutines, cacheSize int, progress ProgressFunc) (*image.RGBA, error) {
	if mosaicDivision.Rows() != assignment.Rows || mosaicDivision.Cols() != assignment.Cols {
		return nil, fmt.Errorf("Division has %dx%d tiles, assignment has %dx%d",
			mosaicDivision.Rows(), mosaicDivision.Cols(), assignment.Rows, assignment.Cols)
	}
	if numRoutines <= 0 {
		numRoutines = 1
	}
	if resizer == nil {
		resizer = DefaultResizer
	}
	if s == nil {
		s = ForceResize
	}
	var resBounds image.Rectangle
	for _, row := range mosaicDivision {
		for _, r := range row {
			resBounds = resBounds.Union(r)
		}
	}
	res := image.NewRGBA(resBounds)
	cache := NewImageCache(cacheSize)

	var progressMutex sync.Mutex
	numDone := 0

	var group errgroup.Group
	group.SetLimit(numRoutines)
	for i, row := range mosaicDivision {
		for j, area := range row {
			dbImage := assignment.IDs[i][j]
			if dbImage == NoImageID || area.Empty() {
				continue
			}
			area := area
			group.Go(func() error {
				// tiles don't overlap, so each goroutine writes its own pixels
				if err := insertTile(res, area, storage, dbImage, resizer, s, cache); err != nil {
					return fmt.Errorf("Can't insert image %d: %w", dbImage, err)
				}
				if progress != nil {
					progressMutex.Lock()
					numDone++
					progress(numDone)
					progressMutex.Unlock()
				}
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveImage writes img to file, the format is determined by the file
// extension (jpg, png, gif, tif or bmp). jpgQuality is only used for jpg
// files and must be between 1 and 100.
func SaveImage(file string, img image.Image, jpgQuality int) error {
	if jpgQuality < 1 || jpgQuality > 100 {
		return fmt.Errorf("Invalid jpg quality %d, must be between 1 and 100", jpgQuality)
	}
	return imaging.Save(img, file, imaging.JPEGQuality(jpgQuality))
}
