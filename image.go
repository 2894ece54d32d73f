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
	"image/color"
	"strings"
)

// SupportedImageFunc is a function that takes a file extension and decides if
// this file extension is supported.
//
// The extension passed to this function could be for example ".txt" or ".jpg".
type SupportedImageFunc func(ext string) bool

// JPGAndPNG is an implementation of SupportedImageFunc accepting jpg and png
// file extensions.
func JPGAndPNG(ext string) bool {
	ext = strings.ToLower(ext)
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}

// AllSupported accepts every file extension for which a decoder is registered
// by this package.
func AllSupported(ext string) bool {
	ext = strings.ToLower(ext)
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	default:
		return false
	}
}

// RGB is a color containing r, g and b components.
type RGB struct {
	R, G, B uint8
}

// ConvertRGB converts a generic color into the internal RGB representation.
// Alpha is dropped after conversion to the non-premultiplied model, so
// transparent pixels keep their color.
func ConvertRGB(c color.Color) RGB {
	nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: nrgba.R, G: nrgba.G, B: nrgba.B}
}

// ImageID is used to unambiguously identify an image.
// Ids are assigned in insertion order starting with 0, this order is also
// the tie-break order when matching.
type ImageID int

const (
	// NoImageID is used to signal errors etc. on images, for example a cell
	// that could not be assigned.
	NoImageID ImageID = -1
)

// ImageStorage is used to administrate a collection or database of images.
// Images are not necessarily stored in memory but are identified by an id
// and can be loaded into memory when required.
// All ids smaller than NumImages are valid.
//
// Implementations must be safe for concurrent use.
type ImageStorage interface {
	// NumImages returns the number of images in the storage as an ImageID.
	NumImages() ImageID

	// LoadImage loads an image into memory.
	LoadImage(id ImageID) (image.Image, error)

	// LoadConfig loads the config of the image with the given id.
	LoadConfig(id ImageID) (image.Config, error)
}

// IDList returns the list [0, 1, ..., storage.NumImages - 1].
func IDList(storage ImageStorage) []ImageID {
	numImages := storage.NumImages()
	res := make([]ImageID, numImages)
	var i ImageID
	for ; i < numImages; i++ {
		res[i] = i
	}
	return res
}

// MemoryImageStorage implements ImageStorage with decoded images kept in
// memory. It never changes after creation and is thus safe for concurrent use.
type MemoryImageStorage struct {
	Images []image.Image
}

// NewMemoryImageStorage returns a storage for the given images, the image at
// position i gets id i.
func NewMemoryImageStorage(images ...image.Image) *MemoryImageStorage {
	return &MemoryImageStorage{Images: images}
}

// NumImages returns the number of images.
func (s *MemoryImageStorage) NumImages() ImageID {
	return ImageID(len(s.Images))
}

// LoadImage returns the image with the given id.
func (s *MemoryImageStorage) LoadImage(id ImageID) (image.Image, error) {
	if id < 0 || id >= s.NumImages() {
		return nil, fmt.Errorf("Invalid image id: Not associated with an image %d", id)
	}
	return s.Images[id], nil
}

// LoadConfig returns the dimensions and color model of the image.
func (s *MemoryImageStorage) LoadConfig(id ImageID) (image.Config, error) {
	img, err := s.LoadImage(id)
	if err != nil {
		return image.Config{}, err
	}
	bounds := img.Bounds()
	return image.Config{
		ColorModel: img.ColorModel(),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
	}, nil
}
