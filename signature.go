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
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorSpace describes in which space pixel colors are averaged and compared.
type ColorSpace int

const (
	// SpaceRGB averages the red, green and blue components, each in [0, 255].
	SpaceRGB ColorSpace = iota
	// SpaceLab averages CIE L*a*b* values (D65 white point), L is in [0, 100]
	// and a, b roughly in [-100, 100].
	SpaceLab
	// SpaceGray averages the luma of each pixel, in [0, 255].
	SpaceGray
)

func (space ColorSpace) String() string {
	switch space {
	case SpaceRGB:
		return "rgb"
	case SpaceLab:
		return "lab"
	case SpaceGray:
		return "gray"
	default:
		return fmt.Sprintf("ColorSpace(%d)", space)
	}
}

// Channels returns the number of values a single pixel contributes in this
// space.
func (space ColorSpace) Channels() int {
	if space == SpaceGray {
		return 1
	}
	return 3
}

// ParseColorSpace parses "rgb", "lab" or "gray" (case insensitive).
func ParseColorSpace(s string) (ColorSpace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rgb":
		return SpaceRGB, nil
	case "lab":
		return SpaceLab, nil
	case "gray", "grey":
		return SpaceGray, nil
	default:
		return -1, fmt.Errorf("Unknown color space: %s. Expected rgb, lab or gray", s)
	}
}

// ColorSignature is the fixed-size numeric summary of an image region.
// Signatures must not be modified after they have been computed; two
// signatures are only comparable if they were computed by extractors with the
// same parameters.
type ColorSignature []float64

// Equals checks if two signatures are equal. epsilon is the difference that
// is allowed to still consider two channels equal.
func (sig ColorSignature) Equals(other ColorSignature, epsilon float64) bool {
	if len(sig) != len(other) {
		return false
	}
	for i, e1 := range sig {
		if math.Abs(e1-other[i]) > epsilon {
			return false
		}
	}
	return true
}

// String returns a tuple representation of the signature.
func (sig ColorSignature) String() string {
	strs := make([]string, len(sig))
	for i, entry := range sig {
		strs[i] = fmt.Sprintf("%.2f", entry)
	}
	return "〈" + strings.Join(strs, ", ") + "〉"
}

// SignatureExtractor reduces an image region to a ColorSignature.
//
// The region is divided into Parts × Parts blocks (similar to the blocks of a
// local color histogram) and the signature is the concatenation of the mean
// color of each block, row by row. With Parts = 1 the signature is just the
// mean color of the region.
//
// If a region is smaller than Parts in some direction some blocks receive no
// pixels, these blocks get the mean of the whole region s.t. the signature
// length never depends on the region size.
//
// Extractors have no state and are safe for concurrent use.
type SignatureExtractor struct {
	Space ColorSpace
	Parts int
}

// NewSignatureExtractor returns a new extractor. parts < 1 is treated as 1.
func NewSignatureExtractor(space ColorSpace, parts int) *SignatureExtractor {
	if parts < 1 {
		parts = 1
	}
	return &SignatureExtractor{Space: space, Parts: parts}
}

func (e *SignatureExtractor) parts() int {
	if e.Parts < 1 {
		return 1
	}
	return e.Parts
}

// Channels returns the length of the signatures computed by this extractor.
func (e *SignatureExtractor) Channels() int {
	p := e.parts()
	return e.Space.Channels() * p * p
}

// labValues converts an rgb color to L*a*b* in the usual [0, 100] scale.
func labValues(c RGB) (float64, float64, float64) {
	col := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	l, a, b := col.Lab()
	return l * 100.0, a * 100.0, b * 100.0
}

// Extract computes the signature of region inside img.
// The region must be non-empty and completely inside the image bounds,
// otherwise an error wrapping ErrInvalidRegion is returned.
//
// RGB and gray values are accumulated as integers, Lab values as floats in a
// fixed order. Thus the same input always produces exactly the same output.
func (e *SignatureExtractor) Extract(img image.Image, region image.Rectangle) (ColorSignature, error) {
	bounds := img.Bounds()
	if region.Empty() {
		return nil, fmt.Errorf("%w: empty region %v", ErrInvalidRegion, region)
	}
	if !region.In(bounds) {
		return nil, fmt.Errorf("%w: %v is not inside image bounds %v", ErrInvalidRegion, region, bounds)
	}
	parts := e.parts()
	numBlocks := parts * parts
	channels := e.Space.Channels()
	dx, dy := region.Dx(), region.Dy()

	counts := make([]uint64, numBlocks)
	// exactly one of them is used, depending on the space
	var intSums []uint64
	var floatSums []float64
	if e.Space == SpaceLab {
		floatSums = make([]float64, numBlocks*channels)
	} else {
		intSums = make([]uint64, numBlocks*channels)
	}

	// uniform areas are common, remember the last conversion
	lastRGB := RGB{}
	lastL, lastA, lastB := labValues(lastRGB)

	for y := region.Min.Y; y < region.Max.Y; y++ {
		blockY := ((y - region.Min.Y) * parts) / dy
		for x := region.Min.X; x < region.Max.X; x++ {
			blockX := ((x - region.Min.X) * parts) / dx
			block := blockY*parts + blockX
			counts[block]++
			offset := block * channels
			c := img.At(x, y)
			switch e.Space {
			case SpaceGray:
				gray := color.GrayModel.Convert(c).(color.Gray)
				intSums[offset] += uint64(gray.Y)
			case SpaceLab:
				rgb := ConvertRGB(c)
				if rgb != lastRGB {
					lastRGB = rgb
					lastL, lastA, lastB = labValues(rgb)
				}
				floatSums[offset] += lastL
				floatSums[offset+1] += lastA
				floatSums[offset+2] += lastB
			default:
				rgb := ConvertRGB(c)
				intSums[offset] += uint64(rgb.R)
				intSums[offset+1] += uint64(rgb.G)
				intSums[offset+2] += uint64(rgb.B)
			}
		}
	}

	sum := func(i int) float64 {
		if floatSums != nil {
			return floatSums[i]
		}
		return float64(intSums[i])
	}

	// mean over the whole region, used for blocks without pixels
	totalPixels := float64(dx * dy)
	overall := make([]float64, channels)
	if numBlocks > 1 {
		for c := 0; c < channels; c++ {
			var total float64
			for block := 0; block < numBlocks; block++ {
				total += sum(block*channels + c)
			}
			overall[c] = total / totalPixels
		}
	}

	res := make(ColorSignature, numBlocks*channels)
	for block := 0; block < numBlocks; block++ {
		offset := block * channels
		n := counts[block]
		for c := 0; c < channels; c++ {
			if n == 0 {
				res[offset+c] = overall[c]
			} else {
				res[offset+c] = sum(offset+c) / float64(n)
			}
		}
	}
	return res, nil
}

// ExtractImage computes the signature of the whole image.
func (e *SignatureExtractor) ExtractImage(img image.Image) (ColorSignature, error) {
	return e.Extract(img, img.Bounds())
}
