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
	"runtime"
	"strconv"
	"strings"
)

// Config contains all values that control a mosaic run. The values are fixed
// for the whole run.
type Config struct {
	// Rows and Cols describe the grid the target image is divided into.
	Rows, Cols int

	// AvoidDuplicates forbids using a source image in more than one cell.
	// This requires at least Rows * Cols source images.
	AvoidDuplicates bool

	// ColorSpace is the space in which colors are averaged and compared.
	ColorSpace ColorSpace

	// Parts is the number of blocks in each direction a cell or source image
	// is divided into for its signature, 1 means just the mean color.
	Parts int

	// Metric is the name of a registered VectorMetric, see GetMetricNames.
	Metric string

	// ChannelWeights are optional weights for the signature channels, see
	// WeightedMetric.
	ChannelWeights []float64

	// NumRoutines is the number of go routines used for signature
	// computation and matching.
	NumRoutines int

	// Sequential matches cells one after another (in Order), together with
	// a fixed Seed this makes runs with duplicate avoidance reproducible.
	Sequential bool

	// Order is the order in which cells are matched.
	Order CellOrder

	// Seed for OrderShuffled, 0 means a time based seed.
	Seed int64

	// MaxRetries is the number of lost claim races accepted per cell, < 0
	// means DefaultMaxRetries.
	MaxRetries int
}

// DefaultConfig returns a config for a rows × cols grid with sane defaults.
func DefaultConfig(rows, cols int) Config {
	numRoutines := runtime.NumCPU()
	if numRoutines <= 0 {
		numRoutines = 4
	}
	return Config{
		Rows:        rows,
		Cols:        cols,
		ColorSpace:  SpaceRGB,
		Parts:       1,
		Metric:      DefaultMetricName,
		NumRoutines: numRoutines,
		Order:       OrderShuffled,
		MaxRetries:  DefaultMaxRetries,
	}
}

// Validate checks the config, it does not check anything that depends on the
// target or source images.
func (c Config) Validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return fmt.Errorf("%w: %d rows and %d columns requested", ErrInvalidGridShape, c.Rows, c.Cols)
	}
	if c.Parts < 1 {
		return fmt.Errorf("Parts must be at least 1, got %d", c.Parts)
	}
	switch c.ColorSpace {
	case SpaceRGB, SpaceLab, SpaceGray:
	default:
		return fmt.Errorf("Invalid color space %v", c.ColorSpace)
	}
	switch c.Order {
	case OrderRowMajor, OrderShuffled:
	default:
		return fmt.Errorf("Invalid cell order %v", c.Order)
	}
	if _, err := c.VectorMetric(); err != nil {
		return err
	}
	return nil
}

// Extractor returns the signature extractor described by the config.
func (c Config) Extractor() *SignatureExtractor {
	return NewSignatureExtractor(c.ColorSpace, c.Parts)
}

// VectorMetric returns the (weighted) metric described by the config.
func (c Config) VectorMetric() (VectorMetric, error) {
	name := c.Metric
	if name == "" {
		name = DefaultMetricName
	}
	metric, ok := GetMetric(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s. Available are %s", ErrUnknownMetric, name,
			strings.Join(GetMetricNames(), ", "))
	}
	return WeightedMetric(metric, c.ChannelWeights)
}

// ParseWeights parses a comma separated list of channel weights, for example
// "2,1,1". The empty string yields no weights.
func ParseWeights(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	split := strings.Split(s, ",")
	res := make([]float64, len(split))
	for i, part := range split {
		w, parseErr := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidWeights, parseErr)
		}
		res[i] = w
	}
	return res, nil
}
