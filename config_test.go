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
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig(3, 4).Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
	tests := []struct {
		modify   func(c *Config)
		expected error
	}{
		{func(c *Config) { c.Rows = 0 }, ErrInvalidGridShape},
		{func(c *Config) { c.Cols = -2 }, ErrInvalidGridShape},
		{func(c *Config) { c.Metric = "foo" }, ErrUnknownMetric},
		{func(c *Config) { c.ChannelWeights = []float64{0, 0} }, ErrInvalidWeights},
	}
	for i, tc := range tests {
		cfg := DefaultConfig(3, 4)
		tc.modify(&cfg)
		if err := cfg.Validate(); !errors.Is(err, tc.expected) {
			t.Errorf("Test %d: expected %v, got %v", i, tc.expected, err)
		}
	}
	cfg := DefaultConfig(3, 4)
	cfg.Parts = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for 0 parts")
	}
	cfg = DefaultConfig(3, 4)
	cfg.ColorSpace = ColorSpace(7)
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for invalid color space")
	}
}

func TestConfigExtractor(t *testing.T) {
	cfg := DefaultConfig(1, 1)
	cfg.ColorSpace = SpaceGray
	cfg.Parts = 2
	if got := cfg.Extractor().Channels(); got != 4 {
		t.Errorf("Expected 4 channels, got %d", got)
	}
}

func TestConfigVectorMetric(t *testing.T) {
	cfg := DefaultConfig(1, 1)
	cfg.Metric = "Manhattan"
	cfg.ChannelWeights = []float64{2}
	metric, err := cfg.VectorMetric()
	if err != nil {
		t.Fatal(err)
	}
	if got := metric([]float64{0, 0}, []float64{1, 3}); got != 8 {
		t.Errorf("Expected 8, got %f", got)
	}
}

func TestParseWeights(t *testing.T) {
	weights, err := ParseWeights(" 2, 1,0.5")
	if err != nil {
		t.Fatal(err)
	}
	if len(weights) != 3 || weights[0] != 2 || weights[1] != 1 || weights[2] != 0.5 {
		t.Errorf("Unexpected weights %v", weights)
	}
	if weights, err := ParseWeights(""); err != nil || weights != nil {
		t.Errorf("Expected no weights, got %v (%v)", weights, err)
	}
	if _, err := ParseWeights("1,x"); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("Expected ErrInvalidWeights, got %v", err)
	}
}
