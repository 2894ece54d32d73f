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
	"bytes"
	"strings"
	"testing"
)

func TestParseDimensionsEmpty(t *testing.T) {
	w, h, err := ParseDimensionsEmpty("1024x768")
	if err != nil || w != 1024 || h != 768 {
		t.Errorf("Expected 1024x768, got %dx%d (%v)", w, h, err)
	}
	w, h, err = ParseDimensionsEmpty("x768")
	if err != nil || w != -1 || h != 768 {
		t.Errorf("Expected -1x768, got %dx%d (%v)", w, h, err)
	}
	for _, s := range []string{"1024", "ax3", "3x-1", "1x2x3"} {
		if _, _, err := ParseDimensionsEmpty(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}

func TestOutputDimensions(t *testing.T) {
	tests := []struct {
		s             string
		width, height int
	}{
		{"", 400, 200},
		{"x", 400, 200},
		{"800x", 800, 400},
		{"x50", 100, 50},
		{"10x20", 10, 20},
	}
	for _, tc := range tests {
		w, h, err := OutputDimensions(400, 200, tc.s)
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", tc.s, err)
			continue
		}
		if w != tc.width || h != tc.height {
			t.Errorf("%q: expected %dx%d, got %dx%d", tc.s, tc.width, tc.height, w, h)
		}
	}
	if _, _, err := OutputDimensions(400, 200, "0x"); err == nil {
		t.Error("Expected error for empty mosaic")
	}
}

func TestStdProgressFunc(t *testing.T) {
	var buf bytes.Buffer
	progress := StdProgressFunc(&buf, "Cells", 5, 2)
	for i := 1; i <= 5; i++ {
		progress(i)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		"Cells: 2 of 5 (40.0%)",
		"Cells: 4 of 5 (80.0%)",
		"Cells: 5 of 5 (100.0%)",
	}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Expected %q, got %q", expected[i], lines[i])
		}
	}
}
