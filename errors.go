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
	"fmt"
	"strings"
)

var (
	// ErrInvalidRegion is returned if a signature is requested for an empty
	// region or a region that is not completely inside the image.
	ErrInvalidRegion = errors.New("Invalid region")

	// ErrInvalidGridShape is returned if the number of rows or columns is < 1.
	ErrInvalidGridShape = errors.New("Invalid grid shape")

	// ErrImageTooSmall is returned if the image can't be divided into the
	// requested grid without producing cells of zero area.
	ErrImageTooSmall = errors.New("Image too small for grid")

	// ErrEmptyPool is returned if no source images are available at all.
	ErrEmptyPool = errors.New("Empty candidate pool")

	// ErrNoAvailableCandidates is returned in duplicate avoidance mode if all
	// candidates have been claimed (or there were never enough of them).
	ErrNoAvailableCandidates = errors.New("No available candidates")

	// ErrAlreadyClaimed is returned by Claim if another claim for the same
	// candidate succeeded first.
	ErrAlreadyClaimed = errors.New("Candidate already claimed")

	// ErrAssignmentConflict is returned by the matcher if it lost the race for
	// a candidate too often.
	ErrAssignmentConflict = errors.New("Assignment conflict")

	// ErrSignatureMismatch is returned when signatures of different length are
	// compared.
	ErrSignatureMismatch = errors.New("Signatures are not comparable")

	// ErrInvalidWeights is returned for channel weights that are negative or
	// all zero.
	ErrInvalidWeights = errors.New("Invalid channel weights")

	// ErrUnknownMetric is returned if a metric name is not registered.
	ErrUnknownMetric = errors.New("Unknown metric")
)

// CellFailure describes a grid cell that could not be assigned.
type CellFailure struct {
	Row, Col int
	Err      error
}

func (f CellFailure) Error() string {
	return fmt.Sprintf("cell (%d, %d): %v", f.Row, f.Col, f.Err)
}

func (f CellFailure) Unwrap() error {
	return f.Err
}

// AssignmentError is returned by a run in which at least one cell failed.
// Failures are sorted row-major.
type AssignmentError struct {
	Failures []CellFailure
}

func (e *AssignmentError) Error() string {
	const maxListed = 5
	var b strings.Builder
	fmt.Fprintf(&b, "%d cell(s) could not be assigned", len(e.Failures))
	for i, f := range e.Failures {
		if i == maxListed {
			fmt.Fprintf(&b, "; and %d more", len(e.Failures)-maxListed)
			break
		}
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap returns all cell errors, errors.Is and errors.As inspect each of them.
func (e *AssignmentError) Unwrap() []error {
	res := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		res[i] = f
	}
	return res
}
