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
	"time"

	log "github.com/sirupsen/logrus"
)

// Progress bundles the progress callbacks of Generate, both may be nil.
type Progress struct {
	// Sources is called after each source image signature.
	Sources ProgressFunc
	// Cells is called after each matched cell.
	Cells ProgressFunc
}

// Result is the outcome of Generate.
type Result struct {
	Grid       *Grid
	Pool       *CandidatePool
	Assignment *Assignment
}

// Generate computes the assignment of source images to the cells of target.
//
// Everything that can be checked without looking at pixels is checked first:
// the config, whether the target can be divided into the grid, whether there
// are source images at all and, when duplicates must be avoided, whether
// there are enough of them.
// Then the candidate pool is built, the target is partitioned and the cells
// are matched.
//
// If some cells could not be assigned the result is returned together with
// an *AssignmentError. Use ComposeMosaic to draw the result.
func Generate(target image.Image, storage ImageStorage, cfg Config, progress Progress) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := DivideGrid(target.Bounds(), cfg.Rows, cfg.Cols); err != nil {
		return nil, err
	}
	numImages := int(storage.NumImages())
	if numImages == 0 {
		return nil, ErrEmptyPool
	}
	numCells := cfg.Rows * cfg.Cols
	if cfg.AvoidDuplicates && numImages < numCells {
		return nil, fmt.Errorf("%w: %d cells but only %d source images", ErrNoAvailableCandidates,
			numCells, numImages)
	}
	metric, metricErr := cfg.VectorMetric()
	if metricErr != nil {
		return nil, metricErr
	}
	extractor := cfg.Extractor()

	start := time.Now()
	pool, poolErr := BuildCandidatePool(storage, extractor, metric, cfg.AvoidDuplicates,
		cfg.NumRoutines, progress.Sources)
	if poolErr != nil {
		return nil, poolErr
	}
	log.WithFields(log.Fields{
		"sources":  pool.Len(),
		"duration": time.Since(start),
	}).Info("Computed source signatures")

	start = time.Now()
	grid, gridErr := PartitionImage(target, cfg.Rows, cfg.Cols, extractor, cfg.NumRoutines)
	if gridErr != nil {
		return nil, gridErr
	}
	log.WithFields(log.Fields{
		"cells":    grid.Len(),
		"duration": time.Since(start),
	}).Info("Computed cell signatures")

	coordinator := NewCoordinator(pool, cfg.MaxRetries, cfg.NumRoutines)
	coordinator.Sequential = cfg.Sequential
	coordinator.Order = cfg.Order
	coordinator.Seed = cfg.Seed
	coordinator.Progress = progress.Cells

	res := &Result{Grid: grid, Pool: pool}
	assignment, assignErr := coordinator.Assign(grid)
	res.Assignment = assignment
	if assignErr != nil {
		if assignment == nil {
			return nil, assignErr
		}
		return res, assignErr
	}
	return res, nil
}
