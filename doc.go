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


// Package mosaicify creates photomosaics: a target image is divided into a
// grid of cells and each cell is replaced by the source image whose color
// signature is nearest to the signature of the cell.
//
// The steps of a run are
//
//	1. Compute a signature for each source image (BuildCandidatePool).
//	2. Divide the target into a grid and compute a signature for each cell
//	   (DivideGrid, PartitionImage).
//	3. Assign a candidate to each cell (Coordinator, Matcher).
//	4. Draw the chosen images (ComposeMosaic).
//
// Generate runs steps 1 to 3 for a Config.
//
// A signature (ColorSignature) is the mean color of an image region in one of
// the supported color spaces (RGB, CIE Lab or gray), optionally computed for
// Parts × Parts blocks of the region. Signatures are compared with a
// VectorMetric, metrics can be registered by name (RegisterMetric).
//
// Cells are matched concurrently. If duplicates must be avoided each source
// image is claimed atomically in the CandidatePool, a worker that loses the
// race for its best candidate searches again. Cells that can't be matched
// don't stop the run, they are reported in an AssignmentError.
//
// The default logger is logrus, the package only logs on Debug, Info and Warn
// level.
package mosaicify
