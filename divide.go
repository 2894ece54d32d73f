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
	"sync"
)

// TileDivision represents the division of an image into rectangles.
//
// Tiles are not stored in the fashion (x, y) but (y, x). That means each entry
// in the division describes one row of the image.
// The get method does this correctly.
type TileDivision [][]image.Rectangle

// Get returns the rectangle at position div[y][x], that is the rectangle
// in row y and column x.
func (div TileDivision) Get(x, y int) image.Rectangle {
	return div[y][x]
}

// Rows returns the number of rows in the division.
func (div TileDivision) Rows() int {
	return len(div)
}

// Cols returns the number of columns in the division (the length of the
// first row).
func (div TileDivision) Cols() int {
	if len(div) == 0 {
		return 0
	}
	return len(div[0])
}

// Size returns the total number of tiles.
func (div TileDivision) Size() int {
	res := 0
	for _, row := range div {
		res += len(row)
	}
	return res
}

// spanBounds divides [start, start + length) into n consecutive intervals and
// returns the n + 1 interval borders. Each interval has length length / n,
// the first length % n intervals get one additional pixel.
func spanBounds(start, length, n int) []int {
	res := make([]int, n+1)
	base, remainder := length/n, length%n
	pos := start
	res[0] = pos
	for i := 0; i < n; i++ {
		size := base
		if i < remainder {
			size++
		}
		pos += size
		res[i+1] = pos
	}
	return res
}

// DivideGrid divides bounds into rows × cols rectangles that don't overlap
// and cover bounds exactly.
//
// The width of each column is either floor(W / cols) or floor(W / cols) + 1,
// the remaining pixels go to the first columns. The same holds for rows and
// the height.
//
// An error wrapping ErrInvalidGridShape is returned if rows or cols is < 1,
// ErrImageTooSmall if some cell would be empty.
func DivideGrid(bounds image.Rectangle, rows, cols int) (TileDivision, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: %d rows and %d columns requested", ErrInvalidGridShape, rows, cols)
	}
	width, height := bounds.Dx(), bounds.Dy()
	if rows > height || cols > width {
		return nil, fmt.Errorf("%w: can't divide %dx%d pixels into %d rows and %d columns",
			ErrImageTooSmall, width, height, rows, cols)
	}
	xs := spanBounds(bounds.Min.X, width, cols)
	ys := spanBounds(bounds.Min.Y, height, rows)
	res := make(TileDivision, rows)
	for i := 0; i < rows; i++ {
		res[i] = make([]image.Rectangle, cols)
		for j := 0; j < cols; j++ {
			res[i][j] = image.Rect(xs[j], ys[i], xs[j+1], ys[i+1])
		}
	}
	return res, nil
}

// GridCell is one cell of the target image. Bounds is the pixel region of the
// cell inside the target image.
type GridCell struct {
	Row, Col  int
	Bounds    image.Rectangle
	Signature ColorSignature
}

// Grid is the partition of a target image into cells, cells are stored
// row-major.
type Grid struct {
	Rows, Cols int
	Cells      []GridCell
}

// Get returns the cell in the given row and column.
func (g *Grid) Get(row, col int) *GridCell {
	return &g.Cells[row*g.Cols+col]
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.Cells)
}

// Division returns the cell bounds as a TileDivision.
func (g *Grid) Division() TileDivision {
	res := make(TileDivision, g.Rows)
	for i := 0; i < g.Rows; i++ {
		res[i] = make([]image.Rectangle, g.Cols)
		for j := 0; j < g.Cols; j++ {
			res[i][j] = g.Get(i, j).Bounds
		}
	}
	return res
}

// PartitionImage divides img into rows × cols cells (see DivideGrid) and
// computes the signature of each cell. The signatures are computed
// concurrently by numRoutines workers.
func PartitionImage(img image.Image, rows, cols int, extractor *SignatureExtractor, numRoutines int) (*Grid, error) {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	dist, divErr := DivideGrid(img.Bounds(), rows, cols)
	if divErr != nil {
		return nil, divErr
	}
	grid := &Grid{
		Rows:  rows,
		Cols:  cols,
		Cells: make([]GridCell, rows*cols),
	}
	for i, row := range dist {
		for j, r := range row {
			grid.Cells[i*cols+j] = GridCell{Row: i, Col: j, Bounds: r}
		}
	}

	jobs := make(chan int, BufferSize)
	errorChan := make(chan error, BufferSize)
	var wg sync.WaitGroup
	wg.Add(numRoutines)

	for w := 0; w < numRoutines; w++ {
		go func() {
			defer wg.Done()
			for next := range jobs {
				cell := &grid.Cells[next]
				sig, sigErr := extractor.Extract(img, cell.Bounds)
				cell.Signature = sig
				errorChan <- sigErr
			}
		}()
	}
	go func() {
		for i := range grid.Cells {
			jobs <- i
		}
		close(jobs)
	}()

	// any error that occurs sets this variable (first error)
	var err error
	for range grid.Cells {
		if nextErr := <-errorChan; nextErr != nil && err == nil {
			err = nextErr
		}
	}
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return grid, nil
}
