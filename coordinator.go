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
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CellState is the state of a single cell during assignment.
type CellState int

const (
	// CellPending means the cell has not been processed yet.
	CellPending CellState = iota
	// CellMatching means a worker currently searches a candidate for the cell.
	CellMatching
	// CellAssigned means a candidate was chosen for the cell.
	CellAssigned
	// CellFailed means no candidate could be chosen for the cell.
	CellFailed
)

func (s CellState) String() string {
	switch s {
	case CellPending:
		return "Pending"
	case CellMatching:
		return "Matching"
	case CellAssigned:
		return "Assigned"
	case CellFailed:
		return "Failed"
	default:
		return fmt.Sprintf("CellState(%d)", s)
	}
}

// RunState is the state of an assignment run.
type RunState int

const (
	// RunInitialized means the run was created but not started.
	RunInitialized RunState = iota
	// RunRunning means cells are being matched.
	RunRunning
	// RunCompleted means every cell was assigned.
	RunCompleted
	// RunPartiallyFailed means at least one cell could not be assigned.
	RunPartiallyFailed
)

func (s RunState) String() string {
	switch s {
	case RunInitialized:
		return "Initialized"
	case RunRunning:
		return "Running"
	case RunCompleted:
		return "Completed"
	case RunPartiallyFailed:
		return "PartiallyFailed"
	default:
		return fmt.Sprintf("RunState(%d)", s)
	}
}

// CellOrder is the order in which cells are handed to the workers.
type CellOrder int

const (
	// OrderRowMajor processes cells row by row.
	OrderRowMajor CellOrder = iota
	// OrderShuffled processes cells in a random (seeded) order. When
	// duplicates are avoided this spreads the best matching candidates over
	// the whole image instead of using them up in the first rows.
	OrderShuffled
)

func (o CellOrder) String() string {
	switch o {
	case OrderRowMajor:
		return "RowMajor"
	case OrderShuffled:
		return "Shuffled"
	default:
		return fmt.Sprintf("CellOrder(%d)", o)
	}
}

// Assignment maps each cell of a grid to the id of the chosen candidate.
// IDs and States are stored [row][col], failed cells have the id NoImageID.
type Assignment struct {
	RunID      uuid.UUID
	Rows, Cols int
	IDs        [][]ImageID
	States     [][]CellState
	State      RunState
	Failures   []CellFailure
}

func newAssignment(rows, cols int) *Assignment {
	res := &Assignment{
		RunID:  uuid.New(),
		Rows:   rows,
		Cols:   cols,
		IDs:    make([][]ImageID, rows),
		States: make([][]CellState, rows),
		State:  RunInitialized,
	}
	for i := 0; i < rows; i++ {
		res.IDs[i] = make([]ImageID, cols)
		res.States[i] = make([]CellState, cols)
		for j := 0; j < cols; j++ {
			res.IDs[i][j] = NoImageID
		}
	}
	return res
}

// Get returns the id assigned to the cell in the given row and column.
func (a *Assignment) Get(row, col int) ImageID {
	return a.IDs[row][col]
}

// Counts returns how often each candidate is used, unassigned cells are not
// counted.
func (a *Assignment) Counts() map[ImageID]int {
	res := make(map[ImageID]int)
	for _, row := range a.IDs {
		for _, id := range row {
			if id != NoImageID {
				res[id]++
			}
		}
	}
	return res
}

// Injective returns true if no candidate is assigned to more than one cell.
func (a *Assignment) Injective() bool {
	for _, n := range a.Counts() {
		if n > 1 {
			return false
		}
	}
	return true
}

// Complete returns true if the run completed, i.e. each cell is assigned.
func (a *Assignment) Complete() bool {
	return a.State == RunCompleted
}

// CellMatcher chooses the candidate for a cell signature. Matcher implements
// it. Implementations must be safe for concurrent use.
type CellMatcher interface {
	Match(sig ColorSignature) (ImageID, error)
}

// Coordinator drives a CellMatcher over all cells of a grid and collects the
// Assignment.
//
// Cells are processed by NumRoutines workers concurrently. When duplicates
// are avoided the result depends on the order in which concurrent claims
// succeed, which is not deterministic. Set Sequential to process the cells
// one after another in the given Order, with OrderRowMajor or a fixed Seed the
// result is then reproducible.
type Coordinator struct {
	Matcher CellMatcher
	// Pool is optional, if set it is used to reject runs in duplicate
	// avoidance mode with fewer available candidates than cells before any
	// work is started.
	Pool        *CandidatePool
	NumRoutines int
	Sequential  bool
	Order       CellOrder
	// Seed is used for OrderShuffled, 0 means a time based seed.
	Seed     int64
	Progress ProgressFunc
}

// NewCoordinator returns a coordinator matching cells against pool with a
// Matcher.
func NewCoordinator(pool *CandidatePool, maxRetries, numRoutines int) *Coordinator {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	return &Coordinator{
		Matcher:     NewMatcher(pool, pool.AvoidDuplicates(), maxRetries),
		Pool:        pool,
		NumRoutines: numRoutines,
		Order:       OrderRowMajor,
	}
}

func (c *Coordinator) cellOrder(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = i
	}
	if c.Order == OrderShuffled {
		seed := c.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		randGen := rand.New(rand.NewSource(seed))
		randGen.Shuffle(n, func(i, j int) {
			res[i], res[j] = res[j], res[i]
		})
	}
	return res
}

// Assign matches every cell of the grid.
//
// If the pool is known and avoids duplicates but has fewer available
// candidates than the grid has cells an error wrapping
// ErrNoAvailableCandidates is returned before anything is matched.
//
// Errors of single cells don't stop the other cells. If at least one cell
// failed the returned assignment has the state RunPartiallyFailed and the
// error is an *AssignmentError listing the failed cells. The assignment is
// returned in this case as well.
func (c *Coordinator) Assign(grid *Grid) (*Assignment, error) {
	numCells := grid.Len()
	if c.Pool != nil && c.Pool.AvoidDuplicates() && numCells > c.Pool.NumAvailable() {
		return nil, fmt.Errorf("%w: %d cells but only %d unused source images",
			ErrNoAvailableCandidates, numCells, c.Pool.NumAvailable())
	}
	numRoutines := c.NumRoutines
	if c.Sequential || numRoutines <= 0 {
		numRoutines = 1
	}

	res := newAssignment(grid.Rows, grid.Cols)
	logger := log.WithField("run", res.RunID.String())
	logger.WithFields(log.Fields{
		"cells":      numCells,
		"routines":   numRoutines,
		"order":      c.Order,
		"sequential": c.Sequential,
	}).Info("Assigning candidates to cells")
	start := time.Now()
	res.State = RunRunning

	cellErrors := make([]error, numCells)
	jobs := make(chan int, BufferSize)
	done := make(chan bool, BufferSize)

	// workers, each cell is written by exactly one worker
	for w := 0; w < numRoutines; w++ {
		go func() {
			for next := range jobs {
				cell := &grid.Cells[next]
				res.States[cell.Row][cell.Col] = CellMatching
				id, matchErr := c.Matcher.Match(cell.Signature)
				if matchErr != nil {
					res.States[cell.Row][cell.Col] = CellFailed
					cellErrors[next] = matchErr
				} else {
					res.IDs[cell.Row][cell.Col] = id
					res.States[cell.Row][cell.Col] = CellAssigned
				}
				done <- true
			}
		}()
	}

	go func() {
		for _, index := range c.cellOrder(numCells) {
			jobs <- index
		}
		close(jobs)
	}()

	for numDone := 1; numDone <= numCells; numDone++ {
		<-done
		if c.Progress != nil {
			c.Progress(numDone)
		}
	}

	for i, cellErr := range cellErrors {
		if cellErr == nil {
			continue
		}
		cell := grid.Cells[i]
		logger.WithFields(log.Fields{
			log.ErrorKey: cellErr,
			"row":        cell.Row,
			"col":        cell.Col,
		}).Warn("Can't assign candidate to cell")
		res.Failures = append(res.Failures, CellFailure{Row: cell.Row, Col: cell.Col, Err: cellErr})
	}

	if Debug && c.Pool != nil && c.Pool.AvoidDuplicates() && !res.Injective() {
		logger.Error("Duplicate avoidance violated, a candidate is used more than once")
	}

	logger.WithFields(log.Fields{
		"failed":   len(res.Failures),
		"duration": time.Since(start),
	}).Info("Assignment finished")

	if len(res.Failures) > 0 {
		res.State = RunPartiallyFailed
		return res, &AssignmentError{Failures: res.Failures}
	}
	res.State = RunCompleted
	return res, nil
}
