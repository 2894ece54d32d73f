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
	"math"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Candidate is one source image that can be placed into a cell.
type Candidate struct {
	ID        ImageID
	Signature ColorSignature
}

// CandidatePool holds the signatures of all source images together with their
// availability.
//
// The pool is shared by all workers of a run. Signatures never change after
// creation, the only mutable state is the claimed flag of each candidate:
// It is set at most once (by Claim, with a compare-and-swap) and never reset.
// FindBest only reads these flags and may thus run concurrently with other
// calls to FindBest and Claim. A concurrent claim might not be observed by a
// running scan, in this case the caller's Claim fails and it has to search
// again.
type CandidatePool struct {
	candidates      []Candidate
	claimed         []atomic.Bool
	numAvailable    atomic.Int64
	channels        int
	metric          VectorMetric
	avoidDuplicates bool
}

// NewCandidatePool creates a pool from the given signatures, the signature at
// position i becomes the candidate with id i. All signatures must have the
// same length. metric nil means EuclideanDistance.
//
// avoidDuplicates is only recorded for callers (see AvoidDuplicates), claims
// work in both modes.
func NewCandidatePool(signatures []ColorSignature, metric VectorMetric, avoidDuplicates bool) (*CandidatePool, error) {
	if len(signatures) == 0 {
		return nil, ErrEmptyPool
	}
	if metric == nil {
		metric = EuclideanDistance
	}
	channels := len(signatures[0])
	candidates := make([]Candidate, len(signatures))
	for i, sig := range signatures {
		if len(sig) != channels {
			return nil, fmt.Errorf("%w: signature of image %d has %d channels, expected %d",
				ErrSignatureMismatch, i, len(sig), channels)
		}
		candidates[i] = Candidate{ID: ImageID(i), Signature: sig}
	}
	pool := &CandidatePool{
		candidates:      candidates,
		claimed:         make([]atomic.Bool, len(candidates)),
		channels:        channels,
		metric:          metric,
		avoidDuplicates: avoidDuplicates,
	}
	pool.numAvailable.Store(int64(len(candidates)))
	return pool, nil
}

// BuildCandidatePool loads all images from storage and computes their
// signatures, at most numRoutines images are processed concurrently.
// The candidate ids are the ids from the storage.
//
// If an image can't be loaded the whole build fails.
func BuildCandidatePool(storage ImageStorage, extractor *SignatureExtractor, metric VectorMetric,
	avoidDuplicates bool, numRoutines int, progress ProgressFunc) (*CandidatePool, error) {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	numImages := storage.NumImages()
	if numImages <= 0 {
		return nil, ErrEmptyPool
	}
	signatures := make([]ColorSignature, numImages)

	// progress is not required to be safe for concurrent use
	var progressMutex sync.Mutex
	numDone := 0

	var group errgroup.Group
	group.SetLimit(numRoutines)
	for _, id := range IDList(storage) {
		id := id
		group.Go(func() error {
			img, loadErr := storage.LoadImage(id)
			if loadErr != nil {
				return fmt.Errorf("Can't load source image %d: %w", id, loadErr)
			}
			sig, sigErr := extractor.ExtractImage(img)
			if sigErr != nil {
				return fmt.Errorf("Can't compute signature of source image %d: %w", id, sigErr)
			}
			signatures[id] = sig
			if progress != nil {
				progressMutex.Lock()
				numDone++
				progress(numDone)
				progressMutex.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"candidates": numImages,
		"space":      extractor.Space,
		"channels":   extractor.Channels(),
	}).Debug("Candidate pool built")
	return NewCandidatePool(signatures, metric, avoidDuplicates)
}

// Len returns the number of candidates.
func (p *CandidatePool) Len() int {
	return len(p.candidates)
}

// Channels returns the length of the signatures in the pool.
func (p *CandidatePool) Channels() int {
	return p.channels
}

// AvoidDuplicates returns true if the pool was created for a run in which no
// candidate may be used twice.
func (p *CandidatePool) AvoidDuplicates() bool {
	return p.avoidDuplicates
}

// NumAvailable returns the number of candidates that have not been claimed.
func (p *CandidatePool) NumAvailable() int {
	return int(p.numAvailable.Load())
}

func (p *CandidatePool) validID(id ImageID) bool {
	return id >= 0 && int(id) < len(p.candidates)
}

// Available returns true if the candidate exists and has not been claimed.
func (p *CandidatePool) Available(id ImageID) bool {
	return p.validID(id) && !p.claimed[id].Load()
}

// Candidate returns the candidate with the given id.
func (p *CandidatePool) Candidate(id ImageID) (Candidate, bool) {
	if !p.validID(id) {
		return Candidate{}, false
	}
	return p.candidates[id], true
}

// Distance returns the metric value between sig and the candidate.
func (p *CandidatePool) Distance(sig ColorSignature, id ImageID) (float64, error) {
	if !p.validID(id) {
		return -1.0, fmt.Errorf("Invalid candidate id %d", id)
	}
	if len(sig) != p.channels {
		return -1.0, fmt.Errorf("%w: query has %d channels, pool has %d", ErrSignatureMismatch, len(sig), p.channels)
	}
	return p.metric(sig, p.candidates[id].Signature), nil
}

// FindBest returns the candidate with the smallest distance to sig.
// If requireAvailable is true claimed candidates are skipped.
// Ties are broken by the smaller id, thus the result is deterministic for a
// given availability state.
//
// An error wrapping ErrNoAvailableCandidates is returned if no candidate
// is left.
func (p *CandidatePool) FindBest(sig ColorSignature, requireAvailable bool) (ImageID, float64, error) {
	if len(p.candidates) == 0 {
		return NoImageID, -1.0, ErrEmptyPool
	}
	if len(sig) != p.channels {
		return NoImageID, -1.0, fmt.Errorf("%w: query has %d channels, pool has %d",
			ErrSignatureMismatch, len(sig), p.channels)
	}
	best := NoImageID
	bestDist := math.Inf(1)
	for i := range p.candidates {
		if requireAvailable && p.claimed[i].Load() {
			continue
		}
		dist := p.metric(sig, p.candidates[i].Signature)
		// strict comparison: on ties the smaller id wins
		if best == NoImageID || dist < bestDist {
			best = ImageID(i)
			bestDist = dist
		}
	}
	if best == NoImageID {
		return NoImageID, -1.0, fmt.Errorf("%w: all %d candidates claimed", ErrNoAvailableCandidates, len(p.candidates))
	}
	return best, bestDist, nil
}

// Claim marks the candidate as used. Of all concurrent claims for the same
// candidate exactly one succeeds, all others (and all later ones) return an
// error wrapping ErrAlreadyClaimed.
func (p *CandidatePool) Claim(id ImageID) error {
	if !p.validID(id) {
		return fmt.Errorf("Invalid candidate id %d", id)
	}
	if !p.claimed[id].CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %d", ErrAlreadyClaimed, id)
	}
	p.numAvailable.Add(-1)
	return nil
}
