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

	log "github.com/sirupsen/logrus"
)

// DefaultMaxRetries is the number of lost claim races a Matcher accepts per
// cell before it gives up.
const DefaultMaxRetries = 8

// CandidateFinder is the view of a candidate pool needed to match cells.
// CandidatePool implements it.
type CandidateFinder interface {
	FindBest(sig ColorSignature, requireAvailable bool) (ImageID, float64, error)
	Claim(id ImageID) error
}

// Matcher selects the candidate for a single cell.
//
// If duplicates are allowed this is just one lookup of the nearest candidate,
// which only reads the pool.
// Otherwise the nearest available candidate is searched and claimed; if the
// claim fails because another worker was faster the search is repeated (the
// candidate is unavailable now and won't be returned again). After MaxRetries
// lost races an error wrapping ErrAssignmentConflict is returned.
type Matcher struct {
	Finder          CandidateFinder
	AvoidDuplicates bool
	MaxRetries      int
}

// NewMatcher returns a new matcher, maxRetries < 0 means DefaultMaxRetries.
func NewMatcher(finder CandidateFinder, avoidDuplicates bool, maxRetries int) *Matcher {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Matcher{
		Finder:          finder,
		AvoidDuplicates: avoidDuplicates,
		MaxRetries:      maxRetries,
	}
}

// Match returns the id of the candidate chosen for sig.
func (m *Matcher) Match(sig ColorSignature) (ImageID, error) {
	if !m.AvoidDuplicates {
		id, _, err := m.Finder.FindBest(sig, false)
		return id, err
	}
	for attempt := 0; attempt <= m.MaxRetries; attempt++ {
		id, _, findErr := m.Finder.FindBest(sig, true)
		if findErr != nil {
			return NoImageID, findErr
		}
		claimErr := m.Finder.Claim(id)
		switch {
		case claimErr == nil:
			return id, nil
		case errors.Is(claimErr, ErrAlreadyClaimed):
			log.WithFields(log.Fields{
				"candidate": id,
				"attempt":   attempt + 1,
			}).Debug("Lost claim race, searching again")
		default:
			return NoImageID, claimErr
		}
	}
	return NoImageID, fmt.Errorf("%w: lost %d claim races", ErrAssignmentConflict, m.MaxRetries+1)
}
