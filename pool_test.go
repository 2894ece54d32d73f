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
	"image"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
)

func TestFindBestTieBreak(t *testing.T) {
	pool, err := NewCandidatePool([]ColorSignature{
		{0, 0, 0},
		{10, 10, 10},
		{10, 10, 10},
	}, EuclideanDistance, false)
	if err != nil {
		t.Fatal(err)
	}
	id, dist, err := pool.FindBest(ColorSignature{9, 9, 9}, false)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("Expected candidate 1, got %d", id)
	}
	if expected, _ := pool.Distance(ColorSignature{9, 9, 9}, 2); dist != expected {
		t.Errorf("Expected distance %f, got %f", expected, dist)
	}
}

func TestNewCandidatePoolErrors(t *testing.T) {
	if _, err := NewCandidatePool(nil, nil, false); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("Expected ErrEmptyPool, got %v", err)
	}
	_, err := NewCandidatePool([]ColorSignature{{1, 2, 3}, {1, 2}}, nil, false)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Expected ErrSignatureMismatch, got %v", err)
	}
}

func TestFindBestMismatch(t *testing.T) {
	pool, err := NewCandidatePool([]ColorSignature{{1, 2, 3}}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := pool.FindBest(ColorSignature{1}, false); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Expected ErrSignatureMismatch, got %v", err)
	}
}

func TestClaim(t *testing.T) {
	pool, err := NewCandidatePool([]ColorSignature{{0, 0, 0}, {100, 100, 100}}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	query := ColorSignature{1, 1, 1}
	if err := pool.Claim(0); err != nil {
		t.Fatal(err)
	}
	if pool.Available(0) || !pool.Available(1) || pool.NumAvailable() != 1 {
		t.Errorf("Unexpected availability after claim")
	}
	if err := pool.Claim(0); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("Expected ErrAlreadyClaimed, got %v", err)
	}
	if id, _, _ := pool.FindBest(query, true); id != 1 {
		t.Errorf("Expected claimed candidate to be skipped, got %d", id)
	}
	if id, _, _ := pool.FindBest(query, false); id != 0 {
		t.Errorf("Expected claimed candidate when availability is ignored, got %d", id)
	}
	if err := pool.Claim(1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := pool.FindBest(query, true); !errors.Is(err, ErrNoAvailableCandidates) {
		t.Errorf("Expected ErrNoAvailableCandidates, got %v", err)
	}
	if err := pool.Claim(2); err == nil || errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("Expected invalid id error, got %v", err)
	}
}

func TestClaimConcurrent(t *testing.T) {
	pool, err := NewCandidatePool([]ColorSignature{{0}, {1}, {2}}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	const numClaims = 64
	var wg sync.WaitGroup
	var m sync.Mutex
	successes := 0
	wg.Add(numClaims)
	for i := 0; i < numClaims; i++ {
		go func() {
			defer wg.Done()
			if pool.Claim(1) == nil {
				m.Lock()
				successes++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	if successes != 1 {
		t.Errorf("Expected exactly one successful claim, got %d", successes)
	}
	if pool.NumAvailable() != 2 {
		t.Errorf("Expected 2 available candidates, got %d", pool.NumAvailable())
	}
}

func TestBuildCandidatePool(t *testing.T) {
	storage := NewMemoryImageStorage(
		imaging.New(3, 2, red),
		imaging.New(5, 5, green),
		imaging.New(1, 4, blue),
	)
	var calls []int
	pool, err := BuildCandidatePool(storage, NewSignatureExtractor(SpaceRGB, 1), nil, true, 2,
		func(num int) { calls = append(calls, num) })
	if err != nil {
		t.Fatal(err)
	}
	if pool.Len() != 3 || pool.Channels() != 3 || !pool.AvoidDuplicates() {
		t.Fatalf("Unexpected pool: %d candidates, %d channels", pool.Len(), pool.Channels())
	}
	expected := []ColorSignature{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}
	for i, sig := range expected {
		c, ok := pool.Candidate(ImageID(i))
		if !ok || c.ID != ImageID(i) || !c.Signature.Equals(sig, 0) {
			t.Errorf("Candidate %d: expected %v, got %v", i, sig, c.Signature)
		}
	}
	if len(calls) != 3 || calls[2] != 3 {
		t.Errorf("Expected progress 1, 2, 3, got %v", calls)
	}
}

type failingStorage struct {
	*MemoryImageStorage
}

func (s failingStorage) LoadImage(id ImageID) (image.Image, error) {
	if id == 1 {
		return nil, errors.New("broken file")
	}
	return s.MemoryImageStorage.LoadImage(id)
}

func TestBuildCandidatePoolErrors(t *testing.T) {
	extractor := NewSignatureExtractor(SpaceRGB, 1)
	if _, err := BuildCandidatePool(NewMemoryImageStorage(), extractor, nil, false, 2, nil); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("Expected ErrEmptyPool, got %v", err)
	}
	storage := failingStorage{NewMemoryImageStorage(imaging.New(1, 1, red), imaging.New(1, 1, red))}
	if _, err := BuildCandidatePool(storage, extractor, nil, false, 2, nil); err == nil {
		t.Error("Expected load error")
	}
}
