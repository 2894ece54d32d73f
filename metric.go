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
	"sort"
	"strings"
)

// VectorMetric is a function that takes two vectors of the same length and
// returns a metric value ("distance") of the two.
// The smaller the metric value is the more equal the vectors are considered.
// Metric values should be ≥ 0.
type VectorMetric func(p, q []float64) float64

// Manhattan returns the manhattan distance of two vectors, that is
// |p1 - q1| + ... + |pn - qn|.
func Manhattan(p, q []float64) float64 {
	var result float64
	for i, e1 := range p {
		result += math.Abs(e1 - q[i])
	}
	return result
}

// EuclideanDistance returns the euclidean distance of two
// vectors, that is sqrt( (p1 - q1)² + ... + (pn - qn)² ).
func EuclideanDistance(p, q []float64) float64 {
	return math.Sqrt(SquaredEuclidean(p, q))
}

// SquaredEuclidean returns (p1 - q1)² + ... + (pn - qn)². It selects the same
// nearest vectors as EuclideanDistance but avoids the square root.
func SquaredEuclidean(p, q []float64) float64 {
	var sum float64
	for i, e1 := range p {
		diff := e1 - q[i]
		sum += diff * diff
	}
	return sum
}

// CosineSimilarity returns 1 - cos(∡(p, q)). The result is between 0 and 2,
// as special case is that the length of p or q is 0, in this case the result
// is 2.1
func CosineSimilarity(p, q []float64) float64 {
	var dotProduct, lengthP, lengthQ float64
	for i, e1 := range p {
		e2 := q[i]
		dotProduct += (e1 * e2)
		lengthP += (e1 * e1)
		lengthQ += (e2 * e2)
	}
	if lengthP == 0.0 || lengthQ == 0.0 {
		// a vector is "empty", return a distance bigger than the max value 2
		return 2.1
	}
	lengthP = math.Sqrt(lengthP)
	lengthQ = math.Sqrt(lengthQ)
	return 1.0 - (dotProduct / (lengthP * lengthQ))
}

// ChessboardDistance is the max over all absolute distances,
// see https://reference.wolfram.com/language/ref/ChessboardDistance.html
func ChessboardDistance(p, q []float64) float64 {
	res := 0.0
	for i, e1 := range p {
		res = math.Max(res, math.Abs(e1-q[i]))
	}
	return res
}

// CanberraDistance is a weighted version of the manhattan
// distance, see https://en.wikipedia.org/wiki/Canberra_distance
// Components where both values are 0 contribute 0.
func CanberraDistance(p, q []float64) float64 {
	res := 0.0
	for i, e1 := range p {
		e2 := q[i]
		denominator := math.Abs(e1) + math.Abs(e2)
		if denominator == 0.0 {
			continue
		}
		res += math.Abs(e1-e2) / denominator
	}
	return res
}

// WeightedMetric returns a metric that multiplies the i-th component of both
// vectors by weights[i mod len(weights)] before applying m.
// This way three weights (for example for r, g and b) can be used for
// signatures consisting of several blocks.
//
// Weights must be ≥ 0 and at least one must be > 0. An empty weights slice
// returns m itself.
func WeightedMetric(m VectorMetric, weights []float64) (VectorMetric, error) {
	if len(weights) == 0 {
		return m, nil
	}
	positive := false
	for _, w := range weights {
		if w < 0.0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, weights)
		}
		if w > 0.0 {
			positive = true
		}
	}
	if !positive {
		return nil, fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	ws := make([]float64, len(weights))
	copy(ws, weights)
	n := len(ws)
	return func(p, q []float64) float64 {
		wp := make([]float64, len(p))
		wq := make([]float64, len(q))
		for i := range p {
			w := ws[i%n]
			wp[i] = p[i] * w
			wq[i] = q[i] * w
		}
		return m(wp, wq)
	}, nil
}

// The following variables are used for registering named metrics.

var (
	vectorMetrics map[string]VectorMetric
)

// DefaultMetricName is the name of the metric used if nothing else is
// configured.
const DefaultMetricName = "euclid"

// RegisterMetric is used to register a named vector metric. It will only add
// the metric if the name does not exist yet. The result is true if the metric
// was successfully registered and false otherwise.
// Some metrics are registered by default.
// All names must be lowercase strings, the register and get
// methods will always transform a string to lowercase.
//
// All metrics should be registered by an init method.
func RegisterMetric(name string, metric VectorMetric) bool {
	name = strings.ToLower(name)
	if _, has := vectorMetrics[name]; has {
		return false
	}
	vectorMetrics[name] = metric
	return true
}

// GetMetricNames returns a sorted list of all registered metric names.
func GetMetricNames() []string {
	res := make([]string, 0, len(vectorMetrics))
	for key := range vectorMetrics {
		res = append(res, key)
	}
	sort.Strings(res)
	return res
}

// GetMetric returns a registered metric.
// Returns the metric and true on success and nil and false
// otherwise.
func GetMetric(name string) (VectorMetric, bool) {
	name = strings.ToLower(name)
	if metric, has := vectorMetrics[name]; has {
		return metric, true
	}
	return nil, false
}

func init() {
	vectorMetrics = make(map[string]VectorMetric)
	RegisterMetric("euclid", EuclideanDistance)
	RegisterMetric("sqeuclid", SquaredEuclidean)
	RegisterMetric("manhattan", Manhattan)
	RegisterMetric("cosine", CosineSimilarity)
	RegisterMetric("chessboard", ChessboardDistance)
	RegisterMetric("canberra", CanberraDistance)
}
