// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package alias implements Vose's alias method for O(1) weighted categorical
// sampling. A Table is built once from a set of weights and then answers
// Sample() calls with two uniform draws and no allocation.
package alias

import (
	"errors"
	"math/rand/v2"
)

// ErrInvalidInput is returned by New when the supplied weights cannot form
// a valid categorical distribution (empty input or non-positive total).
var ErrInvalidInput = errors.New("alias: invalid input")

// cell is one entry of the alias table: with probability threshold we return
// the primary index, otherwise we return aliasIdx.
type cell struct {
	threshold float64
	aliasIdx  int
}

// Table is an alias table over n outcomes, indexed 0..n-1. Callers keep their
// own slice of outcome values in the same order they passed weights in; Table
// only returns indices.
type Table struct {
	cells []cell
}

// New builds an alias table from weights using Vose's algorithm. weights must
// be non-empty and sum to a positive value; construction is Θ(n) time and space.
func New(weights []float64) (*Table, error) {
	n := len(weights)
	if n == 0 {
		return nil, ErrInvalidInput
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, ErrInvalidInput
	}

	probs := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		probs[i] = float64(n) * w / total
		if probs[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	cells := make([]cell, n)
	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		cells[s] = cell{threshold: probs[s], aliasIdx: l}
		probs[l] = probs[l] - (1 - probs[s])
		if probs[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	// Leftover buckets: floating-point error may strand indices in either
	// slice even though their true probability is 1. Both are correct to
	// treat as certain (threshold 1, self-alias).
	for _, l := range large {
		cells[l] = cell{threshold: 1, aliasIdx: l}
	}
	for _, s := range small {
		cells[s] = cell{threshold: 1, aliasIdx: s}
	}

	return &Table{cells: cells}, nil
}

// Len returns the number of outcomes the table was built over.
func (t *Table) Len() int { return len(t.cells) }

// Sample draws one outcome index in O(1) using two uniform random draws.
func (t *Table) Sample() int {
	i := rand.IntN(len(t.cells))
	c := t.cells[i]
	if rand.Float64() < c.threshold {
		return i
	}
	return c.aliasIdx
}
