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

package alias

import (
	"math"
	"testing"
)

func TestNew_RejectsEmpty(t *testing.T) {
	if _, err := New(nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNew_RejectsNonPositiveTotal(t *testing.T) {
	if _, err := New([]float64{0, 0, 0}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNew_LenMatchesInput(t *testing.T) {
	tbl, err := New([]float64{1, 3, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected len 3, got %d", tbl.Len())
	}
}

func TestSample_SingleOutcomeAlwaysReturnsIt(t *testing.T) {
	tbl, err := New([]float64{5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 100; i++ {
		if tbl.Sample() != 0 {
			t.Fatalf("expected index 0 for single-outcome table")
		}
	}
}

func TestSample_ConvergesToWeightedDistribution(t *testing.T) {
	weights := []float64{1, 3}
	tbl, err := New(weights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const trials = 200000
	var counts [2]int
	for i := 0; i < trials; i++ {
		counts[tbl.Sample()]++
	}

	got := float64(counts[1]) / float64(trials)
	want := 0.75
	if math.Abs(got-want) > 0.02 {
		t.Fatalf("empirical frequency %.4f outside tolerance of %.4f", got, want)
	}
}

func TestSample_UniformWeightsAreRoughlyEqual(t *testing.T) {
	weights := make([]float64, 10)
	for i := range weights {
		weights[i] = 1
	}
	tbl, err := New(weights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const trials = 100000
	counts := make([]int, len(weights))
	for i := 0; i < trials; i++ {
		counts[tbl.Sample()]++
	}
	for i, c := range counts {
		got := float64(c) / float64(trials)
		if math.Abs(got-0.1) > 0.02 {
			t.Fatalf("bucket %d empirical frequency %.4f outside tolerance", i, got)
		}
	}
}

func TestNew_SkewedWeightsDoNotPanic(t *testing.T) {
	weights := []float64{1e9, 1, 1, 1e-6}
	if _, err := New(weights); err != nil {
		t.Fatalf("unexpected error on pathological weights: %v", err)
	}
}
