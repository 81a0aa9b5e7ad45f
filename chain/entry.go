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

package chain

import (
	"sync"

	"markov/alias"
)

// hashThreshold is the suffix count above which Entry supplements its flat
// slice with an index map. Below it, a short linear scan beats a hash
// lookup.
const hashThreshold = 32

// suffix is one observed (token, weight) pair.
type suffix struct {
	token  string
	weight int64
}

// Entry is a PrefixEntry: the suffix accumulator for one prefix, with a
// lazily-built alias table for O(1) weighted sampling. Entry is safe for
// concurrent use; its own mutex lets one prefix's alias-table rebuild
// proceed without blocking samplers of unrelated prefixes even while the
// owning Store briefly holds its map lock in write mode.
type Entry struct {
	mu          sync.RWMutex
	suffixes    []suffix
	index       map[string]int // token -> position in suffixes, built past hashThreshold
	totalWeight int64
	table       *alias.Table // nil until first Sample() after a mutation
	metrics     MetricsSink  // nil unless wired by the owning Store
}

// NewEntry returns an empty PrefixEntry.
func NewEntry() *Entry {
	return &Entry{}
}

// SetMetrics wires a metrics sink so alias-table rebuilds are reported. A
// nil sink is a no-op.
func (e *Entry) SetMetrics(sink MetricsSink) {
	e.mu.Lock()
	e.metrics = sink
	e.mu.Unlock()
}

// Insert merges an observation into the suffix list: an existing token has
// its weight incremented, a new token is appended. The alias table is
// invalidated; it is rebuilt lazily on the next Sample call.
func (e *Entry) Insert(token string, weight int64) error {
	if token == "" || weight < 1 {
		return ErrInvalidInput
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if i, ok := e.find(token); ok {
		e.suffixes[i].weight += weight
	} else {
		e.suffixes = append(e.suffixes, suffix{token: token, weight: weight})
		if e.index != nil {
			e.index[token] = len(e.suffixes) - 1
		} else if len(e.suffixes) > hashThreshold {
			e.buildIndexLocked()
		}
	}
	e.totalWeight += weight
	e.table = nil
	return nil
}

// find looks up a token's position, using the supplementary index once built.
func (e *Entry) find(token string) (int, bool) {
	if e.index != nil {
		i, ok := e.index[token]
		return i, ok
	}
	for i, s := range e.suffixes {
		if s.token == token {
			return i, true
		}
	}
	return 0, false
}

func (e *Entry) buildIndexLocked() {
	e.index = make(map[string]int, len(e.suffixes)*2)
	for i, s := range e.suffixes {
		e.index[s.token] = i
	}
}

// Len reports the number of distinct suffixes.
func (e *Entry) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.suffixes)
}

// TotalWeight reports the sum of suffix weights.
func (e *Entry) TotalWeight() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalWeight
}

// Sample draws one suffix token proportional to its weight. It returns
// ("", false) for an empty entry. A single-suffix entry always returns that
// suffix without ever constructing an alias table.
func (e *Entry) Sample() (string, bool) {
	e.mu.RLock()
	if len(e.suffixes) == 0 {
		e.mu.RUnlock()
		return "", false
	}
	if len(e.suffixes) == 1 {
		tok := e.suffixes[0].token
		e.mu.RUnlock()
		return tok, true
	}
	if e.table != nil {
		idx := e.table.Sample()
		tok := e.suffixes[idx].token
		e.mu.RUnlock()
		return tok, true
	}
	e.mu.RUnlock()

	// Upgradable rebuild: release the read lock, take the write lock,
	// double-check invalidation (another goroutine may have rebuilt already
	// or the entry may have been mutated concurrently), rebuild, then
	// downgrade by re-acquiring the read lock for the actual sample.
	e.mu.Lock()
	if e.table == nil {
		weights := make([]float64, len(e.suffixes))
		for i, s := range e.suffixes {
			weights[i] = float64(s.weight)
		}
		tbl, err := alias.New(weights)
		if err == nil {
			e.table = tbl
			if e.metrics != nil {
				e.metrics.IncAliasRebuild()
			}
		}
	}
	e.mu.Unlock()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.table == nil {
		// Construction failed (should not happen given the invariants);
		// fall back to the first suffix rather than blocking forever.
		return e.suffixes[0].token, true
	}
	idx := e.table.Sample()
	return e.suffixes[idx].token, true
}

// SuffixView is a read-only (token, weight) pair for enumeration.
type SuffixView struct {
	Token  string
	Weight int64
}

// Enumerate yields suffixes in insertion order for persistence and export.
func (e *Entry) Enumerate() []SuffixView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]SuffixView, len(e.suffixes))
	for i, s := range e.suffixes {
		out[i] = SuffixView{Token: s.token, Weight: s.weight}
	}
	return out
}
