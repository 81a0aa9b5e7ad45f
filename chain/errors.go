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

// Package chain implements the per-tenant Markov chain store: PrefixEntry
// suffix accumulation, lazy alias-table sampling, and debounced snapshot
// persistence.
package chain

import "errors"

// Error kinds surfaced by the engine. Wrap these with
// fmt.Errorf("...: %w", ErrX) at call sites so errors.Is keeps working.
var (
	ErrInvalidInput = errors.New("markov: invalid input")
	ErrNotFound     = errors.New("markov: not found")
	ErrCorrupt      = errors.New("markov: corrupt snapshot")
	ErrIo           = errors.New("markov: io error")
)
