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

import "strings"

// EndOfLine is the sentinel suffix token that terminates a generation early
// when it is sampled, even before maxLen tokens have been produced.
const EndOfLine = "\x00eol"

// Tokenize splits a message into whitespace-separated tokens. No further
// normalization (casing, punctuation stripping) is performed; the engine
// treats every non-whitespace run as a token.
func Tokenize(message string) []string {
	return strings.Fields(message)
}

// JoinPrefix renders an ordered tuple of tokens as its canonical map key.
func JoinPrefix(tokens []string) string {
	return strings.Join(tokens, " ")
}

// SplitPrefix is the inverse of JoinPrefix, used when replaying a seed.
func SplitPrefix(prefix string) []string {
	if prefix == "" {
		return nil
	}
	return strings.Split(prefix, " ")
}

// Window is one (prefix, suffix) pair sliced from a token sequence.
type Window struct {
	Prefix []string
	Suffix string
}

// Windows returns every (prefix, suffix) pair of a sliding window of size
// stateSize+1 over tokens, in order. Fewer than stateSize+1 tokens yields no
// windows.
func Windows(tokens []string, stateSize int) []Window {
	if stateSize < 1 || len(tokens) < stateSize+1 {
		return nil
	}
	out := make([]Window, 0, len(tokens)-stateSize)
	for i := 0; i+stateSize < len(tokens); i++ {
		prefix := append([]string(nil), tokens[i:i+stateSize]...)
		out = append(out, Window{Prefix: prefix, Suffix: tokens[i+stateSize]})
	}
	return out
}
