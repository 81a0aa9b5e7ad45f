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

package train

import (
	"encoding/json"
	"fmt"
	"io"
)

// Record is one raw training observation before tokenization: a message
// and its optional attachments, matching the shape of an exported chat
// transcript entry.
type Record struct {
	Message     string   `json:"message"`
	Attachments []string `json:"attachments,omitempty"`
}

// Source streams Records one at a time. Next returns io.EOF once the
// source is exhausted. Implementations must not require the whole stream
// to fit in memory.
type Source interface {
	Next() (Record, error)
}

// SliceSource is an in-memory Source, primarily for tests.
type SliceSource struct {
	records []Record
	i       int
}

// NewSliceSource wraps a fixed slice of records as a Source.
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record, or io.EOF once exhausted.
func (s *SliceSource) Next() (Record, error) {
	if s.i >= len(s.records) {
		return Record{}, io.EOF
	}
	r := s.records[s.i]
	s.i++
	return r, nil
}

// JSONArraySource streams Records out of a top-level JSON array without
// buffering the whole document, so an arbitrarily large export file never
// needs to fit in memory at once.
type JSONArraySource struct {
	dec    *json.Decoder
	opened bool
}

// NewJSONArraySource wraps r, which must contain a single top-level JSON
// array of {message, attachments?} objects.
func NewJSONArraySource(r io.Reader) *JSONArraySource {
	return &JSONArraySource{dec: json.NewDecoder(r)}
}

// Next decodes and returns the next array element, or io.EOF once the
// array is exhausted.
func (s *JSONArraySource) Next() (Record, error) {
	if !s.opened {
		tok, err := s.dec.Token()
		if err != nil {
			return Record{}, fmt.Errorf("train: read opening token: %w", err)
		}
		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			return Record{}, fmt.Errorf("train: expected a JSON array, got %v", tok)
		}
		s.opened = true
	}
	if !s.dec.More() {
		return Record{}, io.EOF
	}
	var rec Record
	if err := s.dec.Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("train: decode record: %w", err)
	}
	return rec, nil
}
