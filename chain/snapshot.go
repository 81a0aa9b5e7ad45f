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
	"encoding/json"
	"fmt"
)

// snapshotMagic identifies this package's JSON snapshot wire format.
const snapshotMagic = "MKV1"

// schemaVersion is bumped whenever the persisted shape changes incompatibly.
const schemaVersion = 1

// suffixJSON is the wire shape of one SuffixEntry.
type suffixJSON struct {
	Word   string `json:"word"`
	Weight int64  `json:"weight"`
}

// prefixJSON is the wire shape of one PrefixEntry.
type prefixJSON struct {
	Prefix      string       `json:"prefix"`
	Suffixes    []suffixJSON `json:"suffixes"`
	TotalWeight int64        `json:"totalWeight"`
}

// snapshotJSON is the whole-file wire shape: a small header carrying
// magic/schema/stateSize/tenantId identification, plus the
// prefix -> PrefixEntry mapping.
type snapshotJSON struct {
	Magic         string                `json:"magic"`
	SchemaVersion int                   `json:"schemaVersion"`
	StateSize     int                   `json:"stateSize"`
	TenantID      string                `json:"tenantId"`
	Prefixes      map[string]prefixJSON `json:"prefixes"`
}

// EncodeSnapshot serializes the given prefix -> Entry mapping into the
// canonical JSON snapshot format. AliasTables are never included.
func EncodeSnapshot(tenantID string, stateSize int, entries map[string]*Entry) ([]byte, error) {
	doc := snapshotJSON{
		Magic:         snapshotMagic,
		SchemaVersion: schemaVersion,
		StateSize:     stateSize,
		TenantID:      tenantID,
		Prefixes:      make(map[string]prefixJSON, len(entries)),
	}
	for prefix, entry := range entries {
		views := entry.Enumerate()
		suffixes := make([]suffixJSON, len(views))
		for i, v := range views {
			suffixes[i] = suffixJSON{Word: v.Token, Weight: v.Weight}
		}
		doc.Prefixes[prefix] = prefixJSON{
			Prefix:      prefix,
			Suffixes:    suffixes,
			TotalWeight: entry.TotalWeight(),
		}
	}
	return json.Marshal(doc)
}

// DecodeSnapshot parses the canonical JSON snapshot format and rebuilds a
// prefix -> Entry mapping. It returns ErrCorrupt for a bad magic, an
// unrecognized schema version, or malformed JSON. AliasTables are rebuilt
// lazily on first Sample, never here.
func DecodeSnapshot(data []byte) (tenantID string, stateSize int, entries map[string]*Entry, err error) {
	var doc snapshotJSON
	if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr != nil {
		return "", 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, unmarshalErr)
	}
	if doc.Magic != snapshotMagic {
		return "", 0, nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, doc.Magic)
	}
	if doc.SchemaVersion != schemaVersion {
		return "", 0, nil, fmt.Errorf("%w: unsupported schema version %d", ErrCorrupt, doc.SchemaVersion)
	}

	out := make(map[string]*Entry, len(doc.Prefixes))
	for prefix, p := range doc.Prefixes {
		entry := NewEntry()
		for _, s := range p.Suffixes {
			if s.Weight < 1 {
				return "", 0, nil, fmt.Errorf("%w: non-positive weight for %q", ErrCorrupt, s.Word)
			}
			if insertErr := entry.Insert(s.Word, s.Weight); insertErr != nil {
				return "", 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, insertErr)
			}
		}
		out[prefix] = entry
	}
	return doc.TenantID, doc.StateSize, out, nil
}
