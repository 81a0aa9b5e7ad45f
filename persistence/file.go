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

// Package persistence provides pluggable SnapshotBackend adapters: local
// file, Redis, Postgres, and an embedded Badger store, all speaking the
// same opaque-blob contract so a snapshot is portable across backends by
// copying its bytes.
package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"markov/chain"
)

// FileBackend persists one JSON snapshot file per tenant under a
// configured directory, named markov_<tenantId>.json, written atomically
// via a temp file, fsync, then rename.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a FileBackend rooted at dir. The directory is
// created lazily on first Save.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(tenantID string) string {
	return filepath.Join(b.dir, fmt.Sprintf("markov_%s.json", tenantID))
}

// Load reads tenantID's snapshot, returning chain.ErrNotFound if none exists.
func (b *FileBackend) Load(_ context.Context, tenantID string) ([]byte, error) {
	data, err := os.ReadFile(b.path(tenantID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chain.ErrNotFound
		}
		return nil, fmt.Errorf("persistence: read snapshot: %w", err)
	}
	return data, nil
}

// Save atomically overwrites tenantID's snapshot file.
func (b *FileBackend) Save(_ context.Context, tenantID string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("persistence: create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, "."+tenantID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("persistence: create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: fsync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, b.path(tenantID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: rename snapshot into place: %w", err)
	}
	return nil
}
