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

package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"markov/chain"
)

// BadgerBackend stores snapshots in an embedded Badger key-value store,
// one key per tenant, for deployments that want a snapshot store colocated
// with the process instead of a network hop.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend wraps an already-open Badger database. Callers own its
// lifecycle (including Close).
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func badgerKey(tenantID string) []byte {
	return []byte("markov:snapshot:" + tenantID)
}

func (b *BadgerBackend) Load(_ context.Context, tenantID string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(tenantID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, chain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger: get snapshot: %w", err)
	}
	return data, nil
}

func (b *BadgerBackend) Save(_ context.Context, tenantID string, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(tenantID), data)
	})
	if err != nil {
		return fmt.Errorf("badger: set snapshot: %w", err)
	}
	return nil
}
