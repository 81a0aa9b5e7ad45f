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
	"database/sql"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"markov/chain"
)

// BackendOptions carries every dependency a Build call might need,
// regardless of which adapter is ultimately selected.
type BackendOptions struct {
	// Dir is the snapshot directory for the "file" adapter.
	Dir string

	// RedisAddr is a host:port for the "redis" adapter.
	RedisAddr string
	RedisDB   int

	// PostgresDB is an already-open connection pool for the "postgres"
	// adapter. Build does not open or close it.
	PostgresDB *sql.DB

	// BadgerDir is the on-disk path for the "badger" adapter.
	BadgerDir string
}

// Build constructs a chain.SnapshotBackend from a string selector, mirroring
// the shape of a config file's snapshotBackend field. Supported
// adapters: "file" (default), "redis", "postgres", "badger".
func Build(adapter string, opts BackendOptions) (chain.SnapshotBackend, error) {
	switch adapter {
	case "", "file":
		dir := opts.Dir
		if dir == "" {
			dir = "./data/snapshots"
		}
		return NewFileBackend(dir), nil
	case "redis":
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("persistence: redis adapter requires RedisAddr")
		}
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr, DB: opts.RedisDB})
		return NewRedisBackend(NewGoRedisClient(rdb)), nil
	case "postgres":
		if opts.PostgresDB == nil {
			return nil, fmt.Errorf("persistence: postgres adapter requires PostgresDB")
		}
		return NewPostgresBackend(NewSQLPostgresConn(opts.PostgresDB)), nil
	case "badger":
		dir := opts.BadgerDir
		if dir == "" {
			return nil, fmt.Errorf("persistence: badger adapter requires BadgerDir")
		}
		db, err := badger.Open(badger.DefaultOptions(dir))
		if err != nil {
			return nil, fmt.Errorf("persistence: open badger at %s: %w", dir, err)
		}
		return NewBadgerBackend(db), nil
	default:
		return nil, fmt.Errorf("persistence: unknown adapter %q", adapter)
	}
}
