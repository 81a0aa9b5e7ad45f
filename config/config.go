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

// Package config loads the engine's typed configuration from defaults, an
// optional JSON file, and environment variable overrides, and can watch
// that file for changes to a safe subset of fields.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config mirrors the recognized options table: every field the engine
// reads to size its worker pool, its registry, and its snapshot policy.
type Config struct {
	StateSize              int    `json:"stateSize"`
	BatchSize              int    `json:"batchSize"`
	WorkerPoolSize         int    `json:"workerPoolSize"`
	ChainCacheMemoryLimit  int64  `json:"chainCacheMemoryLimit"`
	ChainSaveDebounceMs    int    `json:"chainSaveDebounceMs"`
	MemoryCeilingBytes     int64  `json:"memoryCeilingBytes"`
	GracefulShutdownMs     int    `json:"gracefulShutdownMs"`
	SnapshotBackend        string `json:"snapshotBackend"`
	DataDir                string `json:"dataDir"`
	MetricsAddr            string `json:"metricsAddr"`
	RedisAddr              string `json:"redisAddr"`
	BadgerDir              string `json:"badgerDir"`
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		StateSize:             2,
		BatchSize:             2000,
		WorkerPoolSize:        4,
		ChainCacheMemoryLimit: 128 << 20, // 128 MiB
		ChainSaveDebounceMs:   5000,
		MemoryCeilingBytes:    1 << 30, // 1 GiB
		GracefulShutdownMs:    5000,
		SnapshotBackend:       "file",
		DataDir:               "./data",
	}
}

// immutableFields are rejected by ApplyReload once a Config has been
// loaded once; changing them mid-process would desynchronize already-open
// ChainStores and in-flight batches.
var immutableFields = map[string]bool{
	"stateSize": true,
	"batchSize": true,
}

// Load builds a Config starting from Defaults, overlaying path's JSON
// contents (if path is non-empty and the file exists), then overlaying
// MARKOV_* environment variables, and finally validating the result.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	intVal := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", key, v)
		}
		*dst = n
		return nil
	}
	int64Val := func(key string, dst *int64) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	if err := intVal("MARKOV_STATE_SIZE", &cfg.StateSize); err != nil {
		return err
	}
	if err := intVal("MARKOV_BATCH_SIZE", &cfg.BatchSize); err != nil {
		return err
	}
	if err := intVal("MARKOV_WORKER_POOL_SIZE", &cfg.WorkerPoolSize); err != nil {
		return err
	}
	if err := int64Val("MARKOV_CHAIN_CACHE_MEMORY_LIMIT", &cfg.ChainCacheMemoryLimit); err != nil {
		return err
	}
	if err := intVal("MARKOV_CHAIN_SAVE_DEBOUNCE_MS", &cfg.ChainSaveDebounceMs); err != nil {
		return err
	}
	if err := int64Val("MARKOV_MEMORY_CEILING_BYTES", &cfg.MemoryCeilingBytes); err != nil {
		return err
	}
	if err := intVal("MARKOV_GRACEFUL_SHUTDOWN_MS", &cfg.GracefulShutdownMs); err != nil {
		return err
	}
	str("MARKOV_SNAPSHOT_BACKEND", &cfg.SnapshotBackend)
	str("MARKOV_DATA_DIR", &cfg.DataDir)
	str("MARKOV_METRICS_ADDR", &cfg.MetricsAddr)
	str("MARKOV_REDIS_ADDR", &cfg.RedisAddr)
	str("MARKOV_BADGER_DIR", &cfg.BadgerDir)
	return nil
}

// Validate rejects a Config outside the recognized options table's bounds.
func (c Config) Validate() error {
	if c.StateSize < 1 {
		return fmt.Errorf("config: stateSize must be >= 1, got %d", c.StateSize)
	}
	if c.BatchSize < 100 {
		return fmt.Errorf("config: batchSize must be >= 100, got %d", c.BatchSize)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("config: workerPoolSize must be >= 1, got %d", c.WorkerPoolSize)
	}
	if c.ChainSaveDebounceMs < 1000 {
		return fmt.Errorf("config: chainSaveDebounceMs must be >= 1000, got %d", c.ChainSaveDebounceMs)
	}
	switch c.SnapshotBackend {
	case "file", "redis", "postgres", "badger":
	default:
		return fmt.Errorf("config: snapshotBackend must be one of file/redis/postgres/badger, got %q", c.SnapshotBackend)
	}
	return nil
}

// ApplyReload overlays next's safe-to-change fields (worker pool size,
// save debounce, cache limit, graceful shutdown, memory ceiling, metrics
// addr) onto c and
// returns the result. It rejects a next that differs from c in an
// immutable field.
func (c Config) ApplyReload(next Config) (Config, error) {
	if next.StateSize != c.StateSize {
		return c, fmt.Errorf("config: stateSize is immutable after first load (have %d, reload requested %d)", c.StateSize, next.StateSize)
	}
	if next.BatchSize != c.BatchSize {
		return c, fmt.Errorf("config: batchSize is immutable after first load (have %d, reload requested %d)", c.BatchSize, next.BatchSize)
	}
	if err := next.Validate(); err != nil {
		return c, err
	}

	merged := c
	merged.WorkerPoolSize = next.WorkerPoolSize
	merged.ChainCacheMemoryLimit = next.ChainCacheMemoryLimit
	merged.ChainSaveDebounceMs = next.ChainSaveDebounceMs
	merged.GracefulShutdownMs = next.GracefulShutdownMs
	merged.MemoryCeilingBytes = next.MemoryCeilingBytes
	merged.MetricsAddr = next.MetricsAddr
	return merged, nil
}

// ImmutableFieldChanged reports whether name is one of the fields
// ApplyReload refuses to change after first load, for callers that want to
// log a specific field name rather than parse ApplyReload's error text.
func ImmutableFieldChanged(name string) bool {
	return immutableFields[name]
}
