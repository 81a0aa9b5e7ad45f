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

// Package engine wires the chain registry, worker pool, training batcher,
// train locks, snapshot backend, and metrics into the single object a host
// process (the demo server or the CLI) constructs and calls.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"markov/chain"
	"markov/config"
	"markov/metrics"
	"markov/persistence"
	"markov/pool"
	"markov/registry"
	"markov/train"
)

// Engine is the process's single entry point onto the generation system.
type Engine struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	backend  chain.SnapshotBackend
	registry *registry.Registry
	pool     *pool.Pool
}

// New constructs and starts an Engine from cfg. The returned Engine owns
// its worker pool and registry; call Close to shut both down cleanly.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := persistence.Build(cfg.SnapshotBackend, persistence.BackendOptions{
		Dir:       cfg.DataDir,
		RedisAddr: cfg.RedisAddr,
		BadgerDir: cfg.BadgerDir,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: build snapshot backend: %w", err)
	}

	m := metrics.New()

	p := pool.New(cfg.WorkerPoolSize, logger.With("component", "pool"), m)
	p.Start()

	backendName := cfg.SnapshotBackend
	if backendName == "" {
		backendName = "file"
	}
	reg := registry.New(registry.Config{
		StateSize:          cfg.StateSize,
		Backend:            backend,
		BackendName:        backendName,
		SaveDebounce:       time.Duration(cfg.ChainSaveDebounceMs) * time.Millisecond,
		MemoryCeilingBytes: cfg.ChainCacheMemoryLimit,
		Logger:             logger.With("component", "registry"),
		Metrics:            m,
		StoreMetrics:       m,
	})

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		backend:  backend,
		registry: reg,
		pool:     p,
	}, nil
}

// Metrics exposes the engine's Prometheus registry, e.g. to mount its
// /metrics handler on a host HTTP server.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Store returns tenantID's ChainStore, creating and loading it on first
// access.
func (e *Engine) Store(ctx context.Context, tenantID string) (*chain.Store, error) {
	return e.registry.Get(ctx, tenantID)
}

// Train runs a synchronous training pass for tenantID against src,
// holding tenantID's TrainLock for the duration so concurrent bulk
// imports for the same tenant are rejected rather than interleaved.
// clearExisting requests a from-scratch import: the tenant's existing
// chain is cleared before src's records are inserted, submitted to the
// pool as build-chains tasks rather than incremental batch-update tasks.
func (e *Engine) Train(ctx context.Context, tenantID string, src train.Source, clearExisting bool) (train.RunResult, error) {
	lock := train.NewLock(e.cfg.DataDir, tenantID)
	if err := lock.Acquire(); err != nil {
		if e.metrics != nil {
			e.metrics.IncTrainLockContention()
		}
		return train.RunResult{}, err
	}
	defer lock.Release()

	store, err := e.registry.Get(ctx, tenantID)
	if err != nil {
		return train.RunResult{}, err
	}

	batcher := train.NewBatcher(e.pool, train.BatcherConfig{
		StateSize:          e.cfg.StateSize,
		BatchSize:          e.cfg.BatchSize,
		MemoryCeilingBytes: e.cfg.MemoryCeilingBytes,
		ClearExisting:      clearExisting,
		Logger:             e.logger.With("component", "batcher", "tenant", tenantID),
	})

	result, err := batcher.Run(ctx, store, src)
	if e.metrics != nil {
		e.metrics.ObserveTrainingBatch(result.RecordsConsumed)
	}
	return result, err
}

// Generate produces up to maxLen tokens from tenantID's chain, seeded by
// seed, dispatched through the worker pool so the request-path caller
// never runs chain-building work inline.
func (e *Engine) Generate(ctx context.Context, tenantID string, seed []string, maxLen int) ([]string, error) {
	store, err := e.registry.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	fut, err := pool.SubmitGenerateResponse(e.pool, pool.PriorityNormal, pool.GenerateResponsePayload{
		Store:  store,
		Seed:   seed,
		MaxLen: maxLen,
	})
	if err != nil {
		return nil, err
	}
	res, err := fut.WaitContext(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if e.metrics != nil {
		e.metrics.ObserveGenerate(len(res.Tokens), outcome)
	}
	if err != nil {
		return nil, err
	}
	return res.Tokens, nil
}

// Stats returns tenantID's ChainStore statistics, dispatched through the
// worker pool for consistency with the other request-path operations.
func (e *Engine) Stats(ctx context.Context, tenantID string) (chain.Stats, error) {
	store, err := e.registry.Get(ctx, tenantID)
	if err != nil {
		return chain.Stats{}, err
	}
	fut, err := pool.SubmitStats(e.pool, pool.PriorityNormal, pool.StatsPayload{Store: store})
	if err != nil {
		return chain.Stats{}, err
	}
	res, err := fut.WaitContext(ctx)
	if err != nil {
		return chain.Stats{}, err
	}
	return res.Stats, nil
}

// Close flushes and evicts every resident ChainStore, then shuts down the
// worker pool, waiting up to cfg.GracefulShutdownMs for in-flight tasks.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.registry.Close(ctx); err != nil {
		e.logger.Error("engine: registry close failed", "error", err)
	}
	return e.pool.Shutdown(ctx, time.Duration(e.cfg.GracefulShutdownMs)*time.Millisecond)
}
