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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SnapshotBackend is the minimal seam a Store needs to persist and reload
// its bytes. Concrete backends (local file, Redis, Postgres, Badger) live in
// package persistence and satisfy this interface without importing chain,
// which keeps the dependency one-directional.
type SnapshotBackend interface {
	Load(ctx context.Context, tenantID string) ([]byte, error)
	Save(ctx context.Context, tenantID string, data []byte) error
}

// MetricsSink is the seam Store and Entry use to report snapshot save
// latency/outcome and lazy alias-table rebuilds. Package metrics implements
// it; chain never imports metrics directly so the dependency stays
// one-directional.
type MetricsSink interface {
	ObserveSnapshotSave(backend, outcome string, d time.Duration)
	IncAliasRebuild()
}

// Record is a normalized training observation: one prefix/suffix/weight
// triple ready for insertion into a Store.
type Record struct {
	Prefix []string
	Suffix string
	Weight int64
}

// Stats is the result of Store.Stats.
type Stats struct {
	PrefixCount       int
	TotalSuffixes     int
	ApproxMemoryBytes int64
}

// Store is a ChainStore: one tenant's prefix -> PrefixEntry mapping, guarded
// by a single-writer/multi-reader lock, with debounced snapshot persistence.
type Store struct {
	TenantID  string
	StateSize int

	mu      sync.RWMutex
	entries map[string]*Entry

	backend     SnapshotBackend
	backendName string
	debounce    time.Duration
	logger      *slog.Logger
	metrics     MetricsSink

	dirty   atomic.Bool
	timerMu sync.Mutex
	timer   *time.Timer

	saveMu sync.Mutex // serializes concurrent Save/flush calls against one another

	version atomic.Int64
	closed  atomic.Bool
}

// NewStore creates an empty ChainStore for tenantID. Call Load to populate
// it from the backend before serving requests.
func NewStore(tenantID string, stateSize int, backend SnapshotBackend, debounce time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		TenantID:  tenantID,
		StateSize: stateSize,
		entries:   make(map[string]*Entry),
		backend:   backend,
		debounce:  debounce,
		logger:    logger,
	}
}

// SetMetrics wires a metrics sink and the backend's name (e.g. "file",
// "redis") into the store, so snapshot saves and any already- or later-
// created PrefixEntry's alias rebuilds are reported. Call before Load so
// entries restored from a snapshot are wired too; a nil sink is a no-op.
func (s *Store) SetMetrics(sink MetricsSink, backendName string) {
	s.metrics = sink
	s.backendName = backendName

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		e.SetMetrics(sink)
	}
}

// Load populates the store from its backend. A missing snapshot is not an
// error: the store simply starts empty. A corrupt or unreadable snapshot
// also starts the store empty, after logging a warning — the bad bytes
// are left untouched on the backend for operator inspection.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Load(ctx, s.TenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		s.logger.Warn("chain: snapshot unreadable, starting empty",
			"tenant", s.TenantID, "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	tenantID, stateSize, entries, err := DecodeSnapshot(data)
	if err != nil {
		s.logger.Warn("chain: snapshot corrupt, starting empty",
			"tenant", s.TenantID, "error", err)
		return nil
	}
	_ = tenantID // the file name is authoritative; header is a consistency check only

	s.mu.Lock()
	for _, e := range entries {
		e.SetMetrics(s.metrics)
	}
	s.entries = entries
	if stateSize > 0 {
		s.StateSize = stateSize
	}
	s.mu.Unlock()
	s.version.Add(1)
	return nil
}

// AddRecord inserts one (prefix, suffix, weight) observation, marking the
// store dirty and (re)arming the debounce timer.
func (s *Store) AddRecord(prefix []string, suffix string, weight int64) error {
	if len(prefix) == 0 || suffix == "" || weight < 1 {
		return ErrInvalidInput
	}
	key := JoinPrefix(prefix)

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		entry = NewEntry()
		entry.SetMetrics(s.metrics)
		s.entries[key] = entry
	}
	s.mu.Unlock()

	if err := entry.Insert(suffix, weight); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// AddBatch inserts many records. Per-record failures are accumulated and
// returned; they never abort the batch. The whole batch is one dirty mark
// and one debounce (re)arm.
func (s *Store) AddBatch(records []Record) (inserted int, errs []error) {
	for _, r := range records {
		if err := s.addRecordNoSchedule(r); err != nil {
			errs = append(errs, fmt.Errorf("prefix=%q suffix=%q: %w", JoinPrefix(r.Prefix), r.Suffix, err))
			continue
		}
		inserted++
	}
	if inserted > 0 {
		s.markDirty()
	}
	return inserted, errs
}

func (s *Store) addRecordNoSchedule(r Record) error {
	if len(r.Prefix) == 0 || r.Suffix == "" || r.Weight < 1 {
		return ErrInvalidInput
	}
	key := JoinPrefix(r.Prefix)

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		entry = NewEntry()
		entry.SetMetrics(s.metrics)
		s.entries[key] = entry
	}
	s.mu.Unlock()

	return entry.Insert(r.Suffix, r.Weight)
}

// GetNext samples one suffix for prefix, or ("", false) if the prefix is
// unknown or has no suffixes.
func (s *Store) GetNext(prefix string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[prefix]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return entry.Sample()
}

// Generate produces a token sequence starting from seed, repeatedly sampling
// a suffix and sliding the prefix window forward. It stops on a dead end
// (no suffix sampled), on the EndOfLine sentinel, or once maxLen tokens have
// been produced. The returned sequence always begins with seed, even if the
// seed prefix is entirely unknown to the store.
func (s *Store) Generate(seed []string, maxLen int) []string {
	out := append([]string(nil), seed...)
	if maxLen <= len(out) {
		return out
	}

	window := append([]string(nil), seed...)
	for len(out) < maxLen {
		if len(window) > s.StateSize {
			window = window[len(window)-s.StateSize:]
		}
		key := JoinPrefix(window)
		tok, ok := s.GetNext(key)
		if !ok {
			break
		}
		if tok == EndOfLine {
			break
		}
		out = append(out, tok)
		window = append(window, tok)
	}
	return out
}

// Clear empties the store, marking it dirty and scheduling a save.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.mu.Unlock()
	s.markDirty()
}

// RemovePrefix deletes one prefix. It reports whether the prefix was present.
func (s *Store) RemovePrefix(prefix string) bool {
	s.mu.Lock()
	_, ok := s.entries[prefix]
	if ok {
		delete(s.entries, prefix)
	}
	s.mu.Unlock()
	if ok {
		s.markDirty()
	}
	return ok
}

// Stats reports prefix/suffix counts and an approximate memory footprint.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{PrefixCount: len(s.entries)}
	var mem int64
	for prefix, e := range s.entries {
		n := e.Len()
		st.TotalSuffixes += n
		// Rough estimate: prefix key bytes + a fixed per-suffix overhead for
		// the token string header, weight, and map/slice bookkeeping.
		mem += int64(len(prefix)) + int64(n)*48
	}
	st.ApproxMemoryBytes = mem
	return st
}

// markDirty flags the store dirty and (re)arms the debounce timer. Each call
// cancels any pending timer and starts a fresh one, so a burst of mutations
// yields exactly one save shortly after the burst ends.
func (s *Store) markDirty() {
	s.dirty.Store(true)

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.closed.Load() {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Save(context.Background()); err != nil {
			s.logger.Error("chain: debounced save failed", "tenant", s.TenantID, "error", err)
		}
	})
}

// Save serializes the store under a read lock and writes it through the
// backend. It is safe to call directly (a forced flush) or from the
// debounce timer.
func (s *Store) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := EncodeSnapshot(s.TenantID, s.StateSize, s.entries)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrIo, err)
	}

	start := time.Now()
	saveErr := s.backend.Save(ctx, s.TenantID, data)
	if s.metrics != nil {
		outcome := "ok"
		if saveErr != nil {
			outcome = "error"
		}
		s.metrics.ObserveSnapshotSave(s.backendName, outcome, time.Since(start))
	}
	if saveErr != nil {
		return fmt.Errorf("%w: %v", ErrIo, saveErr)
	}
	s.dirty.Store(false)
	s.version.Add(1)
	return nil
}

// Dirty reports whether the store has unsaved mutations.
func (s *Store) Dirty() bool { return s.dirty.Load() }

// Version returns a monotonically increasing counter bumped by every
// successful Load or Save, useful for detecting whether a snapshot changed.
func (s *Store) Version() int64 { return s.version.Load() }

// Close stops the debounce timer so it cannot fire after the store is gone,
// and performs a final synchronous flush if the store is dirty.
func (s *Store) Close(ctx context.Context) error {
	s.closed.Store(true)

	s.timerMu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerMu.Unlock()

	if s.dirty.Load() {
		return s.Save(ctx)
	}
	return nil
}
