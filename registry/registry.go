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

// Package registry implements the StoreRegistry: a process-wide, lazily
// populated cache of per-tenant chain.Store instances with byte-ceiling
// LRU eviction deferred until a store is dirty-free.
package registry

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"markov/chain"
)

// MetricsSink is the seam Registry uses to report resident tenant count and
// approximate memory usage. Package metrics implements it.
type MetricsSink interface {
	SetResidentTenants(n int)
	SetResidentBytes(n int64)
}

// Config configures every ChainStore the Registry lazily creates.
type Config struct {
	StateSize          int
	Backend            chain.SnapshotBackend
	BackendName        string // e.g. "file", "redis"; reported on chain.Store's snapshot-save metrics
	SaveDebounce       time.Duration
	MemoryCeilingBytes int64
	Logger             *slog.Logger
	Metrics            MetricsSink
	StoreMetrics       chain.MetricsSink
}

type entry struct {
	tenantID string
	store    *chain.Store
	elem     *list.Element
}

// Registry is the StoreRegistry. It is the sole owner of ChainStores; every
// other component borrows references through Get.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // front = most recently used, back = eviction candidate
}

// New creates an empty Registry. No stores are loaded until Get is called.
func New(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		cfg:     cfg,
		entries: make(map[string]*entry),
		order:   list.New(),
	}
}

// Get returns the ChainStore for tenantID, creating and loading it from the
// backend on first access. Repeated calls return the same *chain.Store and
// mark it most-recently-used.
func (r *Registry) Get(ctx context.Context, tenantID string) (*chain.Store, error) {
	r.mu.Lock()
	if e, ok := r.entries[tenantID]; ok {
		r.order.MoveToFront(e.elem)
		store := e.store
		r.mu.Unlock()
		return store, nil
	}
	r.mu.Unlock()

	store := chain.NewStore(tenantID, r.cfg.StateSize, r.cfg.Backend, r.cfg.SaveDebounce, r.cfg.Logger)
	if r.cfg.StoreMetrics != nil {
		store.SetMetrics(r.cfg.StoreMetrics, r.cfg.BackendName)
	}
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	// Another goroutine may have created and published this tenant's store
	// while we were loading; the loser's store is simply discarded; it
	// never armed a debounce timer, so nothing needs to be stopped.
	if e, ok := r.entries[tenantID]; ok {
		r.order.MoveToFront(e.elem)
		r.mu.Unlock()
		return e.store, nil
	}
	elem := r.order.PushFront(tenantID)
	r.entries[tenantID] = &entry{tenantID: tenantID, store: store, elem: elem}
	evicted := r.evictLocked()
	r.reportLocked()
	r.mu.Unlock()

	for _, s := range evicted {
		if err := s.Close(ctx); err != nil {
			r.cfg.Logger.Warn("registry: close evicted store failed", "tenant", s.TenantID, "error", err)
		}
	}
	return store, nil
}

// Evict forcibly removes tenantID from the registry, waiting for any
// in-flight or newly-triggered save to complete before returning. Absent
// tenants are a no-op.
func (r *Registry) Evict(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	e, ok := r.entries[tenantID]
	if ok {
		r.order.Remove(e.elem)
		delete(r.entries, tenantID)
	}
	r.reportLocked()
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return e.store.Close(ctx)
}

// Stats reports resident tenant count and approximate total memory.
type Stats struct {
	ResidentTenants int
	ResidentBytes   int64
}

// Stats returns the registry's current footprint.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ResidentTenants: len(r.entries),
		ResidentBytes:   r.totalBytesLocked(),
	}
}

// Close flushes and releases every resident store. Call at process shutdown.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	stores := make([]*chain.Store, 0, len(r.entries))
	for _, e := range r.entries {
		stores = append(stores, e.store)
	}
	r.entries = make(map[string]*entry)
	r.order = list.New()
	r.mu.Unlock()

	var first error
	for _, s := range stores {
		if err := s.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Registry) totalBytesLocked() int64 {
	var total int64
	for _, e := range r.entries {
		total += e.store.Stats().ApproxMemoryBytes
	}
	return total
}

// evictLocked evicts least-recently-used, dirty-free stores until the
// registry is back under its byte ceiling, or until every resident store is
// dirty (in which case the ceiling is exceeded until a debounce fires). The
// most recently used store (the one Get is about to return) is never
// evicted. It returns the evicted stores so the caller can Close them (which
// stops each store's debounce timer) after releasing r.mu.
func (r *Registry) evictLocked() []*chain.Store {
	if r.cfg.MemoryCeilingBytes <= 0 {
		return nil
	}
	var evicted []*chain.Store
	for r.totalBytesLocked() > r.cfg.MemoryCeilingBytes {
		candidate := r.order.Back()
		evictedOne := false
		for candidate != nil && candidate != r.order.Front() {
			tenantID := candidate.Value.(string)
			e := r.entries[tenantID]
			if !e.store.Dirty() {
				r.order.Remove(candidate)
				delete(r.entries, tenantID)
				r.cfg.Logger.Info("registry: evicted tenant under memory pressure", "tenant", tenantID)
				evicted = append(evicted, e.store)
				evictedOne = true
				break
			}
			candidate = candidate.Prev()
		}
		if !evictedOne {
			r.cfg.Logger.Warn("registry: memory ceiling exceeded but every resident store is dirty",
				"resident_bytes", r.totalBytesLocked(), "ceiling", r.cfg.MemoryCeilingBytes)
			return evicted
		}
	}
	return evicted
}

func (r *Registry) reportLocked() {
	if r.cfg.Metrics == nil {
		return
	}
	r.cfg.Metrics.SetResidentTenants(len(r.entries))
	r.cfg.Metrics.SetResidentBytes(r.totalBytesLocked())
}
