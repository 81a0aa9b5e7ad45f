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

// Package metrics exposes the engine's Prometheus surface. Metrics is
// opt-in: a nil *Metrics is never constructed here, but every package that
// consumes one of the small Sink interfaces below treats a nil sink as a
// no-op, so callers can wire real metrics or skip them entirely.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics registry. Its methods satisfy
// pool.MetricsSink and registry.MetricsSink structurally, so neither
// package imports this one.
type Metrics struct {
	registry *prometheus.Registry

	tokensGenerated     prometheus.Counter
	generationsTotal    *prometheus.CounterVec
	trainingRecords     prometheus.Counter
	trainingBatches     prometheus.Counter
	poolQueueDepth      prometheus.Gauge
	poolTasksTotal      *prometheus.CounterVec
	residentTenants     prometheus.Gauge
	residentBytes       prometheus.Gauge
	snapshotSaves       *prometheus.CounterVec
	snapshotSaveTime    prometheus.Histogram
	aliasRebuilds       prometheus.Counter
	trainLockContention prometheus.Counter
}

// New builds a Metrics instance registered against a fresh
// prometheus.Registry, avoiding the default global registry so multiple
// engines in one process (e.g. in tests) never collide on metric names.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokensGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markov_tokens_generated_total",
			Help: "Total tokens emitted across all Generate calls.",
		}),
		generationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markov_generations_total",
			Help: "Total Generate calls, by outcome.",
		}, []string{"outcome"}),
		trainingRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markov_training_records_total",
			Help: "Total training records consumed by all batchers.",
		}),
		trainingBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markov_training_batches_total",
			Help: "Total training batches submitted to the worker pool.",
		}),
		poolQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "markov_pool_queue_depth",
			Help: "Current number of tasks queued in the worker pool.",
		}),
		poolTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markov_pool_tasks_total",
			Help: "Total worker pool tasks completed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		residentTenants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "markov_store_resident_tenants",
			Help: "Number of tenant chain stores currently resident in the registry.",
		}),
		residentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "markov_store_resident_bytes",
			Help: "Approximate total memory of resident chain stores, in bytes.",
		}),
		snapshotSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markov_snapshot_saves_total",
			Help: "Total snapshot save attempts, by backend and outcome.",
		}, []string{"backend", "outcome"}),
		snapshotSaveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "markov_snapshot_save_duration_seconds",
			Help:    "Snapshot save latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		aliasRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markov_alias_rebuilds_total",
			Help: "Total lazy alias-table rebuilds across all prefix entries.",
		}),
		trainLockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markov_train_lock_contention_total",
			Help: "Total training lock acquisitions that found a live holder.",
		}),
	}

	m.registry.MustRegister(
		m.tokensGenerated, m.generationsTotal, m.trainingRecords, m.trainingBatches,
		m.poolQueueDepth, m.poolTasksTotal, m.residentTenants, m.residentBytes,
		m.snapshotSaves, m.snapshotSaveTime, m.aliasRebuilds, m.trainLockContention,
	)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetPoolQueueDepth implements pool.MetricsSink.
func (m *Metrics) SetPoolQueueDepth(n int) { m.poolQueueDepth.Set(float64(n)) }

// IncPoolTask implements pool.MetricsSink.
func (m *Metrics) IncPoolTask(kind, outcome string) {
	m.poolTasksTotal.WithLabelValues(kind, outcome).Inc()
}

// SetResidentTenants implements registry.MetricsSink.
func (m *Metrics) SetResidentTenants(n int) { m.residentTenants.Set(float64(n)) }

// SetResidentBytes implements registry.MetricsSink.
func (m *Metrics) SetResidentBytes(n int64) { m.residentBytes.Set(float64(n)) }

// ObserveGenerate records one Generate call's token count and outcome.
func (m *Metrics) ObserveGenerate(tokenCount int, outcome string) {
	m.tokensGenerated.Add(float64(tokenCount))
	m.generationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTrainingBatch records one flushed training batch.
func (m *Metrics) ObserveTrainingBatch(records int) {
	m.trainingRecords.Add(float64(records))
	m.trainingBatches.Inc()
}

// ObserveSnapshotSave records one snapshot save attempt's latency and outcome.
func (m *Metrics) ObserveSnapshotSave(backend string, outcome string, d time.Duration) {
	m.snapshotSaves.WithLabelValues(backend, outcome).Inc()
	m.snapshotSaveTime.Observe(d.Seconds())
}

// IncAliasRebuild records one lazy alias-table rebuild.
func (m *Metrics) IncAliasRebuild() { m.aliasRebuilds.Inc() }

// IncTrainLockContention records one training lock acquisition that found a
// live holder.
func (m *Metrics) IncTrainLockContention() { m.trainLockContention.Inc() }
