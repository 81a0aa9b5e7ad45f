package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_SinksUpdateExposedValues(t *testing.T) {
	m := New()

	m.SetPoolQueueDepth(7)
	m.IncPoolTask("stats", "ok")
	m.SetResidentTenants(3)
	m.SetResidentBytes(1024)
	m.ObserveGenerate(12, "ok")
	m.ObserveTrainingBatch(500)
	m.ObserveSnapshotSave("file", "ok", 15*time.Millisecond)
	m.IncAliasRebuild()
	m.IncTrainLockContention()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"markov_pool_queue_depth 7",
		`markov_pool_tasks_total{kind="stats",outcome="ok"} 1`,
		"markov_store_resident_tenants 3",
		"markov_store_resident_bytes 1024",
		"markov_tokens_generated_total 12",
		`markov_generations_total{outcome="ok"} 1`,
		"markov_training_records_total 500",
		"markov_training_batches_total 1",
		`markov_snapshot_saves_total{backend="file",outcome="ok"} 1`,
		"markov_alias_rebuilds_total 1",
		"markov_train_lock_contention_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NewRegistryIsIsolated(t *testing.T) {
	a := New()
	b := New()
	a.IncAliasRebuild()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "markov_alias_rebuilds_total 1") {
		t.Fatal("second Metrics instance observed the first instance's counter")
	}
}
