package train

import (
	"context"
	"testing"
	"time"

	"markov/chain"
	"markov/pool"
)

type noopBackend struct{}

func (noopBackend) Load(context.Context, string) ([]byte, error) { return nil, chain.ErrNotFound }
func (noopBackend) Save(context.Context, string, []byte) error   { return nil }

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p := pool.New(2, nil, nil)
	p.Start()
	t.Cleanup(func() { p.Shutdown(context.Background(), time.Second) })
	return p
}

func TestBatcher_RunConsumesSourceAndPopulatesStore(t *testing.T) {
	p := newTestPool(t)
	store := chain.NewStore("tenant-a", 2, noopBackend{}, time.Hour, nil)
	batcher := NewBatcher(p, BatcherConfig{StateSize: 2, BatchSize: 10})

	src := NewSliceSource([]Record{
		{Message: "the quick brown fox"},
		{Message: "the lazy dog sleeps"},
	})

	result, err := batcher.Run(context.Background(), store, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RecordsConsumed != 2 {
		t.Fatalf("RecordsConsumed = %d, want 2", result.RecordsConsumed)
	}
	if result.BatchesSubmitted == 0 {
		t.Fatal("expected at least one batch submitted")
	}

	tok, ok := store.GetNext("the quick")
	if !ok || tok != "brown" {
		t.Fatalf("GetNext(\"the quick\") = (%q, %v), want (\"brown\", true)", tok, ok)
	}
}

func TestBatcher_RunFlushesFinalPartialBatch(t *testing.T) {
	p := newTestPool(t)
	store := chain.NewStore("tenant-a", 2, noopBackend{}, time.Hour, nil)
	// A batch size far larger than the number of records produced ensures
	// the only flush happens at end-of-stream.
	batcher := NewBatcher(p, BatcherConfig{StateSize: 2, BatchSize: 10000})

	src := NewSliceSource([]Record{{Message: "a b c"}})
	result, err := batcher.Run(context.Background(), store, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.BatchesSubmitted != 1 {
		t.Fatalf("BatchesSubmitted = %d, want 1", result.BatchesSubmitted)
	}
	if stats := store.Stats(); stats.PrefixCount == 0 {
		t.Fatal("expected the trailing partial batch to have been flushed")
	}
}

func TestBatcher_RunTerminatesGenerationWithEndOfLine(t *testing.T) {
	p := newTestPool(t)
	store := chain.NewStore("tenant-a", 2, noopBackend{}, time.Hour, nil)
	batcher := NewBatcher(p, BatcherConfig{StateSize: 2, BatchSize: 10})

	src := NewSliceSource([]Record{{Message: "i am sam"}})
	if _, err := batcher.Run(context.Background(), store, src); err != nil {
		t.Fatal(err)
	}

	out := store.Generate([]string{"i", "am"}, 10)
	want := []string{"i", "am", "sam"}
	if len(out) != len(want) {
		t.Fatalf("Generate() = %v, want %v", out, want)
	}
}

func TestBatcher_RunRejectsCancelledContext(t *testing.T) {
	p := newTestPool(t)
	store := chain.NewStore("tenant-a", 2, noopBackend{}, time.Hour, nil)
	batcher := NewBatcher(p, BatcherConfig{StateSize: 2, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSliceSource([]Record{{Message: "a b c"}})
	if _, err := batcher.Run(ctx, store, src); err == nil {
		t.Fatal("Run() with a cancelled context returned nil error")
	}
}
