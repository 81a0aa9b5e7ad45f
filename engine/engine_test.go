package engine

import (
	"context"
	"testing"
	"time"

	"markov/config"
	"markov/train"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.WorkerPoolSize = 2
	cfg.ChainSaveDebounceMs = 1000
	cfg.GracefulShutdownMs = 1000

	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		e.Close(ctx)
	})
	return e
}

func TestEngine_TrainThenGenerate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	src := train.NewSliceSource([]train.Record{
		{Message: "the quick brown fox"},
		{Message: "the quick brown dog"},
	})
	result, err := e.Train(ctx, "tenant-a", src, false)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if result.RecordsConsumed != 2 {
		t.Fatalf("RecordsConsumed = %d, want 2", result.RecordsConsumed)
	}

	tokens, err := e.Generate(ctx, "tenant-a", []string{"the", "quick"}, 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tokens) == 0 {
		t.Fatal("Generate returned no tokens")
	}

	stats, err := e.Stats(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.PrefixCount == 0 {
		t.Fatal("Stats reports zero prefixes after training")
	}
}

func TestEngine_TrainRejectsConcurrentLock(t *testing.T) {
	e := newTestEngine(t)

	held := train.NewLock(e.cfg.DataDir, "tenant-a")
	if err := held.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	src := train.NewSliceSource([]train.Record{{Message: "a b c"}})
	if _, err := e.Train(context.Background(), "tenant-a", src, false); err != train.ErrContention {
		t.Fatalf("Train with a held lock = %v, want ErrContention", err)
	}
}

func TestEngine_TrainClearExistingWipesPriorChain(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first := train.NewSliceSource([]train.Record{{Message: "the quick brown fox"}})
	if _, err := e.Train(ctx, "tenant-b", first, false); err != nil {
		t.Fatalf("initial Train: %v", err)
	}
	statsBefore, err := e.Stats(ctx, "tenant-b")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if statsBefore.PrefixCount == 0 {
		t.Fatal("expected a non-empty chain after the initial train")
	}

	second := train.NewSliceSource([]train.Record{{Message: "hello world"}})
	if _, err := e.Train(ctx, "tenant-b", second, true); err != nil {
		t.Fatalf("clearing Train: %v", err)
	}

	tokens, err := e.Generate(ctx, "tenant-b", []string{"the", "quick"}, 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("Generate after a clearing reimport followed the wiped chain = %v, want just the seed echoed back", tokens)
	}
}

func TestEngine_StoreCreatesEmptyStoreForNewTenant(t *testing.T) {
	e := newTestEngine(t)
	store, err := e.Store(context.Background(), "brand-new-tenant")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if stats := store.Stats(); stats.PrefixCount != 0 {
		t.Fatalf("PrefixCount = %d, want 0 for a brand new tenant", stats.PrefixCount)
	}
}
