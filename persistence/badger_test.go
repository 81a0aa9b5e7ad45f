package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"markov/chain"
)

func openTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerBackend_SaveAndLoadRoundTrip(t *testing.T) {
	b := NewBadgerBackend(openTestBadger(t))

	if err := b.Save(context.Background(), "tenant-a", []byte("payload")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Load = %q, want %q", got, "payload")
	}
}

func TestBadgerBackend_LoadMissingReturnsErrNotFound(t *testing.T) {
	b := NewBadgerBackend(openTestBadger(t))
	_, err := b.Load(context.Background(), "nonexistent")
	if !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
}

func TestBadgerBackend_KeysAreNamespacedPerTenant(t *testing.T) {
	b := NewBadgerBackend(openTestBadger(t))

	if err := b.Save(context.Background(), "tenant-a", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(context.Background(), "tenant-b", []byte("b")); err != nil {
		t.Fatal(err)
	}
	gotA, _ := b.Load(context.Background(), "tenant-a")
	gotB, _ := b.Load(context.Background(), "tenant-b")
	if string(gotA) != "a" || string(gotB) != "b" {
		t.Fatalf("cross-tenant key collision: a=%q b=%q", gotA, gotB)
	}
}
