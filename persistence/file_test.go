package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"markov/chain"
)

func TestFileBackend_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)

	if err := b.Save(context.Background(), "tenant-a", []byte(`{"hello":"world"}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"hello":"world"}` {
		t.Fatalf("Load = %q, want %q", got, `{"hello":"world"}`)
	}
}

func TestFileBackend_LoadMissingReturnsErrNotFound(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	_, err := b.Load(context.Background(), "nonexistent")
	if !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
}

func TestFileBackend_SaveOverwritesLeavingNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)

	if err := b.Save(context.Background(), "tenant-a", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(context.Background(), "tenant-a", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, err := b.Load(context.Background(), "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Fatalf("Load = %q, want %q", got, "v2")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestFileBackend_SaveCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	b := NewFileBackend(dir)
	if err := b.Save(context.Background(), "tenant-a", []byte("data")); err != nil {
		t.Fatalf("Save into missing dir: %v", err)
	}
}
