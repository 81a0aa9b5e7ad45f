package persistence

import (
	"context"
	"errors"
	"testing"

	"markov/chain"
)

type fakeRedisClient struct {
	data map[string][]byte
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{data: map[string][]byte{}}
}

func (f *fakeRedisClient) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return v, nil
}

func (f *fakeRedisClient) Set(_ context.Context, key string, value []byte) error {
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func TestRedisBackend_SaveAndLoadRoundTrip(t *testing.T) {
	client := newFakeRedisClient()
	b := NewRedisBackend(client)

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

func TestRedisBackend_LoadMissingReturnsErrNotFound(t *testing.T) {
	b := NewRedisBackend(newFakeRedisClient())
	_, err := b.Load(context.Background(), "nonexistent")
	if !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
}

func TestRedisBackend_KeysAreNamespacedPerTenant(t *testing.T) {
	client := newFakeRedisClient()
	b := NewRedisBackend(client)

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
