package persistence

import (
	"context"
	"errors"
	"testing"

	"markov/chain"
)

type fakePostgresConn struct {
	rows           map[string][]byte
	versions       map[string]int
	failLoad       error
	failSave       error
	saveCalls      int
}

func newFakePostgresConn() *fakePostgresConn {
	return &fakePostgresConn{rows: map[string][]byte{}, versions: map[string]int{}}
}

func (c *fakePostgresConn) LoadSnapshot(_ context.Context, tenantID string) ([]byte, error) {
	if c.failLoad != nil {
		return nil, c.failLoad
	}
	body, ok := c.rows[tenantID]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return body, nil
}

func (c *fakePostgresConn) SaveSnapshot(_ context.Context, tenantID string, schemaVersion int, body []byte) error {
	if c.failSave != nil {
		return c.failSave
	}
	c.saveCalls++
	c.rows[tenantID] = append([]byte(nil), body...)
	c.versions[tenantID] = schemaVersion
	return nil
}

func TestPostgresBackend_SaveAndLoadRoundTrip(t *testing.T) {
	conn := newFakePostgresConn()
	b := NewPostgresBackend(conn)

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
	if conn.versions["tenant-a"] != snapshotSchemaVersion {
		t.Fatalf("schema_version = %d, want %d", conn.versions["tenant-a"], snapshotSchemaVersion)
	}
}

func TestPostgresBackend_SaveUpsertsExistingRow(t *testing.T) {
	conn := newFakePostgresConn()
	b := NewPostgresBackend(conn)

	if err := b.Save(context.Background(), "tenant-a", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(context.Background(), "tenant-a", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	if conn.saveCalls != 2 {
		t.Fatalf("saveCalls = %d, want 2", conn.saveCalls)
	}
	got, err := b.Load(context.Background(), "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Fatalf("Load = %q, want %q", got, "v2")
	}
}

func TestPostgresBackend_LoadMissingReturnsErrNotFound(t *testing.T) {
	b := NewPostgresBackend(newFakePostgresConn())
	_, err := b.Load(context.Background(), "nonexistent")
	if !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
}

func TestPostgresBackend_SavePropagatesConnError(t *testing.T) {
	conn := newFakePostgresConn()
	conn.failSave = errors.New("connection reset")
	b := NewPostgresBackend(conn)

	if err := b.Save(context.Background(), "tenant-a", []byte("x")); err == nil {
		t.Fatal("Save() with a failing conn returned nil error")
	}
}
