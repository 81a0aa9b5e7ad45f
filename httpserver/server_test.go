package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"markov/config"
	"markov/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.WorkerPoolSize = 2
	cfg.ChainSaveDebounceMs = 1000
	cfg.GracefulShutdownMs = 1000

	eng, err := engine.New(cfg, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		eng.Close(ctx)
	})
	return NewServer(eng, nil)
}

func TestServer_TrainGenerateStats(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	trainBody := strings.NewReader(`[{"message":"the quick brown fox"},{"message":"the quick brown dog"}]`)
	resp, err := http.Post(ts.URL+"/tenants/tenant-a/train", "application/json", trainBody)
	if err != nil {
		t.Fatalf("POST /train: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /train status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/tenants/tenant-a/generate?seed=the+quick&max_len=10")
	if err != nil {
		t.Fatalf("GET /generate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /generate status = %d, want 200", resp.StatusCode)
	}
	var genOut map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&genOut); err != nil {
		t.Fatalf("decode /generate response: %v", err)
	}
	if _, ok := genOut["tokens"]; !ok {
		t.Fatal("/generate response missing tokens field")
	}

	resp, err = http.Get(ts.URL + "/tenants/tenant-a/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /stats status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_GenerateRejectsBadMaxLen(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/tenants/tenant-a/generate?max_len=not-a-number")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_UnknownActionReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/tenants/tenant-a/frobnicate")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_MetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
