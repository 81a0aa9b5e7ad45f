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

// Package httpserver implements the demo HTTP surface that exercises the
// generation engine end-to-end: training, generation, and stats per
// tenant, plus a Prometheus /metrics endpoint. It is not the chat-platform
// adapter the engine is designed to sit behind in production; it exists so
// this repository is runnable on its own.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"markov/chain"
	"markov/engine"
	"markov/train"
)

// Server handles the demo HTTP surface for the generation engine.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer configures a new Server around eng.
func NewServer(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: eng, logger: logger}
}

// RegisterRoutes wires this server's handlers onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/tenants/", s.handleTenants)
	mux.Handle("/metrics", s.engine.Metrics().Handler())
}

// handleTenants dispatches on the path suffix and method by hand; the
// routes are registered as a plain "/tenants/" prefix rather than as
// ServeMux path patterns.
func (s *Server) handleTenants(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tenants/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "expected /tenants/{id}/train|generate|stats", http.StatusNotFound)
		return
	}
	tenantID, action := parts[0], parts[1]

	switch {
	case action == "train" && r.Method == http.MethodPost:
		s.handleTrain(w, r, tenantID)
	case action == "generate" && r.Method == http.MethodGet:
		s.handleGenerate(w, r, tenantID)
	case action == "stats" && r.Method == http.MethodGet:
		s.handleStats(w, r, tenantID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request, tenantID string) {
	defer r.Body.Close()
	src := train.NewJSONArraySource(r.Body)
	clearExisting := r.URL.Query().Get("clear") == "true"

	result, err := s.engine.Train(r.Context(), tenantID, src, clearExisting)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, tenantID string) {
	q := r.URL.Query()
	var seed []string
	if raw := q.Get("seed"); raw != "" {
		seed = strings.Fields(raw)
	}
	maxLen := 40
	if raw := q.Get("max_len"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "max_len must be a positive integer", http.StatusBadRequest)
			return
		}
		maxLen = n
	}

	tokens, err := s.engine.Generate(r.Context(), tenantID, seed, maxLen)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens, "text": strings.Join(tokens, " ")})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, tenantID string) {
	stats, err := s.engine.Stats(r.Context(), tenantID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("httpserver: encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, chain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, train.ErrContention):
		status = http.StatusConflict
	}
	s.logger.Warn("httpserver: request failed", "error", err, "status", status)
	http.Error(w, err.Error(), status)
}

// ListenAndServe starts the HTTP server on addr with conservative
// read/write/idle timeouts, and blocks until it exits.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("httpserver: listening", "addr", addr)
	return httpServer.ListenAndServe()
}
