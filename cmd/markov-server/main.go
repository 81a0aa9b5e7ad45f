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

// Command markov-server runs the demo HTTP server that exercises the
// generation engine end-to-end: per-tenant train/generate/stats plus a
// Prometheus /metrics endpoint. It is not the chat-platform adapter the
// engine is designed to sit behind in production.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"markov/config"
	"markov/engine"
	"markov/httpserver"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address")
	stateSize := flag.Int("state_size", 0, "prefix order override (0 keeps config/default)")
	workerPoolSize := flag.Int("worker_pool_size", 0, "worker count override (0 keeps config/default)")
	snapshotBackend := flag.String("snapshot_backend", "", "file|redis|postgres|badger override")
	dataDir := flag.String("data_dir", "", "snapshot/lock directory override")
	watch := flag.Bool("watch_config", false, "re-read and validate the config file on change (the running engine keeps its startup settings)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *stateSize > 0 {
		cfg.StateSize = *stateSize
	}
	if *workerPoolSize > 0 {
		cfg.WorkerPoolSize = *workerPoolSize
	}
	if *snapshotBackend != "" {
		cfg.SnapshotBackend = *snapshotBackend
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
		os.Exit(1)
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		logger.Error("engine init failed", "error", err)
		os.Exit(1)
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if *watch && *configPath != "" {
		w := config.NewWatcher(*configPath, logger, func(config.Config) {
			logger.Info("config reload validated (running engine keeps its startup settings)")
		})
		go func() {
			if err := w.Run(watchCtx, cfg); err != nil {
				logger.Warn("config watcher exited", "error", err)
			}
		}()
	}

	srv := httpserver.NewServer(eng, logger)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("markov-server listening", "addr", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	cancelWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.GracefulShutdownMs)*time.Millisecond)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	if err := eng.Close(shutdownCtx); err != nil {
		logger.Error("engine shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}
