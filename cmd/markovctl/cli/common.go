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

package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"markov/config"
	"markov/engine"
)

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildEngine loads config from opts.ConfigPath and constructs an Engine.
// Callers must Close it, ideally via a deferred call bounded by
// cfg.GracefulShutdownMs.
func buildEngine(opts *RootOptions) (*engine.Engine, config.Config, *slog.Logger, error) {
	logger := newLogger(opts.Verbose)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, config.Config{}, logger, err
	}
	eng, err := engine.New(cfg, logger)
	if err != nil {
		return nil, config.Config{}, logger, err
	}
	return eng, cfg, logger, nil
}

func closeEngine(eng *engine.Engine, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	eng.Close(ctx)
}
