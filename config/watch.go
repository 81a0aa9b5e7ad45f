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

package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 250 * time.Millisecond

// Watcher re-reads path on modification and hands the reloaded Config to
// onChange, debouncing bursts of filesystem events (editors often emit
// several writes per save) the way a single logical change should.
type Watcher struct {
	path     string
	logger   *slog.Logger
	onChange func(Config)
}

// NewWatcher builds a Watcher over path. onChange is called with each
// successfully validated reload; it is never called concurrently.
func NewWatcher(path string, logger *slog.Logger, onChange func(Config)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, logger: logger, onChange: onChange}
}

// Run watches until ctx is cancelled or the underlying fsnotify watcher
// fails to start. current is the Config in effect before the first reload;
// each accepted reload is merged onto the most recently accepted Config
// via ApplyReload, so an immutable-field change is rejected and logged
// without disturbing the running configuration.
func (w *Watcher) Run(ctx context.Context, current Config) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return err
	}

	var timer *time.Timer
	var fireMu sync.Mutex
	fire := func() {
		fireMu.Lock()
		defer fireMu.Unlock()
		next, err := Load(w.path)
		if err != nil {
			w.logger.Warn("config: reload failed, keeping previous configuration", "path", w.path, "error", err)
			return
		}
		merged, err := current.ApplyReload(next)
		if err != nil {
			w.logger.Warn("config: reload rejected an immutable field change", "path", w.path, "error", err)
			return
		}
		current = merged
		w.logger.Info("config: reloaded", "path", w.path)
		if w.onChange != nil {
			w.onChange(current)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, fire)
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config: watcher error", "error", err)
		}
	}
}
