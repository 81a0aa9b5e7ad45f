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

// Package train implements the TrainBatcher (streaming ingestion of
// training records into batches submitted to the pool) and the TrainLock
// (advisory per-tenant single-writer lock with stale-PID reclamation).
package train

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrContention is returned by Acquire when the lock file names a PID that
// is still alive.
var ErrContention = errors.New("train: lock held by a live process")

// Lock is a TrainLock: an advisory, non-blocking, per-tenant lock file
// under <configDir>/<tenantId>_training.lock, whose content is the decimal
// PID of the holder.
type Lock struct {
	path string
	file *os.File
	held bool
}

// NewLock builds a Lock for tenantID under configDir. It does not touch
// the filesystem; call Acquire to do that.
func NewLock(configDir, tenantID string) *Lock {
	return &Lock{path: filepath.Join(configDir, tenantID+"_training.lock")}
}

// Path returns the lock file's path, useful for diagnostics.
func (l *Lock) Path() string { return l.path }

// Acquire attempts to take the lock. On a fresh path it succeeds
// immediately. On collision it probes the existing holder's PID for
// liveness: a dead owner's lock file is removed and acquisition retried
// once; a live owner yields ErrContention. The lock file's directory is
// created if it does not exist yet.
func (l *Lock) Acquire() error {
	if l.held {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("train: create lock dir: %w", err)
	}

	f, err := l.tryCreate()
	if err == nil {
		l.file = f
		l.held = true
		return nil
	}
	if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("train: create lock file: %w", err)
	}

	pid, readErr := l.readPID()
	if readErr == nil && processAlive(pid) {
		return ErrContention
	}

	// Stale: the owner is gone. Reclaim and retry once.
	_ = os.Remove(l.path)
	f, err = l.tryCreate()
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrContention
		}
		return fmt.Errorf("train: create lock file after reclaiming stale lock: %w", err)
	}
	l.file = f
	l.held = true
	return nil
}

// Release removes the lock file. Safe to call whether or not the lock is
// held.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("train: remove lock file: %w", err)
	}
	return nil
}

// IsHeld reports whether this Lock instance currently holds the lock.
func (l *Lock) IsHeld() bool { return l.held }

func (l *Lock) tryCreate() (*os.File, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		os.Remove(l.path)
		return nil, err
	}
	return f, nil
}

func (l *Lock) readPID() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("train: malformed pid in lock file: %w", err)
	}
	return pid, nil
}

// processAlive probes liveness with signal 0, which the kernel delivers to
// nothing but still validates the target PID exists and is reachable.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
