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

// Package pool implements the fixed-size WorkerPool: a closed sum type of
// task variants, a priority queue with FIFO tie-break, and a
// panic-recovering supervisor that replaces crashed workers.
package pool

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned to a task's Future when the task is cancelled
// before dispatch, either individually or because the pool shut down while
// the task was still queued.
var ErrCancelled = errors.New("pool: task cancelled")

// ErrShutdown is returned by Submit once the pool has begun shutting down.
var ErrShutdown = errors.New("pool: pool is shut down")

// WorkerError wraps the cause of a worker crash (a recovered panic) that
// aborted a task already dispatched to it.
type WorkerError struct {
	Cause error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("pool: worker failed: %v", e.Cause)
}

func (e *WorkerError) Unwrap() error { return e.Cause }
