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

package pool

import (
	"fmt"
	"time"

	"markov/chain"
)

// Kind identifies which typed payload variant a Task carries.
type Kind int

const (
	KindBuildChains Kind = iota
	KindGenerateResponse
	KindBatchUpdate
	KindStats
)

func (k Kind) String() string {
	switch k {
	case KindBuildChains:
		return "build-chains"
	case KindGenerateResponse:
		return "generate-response"
	case KindBatchUpdate:
		return "batch-update"
	case KindStats:
		return "stats"
	default:
		return "unknown"
	}
}

// Priority levels, low to high. Ties within a level are broken FIFO.
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
)

// BuildChainsPayload bulk-inserts training records into a store. Unlike
// BatchUpdatePayload, it can clear the store first, so a caller doing a
// from-scratch import can be told apart, in metrics and logs, from an
// incremental update.
type BuildChainsPayload struct {
	Store         *chain.Store
	Records       []chain.Record
	ClearExisting bool
}

// BuildChainsResult is the outcome of a BuildChainsPayload task.
type BuildChainsResult struct {
	Inserted int
	Errors   []error
}

// GenerateResponsePayload asks a store to sample a token sequence.
// Temperature is reserved: it is threaded through and stored on the task
// but ignored by the default sampler.
type GenerateResponsePayload struct {
	Store       *chain.Store
	Seed        []string
	MaxLen      int
	Temperature float64
}

// GenerateResponseResult is the outcome of a GenerateResponsePayload task.
type GenerateResponseResult struct {
	Tokens []string
}

// BatchUpdatePayload incrementally inserts training records.
type BatchUpdatePayload struct {
	Store   *chain.Store
	Records []chain.Record
}

// BatchUpdateResult is the outcome of a BatchUpdatePayload task.
type BatchUpdateResult struct {
	Inserted int
	Errors   []error
}

// StatsPayload requests a store's current statistics.
type StatsPayload struct {
	Store *chain.Store
}

// StatsResult is the outcome of a StatsPayload task.
type StatsResult struct {
	Stats chain.Stats
}

// Task is the closed sum type dispatched through the pool: a tag, exactly
// one populated payload field, a dedicated task id distinct from any
// worker slot, and a type-erased resolver closing over the caller's typed
// Future. Never construct a Task directly; use the Submit* helpers.
type Task struct {
	ID        uint64
	Kind      Kind
	Priority  int
	Submitted time.Time

	BuildChains      *BuildChainsPayload
	GenerateResponse *GenerateResponsePayload
	BatchUpdate      *BatchUpdatePayload
	Stats            *StatsPayload

	resolve func(any, error)
}

func executeTask(t *Task) (any, error) {
	switch t.Kind {
	case KindBuildChains:
		if t.BuildChains.ClearExisting {
			t.BuildChains.Store.Clear()
		}
		inserted, errs := t.BuildChains.Store.AddBatch(t.BuildChains.Records)
		return BuildChainsResult{Inserted: inserted, Errors: errs}, nil
	case KindGenerateResponse:
		tokens := t.GenerateResponse.Store.Generate(t.GenerateResponse.Seed, t.GenerateResponse.MaxLen)
		return GenerateResponseResult{Tokens: tokens}, nil
	case KindBatchUpdate:
		inserted, errs := t.BatchUpdate.Store.AddBatch(t.BatchUpdate.Records)
		return BatchUpdateResult{Inserted: inserted, Errors: errs}, nil
	case KindStats:
		return StatsResult{Stats: t.Stats.Store.Stats()}, nil
	default:
		return nil, fmt.Errorf("pool: unknown task kind %d", t.Kind)
	}
}

// SubmitBuildChains queues a bulk-insert task and returns its Future.
func SubmitBuildChains(p *Pool, priority int, payload BuildChainsPayload) (*Future[BuildChainsResult], error) {
	fut := newFuture[BuildChainsResult]()
	t := &Task{
		Kind:        KindBuildChains,
		Priority:    priority,
		BuildChains: &payload,
		resolve: func(v any, err error) {
			if err != nil {
				fut.resolve(BuildChainsResult{}, err)
				return
			}
			fut.resolve(v.(BuildChainsResult), nil)
		},
	}
	return fut, p.submit(t)
}

// SubmitGenerateResponse queues a generation task and returns its Future.
func SubmitGenerateResponse(p *Pool, priority int, payload GenerateResponsePayload) (*Future[GenerateResponseResult], error) {
	fut := newFuture[GenerateResponseResult]()
	t := &Task{
		Kind:             KindGenerateResponse,
		Priority:         priority,
		GenerateResponse: &payload,
		resolve: func(v any, err error) {
			if err != nil {
				fut.resolve(GenerateResponseResult{}, err)
				return
			}
			fut.resolve(v.(GenerateResponseResult), nil)
		},
	}
	return fut, p.submit(t)
}

// SubmitBatchUpdate queues an incremental-insert task and returns its Future.
func SubmitBatchUpdate(p *Pool, priority int, payload BatchUpdatePayload) (*Future[BatchUpdateResult], error) {
	fut := newFuture[BatchUpdateResult]()
	t := &Task{
		Kind:        KindBatchUpdate,
		Priority:    priority,
		BatchUpdate: &payload,
		resolve: func(v any, err error) {
			if err != nil {
				fut.resolve(BatchUpdateResult{}, err)
				return
			}
			fut.resolve(v.(BatchUpdateResult), nil)
		},
	}
	return fut, p.submit(t)
}

// SubmitStats queues a statistics task and returns its Future.
func SubmitStats(p *Pool, priority int, payload StatsPayload) (*Future[StatsResult], error) {
	fut := newFuture[StatsResult]()
	t := &Task{
		Kind:     KindStats,
		Priority: priority,
		Stats:    &payload,
		resolve: func(v any, err error) {
			if err != nil {
				fut.resolve(StatsResult{}, err)
				return
			}
			fut.resolve(v.(StatsResult), nil)
		},
	}
	return fut, p.submit(t)
}
