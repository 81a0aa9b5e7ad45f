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

package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"markov/chain"
	"markov/pool"
)

const (
	defaultBatchSize          = 2000
	defaultMemoryCeilingBytes = 1 << 30 // 1 GiB
	defaultPollInterval       = 250 * time.Millisecond
	defaultLogProgressEvery   = 50 // batches
)

// BatcherConfig configures a Batcher. Zero values fall back to the
// defaults noted per field.
type BatcherConfig struct {
	StateSize int // required, no default

	// BatchSize is the number of (prefix, suffix) records accumulated
	// before a batch is submitted to the pool. Default 2000.
	BatchSize int

	// MemoryCeilingBytes is the soft ceiling on process resident memory;
	// exceeding it pauses for one PollInterval between batches. Zero
	// disables the check. Default 1 GiB.
	MemoryCeilingBytes int64

	// PollInterval is both the memory-check cadence and the backoff
	// duration when over the ceiling. Default 250ms.
	PollInterval time.Duration

	// LogProgressEvery logs a progress line every N submitted batches.
	// Zero disables progress logging. Default 50.
	LogProgressEvery int

	// ClearExisting, when true, makes Run a from-scratch import: the first
	// submitted batch clears the store before inserting, and every batch of
	// the run is submitted as a build-chains task rather than batch-update,
	// so pool metrics and logs distinguish the two. Default false
	// (incremental training, batch-update tasks throughout).
	ClearExisting bool

	Logger *slog.Logger
}

func (c BatcherConfig) withDefaults() BatcherConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MemoryCeilingBytes == 0 {
		c.MemoryCeilingBytes = defaultMemoryCeilingBytes
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LogProgressEvery == 0 {
		c.LogProgressEvery = defaultLogProgressEvery
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Batcher is the TrainBatcher: it streams Records from a Source, tokenizes
// each message, slides a stateSize+1 window over the tokens, and submits
// accumulated batches to the pool as batch-update (or, for a from-scratch
// import, build-chains) tasks at normal priority.
type Batcher struct {
	cfg  BatcherConfig
	pool *pool.Pool
}

// NewBatcher builds a Batcher that submits work to p.
func NewBatcher(p *pool.Pool, cfg BatcherConfig) *Batcher {
	return &Batcher{cfg: cfg.withDefaults(), pool: p}
}

// RunResult summarizes one Run call.
type RunResult struct {
	RecordsConsumed  int
	BatchesSubmitted int
	TokensSeen       int
}

// Run consumes src to exhaustion (io.EOF), submitting each full batch to
// the pool and waiting for it before accumulating the next. Waiting on
// each batch keeps writes to store in submission order for a single
// batcher instance.
func (b *Batcher) Run(ctx context.Context, store *chain.Store, src Source) (RunResult, error) {
	var result RunResult
	var pending []chain.Record
	clearPending := b.cfg.ClearExisting

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batch := pending
		pending = nil

		var errs []error
		// PriorityNormal, not the priority-2 the serial-application path
		// calls for elsewhere: Run waits on fut before flush is called
		// again, so at most one batch is ever in flight per tenant.
		if b.cfg.ClearExisting {
			fut, err := pool.SubmitBuildChains(b.pool, pool.PriorityNormal, pool.BuildChainsPayload{
				Store:         store,
				Records:       batch,
				ClearExisting: clearPending,
			})
			if err != nil {
				return fmt.Errorf("train: submit batch: %w", err)
			}
			clearPending = false
			res, err := fut.Wait()
			if err != nil {
				return fmt.Errorf("train: batch failed: %w", err)
			}
			errs = res.Errors
		} else {
			fut, err := pool.SubmitBatchUpdate(b.pool, pool.PriorityNormal, pool.BatchUpdatePayload{
				Store:   store,
				Records: batch,
			})
			if err != nil {
				return fmt.Errorf("train: submit batch: %w", err)
			}
			res, err := fut.Wait()
			if err != nil {
				return fmt.Errorf("train: batch failed: %w", err)
			}
			errs = res.Errors
		}
		result.BatchesSubmitted++
		if len(errs) > 0 {
			b.cfg.Logger.Warn("train: batch had per-record errors",
				"batch", result.BatchesSubmitted, "errors", len(errs))
		}

		if result.BatchesSubmitted%b.cfg.LogProgressEvery == 0 {
			b.cfg.Logger.Info("train: progress",
				"records", result.RecordsConsumed,
				"batches", result.BatchesSubmitted,
				"tokens", result.TokensSeen)
		}

		b.pauseIfOverMemoryCeiling()
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			_ = flush()
			return result, err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("train: read source: %w", err)
		}
		result.RecordsConsumed++

		tokens := chain.Tokenize(rec.Message)
		result.TokensSeen += len(tokens)

		for _, w := range chain.Windows(tokens, b.cfg.StateSize) {
			pending = append(pending, chain.Record{Prefix: w.Prefix, Suffix: w.Suffix, Weight: 1})
			if len(pending) >= b.cfg.BatchSize {
				if err := flush(); err != nil {
					return result, err
				}
			}
		}
		if len(tokens) >= b.cfg.StateSize {
			tail := append([]string(nil), tokens[len(tokens)-b.cfg.StateSize:]...)
			pending = append(pending, chain.Record{Prefix: tail, Suffix: chain.EndOfLine, Weight: 1})
		}
	}

	if err := flush(); err != nil {
		return result, err
	}
	return result, nil
}

func (b *Batcher) pauseIfOverMemoryCeiling() {
	if b.cfg.MemoryCeilingBytes <= 0 {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if int64(ms.Alloc) <= b.cfg.MemoryCeilingBytes {
		return
	}
	b.cfg.Logger.Warn("train: resident memory over ceiling, pausing before next batch",
		"alloc_bytes", ms.Alloc, "ceiling_bytes", b.cfg.MemoryCeilingBytes)
	time.Sleep(b.cfg.PollInterval)
}
