// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fetch retrieves per-message payloads for a list of message
// identifiers in fixed-size chunks.  Each chunk is dispatched as one
// blocking fan-out; a failure on one identifier never prevents the
// rest of its chunk from succeeding.  The merged result maps only
// identifiers that succeeded, so identifiers missing from it drop out
// of later pipeline stages as if they were never listed.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"invoicevault/internal/message"

	"golang.org/x/sync/errgroup"
)

// Func retrieves the payload for a single message identifier.
type Func[T any] func(ctx context.Context, id message.ID) (T, error)

// Options control chunking and pacing.
type Options struct {
	// BatchSize is the maximum number of identifiers per chunk.
	// Values below one are treated as one.
	BatchSize int

	// Delay is the advisory pause between chunks.  No pause
	// follows the final chunk.
	Delay time.Duration

	// IsRateLimit classifies quota-class errors so they are logged
	// distinctly.  Optional; nil disables the distinction.
	IsRateLimit func(error) bool
}

// Result is the merged outcome of one batched fetch.  Values holds the
// payloads for identifiers that succeeded; Errors holds the per-id
// failures.  The two key sets are disjoint subsets of the input ids.
type Result[T any] struct {
	Values map[message.ID]T
	Errors map[message.ID]error
}

type slot[T any] struct {
	value T
	err   error
}

// Batch fetches all ids in contiguous chunks of at most
// opts.BatchSize.  Per-id errors are recorded, not propagated; Batch
// itself fails only when the context is canceled.
func Batch[T any](ctx context.Context, ids []message.ID, get Func[T], opts Options) (*Result[T], error) {
	res := &Result[T]{
		Values: make(map[message.ID]T, len(ids)),
		Errors: make(map[message.ID]error),
	}
	if len(ids) == 0 {
		return res, nil
	}

	size := opts.BatchSize
	if size < 1 {
		size = 1
	}
	chunks := (len(ids) + size - 1) / size
	slog.Debug("batch fetch starting", "ids", len(ids), "chunks", chunks, "batchSize", size)

	for n := 0; n < chunks; n++ {
		lo := n * size
		hi := min(lo+size, len(ids))
		if err := dispatch(ctx, ids[lo:hi], get, opts, res); err != nil {
			return res, err
		}
		if n < chunks-1 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return res, err
			}
		}
	}

	slog.Debug("batch fetch complete", "succeeded", len(res.Values), "failed", len(res.Errors))
	return res, nil
}

// dispatch issues one chunk's fan-out and merges the outcomes.  Each
// goroutine writes only its own slot; the merge into the shared maps
// happens after Wait, on the caller's goroutine.
func dispatch[T any](ctx context.Context, chunk []message.ID, get Func[T], opts Options, res *Result[T]) error {
	slots := make([]slot[T], len(chunk))
	grp, gctx := errgroup.WithContext(ctx)
	for i, id := range chunk {
		grp.Go(func() error {
			slots[i].value, slots[i].err = get(gctx, id)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, id := range chunk {
		if err := slots[i].err; err != nil {
			res.Errors[id] = err
			if opts.IsRateLimit != nil && opts.IsRateLimit(err) {
				slog.Warn("rate limit hit during batch fetch", "id", id, "err", err)
			} else {
				slog.Error("batch fetch failed for message", "id", id, "err", err)
			}
			continue
		}
		res.Values[id] = slots[i].value
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
