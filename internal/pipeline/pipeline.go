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

// Package pipeline sequences one harvesting run: candidate listing,
// metadata retrieval, vendor/date filtering, full-content retrieval,
// attachment extraction, and archival.  Each stage consumes only the
// previous stage's output; per-item failures are contained inside
// their stage and surface in the run summary.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"invoicevault/internal/archive"
	"invoicevault/internal/extract"
	"invoicevault/internal/fetch"
	"invoicevault/internal/interpret"
	"invoicevault/internal/message"
	"invoicevault/internal/query"

	"github.com/pkg/errors"
)

// failureSampleLimit bounds how many failing items the summary keeps
// for reporting.
const failureSampleLimit = 5

// Config are the knobs of one run.
type Config struct {
	// Query selects the discovery candidates.  The processed label
	// is excluded automatically.
	Query query.Spec

	// ProcessedLabel is the display name of the label applied to
	// fully archived messages.
	ProcessedLabel string

	// Chunk sizes and inter-chunk delays for the two fetch
	// granularities.  Metadata is cheap and batches larger; full
	// content batches smaller with a longer pause.
	MetadataBatchSize  int
	MetadataBatchDelay time.Duration
	FullBatchSize      int
	FullBatchDelay     time.Duration

	// ArchiveDelay paces individual archival attempts; Cooldown is
	// the extra pause after a rate-limit-class failure.
	ArchiveDelay time.Duration
	Cooldown     time.Duration

	// StrictList aborts the run when listing fails part way.  The
	// default keeps the identifiers gathered before the error,
	// since later stages tolerate missing items.
	StrictList bool

	// DryRun skips uploads and processed marks.
	DryRun bool
}

// Pipeline wires one run's collaborators together.
type Pipeline struct {
	Messages MessageStore
	Objects  ObjectStore

	// Vendors resolves label ids to vendor names for messages
	// without a sub-addressed destination.  Optional.
	Vendors interpret.VendorDirectory

	// IsRateLimit classifies quota-class errors from the message
	// store.  Optional.
	IsRateLimit func(error) bool

	Config Config
}

// Summary is the run-level report.
type Summary struct {
	// Listed candidates, and the listing error when a partial
	// listing was accepted.
	Listed  int
	ListErr error

	// Resolved counts candidates with both vendor and date.
	Resolved int

	// Attachments found in the surviving messages' trees.
	Attachments int

	// Archived and Failed partition the archival outcomes.
	Archived int
	Failed   int

	// Failures holds at most the first failureSampleLimit failing
	// outcomes for reporting.
	Failures []archive.Outcome
}

// Run executes the full pipeline once.  Only stage-level fatal errors
// (listing under StrictList, label bootstrap, context cancellation)
// are returned; everything else lands in the summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	cfg := p.Config
	summary := &Summary{}

	// The processed label marks messages archived by earlier runs;
	// exclude them at discovery and make sure the label exists
	// before archival needs it.
	q := cfg.Query
	var processedLabelID string
	if cfg.ProcessedLabel != "" {
		q.ExcludeLabels = append(q.ExcludeLabels, cfg.ProcessedLabel)
		if !cfg.DryRun {
			id, err := p.Messages.EnsureLabel(ctx, cfg.ProcessedLabel)
			if err != nil {
				return summary, errors.Wrap(err, "unable to ensure processed label")
			}
			processedLabelID = id
		}
	}

	// Stage 1: candidate discovery.
	ids, err := p.list(ctx, q.String())
	summary.Listed = len(ids)
	if err != nil {
		if cfg.StrictList {
			return summary, errors.Wrap(err, "listing failed")
		}
		slog.Warn("listing failed part way, continuing with partial candidate set",
			"gathered", len(ids), "err", err)
		summary.ListErr = err
	}
	slog.Info("listed candidates", "count", len(ids))
	if len(ids) == 0 {
		p.logSummary(summary)
		return summary, nil
	}

	// Stage 2: metadata at batch granularity.
	metadata, err := fetch.Batch(ctx, ids, p.Messages.GetMetadata, fetch.Options{
		BatchSize:   cfg.MetadataBatchSize,
		Delay:       cfg.MetadataBatchDelay,
		IsRateLimit: p.IsRateLimit,
	})
	if err != nil {
		return summary, errors.Wrap(err, "metadata fetch aborted")
	}

	// Stage 3: derive vendor and date; absence filters the message
	// out of everything downstream.
	lookup := make(map[message.ID]interpret.Entry)
	var surviving []message.ID
	for _, id := range ids {
		md, ok := metadata.Values[id]
		if !ok {
			continue
		}
		entry, ok := interpret.Metadata(md, p.Vendors)
		if !ok {
			continue
		}
		lookup[id] = entry
		surviving = append(surviving, id)
	}
	summary.Resolved = len(surviving)
	slog.Info("resolved metadata", "resolved", len(surviving),
		"fetchFailures", len(metadata.Errors),
		"excluded", len(metadata.Values)-len(surviving))
	if len(surviving) == 0 {
		p.logSummary(summary)
		return summary, nil
	}

	// Stage 4: full content, only for survivors.
	full, err := fetch.Batch(ctx, surviving, p.Messages.GetFull, fetch.Options{
		BatchSize:   cfg.FullBatchSize,
		Delay:       cfg.FullBatchDelay,
		IsRateLimit: p.IsRateLimit,
	})
	if err != nil {
		return summary, errors.Wrap(err, "full-content fetch aborted")
	}

	// Stage 5: walk part trees for accepted documents, preserving
	// the survivors' order.
	var attachments []message.Attachment
	for _, id := range surviving {
		msg, ok := full.Values[id]
		if !ok {
			continue
		}
		attachments = append(attachments, extract.Attachments(id, msg.Root)...)
	}
	summary.Attachments = len(attachments)
	slog.Info("extracted attachments", "count", len(attachments))

	// Stage 6: archive each attachment in isolation.
	var marker archive.Marker
	if processedLabelID != "" {
		marker = p.Messages
	}
	worker := &archive.Worker{
		Source:           p.Messages,
		Objects:          p.Objects,
		Marker:           marker,
		ProcessedLabelID: processedLabelID,
		Delay:            cfg.ArchiveDelay,
		Cooldown:         cfg.Cooldown,
		IsRateLimit:      p.IsRateLimit,
		DryRun:           cfg.DryRun,
	}
	outcomes, err := worker.Run(ctx, attachments, lookup)
	for _, out := range outcomes {
		if out.OK {
			summary.Archived++
			continue
		}
		summary.Failed++
		if len(summary.Failures) < failureSampleLimit {
			summary.Failures = append(summary.Failures, out)
		}
	}
	if err != nil {
		return summary, errors.Wrap(err, "archival aborted")
	}

	p.logSummary(summary)
	return summary, nil
}

// list gathers all candidate identifiers.  On a listing error the
// identifiers gathered so far are returned alongside it.
func (p *Pipeline) list(ctx context.Context, q string) ([]message.ID, error) {
	var ids []message.ID
	err := p.Messages.ListMessages(ctx, q, func(id message.ID) error {
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func (p *Pipeline) logSummary(s *Summary) {
	slog.Info("run complete",
		"listed", s.Listed,
		"resolved", s.Resolved,
		"attachments", s.Attachments,
		"archived", s.Archived,
		"failed", s.Failed)
	for _, out := range s.Failures {
		slog.Error("failed attachment",
			"filename", out.Attachment.Filename,
			"owner", out.Attachment.Owner,
			"err", out.Err)
	}
}
