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

// Package archive moves discovered attachments from the message store
// into the object store, one at a time, isolating failures per
// attachment so the run always reaches the end of the set.
package archive

import (
	"context"
	"log/slog"
	"time"

	"invoicevault/internal/interpret"
	"invoicevault/internal/message"

	"github.com/pkg/errors"
)

// AttachmentSource fetches and transport-decodes raw attachment bytes
// from the message store.
type AttachmentSource interface {
	GetAttachment(ctx context.Context, owner message.ID, attachmentID string) ([]byte, error)
}

// ObjectPutter stores bytes under a flat key, overwriting any existing
// object.
type ObjectPutter interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Marker records a message as processed in the message store.  The
// remote call is idempotent; marking an already-marked message is a
// no-op.
type Marker interface {
	ApplyLabel(ctx context.Context, id message.ID, labelID string) error
}

// Outcome records the result of one archival attempt.
type Outcome struct {
	Attachment message.Attachment
	OK         bool
	Size       int64
	Key        string
	Err        error
}

// Worker archives attachments.  The zero value is unusable; populate
// Source and Objects at least.
type Worker struct {
	Source  AttachmentSource
	Objects ObjectPutter

	// Marker and ProcessedLabelID enable the processed mark after a
	// successful upload.  Leave Marker nil to skip marking.
	Marker           Marker
	ProcessedLabelID string

	// Delay paces consecutive archival attempts.  Cooldown is the
	// additional pause after a rate-limit-class failure.
	Delay    time.Duration
	Cooldown time.Duration

	// IsRateLimit classifies quota-class errors.  Optional.
	IsRateLimit func(error) bool

	// DryRun runs the fetch and key derivation but skips the upload
	// and the processed mark.
	DryRun bool
}

// Run archives each attachment in order, consulting lookup for the
// owning message's vendor and date.  Failures are recorded in the
// returned outcomes, never propagated; Run itself fails only when the
// context is canceled, and then the outcomes gathered so far are still
// returned.
func (w *Worker) Run(ctx context.Context, attachments []message.Attachment, lookup map[message.ID]interpret.Entry) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(attachments))
	for i, att := range attachments {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out := w.archive(ctx, att, lookup)
		outcomes = append(outcomes, out)

		if out.Err != nil && w.IsRateLimit != nil && w.IsRateLimit(out.Err) {
			slog.Warn("rate limit hit while archiving, cooling down",
				"attachment", att.AttachmentID, "cooldown", w.Cooldown)
			if err := sleep(ctx, w.Cooldown); err != nil {
				return outcomes, err
			}
		}
		if i < len(attachments)-1 {
			if err := sleep(ctx, w.Delay); err != nil {
				return outcomes, err
			}
		}
	}
	return outcomes, nil
}

func (w *Worker) archive(ctx context.Context, att message.Attachment, lookup map[message.ID]interpret.Entry) Outcome {
	out := Outcome{Attachment: att}

	entry, ok := lookup[att.Owner]
	if !ok {
		// Cannot happen when driven by the pipeline, which only
		// extracts from messages present in the lookup.
		out.Err = errors.Errorf("message %v missing from metadata lookup", att.Owner)
		slog.Error("skipping attachment without lookup entry", "attachment", att.AttachmentID, "owner", att.Owner)
		return out
	}

	data, err := w.Source.GetAttachment(ctx, att.Owner, att.AttachmentID)
	if err != nil {
		out.Err = errors.Wrapf(err, "fetching attachment %v", att.AttachmentID)
		slog.Error("attachment fetch failed", "attachment", att.AttachmentID, "owner", att.Owner, "err", err)
		return out
	}
	out.Size = int64(len(data))

	key, err := DeriveKey(att.Owner, att.AttachmentID, att.Filename, entry.Vendor, entry.Date)
	out.Key = key
	if err != nil {
		out.Err = err
		slog.Warn("skipping attachment of unknown file type", "filename", att.Filename, "key", key)
		return out
	}

	if w.DryRun {
		slog.Info("dry run, skipping upload", "key", key, "bytes", out.Size)
		out.OK = true
		return out
	}

	if err := w.Objects.Put(ctx, key, data); err != nil {
		out.Err = errors.Wrapf(err, "uploading %q", key)
		slog.Error("upload failed", "key", key, "err", err)
		return out
	}

	if w.Marker != nil {
		if err := w.Marker.ApplyLabel(ctx, att.Owner, w.ProcessedLabelID); err != nil {
			out.Err = errors.Wrapf(err, "marking message %v processed", att.Owner)
			slog.Error("processed mark failed", "owner", att.Owner, "err", err)
			return out
		}
	}

	out.OK = true
	slog.Info("archived attachment", "key", key, "bytes", out.Size, "owner", att.Owner)
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
