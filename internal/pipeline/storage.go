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

package pipeline

// This file defines the narrow views of the two external collaborators
// the pipeline depends on.  The gmail and objstore packages satisfy
// them; tests substitute in-memory fakes.

import (
	"context"

	"invoicevault/internal/message"
)

// MessageLister lists candidate message identifiers matching a search
// expression.
type MessageLister interface {
	ListMessages(ctx context.Context, q string, handler func(message.ID) error) error
}

// MessageGetter fetches one message at either granularity.
type MessageGetter interface {
	GetMetadata(ctx context.Context, id message.ID) (*message.Metadata, error)
	GetFull(ctx context.Context, id message.ID) (*message.Full, error)
}

// AttachmentGetter fetches raw attachment bytes.
type AttachmentGetter interface {
	GetAttachment(ctx context.Context, owner message.ID, attachmentID string) ([]byte, error)
}

// LabelManager maintains the processed marker label.
type LabelManager interface {
	EnsureLabel(ctx context.Context, name string) (string, error)
	ApplyLabel(ctx context.Context, id message.ID, labelID string) error
}

// MessageStore provides all actions the pipeline needs from the remote
// message store.
type MessageStore interface {
	MessageLister
	MessageGetter
	AttachmentGetter
	LabelManager
}

// ObjectStore is the durable archive.  Keys are flat strings; Put
// overwrites.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
