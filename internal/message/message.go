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

package message

import "strings"

// This file provides the common data objects used by the rest of the
// program.  All of them are scoped to a single pipeline run; nothing
// here is persisted.

// ID is the permanent and unique identifier of a message in the
// remote message store.
type ID string

// Metadata holds the envelope information for one message, as
// returned by a metadata-granularity fetch.
type Metadata struct {
	// The message's permanent unique identifier.
	ID ID

	// Envelope headers, keyed by lower-cased header name.  Only
	// the headers requested at fetch time are present.
	Headers map[string]string

	// The current set of label identifiers associated with the
	// message.  These identifiers are not the user visible label
	// names!
	LabelIDs []string
}

// Header returns the named header value.  Lookup is case-insensitive
// because keys are lower-cased at construction; callers may pass any
// casing.  The second result reports whether the header is present.
func (m *Metadata) Header(name string) (string, bool) {
	v, ok := m.Headers[strings.ToLower(name)]
	return v, ok
}

// Part is one node of a message's content-part tree.  Multipart
// messages nest; the tree can be two or more levels deep and must be
// walked to the leaves.
type Part struct {
	// AttachmentID is the opaque identifier used to fetch this
	// part's raw bytes.  Empty for parts whose body is inline.
	AttachmentID string

	// Filename declared by the sender.  Empty for non-attachment
	// parts.
	Filename string

	// MIMEType as declared, e.g. "multipart/mixed" or
	// "application/pdf".
	MIMEType string

	// Nested child parts, zero or more.
	Parts []*Part
}

// Full is a message's complete content-part tree.
type Full struct {
	ID   ID
	Root *Part
}

// Attachment identifies one accepted document part discovered during
// extraction.  AttachmentID is the join key used by the archival
// worker; Owner names the message the part was found in.
type Attachment struct {
	AttachmentID string
	Owner        ID
	Filename     string
}
