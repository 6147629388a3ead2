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

// Package extract collects document attachments from a message's
// content-part tree.
package extract

import (
	"path"
	"strings"

	"invoicevault/internal/message"
)

// acceptedExtensions is the document-type allowlist, matched
// case-insensitively against the declared filename.
var acceptedExtensions = map[string]bool{
	".csv": true,
	".pdf": true,
}

// Accepted reports whether the filename's extension is in the
// document allowlist.
func Accepted(filename string) bool {
	return acceptedExtensions[strings.ToLower(path.Ext(filename))]
}

// Attachments walks the whole part tree under root and returns one
// record per accepted document part.  A part qualifies when it carries
// both a declared filename and an attachment identifier and the
// filename's extension is accepted; anything else is skipped without
// error.  Multipart messages nest, so the walk recurses to the leaves
// rather than stopping at a fixed depth.
func Attachments(owner message.ID, root *message.Part) []message.Attachment {
	if root == nil {
		return nil
	}
	var found []message.Attachment
	// The root part itself describes the message body, never an
	// attachment; start at its children.
	for _, part := range root.Parts {
		walk(owner, part, &found)
	}
	return found
}

func walk(owner message.ID, part *message.Part, found *[]message.Attachment) {
	if part == nil {
		return
	}
	if part.AttachmentID != "" && part.Filename != "" && Accepted(part.Filename) {
		*found = append(*found, message.Attachment{
			AttachmentID: part.AttachmentID,
			Owner:        owner,
			Filename:     part.Filename,
		})
	}
	for _, child := range part.Parts {
		walk(owner, child, found)
	}
}
