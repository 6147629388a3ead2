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

package extract

import (
	"testing"

	"invoicevault/internal/message"

	"github.com/google/go-cmp/cmp"
)

func TestAttachments(t *testing.T) {
	root := &message.Part{
		MIMEType: "multipart/mixed",
		Parts: []*message.Part{
			{MIMEType: "text/plain"},
			{AttachmentID: "att-1", Filename: "invoice.pdf", MIMEType: "application/pdf"},
			{AttachmentID: "att-2", Filename: "report.txt", MIMEType: "text/plain"},
			{AttachmentID: "att-3", Filename: "report.PDF", MIMEType: "application/pdf"},
			{
				MIMEType: "multipart/alternative",
				Parts: []*message.Part{
					{AttachmentID: "att-4", Filename: "report.csv", MIMEType: "text/csv"},
					{
						MIMEType: "multipart/related",
						Parts: []*message.Part{
							// Three levels down; the walk must not stop at two.
							{AttachmentID: "att-5", Filename: "deep.csv", MIMEType: "text/csv"},
						},
					},
				},
			},
			// Missing filename and missing attachment id are both skipped.
			{AttachmentID: "att-6", MIMEType: "application/pdf"},
			{Filename: "orphan.pdf", MIMEType: "application/pdf"},
		},
	}

	got := Attachments("m1", root)
	want := []message.Attachment{
		{AttachmentID: "att-1", Owner: "m1", Filename: "invoice.pdf"},
		{AttachmentID: "att-3", Owner: "m1", Filename: "report.PDF"},
		{AttachmentID: "att-4", Owner: "m1", Filename: "report.csv"},
		{AttachmentID: "att-5", Owner: "m1", Filename: "deep.csv"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Attachments() mismatch (-want +got):\n%s", diff)
	}
}

func TestAttachmentsNilRoot(t *testing.T) {
	if got := Attachments("m1", nil); got != nil {
		t.Errorf("Attachments(nil) = %v, want nil", got)
	}
}

func TestAttachmentsNoParts(t *testing.T) {
	root := &message.Part{MIMEType: "text/plain"}
	if got := Attachments("m1", root); len(got) != 0 {
		t.Errorf("Attachments() = %v, want empty", got)
	}
}

func TestAccepted(t *testing.T) {
	cases := []struct {
		filename string
		want     bool
	}{
		{"invoice.pdf", true},
		{"report.PDF", true},
		{"report.csv", true},
		{"report.CSV", true},
		{"report.txt", false},
		{"archive.pdf.gz", false},
		{"noextension", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Accepted(tc.filename); got != tc.want {
			t.Errorf("Accepted(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
}
