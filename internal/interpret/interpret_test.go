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

package interpret

import (
	"testing"

	"invoicevault/internal/message"
)

type mapDirectory map[string]string

func (d mapDirectory) VendorForLabel(labelID string) (string, bool) {
	v, ok := d[labelID]
	return v, ok
}

const rfcDate = "Tue, 14 Jan 2025 09:30:00 -0500"

func meta(headers map[string]string, labels ...string) *message.Metadata {
	return &message.Metadata{ID: "m1", Headers: headers, LabelIDs: labels}
}

func TestMetadata(t *testing.T) {
	dir := mapDirectory{"Label_42": "Megagoods"}

	cases := []struct {
		name string
		md   *message.Metadata
		want Entry
		ok   bool
	}{
		{
			name: "subaddress in delivered-to",
			md: meta(map[string]string{
				"delivered-to": "invoices+Acme@example.com",
				"date":         rfcDate,
			}),
			want: Entry{Vendor: "Acme", Date: "01/14/2025"},
			ok:   true,
		},
		{
			name: "falls back to to header",
			md: meta(map[string]string{
				"to":   "invoices+Acme@example.com",
				"date": rfcDate,
			}),
			want: Entry{Vendor: "Acme", Date: "01/14/2025"},
			ok:   true,
		},
		{
			name: "delivered-to wins over to",
			md: meta(map[string]string{
				"delivered-to": "invoices+First@example.com",
				"to":           "invoices+Second@example.com",
				"date":         rfcDate,
			}),
			want: Entry{Vendor: "First", Date: "01/14/2025"},
			ok:   true,
		},
		{
			name: "display name discarded",
			md: meta(map[string]string{
				"to":   `"Invoice Desk" <invoices+Acme@example.com>`,
				"date": rfcDate,
			}),
			want: Entry{Vendor: "Acme", Date: "01/14/2025"},
			ok:   true,
		},
		{
			name: "no plus falls back to label directory",
			md: meta(map[string]string{
				"to":   "invoices@example.com",
				"date": rfcDate,
			}, "INBOX", "Label_42"),
			want: Entry{Vendor: "Megagoods", Date: "01/14/2025"},
			ok:   true,
		},
		{
			name: "no plus and no resolvable label excludes",
			md: meta(map[string]string{
				"to":   "invoices@example.com",
				"date": rfcDate,
			}, "INBOX", "Label_99"),
			ok: false,
		},
		{
			name: "missing date excludes",
			md: meta(map[string]string{
				"to": "invoices+Acme@example.com",
			}),
			ok: false,
		},
		{
			name: "unparseable date excludes",
			md: meta(map[string]string{
				"to":   "invoices+Acme@example.com",
				"date": "yesterday-ish",
			}),
			ok: false,
		},
		{
			name: "missing destination excludes",
			md: meta(map[string]string{
				"date": rfcDate,
			}),
			ok: false,
		},
		{
			name: "unparseable address falls back to label",
			md: meta(map[string]string{
				"to":   "not an address",
				"date": rfcDate,
			}, "Label_42"),
			want: Entry{Vendor: "Megagoods", Date: "01/14/2025"},
			ok:   true,
		},
	}

	for _, tc := range cases {
		got, ok := Metadata(tc.md, dir)
		if ok != tc.ok {
			t.Errorf("%s: Metadata() ok = %v, want %v", tc.name, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("%s: Metadata() = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestMetadataNilDirectory(t *testing.T) {
	md := meta(map[string]string{
		"to":   "invoices@example.com",
		"date": rfcDate,
	}, "Label_42")
	if _, ok := Metadata(md, nil); ok {
		t.Error("Metadata() with nil directory produced an entry from labels")
	}
}
