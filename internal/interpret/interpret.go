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

// Package interpret derives a vendor identifier and a calendar date
// from one message's envelope headers.  A message that yields both
// becomes a lookup entry; a message that yields either but not both is
// silently excluded from the rest of the pipeline.  Exclusion is the
// filter mechanism, not an error.
package interpret

import (
	"log/slog"
	"net/mail"
	"strings"

	"invoicevault/internal/message"
)

// DateLayout is the calendar-date format carried through the pipeline
// and into archive keys (before separator replacement).
const DateLayout = "01/02/2006"

// labelIDPrefix marks user-created label identifiers, the only ones
// the vendor directory can resolve.
const labelIDPrefix = "Label_"

// Entry is the derived metadata for one message.
type Entry struct {
	Vendor string
	Date   string // MM/DD/YYYY
}

// VendorDirectory resolves a label identifier to a vendor name.  Used
// as the fallback when the destination address carries no sub-address.
type VendorDirectory interface {
	VendorForLabel(labelID string) (string, bool)
}

// Metadata derives the lookup entry for one message.  The second
// result reports whether both vendor and date were derived; when it is
// false the message is excluded downstream.
//
// Vendor precedence: the delivered-to header, falling back to to; the
// address's local part after its first "+" (sub-addressing); then a
// best-effort lookup of the message's user labels in dir.
func Metadata(md *message.Metadata, dir VendorDirectory) (Entry, bool) {
	vendor := vendorFromHeaders(md)
	if vendor == "" {
		vendor = vendorFromLabels(md, dir)
	}
	date := dateFromHeaders(md)

	if vendor == "" || date == "" {
		slog.Debug("excluding message with incomplete metadata",
			"id", md.ID, "vendor", vendor, "date", date)
		return Entry{}, false
	}
	return Entry{Vendor: vendor, Date: date}, true
}

func vendorFromHeaders(md *message.Metadata) string {
	raw, ok := md.Header("delivered-to")
	if !ok {
		raw, ok = md.Header("to")
	}
	if !ok || raw == "" {
		slog.Debug("message has no delivered-to or to header", "id", md.ID)
		return ""
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		slog.Debug("unparseable destination address", "id", md.ID, "addr", raw, "err", err)
		return ""
	}
	local, _, found := strings.Cut(addr.Address, "@")
	if !found {
		return ""
	}
	_, sub, found := strings.Cut(local, "+")
	if !found {
		return ""
	}
	return sub
}

// vendorFromLabels resolves the first user label the directory knows.
// Best effort: an unknown or absent label simply yields no vendor.
func vendorFromLabels(md *message.Metadata, dir VendorDirectory) string {
	if dir == nil {
		return ""
	}
	for _, id := range md.LabelIDs {
		if !strings.HasPrefix(id, labelIDPrefix) {
			continue
		}
		if vendor, ok := dir.VendorForLabel(id); ok {
			return vendor
		}
	}
	return ""
}

func dateFromHeaders(md *message.Metadata) string {
	raw, ok := md.Header("date")
	if !ok || raw == "" {
		return ""
	}
	t, err := mail.ParseDate(raw)
	if err != nil {
		slog.Debug("unparseable date header", "id", md.ID, "date", raw, "err", err)
		return ""
	}
	return t.Format(DateLayout)
}
