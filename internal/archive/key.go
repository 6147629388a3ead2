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

package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"invoicevault/internal/extract"
	"invoicevault/internal/message"

	"github.com/pkg/errors"
)

// ErrUnknownFileType reports a filename whose extension is outside the
// accepted document set.  DeriveKey still returns a usable key with
// it; the caller decides whether to archive anyway.
var ErrUnknownFileType = errors.New("unknown file type")

// DeriveKey produces the storage key for one attachment:
//
//	vendor_MM-DD-YYYY_stem_hhhh.ext
//
// where hhhh is the first four hex characters of
// sha256(owner + "_" + attachmentID).  The key is deterministic, so
// reprocessing the same attachment overwrites the stored object
// instead of duplicating it.  Object-store keys are flat strings in
// which "/" acts as a prefix separator, so the date's separators are
// replaced before use.
func DeriveKey(owner message.ID, attachmentID, filename, vendor, date string) (string, error) {
	digest := sha256.Sum256([]byte(string(owner) + "_" + attachmentID))
	suffix := hex.EncodeToString(digest[:2])

	date = strings.ReplaceAll(date, "/", "-")
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	key := vendor + "_" + date + "_" + stem + "_" + suffix + ext
	if !extract.Accepted(filename) {
		return key, errors.Wrapf(ErrUnknownFileType, "deriving key for %q", filename)
	}
	return key, nil
}
