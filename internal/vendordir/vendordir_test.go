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

package vendordir

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	_ "github.com/mattn/go-sqlite3"
)

func open(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "vendors.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Error(err)
		}
	})
	return db
}

func TestUpsertAndSnapshot(t *testing.T) {
	ctx := context.Background()
	db := open(t)

	if err := db.Upsert(ctx, "Label_1", "Acme", "added"); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if err := db.Upsert(ctx, "Label_2", "Globex", "added"); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	// Same label again: update in place, not a second row.
	if err := db.Upsert(ctx, "Label_1", "Acme Corp", "updated"); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	dir, err := db.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	want := Directory{"Label_1": "Acme Corp", "Label_2": "Globex"}
	if diff := cmp.Diff(want, dir); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	if v, ok := dir.VendorForLabel("Label_2"); !ok || v != "Globex" {
		t.Errorf("VendorForLabel(Label_2) = %q, %v; want Globex, true", v, ok)
	}
	if _, ok := dir.VendorForLabel("Label_9"); ok {
		t.Error("VendorForLabel(Label_9) resolved an unknown label")
	}
}

func TestVendorForLabelDirect(t *testing.T) {
	ctx := context.Background()
	db := open(t)

	if err := db.Upsert(ctx, "Label_1", "Acme", "added"); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	v, ok, err := db.VendorForLabel(ctx, "Label_1")
	if err != nil {
		t.Fatalf("VendorForLabel() error: %v", err)
	}
	if !ok || v != "Acme" {
		t.Errorf("VendorForLabel(Label_1) = %q, %v; want Acme, true", v, ok)
	}
	_, ok, err = db.VendorForLabel(ctx, "Label_9")
	if err != nil {
		t.Fatalf("VendorForLabel() error: %v", err)
	}
	if ok {
		t.Error("VendorForLabel(Label_9) resolved an unknown label")
	}
}

func TestChangesAppendOnly(t *testing.T) {
	ctx := context.Background()
	db := open(t)

	if err := db.Upsert(ctx, "Label_1", "Acme", "added"); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if err := db.Upsert(ctx, "Label_1", "Acme Corp", "updated"); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	changes, err := db.Changes(ctx)
	if err != nil {
		t.Fatalf("Changes() error: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d change entries, want 2", len(changes))
	}
	if changes[0].Action != "added" || changes[1].Action != "updated" {
		t.Errorf("change actions = %q, %q; want added, updated",
			changes[0].Action, changes[1].Action)
	}
	if changes[0].At.IsZero() || changes[1].At.Before(changes[0].At) {
		t.Errorf("change timestamps out of order: %v then %v", changes[0].At, changes[1].At)
	}
}
