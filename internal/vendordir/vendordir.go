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

// Package vendordir maintains the label-id to vendor-name directory
// the metadata interpreter falls back to, plus an append-only log of
// every change made to it.
package vendordir

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	createTableSql = []string{
		// The vendors table maps a message-store label ID to the
		// vendor name archives are filed under.
		//
		// Field: label_id
		//
		//   The label's permanent identifier in the message
		//   store (not the user visible name).
		//
		// Field: vendor_name
		//
		//   The name used in archive keys.  Updated in place
		//   when a vendor is renamed; history lives in
		//   vendor_changes.
		`
CREATE TABLE IF NOT EXISTS vendors (
label_id TEXT NOT NULL PRIMARY KEY,
vendor_name TEXT NOT NULL
);`,
		// The vendor_changes table is the append-only change log.
		// Rows are never updated or deleted.
		`
CREATE TABLE IF NOT EXISTS vendor_changes (
seq INTEGER PRIMARY KEY AUTOINCREMENT,
changed_at TEXT NOT NULL,
vendor_name TEXT NOT NULL,
label_id TEXT NOT NULL,
action TEXT NOT NULL
);`,
	}
)

// DB is an open vendor directory.
type DB struct {
	db *sql.DB
}

// Change is one entry of the append-only change log.
type Change struct {
	At     time.Time
	Vendor string
	Label  string
	Action string
}

// Directory is an immutable in-memory snapshot of the mapping,
// suitable for handing to the metadata interpreter.
type Directory map[string]string

// VendorForLabel resolves a label identifier to a vendor name.
func (d Directory) VendorForLabel(labelID string) (string, bool) {
	v, ok := d[labelID]
	return v, ok
}

func dsnFromPath(path string, addValues url.Values) (string, error) {
	var u *url.URL
	if !strings.HasPrefix(path, "file:") {
		u = &url.URL{Scheme: "file", Path: path}
	} else {
		var err error
		u, err = url.Parse(path)
		if err != nil {
			return "", err
		}
	}
	values := u.Query()
	for k, v := range addValues {
		for _, item := range v {
			values.Add(k, item)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func Open(ctx context.Context, path string) (*DB, error) {
	// The _busy_timeout is a SQLite extension that controls how
	// long SQLite will poll before giving up.  The default of 5
	// seconds is too short in practice; go with 5 minutes.
	var busyTimeout = int(5*time.Minute) / int(time.Millisecond)

	dsn, err := dsnFromPath(path, url.Values{
		"_busy_timeout": {fmt.Sprintf("%d", busyTimeout)}})
	if err != nil {
		return nil, errors.Wrapf(err,
			"Open(%q) failed: could not form a DB DSN from the given path", path)
	}
	slog.Debug("opening vendor directory", "dsn", dsn)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err,
			"Open(%q) failed: could not open database at %q", path, dsn)
	}

	if err = initSchema(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrapf(err,
			"Open(%q) failed: could not initialize the database schema", path)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	for _, sql := range createTableSql {
		if _, err := db.ExecContext(ctx, sql); err != nil {
			return errors.Wrapf(err, "while executing %q", sql)
		}
	}
	return nil
}

// Upsert records a label-id to vendor-name pair and appends the change
// to the log, in one transaction.  Action names what happened, e.g.
// "added" or "updated".
func (db *DB) Upsert(ctx context.Context, labelID, vendor, action string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction failed")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO vendors (label_id, vendor_name)
		VALUES ($1, $2)
		ON CONFLICT (label_id) DO UPDATE SET vendor_name = $2`,
		labelID, vendor)
	if err != nil {
		return errors.Wrapf(err, "upsert failed for label %q", labelID)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO vendor_changes
		(changed_at, vendor_name, label_id, action)
		VALUES ($1, $2, $3, $4)`,
		time.Now().UTC().Format(time.RFC3339), vendor, labelID, action)
	if err != nil {
		return errors.Wrapf(err, "change log append failed for label %q", labelID)
	}

	return tx.Commit()
}

// VendorForLabel resolves one label identifier directly against the
// database.
func (db *DB) VendorForLabel(ctx context.Context, labelID string) (string, bool, error) {
	var vendor string
	err := db.db.QueryRowContext(ctx,
		`SELECT vendor_name FROM vendors WHERE label_id = $1`, labelID).Scan(&vendor)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "lookup failed for label %q", labelID)
	}
	return vendor, true, nil
}

// Snapshot loads the whole mapping.  The pipeline takes one snapshot
// per run rather than querying per message.
func (db *DB) Snapshot(ctx context.Context) (Directory, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT label_id, vendor_name FROM vendors`)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load vendor directory")
	}
	defer rows.Close()

	dir := make(Directory)
	for rows.Next() {
		var label, vendor string
		if err := rows.Scan(&label, &vendor); err != nil {
			return nil, errors.Wrap(err, "unable to scan vendor row")
		}
		dir[label] = vendor
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to load vendor directory")
	}
	return dir, nil
}

// Changes returns the change log, oldest first.
func (db *DB) Changes(ctx context.Context) ([]Change, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT changed_at, vendor_name, label_id, action FROM vendor_changes ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load change log")
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var at string
		var c Change
		if err := rows.Scan(&at, &c.Vendor, &c.Label, &c.Action); err != nil {
			return nil, errors.Wrap(err, "unable to scan change row")
		}
		c.At, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, errors.Wrapf(err, "bad timestamp %q in change log", at)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to load change log")
	}
	return changes, nil
}
