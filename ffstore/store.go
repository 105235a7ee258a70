/*
 * store.go, part of gotop.
 *
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston,
 * MA 02110-1301, USA.
 */

// Package ffstore keeps a library of force fields in a SQLite database.
// Force fields are stored as the XML documents forcefield.WriteXML
// produces, keyed by their name.
package ffstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/forcefield"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS forcefields (
	name             TEXT PRIMARY KEY,
	version          TEXT NOT NULL,
	atom_types       INTEGER NOT NULL,
	connection_types INTEGER NOT NULL,
	updated          INTEGER NOT NULL,
	document         BLOB NOT NULL
)`

// Entry summarizes a stored force field.
type Entry struct {
	Name            string
	Version         string
	AtomTypes       int
	ConnectionTypes int
	Updated         time.Time
}

// Store is a force field library backed by a SQLite file.
// It is safe for concurrent use.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// Open opens, creating it if needed, the library in the file path.
// ":memory:" gives a library that lives as long as the Store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, &top.ConfigError{Msg: "ffstore: a database path is required"}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ffstore: opening %s: %w", path, err)
	}
	if path == ":memory:" {
		//every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ffstore: opening %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ffstore: creating tables: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

// Path returns the database file of the library.
func (S *Store) Path() string {
	return S.path
}

// Close closes the database. Closing twice is not an error.
func (S *Store) Close() error {
	S.mu.Lock()
	defer S.mu.Unlock()
	if S.db == nil {
		return nil
	}
	err := S.db.Close()
	S.db = nil
	return err
}

func (S *Store) getDB() (*sql.DB, error) {
	S.mu.RLock()
	defer S.mu.RUnlock()
	if S.db == nil {
		return nil, errors.New("ffstore: store is closed")
	}
	return S.db, nil
}

func count(F *forcefield.ForceField) int {
	return len(F.BondTypes) + len(F.AngleTypes) + len(F.DihedralTypes) + len(F.ImproperTypes)
}

// Put stores F under its name, replacing any force field with the same name.
func (S *Store) Put(ctx context.Context, F *forcefield.ForceField) error {
	db, err := S.getDB()
	if err != nil {
		return err
	}
	var b bytes.Buffer
	if err := F.WriteXML(&b); err != nil {
		return fmt.Errorf("ffstore: encoding %s: %w", F.Name, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO forcefields (name, version, atom_types, connection_types, updated, document)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			atom_types = excluded.atom_types,
			connection_types = excluded.connection_types,
			updated = excluded.updated,
			document = excluded.document
	`, F.Name, F.Version, len(F.AtomTypes), count(F), time.Now().UnixNano(), b.Bytes())
	if err != nil {
		return fmt.Errorf("ffstore: storing %s: %w", F.Name, err)
	}
	top.Logger().Debug("force field stored", zap.String("name", F.Name), zap.String("db", S.path), zap.Int("bytes", b.Len()))
	return nil
}

// Get returns the force field stored under name. The second return value
// is false, with a nil error, if there is no such force field.
func (S *Store) Get(ctx context.Context, name string) (*forcefield.ForceField, bool, error) {
	db, err := S.getDB()
	if err != nil {
		return nil, false, err
	}
	var doc []byte
	err = db.QueryRowContext(ctx, `SELECT document FROM forcefields WHERE name = ?`, name).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ffstore: reading %s: %w", name, err)
	}
	//stored documents were written by us, types with no matching atom type
	//are allowed, as they were when the force field was put.
	opts := forcefield.DefaultLoadOptions()
	opts.Validation.Strict = false
	F, err := forcefield.Load(bytes.NewReader(doc), opts)
	if err != nil {
		return nil, false, fmt.Errorf("ffstore: decoding %s: %w", name, err)
	}
	return F, true, nil
}

// List returns a summary of every stored force field, sorted by name.
func (S *Store) List(ctx context.Context) ([]Entry, error) {
	db, err := S.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT name, version, atom_types, connection_types, updated
		FROM forcefields ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ffstore: listing: %w", err)
	}
	defer rows.Close()
	var ret []Entry
	for rows.Next() {
		var e Entry
		var updated int64
		if err := rows.Scan(&e.Name, &e.Version, &e.AtomTypes, &e.ConnectionTypes, &updated); err != nil {
			return nil, fmt.Errorf("ffstore: listing: %w", err)
		}
		e.Updated = time.Unix(0, updated)
		ret = append(ret, e)
	}
	return ret, rows.Err()
}

// Delete removes the force field stored under name. It returns false
// if there was nothing to remove.
func (S *Store) Delete(ctx context.Context, name string) (bool, error) {
	db, err := S.getDB()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM forcefields WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("ffstore: deleting %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		top.Logger().Debug("force field deleted", zap.String("name", name), zap.String("db", S.path))
	}
	return n > 0, nil
}
