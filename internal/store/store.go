// Package store keeps extracted text in an SQLite database. Each script is a
// sheet of lines, similar to a spreadsheet shared by translators.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"vnpatch/internal/retry"
	"vnpatch/internal/script"
)

// Collection is an SQLite-backed set of text sheets.
type Collection struct {
	db      *sql.DB
	path    string
	created bool
	policy  retry.Policy
}

// Open opens or creates the database at path.
func Open(path string, policy retry.Policy) (*Collection, error) {
	_, statErr := os.Stat(path)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &Collection{db: db, path: path, created: os.IsNotExist(statErr), policy: policy}
	if err := c.do("init schema", func() error { return initSchema(db) }); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS scripts (
		name TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS lines (
		script TEXT NOT NULL REFERENCES scripts(name) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		field_offset INTEGER NOT NULL,
		kind TEXT NOT NULL,
		original TEXT NOT NULL,
		translation TEXT NOT NULL DEFAULT '',
		checked INTEGER NOT NULL DEFAULT 0,
		edited INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (script, seq)
	);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("store: init schema: %w", classify(err))
	}
	return nil
}

func (c *Collection) Name() string { return c.path }

func (c *Collection) Scripts() ([]string, error) {
	var names []string
	err := c.do("list scripts", func() error {
		names = names[:0]
		rows, err := c.db.Query("SELECT name FROM scripts ORDER BY name")
		if err != nil {
			return fmt.Errorf("store: query scripts: %w", classify(err))
		}
		defer rows.Close()
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return fmt.Errorf("store: scan: %w", classify(err))
			}
			names = append(names, n)
		}
		return classify(rows.Err())
	})
	return names, err
}

func (c *Collection) Exists(name string) (bool, error) {
	var n int
	err := c.do("exists", func() error {
		err := c.db.QueryRow("SELECT COUNT(*) FROM scripts WHERE name = ?", name).Scan(&n)
		return classify(err)
	})
	return n > 0, err
}

// Add creates an empty sheet, clearing an existing one.
func (c *Collection) Add(name string) error {
	return c.do("add "+name, func() error {
		return c.tx(func(tx *sql.Tx) error {
			return resetSheet(tx, name)
		})
	})
}

// AddCopy copies a sheet from another store.
func (c *Collection) AddCopy(name string, from script.Location) error {
	src, ok := from.Collection.(*Collection)
	if !ok {
		return fmt.Errorf("store: copy from %s: %w", from, script.ErrNotSupported)
	}
	records, err := src.load(from.Name)
	if err != nil {
		return err
	}
	return c.save(name, records)
}

func (c *Collection) Codec() (script.Codec, error) { return &Codec{}, nil }

// Close releases the database. A database created by this process that
// ended up holding no sheets is removed.
func (c *Collection) Close() error {
	names, err := c.Scripts()
	if cerr := c.db.Close(); err == nil {
		err = cerr
	}
	if err == nil && c.created && len(names) == 0 {
		err = os.Remove(c.path)
	}
	return err
}

func (c *Collection) load(name string) ([]script.Record, error) {
	var records []script.Record
	err := c.do("load "+name, func() error {
		records = records[:0]
		var n int
		if err := c.db.QueryRow("SELECT COUNT(*) FROM scripts WHERE name = ?", name).Scan(&n); err != nil {
			return fmt.Errorf("store: query script: %w", classify(err))
		}
		if n == 0 {
			return fmt.Errorf("store: %s: %w", name, script.ErrNotFound)
		}
		rows, err := c.db.Query(`SELECT field_offset, kind, original, translation, checked, edited
			FROM lines WHERE script = ? ORDER BY seq`, name)
		if err != nil {
			return fmt.Errorf("store: query lines: %w", classify(err))
		}
		defer rows.Close()
		for rows.Next() {
			var (
				l    line
				kind string
			)
			if err := rows.Scan(&l.Offset, &kind, &l.Original, &l.Translation, &l.Checked, &l.Edited); err != nil {
				return fmt.Errorf("store: scan: %w", classify(err))
			}
			if l.Kind, err = script.ParseKind(kind); err != nil {
				return fmt.Errorf("store: %s: %w", name, err)
			}
			records = append(records, l.Record())
		}
		return classify(rows.Err())
	})
	return records, err
}

func (c *Collection) save(name string, records []script.Record) error {
	return c.do("save "+name, func() error {
		return c.tx(func(tx *sql.Tx) error {
			if err := resetSheet(tx, name); err != nil {
				return err
			}
			stmt, err := tx.Prepare(`INSERT INTO lines
				(script, seq, field_offset, kind, original, translation, checked, edited)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("store: prepare insert: %w", classify(err))
			}
			defer stmt.Close()
			for i, r := range records {
				l := newLine(r)
				if _, err := stmt.Exec(name, i, l.Offset, l.Kind.String(), l.Original, l.Translation, l.Checked, l.Edited); err != nil {
					return fmt.Errorf("store: insert line %d: %w", i, classify(err))
				}
			}
			return nil
		})
	})
}

func resetSheet(tx *sql.Tx, name string) error {
	if _, err := tx.Exec("INSERT OR IGNORE INTO scripts (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("store: insert script: %w", classify(err))
	}
	if _, err := tx.Exec("DELETE FROM lines WHERE script = ?", name); err != nil {
		return fmt.Errorf("store: clear lines: %w", classify(err))
	}
	return nil
}

func (c *Collection) tx(fn func(tx *sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", classify(err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", classify(err))
	}
	return nil
}

func (c *Collection) do(op string, fn func() error) error {
	return retry.Do(context.Background(), c.policy, op, fn)
}

// classify marks SQLite busy and locked errors as rate limiting so the
// caller retries them.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", script.ErrRateLimited, err)
		}
	}
	return err
}
