// Package sqlite implements history.Repository on SQLite (modernc.org/sqlite,
// no cgo). The schema enforces pin validity and uniqueness itself.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go.klb.dev/stash/internal/content"
	"go.klb.dev/stash/internal/history"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps PRAGMAs and transactions on the same handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS history_items (
  id               TEXT PRIMARY KEY,
  position         INTEGER NOT NULL,
  title            TEXT NOT NULL DEFAULT '',
  pin              TEXT NOT NULL DEFAULT ''
                   CHECK (pin = '' OR (length(pin) = 1 AND pin GLOB '[a-z]')),
  first_copied_at  INTEGER NOT NULL,
  last_copied_at   INTEGER NOT NULL,
  number_of_copies INTEGER NOT NULL CHECK (number_of_copies >= 1),
  application      TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_history_items_pin ON history_items(pin) WHERE pin <> '';
CREATE INDEX IF NOT EXISTS idx_history_items_last_copied ON history_items(last_copied_at DESC);

CREATE TABLE IF NOT EXISTS history_item_contents (
  item_id TEXT NOT NULL REFERENCES history_items(id) ON DELETE CASCADE,
  seq     INTEGER NOT NULL,
  type    TEXT NOT NULL,
  value   BLOB,
  PRIMARY KEY (item_id, seq)
);
`)
	return err
}

// Load returns the stored items ordered by position (most recent first).
func (s *Store) Load(ctx context.Context) ([]*history.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, pin, first_copied_at, last_copied_at, number_of_copies, application
FROM history_items
ORDER BY position ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*history.Item
	byID := make(map[string]*history.Item)
	for rows.Next() {
		var (
			it        history.Item
			first, ls int64
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Pin, &first, &ls, &it.NumberOfCopies, &it.Application); err != nil {
			return nil, err
		}
		it.FirstCopiedAt = time.Unix(0, first)
		it.LastCopiedAt = time.Unix(0, ls)
		out = append(out, &it)
		byID[it.ID] = &it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := s.db.QueryContext(ctx, `
SELECT item_id, type, value
FROM history_item_contents
ORDER BY item_id, seq ASC
`)
	if err != nil {
		return nil, err
	}
	defer crows.Close()

	for crows.Next() {
		var (
			id, typ string
			value   []byte
		)
		if err := crows.Scan(&id, &typ, &value); err != nil {
			return nil, err
		}
		it, ok := byID[id]
		if !ok {
			continue
		}
		it.Contents = append(it.Contents, content.Content{Type: content.Type(typ), Value: value})
	}
	return out, crows.Err()
}

// Save replaces all stored items inside one transaction. Pin violations,
// whether caught up front or by the schema, roll the transaction back.
func (s *Store) Save(ctx context.Context, items []*history.Item) (err error) {
	if err := history.ValidatePins(items); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM history_item_contents`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM history_items`); err != nil {
		return err
	}

	itemStmt, err := tx.PrepareContext(ctx, `
INSERT INTO history_items(id, position, title, pin, first_copied_at, last_copied_at, number_of_copies, application)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()

	contentStmt, err := tx.PrepareContext(ctx, `
INSERT INTO history_item_contents(item_id, seq, type, value)
VALUES(?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer contentStmt.Close()

	for pos, it := range items {
		if _, err = itemStmt.ExecContext(ctx, it.ID, pos, it.Title, it.Pin,
			it.FirstCopiedAt.UnixNano(), it.LastCopiedAt.UnixNano(), it.NumberOfCopies, it.Application); err != nil {
			return wrapConstraint(it, err)
		}
		for seq, c := range it.Contents {
			if _, err = contentStmt.ExecContext(ctx, it.ID, seq, string(c.Type), c.Value); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Count returns the number of stored items.
func (s *Store) Count(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM history_items`)
	var n int
	return n, row.Scan(&n)
}

// wrapConstraint turns schema violations on pin into a ValidationError so
// callers see one error type regardless of where the check fired.
func wrapConstraint(it *history.Item, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE") && strings.Contains(msg, "pin"):
		return &history.ValidationError{Violations: []history.PinViolation{
			{ItemID: it.ID, Pin: it.Pin, Err: history.ErrDuplicatePin},
		}}
	case strings.Contains(msg, "CHECK") && strings.Contains(msg, "pin"):
		return &history.ValidationError{Violations: []history.PinViolation{
			{ItemID: it.ID, Pin: it.Pin, Err: history.ErrInvalidPin},
		}}
	}
	return fmt.Errorf("insert item %s: %w", it.ID, err)
}

var _ history.Repository = (*Store)(nil)
