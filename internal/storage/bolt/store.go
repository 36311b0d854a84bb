// Package bolt implements history.Repository on a bbolt key/value file.
//
// Layout:
//
//	items     position (uint64 BE) → JSON itemRecord
//	contents  item id + 0x00 + seq (uint32 BE) → JSON contentRecord
//	pins      pin letter → item id (unique index, written in the same tx)
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"go.klb.dev/stash/internal/content"
	"go.klb.dev/stash/internal/history"
)

var (
	itemsBucket    = []byte("items")
	contentsBucket = []byte("contents")
	pinsBucket     = []byte("pins")
)

type itemRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Pin            string    `json:"pin,omitempty"`
	FirstCopiedAt  time.Time `json:"first_copied_at"`
	LastCopiedAt   time.Time `json:"last_copied_at"`
	NumberOfCopies int       `json:"number_of_copies"`
	Application    string    `json:"application,omitempty"`
}

type contentRecord struct {
	Type  string `json:"type"`
	Value []byte `json:"value,omitempty"`
}

type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{itemsBucket, contentsBucket, pinsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(ctx context.Context) ([]*history.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*history.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		contents := tx.Bucket(contentsBucket)
		return tx.Bucket(itemsBucket).ForEach(func(_, v []byte) error {
			var rec itemRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode item: %w", err)
			}
			it := &history.Item{
				ID:             rec.ID,
				Title:          rec.Title,
				Pin:            rec.Pin,
				FirstCopiedAt:  rec.FirstCopiedAt,
				LastCopiedAt:   rec.LastCopiedAt,
				NumberOfCopies: rec.NumberOfCopies,
				Application:    rec.Application,
			}
			prefix := contentPrefix(rec.ID)
			c := contents.Cursor()
			for k, cv := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, cv = c.Next() {
				var cr contentRecord
				if err := json.Unmarshal(cv, &cr); err != nil {
					return fmt.Errorf("failed to decode content: %w", err)
				}
				it.Contents = append(it.Contents, content.Content{Type: content.Type(cr.Type), Value: cr.Value})
			}
			out = append(out, it)
			return nil
		})
	})
	return out, err
}

// Save rewrites all buckets in one transaction. Returning an error from the
// transaction function makes bbolt discard every write.
func (s *Store) Save(ctx context.Context, items []*history.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{itemsBucket, contentsBucket, pinsBucket} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
		}
		ib, err := tx.CreateBucket(itemsBucket)
		if err != nil {
			return err
		}
		cb, err := tx.CreateBucket(contentsBucket)
		if err != nil {
			return err
		}
		pb, err := tx.CreateBucket(pinsBucket)
		if err != nil {
			return err
		}

		for pos, it := range items {
			if err := putPin(pb, it); err != nil {
				return err
			}
			enc, err := json.Marshal(itemRecord{
				ID:             it.ID,
				Title:          it.Title,
				Pin:            it.Pin,
				FirstCopiedAt:  it.FirstCopiedAt,
				LastCopiedAt:   it.LastCopiedAt,
				NumberOfCopies: it.NumberOfCopies,
				Application:    it.Application,
			})
			if err != nil {
				return fmt.Errorf("failed to encode item: %w", err)
			}
			var key [8]byte
			binary.BigEndian.PutUint64(key[:], uint64(pos))
			if err := ib.Put(key[:], enc); err != nil {
				return err
			}

			for seq, c := range it.Contents {
				cenc, err := json.Marshal(contentRecord{Type: string(c.Type), Value: c.Value})
				if err != nil {
					return fmt.Errorf("failed to encode content: %w", err)
				}
				if err := cb.Put(contentKey(it.ID, seq), cenc); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// putPin records it in the pin index, rejecting invalid and taken pins.
func putPin(b *bbolt.Bucket, it *history.Item) error {
	if it.Pin == "" {
		return nil
	}
	if !history.ValidPin(it.Pin) {
		return &history.ValidationError{Violations: []history.PinViolation{
			{ItemID: it.ID, Pin: it.Pin, Err: history.ErrInvalidPin},
		}}
	}
	if b.Get([]byte(it.Pin)) != nil {
		return &history.ValidationError{Violations: []history.PinViolation{
			{ItemID: it.ID, Pin: it.Pin, Err: history.ErrDuplicatePin},
		}}
	}
	return b.Put([]byte(it.Pin), []byte(it.ID))
}

func contentPrefix(id string) []byte {
	return append([]byte(id), 0)
}

func contentKey(id string, seq int) []byte {
	k := contentPrefix(id)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(seq))
	return append(k, n[:]...)
}

var _ history.Repository = (*Store)(nil)
