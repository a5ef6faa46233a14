// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package boltdb implements erigon-lib/kv.RwDB over go.etcd.io/bbolt.
// The teacher's real backend (mdbx-go) requires cgo against a native
// libmdbx archive; bbolt already rides along in the teacher's own
// dependency graph and serves the same single-writer/many-reader,
// snapshot-isolated embedded-KV concern in pure Go (see DESIGN.md's C2
// entry for the full justification).
package boltdb

import (
	"bytes"
	"context"
	"fmt"

	"github.com/execore/execore/erigon-lib/kv"
	bolt "go.etcd.io/bbolt"
)

type DB struct {
	bolt *bolt.DB
}

// Open creates/opens a bbolt file at path and ensures every table from
// kv.ChaindataTables exists as a bucket up front, matching bbolt's own
// requirement that buckets exist before a transaction can Put into them.
func Open(path string) (*DB, error) {
	b, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltdb: open %s: %w", path, err)
	}
	if err := b.Update(func(tx *bolt.Tx) error {
		for _, table := range kv.ChaindataTables {
			if _, err := tx.CreateBucketIfNotExists([]byte(table)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		b.Close()
		return nil, err
	}
	return &DB{bolt: b}, nil
}

func (d *DB) Close() error { return d.bolt.Close() }

func (d *DB) BeginRo(ctx context.Context) (kv.Tx, error) {
	btx, err := d.bolt.Begin(false)
	if err != nil {
		return nil, err
	}
	return &tx{btx: btx}, nil
}

func (d *DB) BeginRw(ctx context.Context) (kv.RwTx, error) {
	btx, err := d.bolt.Begin(true)
	if err != nil {
		return nil, err
	}
	return &tx{btx: btx, writable: true}, nil
}

func (d *DB) Update(ctx context.Context, fn func(rw kv.RwTx) error) error {
	rw, err := d.BeginRw(ctx)
	if err != nil {
		return err
	}
	if err := fn(rw); err != nil {
		rw.Rollback()
		return err
	}
	return rw.Commit()
}

func (d *DB) View(ctx context.Context, fn func(t kv.Tx) error) error {
	t, err := d.BeginRo(ctx)
	if err != nil {
		return err
	}
	defer t.Rollback()
	return fn(t)
}

type tx struct {
	btx      *bolt.Tx
	writable bool
}

func (t *tx) bucket(table string) *bolt.Bucket {
	return t.btx.Bucket([]byte(table))
}

func (t *tx) GetOne(table string, key []byte) ([]byte, error) {
	b := t.bucket(table)
	if b == nil {
		return nil, fmt.Errorf("boltdb: unknown table %q", table)
	}
	v := b.Get(key)
	if v == nil {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *tx) Has(table string, key []byte) (bool, error) {
	v, err := t.GetOne(table, key)
	return v != nil, err
}

func (t *tx) ForEach(table string, fromPrefix []byte, walker func(k, v []byte) error) error {
	b := t.bucket(table)
	if b == nil {
		return fmt.Errorf("boltdb: unknown table %q", table)
	}
	c := b.Cursor()
	var k, v []byte
	if len(fromPrefix) == 0 {
		k, v = c.First()
	} else {
		k, v = c.Seek(fromPrefix)
	}
	for ; k != nil; k, v = c.Next() {
		if len(fromPrefix) > 0 && !bytes.HasPrefix(k, fromPrefix) {
			break
		}
		if err := walker(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) Put(table string, key, value []byte) error {
	if !t.writable {
		return fmt.Errorf("boltdb: Put on read-only transaction")
	}
	b := t.bucket(table)
	if b == nil {
		return fmt.Errorf("boltdb: unknown table %q", table)
	}
	return b.Put(key, value)
}

func (t *tx) Delete(table string, key []byte) error {
	if !t.writable {
		return fmt.Errorf("boltdb: Delete on read-only transaction")
	}
	b := t.bucket(table)
	if b == nil {
		return fmt.Errorf("boltdb: unknown table %q", table)
	}
	return b.Delete(key)
}

func (t *tx) Commit() error { return t.btx.Commit() }
func (t *tx) Rollback()     { _ = t.btx.Rollback() }
