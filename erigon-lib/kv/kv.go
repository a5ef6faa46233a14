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

package kv

import "context"

// Getter is a read-only view over one table (spec §2 C2: "Key/value
// put/get/batch, atomic write groups, read snapshots, range scans").
type Getter interface {
	GetOne(table string, key []byte) ([]byte, error)
	Has(table string, key []byte) (bool, error)
	ForEach(table string, fromPrefix []byte, walker func(k, v []byte) error) error
}

// Putter is the mutating half of a read-write transaction.
type Putter interface {
	Put(table string, key, value []byte) error
	Delete(table string, key []byte) error
}

// Tx is a read-only transaction: a consistent snapshot of the database
// as of the moment it was opened (spec §2 "read snapshots").
type Tx interface {
	Getter
	Rollback()
}

// RwTx is a read-write transaction. Per spec §5 "many readers, one
// writer per logical batch", a backend allows only one live RwTx.
type RwTx interface {
	Tx
	Putter
	Commit() error
}

// RwDB is the handle used to open transactions against the backend.
type RwDB interface {
	BeginRo(ctx context.Context) (Tx, error)
	BeginRw(ctx context.Context) (RwTx, error)
	Close() error
	// Update runs fn inside a single atomic write transaction: the
	// "atomic write groups" contract from spec §2/§4.2's write_block.
	Update(ctx context.Context, fn func(tx RwTx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}
