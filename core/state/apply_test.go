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

package state

import (
	"context"
	"path/filepath"
	"testing"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv"
	"github.com/execore/execore/erigon-lib/kv/boltdb"
	"github.com/execore/execore/core/types/accounts"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *boltdb.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := boltdb.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyAccountUpdatesAndRead(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tries := NewTries()

	addr := libcommon.BytesToAddress([]byte{1, 2, 3})
	acct := &accounts.Account{Nonce: 1, Balance: *uint256.NewInt(100), CodeHash: libcommon.EmptyCodeHash, StorageRoot: libcommon.EmptyRootHash}
	slotKey := libcommon.BytesToHash([]byte{9})

	var newRoot libcommon.Hash
	err := db.Update(ctx, func(tx kv.RwTx) error {
		var err error
		newRoot, err = ApplyAccountUpdates(tx, tries, []AccountUpdate{{
			Address: addr,
			Account: acct,
			Storage: []StorageUpdate{{Key: slotKey, Value: []byte{1, 2, 3, 4}}},
		}})
		return err
	})
	require.NoError(t, err)
	require.NotEqual(t, libcommon.EmptyRootHash, newRoot)

	err = db.View(ctx, func(tx kv.Tx) error {
		r := NewPlainStateReader(tx)
		got, err := r.ReadAccountData(addr)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, uint64(1), got.Nonce)

		v, err := r.ReadAccountStorage(addr, acct.Incarnation, &slotKey)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3, 4}, v)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyAccountUpdatesDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tries := NewTries()
	addr := libcommon.BytesToAddress([]byte{4, 5, 6})
	acct := &accounts.Account{Nonce: 1, Balance: *uint256.NewInt(1), CodeHash: libcommon.EmptyCodeHash, StorageRoot: libcommon.EmptyRootHash}

	err := db.Update(ctx, func(tx kv.RwTx) error {
		_, err := ApplyAccountUpdates(tx, tries, []AccountUpdate{{Address: addr, Account: acct}})
		return err
	})
	require.NoError(t, err)

	err = db.Update(ctx, func(tx kv.RwTx) error {
		_, err := ApplyAccountUpdates(tx, tries, []AccountUpdate{{Address: addr, Deleted: true}})
		return err
	})
	require.NoError(t, err)

	err = db.View(ctx, func(tx kv.Tx) error {
		r := NewPlainStateReader(tx)
		got, err := r.ReadAccountData(addr)
		require.NoError(t, err)
		require.Nil(t, got)
		return nil
	})
	require.NoError(t, err)
}
