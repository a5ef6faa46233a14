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

package snapshot

import (
	"path/filepath"
	"testing"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv/boltdb"
	"github.com/execore/execore/core/types/accounts"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *boltdb.DB {
	t.Helper()
	db, err := boltdb.Open(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTreeUpdateAndLookup(t *testing.T) {
	db := openTestDB(t)
	genesisRoot := libcommon.Hash{1}
	tr := New(db, genesisRoot)

	addr := libcommon.BytesToAddress([]byte{0xaa})
	acct := &accounts.Account{Nonce: 1, Balance: *uint256.NewInt(5)}
	block1Root := libcommon.Hash{2}

	err := tr.Update(genesisRoot, block1Root, map[libcommon.Address]*accounts.Account{addr: acct}, nil)
	require.NoError(t, err)

	layer := tr.Layer(block1Root)
	require.NotNil(t, layer)
	got, ok, err := layer.Account(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), got.Nonce)
}

func TestTreeUpdateCycleError(t *testing.T) {
	db := openTestDB(t)
	root := libcommon.Hash{1}
	tr := New(db, root)
	err := tr.Update(root, root, nil, nil)
	require.ErrorIs(t, err, ErrCycle)
}

func TestTreeCapFlattens(t *testing.T) {
	db := openTestDB(t)
	root0 := libcommon.Hash{0}
	tr := New(db, root0)

	prev := root0
	for i := byte(1); i <= 5; i++ {
		next := libcommon.Hash{i}
		require.NoError(t, tr.Update(prev, next, nil, nil))
		prev = next
	}
	head := prev

	require.NoError(t, tr.Cap(head, 2))
	require.Equal(t, libcommon.Hash{3}, tr.disk.Root()) // layer 3, at depth 2 below head, became the disk layer

	require.ErrorIs(t, tr.Cap(tr.disk.Root(), 1), ErrDiskLayer)
}

func TestRetentionPolicy(t *testing.T) {
	p := RetentionPolicy{KeepDepth: 4}
	require.Equal(t, 0, p.FlattenBatch(3))
	require.Equal(t, 16, p.FlattenBatch(20))
}
