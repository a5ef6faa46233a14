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
	"context"
	"sync/atomic"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv"
	"github.com/execore/execore/core/state"
	"github.com/execore/execore/core/types/accounts"
)

// DiskLayer is the bottom of the tree: the persisted view at some root,
// read straight from the KV backend's PlainState/Code tables.
type DiskLayer struct {
	root  libcommon.Hash
	db    kv.RwDB
	stale atomic.Bool
}

func NewDiskLayer(db kv.RwDB, root libcommon.Hash) *DiskLayer {
	return &DiskLayer{root: root, db: db}
}

func (d *DiskLayer) Root() libcommon.Hash { return d.root }
func (d *DiskLayer) Parent() Layer        { return nil }
func (d *DiskLayer) Stale() bool          { return d.stale.Load() }

func (d *DiskLayer) Account(address libcommon.Address) (*accounts.Account, bool, error) {
	if d.Stale() {
		return nil, false, ErrStaleLayer
	}
	var acct *accounts.Account
	err := d.db.View(context.Background(), func(tx kv.Tx) error {
		r := state.NewPlainStateReader(tx)
		a, err := r.ReadAccountData(address)
		acct = a
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return acct, acct != nil, nil
}

func (d *DiskLayer) Storage(address libcommon.Address, key libcommon.Hash) ([]byte, bool, error) {
	if d.Stale() {
		return nil, false, ErrStaleLayer
	}
	var val []byte
	err := d.db.View(context.Background(), func(tx kv.Tx) error {
		r := state.NewPlainStateReader(tx)
		acct, err := r.ReadAccountData(address)
		if err != nil || acct == nil {
			return err
		}
		val, err = r.ReadAccountStorage(address, acct.Incarnation, &key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return val, len(val) > 0, nil
}

// markStale flags this disk layer as superseded. Only this layer's flag is
// set; Tree.Cap removes the diff layers rooted at it through
// pruneStaleDescendants.
func (d *DiskLayer) markStale() { d.stale.Store(true) }
