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
	"sync"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv"
	"github.com/execore/execore/core/state"
	"github.com/execore/execore/core/types/accounts"
)

// Tree is the snapshot tree from spec §4.3: a disk layer at its root plus
// an arbitrary forest of diff layers above it, one per tentative block.
// Cap and Update take an exclusive lock for the duration; reads take a
// shared lock and may proceed concurrently with each other (spec's
// "Single writer" concurrency note).
type Tree struct {
	mu       sync.RWMutex
	layers   map[libcommon.Hash]Layer
	children map[libcommon.Hash][]libcommon.Hash
	disk     *DiskLayer
}

// New creates a tree whose sole layer is the disk layer at root.
func New(db kv.RwDB, root libcommon.Hash) *Tree {
	disk := NewDiskLayer(db, root)
	return &Tree{
		layers:   map[libcommon.Hash]Layer{root: disk},
		children: make(map[libcommon.Hash][]libcommon.Hash),
		disk:     disk,
	}
}

// Layer returns the layer at root, or nil if unknown.
func (t *Tree) Layer(root libcommon.Hash) Layer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.layers[root]
}

// Update inserts a new diff layer under blockRoot, referencing parentRoot
// (spec §4.3 Update operation).
func (t *Tree) Update(parentRoot, blockRoot libcommon.Hash, accountsDelta map[libcommon.Address]*accounts.Account, storageDelta map[libcommon.Address]map[libcommon.Hash][]byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.layers[parentRoot]
	if !ok {
		return ErrParentNotFound
	}
	if blockRoot == parentRoot {
		return ErrCycle
	}
	diff, err := NewDiffLayer(parent, blockRoot, accountsDelta, storageDelta)
	if err != nil {
		return err
	}
	t.layers[blockRoot] = diff
	t.children[parentRoot] = append(t.children[parentRoot], blockRoot)
	return nil
}

// Cap restricts in-memory diffs below headRoot to depth N, flattening
// everything past N into their parents and finally persisting the
// oldest retained flattened layer into the disk layer (spec §4.3 Cap).
func (t *Tree) Cap(headRoot libcommon.Hash, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	head, ok := t.layers[headRoot]
	if !ok {
		return ErrParentNotFound
	}
	if head == t.disk {
		return ErrDiskLayer
	}

	// chain walks head -> ... -> disk; chain[0] is head, chain[len-1] the
	// disk layer. chain[i] is i layers below head.
	chain := make([]Layer, 0, n+1)
	cur := head
	for cur != nil {
		chain = append(chain, cur)
		cur = cur.Parent()
	}
	if len(chain)-1 <= n {
		return nil // nothing deeper than depth N
	}

	// Every layer strictly deeper than N (chain[n+1:len-1], excluding the
	// disk layer itself) gets merged together, latest (shallowest, i.e.
	// closest to head) wins, following spec §4.3's "merging deltas ...
	// latest wins". The boundary layer at depth N, chain[n], absorbs the
	// merge and becomes the new oldest retained diff.
	boundary, ok := chain[n].(*DiffLayer)
	if !ok {
		return nil // depth N is already the disk layer
	}
	// Newest first: flattenInto keeps target's entries on conflict, so
	// each older layer only fills in keys no newer layer has set.
	for i := n + 1; i <= len(chain)-2; i++ {
		older, ok := chain[i].(*DiffLayer)
		if !ok {
			continue
		}
		flattenInto(boundary, older)
		delete(t.layers, older.Root())
	}

	newDisk, err := t.persist(boundary)
	if err != nil {
		return err
	}
	oldDiskRoot := t.disk.Root()
	t.disk.markStale()
	t.disk = newDisk
	t.layers[newDisk.Root()] = newDisk
	boundary.setParent(newDisk)

	t.pruneStaleDescendants(oldDiskRoot, newDisk.Root())
	t.rebloomAll(newDisk.Root())
	return nil
}

// persist writes a flattened diff layer's deltas into the KV backend and
// returns the new disk layer rooted at it.
func (t *Tree) persist(layer *DiffLayer) (*DiskLayer, error) {
	db := t.disk.db
	err := db.Update(context.Background(), func(tx kv.RwTx) error {
		w := state.NewPlainStateWriter(tx)
		layer.mu.RLock()
		defer layer.mu.RUnlock()
		for addr, acct := range layer.accounts {
			if acct == nil {
				if err := w.DeleteAccount(addr, nil); err != nil {
					return err
				}
				continue
			}
			if err := w.UpdateAccountData(addr, nil, acct); err != nil {
				return err
			}
		}
		for addr, slots := range layer.storage {
			for key, val := range slots {
				k := key
				if err := w.WriteAccountStorage(addr, 0, &k, nil, val); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewDiskLayer(db, layer.Root()), nil
}

// pruneStaleDescendants removes every layer transitively rooted at the
// now-stale former disk layer that is not on the path to the new disk
// layer (spec §4.3 reorg: "any diff transitively rooted at it becomes
// unreachable and is removed").
func (t *Tree) pruneStaleDescendants(staleRoot, keepRoot libcommon.Hash) {
	var walk func(root libcommon.Hash)
	walk = func(root libcommon.Hash) {
		for _, child := range t.children[root] {
			if child == keepRoot {
				continue
			}
			if dl, ok := t.layers[child].(*DiffLayer); ok {
				dl.stale.Store(true)
			}
			walk(child)
			delete(t.layers, child)
		}
		delete(t.children, root)
	}
	walk(staleRoot)
}

func (t *Tree) rebloomAll(from libcommon.Hash) {
	for _, l := range t.layers {
		if dl, ok := l.(*DiffLayer); ok {
			_ = dl.rebloom()
		}
	}
}
