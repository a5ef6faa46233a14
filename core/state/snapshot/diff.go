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
	"encoding/binary"
	"sync"
	"sync/atomic"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/core/types/accounts"
	bloomfilter "github.com/holiman/bloomfilter/v2"
)

// bloomHash adapts a 64-bit digest to the hash.Hash64 interface
// bloomfilter.Filter.Add/Contains expect, the same adapter shape
// go-ethereum's own snapshot bloom filter uses.
type bloomHash uint64

func (h bloomHash) Write(p []byte) (int, error) { panic("not used") }
func (h bloomHash) Sum(b []byte) []byte         { panic("not used") }
func (h bloomHash) Reset()                      {}
func (h bloomHash) Size() int                   { return 8 }
func (h bloomHash) BlockSize() int               { return 8 }
func (h bloomHash) Sum64() uint64               { return uint64(h) }

func accountBloomHash(addr libcommon.Address) bloomHash {
	return bloomHash(binary.BigEndian.Uint64(libcommon.HashData(addr.Bytes()).Bytes()[:8]))
}

func storageBloomHash(addr libcommon.Address, key libcommon.Hash) bloomHash {
	h := libcommon.Keccak256(addr.Bytes(), key.Bytes())
	return bloomHash(binary.BigEndian.Uint64(h[:8]))
}

// DiffLayer is an in-memory tentative state on top of a parent layer
// (spec §4.3 "construct a new diff layer referencing parent"). Updates
// are append-only from the caller's perspective: Cap/flatten is the only
// thing that merges or discards entries.
type DiffLayer struct {
	root   libcommon.Hash
	parent atomic.Pointer[Layer]

	mu       sync.RWMutex
	accounts map[libcommon.Address]*accounts.Account // nil value = deletion
	storage  map[libcommon.Address]map[libcommon.Hash][]byte

	bloom *bloomfilter.Filter
	stale atomic.Bool
}

// NewDiffLayer builds a diff layer on parent (spec §4.3 Update operation).
// It errors on a self-referential root (cycle) per the spec's failure mode.
func NewDiffLayer(parent Layer, root libcommon.Hash, accountsDelta map[libcommon.Address]*accounts.Account, storageDelta map[libcommon.Address]map[libcommon.Hash][]byte) (*DiffLayer, error) {
	if parent == nil {
		return nil, ErrParentNotFound
	}
	if root == parent.Root() {
		return nil, ErrCycle
	}
	n := uint64(len(accountsDelta))
	for _, s := range storageDelta {
		n += uint64(len(s))
	}
	if n == 0 {
		n = 1
	}
	bloom, err := bloomfilter.NewOptimal(n*8, 0.01)
	if err != nil {
		return nil, err
	}
	for addr := range accountsDelta {
		bloom.Add(accountBloomHash(addr))
	}
	for addr, slots := range storageDelta {
		for key := range slots {
			bloom.Add(storageBloomHash(addr, key))
		}
	}
	d := &DiffLayer{
		root:     root,
		accounts: accountsDelta,
		storage:  storageDelta,
		bloom:    bloom,
	}
	d.parent.Store(&parent)
	return d, nil
}

func (d *DiffLayer) Root() libcommon.Hash { return d.root }
func (d *DiffLayer) Stale() bool          { return d.stale.Load() }
func (d *DiffLayer) Parent() Layer {
	p := d.parent.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (d *DiffLayer) setParent(p Layer) { d.parent.Store(&p) }

// Account implements the spec §4.3 Lookup walk: consult this layer's
// delta map, falling through to the parent chain. When the parent is the
// disk layer the bloom filter is consulted, but both of its outcomes read
// that same disk layer, so it does not shorten the walk.
func (d *DiffLayer) Account(address libcommon.Address) (*accounts.Account, bool, error) {
	if d.Stale() {
		return nil, false, ErrStaleLayer
	}
	d.mu.RLock()
	a, ok := d.accounts[address]
	d.mu.RUnlock()
	if ok {
		return a, a != nil, nil
	}
	parent := d.Parent()
	if parent == nil {
		return nil, false, nil
	}
	if dl, ok := parent.(*DiskLayer); ok {
		if !d.bloom.Contains(accountBloomHash(address)) {
			return dl.Account(address)
		}
	}
	return parent.Account(address)
}

func (d *DiffLayer) Storage(address libcommon.Address, key libcommon.Hash) ([]byte, bool, error) {
	if d.Stale() {
		return nil, false, ErrStaleLayer
	}
	d.mu.RLock()
	slots, hasAddr := d.storage[address]
	var v []byte
	var ok bool
	if hasAddr {
		v, ok = slots[key]
	}
	d.mu.RUnlock()
	if ok {
		return v, len(v) > 0, nil
	}
	parent := d.Parent()
	if parent == nil {
		return nil, false, nil
	}
	if dl, ok := parent.(*DiskLayer); ok {
		if !d.bloom.Contains(storageBloomHash(address, key)) {
			return dl.Storage(address, key)
		}
	}
	return parent.Storage(address, key)
}

// rebloom rebuilds the bloom filter against a (possibly new) disk layer
// after a cap/flatten cycle re-bases the tree, per spec §4.3's reorg rule
// "Layers are re-bloomed against the new disk layer".
func (d *DiffLayer) rebloom() error {
	n := uint64(len(d.accounts))
	for _, s := range d.storage {
		n += uint64(len(s))
	}
	if n == 0 {
		n = 1
	}
	bloom, err := bloomfilter.NewOptimal(n*8, 0.01)
	if err != nil {
		return err
	}
	for addr := range d.accounts {
		bloom.Add(accountBloomHash(addr))
	}
	for addr, slots := range d.storage {
		for key := range slots {
			bloom.Add(storageBloomHash(addr, key))
		}
	}
	d.mu.Lock()
	d.bloom = bloom
	d.mu.Unlock()
	return nil
}

// flattenInto absorbs source's delta into target: target is the more
// recent (closer-to-head) layer and its entries win on conflict, per
// spec §4.3's Cap wording "parent loses its own deltas and inherits the
// union, latest wins" — here "parent" is the retained boundary layer and
// "latest" is the more recent state it already holds. source is left
// stale and is dropped by the caller.
func flattenInto(target, source *DiffLayer) {
	source.mu.Lock()
	defer source.mu.Unlock()
	target.mu.Lock()
	defer target.mu.Unlock()

	merged := make(map[libcommon.Address]*accounts.Account, len(target.accounts)+len(source.accounts))
	for k, v := range source.accounts {
		merged[k] = v
	}
	for k, v := range target.accounts {
		merged[k] = v
	}

	mergedStorage := make(map[libcommon.Address]map[libcommon.Hash][]byte, len(target.storage)+len(source.storage))
	for addr, slots := range source.storage {
		cp := make(map[libcommon.Hash][]byte, len(slots))
		for k, v := range slots {
			cp[k] = v
		}
		mergedStorage[addr] = cp
	}
	for addr, slots := range target.storage {
		cp, ok := mergedStorage[addr]
		if !ok {
			cp = make(map[libcommon.Hash][]byte, len(slots))
			mergedStorage[addr] = cp
		}
		for k, v := range slots {
			cp[k] = v
		}
	}

	target.accounts = merged
	target.storage = mergedStorage
	source.stale.Store(true)
}
