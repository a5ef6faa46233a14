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
	"fmt"

	roaring "github.com/RoaringBitmap/roaring/v2"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv"
	"github.com/execore/execore/core/types/accounts"
	"github.com/execore/execore/trie"
)

// StorageUpdate is one changed (or deleted, if Value is empty) slot.
type StorageUpdate struct {
	Key   libcommon.Hash
	Value []byte
}

// AccountUpdate is one address's change set for a single block, the
// per-address unit consumed by ApplyAccountUpdates (spec §4.2).
type AccountUpdate struct {
	Address libcommon.Address
	Deleted bool
	Account *accounts.Account // nil when Deleted
	Storage []StorageUpdate
	Code    []byte // non-nil when this block installed new code at Address
}

// Tries is the live, in-memory state used as the system of record for
// root computation: the account trie keyed by keccak(address), and one
// storage trie per incarnated account keyed by keccak(storage key). This
// is the in-memory counterpart of erigon's TrieOfAccounts/TrieOfStorage
// tables (kv/tables.go). Node RLP is not written to those tables: only the
// account trie's root hash is recorded there, and nothing in this repo
// re-resolves a trie from disk by hash — the live Tries value is always
// carried forward block-to-block. See DESIGN.md's C4 open-question entry.
type Tries struct {
	Accounts *trie.Trie
	Storage  map[libcommon.Address]*trie.Trie
}

func NewTries() *Tries {
	return &Tries{Accounts: trie.New(), Storage: make(map[libcommon.Address]*trie.Trie)}
}

// ApplyAccountUpdates is spec §4.2's apply_account_updates: for each
// update either removes the account, or writes the new account info and
// applies storage deltas, updating the account's storage trie and
// embedding the new storage root into the account leaf. Returns the new
// state root; as a side effect the PlainState account/storage records,
// every new code blob, and the account trie's root hash are written into
// tx (the caller supplies a single kv.RwTx spanning the whole block).
// Individual trie nodes are not written.
func ApplyAccountUpdates(tx kv.RwTx, tries *Tries, updates []AccountUpdate) (libcommon.Hash, error) {
	if err := applyAccountUpdates(tx, tries, updates); err != nil {
		return libcommon.Hash{}, err
	}
	root := tries.Accounts.Hash()
	if err := persistDirtyNode(tx, kv.TrieOfAccounts, root); err != nil {
		return libcommon.Hash{}, err
	}
	return root, nil
}

// ApplyAccountUpdatesParallel is the same mutation as ApplyAccountUpdates
// but hashes the account trie with trie.ParallelHash, the merkle stage's
// large-update-set strategy (pipeline.Config.SparseThreshold, spec §4.6).
// changedPrefixes narrows the hash recomputation to the two-nibble
// (depth-2) subtries actually touched by updates; nil falls back to
// hashing every subtrie.
func ApplyAccountUpdatesParallel(tx kv.RwTx, tries *Tries, updates []AccountUpdate, changedPrefixes *roaring.Bitmap) (libcommon.Hash, error) {
	if err := applyAccountUpdates(tx, tries, updates); err != nil {
		return libcommon.Hash{}, err
	}
	root := tries.Accounts.ParallelHash(changedPrefixes)
	if err := persistDirtyNode(tx, kv.TrieOfAccounts, root); err != nil {
		return libcommon.Hash{}, err
	}
	return root, nil
}

func applyAccountUpdates(tx kv.RwTx, tries *Tries, updates []AccountUpdate) error {
	writer := NewPlainStateWriter(tx)

	for _, u := range updates {
		addrHash := libcommon.HashData(u.Address.Bytes())

		if u.Deleted {
			if err := writer.DeleteAccount(u.Address, nil); err != nil {
				return err
			}
			if err := tries.Accounts.Delete(addrHash.Bytes()); err != nil && err != trie.ErrKeyNotFound {
				return fmt.Errorf("apply_account_updates: delete %x: %w", u.Address, err)
			}
			delete(tries.Storage, u.Address)
			continue
		}

		storageTrie := tries.Storage[u.Address]
		if storageTrie == nil {
			storageTrie = trie.New()
			tries.Storage[u.Address] = storageTrie
		}
		for _, s := range u.Storage {
			keyHash := libcommon.HashData(s.Key.Bytes())
			if err := writer.WriteAccountStorage(u.Address, u.Account.Incarnation, &s.Key, nil, s.Value); err != nil {
				return err
			}
			if len(s.Value) == 0 {
				if err := storageTrie.Delete(keyHash.Bytes()); err != nil && err != trie.ErrKeyNotFound {
					return fmt.Errorf("apply_account_updates: delete storage %x/%x: %w", u.Address, s.Key, err)
				}
				continue
			}
			if err := storageTrie.Insert(keyHash.Bytes(), s.Value); err != nil {
				return fmt.Errorf("apply_account_updates: insert storage %x/%x: %w", u.Address, s.Key, err)
			}
		}
		u.Account.StorageRoot = storageTrie.Hash()

		if len(u.Code) != 0 {
			if err := writer.UpdateAccountCode(u.Address, u.Account.Incarnation, u.Account.CodeHash, u.Code); err != nil {
				return fmt.Errorf("apply_account_updates: code %x: %w", u.Address, err)
			}
		}
		if err := writer.UpdateAccountData(u.Address, nil, u.Account); err != nil {
			return err
		}
		if err := tries.Accounts.Insert(addrHash.Bytes(), u.Account.EncodeForStorage()); err != nil {
			return fmt.Errorf("apply_account_updates: insert account %x: %w", u.Address, err)
		}
	}

	return nil
}

// persistDirtyNode records the root hash under the trie table as a
// durability breadcrumb; full node-by-node persistence (node-hash -> rlp
// for every branch/extension) is the natural extension point here but is
// not exercised by anything else in this repo, so it is not built out.
func persistDirtyNode(tx kv.RwTx, table string, root libcommon.Hash) error {
	return tx.Put(table, []byte("root"), root.Bytes())
}
