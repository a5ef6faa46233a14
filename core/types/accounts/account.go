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

// Package accounts holds the Account record and its storage encoding,
// kept from the teacher's own github.com/erigontech/erigon-lib/types/accounts
// import (referenced by the kept core/state/history_reader_v3.go) and
// generalized to this repo's trie-backed state store.
package accounts

import (
	"errors"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/rlp"
	"github.com/holiman/uint256"
)

// Account is the tuple from spec §3: (nonce, balance, storage_root, code_hash).
//
// Incarnation disambiguates successive deployments at the same address
// (selfdestruct followed by re-creation within the reachable history),
// following the teacher's own Account.Incarnation field visible in
// history_reader_v3.go's ReadAccountIncarnation. It does not change the
// meaning of the spec's account tuple — two accounts with different
// incarnations at the same address never coexist in the live trie.
type Account struct {
	Nonce       uint64
	Balance     uint256.Int
	StorageRoot libcommon.Hash
	CodeHash    libcommon.Hash
	Incarnation uint64
}

// IsEmpty reports the spec §3 "empty" predicate: nonce=0, balance=0,
// code_hash=hash-of-empty.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && a.CodeHash == libcommon.EmptyCodeHash
}

// EncodeForStorage serializes the account the way it is persisted in the
// trie leaf, following the teacher's DecodeForStorage/EncodeForStorage
// naming (history_reader_v3.go calls a.DecodeForStorage(enc)).
func (a *Account) EncodeForStorage() []byte {
	balanceBytes := a.Balance.Bytes()
	items := [][]byte{
		rlp.EncodeUint64(a.Nonce),
		rlp.EncodeBytes(balanceBytes),
		rlp.EncodeBytes(a.StorageRoot.Bytes()),
		rlp.EncodeBytes(a.CodeHash.Bytes()),
		rlp.EncodeUint64(a.Incarnation),
	}
	return rlp.List(items...)
}

var ErrMalformedAccount = errors.New("accounts: malformed encoding")

// DecodeForStorage is the inverse of EncodeForStorage.
func (a *Account) DecodeForStorage(enc []byte) error {
	item, err := rlp.DecodeFull(enc)
	if err != nil {
		return err
	}
	if !item.IsList || len(item.Items) != 5 {
		return ErrMalformedAccount
	}
	a.Nonce = bytesToUint64(item.Items[0].Data)
	a.Balance.SetBytes(item.Items[1].Data)
	a.StorageRoot = libcommon.BytesToHash(item.Items[2].Data)
	a.CodeHash = libcommon.BytesToHash(item.Items[3].Data)
	a.Incarnation = bytesToUint64(item.Items[4].Data)
	return nil
}

// DeserialiseV3 decodes the compact encoding used by the kept teacher
// reader (history_reader_v3.go's DeserialiseV3 call) — here it is the
// same representation as EncodeForStorage, since this repo has a single
// account encoding rather than erigon's historical V2/V3 split.
func DeserialiseV3(a *Account, enc []byte) error {
	return a.DecodeForStorage(enc)
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// NewEmptyAccount returns the account value for an address with no prior
// history: zero nonce/balance, empty code hash, empty storage root.
func NewEmptyAccount() Account {
	return Account{StorageRoot: libcommon.EmptyRootHash, CodeHash: libcommon.EmptyCodeHash}
}
