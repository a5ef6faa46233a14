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

package types

import (
	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/rlp"
)

// Hash returns the transaction's content hash, cached after first call
// (mirrors the "cached" sender/hash fields called out in spec §3).
func (tx *Transaction) Hash() libcommon.Hash {
	if p := tx.hash.Load(); p != nil {
		return *p
	}
	var items [][]byte
	items = append(items, rlp.EncodeUint64(uint64(tx.Type)))
	items = append(items, rlp.EncodeUint64(tx.ChainID))
	items = append(items, rlp.EncodeUint64(tx.AccountNonce))
	items = append(items, rlp.EncodeUint64(tx.GasLimit))
	if tx.To != nil {
		items = append(items, rlp.EncodeBytes(tx.To.Bytes()))
	} else {
		items = append(items, rlp.EncodeBytes(nil))
	}
	if tx.Value != nil {
		items = append(items, rlp.EncodeBytes(tx.Value.Bytes()))
	}
	items = append(items, rlp.EncodeBytes(tx.Data))
	h := libcommon.Keccak256Hash(rlp.List(items...))
	tx.hash.Store(&h)
	return h
}

// SetSender caches the signature-recovered sender address. Signature
// recovery (secp256k1) is a named cryptographic primitive per spec §1's
// non-goals; callers recover the sender externally and install it here.
func (tx *Transaction) SetSender(addr libcommon.Address) {
	tx.sender.Store(&addr)
}

// Sender returns the cached sender, or the zero address if none was
// installed (the caller is responsible for signature recovery upstream).
func (tx *Transaction) Sender() (libcommon.Address, bool) {
	if p := tx.sender.Load(); p != nil {
		return *p, true
	}
	return libcommon.Address{}, false
}
