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
	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv"
	"github.com/execore/execore/core/types/accounts"
)

// StateWriter is the mutating half, mirroring the PlainState layout's
// account/storage/code writes plus the account-deletion path used by
// apply_account_updates.
type StateWriter interface {
	UpdateAccountData(address libcommon.Address, original, account *accounts.Account) error
	UpdateAccountCode(address libcommon.Address, incarnation uint64, codeHash libcommon.Hash, code []byte) error
	DeleteAccount(address libcommon.Address, original *accounts.Account) error
	WriteAccountStorage(address libcommon.Address, incarnation uint64, key *libcommon.Hash, original, value []byte) error
}

// PlainStateWriter applies updates directly into an open kv.RwTx's
// PlainState/Code tables.
type PlainStateWriter struct {
	tx kv.RwTx
}

func NewPlainStateWriter(tx kv.RwTx) *PlainStateWriter {
	return &PlainStateWriter{tx: tx}
}

func (w *PlainStateWriter) UpdateAccountData(address libcommon.Address, original, account *accounts.Account) error {
	return w.tx.Put(kv.PlainState, address.Bytes(), account.EncodeForStorage())
}

func (w *PlainStateWriter) UpdateAccountCode(address libcommon.Address, incarnation uint64, codeHash libcommon.Hash, code []byte) error {
	if len(code) == 0 {
		return nil
	}
	// Code is content-addressed and deduplicated by hash (spec §4.2); it
	// is never removed, only ever inserted idempotently.
	return w.tx.Put(kv.Code, codeHash.Bytes(), code)
}

func (w *PlainStateWriter) DeleteAccount(address libcommon.Address, original *accounts.Account) error {
	return w.tx.Delete(kv.PlainState, address.Bytes())
}

func (w *PlainStateWriter) WriteAccountStorage(address libcommon.Address, incarnation uint64, key *libcommon.Hash, original, value []byte) error {
	k := storageCompositeKey(address, incarnation, key)
	if len(value) == 0 {
		return w.tx.Delete(kv.TblStorageVals, k)
	}
	return w.tx.Put(kv.TblStorageVals, k, value)
}
