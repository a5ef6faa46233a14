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

// Package state is the state store over the KV backend (C4), adapting the
// shape of the kept, unmodified history_reader_v3.go (HistoryReaderV3,
// ResettableStateReader) onto this repo's own KV tables rather than
// erigon4's temporal domain files. PlainStateReader reads the latest
// values from the flat PlainState/storage/Code tables; it is not indexed
// by block and does not walk a trie, so it cannot serve reads at an older
// block. history_reader_v3.go is retained alongside as reference: its
// kv.TemporalTx.GetAsOf dependency has no equivalent here.
package state

import (
	"context"
	"errors"
	"fmt"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv"
	"github.com/execore/execore/core/types/accounts"
)

var ErrPruned = errors.New("state: old data not available due to pruning")

// StateReader is the read-only half of the account/storage/code surface,
// named the way the kept history_reader_v3.go names it.
type StateReader interface {
	ReadAccountData(address libcommon.Address) (*accounts.Account, error)
	ReadAccountStorage(address libcommon.Address, incarnation uint64, key *libcommon.Hash) ([]byte, error)
	ReadAccountCode(address libcommon.Address, incarnation uint64) ([]byte, error)
	ReadAccountCodeSize(address libcommon.Address, incarnation uint64) (int, error)
	ReadAccountIncarnation(address libcommon.Address) (uint64, error)
}

// PlainStateReader walks the PlainState table directly (spec §4.2's
// get_account/get_storage), following the kept kv/tables.go PlainState
// layout comment: account key is the raw address, storage key is
// address+incarnation+location. bbolt has no DupSort, so the "multiple
// values under one key" MDBX trick in that comment collapses here to a
// flat composite key per storage slot.
type PlainStateReader struct {
	tx    kv.Tx
	trace bool
}

func NewPlainStateReader(tx kv.Tx) *PlainStateReader {
	return &PlainStateReader{tx: tx}
}

func (r *PlainStateReader) SetTrace(trace bool) { r.trace = trace }

func (r *PlainStateReader) ReadAccountData(address libcommon.Address) (*accounts.Account, error) {
	enc, err := r.tx.GetOne(kv.PlainState, address.Bytes())
	if err != nil {
		return nil, err
	}
	if len(enc) == 0 {
		if r.trace {
			fmt.Printf("ReadAccountData [%x] => []\n", address)
		}
		return nil, nil
	}
	var a accounts.Account
	if err := accounts.DeserialiseV3(&a, enc); err != nil {
		return nil, fmt.Errorf("ReadAccountData(%x): %w", address, err)
	}
	if r.trace {
		fmt.Printf("ReadAccountData [%x] => [nonce: %d, balance: %d, codeHash: %x]\n", address, a.Nonce, &a.Balance, a.CodeHash)
	}
	return &a, nil
}

func storageCompositeKey(address libcommon.Address, incarnation uint64, key *libcommon.Hash) []byte {
	k := make([]byte, len(address)+8+len(key))
	n := copy(k, address.Bytes())
	putUint64BE(k[n:], incarnation)
	copy(k[n+8:], key.Bytes())
	return k
}

func putUint64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func (r *PlainStateReader) ReadAccountStorage(address libcommon.Address, incarnation uint64, key *libcommon.Hash) ([]byte, error) {
	enc, err := r.tx.GetOne(kv.TblStorageVals, storageCompositeKey(address, incarnation, key))
	if r.trace {
		fmt.Printf("ReadAccountStorage [%x] [%x] => [%x]\n", address, *key, enc)
	}
	return enc, err
}

func (r *PlainStateReader) ReadAccountCode(address libcommon.Address, incarnation uint64) ([]byte, error) {
	a, err := r.ReadAccountData(address)
	if err != nil || a == nil || a.CodeHash == libcommon.EmptyCodeHash {
		return nil, err
	}
	code, err := r.tx.GetOne(kv.Code, a.CodeHash.Bytes())
	if r.trace {
		fmt.Printf("ReadAccountCode [%x] => [%x]\n", address, code)
	}
	return code, err
}

func (r *PlainStateReader) ReadAccountCodeSize(address libcommon.Address, incarnation uint64) (int, error) {
	code, err := r.ReadAccountCode(address, incarnation)
	return len(code), err
}

func (r *PlainStateReader) ReadAccountIncarnation(address libcommon.Address) (uint64, error) {
	a, err := r.ReadAccountData(address)
	if err != nil || a == nil {
		return 0, err
	}
	return a.Incarnation, nil
}

// ReadAccountDataForDebug mirrors the kept history_reader_v3.go method of
// the same name: used to inspect a "previous" balance without touching a
// read-set tracker (this reader has none).
func (r *PlainStateReader) ReadAccountDataForDebug(address libcommon.Address) (*accounts.Account, error) {
	return r.ReadAccountData(address)
}

// ReadCodeByHash is the content-addressed fetch from spec §4.2's
// get_code(hash), independent of any account.
func ReadCodeByHash(ctx context.Context, db kv.RwDB, hash libcommon.Hash) ([]byte, error) {
	var code []byte
	err := db.View(ctx, func(tx kv.Tx) error {
		var err error
		code, err = tx.GetOne(kv.Code, hash.Bytes())
		return err
	})
	return code, err
}
