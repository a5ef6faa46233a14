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
	"errors"
	"sync/atomic"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/holiman/uint256"
)

// TxType discriminates the transaction envelope per spec §3.
type TxType byte

const (
	LegacyTxType     TxType = 0x00
	AccessListTxType TxType = 0x01 // EIP-2930
	DynamicFeeTxType TxType = 0x02 // EIP-1559
	BlobTxType       TxType = 0x03 // EIP-4844
	SetCodeTxType    TxType = 0x04 // EIP-7702
)

var ErrInvalidSig = errors.New("invalid transaction v, r, s values")

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     libcommon.Address
	StorageKeys []libcommon.Hash
}

type AccessList []AccessTuple

// Authorization is an EIP-7702 delegation-install tuple.
type Authorization struct {
	ChainID uint64
	Address libcommon.Address
	Nonce   uint64
	V       uint8
	R, S    uint256.Int
}

// Transaction exposes the fields common to every envelope variant, per
// spec §3's "every variant exposes: sender ... nonce, gas_limit, value,
// data, to ..." contract.
type Transaction struct {
	Type TxType

	ChainID              uint64
	AccountNonce         uint64
	GasLimit             uint64
	To                   *libcommon.Address // nil == contract creation
	Value                *uint256.Int
	Data                 []byte
	GasPrice             *uint256.Int // legacy / 2930
	FeeCap               *uint256.Int // 1559+: max fee per gas
	Tip                  *uint256.Int // 1559+: max priority fee per gas
	Accesses             AccessList
	BlobFeeCap           *uint256.Int
	BlobHashes           []libcommon.Hash
	AuthorizationList    []Authorization

	V, R, S uint256.Int

	// cached
	hash   atomic.Pointer[libcommon.Hash]
	sender atomic.Pointer[libcommon.Address]
}

func (tx *Transaction) Nonce() uint64 { return tx.AccountNonce }

// EffectiveGasTip returns min(tip, feeCap-baseFee) for 1559+ transactions,
// or gasPrice-baseFee for legacy/2930, per spec §4.5 step 10's fee-cap
// contract (priority_fee ≤ max_fee is checked separately in admission).
func (tx *Transaction) EffectiveGasTip(baseFee *uint256.Int) *uint256.Int {
	if tx.Type == LegacyTxType || tx.Type == AccessListTxType {
		if baseFee == nil {
			return new(uint256.Int).Set(tx.GasPrice)
		}
		d := new(uint256.Int)
		if tx.GasPrice.Cmp(baseFee) > 0 {
			d.Sub(tx.GasPrice, baseFee)
		}
		return d
	}
	if baseFee == nil {
		return new(uint256.Int).Set(tx.Tip)
	}
	avail := new(uint256.Int)
	if tx.FeeCap.Cmp(baseFee) > 0 {
		avail.Sub(tx.FeeCap, baseFee)
	}
	if avail.Cmp(tx.Tip) > 0 {
		return new(uint256.Int).Set(tx.Tip)
	}
	return avail
}

// MaxFeePerGas returns the fee cap regardless of envelope, matching the
// "effective max-fee" exposed field from spec §3.
func (tx *Transaction) MaxFeePerGas() *uint256.Int {
	if tx.Type == LegacyTxType || tx.Type == AccessListTxType {
		return tx.GasPrice
	}
	return tx.FeeCap
}

func (tx *Transaction) IsContractCreation() bool { return tx.To == nil }

func (tx *Transaction) BlobGas() uint64 {
	return uint64(len(tx.BlobHashes)) * 131072
}

// MaxBlobCost returns gas_limit-independent blob cost: blobFeeCap *
// blobGas, part of the up-front balance check in spec §3's invariants.
func (tx *Transaction) MaxBlobCost() *uint256.Int {
	if tx.BlobFeeCap == nil || len(tx.BlobHashes) == 0 {
		return new(uint256.Int)
	}
	cost := new(uint256.Int).SetUint64(tx.BlobGas())
	return cost.Mul(cost, tx.BlobFeeCap)
}
