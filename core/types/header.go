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
	"github.com/holiman/uint256"
)

// EmptyRootHash re-exports the canonical empty-trie root so callers don't
// need to import erigon-lib/common just for this constant (mirrors the
// teacher's types.EmptyRootHash referenced from consensus/misc/eip4844.go).
var EmptyRootHash = libcommon.EmptyRootHash
var EmptyCodeHash = libcommon.EmptyCodeHash

// Header is the block header data model from spec §3.
type Header struct {
	ParentHash      libcommon.Hash
	Coinbase        libcommon.Address
	StateRoot       libcommon.Hash
	TxRoot          libcommon.Hash
	ReceiptRoot     libcommon.Hash
	LogsBloom       [256]byte
	Number          uint64
	GasLimit        uint64
	GasUsed         uint64
	Timestamp       uint64
	BaseFee         *uint256.Int
	ExtraData       []byte

	// post-Shanghai
	WithdrawalsHash *libcommon.Hash

	// post-Cancun
	BlobGasUsed           *uint64
	ExcessBlobGas         *uint64
	ParentBeaconBlockRoot *libcommon.Hash

	// post-Prague (EIP-7685)
	RequestsHash *libcommon.Hash
}

// Hash returns the header's content hash: keccak256 of its RLP encoding,
// matching spec §3's "State root: keccak of the RLP of the state trie's
// root node" naming convention applied here to the header itself.
func (h *Header) Hash() libcommon.Hash {
	return libcommon.Keccak256Hash(h.encodeRLP())
}

// EncodeRLP exposes the header's RLP encoding to callers outside the
// package (the store stage persists it verbatim into the headers table).
func (h *Header) EncodeRLP() []byte { return h.encodeRLP() }

func (h *Header) encodeRLP() []byte {
	items := [][]byte{
		rlp.EncodeBytes(h.ParentHash.Bytes()),
		rlp.EncodeBytes(h.Coinbase.Bytes()),
		rlp.EncodeBytes(h.StateRoot.Bytes()),
		rlp.EncodeBytes(h.TxRoot.Bytes()),
		rlp.EncodeBytes(h.ReceiptRoot.Bytes()),
		rlp.EncodeBytes(h.LogsBloom[:]),
		rlp.EncodeUint64(h.Number),
		rlp.EncodeUint64(h.GasLimit),
		rlp.EncodeUint64(h.GasUsed),
		rlp.EncodeUint64(h.Timestamp),
		rlp.EncodeBytes(h.ExtraData),
	}
	if h.BaseFee != nil {
		items = append(items, rlp.EncodeBytes(h.BaseFee.Bytes()))
	}
	if h.WithdrawalsHash != nil {
		items = append(items, rlp.EncodeBytes(h.WithdrawalsHash.Bytes()))
	}
	if h.BlobGasUsed != nil {
		items = append(items, rlp.EncodeUint64(*h.BlobGasUsed))
	}
	if h.ExcessBlobGas != nil {
		items = append(items, rlp.EncodeUint64(*h.ExcessBlobGas))
	}
	if h.ParentBeaconBlockRoot != nil {
		items = append(items, rlp.EncodeBytes(h.ParentBeaconBlockRoot.Bytes()))
	}
	if h.RequestsHash != nil {
		items = append(items, rlp.EncodeBytes(h.RequestsHash.Bytes()))
	}
	return rlp.List(items...)
}

// Withdrawal is the Shanghai beacon-chain withdrawal record.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        libcommon.Address
	Amount         uint64 // in Gwei
}

// Body holds a block's transactions, withdrawals, and (pre-merge) ommers.
type Body struct {
	Transactions []*Transaction
	Withdrawals  []*Withdrawal
	Uncles       []*Header
}

// Block pairs a header with its body.
type Block struct {
	Header *Header
	Body   *Body
}

func (b *Block) Hash() libcommon.Hash        { return b.Header.Hash() }
func (b *Block) NumberU64() uint64           { return b.Header.Number }
func (b *Block) Transactions() []*Transaction { return b.Body.Transactions }
func (b *Block) Withdrawals() []*Withdrawal   { return b.Body.Withdrawals }
func (b *Block) GasLimit() uint64             { return b.Header.GasLimit }
