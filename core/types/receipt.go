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
)

// Log is an EVM event log, accumulated in the per-transaction substate
// (spec §3) and surfaced through the receipt.
type Log struct {
	Address libcommon.Address
	Topics  []libcommon.Hash
	Data    []byte

	BlockNumber uint64
	TxHash      libcommon.Hash
	TxIndex     uint
	BlockHash   libcommon.Hash
	Index       uint
	Removed     bool
}

// Receipt is the per-transaction execution record from spec §3.
type Receipt struct {
	Type              TxType
	Success           bool
	CumulativeGasUsed uint64
	GasUsed           uint64
	Bloom             [256]byte
	Logs              []*Log

	TxHash          libcommon.Hash
	ContractAddress *libcommon.Address
	BlockHash       libcommon.Hash
	BlockNumber     uint64
	TransactionIndex uint
}

type Receipts []*Receipt

// CreateBloom ORs together every log's address/topic bloom contribution,
// producing the header's logs-bloom field for a set of receipts.
func CreateBloom(receipts Receipts) [256]byte {
	var bloom [256]byte
	for _, r := range receipts {
		for _, l := range r.Logs {
			bloomAdd(&bloom, l.Address.Bytes())
			for _, t := range l.Topics {
				bloomAdd(&bloom, t.Bytes())
			}
		}
	}
	return bloom
}

// bloomAdd sets the three bits derived from keccak256(data), the
// standard Ethereum 2048-bit (256-byte) bloom construction.
func bloomAdd(b *[256]byte, data []byte) {
	h := libcommon.Keccak256(data)
	for i := 0; i < 3; i++ {
		bitIdx := (uint(h[i*2])<<8 | uint(h[i*2+1])) & 0x7ff
		b[256-1-bitIdx/8] |= 1 << (bitIdx % 8)
	}
}
