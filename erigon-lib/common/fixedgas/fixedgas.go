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

// Package fixedgas collects gas-schedule constants that do not vary with
// chain configuration, kept from the teacher's own
// erigon-lib/common/fixedgas package (referenced by consensus/misc/eip4844.go).
package fixedgas

const (
	// BlobGasPerBlob is the fixed gas cost per EIP-4844 blob (2**17).
	BlobGasPerBlob = 131072

	TxGas                 uint64 = 21000
	TxGasContractCreation uint64 = 53000
	TxDataZeroGas         uint64 = 4
	TxDataNonZeroGasEIP2028 uint64 = 16
	TxAccessListAddressGas uint64 = 2400
	TxAccessListStorageKeyGas uint64 = 1900
	TxAuthTupleGas        uint64 = 25000

	ColdSloadCost       uint64 = 2100
	ColdAccountAccessCost uint64 = 2600
	WarmStorageReadCost uint64 = 100

	MaxCodeSize     = 24576
	MaxInitCodeSize = 2 * MaxCodeSize

	StackLimit    = 1024
	CallCreateDepth = 1024

	RefundQuotientEIP3529 uint64 = 5
)
