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
	"github.com/holiman/uint256"
)

// GenesisAccount is one entry of the genesis allocation map from spec §6
// ("an allocation map of address → (balance, nonce, code, storage slots)").
type GenesisAccount struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
	Storage map[libcommon.Hash]libcommon.Hash
}

// GenesisAlloc is the full allocation map; field name and JSON shape
// mirror the teacher's own types.GenesisAlloc referenced by
// tests/state_test_util.go's stJSON.Pre field.
type GenesisAlloc map[libcommon.Address]GenesisAccount

// Genesis is the genesis format from spec §6.
type Genesis struct {
	Config        interface{} // *chain.Config; kept as interface{} to avoid an import cycle
	Coinbase      libcommon.Address
	Difficulty    *uint256.Int
	ExtraData     []byte
	GasLimit      uint64
	Timestamp     uint64
	BaseFee       *uint256.Int
	BlobGasUsed   *uint64
	ExcessBlobGas *uint64
	Alloc         GenesisAlloc
}
