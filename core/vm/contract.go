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

package vm

import (
	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/holiman/uint256"
)

// Contract is the spec §4.4 "machine state per call frame": code,
// input, value, caller/address identity, static/created flags, and
// gas accounting, bundled the way go-ethereum's core/vm.Contract does.
type Contract struct {
	Caller      libcommon.Address
	Address     libcommon.Address
	CodeAddress libcommon.Address
	Code        []byte
	CodeHash    libcommon.Hash
	Input       []byte
	Value       *uint256.Int

	Gas   uint64
	IsStatic  bool
	Created bool

	jumpdests map[uint64]struct{}
}

func NewContract(caller, address libcommon.Address, value *uint256.Int, gas uint64, code []byte) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Contract{
		Caller:      caller,
		Address:     address,
		CodeAddress: address,
		Code:        code,
		Value:       value,
		Gas:         gas,
	}
}

func (c *Contract) useGas(amount uint64) bool {
	if c.Gas < amount {
		return false
	}
	c.Gas -= amount
	return true
}

// validJumpdest reports whether dest is a JUMPDEST opcode not embedded
// inside PUSH data, lazily memoized per contract the way go-ethereum
// caches Contract.analysis.
func (c *Contract) validJumpdest(dest uint64) bool {
	if c.jumpdests == nil {
		c.jumpdests = analyzeJumpdests(c.Code)
	}
	_, ok := c.jumpdests[dest]
	return ok
}

// analyzeJumpdests scans code once, skipping PUSH immediate bytes, and
// records every byte offset holding a real JUMPDEST opcode.
func analyzeJumpdests(code []byte) map[uint64]struct{} {
	dests := make(map[uint64]struct{})
	for pc := uint64(0); pc < uint64(len(code)); pc++ {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			dests[pc] = struct{}{}
			continue
		}
		if op >= PUSH1 && op <= PUSH32 {
			pc += uint64(op-PUSH1) + 1
		}
	}
	return dests
}
