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

// Package vm implements the EVM interpreter from spec §4.4 (C6): a stack
// machine with gas-metered dispatch and nested call frames. A single
// opcode table serves every fork; opcode availability is not gated by
// hard fork. Grounded on
// other_examples/7bada867_ethereum-go-ethereum__core-vm-evm.go.go for the
// EVM/Call/Create shape; stack, memory and jump-table internals follow
// the same lineage's conventional split into dedicated files.
package vm

import (
	"github.com/holiman/uint256"
)

// stackLimit is spec §4.4's bounded stack capacity.
const stackLimit = 1024

// Stack is the per-frame operand stack of Words.
type Stack struct {
	data []uint256.Int
}

func newStack() *Stack { return &Stack{data: make([]uint256.Int, 0, 16)} }

func (s *Stack) push(v *uint256.Int) { s.data = append(s.data, *v) }

func (s *Stack) pop() uint256.Int {
	n := len(s.data) - 1
	v := s.data[n]
	s.data = s.data[:n]
	return v
}

func (s *Stack) len() int { return len(s.data) }

func (s *Stack) peek() *uint256.Int { return &s.data[len(s.data)-1] }

func (s *Stack) back(n int) *uint256.Int { return &s.data[len(s.data)-1-n] }

func (s *Stack) swap(n int) {
	i := len(s.data) - 1
	s.data[i], s.data[i-n] = s.data[i-n], s.data[i]
}

func (s *Stack) dup(n int) {
	s.push(&s.data[len(s.data)-n])
}
