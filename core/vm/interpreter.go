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

import "errors"

// errStopToken and errJumped are internal control-flow signals, never
// surfaced past Run: they unwind the per-step loop without being
// treated as execution failures.
var (
	errStopToken = errors.New("stop token")
	errJumped    = errors.New("jumped")
)

// ScopeContext bundles one call frame's mutable execution state, the
// way go-ethereum threads Memory/Stack/Contract through each opcode.
type ScopeContext struct {
	Memory   *Memory
	Stack    *Stack
	Contract *Contract
}

// Interpreter runs one Contract's code to completion against the
// active JumpTable, implementing spec §4.4's per-step state machine:
// read opcode, check stack arity, deduct gas, execute, advance pc.
type Interpreter struct {
	evm   *EVM
	table *JumpTable

	readOnly   bool
	returnData []byte
}

func NewInterpreter(evm *EVM) *Interpreter {
	return &Interpreter{evm: evm, table: evm.jumpTable}
}

// Run executes contract.Code starting at pc 0 until STOP/RETURN/REVERT,
// an error, or gas exhaustion. readOnly marks a STATICCALL frame, where
// SSTORE/LOG/CREATE/SELFDESTRUCT are rejected with ErrWriteProtection.
func (in *Interpreter) Run(contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	in.returnData = nil
	contract.Input = input

	prevReadOnly := in.readOnly
	if readOnly && !in.readOnly {
		in.readOnly = true
	}
	defer func() { in.readOnly = prevReadOnly }()

	stack := newStack()
	mem := newMemory()
	scope := &ScopeContext{Memory: mem, Stack: stack, Contract: contract}

	var pc uint64
	for {
		if pc >= uint64(len(contract.Code)) {
			return nil, nil
		}
		op := OpCode(contract.Code[pc])
		op_ := in.table[op]
		if op_ == nil {
			return nil, ErrInvalidOpcode
		}
		if stack.len() < op_.minStack {
			return nil, ErrStackUnderflow
		}
		if stack.len() > op_.maxStack {
			return nil, ErrStackOverflow
		}

		var memSize uint64
		if op_.memorySize != nil {
			size, ok := op_.memorySize(stack)
			if !ok {
				return nil, ErrGasUintOverflow
			}
			wordSize := memoryWordCount(size)
			if wordSize > 0 {
				newCost := memoryGasCost(wordSize * 32)
				oldCost := memoryGasCost(uint64(mem.Len()))
				if newCost > oldCost {
					if !contract.useGas(newCost - oldCost) {
						return nil, ErrOutOfGas
					}
				}
				mem.Resize(wordSize * 32)
				memSize = wordSize * 32
			}
		}

		if !contract.useGas(op_.constantGas) {
			return nil, ErrOutOfGas
		}
		if op_.dynamicGas != nil {
			dyn, err := op_.dynamicGas(in.evm, contract, stack, mem, memSize)
			if err != nil {
				return nil, err
			}
			if !contract.useGas(dyn) {
				return nil, ErrOutOfGas
			}
		}

		ret, err := op_.execute(&pc, in, scope)
		if err != nil {
			switch err {
			case errStopToken:
				return ret, nil
			case errJumped:
				continue
			case ErrExecutionReverted:
				return ret, ErrExecutionReverted
			default:
				return nil, err
			}
		}
		pc++
	}
}
