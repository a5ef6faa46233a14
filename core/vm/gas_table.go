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

import "github.com/holiman/uint256"

// This file holds the dynamicGas and memorySize callbacks referenced
// from jump_table.go's instruction set, split out the way go-ethereum
// separates gas_table.go from jump_table.go.

func memorySizeKeccak256(stack *Stack) (uint64, bool) {
	return memSizeForOffsetSize(stack.back(0), stack.back(1))
}

func gasKeccak256(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	size := stack.back(1)
	words := memoryWordCount(size.Uint64())
	return words * GasKeccak256Word, nil
}

func gasExp(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	exponent := stack.back(1)
	if exponent.IsZero() {
		return 0, nil
	}
	byteLen := (exponent.BitLen() + 7) / 8
	return uint64(byteLen) * 50, nil
}

func gasEip2929AccountCheck(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	addr := wordToAddress(stack.back(0))
	if evm.StateDB.AddressInAccessList(addr) {
		return GasWarmStorageRead, nil
	}
	evm.StateDB.AddAddressToAccessList(addr)
	return GasColdAccountAccess, nil
}

func memorySizeCopy(stack *Stack) (uint64, bool) {
	return memSizeForOffsetSize(stack.back(0), stack.back(2))
}

func gasCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	length := stack.back(2)
	words := memoryWordCount(length.Uint64())
	return words * GasCopy, nil
}

func memorySizeExtCodeCopy(stack *Stack) (uint64, bool) {
	return memSizeForOffsetSize(stack.back(1), stack.back(3))
}

func gasExtCodeCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	addr := wordToAddress(stack.back(0))
	length := stack.back(3)
	words := memoryWordCount(length.Uint64())
	copyCost := words * GasCopy
	if evm.StateDB.AddressInAccessList(addr) {
		return GasWarmStorageRead + copyCost, nil
	}
	evm.StateDB.AddAddressToAccessList(addr)
	return GasColdAccountAccess + copyCost, nil
}

func memorySizeMload(stack *Stack) (uint64, bool) {
	offset := stack.back(0)
	if !offset.IsUint64() {
		return 0, false
	}
	return offset.Uint64() + 32, true
}

func memorySizeMstore(stack *Stack) (uint64, bool) {
	offset := stack.back(0)
	if !offset.IsUint64() {
		return 0, false
	}
	return offset.Uint64() + 32, true
}

func memorySizeMstore8(stack *Stack) (uint64, bool) {
	offset := stack.back(0)
	if !offset.IsUint64() {
		return 0, false
	}
	return offset.Uint64() + 1, true
}

func gasMemory(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	return 0, nil
}

func gasSload(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	addr := contract.Address
	key := stack.back(0)
	if evm.StateDB.SlotInAccessList(addr, key.Bytes32()) {
		return 0, nil
	}
	evm.StateDB.AddSlotToAccessList(addr, key.Bytes32())
	return GasColdSload, nil
}

// gasSstore implements the EIP-2200/2929 "net metering" SSTORE cost: a
// fresh warm-up charge on first cold access in the tx, then
// set/reset/noop pricing based on current vs original vs new value.
func gasSstore(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	key := stack.back(0)
	newVal := stack.back(1)

	var cost uint64
	if !evm.StateDB.SlotInAccessList(contract.Address, key.Bytes32()) {
		cost += GasColdSload
		evm.StateDB.AddSlotToAccessList(contract.Address, key.Bytes32())
	}

	current := evm.StateDB.GetState(contract.Address, hashFromWord(key))
	newHash := hashFromWord(newVal)
	if current == newHash {
		return cost + GasWarmStorageRead, nil
	}

	original := evm.StateDB.GetCommittedState(contract.Address, hashFromWord(key))
	if original == current {
		if original.IsZero() {
			return cost + GasSstoreSetGas, nil
		}
		if newHash.IsZero() {
			evm.StateDB.AddRefund(GasSstoreClearRefund)
		}
		return cost + GasSstoreResetGas, nil
	}
	return cost + GasWarmStorageRead, nil
}

func memorySizeCreate(stack *Stack) (uint64, bool) {
	return memSizeForOffsetSize(stack.back(1), stack.back(2))
}

func gasCreate(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	return 0, nil
}

func gasCreate2(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	size := stack.back(2)
	words := memoryWordCount(size.Uint64())
	return words * GasKeccak256Word, nil
}

func memorySizeCall(stack *Stack) (uint64, bool) {
	in, ok1 := memSizeForOffsetSize(stack.back(3), stack.back(4))
	out, ok2 := memSizeForOffsetSize(stack.back(5), stack.back(6))
	if !ok1 || !ok2 {
		return 0, false
	}
	if out > in {
		return out, true
	}
	return in, true
}

// memorySizeCallNoValue is memorySizeCall shifted one slot up the
// stack for DELEGATECALL/STATICCALL, which carry no value operand.
func memorySizeCallNoValue(stack *Stack) (uint64, bool) {
	in, ok1 := memSizeForOffsetSize(stack.back(2), stack.back(3))
	out, ok2 := memSizeForOffsetSize(stack.back(4), stack.back(5))
	if !ok1 || !ok2 {
		return 0, false
	}
	if out > in {
		return out, true
	}
	return in, true
}

func gasCall(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
	addr := wordToAddress(stack.back(1))
	var accessCost uint64
	if evm.StateDB.AddressInAccessList(addr) {
		accessCost = GasWarmStorageRead
	} else {
		evm.StateDB.AddAddressToAccessList(addr)
		accessCost = GasColdAccountAccess
	}
	return accessCost, nil
}

func memorySizeReturn(stack *Stack) (uint64, bool) {
	return memSizeForOffsetSize(stack.back(0), stack.back(1))
}

func memorySizeLog(stack *Stack) (uint64, bool) {
	return memSizeForOffsetSize(stack.back(0), stack.back(1))
}

func makeGasLog(n int) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memSize uint64) (uint64, error) {
		size := stack.back(1)
		words := memoryWordCount(size.Uint64())
		return uint64(n)*GasLogTopic + words*32*GasLogData, nil
	}
}

// memSizeForOffsetSize is the common "offset,size -> byte length" shape
// shared by every memory-touching opcode's memorySizeFunc.
func memSizeForOffsetSize(offset, size *uint256.Int) (uint64, bool) {
	if size.IsZero() {
		return 0, true
	}
	if !offset.IsUint64() || !size.IsUint64() {
		return 0, false
	}
	end, overflow := addUint64Checked(offset.Uint64(), size.Uint64())
	if overflow {
		return 0, false
	}
	return end, true
}

func addUint64Checked(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}
