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
	"github.com/execore/execore/erigon-lib/rlp"
	"github.com/holiman/uint256"
)

// StateDB is everything the interpreter needs from the C4 state store,
// narrowed to the surface the EVM touches. The block-execution pipeline
// (C8) supplies core/state's IntraBlockState, which reads through a
// PlainStateReader; the snapshot Tree is not consulted.
type StateDB interface {
	GetBalance(addr libcommon.Address) *uint256.Int
	AddBalance(addr libcommon.Address, amount *uint256.Int)
	SubBalance(addr libcommon.Address, amount *uint256.Int)

	GetNonce(addr libcommon.Address) uint64
	SetNonce(addr libcommon.Address, nonce uint64)

	GetCode(addr libcommon.Address) []byte
	GetCodeHash(addr libcommon.Address) libcommon.Hash
	GetCodeSize(addr libcommon.Address) int
	SetCode(addr libcommon.Address, code []byte)

	GetState(addr libcommon.Address, key libcommon.Hash) libcommon.Hash
	SetState(addr libcommon.Address, key, value libcommon.Hash)
	GetCommittedState(addr libcommon.Address, key libcommon.Hash) libcommon.Hash

	GetTransientState(addr libcommon.Address, key libcommon.Hash) libcommon.Hash
	SetTransientState(addr libcommon.Address, key, value libcommon.Hash)

	Exist(addr libcommon.Address) bool
	Empty(addr libcommon.Address) bool
	CreateAccount(addr libcommon.Address)
	Selfdestruct(addr libcommon.Address)
	HasSelfdestructed(addr libcommon.Address) bool

	Snapshot() int
	RevertToSnapshot(id int)

	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	AddLog(addr libcommon.Address, topics []libcommon.Hash, data []byte)

	AddressInAccessList(addr libcommon.Address) bool
	AddAddressToAccessList(addr libcommon.Address)
	SlotInAccessList(addr libcommon.Address, key [32]byte) bool
	AddSlotToAccessList(addr libcommon.Address, key [32]byte)
}

// BlockContext is the per-block read-only environment every call frame
// sees through COINBASE/TIMESTAMP/NUMBER/.../BLOCKHASH.
type BlockContext struct {
	GetHash func(blockNumber uint64) libcommon.Hash

	Coinbase    libcommon.Address
	BlockNumber uint64
	Time        uint64
	Difficulty  *uint256.Int // PREVRANDAO post-merge
	GasLimit    uint64
	BaseFee     *uint256.Int
}

// TxContext is the per-transaction read-only environment (ORIGIN, GASPRICE).
type TxContext struct {
	Origin   libcommon.Address
	GasPrice *uint256.Int
}

// ChainConfig narrows the C1 chain-rules surface to what the
// interpreter itself reads directly (CHAINID).
type ChainConfig struct {
	ChainID *uint256.Int
}

// EVM ties one execution's Context/TxContext/StateDB/ChainConfig
// together and exposes the call/create entry points C8's pipeline
// drives, grounded on go-ethereum's core/vm.EVM.
type EVM struct {
	Context     BlockContext
	TxContext   TxContext
	ChainConfig ChainConfig
	StateDB     StateDB

	jumpTable *JumpTable
	depth     int

	readOnly bool
}

func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, chainConfig ChainConfig) *EVM {
	return &EVM{
		Context:     blockCtx,
		TxContext:   txCtx,
		StateDB:     statedb,
		ChainConfig: chainConfig,
		jumpTable:   newInstructionSet(),
	}
}

func (evm *EVM) run(contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	interp := NewInterpreter(evm)
	interp.readOnly = readOnly
	return interp.Run(contract, input, readOnly)
}

// Call executes the code at addr with the caller's value transferred,
// the full CALL opcode semantics.
func (evm *EVM) Call(caller *Contract, addr libcommon.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > maxCallDepth {
		return nil, gas, ErrDepth
	}
	if !value.IsZero() && evm.readOnly {
		return nil, gas, ErrWriteProtection
	}
	snapshot := evm.StateDB.Snapshot()

	if !evm.StateDB.Exist(addr) {
		evm.StateDB.CreateAccount(addr)
	}
	if !value.IsZero() {
		if evm.StateDB.GetBalance(caller.Address).Cmp(value) < 0 {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, gas, ErrInsufficientBalance
		}
		evm.StateDB.SubBalance(caller.Address, value)
		evm.StateDB.AddBalance(addr, value)
	}

	code := evm.StateDB.GetCode(addr)
	if len(code) == 0 {
		return nil, gas, nil
	}
	contract := NewContract(caller.Address, addr, value, gas, code)
	contract.CodeHash = evm.StateDB.GetCodeHash(addr)

	evm.depth++
	ret, err = evm.run(contract, input, evm.readOnly)
	evm.depth--
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, contract.Gas, err
}

// CallCode runs addr's code in the caller's storage context but keeps
// the caller's address and value-transfer semantics toward self.
func (evm *EVM) CallCode(caller *Contract, addr libcommon.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > maxCallDepth {
		return nil, gas, ErrDepth
	}
	if evm.StateDB.GetBalance(caller.Address).Cmp(value) < 0 {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()

	code := evm.StateDB.GetCode(addr)
	contract := NewContract(caller.Address, caller.Address, value, gas, code)
	contract.CodeAddress = addr
	contract.CodeHash = evm.StateDB.GetCodeHash(addr)

	evm.depth++
	ret, err = evm.run(contract, input, evm.readOnly)
	evm.depth--
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, contract.Gas, err
}

// DelegateCall runs addr's code with the parent frame's caller and
// value preserved unchanged (no value transfer of its own).
func (evm *EVM) DelegateCall(caller *Contract, addr libcommon.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > maxCallDepth {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()

	code := evm.StateDB.GetCode(addr)
	contract := NewContract(caller.Caller, caller.Address, caller.Value, gas, code)
	contract.CodeAddress = addr
	contract.CodeHash = evm.StateDB.GetCodeHash(addr)

	evm.depth++
	ret, err = evm.run(contract, input, evm.readOnly)
	evm.depth--
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, contract.Gas, err
}

// StaticCall runs addr's code with state mutation forbidden for the
// duration of the call, restoring the prior readOnly flag on return.
func (evm *EVM) StaticCall(caller *Contract, addr libcommon.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > maxCallDepth {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()

	code := evm.StateDB.GetCode(addr)
	contract := NewContract(caller.Address, addr, new(uint256.Int), gas, code)
	contract.CodeHash = evm.StateDB.GetCodeHash(addr)

	prevReadOnly := evm.readOnly
	evm.readOnly = true
	evm.depth++
	ret, err = evm.run(contract, input, true)
	evm.depth--
	evm.readOnly = prevReadOnly
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, contract.Gas, err
}

// Create deploys init code at the legacy CREATE address (keccak(rlp([sender, nonce]))).
func (evm *EVM) Create(caller libcommon.Address, code []byte, gas uint64, value *uint256.Int) (ret []byte, contractAddr libcommon.Address, leftOverGas uint64, err error) {
	nonce := evm.StateDB.GetNonce(caller)
	contractAddr = CreateAddress(caller, nonce)
	return evm.create(caller, code, gas, value, contractAddr)
}

// Create2 deploys init code at the deterministic CREATE2 address
// keccak(0xff || sender || salt || keccak(initcode)).
func (evm *EVM) Create2(caller libcommon.Address, code []byte, gas uint64, value *uint256.Int, salt *uint256.Int) (ret []byte, contractAddr libcommon.Address, leftOverGas uint64, err error) {
	contractAddr = CreateAddress2(caller, salt, libcommon.Keccak256(code))
	return evm.create(caller, code, gas, value, contractAddr)
}

func (evm *EVM) create(caller libcommon.Address, initCode []byte, gas uint64, value *uint256.Int, addr libcommon.Address) ([]byte, libcommon.Address, uint64, error) {
	if evm.depth > maxCallDepth {
		return nil, addr, gas, ErrDepth
	}
	if evm.StateDB.GetBalance(caller).Cmp(value) < 0 {
		return nil, addr, gas, ErrInsufficientBalance
	}
	if evm.StateDB.Exist(addr) && (evm.StateDB.GetCodeSize(addr) != 0 || evm.StateDB.GetNonce(addr) != 0) {
		return nil, addr, gas, ErrContractAddressCollision
	}

	snapshot := evm.StateDB.Snapshot()
	evm.StateDB.CreateAccount(addr)
	evm.StateDB.SetNonce(addr, 1)
	evm.StateDB.SubBalance(caller, value)
	evm.StateDB.AddBalance(addr, value)

	contract := NewContract(caller, addr, value, gas, initCode)
	contract.Created = true

	evm.depth++
	ret, err := evm.run(contract, nil, false)
	evm.depth--

	if err == nil && len(ret) > maxCodeSize {
		err = ErrMaxCodeSizeExceeded
	}
	if err == nil {
		createDataGas := uint64(len(ret)) * GasCreateData
		if !contract.useGas(createDataGas) {
			err = ErrOutOfGas
		} else {
			evm.StateDB.SetCode(addr, ret)
		}
	}
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
		return ret, addr, contract.Gas, err
	}
	return ret, addr, contract.Gas, nil
}

// CreateAddress computes the legacy CREATE contract address: the low
// 20 bytes of keccak(rlp([sender, nonce])).
func CreateAddress(sender libcommon.Address, nonce uint64) libcommon.Address {
	data := rlp.List(rlp.EncodeBytes(sender.Bytes()), rlp.EncodeUint64(nonce))
	return libcommon.BytesToAddress(libcommon.Keccak256(data)[12:])
}

// CreateAddress2 computes the EIP-1014 CREATE2 contract address.
func CreateAddress2(sender libcommon.Address, salt *uint256.Int, initCodeHash []byte) libcommon.Address {
	saltBytes := salt.Bytes32()
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, sender.Bytes()...)
	buf = append(buf, saltBytes[:]...)
	buf = append(buf, initCodeHash...)
	return libcommon.BytesToAddress(libcommon.Keccak256(buf)[12:])
}
