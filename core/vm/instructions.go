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

func opStop(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	return nil, errStopToken
}

func opAdd(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Add(&x, y)
	return nil, nil
}

func opMul(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Mul(&x, y)
	return nil, nil
}

func opSub(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Sub(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.SMod(&x, y)
	return nil, nil
}

func opAddmod(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y, z := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y, z := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func opExp(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	base, exponent := scope.Stack.pop(), scope.Stack.peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	back, num := scope.Stack.pop(), scope.Stack.peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

func opLt(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIszero(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Xor(&x, y)
	return nil, nil
}

func opNot(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	th, val := scope.Stack.pop(), scope.Stack.peek()
	val.Byte(&th)
	return nil, nil
}

func opShl(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opShr(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSar(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil, nil
	}
	n := uint(shift.Uint64())
	value.SRsh(value, n)
	return nil, nil
}

func opKeccak256(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.peek()
	data := scope.Memory.GetPtr(int64(offset.Uint64()), int64(size.Uint64()))
	h := libcommon.Keccak256(data)
	size.SetBytes(h[:])
	return nil, nil
}

func opAddress(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(addressToWord(scope.Contract.Address))
	return nil, nil
}

func opBalance(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := wordToAddress(slot)
	slot.Set(interp.evm.StateDB.GetBalance(addr))
	return nil, nil
}

func opOrigin(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(addressToWord(interp.evm.TxContext.Origin))
	return nil, nil
}

func opCaller(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(addressToWord(scope.Contract.Caller))
	return nil, nil
}

func opCallValue(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(scope.Contract.Value)
	return nil, nil
}

func opCallDataLoad(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	data := getData(scope.Contract.Input, x.Uint64(), 32)
	x.SetBytes(data)
	return nil, nil
}

func opCallDataSize(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Input))))
	return nil, nil
}

func opCallDataCopy(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, dataOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	data := getData(scope.Contract.Input, dataOffset.Uint64(), length.Uint64())
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func opCodeSize(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Code))))
	return nil, nil
}

func opCodeCopy(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, codeOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	data := getData(scope.Contract.Code, codeOffset.Uint64(), length.Uint64())
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func opGasPrice(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(interp.evm.TxContext.GasPrice)
	return nil, nil
}

func opExtCodeSize(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := wordToAddress(slot)
	slot.SetUint64(uint64(interp.evm.StateDB.GetCodeSize(addr)))
	return nil, nil
}

func opExtCodeCopy(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	addrWord := scope.Stack.pop()
	memOffset, codeOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	addr := wordToAddress(&addrWord)
	code := interp.evm.StateDB.GetCode(addr)
	data := getData(code, codeOffset.Uint64(), length.Uint64())
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func opReturnDataSize(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(interp.returnData))))
	return nil, nil
}

func opReturnDataCopy(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, dataOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	end := new(uint256.Int).Add(&dataOffset, &length)
	if !end.IsUint64() || uint64(len(interp.returnData)) < end.Uint64() {
		return nil, ErrReturnDataOutOfBounds
	}
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), interp.returnData[dataOffset.Uint64():end.Uint64()])
	return nil, nil
}

func opExtCodeHash(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := wordToAddress(slot)
	if !interp.evm.StateDB.Exist(addr) || interp.evm.StateDB.Empty(addr) {
		slot.Clear()
		return nil, nil
	}
	h := interp.evm.StateDB.GetCodeHash(addr)
	slot.SetBytes(h.Bytes())
	return nil, nil
}

func opBlockhash(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	num := scope.Stack.peek()
	h := interp.evm.Context.GetHash(num.Uint64())
	num.SetBytes(h.Bytes())
	return nil, nil
}

func opCoinbase(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(addressToWord(interp.evm.Context.Coinbase))
	return nil, nil
}

func opTimestamp(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(interp.evm.Context.Time))
	return nil, nil
}

func opNumber(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(interp.evm.Context.BlockNumber))
	return nil, nil
}

func opDifficulty(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(interp.evm.Context.Difficulty)
	return nil, nil
}

func opGasLimit(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(interp.evm.Context.GasLimit))
	return nil, nil
}

func opChainID(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(interp.evm.ChainConfig.ChainID)
	return nil, nil
}

func opSelfBalance(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(interp.evm.StateDB.GetBalance(scope.Contract.Address))
	return nil, nil
}

func opBaseFee(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(interp.evm.Context.BaseFee)
	return nil, nil
}

func opPop(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.pop()
	return nil, nil
}

func opMload(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset := scope.Stack.peek()
	offset.SetBytes(scope.Memory.GetPtr(int64(offset.Uint64()), 32))
	return nil, nil
}

func opMstore(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, value := scope.Stack.pop(), scope.Stack.pop()
	scope.Memory.Set(offset.Uint64(), 32, value.Bytes32()[:])
	return nil, nil
}

func opMstore8(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, value := scope.Stack.pop(), scope.Stack.pop()
	scope.Memory.store[offset.Uint64()] = byte(value.Uint64())
	return nil, nil
}

func opSload(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	key := libcommon.Hash(slot.Bytes32())
	val := interp.evm.StateDB.GetState(scope.Contract.Address, key)
	slot.SetBytes(val.Bytes())
	return nil, nil
}

func opSstore(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	if interp.readOnly {
		return nil, ErrWriteProtection
	}
	key, val := scope.Stack.pop(), scope.Stack.pop()
	interp.evm.StateDB.SetState(scope.Contract.Address, libcommon.Hash(key.Bytes32()), libcommon.Hash(val.Bytes32()))
	return nil, nil
}

func opJump(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	dest := scope.Stack.pop()
	if !scope.Contract.validJumpdest(dest.Uint64()) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, errJumped
}

func opJumpi(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	dest, cond := scope.Stack.pop(), scope.Stack.pop()
	if cond.IsZero() {
		return nil, nil
	}
	if !scope.Contract.validJumpdest(dest.Uint64()) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, errJumped
}

func opPc(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(*pc))
	return nil, nil
}

func opMsize(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(scope.Memory.Len())))
	return nil, nil
}

func opGas(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(scope.Contract.Gas))
	return nil, nil
}

func opJumpdest(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	return nil, nil
}

func opPush0(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int))
	return nil, nil
}

func makePush(size int) executionFunc {
	return func(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
		start := *pc + 1
		data := getData(scope.Contract.Code, start, uint64(size))
		scope.Stack.push(new(uint256.Int).SetBytes(data))
		*pc += uint64(size)
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
		scope.Stack.dup(n)
		return nil, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
		scope.Stack.swap(n)
		return nil, nil
	}
}

func makeLog(n int) executionFunc {
	return func(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
		if interp.readOnly {
			return nil, ErrWriteProtection
		}
		offset, size := scope.Stack.pop(), scope.Stack.pop()
		topics := make([]libcommon.Hash, n)
		for i := 0; i < n; i++ {
			t := scope.Stack.pop()
			topics[i] = libcommon.Hash(t.Bytes32())
		}
		data := scope.Memory.Get(int64(offset.Uint64()), int64(size.Uint64()))
		interp.evm.StateDB.AddLog(scope.Contract.Address, topics, data)
		return nil, nil
	}
}

func opCreate(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	if interp.readOnly {
		return nil, ErrWriteProtection
	}
	value, offset, size := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	input := scope.Memory.Get(int64(offset.Uint64()), int64(size.Uint64()))
	gas := scope.Contract.Gas
	gas -= gas / 64
	scope.Contract.useGas(gas)
	ret, addr, returnGas, err := interp.evm.Create(scope.Contract.Address, input, gas, &value)
	pushCreateResult(scope.Stack, err, addr)
	scope.Contract.Gas += returnGas
	interp.returnData = ret
	return nil, nil
}

func opCreate2(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	if interp.readOnly {
		return nil, ErrWriteProtection
	}
	value, offset, size, salt := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	input := scope.Memory.Get(int64(offset.Uint64()), int64(size.Uint64()))
	gas := scope.Contract.Gas
	gas -= gas / 64
	scope.Contract.useGas(gas)
	ret, addr, returnGas, err := interp.evm.Create2(scope.Contract.Address, input, gas, &value, &salt)
	pushCreateResult(scope.Stack, err, addr)
	scope.Contract.Gas += returnGas
	interp.returnData = ret
	return nil, nil
}

func pushCreateResult(stack *Stack, err error, addr libcommon.Address) {
	if err != nil {
		stack.push(new(uint256.Int))
		return
	}
	stack.push(addressToWord(addr))
}

func opCall(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	gasWord, addrWord, value := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	inOffset, inSize, outOffset, outSize := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	addr := wordToAddress(&addrWord)
	args := scope.Memory.Get(int64(inOffset.Uint64()), int64(inSize.Uint64()))
	gas := callGas(scope.Contract.Gas, gasWord.Uint64())
	scope.Contract.useGas(gas)
	if !value.IsZero() {
		gas += CallStipend
	}
	ret, returnGas, err := interp.evm.Call(scope.Contract, addr, args, gas, &value)
	scope.Contract.Gas += returnGas
	pushCallResult(scope.Stack, err)
	interp.returnData = ret
	scope.Memory.Set(outOffset.Uint64(), min64(outSize.Uint64(), uint64(len(ret))), ret)
	return nil, nil
}

func opCallCode(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	gasWord, addrWord, value := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	inOffset, inSize, outOffset, outSize := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	addr := wordToAddress(&addrWord)
	args := scope.Memory.Get(int64(inOffset.Uint64()), int64(inSize.Uint64()))
	gas := callGas(scope.Contract.Gas, gasWord.Uint64())
	scope.Contract.useGas(gas)
	ret, returnGas, err := interp.evm.CallCode(scope.Contract, addr, args, gas, &value)
	scope.Contract.Gas += returnGas
	pushCallResult(scope.Stack, err)
	interp.returnData = ret
	scope.Memory.Set(outOffset.Uint64(), min64(outSize.Uint64(), uint64(len(ret))), ret)
	return nil, nil
}

func opDelegateCall(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	gasWord, addrWord := scope.Stack.pop(), scope.Stack.pop()
	inOffset, inSize, outOffset, outSize := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	addr := wordToAddress(&addrWord)
	args := scope.Memory.Get(int64(inOffset.Uint64()), int64(inSize.Uint64()))
	gas := callGas(scope.Contract.Gas, gasWord.Uint64())
	scope.Contract.useGas(gas)
	ret, returnGas, err := interp.evm.DelegateCall(scope.Contract, addr, args, gas)
	scope.Contract.Gas += returnGas
	pushCallResult(scope.Stack, err)
	interp.returnData = ret
	scope.Memory.Set(outOffset.Uint64(), min64(outSize.Uint64(), uint64(len(ret))), ret)
	return nil, nil
}

func opStaticCall(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	gasWord, addrWord := scope.Stack.pop(), scope.Stack.pop()
	inOffset, inSize, outOffset, outSize := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	addr := wordToAddress(&addrWord)
	args := scope.Memory.Get(int64(inOffset.Uint64()), int64(inSize.Uint64()))
	gas := callGas(scope.Contract.Gas, gasWord.Uint64())
	scope.Contract.useGas(gas)
	ret, returnGas, err := interp.evm.StaticCall(scope.Contract, addr, args, gas)
	scope.Contract.Gas += returnGas
	pushCallResult(scope.Stack, err)
	interp.returnData = ret
	scope.Memory.Set(outOffset.Uint64(), min64(outSize.Uint64(), uint64(len(ret))), ret)
	return nil, nil
}

func pushCallResult(stack *Stack, err error) {
	if err != nil {
		stack.push(new(uint256.Int))
		return
	}
	stack.push(new(uint256.Int).SetOne())
}

func opReturn(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.pop()
	ret := scope.Memory.Get(int64(offset.Uint64()), int64(size.Uint64()))
	return ret, errStopToken
}

func opRevert(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.pop()
	ret := scope.Memory.Get(int64(offset.Uint64()), int64(size.Uint64()))
	return ret, ErrExecutionReverted
}

func opInvalid(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	return nil, ErrInvalidOpcode
}

func opSelfdestruct(pc *uint64, interp *Interpreter, scope *ScopeContext) ([]byte, error) {
	if interp.readOnly {
		return nil, ErrWriteProtection
	}
	beneficiary := scope.Stack.pop()
	balance := interp.evm.StateDB.GetBalance(scope.Contract.Address)
	interp.evm.StateDB.AddBalance(wordToAddress(&beneficiary), balance)
	interp.evm.StateDB.Selfdestruct(scope.Contract.Address)
	return nil, errStopToken
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func addressToWord(addr libcommon.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(addr.Bytes())
}

func wordToAddress(w *uint256.Int) libcommon.Address {
	var addr libcommon.Address
	b := w.Bytes20()
	copy(addr[:], b[:])
	return addr
}

func hashFromWord(w *uint256.Int) libcommon.Hash {
	return libcommon.Hash(w.Bytes32())
}

// getData returns window [offset:offset+size] of data, zero-padded past
// the end the way the EVM's calldata/code reads behave.
func getData(data []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(data)) {
		return out
	}
	end := offset + size
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(out, data[offset:end])
	return out
}
