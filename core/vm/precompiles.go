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
	"crypto/sha256"
	"errors"
	"math/big"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for the RIPEMD160 precompile
)

// PrecompiledContract is the fixed-address, fixed-behavior native
// contract surface. identity/sha256/ripemd160/modexp are implemented
// against the standard library; ecrecover, the BN254 family, blake2f
// and KZG point evaluation are seams (see errSeamNotImplemented).
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// PrecompiledContractsCancun is the address table active from Cancun
// onward, named the way go-ethereum's core/vm/contracts.go tables are.
var PrecompiledContractsCancun = map[libcommon.Address]PrecompiledContract{
	libcommon.BytesToAddress([]byte{1}): &ecrecoverSeam{},
	libcommon.BytesToAddress([]byte{2}): &sha256hash{},
	libcommon.BytesToAddress([]byte{3}): &ripemd160hash{},
	libcommon.BytesToAddress([]byte{4}): &dataCopy{},
	libcommon.BytesToAddress([]byte{5}): &bigModExp{},
	libcommon.BytesToAddress([]byte{6}): &bn254AddSeam{},
	libcommon.BytesToAddress([]byte{7}): &bn254ScalarMulSeam{},
	libcommon.BytesToAddress([]byte{8}): &bn254PairingSeam{},
	libcommon.BytesToAddress([]byte{9}): &blake2FSeam{},
	libcommon.BytesToAddress([]byte{0x0a}): &kzgPointEvaluationSeam{},
}

// RunPrecompiledContract charges gas and runs p. EVM.Call, CallCode,
// DelegateCall and StaticCall do not call it: they run whatever code is
// stored at the target address, so a call to one of the addresses in
// PrecompiledContractsCancun does not reach the precompile.
func RunPrecompiledContract(p PrecompiledContract, input []byte, suppliedGas uint64) (ret []byte, remainingGas uint64, err error) {
	gasCost := p.RequiredGas(input)
	if suppliedGas < gasCost {
		return nil, 0, ErrOutOfGas
	}
	suppliedGas -= gasCost
	out, err := p.Run(input)
	return out, suppliedGas, err
}

type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 {
	return 15 + 3*memoryWordCount(uint64(len(input)))
}

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return 60 + 12*memoryWordCount(uint64(len(input)))
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return 600 + 120*memoryWordCount(uint64(len(input)))
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	sum := h.Sum(nil)
	out := make([]byte, 32)
	copy(out[32-len(sum):], sum)
	return out, nil
}

// bigModExp implements the EIP-198 arbitrary-precision modular
// exponentiation precompile: input is baseLen||expLen||modLen||base||exp||mod.
type bigModExp struct{}

func (c *bigModExp) RequiredGas(input []byte) uint64 {
	baseLen, expLen, modLen := modExpLengths(input)
	maxLen := baseLen
	if modLen > maxLen {
		maxLen = modLen
	}
	words := (maxLen + 7) / 8
	mult := words * words
	return (mult * expLen) / 20
}

func (c *bigModExp) Run(input []byte) ([]byte, error) {
	baseLen, expLen, modLen := modExpLengths(input)
	if baseLen == 0 && modLen == 0 {
		return []byte{}, nil
	}
	const headerLen = 96
	base := new(big.Int).SetBytes(rightPad(dataAt(input, headerLen, baseLen), baseLen))
	exp := new(big.Int).SetBytes(rightPad(dataAt(input, headerLen+baseLen, expLen), expLen))
	mod := new(big.Int).SetBytes(rightPad(dataAt(input, headerLen+baseLen+expLen, modLen), modLen))

	out := make([]byte, modLen)
	if mod.Sign() == 0 {
		return out, nil
	}
	result := new(big.Int).Exp(base, exp, mod)
	result.FillBytes(out)
	return out, nil
}

func modExpLengths(input []byte) (baseLen, expLen, modLen uint64) {
	baseLen = new(big.Int).SetBytes(dataAt(input, 0, 32)).Uint64()
	expLen = new(big.Int).SetBytes(dataAt(input, 32, 32)).Uint64()
	modLen = new(big.Int).SetBytes(dataAt(input, 64, 32)).Uint64()
	return
}

func dataAt(input []byte, offset, size uint64) []byte {
	if offset >= uint64(len(input)) {
		return nil
	}
	end := offset + size
	if end > uint64(len(input)) {
		end = uint64(len(input))
	}
	return input[offset:end]
}

func rightPad(b []byte, size uint64) []byte {
	out := make([]byte, size)
	copy(out, b)
	return out
}

// The remaining precompiles (ecrecover, BN254 add/mul/pairing, blake2f
// and KZG point evaluation) are named seams: each charges its gas and
// its Run returns errSeamNotImplemented.
var errSeamNotImplemented = errors.New("precompile seam not implemented")

type ecrecoverSeam struct{}

func (c *ecrecoverSeam) RequiredGas(input []byte) uint64 { return 3000 }
func (c *ecrecoverSeam) Run(input []byte) ([]byte, error) { return nil, errSeamNotImplemented }

type bn254AddSeam struct{}

func (c *bn254AddSeam) RequiredGas(input []byte) uint64  { return 150 }
func (c *bn254AddSeam) Run(input []byte) ([]byte, error) { return nil, errSeamNotImplemented }

type bn254ScalarMulSeam struct{}

func (c *bn254ScalarMulSeam) RequiredGas(input []byte) uint64  { return 6000 }
func (c *bn254ScalarMulSeam) Run(input []byte) ([]byte, error) { return nil, errSeamNotImplemented }

type bn254PairingSeam struct{}

func (c *bn254PairingSeam) RequiredGas(input []byte) uint64 {
	return 45000 + uint64(len(input)/192)*34000
}
func (c *bn254PairingSeam) Run(input []byte) ([]byte, error) { return nil, errSeamNotImplemented }

type blake2FSeam struct{}

func (c *blake2FSeam) RequiredGas(input []byte) uint64  { return 0 }
func (c *blake2FSeam) Run(input []byte) ([]byte, error) { return nil, errSeamNotImplemented }

type kzgPointEvaluationSeam struct{}

func (c *kzgPointEvaluationSeam) RequiredGas(input []byte) uint64  { return 50000 }
func (c *kzgPointEvaluationSeam) Run(input []byte) ([]byte, error) { return nil, errSeamNotImplemented }
