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

package common

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	AddressLength = 20
	HashLength    = 32
)

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

func BytesToAddress(b []byte) (a Address) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) Hex() string    { return a.String() }

// Hash is a 32-byte content identifier: a node hash, a state root, a
// keccak(address) or keccak(storage key).
type Hash [HashLength]byte

func BytesToHash(b []byte) (h Hash) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) IsZero() bool   { return h == Hash{} }

// Word is the 256-bit unsigned machine word used by the EVM stack,
// storage values, balances, and arithmetic opcodes.
type Word = uint256.Int

func WordFromUint64(v uint64) *Word { return uint256.NewInt(v) }

// StorageKey is a raw big-endian 32-byte storage key; the hash that
// indexes the storage trie is keccak of these bytes (see HashData).
type StorageKey [32]byte

func (k StorageKey) Bytes() []byte { return k[:] }

func (a Address) Format(f fmt.State, c rune) {
	fmt.Fprintf(f, "%s", a.String())
}

func (h Hash) Format(f fmt.State, c rune) {
	fmt.Fprintf(f, "%s", h.String())
}
