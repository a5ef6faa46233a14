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
	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes each input slice concatenated, matching the RLP/trie
// hashing convention used throughout the pack (e.g. tests/state_test_util.go
// imports the same golang.org/x/crypto/sha3 package for this purpose).
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

func Keccak256Hash(data ...[]byte) (h Hash) {
	copy(h[:], Keccak256(data...))
	return h
}

// HashData is the storage-key to trie-key mapping from spec §3: keys are
// never stored raw, only their keccak hash indexes the trie.
func HashData(key []byte) Hash {
	return Keccak256Hash(key)
}

// EmptyCodeHash is keccak256 of the empty byte string; an account whose
// code_hash equals this value has no code (spec §3 "empty" definition).
var EmptyCodeHash = Keccak256Hash(nil)

// EmptyRootHash is the keccak256 of RLP-encoded empty trie node, the
// storage_root of an account with no storage.
var EmptyRootHash = Hash{0x56, 0xe8, 0x1f, 0x17, 0x1b, 0xcc, 0x55, 0xa6,
	0xff, 0x83, 0x45, 0xe6, 0x92, 0xc0, 0xf8, 0x6e,
	0x5b, 0x48, 0xe0, 0x1b, 0x99, 0x6c, 0xad, 0xc0,
	0x01, 0x62, 0x2f, 0xb5, 0xe3, 0x63, 0xb4, 0x21}
