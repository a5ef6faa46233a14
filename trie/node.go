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

// Package trie implements the Merkle Patricia Trie from spec §4.3: an
// incremental path-compressed 16-ary radix trie over keccak(key), plus a
// sparse bulk-load mode and a 256-way parallel root computation. Node
// shapes (shortNode/fullNode/hashNode/valueNode) and the dirty-flag caching
// scheme follow the wider ecosystem's go-ethereum/erigon trie lineage; no
// trie-specific file was retrieved into the example pack (see DESIGN.md),
// so this package is grounded on the teacher's own RLP codec, hashing and
// error-handling conventions rather than a literal source file.
package trie

import (
	"fmt"

	libcommon "github.com/execore/execore/erigon-lib/common"
)

// node is the common interface implemented by every trie node shape.
type node interface {
	fstring(indent string) string
	cache() (hashNode, bool)
}

type (
	// fullNode is a 16-way branch plus an optional value at the empty key.
	fullNode struct {
		Children [17]node // 16 nibble slots + value slot
		flags    nodeFlag
	}

	// shortNode is a path-compressed run of nibbles (extension or leaf).
	shortNode struct {
		Key   []byte // hex-encoded nibbles, possibly with terminator
		Val   node
		flags nodeFlag
	}

	// hashNode is a reference to a node stored elsewhere, by its hash.
	hashNode []byte

	// valueNode is a raw stored value (account RLP or storage slot RLP).
	valueNode []byte
)

// nodeFlag carries the dirty bit and a cached hash once computed, so that
// Hash() need not re-hash unchanged subtrees on every call.
type nodeFlag struct {
	hash  hashNode
	dirty bool
}

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}
func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

func (n *fullNode) fstring(ind string) string {
	resp := fmt.Sprintf("[\n%s  ", ind)
	for i, c := range n.Children {
		if c == nil {
			resp += fmt.Sprintf("%s: <nil> ", indices[i])
			continue
		}
		resp += fmt.Sprintf("%s: %v", indices[i], c.fstring(ind+"  "))
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}

func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %v} ", n.Key, n.Val.fstring(ind+"  "))
}

func (n hashNode) fstring(ind string) string  { return fmt.Sprintf("<%x> ", []byte(n)) }
func (n valueNode) fstring(ind string) string { return fmt.Sprintf("%x ", []byte(n)) }

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f", "[17]"}

// hashNodeHash is the 32-byte hash carried by a hashNode. A node shorter
// than 32 bytes is left-padded with zeros by BytesToHash.
func hashNodeHash(n hashNode) libcommon.Hash {
	return libcommon.BytesToHash(n)
}

// keybytesToHex expands a byte key into nibbles with a trailing 16
// terminator nibble marking a leaf.
func keybytesToHex(str []byte) []byte {
	l := len(str)*2 + 1
	out := make([]byte, l)
	for i, b := range str {
		out[i*2] = b / 16
		out[i*2+1] = b % 16
	}
	out[l-1] = 16
	return out
}

// hexToKeybytes is the inverse of keybytesToHex for a terminated nibble key.
func hexToKeybytes(hex []byte) []byte {
	if hasTerm(hex) {
		hex = hex[:len(hex)-1]
	}
	if len(hex)&1 != 0 {
		panic("trie: odd length hex key")
	}
	key := make([]byte, len(hex)/2)
	decodeNibbles(hex, key)
	return key
}

func decodeNibbles(nibbles []byte, bytes []byte) {
	for bi, ni := 0, 0; ni < len(nibbles); bi, ni = bi+1, ni+2 {
		bytes[bi] = nibbles[ni]<<4 | nibbles[ni+1]
	}
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	var i, length = 0, len(a)
	if len(b) < length {
		length = len(b)
	}
	for ; i < length; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == 16
}
