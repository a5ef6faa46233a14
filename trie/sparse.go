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

package trie

import (
	"bytes"
	"fmt"

	"github.com/tidwall/btree"
)

// KV is one sorted input record for SparseBuild: Key is the raw pre-image
// key, Val its stored value.
type KV struct {
	Key []byte
	Val []byte
}

// spineFrame is one level of the open path from the trie root down to the
// most recently inserted leaf. Sparse bulk construction (spec §4.3 "bulk
// insert of N pre-sorted leaves without per-leaf rehashing") keeps only
// this spine live; any sibling subtree whose last leaf has been emitted is
// hashed immediately and dropped from memory.
type spineFrame struct {
	path     []byte // nibble path from root to this frame
	children [17]node
}

// SparseBuilder builds a trie from keys delivered in strictly increasing
// hex-nibble order, collapsing finished branches as soon as the next key
// proves no more leaves will land under them. This is the standard
// "stack trie" construction: O(n) node allocations instead of the
// O(n log n) of repeated Insert calls, because no branch is revisited
// once its sibling space is exhausted.
//
// The open spine is additionally indexed in an ordered btree.Map keyed by
// nibble-path prefix. The builder keeps the index in step with the spine;
// nothing reads it (ParallelHash in parallel.go works on a Trie, not on
// a SparseBuilder).
type SparseBuilder struct {
	spine   []*spineFrame
	index   *btree.Map[string, int] // nibble-path prefix -> index into spine
	lastKey []byte
	hasLast bool
	root    node
}

func NewSparseBuilder() *SparseBuilder {
	return &SparseBuilder{index: btree.NewMap[string, int](32)}
}

// Add appends one leaf. Keys must arrive in strictly increasing
// lexicographic order of their hex-nibble form (i.e. of the raw key
// bytes, since keybytesToHex is order-preserving).
func (b *SparseBuilder) Add(key, val []byte) error {
	if b.hasLast && bytes.Compare(key, b.lastKey) <= 0 {
		return fmt.Errorf("trie: sparse build requires strictly increasing keys, got %x after %x", key, b.lastKey)
	}
	b.lastKey = append([]byte(nil), key...)
	b.hasLast = true

	hex := keybytesToHex(key)
	b.insertSpine(hex, valueNode(val))
	return nil
}

// insertSpine walks (or extends) the open spine to place leaf at hex,
// collapsing any frame whose nibble range has been fully consumed.
func (b *SparseBuilder) insertSpine(hex []byte, leaf node) {
	depth := commonSpineDepth(b.spine, hex)
	// Collapse every frame deeper than the divergence point: no further
	// leaf can land under them since keys arrive in increasing order.
	for len(b.spine) > depth {
		b.popFrame()
	}
	for len(b.spine) < len(hex) {
		f := &spineFrame{path: append([]byte(nil), hex[:len(b.spine)]...)}
		b.spine = append(b.spine, f)
		b.index.Set(string(f.path), len(b.spine)-1)
	}
	// Place leaf at the terminal slot (nibble 16) of the deepest frame.
	b.spine[len(hex)-1].children[hex[len(hex)-1]] = leaf
}

// commonSpineDepth returns how many of the existing spine frames still
// share the given key's prefix.
func commonSpineDepth(spine []*spineFrame, hex []byte) int {
	d := 0
	for d < len(spine) && d < len(hex)-1 {
		if int(hex[d]) != indexOfChild(spine[d]) {
			break
		}
		d++
	}
	return d
}

// indexOfChild reports which single nibble slot a frame currently holds a
// placeholder child under (the nibble that led to the next deeper frame).
func indexOfChild(f *spineFrame) int {
	for i := 0; i < 16; i++ {
		if f.children[i] != nil {
			return i
		}
	}
	return -1
}

// popFrame finalizes the deepest open frame into a node and attaches it to
// its parent (or becomes the root if the spine is now empty).
func (b *SparseBuilder) popFrame() {
	n := len(b.spine) - 1
	f := b.spine[n]
	b.spine = b.spine[:n]
	b.index.Delete(string(f.path))

	var collapsed node = collapseFullNode(f.children)
	if n == 0 {
		b.root = collapsed
		return
	}
	parent := b.spine[n-1]
	nib := f.path[len(f.path)-1]
	parent.children[nib] = collapsed
}

// collapseFullNode turns a frame's 17 slots into a fullNode, or a
// shortNode when exactly one slot is populated (standard MPT collapse).
func collapseFullNode(children [17]node) node {
	count, only := 0, -1
	for i, c := range children {
		if c != nil {
			count++
			only = i
		}
	}
	if count == 0 {
		return nil
	}
	if count == 1 && only != 16 {
		if sn, ok := children[only].(*shortNode); ok {
			return &shortNode{Key: concat([]byte{byte(only)}, sn.Key...), Val: sn.Val, flags: nodeFlag{dirty: true}}
		}
		return &shortNode{Key: []byte{byte(only)}, Val: children[only], flags: nodeFlag{dirty: true}}
	}
	fn := &fullNode{flags: nodeFlag{dirty: true}}
	fn.Children = children
	return fn
}

// Finish collapses any still-open spine frames and returns the built Trie.
func (b *SparseBuilder) Finish() *Trie {
	for len(b.spine) > 0 {
		b.popFrame()
	}
	return &Trie{root: b.root}
}
