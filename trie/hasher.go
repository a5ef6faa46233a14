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
	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/rlp"
)

// hasher recursively RLP-encodes and keccak-hashes a subtree. Per spec
// §4.3's "canonical RLP encoding of each node determines its hash",
// children whose RLP encoding is 32 bytes or longer are replaced by a
// hashNode reference; shorter children are embedded directly (the standard
// Ethereum MPT "inline small nodes" rule).
type hasher struct{}

func newHasher() *hasher { return &hasher{} }

// hash returns (possibly cached) hashed copy of n along with its raw RLP
// encoding. force is true at the trie root: the root is always hashed by
// reference regardless of its encoded size.
func (h *hasher) hash(n node, force bool) (node, node) {
	if n == nil {
		return hashNode(libcommon.EmptyRootHash.Bytes()), valueNode(nil)
	}
	if hn, dirty := n.cache(); hn != nil && !dirty {
		if len(hn) < 32 && !force {
			return n, n
		}
		return hn, n
	}

	var collapsed, cached node
	switch cn := n.(type) {
	case *shortNode:
		collapsed, cached = h.hashShortNodeChildren(cn)
	case *fullNode:
		collapsed, cached = h.hashFullNodeChildren(cn)
	default:
		return n, n
	}
	enc := h.encodedBytes(collapsed)
	if len(enc) < 32 && !force {
		return collapsed, cached
	}
	hashed := hashNode(libcommon.Keccak256(enc))
	if cn, ok := cached.(*shortNode); ok {
		cn.flags.hash = hashed
		cn.flags.dirty = false
	} else if cn, ok := cached.(*fullNode); ok {
		cn.flags.hash = hashed
		cn.flags.dirty = false
	}
	return hashed, cached
}

func (h *hasher) hashShortNodeChildren(n *shortNode) (node, node) {
	collapsed, cached := n.copy(), n.copy()
	collapsed.Key = hexToCompact(n.Key)
	switch v := n.Val.(type) {
	case *shortNode, *fullNode:
		collapsed.Val, cached.Val = h.hash(n.Val, false)
	case valueNode:
		collapsed.Val = v
	case hashNode:
		collapsed.Val = v
	default:
		collapsed.Val = n.Val
	}
	return collapsed, cached
}

func (h *hasher) hashFullNodeChildren(n *fullNode) (node, node) {
	collapsed, cached := n.copy(), n.copy()
	for i := 0; i < 16; i++ {
		if n.Children[i] != nil {
			collapsed.Children[i], cached.Children[i] = h.hash(n.Children[i], false)
		}
	}
	collapsed.Children[16] = n.Children[16]
	return collapsed, cached
}

// encodedBytes produces the canonical RLP form of a collapsed node.
func (h *hasher) encodedBytes(n node) []byte {
	switch n := n.(type) {
	case *shortNode:
		return rlp.List(rlp.EncodeBytes(n.Key), childRLP(n.Val))
	case *fullNode:
		items := make([][]byte, 17)
		for i := 0; i < 16; i++ {
			items[i] = childRLP(n.Children[i])
		}
		if n.Children[16] != nil {
			items[16] = childRLP(n.Children[16])
		} else {
			items[16] = rlp.EncodeBytes(nil)
		}
		return rlp.List(items...)
	case hashNode:
		return rlp.EncodeBytes(n)
	case valueNode:
		return rlp.EncodeBytes(n)
	default:
		return rlp.EncodeBytes(nil)
	}
}

func childRLP(n node) []byte {
	switch n := n.(type) {
	case nil:
		return rlp.EncodeBytes(nil)
	case hashNode:
		return rlp.EncodeBytes(n)
	case valueNode:
		return rlp.EncodeBytes(n)
	case *shortNode, *fullNode:
		enc := newHasher().encodedBytes(n)
		if len(enc) < 32 {
			return enc // embedded raw, not wrapped as a string
		}
		return rlp.EncodeBytes(libcommon.Keccak256(enc))
	default:
		return rlp.EncodeBytes(nil)
	}
}
