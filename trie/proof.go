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

// Prove returns the ordered list of RLP-encoded nodes along the path to
// key, the standard Merkle proof shape used by eth_getProof and the
// external-interface surface of spec §6.
func (t *Trie) Prove(key []byte) ([][]byte, error) {
	var proof [][]byte
	hex := keybytesToHex(key)
	n := t.root
	for len(hex) > 0 && n != nil {
		switch cur := n.(type) {
		case *shortNode:
			if len(hex) < len(cur.Key) || !bytesEqual(cur.Key, hex[:len(cur.Key)]) {
				n = nil
				continue
			}
			proof = append(proof, encodeProofNode(cur))
			hex = hex[len(cur.Key):]
			n = cur.Val
		case *fullNode:
			proof = append(proof, encodeProofNode(cur))
			n = cur.Children[hex[0]]
			hex = hex[1:]
		case valueNode:
			n = nil
		case hashNode:
			return nil, ErrKeyNotFound
		default:
			n = nil
		}
	}
	return proof, nil
}

func encodeProofNode(n node) []byte {
	h := newHasher()
	switch n := n.(type) {
	case *shortNode:
		collapsed, _ := h.hashShortNodeChildren(n)
		return h.encodedBytes(collapsed)
	case *fullNode:
		collapsed, _ := h.hashFullNodeChildren(n)
		return h.encodedBytes(collapsed)
	default:
		return rlp.EncodeBytes(nil)
	}
}

// VerifyProof checks that proof resolves key -> value under root. It
// re-derives each referenced node's hash and checks it matches the
// expected child reference, the inverse of Prove.
func VerifyProof(root []byte, key []byte, proof [][]byte) ([]byte, error) {
	hex := keybytesToHex(key)
	wantHash := root
	for _, encNode := range proof {
		item, err := rlp.DecodeFull(encNode)
		if err != nil {
			return nil, err
		}
		gotHash := hashOfEncoded(encNode)
		if len(wantHash) == 32 && !bytesEqual(gotHash, wantHash) {
			return nil, ErrKeyNotFound
		}
		next, rest, val, ok := stepProofNode(item, hex)
		if !ok {
			return nil, ErrKeyNotFound
		}
		if val != nil {
			return val, nil
		}
		hex = rest
		wantHash = next
	}
	return nil, ErrKeyNotFound
}

func stepProofNode(item rlp.Item, hex []byte) (nextHash []byte, rest []byte, val []byte, ok bool) {
	if !item.IsList {
		return nil, nil, nil, false
	}
	switch len(item.Items) {
	case 2: // shortNode: [compactKey, value-or-ref]
		key := compactToHex(item.Items[0].Data)
		if len(hex) < len(key) || !bytesEqual(key, hex[:len(key)]) {
			return nil, nil, nil, false
		}
		rest = hex[len(key):]
		if hasTerm(key) {
			return nil, nil, item.Items[1].Data, true
		}
		return item.Items[1].Data, rest, nil, true
	case 17: // fullNode
		if len(hex) == 0 {
			return nil, nil, item.Items[16].Data, true
		}
		child := item.Items[hex[0]]
		return child.Data, hex[1:], nil, true
	default:
		return nil, nil, nil, false
	}
}

func hashOfEncoded(enc []byte) []byte {
	if len(enc) < 32 {
		return enc
	}
	return libcommon.Keccak256(enc)
}
