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
	"errors"

	libcommon "github.com/execore/execore/erigon-lib/common"
)

var ErrKeyNotFound = errors.New("trie: key not found")

// Trie is the incremental Merkle Patricia Trie from spec §4.3: Insert,
// Delete and Hash with an amortized-cheap root recomputation (dirty nodes
// only; unchanged subtrees keep their cached hash).
type Trie struct {
	root node
}

// New returns an empty trie, the spec §4.3 "empty-trie root" state.
func New() *Trie { return &Trie{} }

// Get looks up key (pre-image, not yet hashed) and returns its stored
// value, or ErrKeyNotFound.
func (t *Trie) Get(key []byte) ([]byte, error) {
	v, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if err == nil && didResolve {
		t.root = newroot
	}
	return v, err
}

func (t *Trie) get(origNode node, key []byte, pos int) (value []byte, newnode node, didResolve bool, err error) {
	switch n := origNode.(type) {
	case nil:
		return nil, nil, false, ErrKeyNotFound
	case valueNode:
		return n, n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytesEqual(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, ErrKeyNotFound
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			n = n.copy()
			n.Val = newnode
		}
		return value, n, didResolve, err
	case *fullNode:
		value, newnode, didResolve, err = t.get(n.Children[key[pos]], key, pos+1)
		if err == nil && didResolve {
			n = n.copy()
			n.Children[key[pos]] = newnode
		}
		return value, n, didResolve, err
	case hashNode:
		// A reference to an unresolved disk node. The in-memory-only trie
		// used by the execution pipeline always holds fully resolved
		// subtrees, so this path means the caller is walking a pruned
		// result and should treat it as absent.
		return nil, n, false, ErrKeyNotFound
	default:
		return nil, nil, false, ErrKeyNotFound
	}
}

// Insert adds or updates key -> value. An empty value deletes key, as
// Delete does.
func (t *Trie) Insert(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	k := keybytesToHex(key)
	newroot, _, err := t.insert(t.root, k, valueNode(value))
	if err != nil {
		return err
	}
	t.root = newroot
	return nil
}

func (t *Trie) insert(n node, key []byte, value node) (node, bool, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			return value, !bytesEqual(v, value.(valueNode)), nil
		}
		return value, true, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			newVal, dirty, err := t.insert(n.Val, key[matchlen:], value)
			if err != nil {
				return nil, false, err
			}
			return &shortNode{Key: n.Key, Val: newVal, flags: nodeFlag{dirty: true}}, dirty, nil
		}
		branch := &fullNode{flags: nodeFlag{dirty: true}}
		var err error
		branch.Children[n.Key[matchlen]], _, err = t.insert(nil, n.Key[matchlen+1:], n.Val)
		if err != nil {
			return nil, false, err
		}
		branch.Children[key[matchlen]], _, err = t.insert(nil, key[matchlen+1:], value)
		if err != nil {
			return nil, false, err
		}
		if matchlen == 0 {
			return branch, true, nil
		}
		return &shortNode{Key: key[:matchlen], Val: branch, flags: nodeFlag{dirty: true}}, true, nil

	case *fullNode:
		newChild, dirty, err := t.insert(n.Children[key[0]], key[1:], value)
		if err != nil {
			return nil, false, err
		}
		cp := n.copy()
		cp.flags.dirty = true
		cp.Children[key[0]] = newChild
		return cp, dirty, nil

	case nil:
		return &shortNode{Key: key, Val: value, flags: nodeFlag{dirty: true}}, true, nil

	case hashNode:
		// Unresolved reference; the execution pipeline never inserts
		// into a partially-pruned trie, so replacing it outright is safe.
		return &shortNode{Key: key, Val: value, flags: nodeFlag{dirty: true}}, true, nil

	default:
		return nil, false, errors.New("trie: invalid node type during insert")
	}
}

// Delete removes key from the trie, collapsing any branch left with a
// single child (spec §4.3's structural-collapse requirement).
func (t *Trie) Delete(key []byte) error {
	k := keybytesToHex(key)
	newroot, _, err := t.delete(t.root, k)
	if err != nil {
		return err
	}
	t.root = newroot
	return nil
}

func (t *Trie) delete(n node, key []byte) (node, bool, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return n, false, nil // not present
		}
		if matchlen == len(key) {
			return nil, true, nil
		}
		child, dirty, err := t.delete(n.Val, key[len(n.Key):])
		if err != nil || !dirty {
			return n, false, err
		}
		switch child := child.(type) {
		case nil:
			return nil, true, nil
		case *shortNode:
			return &shortNode{Key: concat(n.Key, child.Key...), Val: child.Val, flags: nodeFlag{dirty: true}}, true, nil
		default:
			return &shortNode{Key: n.Key, Val: child, flags: nodeFlag{dirty: true}}, true, nil
		}

	case *fullNode:
		cp := n.copy()
		cp.flags.dirty = true
		newChild, dirty, err := t.delete(n.Children[key[0]], key[1:])
		if err != nil {
			return n, false, err
		}
		cp.Children[key[0]] = newChild
		if !dirty {
			return n, false, nil
		}
		// collapse a full node down to a shortNode if only one child remains
		pos := -1
		for i, c := range cp.Children {
			if c != nil {
				if pos != -1 {
					return cp, true, nil
				}
				pos = i
			}
		}
		if pos >= 0 {
			if short, ok := cp.Children[pos].(*shortNode); ok {
				k := concat([]byte{byte(pos)}, short.Key...)
				return &shortNode{Key: k, Val: short.Val, flags: nodeFlag{dirty: true}}, true, nil
			}
			return &shortNode{Key: []byte{byte(pos)}, Val: cp.Children[pos], flags: nodeFlag{dirty: true}}, true, nil
		}
		return cp, true, nil

	case valueNode, nil:
		return nil, n != nil, nil

	case hashNode:
		return n, false, nil

	default:
		return nil, false, errors.New("trie: invalid node type during delete")
	}
}

// Hash computes (and caches) the trie's Merkle root per spec §4.3.
func (t *Trie) Hash() libcommon.Hash {
	if t.root == nil {
		return libcommon.EmptyRootHash
	}
	hashed, cached := newHasher().hash(t.root, true)
	t.root = cached
	hn, ok := hashed.(hashNode)
	if !ok {
		// Root encoding was under 32 bytes: hash its canonical RLP directly.
		return libcommon.Keccak256Hash(newHasher().encodedBytes(hashed))
	}
	return hashNodeHash(hn)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func concat(a []byte, b ...byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
