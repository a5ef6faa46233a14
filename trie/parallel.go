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
	"sync"

	libcommon "github.com/execore/execore/erigon-lib/common"
	roaring "github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

// subtrieCount is the spec §4.3 "partition the trie into 256 subtries at
// depth 2 (two nibbles)" fan-out for ParallelHash.
const subtrieCount = 256

// ParallelHash computes the root hash of a fully built trie by hashing its
// 256 depth-2 subtries concurrently and then hashing the two-level branch
// structure above them, following the spec's "partition by the first two
// nibbles of the path" rule. It is equivalent to Hash() but amortizes
// root recomputation across multiple goroutines for large tries.
//
// changedPrefixes, if non-nil, restricts work to the subtries whose
// 2-nibble prefix (0..255) is marked in the bitmap; prefixes outside the
// set reuse their previously cached hash. This is the "only rehash
// touched subtries" fast path used by block-execution's warm commit.
func (t *Trie) ParallelHash(changedPrefixes *roaring.Bitmap) libcommon.Hash {
	if t.root == nil {
		return libcommon.EmptyRootHash
	}
	top, ok := t.root.(*fullNode)
	if !ok {
		// Root is shallower than two nibbles (a tiny trie); sequential
		// hashing is already O(1) in that case.
		return t.Hash()
	}

	var mu sync.Mutex
	g := new(errgroup.Group)

	for i := 0; i < 16; i++ {
		child := top.Children[i]
		second, ok := child.(*fullNode)
		if !ok {
			// Fewer than 16 grandchildren under this nibble: hash it whole
			// on the current goroutine, it is cheap.
			_, cn := newHasher().hash(child, false)
			top.Children[i] = cn
			continue
		}
		for j := 0; j < 16; j++ {
			j, gc := j, second.Children[j]
			prefix := i*16 + j
			if changedPrefixes != nil && !changedPrefixes.Contains(uint32(prefix)) {
				continue
			}
			g.Go(func() error {
				_, cn := newHasher().hash(gc, false)
				mu.Lock()
				second.Children[j] = cn
				mu.Unlock()
				return nil
			})
		}
		top.Children[i] = second
	}
	_ = g.Wait() // hash() never returns an error; present for the errgroup contract

	hashed, cached := newHasher().hash(top, true)
	t.root = cached
	if hn, ok := hashed.(hashNode); ok {
		return hashNodeHash(hn)
	}
	return libcommon.Keccak256Hash(newHasher().encodedBytes(hashed))
}
