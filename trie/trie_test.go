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
	"testing"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/stretchr/testify/require"
)

func TestEmptyTrieHash(t *testing.T) {
	tr := New()
	require.Equal(t, libcommon.EmptyRootHash, tr.Hash())
}

func TestInsertGetDelete(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	require.NoError(t, tr.Insert([]byte("horse"), []byte("stallion")))

	v, err := tr.Get([]byte("dog"))
	require.NoError(t, err)
	require.Equal(t, []byte("puppy"), v)

	v, err = tr.Get([]byte("doge"))
	require.NoError(t, err)
	require.Equal(t, []byte("coin"), v)

	root := tr.Hash()
	require.NotEqual(t, libcommon.EmptyRootHash, root)

	require.NoError(t, tr.Delete([]byte("doge")))
	_, err = tr.Get([]byte("doge"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestInsertOrderIndependence(t *testing.T) {
	pairs := map[string]string{
		"dog":   "puppy",
		"doge":  "coin",
		"horse": "stallion",
		"do":    "verb",
	}

	t1 := New()
	for k, v := range pairs {
		require.NoError(t, t1.Insert([]byte(k), []byte(v)))
	}

	t2 := New()
	keys := []string{"doge", "do", "horse", "dog"}
	for _, k := range keys {
		require.NoError(t, t2.Insert([]byte(k), []byte(pairs[k])))
	}

	require.Equal(t, t1.Hash(), t2.Hash())
}

func TestSparseBuilderMatchesIncremental(t *testing.T) {
	incr := New()
	keys := [][]byte{
		[]byte("alpha"), []byte("bravo"), []byte("charlie"), []byte("delta"),
	}
	vals := [][]byte{
		[]byte("1"), []byte("2"), []byte("3"), []byte("4"),
	}
	for i, k := range keys {
		require.NoError(t, incr.Insert(k, vals[i]))
	}

	sorted := sortKV(keys, vals)
	sb := NewSparseBuilder()
	for _, kv := range sorted {
		require.NoError(t, sb.Add(kv.Key, kv.Val))
	}
	sparse := sb.Finish()

	require.Equal(t, incr.Hash(), sparse.Hash())
}

func sortKV(keys, vals [][]byte) []KV {
	out := make([]KV, len(keys))
	for i := range keys {
		out[i] = KV{Key: keys[i], Val: vals[i]}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && string(out[j].Key) < string(out[j-1].Key); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func TestProveVerify(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	require.NoError(t, tr.Insert([]byte("horse"), []byte("stallion")))

	root := tr.Hash()
	proof, err := tr.Prove([]byte("doge"))
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	val, err := VerifyProof(root.Bytes(), []byte("doge"), proof)
	require.NoError(t, err)
	require.Equal(t, []byte("coin"), val)
}
