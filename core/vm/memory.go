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

// Memory is the per-frame byte-addressed, word-expanding scratch space
// from spec §4.4 ("expansion charged quadratically past a linear
// allowance").
type Memory struct {
	store []byte
}

func newMemory() *Memory { return &Memory{} }

func (m *Memory) Len() int { return len(m.store) }

// Resize grows the memory to at least size bytes, zero-filled. Callers
// must have already paid the expansion gas cost via memoryGasCost.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	m.Resize(offset + size)
	copy(m.store[offset:offset+size], value)
}

func (m *Memory) Get(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	if int64(len(m.store)) > offset {
		copy(out, m.store[offset:])
	}
	return out
}

func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// memoryWordCount rounds a byte size up to whole 32-byte words.
func memoryWordCount(size uint64) uint64 {
	return (size + 31) / 32
}

// memoryGasCost returns the total cost of the memory being at least
// newSize bytes, applying the linear-plus-quadratic formula; callers
// pass only the marginal cost (new total minus the frame's last-charged
// total) to the gas pool.
func memoryGasCost(newSize uint64) uint64 {
	words := memoryWordCount(newSize)
	linear := words * GasMemory
	quadratic := (words * words) / 512
	return linear + quadratic
}
