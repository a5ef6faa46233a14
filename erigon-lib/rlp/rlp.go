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

// Package rlp implements the Recursive Length Prefix encoding used to
// serialize trie nodes, accounts, transactions, and headers (spec §3,
// C1). There is no third-party RLP library in the examples pack to wire
// here; every implementation in the corpus (go-ethereum, erigon) rolls
// its own, so this one is stdlib-only by the same convention — see
// DESIGN.md's C1 entry for the explicit justification.
package rlp

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrNegativeLength = errors.New("rlp: negative length")
	ErrUnexpectedEOF  = errors.New("rlp: unexpected end of input")
	ErrNonCanonical   = errors.New("rlp: non-canonical size/length")
)

// EncodeBytes produces the RLP encoding of a single byte string.
func EncodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(encodeLength(len(b), 0x80), b...)
}

// List wraps an already-concatenated sequence of RLP items in a list
// header, per the RLP list-prefix rules.
func List(items ...[]byte) []byte {
	var body []byte
	for _, it := range items {
		body = append(body, it...)
	}
	return append(encodeLength(len(body), 0xc0), body...)
}

func encodeLength(l int, offset byte) []byte {
	if l < 56 {
		return []byte{offset + byte(l)}
	}
	lenBytes := uintToMinimalBytes(uint64(l))
	return append([]byte{offset + 55 + byte(len(lenBytes))}, lenBytes...)
}

func uintToMinimalBytes(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var b [8]byte
	n := 8
	for v > 0 {
		n--
		b[n] = byte(v)
		v >>= 8
	}
	return b[n:]
}

// EncodeUint64 encodes an unsigned integer using RLP's minimal big-endian
// representation (no leading zero bytes, zero itself encodes as empty).
func EncodeUint64(v uint64) []byte {
	return EncodeBytes(uintToMinimalBytes(v))
}

// Item is a decoded RLP value: either a byte string (IsList=false) or a
// list of sub-items (IsList=true, Items populated).
type Item struct {
	IsList bool
	Data   []byte
	Items  []Item
}

// Decode parses exactly one RLP item from the front of b and returns the
// remainder. Malformed input is a decode error per spec §4.1's failure
// clause ("RLP decode errors are fatal for the current operation").
func Decode(b []byte) (Item, []byte, error) {
	if len(b) == 0 {
		return Item{}, nil, ErrUnexpectedEOF
	}
	prefix := b[0]
	switch {
	case prefix < 0x80:
		return Item{Data: b[0:1]}, b[1:], nil
	case prefix < 0xb8:
		size := int(prefix - 0x80)
		if len(b) < 1+size {
			return Item{}, nil, ErrUnexpectedEOF
		}
		return Item{Data: b[1 : 1+size]}, b[1+size:], nil
	case prefix < 0xc0:
		lenOfLen := int(prefix - 0xb7)
		if len(b) < 1+lenOfLen {
			return Item{}, nil, ErrUnexpectedEOF
		}
		size, err := bytesToUint(b[1 : 1+lenOfLen])
		if err != nil {
			return Item{}, nil, err
		}
		start := 1 + lenOfLen
		if len(b) < start+size {
			return Item{}, nil, ErrUnexpectedEOF
		}
		return Item{Data: b[start : start+size]}, b[start+size:], nil
	case prefix < 0xf8:
		size := int(prefix - 0xc0)
		if len(b) < 1+size {
			return Item{}, nil, ErrUnexpectedEOF
		}
		items, err := decodeList(b[1 : 1+size])
		if err != nil {
			return Item{}, nil, err
		}
		return Item{IsList: true, Items: items}, b[1+size:], nil
	default:
		lenOfLen := int(prefix - 0xf7)
		if len(b) < 1+lenOfLen {
			return Item{}, nil, ErrUnexpectedEOF
		}
		size, err := bytesToUint(b[1 : 1+lenOfLen])
		if err != nil {
			return Item{}, nil, err
		}
		start := 1 + lenOfLen
		if len(b) < start+size {
			return Item{}, nil, ErrUnexpectedEOF
		}
		items, err := decodeList(b[start : start+size])
		if err != nil {
			return Item{}, nil, err
		}
		return Item{IsList: true, Items: items}, b[start+size:], nil
	}
}

func decodeList(b []byte) ([]Item, error) {
	var items []Item
	for len(b) > 0 {
		item, rest, err := Decode(b)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		b = rest
	}
	return items, nil
}

func bytesToUint(b []byte) (int, error) {
	if len(b) > 0 && b[0] == 0 {
		return 0, ErrNonCanonical
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	if v > uint64(^uint(0)>>1) {
		return 0, fmt.Errorf("rlp: length overflow: %w", ErrNegativeLength)
	}
	return int(v), nil
}

// DecodeFull decodes a single item and errors if trailing bytes remain,
// mirroring the strict top-level decode used for node/account encodings.
func DecodeFull(b []byte) (Item, error) {
	item, rest, err := Decode(b)
	if err != nil {
		return Item{}, err
	}
	if len(rest) != 0 {
		return Item{}, io.ErrUnexpectedEOF
	}
	return item, nil
}
