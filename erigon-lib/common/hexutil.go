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
	"encoding/hex"
	"errors"
)

var ErrOddLength = errors.New("hex string of odd length")

// FromHex decodes a 0x-prefixed (or bare) hex string, following the same
// HexOrDecimal convention as erigon-lib/common/math.ParseUint64.
func FromHex(s string) ([]byte, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

func ToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// UnprefixedHash marshals/unmarshals a Hash without the 0x prefix, as used
// by the ef-test JSON fixtures (stPostState.Root in the teacher's
// tests/state_test_util.go).
type UnprefixedHash Hash

func (h UnprefixedHash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

func (h *UnprefixedHash) UnmarshalText(input []byte) error {
	dec, err := hex.DecodeString(string(input))
	if err != nil {
		return err
	}
	copy(h[HashLength-len(dec):], dec)
	return nil
}
