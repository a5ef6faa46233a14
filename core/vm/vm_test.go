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

import (
	"testing"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// memStateDB is a minimal in-memory StateDB for interpreter-level
// tests, isolated from the real C4/C5 storage stack.
type memStateDB struct {
	balances map[libcommon.Address]*uint256.Int
	nonces   map[libcommon.Address]uint64
	code     map[libcommon.Address][]byte
	storage  map[libcommon.Address]map[libcommon.Hash]libcommon.Hash
	access   map[libcommon.Address]bool
	slots    map[libcommon.Address]map[[32]byte]bool
	refund   uint64
}

func newMemStateDB() *memStateDB {
	return &memStateDB{
		balances: map[libcommon.Address]*uint256.Int{},
		nonces:   map[libcommon.Address]uint64{},
		code:     map[libcommon.Address][]byte{},
		storage:  map[libcommon.Address]map[libcommon.Hash]libcommon.Hash{},
		access:   map[libcommon.Address]bool{},
		slots:    map[libcommon.Address]map[[32]byte]bool{},
	}
}

func (m *memStateDB) GetBalance(a libcommon.Address) *uint256.Int {
	if v, ok := m.balances[a]; ok {
		return v
	}
	return new(uint256.Int)
}
func (m *memStateDB) AddBalance(a libcommon.Address, v *uint256.Int) {
	m.balances[a] = new(uint256.Int).Add(m.GetBalance(a), v)
}
func (m *memStateDB) SubBalance(a libcommon.Address, v *uint256.Int) {
	m.balances[a] = new(uint256.Int).Sub(m.GetBalance(a), v)
}
func (m *memStateDB) GetNonce(a libcommon.Address) uint64     { return m.nonces[a] }
func (m *memStateDB) SetNonce(a libcommon.Address, n uint64)  { m.nonces[a] = n }
func (m *memStateDB) GetCode(a libcommon.Address) []byte      { return m.code[a] }
func (m *memStateDB) GetCodeHash(a libcommon.Address) libcommon.Hash {
	return libcommon.Keccak256Hash(m.code[a])
}
func (m *memStateDB) GetCodeSize(a libcommon.Address) int       { return len(m.code[a]) }
func (m *memStateDB) SetCode(a libcommon.Address, code []byte)  { m.code[a] = code }
func (m *memStateDB) GetState(a libcommon.Address, k libcommon.Hash) libcommon.Hash {
	if s, ok := m.storage[a]; ok {
		return s[k]
	}
	return libcommon.Hash{}
}
func (m *memStateDB) SetState(a libcommon.Address, k, v libcommon.Hash) {
	if m.storage[a] == nil {
		m.storage[a] = map[libcommon.Hash]libcommon.Hash{}
	}
	m.storage[a][k] = v
}
func (m *memStateDB) GetCommittedState(a libcommon.Address, k libcommon.Hash) libcommon.Hash {
	return m.GetState(a, k)
}
func (m *memStateDB) GetTransientState(a libcommon.Address, k libcommon.Hash) libcommon.Hash {
	return libcommon.Hash{}
}
func (m *memStateDB) SetTransientState(a libcommon.Address, k, v libcommon.Hash) {}
func (m *memStateDB) Exist(a libcommon.Address) bool {
	_, ok := m.balances[a]
	_, ok2 := m.code[a]
	return ok || ok2
}
func (m *memStateDB) Empty(a libcommon.Address) bool {
	return m.GetBalance(a).IsZero() && m.GetNonce(a) == 0 && len(m.GetCode(a)) == 0
}
func (m *memStateDB) CreateAccount(a libcommon.Address)          { m.balances[a] = m.GetBalance(a) }
func (m *memStateDB) Selfdestruct(a libcommon.Address)           { delete(m.balances, a); delete(m.code, a) }
func (m *memStateDB) HasSelfdestructed(a libcommon.Address) bool { return false }
func (m *memStateDB) Snapshot() int                              { return 0 }
func (m *memStateDB) RevertToSnapshot(id int)                    {}
func (m *memStateDB) AddRefund(g uint64)                         { m.refund += g }
func (m *memStateDB) SubRefund(g uint64)                         { m.refund -= g }
func (m *memStateDB) GetRefund() uint64                          { return m.refund }
func (m *memStateDB) AddLog(a libcommon.Address, topics []libcommon.Hash, data []byte) {}
func (m *memStateDB) AddressInAccessList(a libcommon.Address) bool { return m.access[a] }
func (m *memStateDB) AddAddressToAccessList(a libcommon.Address)   { m.access[a] = true }
func (m *memStateDB) SlotInAccessList(a libcommon.Address, k [32]byte) bool {
	return m.slots[a] != nil && m.slots[a][k]
}
func (m *memStateDB) AddSlotToAccessList(a libcommon.Address, k [32]byte) {
	if m.slots[a] == nil {
		m.slots[a] = map[[32]byte]bool{}
	}
	m.slots[a][k] = true
}

func newTestEVM(db *memStateDB) *EVM {
	return NewEVM(
		BlockContext{
			GetHash:     func(uint64) libcommon.Hash { return libcommon.Hash{} },
			GasLimit:    30_000_000,
			Difficulty:  new(uint256.Int),
			BaseFee:     new(uint256.Int),
			BlockNumber: 1,
		},
		TxContext{Origin: libcommon.Address{1}, GasPrice: new(uint256.Int)},
		db,
		ChainConfig{ChainID: uint256.NewInt(1)},
	)
}

// TestPushAddReturn runs PUSH1 2 PUSH1 3 ADD PUSH1 0 MSTORE PUSH1 32
// PUSH1 0 RETURN and checks the return word is 5.
func TestPushAddReturn(t *testing.T) {
	code := []byte{
		byte(PUSH1), 2,
		byte(PUSH1), 3,
		byte(ADD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	db := newMemStateDB()
	caller := libcommon.Address{0xca}
	addr := libcommon.Address{0xc0}
	db.code[addr] = code
	db.balances[caller] = uint256.NewInt(1000)

	evm := newTestEVM(db)
	callerContract := NewContract(caller, caller, new(uint256.Int), 1_000_000, nil)
	ret, _, err := evm.Call(callerContract, addr, nil, 1_000_000, new(uint256.Int))
	require.NoError(t, err)
	want := uint256.NewInt(5).Bytes32()
	require.Equal(t, want[:], ret)
}

func TestInvalidJumpReverts(t *testing.T) {
	code := []byte{byte(PUSH1), 5, byte(JUMP)}
	db := newMemStateDB()
	caller := libcommon.Address{0xca}
	addr := libcommon.Address{0xc0}
	db.code[addr] = code

	evm := newTestEVM(db)
	callerContract := NewContract(caller, caller, new(uint256.Int), 1_000_000, nil)
	_, _, err := evm.Call(callerContract, addr, nil, 1_000_000, new(uint256.Int))
	require.ErrorIs(t, err, ErrInvalidJump)
}

func TestCreateAddressDeterministic(t *testing.T) {
	sender := libcommon.Address{0x01}
	a1 := CreateAddress(sender, 0)
	a2 := CreateAddress(sender, 0)
	require.Equal(t, a1, a2)
	a3 := CreateAddress(sender, 1)
	require.NotEqual(t, a1, a3)
}

func TestCreate2AddressDeterministic(t *testing.T) {
	sender := libcommon.Address{0x01}
	salt := uint256.NewInt(7)
	initCodeHash := libcommon.Keccak256([]byte{0x60, 0x00})
	a1 := CreateAddress2(sender, salt, initCodeHash)
	a2 := CreateAddress2(sender, salt, initCodeHash)
	require.Equal(t, a1, a2)
}

func TestAnalyzeJumpdestsSkipsPushData(t *testing.T) {
	// PUSH1 0x5b (data byte equal to JUMPDEST's opcode value) then a
	// real JUMPDEST.
	code := []byte{byte(PUSH1), byte(JUMPDEST), byte(JUMPDEST)}
	dests := analyzeJumpdests(code)
	_, atData := dests[1]
	_, atReal := dests[2]
	require.False(t, atData)
	require.True(t, atReal)
}
