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

import "github.com/execore/execore/erigon-lib/common/fixedgas"

// Static opcode gas costs (spec §4.4 "every opcode has a static cost
// table"). Named the way go-ethereum's params package does.
const (
	GasQuickStep   = 2
	GasFastestStep = 3
	GasFastStep    = 5
	GasMidStep     = 8
	GasSlowStep    = 10
	GasExtStep     = 20

	GasMemory       = 3
	GasKeccak256    = 30
	GasKeccak256Word = 6
	GasCopy          = 3
	GasLog           = 375
	GasLogData       = 8
	GasLogTopic      = 375
	GasCreate        = 32000
	GasCreateData    = 200
	GasSelfdestruct  = 5000
	GasJumpdest      = 1

	GasColdSload          = fixedgas.ColdSloadCost
	GasColdAccountAccess  = fixedgas.ColdAccountAccessCost
	GasWarmStorageRead    = fixedgas.WarmStorageReadCost
	GasSstoreSetGas       = 20000
	GasSstoreResetGas     = 2900
	GasSstoreClearRefund  = 4800

	CallStipend = 2300
)

// callGas implements the spec's "63/64 rule": a CALL-family opcode may
// forward at most gas - gas/64 of the caller's remaining gas.
func callGas(availableGas, requestedGas uint64) uint64 {
	available := availableGas - availableGas/64
	if requestedGas > available {
		return available
	}
	return requestedGas
}
