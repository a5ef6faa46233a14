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

// Package chain holds the fork schedule and blob-gas market parameters,
// mirrored from the import shape of consensus/misc/eip4844.go
// (github.com/erigontech/erigon-lib/chain) kept from the teacher.
package chain

// Fork is a single hard-fork enum value, derived from a block's
// timestamp/number per spec §6 ("the active fork at a block is the
// largest fork whose activation ≤ the block's corresponding field").
type Fork int

const (
	Frontier Fork = iota
	Homestead
	TangerineWhistle
	SpuriousDragon
	Byzantium
	Constantinople
	Istanbul
	Berlin
	London
	Paris
	Shanghai
	Cancun
	Prague
)

// ForkSchedule declares, for each fork, whether it activates by block
// number (pre-merge forks) or by timestamp (post-merge forks).
type ForkSchedule struct {
	ByBlock map[Fork]uint64
	ByTime  map[Fork]uint64
}

// BlobScheduleEntry is the per-fork blob market configuration from spec
// §6 ("a blob schedule (target, max, base-fee-update-fraction) per fork").
type BlobScheduleEntry struct {
	Target                  uint64
	Max                     uint64
	BaseFeeUpdateFraction   uint64
	MinBlobGasPrice         uint64
}

// Config is the in-memory chain configuration: fork schedule, chain id,
// and blob schedule. Loading it from a genesis/TOML file is CLI/config
// territory (explicit non-goal); the value type itself is ambient and
// required by every other component (spec SPEC_FULL.md §3 "added").
type Config struct {
	ChainID      uint64
	ChainName    string
	Schedule     ForkSchedule
	BlobSchedule map[Fork]BlobScheduleEntry
}

// IsForkActive reports whether fork f is active at the given block
// number/timestamp, per the "largest activation ≤ field" rule.
func (c *Config) IsForkActive(f Fork, blockNumber, blockTime uint64) bool {
	if at, ok := c.Schedule.ByBlock[f]; ok {
		return blockNumber >= at
	}
	if at, ok := c.Schedule.ByTime[f]; ok {
		return blockTime >= at
	}
	return false
}

// ActiveFork returns the highest fork active at (blockNumber, blockTime).
func (c *Config) ActiveFork(blockNumber, blockTime uint64) Fork {
	active := Frontier
	for f := Frontier; f <= Prague; f++ {
		if c.IsForkActive(f, blockNumber, blockTime) {
			active = f
		}
	}
	return active
}

func (c *Config) GetTargetBlobGasPerBlock(headerTime uint64) uint64 {
	return c.blobEntry(headerTime).Target * 131072 // GasPerBlob, kept in fixedgas-equivalent form
}

func (c *Config) GetMinBlobGasPrice() uint64 {
	return 1
}

func (c *Config) GetBlobGasPriceUpdateFraction(headerTime uint64) uint64 {
	e := c.blobEntry(headerTime)
	if e.BaseFeeUpdateFraction == 0 {
		return 3338477 // Cancun default (EIP-4844)
	}
	return e.BaseFeeUpdateFraction
}

func (c *Config) blobEntry(headerTime uint64) BlobScheduleEntry {
	fork := Cancun
	for f := range c.BlobSchedule {
		if f > fork && c.IsForkActive(f, 0, headerTime) {
			fork = f
		}
	}
	return c.BlobSchedule[fork]
}

// DefaultMainnet returns a Config approximating Ethereum mainnet's fork
// schedule, used by tests and genesis import.
func DefaultMainnet() *Config {
	return &Config{
		ChainID:   1,
		ChainName: "mainnet",
		Schedule: ForkSchedule{
			ByBlock: map[Fork]uint64{
				Frontier: 0, Homestead: 1150000, TangerineWhistle: 2463000,
				SpuriousDragon: 2675000, Byzantium: 4370000, Constantinople: 7280000,
				Istanbul: 9069000, Berlin: 12244000, London: 12965000,
			},
			ByTime: map[Fork]uint64{
				Shanghai: 1681338455, Cancun: 1710338135, Prague: 1746612311,
			},
		},
		BlobSchedule: map[Fork]BlobScheduleEntry{
			Cancun: {Target: 3, Max: 6, BaseFeeUpdateFraction: 3338477},
			Prague: {Target: 6, Max: 9, BaseFeeUpdateFraction: 5007716},
		},
	}
}
