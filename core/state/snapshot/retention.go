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

package snapshot

// retentionUnit is the granularity at which Cap's retention window is
// rounded, mirroring the kept turbo/snapshotsync/snapshotsync.go's
// adjustBlockPrune, which floors a requested block-prune distance to a
// multiple of the segment merge unit so partially-filled segments are
// never targeted for pruning. Here the "segment" is a batch of diff
// layers rather than a frozen block range, but the same
// clamp-then-floor shape avoids flattening a partially-built retention
// window.
const retentionUnit = 8

// adjustRetentionDepth clamps requested to at least minDepth and then
// floors it to a multiple of retentionUnit, the same two-step shape as
// adjustBlockPrune(blocks, minBlocksToDownload uint64) uint64 in the kept
// snapshotsync.go: clamp against a floor, then round down to the unit.
func adjustRetentionDepth(requested, minDepth int) int {
	if requested < minDepth {
		requested = minDepth
	}
	return requested - requested%retentionUnit
}

// RetentionPolicy decides, for a tree whose head is at headDepth layers
// above the disk layer, how many of the deepest layers Cap should
// flatten in one pass. It rounds the flatten batch to retentionUnit so
// small, frequent Cap calls coalesce their KV writes instead of
// persisting one layer at a time.
type RetentionPolicy struct {
	// KeepDepth is the spec's N: layers within KeepDepth of head stay
	// in-memory diffs.
	KeepDepth int
}

// FlattenBatch returns how many of the oldest in-memory layers beyond
// KeepDepth should be flattened in the current Cap call, given the
// chain currently holds chainDepth diff layers above the disk layer.
func (p RetentionPolicy) FlattenBatch(chainDepth int) int {
	if chainDepth <= p.KeepDepth {
		return 0
	}
	excess := chainDepth - p.KeepDepth
	return adjustRetentionDepth(excess, 1)
}
