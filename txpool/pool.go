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

// Package txpool is C10: the mempool core. Pending transactions are
// kept per-sender in nonce order over a google/btree.BTree, with a
// single container/heap priority queue across the
// whole pool driving pressure eviction, grounded on the admission and
// replacement rules of spec §4.8/§6's add_transaction/pending_by_sender.
package txpool

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/holiman/uint256"

	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/log"
	"github.com/execore/execore/core/types"
)

var (
	ErrSenderNoEOA         = errors.New("txpool: transaction has no recovered sender")
	ErrReplaceUnderpriced  = errors.New("txpool: replacement transaction underpriced")
	ErrAlreadyKnown        = errors.New("txpool: transaction already pooled")
	ErrNonceTooLow         = errors.New("txpool: nonce below the account's known pending nonce")
	ErrPoolFull            = errors.New("txpool: pool is full and the new transaction is not worth evicting for")
)

// priceBumpPercent is the minimum percentage bump a replacement
// transaction at the same sender+nonce must clear over the transaction
// it displaces, the long-standing go-ethereum TxPool replacement rule.
const priceBumpPercent = 10

// Config sets the pool's capacity, the bound that drives pressure
// eviction (spec §4.8). The replacement threshold is the fixed
// priceBumpPercent.
type Config struct {
	MaxSlots int // total pooled transaction capacity across all senders
}

func DefaultConfig() Config {
	return Config{MaxSlots: 10_000}
}

// nonceItem is one btree.Item: a sender's queue is ordered by nonce.
type nonceItem struct {
	nonce uint64
	entry *pooledTx
}

func (n *nonceItem) Less(than btree.Item) bool {
	return n.nonce < than.(*nonceItem).nonce
}

// pooledTx is one admitted transaction plus the bookkeeping the pool
// needs to evict and replace it: its position in the eviction heap and
// the monotonic arrival counter that breaks priority ties FIFO.
type pooledTx struct {
	tx      *types.Transaction
	sender  libcommon.Address
	nonce   uint64
	arrival uint64
	heapIdx int
}

// priority is the eviction heap's ordering key: transactions paying a
// lower effective tip (relative to the pool's current base fee) are
// evicted first; ties break by arrival order, oldest evicted first.
func (p *pooledTx) priority(baseFee *uint256.Int) *uint256.Int {
	return p.tx.EffectiveGasTip(baseFee)
}

// evictionHeap is a min-heap over every pooled transaction, keyed by
// priority(baseFee); Pop yields the next eviction candidate under
// pressure (spec §4.8).
type evictionHeap struct {
	items   []*pooledTx
	baseFee *uint256.Int
}

func (h *evictionHeap) Len() int { return len(h.items) }
func (h *evictionHeap) Less(i, j int) bool {
	pi, pj := h.items[i].priority(h.baseFee), h.items[j].priority(h.baseFee)
	if c := pi.Cmp(pj); c != 0 {
		return c < 0
	}
	return h.items[i].arrival < h.items[j].arrival
}
func (h *evictionHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].heapIdx = i
	h.items[j].heapIdx = j
}
func (h *evictionHeap) Push(x any) {
	entry := x.(*pooledTx)
	entry.heapIdx = len(h.items)
	h.items = append(h.items, entry)
}
func (h *evictionHeap) Pop() any {
	old := h.items
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return entry
}

// senderQueue is one sender's nonce-ordered pending transactions.
type senderQueue struct {
	nonces *btree.BTree
}

// Pool is C10's mempool core: sender -> nonce queues for ordering and
// replacement, plus one global eviction heap for capacity pressure.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	senders map[libcommon.Address]*senderQueue
	byHash  map[libcommon.Hash]*pooledTx
	evict   evictionHeap
	arrival uint64
	log     *log.Logger
}

func New(cfg Config) *Pool {
	return &Pool{
		cfg:     cfg,
		senders: make(map[libcommon.Address]*senderQueue),
		byHash:  make(map[libcommon.Hash]*pooledTx),
		evict:   evictionHeap{baseFee: new(uint256.Int)},
		log:     log.New("component", "txpool"),
	}
}

// SetBaseFee updates the reference base fee the eviction heap ranks
// transactions against (spec §4.5's admission ordering is by effective
// tip over the current base fee, not nominal gas price).
func (p *Pool) SetBaseFee(baseFee *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evict.baseFee = baseFee
	heap.Init(&p.evict)
}

// AddTransaction is spec §6's add_transaction: admits tx into its
// sender's nonce queue, replacing an existing transaction at the same
// nonce only if it clears the price-bump threshold, then evicts the
// pool's lowest-priority entries until capacity is restored.
func (p *Pool) AddTransaction(tx *types.Transaction) error {
	sender, ok := tx.Sender()
	if !ok {
		return ErrSenderNoEOA
	}
	hash := tx.Hash()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, known := p.byHash[hash]; known {
		return ErrAlreadyKnown
	}

	queue, ok := p.senders[sender]
	if !ok {
		queue = &senderQueue{nonces: btree.New(32)}
		p.senders[sender] = queue
	}

	if existing := queue.nonces.Get(&nonceItem{nonce: tx.AccountNonce}); existing != nil {
		old := existing.(*nonceItem).entry
		if err := checkPriceBump(old.tx, tx); err != nil {
			return err
		}
		p.removeLocked(old)
	}

	entry := &pooledTx{tx: tx, sender: sender, nonce: tx.AccountNonce, arrival: p.arrival}
	p.arrival++
	queue.nonces.ReplaceOrInsert(&nonceItem{nonce: tx.AccountNonce, entry: entry})
	p.byHash[hash] = entry
	heap.Push(&p.evict, entry)

	return p.enforceCapacityLocked(entry)
}

// checkPriceBump enforces the replacement rule: the incoming transaction
// must offer at least priceBumpPercent more on both the fee cap and the
// priority fee than the one it would displace.
func checkPriceBump(old, next *types.Transaction) error {
	oldFee, nextFee := old.MaxFeePerGas(), next.MaxFeePerGas()
	threshold := new(uint256.Int).Mul(oldFee, uint256.NewInt(100+priceBumpPercent))
	threshold.Div(threshold, uint256.NewInt(100))
	if nextFee.Cmp(threshold) < 0 {
		return fmt.Errorf("%w: fee cap %v < required %v", ErrReplaceUnderpriced, nextFee, threshold)
	}
	oldTip, nextTip := old.EffectiveGasTip(nil), next.EffectiveGasTip(nil)
	tipThreshold := new(uint256.Int).Mul(oldTip, uint256.NewInt(100+priceBumpPercent))
	tipThreshold.Div(tipThreshold, uint256.NewInt(100))
	if nextTip.Cmp(tipThreshold) < 0 {
		return fmt.Errorf("%w: priority fee %v < required %v", ErrReplaceUnderpriced, nextTip, tipThreshold)
	}
	return nil
}

// enforceCapacityLocked evicts the globally lowest-priority entries
// until the pool is back at or under its configured slot budget. The
// transaction that was just inserted can itself be evicted if it is the
// lowest-priority entry once the pool overflows (spec §4.8's pressure
// eviction has no special exemption for the newest arrival).
func (p *Pool) enforceCapacityLocked(justInserted *pooledTx) error {
	if p.cfg.MaxSlots <= 0 || len(p.byHash) <= p.cfg.MaxSlots {
		return nil
	}
	for len(p.byHash) > p.cfg.MaxSlots {
		victim := heap.Pop(&p.evict).(*pooledTx)
		p.dropFromSender(victim)
		delete(p.byHash, victim.tx.Hash())
		p.log.Debug("evicted transaction", "hash", victim.tx.Hash(), "sender", victim.sender, "nonce", victim.nonce)
		if victim == justInserted {
			return ErrPoolFull
		}
	}
	return nil
}

// removeLocked drops entry from every index without touching the
// eviction heap's invariant beyond a Remove-by-index, the caller's
// responsibility to re-push a replacement immediately after.
func (p *Pool) removeLocked(entry *pooledTx) {
	p.dropFromSender(entry)
	delete(p.byHash, entry.tx.Hash())
	if entry.heapIdx >= 0 && entry.heapIdx < len(p.evict.items) && p.evict.items[entry.heapIdx] == entry {
		heap.Remove(&p.evict, entry.heapIdx)
	}
}

func (p *Pool) dropFromSender(entry *pooledTx) {
	queue, ok := p.senders[entry.sender]
	if !ok {
		return
	}
	queue.nonces.Delete(&nonceItem{nonce: entry.nonce})
	if queue.nonces.Len() == 0 {
		delete(p.senders, entry.sender)
	}
}

// Remove drops a transaction by hash, e.g. once its block has been
// imported (spec §6's add_block is expected to reconcile the pool
// afterward).
func (p *Pool) Remove(hash libcommon.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.byHash[hash]; ok {
		p.removeLocked(entry)
	}
}

// PendingBySender is spec §6's pending_by_sender: the contiguous run of
// this sender's queued transactions starting at fromNonce (the
// account's current on-chain nonce), in nonce order, stopping at the
// first gap — transactions past a gap are "queued", not "pending", and
// are not returned.
func (p *Pool) PendingBySender(sender libcommon.Address, fromNonce uint64) []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue, ok := p.senders[sender]
	if !ok {
		return nil
	}

	var out []*types.Transaction
	want := fromNonce
	queue.nonces.AscendGreaterOrEqual(&nonceItem{nonce: fromNonce}, func(item btree.Item) bool {
		ni := item.(*nonceItem)
		if ni.nonce != want {
			return false
		}
		out = append(out, ni.entry.tx)
		want++
		return true
	})
	return out
}

// Len returns the total number of pooled transactions across all senders.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byHash)
}
