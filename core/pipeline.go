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

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/execore/execore/erigon-lib/chain"
	libcommon "github.com/execore/execore/erigon-lib/common"
	"github.com/execore/execore/erigon-lib/kv"
	"github.com/execore/execore/erigon-lib/log"
	"github.com/execore/execore/erigon-lib/rlp"
	"github.com/execore/execore/core/state"
	"github.com/execore/execore/core/state/snapshot"
	"github.com/execore/execore/core/types"
	"github.com/execore/execore/core/types/accounts"
	"github.com/execore/execore/core/vm"
	"github.com/execore/execore/trie"
)

// GasPool tracks the gas remaining in a block, shared across every
// transaction's SubGas/AddGas call (grounded on
// wyf-ACCEPT-eth2030/pkg/core/gas_pool.go, the pack's only GasPool).
type GasPool uint64

var ErrGasPoolExhausted = errors.New("core: gas pool exhausted")

func (gp *GasPool) AddGas(amount uint64) *GasPool {
	*gp += GasPool(amount)
	return gp
}

func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasPoolExhausted
	}
	*gp -= GasPool(amount)
	return nil
}

func (gp *GasPool) Gas() uint64 { return uint64(*gp) }

var (
	ErrSenderNoEOA         = errors.New("core: sender has no recovered signature")
	ErrNonceMismatch       = errors.New("core: nonce does not match account state")
	ErrIntrinsicGas        = errors.New("core: gas limit below intrinsic gas")
	ErrInsufficientFunds   = errors.New("core: insufficient funds for gas * price + value")
	ErrBlockFull           = errors.New("core: block gas limit exceeded")
	ErrUnknownTransaction  = errors.New("core: transaction type not recognized by this fork")
)

// stageDuration is the per-stage timing counter, labelled by stage:
// validate/warm/execute/merkle/store/publish. Only these six labels are
// recorded; sub-phases within a stage have no label of their own.
var stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "execore",
	Subsystem: "pipeline",
	Name:      "stage_duration_seconds",
	Help:      "Wall-clock time spent in each add_block pipeline stage.",
	Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 20),
}, []string{"stage"})

var blockGasUsed = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "execore",
	Subsystem: "pipeline",
	Name:      "block_gas_used",
	Help:      "Gas used per imported block, the pipeline's throughput signal.",
	Buckets:   prometheus.ExponentialBuckets(21000, 2, 16),
})

func init() {
	prometheus.MustRegister(stageDuration, blockGasUsed)
}

func observeStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Config tunes the pipeline's stage strategies (spec §4.6).
type Config struct {
	// SparseThreshold is the update-set size above which the merkle
	// stage switches from Tries.Accounts.Hash() to ParallelHash.
	SparseThreshold int
	// WarmCacheSize bounds the warm stage's account prefetch cache.
	WarmCacheSize int
}

func DefaultConfig() Config {
	return Config{SparseThreshold: 4096, WarmCacheSize: 100_000}
}

// Pipeline is C8: the six-stage validate->warm->execute->merkle->store->
// publish orchestrator that is the repo's one external entry point,
// add_block (spec §6), grounded on the state_processor.go family's
// Process(block, statedb, ...) shape (other_examples/e6410129_...) and
// on 240c7c4d_bobanetwork-erigon__core-state_transition.go's fee/refund
// accounting, simplified to this repo's Message-less vm.EVM surface.
type Pipeline struct {
	db        kv.RwDB
	chain     *chain.Config
	tries     *state.Tries
	snapshots *snapshot.Tree
	cfg       Config
	warmCache *lru.Cache[libcommon.Address, *accounts.Account]
	log       *log.Logger
}

func NewPipeline(db kv.RwDB, chainConfig *chain.Config, tries *state.Tries, snapshots *snapshot.Tree, cfg Config) (*Pipeline, error) {
	cache, err := lru.New[libcommon.Address, *accounts.Account](cfg.WarmCacheSize)
	if err != nil {
		return nil, fmt.Errorf("pipeline: warm cache: %w", err)
	}
	return &Pipeline{
		db:        db,
		chain:     chainConfig,
		tries:     tries,
		snapshots: snapshots,
		cfg:       cfg,
		warmCache: cache,
		log:       log.New("component", "pipeline"),
	}, nil
}

// ImportOutcome is add_block's return value: the new state root, the
// receipts produced, and a per-stage timing breakdown (spec §4.6/§6).
type ImportOutcome struct {
	StateRoot libcommon.Hash
	Receipts  types.Receipts
	GasUsed   uint64
	Timings   map[string]time.Duration
}

// AddBlock is spec §6's add_block(block): runs the six stages in order,
// committing all of execute/merkle/store atomically through one RwTx
// (the "atomic write groups" contract, spec §2), and publishing the
// result only after that transaction commits.
func (p *Pipeline) AddBlock(ctx context.Context, block *types.Block, parent *types.Header) (ImportOutcome, error) {
	timings := make(map[string]time.Duration)
	record := func(stage string, start time.Time) {
		d := time.Since(start)
		timings[stage] = d
		observeStage(stage, start)
	}

	var warmed map[libcommon.Address]*accounts.Account
	validateErr := func() error {
		defer func(start time.Time) { record("validate", start) }(time.Now())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer func(start time.Time) { record("warm", start) }(time.Now())
			warmed = p.warmAccounts(gctx, block)
			return nil
		})

		if err := ValidateHeader(p.chain, block.Header, parent); err != nil {
			return err
		}
		if err := ValidateUncles(p.chain, block.Header, block.Body.Uncles); err != nil {
			return err
		}
		if err := p.validateBodyRoots(block); err != nil {
			return err
		}
		return g.Wait()
	}()
	if validateErr != nil {
		return ImportOutcome{}, validateErr
	}
	for addr, acc := range warmed {
		p.warmCache.Add(addr, acc)
	}

	var (
		outcome ImportOutcome
		tx      kv.RwTx
		updates []state.AccountUpdate
	)
	err := p.db.Update(ctx, func(rwTx kv.RwTx) error {
		tx = rwTx
		reader := state.NewPlainStateReader(tx)
		ibs := state.NewIntraBlockState(reader)

		receipts, requestsHash, execErr := func() (types.Receipts, *libcommon.Hash, error) {
			defer func(start time.Time) { record("execute", start) }(time.Now())
			return p.execute(ibs, block)
		}()
		if execErr != nil {
			return execErr
		}

		updates = ibs.Finalize(p.chain.IsForkActive(chain.SpuriousDragon, block.NumberU64(), block.Header.Timestamp))

		var stateRoot libcommon.Hash
		var rootErr error
		func(start time.Time) {
			defer record("merkle", start)
			if len(updates) > p.cfg.SparseThreshold {
				stateRoot, rootErr = state.ApplyAccountUpdatesParallel(tx, p.tries, updates, nil)
			} else {
				stateRoot, rootErr = state.ApplyAccountUpdates(tx, p.tries, updates)
			}
		}(time.Now())
		if rootErr != nil {
			return rootErr
		}

		if err := ValidatePostExecution(p.chain, block.Header, receipts, stateRoot, deriveRoot(receiptItems(receipts)), requestsHash); err != nil {
			return err
		}

		func(start time.Time) {
			defer record("store", start)
			storeErr := p.store(tx, block, receipts, stateRoot)
			if storeErr != nil {
				rootErr = storeErr
			}
		}(time.Now())
		if rootErr != nil {
			return rootErr
		}

		outcome = ImportOutcome{StateRoot: stateRoot, Receipts: receipts, GasUsed: block.Header.GasUsed}
		return nil
	})
	if err != nil {
		return ImportOutcome{}, err
	}

	var publishErr error
	func(start time.Time) {
		defer record("publish", start)
		if p.snapshots != nil {
			accountsDelta, storageDelta := snapshotDeltas(updates)
			if err := p.snapshots.Update(parent.StateRoot, outcome.StateRoot, accountsDelta, storageDelta); err != nil {
				publishErr = fmt.Errorf("pipeline: snapshot update: %w", err)
				return
			}
		}
		blockGasUsed.Observe(float64(outcome.GasUsed))
		p.log.Info("imported block", "number", block.NumberU64(), "hash", block.Hash(), "root", outcome.StateRoot, "gasUsed", outcome.GasUsed, "txs", len(block.Transactions()))
	}(time.Now())
	if publishErr != nil {
		return ImportOutcome{}, publishErr
	}

	outcome.Timings = timings
	return outcome, nil
}

// warmAccounts prefetches the account state every transaction's sender,
// recipient, and access-list touch; AddBlock stores the results in
// p.warmCache. The execute stage reads through its own PlainStateReader
// and does not consult that cache. Non-fatal by design: read errors are
// dropped and the address is simply left out.
func (p *Pipeline) warmAccounts(ctx context.Context, block *types.Block) map[libcommon.Address]*accounts.Account {
	out := make(map[libcommon.Address]*accounts.Account)
	_ = p.db.View(ctx, func(tx kv.Tx) error {
		reader := state.NewPlainStateReader(tx)
		touch := func(addr libcommon.Address) {
			if _, ok := out[addr]; ok {
				return
			}
			if acc, err := reader.ReadAccountData(addr); err == nil && acc != nil {
				out[addr] = acc
			}
		}
		for _, tx := range block.Transactions() {
			if sender, ok := tx.Sender(); ok {
				touch(sender)
			}
			if tx.To != nil {
				touch(*tx.To)
			}
			for _, entry := range tx.Accesses {
				touch(entry.Address)
			}
		}
		return nil
	})
	return out
}

// validateBodyRoots recomputes the transactions and withdrawals roots
// from the block body and compares them against the header's declared
// values, the part of spec §4.7's pre-execution checks that needs no
// state at all.
func (p *Pipeline) validateBodyRoots(block *types.Block) error {
	txRoot := deriveRoot(txItems(block.Transactions()))
	if txRoot != block.Header.TxRoot {
		return fmt.Errorf("core: tx root mismatch: have %x, want %x", block.Header.TxRoot, txRoot)
	}
	shanghai := p.chain.IsForkActive(chain.Shanghai, block.NumberU64(), block.Header.Timestamp)
	if shanghai {
		wantRoot := deriveRoot(withdrawalItems(block.Withdrawals()))
		if block.Header.WithdrawalsHash == nil || *block.Header.WithdrawalsHash != wantRoot {
			return fmt.Errorf("core: withdrawals root mismatch: have %v, want %x", block.Header.WithdrawalsHash, wantRoot)
		}
	}
	return nil
}

// execute is the pipeline's execute stage: pre-block system calls,
// the transaction loop (intrinsic gas, nonce check, fee buy/refund,
// Call/Create, receipt/log collection), withdrawals, and (post-Prague)
// end-of-block request collection. Grounded on
// 240c7c4d_bobanetwork-erigon__core-state_transition.go's buy/refund
// bookkeeping, rewritten against this repo's caller-supplied-address
// vm.EVM.Call/Create instead of a Message/TransitionDb abstraction.
func (p *Pipeline) execute(ibs *state.IntraBlockState, block *types.Block) (types.Receipts, *libcommon.Hash, error) {
	header := block.Header
	blockCtx := vm.BlockContext{
		GetHash:     func(uint64) libcommon.Hash { return libcommon.Hash{} },
		Coinbase:    header.Coinbase,
		BlockNumber: header.Number,
		Time:        header.Timestamp,
		Difficulty:  new(uint256.Int),
		GasLimit:    header.GasLimit,
		BaseFee:     header.BaseFee,
	}
	chainCfg := vm.ChainConfig{ChainID: uint256.NewInt(p.chain.ChainID)}

	sysEVM := vm.NewEVM(blockCtx, vm.TxContext{Origin: SystemAddress, GasPrice: new(uint256.Int)}, ibs, chainCfg)
	cancun := p.chain.IsForkActive(chain.Cancun, header.Number, header.Timestamp)
	if cancun {
		if header.ParentBeaconBlockRoot != nil {
			if err := ApplyBeaconRootSystemCall(sysEVM, *header.ParentBeaconBlockRoot); err != nil {
				return nil, nil, fmt.Errorf("core: beacon root system call: %w", err)
			}
		}
	}
	prague := p.chain.IsForkActive(chain.Prague, header.Number, header.Timestamp)
	if prague {
		if err := ApplyHistoryStorageSystemCall(sysEVM, header.ParentHash); err != nil {
			return nil, nil, fmt.Errorf("core: history storage system call: %w", err)
		}
	}

	gp := new(GasPool).AddGas(header.GasLimit)
	receipts := make(types.Receipts, 0, len(block.Transactions()))
	var cumulativeGasUsed uint64

	precompiles := make([]libcommon.Address, 0, len(vm.PrecompiledContractsCancun))
	for addr := range vm.PrecompiledContractsCancun {
		precompiles = append(precompiles, addr)
	}

	for i, txn := range block.Transactions() {
		receipt, err := p.applyTransaction(ibs, gp, header, txn, i, &cumulativeGasUsed, blockCtx, chainCfg, precompiles)
		if err != nil {
			return nil, nil, fmt.Errorf("core: apply tx %d [%x]: %w", i, txn.Hash(), err)
		}
		if err := ibs.Error(); err != nil {
			return nil, nil, fmt.Errorf("core: state read during tx %d [%x]: %w", i, txn.Hash(), err)
		}
		receipts = append(receipts, receipt)
		// FinaliseTx must run before the next transaction starts: it
		// applies this transaction's selfdestructs and resets transient
		// storage (EIP-1153) and the EIP-6780 created-this-tx tracking.
		ibs.FinaliseTx(cancun)
	}

	ApplyWithdrawals(ibs, block.Withdrawals())

	var requestsHash *libcommon.Hash
	if prague {
		deposits := CollectDepositRequests(receipts)
		withdrawalReqs, err := CollectWithdrawalRequests(sysEVM)
		if err != nil {
			return nil, nil, fmt.Errorf("core: withdrawal requests: %w", err)
		}
		consolidationReqs, err := CollectConsolidationRequests(sysEVM)
		if err != nil {
			return nil, nil, fmt.Errorf("core: consolidation requests: %w", err)
		}
		h := ComputeRequestsHash(deposits, withdrawalReqs, consolidationReqs)
		requestsHash = &h
	}

	return receipts, requestsHash, nil
}

// applyTransaction runs one transaction end to end against ibs: intrinsic
// gas and nonce checks, upfront fee deduction, the Call/Create itself,
// EIP-3529 refund accounting, coinbase payment, and receipt assembly.
func (p *Pipeline) applyTransaction(ibs *state.IntraBlockState, gp *GasPool, header *types.Header, tx *types.Transaction, txIndex int, cumulativeGasUsed *uint64, blockCtx vm.BlockContext, chainCfg vm.ChainConfig, precompiles []libcommon.Address) (*types.Receipt, error) {
	sender, ok := tx.Sender()
	if !ok {
		return nil, ErrSenderNoEOA
	}
	if ibs.GetNonce(sender) != tx.AccountNonce {
		return nil, fmt.Errorf("%w: tx %d, have %d", ErrNonceMismatch, tx.AccountNonce, ibs.GetNonce(sender))
	}

	intrinsic := IntrinsicGas(tx)
	if tx.GasLimit < intrinsic {
		return nil, fmt.Errorf("%w: limit %d < intrinsic %d", ErrIntrinsicGas, tx.GasLimit, intrinsic)
	}
	if err := gp.SubGas(tx.GasLimit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockFull, err)
	}

	gasPrice := effectiveGasPrice(tx, header.BaseFee)
	upfront := new(uint256.Int).Mul(gasPrice, uint256.NewInt(tx.GasLimit))
	upfront.Add(upfront, tx.MaxBlobCost())
	if tx.Value != nil {
		upfront.Add(upfront, tx.Value)
	}
	if ibs.GetBalance(sender).Cmp(upfront) < 0 {
		gp.AddGas(tx.GasLimit)
		return nil, ErrInsufficientFunds
	}
	ibs.SubBalance(sender, upfront)
	ibs.SetNonce(sender, tx.AccountNonce+1)

	ibs.PrepareAccessList(sender, tx.To, precompiles, tx.Accesses)

	txCtx := vm.TxContext{Origin: sender, GasPrice: gasPrice}
	evm := vm.NewEVM(blockCtx, txCtx, ibs, chainCfg)

	gasRemaining := tx.GasLimit - intrinsic
	var (
		vmErr           error
		contractAddress *libcommon.Address
	)
	logStart := ibs.LogLen()
	if tx.IsContractCreation() {
		_, addr, leftOver, err := evm.Create(sender, tx.Data, gasRemaining, valueOrZero(tx.Value))
		gasRemaining = leftOver
		vmErr = err
		if err == nil {
			contractAddress = &addr
		}
	} else {
		caller := vm.NewContract(sender, sender, valueOrZero(tx.Value), gasRemaining, nil)
		_, leftOver, err := evm.Call(caller, *tx.To, tx.Data, gasRemaining, valueOrZero(tx.Value))
		gasRemaining = leftOver
		vmErr = err
	}

	gasUsed := tx.GasLimit - gasRemaining
	refund := ibs.GetRefund()
	if maxRefund := gasUsed / fixedgasRefundQuotient; refund > maxRefund {
		refund = maxRefund
	}
	gasUsed -= refund
	gasRemaining = tx.GasLimit - gasUsed

	refundWei := new(uint256.Int).Mul(gasPrice, uint256.NewInt(gasRemaining))
	ibs.AddBalance(sender, refundWei)
	gp.AddGas(gasRemaining)

	tip := tx.EffectiveGasTip(header.BaseFee)
	coinbaseFee := new(uint256.Int).Mul(tip, uint256.NewInt(gasUsed))
	ibs.AddBalance(header.Coinbase, coinbaseFee)

	*cumulativeGasUsed += gasUsed

	receipt := &types.Receipt{
		Type:              tx.Type,
		Success:           vmErr == nil,
		CumulativeGasUsed: *cumulativeGasUsed,
		GasUsed:           gasUsed,
		TxHash:            tx.Hash(),
		BlockNumber:       header.Number,
		TransactionIndex:  uint(txIndex),
	}
	if contractAddress != nil {
		receipt.ContractAddress = contractAddress
	}
	receipt.Logs = ibs.LogsFrom(logStart)
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})
	return receipt, nil
}

const fixedgasRefundQuotient = 5 // EIP-3529

// IntrinsicGas is the up-front cost charged before any execution:
// the base transaction cost, per-byte calldata cost, access-list
// entry cost, and (EIP-7702) per-authorization-tuple cost.
func IntrinsicGas(tx *types.Transaction) uint64 {
	var gas uint64
	if tx.IsContractCreation() {
		gas = 53000
	} else {
		gas = 21000
	}
	for _, b := range tx.Data {
		if b == 0 {
			gas += 4
		} else {
			gas += 16
		}
	}
	for _, entry := range tx.Accesses {
		gas += 2400
		gas += uint64(len(entry.StorageKeys)) * 1900
	}
	gas += uint64(len(tx.AuthorizationList)) * 25000
	return gas
}

func effectiveGasPrice(tx *types.Transaction, baseFee *uint256.Int) *uint256.Int {
	if baseFee == nil {
		return new(uint256.Int).Set(tx.MaxFeePerGas())
	}
	tip := tx.EffectiveGasTip(baseFee)
	return new(uint256.Int).Add(baseFee, tip)
}

func valueOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// store is the store stage: persists the header/body/receipts and the
// canonical pointers into the same RwTx the merkle stage already wrote
// trie nodes into, so the whole block commits as one unit (spec §2's
// "atomic write groups").
func (p *Pipeline) store(tx kv.RwTx, block *types.Block, receipts types.Receipts, stateRoot libcommon.Hash) error {
	numKey := blockNumberKey(block.NumberU64())
	hash := block.Hash()

	if err := tx.Put(kv.Headers, numKey, block.Header.EncodeRLP()); err != nil {
		return fmt.Errorf("pipeline: store header: %w", err)
	}
	if err := tx.Put(kv.HeaderCanonical, numKey, hash.Bytes()); err != nil {
		return fmt.Errorf("pipeline: store canonical: %w", err)
	}
	if err := tx.Put(kv.HeadHeaderKey, []byte("last"), hash.Bytes()); err != nil {
		return fmt.Errorf("pipeline: store head header: %w", err)
	}
	if err := tx.Put(kv.HeadBlockKey, []byte("last"), hash.Bytes()); err != nil {
		return fmt.Errorf("pipeline: store head block: %w", err)
	}
	for i, t := range block.Transactions() {
		key := append(append([]byte{}, numKey...), rlp.EncodeUint64(uint64(i))...)
		if err := tx.Put(kv.EthTx, key, t.Hash().Bytes()); err != nil {
			return fmt.Errorf("pipeline: store tx %d: %w", i, err)
		}
	}
	for i, r := range receipts {
		key := append(append([]byte{}, numKey...), rlp.EncodeUint64(uint64(i))...)
		if err := tx.Put(kv.ReceiptsCache, key, receiptSummary(r)); err != nil {
			return fmt.Errorf("pipeline: store receipt %d: %w", i, err)
		}
	}
	return nil
}

func blockNumberKey(n uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(n >> (8 * i))
	}
	return b
}

func receiptSummary(r *types.Receipt) []byte {
	items := [][]byte{
		rlp.EncodeUint64(uint64(r.Type)),
		rlp.EncodeUint64(boolToUint64(r.Success)),
		rlp.EncodeUint64(r.CumulativeGasUsed),
		rlp.EncodeBytes(r.Bloom[:]),
	}
	return rlp.List(items...)
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// deriveRoot builds an ephemeral trie keyed by keccak256 of each item's
// RLP-encoded index and returns its hash; items are pre-encoded byte
// payloads, not the raw structs, so the same helper serves transactions,
// receipts, and withdrawals. Transaction items are each transaction's
// content hash (txItems) and receipt items are receiptSummary encodings,
// not canonical per-type RLP encodings, so the result is an internal
// consistency root, not a cross-client-compatible one.
func deriveRoot(items [][]byte) libcommon.Hash {
	t := trie.New()
	for i, item := range items {
		key := rlp.EncodeUint64(uint64(i))
		_ = t.Insert(libcommon.Keccak256(key), item)
	}
	return t.Hash()
}

func txItems(txs []*types.Transaction) [][]byte {
	out := make([][]byte, len(txs))
	for i, t := range txs {
		h := t.Hash()
		out[i] = h.Bytes()
	}
	return out
}

func withdrawalItems(ws []*types.Withdrawal) [][]byte {
	out := make([][]byte, len(ws))
	for i, w := range ws {
		items := [][]byte{
			rlp.EncodeUint64(w.Index),
			rlp.EncodeUint64(w.ValidatorIndex),
			rlp.EncodeBytes(w.Address.Bytes()),
			rlp.EncodeUint64(w.Amount),
		}
		out[i] = rlp.List(items...)
	}
	return out
}

func receiptItems(receipts types.Receipts) [][]byte {
	out := make([][]byte, len(receipts))
	for i, r := range receipts {
		out[i] = receiptSummary(r)
	}
	return out
}

func snapshotDeltas(updates []state.AccountUpdate) (map[libcommon.Address]*accounts.Account, map[libcommon.Address]map[libcommon.Hash][]byte) {
	accountsDelta := make(map[libcommon.Address]*accounts.Account, len(updates))
	storageDelta := make(map[libcommon.Address]map[libcommon.Hash][]byte)
	for _, u := range updates {
		if u.Deleted {
			accountsDelta[u.Address] = nil
			continue
		}
		accountsDelta[u.Address] = u.Account
		if len(u.Storage) == 0 {
			continue
		}
		perAddr := make(map[libcommon.Hash][]byte, len(u.Storage))
		for _, s := range u.Storage {
			perAddr[s.Key] = s.Value
		}
		storageDelta[u.Address] = perAddr
	}
	return accountsDelta, storageDelta
}

