// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor assembles the consensus-indexed certificate/batch/
// transaction stream into fixed-size, gap-free blocks and delivers them
// over a framed byte-stream socket to the execution layer, with
// exactly-once batch semantics across re-inclusion. Grounded on
// node/src/execution_state.rs's BlockBuilder/UdsExecutionState (the
// height-keyed block assembly and retry-with-backoff send path) and
// executor/src/notifier.rs (per-transaction fan-out).
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	golog "github.com/luxfi/log"

	"github.com/lunabft/narwhal-core/config"
	"github.com/lunabft/narwhal-core/log"
	"github.com/lunabft/narwhal-core/metrics"
	"github.com/lunabft/narwhal-core/types"
	"github.com/lunabft/narwhal-core/utils/set"
	"github.com/lunabft/narwhal-core/wire"
)

// missedBatchScanInterval is how many committed certificates pass between
// diagnostic sweeps of the missed-batch tracker.
const missedBatchScanInterval = 20

// idleFlushInterval is the bounded "flush if needed" poll period for the
// (b) flush condition in spec §4.3. It only ever re-confirms a threshold
// already implied by consensus-visible quantities — it never decides
// content, only closes the window if an inline flush was somehow missed.
const idleFlushInterval = 200 * time.Millisecond

// blockTx is one transaction accumulated into the currently open block.
type blockTx struct {
	consensusIndex uint64
	hash           [32]byte
	raw            []byte
}

// Config bundles Assembler's construction-time dependencies and channels.
type Config struct {
	Logger      golog.Logger
	Metrics     *metrics.AssemblerMetrics
	Params      config.Parameters
	GlobalState types.GlobalStateManager
	Dialer      Dialer
	Epoch       types.Epoch

	RxOutput      <-chan types.ConsensusOutput
	RxReconfigure <-chan types.ReconfigureNotification
}

// Assembler is the block-assembler task. It implements both ExecutionState
// (per-transaction content population, driven by Notifier) and
// BatchDeduper (the exactly-once batch gate); Run drives the per-output
// block-height state machine described in spec §4.3.
type Assembler struct {
	log     golog.Logger
	metrics *metrics.AssemblerMetrics
	params  config.Parameters

	globalState types.GlobalStateManager
	conn        *conn
	notifier    *Notifier

	mu                    sync.Mutex
	epoch                 types.Epoch
	currentHeight         int64 // -1: no block opened yet
	currentTxs            []blockTx
	txHashes              set.Set[[32]byte]
	processedBatchDigests map[types.BatchDigest]uint64
	lastSentHeight        int64 // -1: nothing sent yet
	lastObservedIndex     uint64
	haveObservedIndex     bool
	missed                *missedBatchTracker
	commitCount           uint64

	rxOutput      <-chan types.ConsensusOutput
	rxReconfigure <-chan types.ReconfigureNotification
}

var (
	_ ExecutionState = (*Assembler)(nil)
	_ BatchDeduper   = (*Assembler)(nil)
)

// New returns an Assembler with no block open and nothing sent. fetcher
// supplies batch contents by digest, an external collaborator (worker-side
// batch storage is out of core scope).
func New(ctx context.Context, cfg Config, fetcher BatchFetcher) (*Assembler, error) {
	a := &Assembler{
		log:                   log.New(cfg.Logger, "executor"),
		metrics:               cfg.Metrics,
		params:                cfg.Params,
		globalState:           cfg.GlobalState,
		conn:                  newConn(cfg.Dialer),
		epoch:                 cfg.Epoch,
		currentHeight:         -1,
		lastSentHeight:        -1,
		txHashes:              set.NewSet[[32]byte](0),
		processedBatchDigests: make(map[types.BatchDigest]uint64),
		missed:                newMissedBatchTracker(cfg.Params.MissedBatchTimeout, cfg.Params.MaxMissedBatchRetries),
		rxOutput:              cfg.RxOutput,
		rxReconfigure:         cfg.RxReconfigure,
	}
	notifier, err := NewNotifier(ctx, cfg.Logger, fetcher, a, a)
	if err != nil {
		return nil, fmt.Errorf("loading execution indices: %w", err)
	}
	a.notifier = notifier
	return a, nil
}

// Resume seeds the assembler's height bookkeeping from a restored Global
// State snapshot, so a restarted node doesn't re-emit heights it already
// sent.
func (a *Assembler) Resume(snapshot types.GlobalStateSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if snapshot.LastSentHeight != nil {
		a.lastSentHeight = int64(*snapshot.LastSentHeight)
		a.currentHeight = a.lastSentHeight
	}
}

// Run drives the assembler's select loop.
func (a *Assembler) Run(ctx context.Context) error {
	a.log.Info("block assembler started")
	ticker := time.NewTicker(idleFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.conn.close()
			return nil

		case notif, ok := <-a.rxReconfigure:
			if !ok {
				return types.ErrShuttingDown
			}
			if notif.Kind == types.NewEpoch {
				a.handleNewEpoch(notif)
			}
			if notif.Kind == types.Shutdown {
				a.conn.close()
				return nil
			}

		case output, ok := <-a.rxOutput:
			if !ok {
				return types.ErrShuttingDown
			}
			if err := a.ProcessOutput(ctx, output); err != nil {
				return err
			}

		case <-ticker.C:
			if err := a.maybeFlushIdle(ctx); err != nil {
				return err
			}
		}
	}
}

// ProcessOutput implements the block-height state machine: it advances
// (and, crossing a boundary, seals and sends) the current block purely
// from output's consensus index, independent of whether this certificate
// carries any transactions — a certificate with an empty payload still
// ticks the block forward, matching spec §8 scenario A.
func (a *Assembler) ProcessOutput(ctx context.Context, output types.ConsensusOutput) error {
	index := uint64(output.ConsensusIndex)
	height := index / config.BlockSize

	a.mu.Lock()
	if a.haveObservedIndex && index < a.lastObservedIndex {
		a.mu.Unlock()
		a.log.Warn("late certificate: consensus index regressed, dropping", "consensus_index", index, "last_observed", a.lastObservedIndex)
		return nil
	}
	a.lastObservedIndex = index
	a.haveObservedIndex = true
	a.commitCount++
	scan := a.commitCount%missedBatchScanInterval == 0

	if a.lastSentHeight >= 0 && int64(height) <= a.lastSentHeight {
		a.mu.Unlock()
		a.log.Warn("late certificate: height already sent, dropping", "height", height, "last_sent_height", a.lastSentHeight)
		return nil
	}

	var sealed *wire.CommittedBlock
	if int64(height) > a.currentHeight {
		if a.currentHeight >= 0 {
			blk := a.sealLocked(uint64(a.currentHeight))
			sealed = &blk
		}
		a.currentHeight = int64(height)
	}
	a.mu.Unlock()

	if scan {
		a.scanMissedBatches()
	}

	if sealed != nil {
		if err := a.sendBlock(ctx, *sealed); err != nil {
			return err
		}
	}
	if err := a.fillGapBefore(ctx, height); err != nil {
		return err
	}

	return a.notifier.Notify(ctx, output)
}

// fillGapBefore sends empty blocks for every height strictly between
// last_sent_height and height, so blocks are always emitted contiguously.
func (a *Assembler) fillGapBefore(ctx context.Context, height uint64) error {
	for {
		a.mu.Lock()
		next := a.lastSentHeight + 1
		a.mu.Unlock()
		if next >= int64(height) {
			return nil
		}
		if err := a.sendEmptyBlock(ctx, uint64(next)); err != nil {
			return err
		}
	}
}

// maybeFlushIdle is the bounded "flush if needed" check: if the observed
// consensus index already implies a later height than the one currently
// open, seal and send it without waiting for another certificate.
func (a *Assembler) maybeFlushIdle(ctx context.Context) error {
	a.mu.Lock()
	if !a.haveObservedIndex || a.currentHeight < 0 {
		a.mu.Unlock()
		return nil
	}
	threshold := a.lastObservedIndex / config.BlockSize
	if int64(threshold) <= a.currentHeight {
		a.mu.Unlock()
		return nil
	}
	blk := a.sealLocked(uint64(a.currentHeight))
	a.currentHeight++
	a.mu.Unlock()

	if err := a.sendBlock(ctx, blk); err != nil {
		return err
	}
	return a.fillGapBefore(ctx, threshold)
}

// sealLocked flattens the accumulated transactions for height h into a
// CommittedBlock, sorted by (consensus_index ASC, transaction_hash ASC)
// so every honest node produces byte-identical blocks, and resets the
// in-flight accumulator. Caller must hold mu.
func (a *Assembler) sealLocked(h uint64) wire.CommittedBlock {
	sort.Slice(a.currentTxs, func(i, j int) bool {
		if a.currentTxs[i].consensusIndex != a.currentTxs[j].consensusIndex {
			return a.currentTxs[i].consensusIndex < a.currentTxs[j].consensusIndex
		}
		return bytesLess(a.currentTxs[i].hash[:], a.currentTxs[j].hash[:])
	})

	block := wire.CommittedBlock{Epoch: uint64(a.epoch), Height: h}
	if len(a.currentTxs) > 0 {
		raw := make([][]byte, len(a.currentTxs))
		for i, tx := range a.currentTxs {
			raw[i] = tx.raw
		}
		payload := TransactionsPayload{Raw: raw}
		block.Transactions = []wire.Transaction{{Digest: payload.Encode()}}
	}

	a.currentTxs = nil
	a.txHashes = set.NewSet[[32]byte](0)
	return block
}

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// sendEmptyBlock sends a gap-filler block with no transactions.
func (a *Assembler) sendEmptyBlock(ctx context.Context, h uint64) error {
	a.mu.Lock()
	epoch := a.epoch
	a.mu.Unlock()
	return a.sendBlock(ctx, wire.CommittedBlock{Epoch: uint64(epoch), Height: h})
}

// sendBlock frames and transmits block over the execution socket, retrying
// per the transport policy, then advances last_sent_height and publishes
// it to metrics and Global State. A transport failure that survives every
// retry is fatal per spec §7.
func (a *Assembler) sendBlock(ctx context.Context, block wire.CommittedBlock) error {
	data := wire.CommittedEpochData{Blocks: []wire.CommittedBlock{block}}.Marshal()

	attempts := 0
	err := sendWithRetry(ctx, a.conn, a.params, data, func() bool {
		attempts++
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.lastSentHeight >= int64(block.Height)
	})
	if a.metrics != nil && attempts > 1 {
		a.metrics.SendRetries.Add(float64(attempts - 1))
	}
	if err != nil {
		return err
	}

	a.mu.Lock()
	if int64(block.Height) > a.lastSentHeight {
		a.lastSentHeight = int64(block.Height)
	}
	a.mu.Unlock()

	if a.globalState != nil {
		a.globalState.UpdateLastSentHeight(ctx, block.Height)
	}
	if a.metrics != nil {
		a.metrics.LastSentHeight.Set(float64(block.Height))
		a.metrics.BlocksSent.Inc()
	}
	a.log.Info("sent block", "height", block.Height, "epoch", block.Epoch, "transactions", len(block.Transactions))
	return nil
}

// AdmitBatch implements BatchDeduper: the exactly-once gate. A digest
// already processed at a different index was re-included and already
// executed — it is skipped silently, and processed_batch_digests is left
// untouched at its original index.
func (a *Assembler) AdmitBatch(ctx context.Context, digest types.BatchDigest, workerID types.WorkerID, consensusIndex uint64, round types.Round, height uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, seen := a.processedBatchDigests[digest]; seen {
		if a.metrics != nil {
			a.metrics.DuplicateBatches.Inc()
		}
		return false
	}

	a.processedBatchDigests[digest] = consensusIndex
	a.missed.record(digest, round, consensusIndex, height, time.Now())
	a.gcProcessedLocked(consensusIndex)
	if a.metrics != nil {
		a.metrics.MissedBatches.Set(float64(a.missed.len()))
	}
	return true
}

// ResolveBatch marks digest as fully processed, clearing it from the
// missed-batch diagnostic tracker.
func (a *Assembler) ResolveBatch(digest types.BatchDigest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.missed.resolve(digest)
	if a.metrics != nil {
		a.metrics.MissedBatches.Set(float64(a.missed.len()))
	}
}

// gcProcessedLocked retains only processed_batch_digests entries within
// the dedupe GC window, keyed on consensus index alone so GC stays
// deterministic across nodes. Caller must hold mu.
func (a *Assembler) gcProcessedLocked(currentIndex uint64) {
	window := uint64(config.GCDepthBlocks) * config.BlockSize
	var floor uint64
	if currentIndex > window {
		floor = currentIndex - window
	}
	for digest, idx := range a.processedBatchDigests {
		if idx < floor {
			delete(a.processedBatchDigests, digest)
		}
	}
}

func (a *Assembler) scanMissedBatches() {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.missed.scan(now, logOverdue(a.log))
}

// HandleConsensusTransaction implements ExecutionState: it appends one
// transaction into whichever block height is currently open. A nil
// transaction is a leader-round empty-batch tick with nothing to append;
// the block height itself already advanced in ProcessOutput.
func (a *Assembler) HandleConsensusTransaction(ctx context.Context, output *types.ConsensusOutput, indices types.ExecutionIndices, transaction []byte) error {
	if transaction == nil {
		return nil
	}
	hash := TransactionHash(transaction)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.txHashes.Contains(hash) {
		return nil
	}
	a.txHashes.Add(hash)
	a.currentTxs = append(a.currentTxs, blockTx{
		consensusIndex: uint64(output.ConsensusIndex),
		hash:           hash,
		raw:            transaction,
	})
	return nil
}

// LoadExecutionIndices implements ExecutionState. Execution coordinates
// are not part of the Global State snapshot (spec §4.5 lists no such
// field) so a fresh process always renumbers from zero; block content
// itself stays correct because block height and batch dedupe are keyed
// on consensus index and digest, not on these coordinates.
func (a *Assembler) LoadExecutionIndices(ctx context.Context) (types.ExecutionIndices, error) {
	return types.ExecutionIndices{}, nil
}

func (a *Assembler) handleNewEpoch(notif types.ReconfigureNotification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if notif.Committee != nil {
		a.epoch = notif.Committee.Epoch
	}
	a.currentHeight = -1
	a.lastSentHeight = -1
	a.lastObservedIndex = 0
	a.haveObservedIndex = false
	a.currentTxs = nil
	a.txHashes = set.NewSet[[32]byte](0)
	a.processedBatchDigests = make(map[types.BatchDigest]uint64)
	a.missed = newMissedBatchTracker(a.params.MissedBatchTimeout, a.params.MaxMissedBatchRetries)
	a.log.Info("executor reset for new epoch", "epoch", a.epoch)
}
