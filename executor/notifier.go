// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"

	golog "github.com/luxfi/log"

	"github.com/lunabft/narwhal-core/config"
	"github.com/lunabft/narwhal-core/log"
	"github.com/lunabft/narwhal-core/types"
)

// ExecutionState is the per-transaction sink the Notifier drives. Grounded
// on the original executor::ExecutionState trait; Assembler implements it.
type ExecutionState interface {
	// HandleConsensusTransaction delivers one transaction's raw bytes
	// (nil for an empty-batch or empty-payload marker) tagged with the
	// consensus output it belongs to and its execution coordinates.
	HandleConsensusTransaction(ctx context.Context, output *types.ConsensusOutput, indices types.ExecutionIndices, transaction []byte) error
	// LoadExecutionIndices returns the coordinates to resume numbering
	// from after a restart.
	LoadExecutionIndices(ctx context.Context) (types.ExecutionIndices, error)
}

// BatchFetcher retrieves a batch's transaction bytes by digest. Worker-side
// batch storage is out of core scope; this is the seam.
type BatchFetcher interface {
	GetBatch(ctx context.Context, digest types.BatchDigest, workerID types.WorkerID) (*types.Batch, error)
}

// BatchDeduper gates a batch before its transactions are fanned out,
// implementing the across-node-lifetime "process each batch exactly once"
// rule. Assembler implements it using processedBatchDigests.
type BatchDeduper interface {
	AdmitBatch(ctx context.Context, digest types.BatchDigest, workerID types.WorkerID, consensusIndex uint64, round types.Round, height uint64) bool
	// ResolveBatch marks digest as successfully delivered to the execution
	// state, clearing it from any diagnostic missed-batch tracking.
	ResolveBatch(digest types.BatchDigest)
}

// Notifier walks a committed certificate's payload and calls ExecutionState
// once per transaction, assigning monotonically increasing ExecutionIndices.
// Grounded on executor/src/notifier.rs.
type Notifier struct {
	log     golog.Logger
	fetcher BatchFetcher
	dedup   BatchDeduper
	state   ExecutionState
	indices types.ExecutionIndices
}

// NewNotifier returns a Notifier seeded with the execution indices state
// reports resuming from.
func NewNotifier(ctx context.Context, logger golog.Logger, fetcher BatchFetcher, dedup BatchDeduper, state ExecutionState) (*Notifier, error) {
	indices, err := state.LoadExecutionIndices(ctx)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		log:     log.New(logger, "notifier"),
		fetcher: fetcher,
		dedup:   dedup,
		state:   state,
		indices: indices,
	}, nil
}

// Notify fans output's certificate out to the execution state, one call
// per transaction. A certificate with an empty payload on a leader round,
// and each admitted batch that holds no transactions, produce a single call
// with a nil transaction. Block height itself advances with the consensus
// index in Assembler.ProcessOutput; the nil call adds nothing to the block.
func (n *Notifier) Notify(ctx context.Context, output types.ConsensusOutput) error {
	n.indices.NextCertificateIndex++
	cert := output.Certificate
	height := uint64(output.ConsensusIndex) / config.BlockSize

	if len(cert.Header.Payload) == 0 {
		if cert.Round().IsLeaderRound() {
			return n.state.HandleConsensusTransaction(ctx, &output, n.indices, nil)
		}
		return nil
	}

	for _, entry := range cert.Header.Payload {
		if !n.dedup.AdmitBatch(ctx, entry.Digest, entry.WorkerID, uint64(output.ConsensusIndex), cert.Round(), height) {
			continue
		}
		n.indices.NextBatchIndex++

		batch, err := n.fetcher.GetBatch(ctx, entry.Digest, entry.WorkerID)
		if err != nil {
			n.log.Warn("failed to fetch batch, skipping", "digest", entry.Digest, "worker_id", entry.WorkerID, "error", err)
			continue
		}

		if len(batch.Transactions) == 0 {
			if err := n.state.HandleConsensusTransaction(ctx, &output, n.indices, nil); err != nil {
				return err
			}
			n.dedup.ResolveBatch(entry.Digest)
			continue
		}
		for _, tx := range batch.Transactions {
			n.indices.NextTransactionIndex++
			if err := n.state.HandleConsensusTransaction(ctx, &output, n.indices, tx); err != nil {
				return err
			}
		}
		n.dedup.ResolveBatch(entry.Digest)
	}
	return nil
}
