// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus runs the long-lived consensus task: it owns the DAG,
// feeds newly certified certificates through a CommitRule, and emits an
// indexed ConsensusOutput sequence. Grounded on the original engine's
// ConsensusState/Consensus<Protocol> split: dag.State is ConsensusState,
// bullshark.CommitRule is ConsensusProtocol, and Engine is Consensus.
package consensus

import (
	"context"
	"fmt"
	"sort"

	golog "github.com/luxfi/log"

	"github.com/lunabft/narwhal-core/bullshark"
	"github.com/lunabft/narwhal-core/dag"
	"github.com/lunabft/narwhal-core/log"
	"github.com/lunabft/narwhal-core/metrics"
	"github.com/lunabft/narwhal-core/types"
)

// Engine is the consensus task.
type Engine struct {
	log     golog.Logger
	metrics *metrics.ConsensusMetrics

	rule  bullshark.CommitRule
	state *dag.State

	certStore      types.CertificateStore
	consensusStore types.ConsensusStore
	globalState    types.GlobalStateManager

	consensusIndex types.SequenceNumber
	gcDepth        uint64

	rxCertificates <-chan *types.Certificate
	txPrimary      chan<- *types.Certificate
	txOutput       chan<- types.ConsensusOutput
	rxReconfigure  <-chan types.ReconfigureNotification
}

// Config bundles Engine's construction-time dependencies.
type Config struct {
	Logger         golog.Logger
	Metrics        *metrics.ConsensusMetrics
	Rule           bullshark.CommitRule
	GCDepth        uint64
	CertStore      types.CertificateStore
	ConsensusStore types.ConsensusStore
	GlobalState    types.GlobalStateManager

	RxCertificates <-chan *types.Certificate
	TxPrimary      chan<- *types.Certificate
	TxOutput       chan<- types.ConsensusOutput
	RxReconfigure  <-chan types.ReconfigureNotification
}

// New returns an Engine with a fresh, empty consensus state. Call
// Recover before Run if the process may be resuming from a crash.
func New(cfg Config) *Engine {
	return &Engine{
		log:            log.New(cfg.Logger, "consensus"),
		metrics:        cfg.Metrics,
		rule:           cfg.Rule,
		state:          dag.New(cfg.GCDepth),
		certStore:      cfg.CertStore,
		consensusStore: cfg.ConsensusStore,
		globalState:    cfg.GlobalState,
		gcDepth:        cfg.GCDepth,
		rxCertificates: cfg.RxCertificates,
		txPrimary:      cfg.TxPrimary,
		txOutput:       cfg.TxOutput,
		rxReconfigure:  cfg.RxReconfigure,
	}
}

// Recover rebuilds DAG state from the external stores and replays every
// DAG certificate above the last committed round through the commit rule, so the
// engine converges to the same post-state it would have reached without
// crashing. Storage failures here are fatal: correctness depends on an
// accurate last-committed watermark.
func (e *Engine) Recover(ctx context.Context) error {
	lastCommitted, err := e.consensusStore.ReadLastCommitted(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading last committed: %w", types.ErrStorageFailure, err)
	}
	index, err := e.consensusStore.ReadLastConsensusIndex(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading last consensus index: %w", types.ErrStorageFailure, err)
	}
	e.consensusIndex = index

	if len(lastCommitted) == 0 {
		return nil
	}

	e.state = dag.NewFromCommitted(e.gcDepth, lastCommitted)

	var floor types.Round
	if e.state.LastCommittedRound > types.Round(e.gcDepth) {
		floor = e.state.LastCommittedRound - types.Round(e.gcDepth)
	}
	certs, err := e.certStore.AfterRound(ctx, floor)
	if err != nil {
		return fmt.Errorf("%w: reading certificates after round %d: %w", types.ErrStorageFailure, floor, err)
	}
	e.state.Rebuild(certs)
	e.log.Info("recovered DAG", "last_committed_round", e.state.LastCommittedRound, "certificates", len(certs))

	return e.replay(ctx)
}

// replay re-feeds every DAG certificate with round > LastCommittedRound,
// ascending by round, through the commit rule — this is the "reproposal
// after recovery" the original source relies on; it is sound only
// because the commit rule is idempotent on already-committed rounds.
func (e *Engine) replay(ctx context.Context) error {
	lastCommittedRound := e.state.LastCommittedRound

	var toReplay []*types.Certificate
	for round, byAuthor := range e.state.DAG {
		if round <= lastCommittedRound {
			continue
		}
		for _, entry := range byAuthor {
			toReplay = append(toReplay, entry.Certificate)
		}
	}
	sort.Slice(toReplay, func(i, j int) bool {
		return toReplay[i].Round() < toReplay[j].Round()
	})

	for _, cert := range toReplay {
		if err := e.commit(ctx, cert); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the engine's select loop until ctx is cancelled or a
// Shutdown reconfiguration arrives.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("consensus engine started")
	for {
		select {
		case <-ctx.Done():
			return nil

		case notif, ok := <-e.rxReconfigure:
			if !ok {
				return types.ErrShuttingDown
			}
			if err := e.handleReconfigure(notif); err != nil {
				return err
			}
			if notif.Kind == types.Shutdown {
				return nil
			}

		case cert, ok := <-e.rxCertificates:
			if !ok {
				return types.ErrShuttingDown
			}
			if err := e.commit(ctx, cert); err != nil {
				return err
			}
		}
	}
}

// commit feeds one certificate through the commit rule and forwards any
// resulting committed certificates to the primary feedback channel and
// the indexed output channel.
func (e *Engine) commit(ctx context.Context, cert *types.Certificate) error {
	committed, err := e.rule.ProcessCertificate(e.state, cert)
	if err != nil {
		return fmt.Errorf("processing certificate: %w", err)
	}

	for _, c := range committed {
		select {
		case e.txPrimary <- c:
		case <-ctx.Done():
			return nil
		}

		output := types.ConsensusOutput{Certificate: c, ConsensusIndex: e.consensusIndex}
		e.consensusIndex++

		if e.globalState != nil {
			e.globalState.UpdateConsensusIndex(ctx, e.consensusIndex)
			e.globalState.UpdateLastCommittedRound(ctx, e.state.LastCommittedRound)
		}
		if e.metrics != nil {
			e.metrics.CertificatesCommitted.Inc()
			e.metrics.LastCommittedRound.Set(float64(e.state.LastCommittedRound))
			e.metrics.ConsensusIndex.Set(float64(e.consensusIndex))
			e.metrics.DAGSize.Set(float64(e.state.DAG.Size()))
		}

		// Best-effort: the external output channel may drop under
		// backpressure without affecting committed state.
		select {
		case e.txOutput <- output:
		default:
			e.log.Warn("output channel full, dropping consensus output", "consensus_index", output.ConsensusIndex)
		}
	}
	return nil
}

func (e *Engine) handleReconfigure(notif types.ReconfigureNotification) error {
	switch notif.Kind {
	case types.NewEpoch:
		e.consensusIndex = 0
		e.state = dag.New(e.gcDepth)
		e.rule.UpdateCommittee(notif.Committee)
		e.log.Info("new epoch", "epoch", notif.Committee.Epoch)
	case types.UpdateCommittee:
		e.rule.UpdateCommittee(notif.Committee)
	case types.Shutdown:
		e.log.Info("shutting down")
	}
	return nil
}
