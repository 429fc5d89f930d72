// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package statehandler fans committed certificates out to the proposer
// and to local workers, and propagates reconfiguration to every
// subsystem. Grounded on primary/src/state_handler.rs; P2P worker
// broadcast (out of core scope) is represented by the WorkerNotifier
// interface rather than a concrete network client.
package statehandler

import (
	"context"

	golog "github.com/luxfi/log"

	"github.com/lunabft/narwhal-core/log"
	"github.com/lunabft/narwhal-core/types"
)

// WorkerNotifier is the external collaborator that fans a cleanup
// notice out to local workers; its transport is out of scope here.
type WorkerNotifier interface {
	Cleanup(ctx context.Context, round types.Round)
}

// Config bundles Handler's construction-time dependencies and channels.
type Config struct {
	Logger      golog.Logger
	GlobalState types.GlobalStateManager
	Workers     WorkerNotifier

	RxConsensus         <-chan *types.Certificate
	TxProposerSequenced chan<- *types.Certificate
	TxRoundUpdates      chan<- types.Round
	RxReconfigure       <-chan types.ReconfigureNotification
	TxReconfigure       []chan<- types.ReconfigureNotification
}

// Handler is the state handler task.
type Handler struct {
	log         golog.Logger
	globalState types.GlobalStateManager
	workers     WorkerNotifier

	lastCommittedRound types.Round

	rxConsensus         <-chan *types.Certificate
	txProposerSequenced chan<- *types.Certificate
	txRoundUpdates      chan<- types.Round
	rxReconfigure       <-chan types.ReconfigureNotification
	txReconfigure       []chan<- types.ReconfigureNotification
}

// New returns a Handler, loading last_committed_round from Global State
// if available.
func New(ctx context.Context, cfg Config) *Handler {
	h := &Handler{
		log:                 log.New(cfg.Logger, "state_handler"),
		globalState:         cfg.GlobalState,
		workers:             cfg.Workers,
		rxConsensus:         cfg.RxConsensus,
		txProposerSequenced: cfg.TxProposerSequenced,
		txRoundUpdates:      cfg.TxRoundUpdates,
		rxReconfigure:       cfg.RxReconfigure,
		txReconfigure:       cfg.TxReconfigure,
	}
	if h.globalState != nil {
		snapshot := h.globalState.GetState(ctx)
		h.lastCommittedRound = snapshot.LastCommittedRound
		h.log.Info("restored last_committed_round from global state", "round", h.lastCommittedRound)
	}
	return h
}

// Run drives the handler's select loop.
func (h *Handler) Run(ctx context.Context) error {
	h.log.Info("state handler started")
	for {
		select {
		case <-ctx.Done():
			return nil

		case cert, ok := <-h.rxConsensus:
			if !ok {
				return types.ErrShuttingDown
			}
			h.handleSequenced(ctx, cert)

		case notif, ok := <-h.rxReconfigure:
			if !ok {
				return types.ErrShuttingDown
			}
			shutdown := h.handleReconfigure(notif)
			for _, out := range h.txReconfigure {
				select {
				case out <- notif:
				case <-ctx.Done():
					return nil
				}
			}
			if shutdown {
				return nil
			}
		}
	}
}

// handleSequenced implements the fork-safe cleanup fan-out: on every
// certificate past the current watermark, advance the watermark, notify
// the proposer so it can retire in-flight batches, publish the new round
// to the primary task, and ask workers to discard stale batches.
func (h *Handler) handleSequenced(ctx context.Context, cert *types.Certificate) {
	round := cert.Round()
	if round <= h.lastCommittedRound {
		return
	}
	h.lastCommittedRound = round

	if h.globalState != nil {
		h.globalState.UpdateLastCommittedRound(ctx, round)
	}

	select {
	case h.txProposerSequenced <- cert:
	case <-ctx.Done():
		return
	}

	select {
	case h.txRoundUpdates <- round:
	default:
		// Best-effort watch-channel semantics: a full channel means a
		// reader hasn't drained the previous value yet, which is fine —
		// the next send will carry the latest round anyway.
	}

	if h.workers != nil {
		h.workers.Cleanup(ctx, round)
	}
}

func (h *Handler) handleReconfigure(notif types.ReconfigureNotification) bool {
	switch notif.Kind {
	case types.NewEpoch, types.UpdateCommittee:
		h.log.Debug("committee updated", "epoch", notif.Committee.Epoch)
		return false
	case types.Shutdown:
		return true
	default:
		return false
	}
}
