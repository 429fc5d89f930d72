// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node wires the four core subsystems — proposer, consensus
// engine, state handler and block assembler — into one fault-propagating
// fleet. It is the Go-idiomatic replacement for the original's
// tokio::spawn + JoinHandle fan-out: golang.org/x/sync/errgroup cancels
// every task's shared context as soon as one returns a fatal error.
package node

import (
	"context"

	golog "github.com/luxfi/log"
	"golang.org/x/sync/errgroup"

	"github.com/lunabft/narwhal-core/consensus"
	"github.com/lunabft/narwhal-core/executor"
	"github.com/lunabft/narwhal-core/globalstate"
	"github.com/lunabft/narwhal-core/log"
	"github.com/lunabft/narwhal-core/primary/proposer"
	"github.com/lunabft/narwhal-core/primary/statehandler"
	"github.com/lunabft/narwhal-core/types"
)

// Runnable is the shape every long-lived subsystem task satisfies.
type Runnable interface {
	Run(ctx context.Context) error
}

// Tasks bundles the constructed subsystems node.Run fans out. Callers are
// responsible for wiring the channels between them per spec §9's cyclic
// channel graph (Proposer ↔ Core ↔ Consensus ↔ StateHandler ↔ Proposer);
// node.Run only owns the goroutine lifecycle and error propagation.
type Tasks struct {
	Proposer     *proposer.Proposer
	Consensus    *consensus.Engine
	StateHandler *statehandler.Handler
	Assembler    *executor.Assembler
	GlobalState  *globalstate.Manager
}

// Run starts every subsystem task under a shared errgroup: the first
// fatal error cancels ctx for the rest, and Run returns that error to the
// caller, which picks the process exit code (0 for clean shutdown,
// non-zero for a fatal consistency error per spec §7).
func Run(ctx context.Context, logger golog.Logger, tasks Tasks) error {
	l := log.New(logger, "node")
	g, gctx := errgroup.WithContext(ctx)

	if tasks.Consensus != nil {
		g.Go(func() error { return tasks.Consensus.Run(gctx) })
	}
	if tasks.Proposer != nil {
		g.Go(func() error { return tasks.Proposer.Run(gctx) })
	}
	if tasks.StateHandler != nil {
		g.Go(func() error { return tasks.StateHandler.Run(gctx) })
	}
	if tasks.Assembler != nil {
		g.Go(func() error { return tasks.Assembler.Run(gctx) })
	}

	err := g.Wait()
	if tasks.GlobalState != nil {
		tasks.GlobalState.ForcePersist()
	}
	if err != nil && err != types.ErrShuttingDown {
		l.Error("node exiting on fatal error", "error", err)
		return err
	}
	l.Info("node shut down cleanly")
	return nil
}
