// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package statehandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/consensustest"
	"github.com/lunabft/narwhal-core/globalstate"
	"github.com/lunabft/narwhal-core/types"
)

type fakeWorkers struct {
	cleanupRounds []types.Round
}

func (f *fakeWorkers) Cleanup(ctx context.Context, round types.Round) {
	f.cleanupRounds = append(f.cleanupRounds, round)
}

func newTestHandler(t *testing.T) (*Handler, *fakeWorkers, chan *types.Certificate, chan types.Round) {
	t.Helper()
	rxConsensus := make(chan *types.Certificate, 4)
	txSequenced := make(chan *types.Certificate, 4)
	txRounds := make(chan types.Round, 4)
	workers := &fakeWorkers{}

	h := New(context.Background(), Config{
		GlobalState:         globalstate.New(nil, "", 0),
		Workers:             workers,
		RxConsensus:         rxConsensus,
		TxProposerSequenced: txSequenced,
		TxRoundUpdates:      txRounds,
		RxReconfigure:       make(chan types.ReconfigureNotification),
		TxReconfigure:       nil,
	})
	return h, workers, txSequenced, txRounds
}

func TestHandleSequencedAdvancesWatermarkAndFansOut(t *testing.T) {
	h, workers, txSequenced, txRounds := newTestHandler(t)

	author := consensustest.Authorities(1)[0]
	cert := consensustest.Certify(consensustest.Header(author, 5, 0, nil, nil), nil)

	h.handleSequenced(context.Background(), cert)

	require.Equal(t, types.Round(5), h.lastCommittedRound)
	require.Equal(t, []types.Round{5}, workers.cleanupRounds)

	select {
	case got := <-txSequenced:
		require.Equal(t, cert, got)
	default:
		t.Fatal("expected certificate forwarded to proposer")
	}
	select {
	case got := <-txRounds:
		require.Equal(t, types.Round(5), got)
	default:
		t.Fatal("expected round forwarded to round-updates channel")
	}
}

func TestHandleSequencedIgnoresStaleRound(t *testing.T) {
	h, workers, txSequenced, txRounds := newTestHandler(t)
	h.lastCommittedRound = 10

	author := consensustest.Authorities(1)[0]
	cert := consensustest.Certify(consensustest.Header(author, 3, 0, nil, nil), nil)
	h.handleSequenced(context.Background(), cert)

	require.Equal(t, types.Round(10), h.lastCommittedRound)
	require.Empty(t, workers.cleanupRounds)
	require.Empty(t, txSequenced)
	require.Empty(t, txRounds)
}

func TestHandleReconfigureShutdownSignalsStop(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	require.True(t, h.handleReconfigure(types.ReconfigureNotification{Kind: types.Shutdown}))
}

func TestHandleReconfigureCommitteeUpdateContinues(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	committee, _ := consensustest.Committee(1, 4)
	require.False(t, h.handleReconfigure(types.ReconfigureNotification{
		Kind:      types.UpdateCommittee,
		Committee: committee,
	}))
}

func TestNewRestoresLastCommittedRoundFromGlobalState(t *testing.T) {
	gs := globalstate.New(nil, "", 0)
	gs.UpdateLastCommittedRound(context.Background(), 7)

	h := New(context.Background(), Config{
		GlobalState:   gs,
		RxConsensus:   make(chan *types.Certificate),
		RxReconfigure: make(chan types.ReconfigureNotification),
	})
	require.Equal(t, types.Round(7), h.lastCommittedRound)
}
