// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/bullshark"
	"github.com/lunabft/narwhal-core/consensustest"
	"github.com/lunabft/narwhal-core/storetest"
	"github.com/lunabft/narwhal-core/types"
)

// Scenario F (spec §8): recovery rebuilds the DAG from the certificate
// store and replays every certificate past the persisted watermark through
// the commit rule, so a crash before the round-4 and round-6 leaders
// committed still converges to the same committed output.
func TestRecoverReplaysUncommittedRounds(t *testing.T) {
	committee, authorities := consensustest.Committee(0, 4)

	genesis := consensustest.Genesis(0, authorities)
	round1 := consensustest.Round(0, 1, authorities, genesis)
	round2 := consensustest.Round(0, 2, authorities, round1)
	round3 := consensustest.Round(0, 3, authorities, round2)
	round4 := consensustest.Round(0, 4, authorities, round3)
	round5 := consensustest.Round(0, 5, authorities, round4)
	round6 := consensustest.Round(0, 6, authorities, round5)
	round7 := consensustest.Round(0, 7, authorities, round6)

	store := storetest.NewMemory()
	ctx := context.Background()
	for _, round := range [][]*types.Certificate{round1, round2, round3, round4, round5, round6, round7} {
		for _, c := range round {
			require.NoError(t, store.Write(ctx, c))
		}
	}

	// Pre-crash state: only round 2 had committed (one authority's
	// watermark recorded), rounds 3-7 never made it through the rule.
	store.SeedCommitted(map[types.AuthorityID]types.Round{authorities[0]: 2}, 5)

	txPrimary := make(chan *types.Certificate, 64)
	txOutput := make(chan types.ConsensusOutput, 64)

	engine := New(Config{
		Rule:           bullshark.New(committee),
		GCDepth:        50,
		CertStore:      store,
		ConsensusStore: store,
		TxPrimary:      txPrimary,
		TxOutput:       txOutput,
	})

	require.NoError(t, engine.Recover(ctx))
	close(txPrimary)
	close(txOutput)

	var committed []*types.Certificate
	for c := range txPrimary {
		committed = append(committed, c)
	}
	require.NotEmpty(t, committed, "recovery must replay enough rounds to re-trigger the round-4 leader commit")

	var lastIndex types.SequenceNumber
	first := true
	for out := range txOutput {
		if !first {
			require.Greater(t, out.ConsensusIndex, lastIndex, "consensus index must be strictly increasing")
		}
		first = false
		lastIndex = out.ConsensusIndex
	}
	require.GreaterOrEqual(t, uint64(lastIndex), uint64(5), "index numbering resumes from the persisted watermark, not from zero")
}

func TestRecoverWithNoPriorStateIsNoop(t *testing.T) {
	committee, _ := consensustest.Committee(0, 4)
	store := storetest.NewMemory()
	ctx := context.Background()

	txPrimary := make(chan *types.Certificate, 1)
	txOutput := make(chan types.ConsensusOutput, 1)

	engine := New(Config{
		Rule:           bullshark.New(committee),
		GCDepth:        50,
		CertStore:      store,
		ConsensusStore: store,
		TxPrimary:      txPrimary,
		TxOutput:       txOutput,
	})

	require.NoError(t, engine.Recover(ctx))
	select {
	case <-txPrimary:
		t.Fatal("nothing should have been committed from an empty store")
	default:
	}
}
