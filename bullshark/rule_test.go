// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bullshark

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/consensustest"
	"github.com/lunabft/narwhal-core/dag"
	"github.com/lunabft/narwhal-core/types"
)

func leaderOf(certs []*types.Certificate, committee *types.Committee, round types.Round) *types.Certificate {
	leaderID := committee.Leader(round)
	for _, c := range certs {
		if c.Origin() == leaderID {
			return c
		}
	}
	return nil
}

// Scenario E (spec §8): order_leaders returns [L6, L4], deferring L2
// because round 3 is missing and breaks the DAG path between L4 and L2.
func TestOrderLeadersDefersOnMissingRound(t *testing.T) {
	committee, authorities := consensustest.Committee(0, 4)
	state := dag.New(50)

	round2 := consensustest.Round(0, 2, authorities, nil)
	// Round 3 intentionally omitted.
	round4 := consensustest.Round(0, 4, authorities, round2)
	round5 := consensustest.Round(0, 5, authorities, round4)
	round6 := consensustest.Round(0, 6, authorities, round5)

	for _, c := range round2 {
		state.DAG.Insert(c)
	}
	for _, c := range round4 {
		state.DAG.Insert(c)
	}
	for _, c := range round5 {
		state.DAG.Insert(c)
	}
	for _, c := range round6 {
		state.DAG.Insert(c)
	}

	l6 := leaderOf(round6, committee, 6)
	l4 := leaderOf(round4, committee, 4)
	require.NotNil(t, l6)
	require.NotNil(t, l4)

	r := New(committee)
	ordered := r.orderLeaders(state, l6)

	require.Len(t, ordered, 2, "L2 must be deferred: the path to it is broken by the missing round 3")
	require.Equal(t, l6.Digest(), ordered[0].Digest())
	require.Equal(t, l4.Digest(), ordered[1].Digest())
}

func TestLinkedFalseWhenIntermediateRoundMissing(t *testing.T) {
	committee, authorities := consensustest.Committee(0, 4)
	state := dag.New(50)

	round2 := consensustest.Round(0, 2, authorities, nil)
	round4 := consensustest.Round(0, 4, authorities, round2)
	for _, c := range round2 {
		state.DAG.Insert(c)
	}
	for _, c := range round4 {
		state.DAG.Insert(c)
	}

	r := New(committee)
	require.False(t, r.linked(state, round4[0], round2[0]), "round 3 is absent, so no path can be traced")
}

func TestLinkedTrueAcrossFullMesh(t *testing.T) {
	committee, authorities := consensustest.Committee(0, 4)
	state := dag.New(50)

	round2 := consensustest.Round(0, 2, authorities, nil)
	round3 := consensustest.Round(0, 3, authorities, round2)
	round4 := consensustest.Round(0, 4, authorities, round3)
	for _, c := range round2 {
		state.DAG.Insert(c)
	}
	for _, c := range round3 {
		state.DAG.Insert(c)
	}
	for _, c := range round4 {
		state.DAG.Insert(c)
	}

	r := New(committee)
	require.True(t, r.linked(state, round4[0], round2[0]))
}

func TestProcessCertificateRequiresLeaderSupport(t *testing.T) {
	committee, authorities := consensustest.Committee(0, 4)
	state := dag.New(50)
	r := New(committee)

	round2 := consensustest.Round(0, 2, authorities, nil)
	for _, c := range round2 {
		state.DAG.Insert(c)
	}
	leader2 := leaderOf(round2, committee, 2)

	// Only one round-3 certificate votes for the leader: below validity
	// threshold (f+1) with 4 equal-stake authorities, so nothing commits.
	voterHeader := consensustest.Header(authorities[0], 3, 0, []types.CertificateDigest{leader2.Digest()}, nil)
	state.DAG.Insert(consensustest.Certify(voterHeader, nil))

	committed, err := r.ProcessCertificate(state, leader2)
	require.NoError(t, err)
	require.Empty(t, committed)
}
