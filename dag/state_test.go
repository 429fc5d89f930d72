// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/consensustest"
	"github.com/lunabft/narwhal-core/dag"
	"github.com/lunabft/narwhal-core/types"
)

func TestDAGInsertAtMostOnePerAuthorPerRound(t *testing.T) {
	d := make(dag.DAG)
	author := consensustest.Authorities(1)[0]
	h1 := consensustest.Header(author, 1, 0, nil, nil)
	h2 := consensustest.Header(author, 1, 0, nil, []types.PayloadEntry{{Digest: consensustest.Digest('b', 1), WorkerID: 0}})

	require.True(t, d.Insert(consensustest.Certify(h1, nil)))
	require.False(t, d.Insert(consensustest.Certify(h2, nil)), "a second certificate at the same (author, round) must be rejected")
	require.Equal(t, 1, d.Size())
}

func TestStateUpdateRecomputesLastCommittedRound(t *testing.T) {
	s := dag.New(50)
	authorities := consensustest.Authorities(3)

	c1 := consensustest.Certify(consensustest.Header(authorities[0], 2, 0, nil, nil), nil)
	c2 := consensustest.Certify(consensustest.Header(authorities[1], 4, 0, nil, nil), nil)

	s.Update(c1)
	require.Equal(t, types.Round(2), s.LastCommittedRound)

	s.Update(c2)
	require.Equal(t, types.Round(4), s.LastCommittedRound, "last_committed_round must track the max across all authorities")
}

// TestStateUpdatePurgesBelowWatermark covers invariant 9: at gc_depth
// exactly a round is retained; at gc_depth+1 it is purged.
func TestStateUpdatePurgesBelowWatermark(t *testing.T) {
	const gcDepth = 10
	s := dag.New(gcDepth)
	authorities := consensustest.Authorities(2)

	atBoundary := consensustest.Certify(consensustest.Header(authorities[0], 5, 0, nil, nil), nil)
	s.DAG.Insert(atBoundary)

	pastBoundary := consensustest.Certify(consensustest.Header(authorities[1], 4, 0, nil, nil), nil)
	s.DAG.Insert(pastBoundary)

	committer := consensustest.Certify(consensustest.Header(authorities[1], gcDepth+5, 0, nil, nil), nil)
	s.Update(committer)

	_, atOK := s.DAG.Get(5, authorities[0])
	require.True(t, atOK, "round exactly at last_committed_round - gc_depth must be retained")

	_, pastOK := s.DAG.Get(4, authorities[1])
	require.False(t, pastOK, "round older than last_committed_round - gc_depth must be purged")
}

func TestStateUpdateDropsOlderRoundsPerAuthority(t *testing.T) {
	s := dag.New(50)
	authorities := consensustest.Authorities(1)
	author := authorities[0]

	old := consensustest.Certify(consensustest.Header(author, 2, 0, nil, nil), nil)
	s.DAG.Insert(old)

	newer := consensustest.Certify(consensustest.Header(author, 6, 0, nil, nil), nil)
	s.Update(newer)

	_, ok := s.DAG.Get(2, author)
	require.False(t, ok, "after update, no round < last_committed[author] may remain for that author")
}

func TestRebuildOnlyAboveFloor(t *testing.T) {
	s := dag.NewFromCommitted(10, map[types.AuthorityID]types.Round{consensustest.Authorities(1)[0]: 30})
	authorities := consensustest.Authorities(2)

	below := consensustest.Certify(consensustest.Header(authorities[0], 15, 0, nil, nil), nil)
	above := consensustest.Certify(consensustest.Header(authorities[1], 25, 0, nil, nil), nil)

	s.Rebuild([]*types.Certificate{below, above})

	_, belowOK := s.DAG.Get(15, authorities[0])
	require.False(t, belowOK, "certificates at or below the GC floor are not reloaded")

	_, aboveOK := s.DAG.Get(25, authorities[1])
	require.True(t, aboveOK)
}
