// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package globalstate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/consensustest"
	"github.com/lunabft/narwhal-core/types"
)

func TestUpdatesAreMonotonic(t *testing.T) {
	m := New(nil, "", 0)
	ctx := context.Background()

	m.UpdateLastCommittedRound(ctx, 10)
	m.UpdateLastCommittedRound(ctx, 5)
	require.Equal(t, types.Round(10), m.GetState(ctx).LastCommittedRound, "a lower round must not regress the watermark")

	m.UpdateLastCommittedRound(ctx, 20)
	require.Equal(t, types.Round(20), m.GetState(ctx).LastCommittedRound)

	author := consensustest.Authorities(1)[0]
	m.UpdateLastCommitted(ctx, author, 3)
	m.UpdateLastCommitted(ctx, author, 1)
	require.Equal(t, types.Round(3), m.GetState(ctx).LastCommitted[author])

	m.UpdateConsensusIndex(ctx, 50)
	m.UpdateConsensusIndex(ctx, 10)
	require.Equal(t, types.SequenceNumber(50), m.GetState(ctx).LastConsensusIndex)
}

func TestUpdateLastSentHeightMonotonicWithNilStart(t *testing.T) {
	m := New(nil, "", 0)
	ctx := context.Background()

	require.Nil(t, m.GetState(ctx).LastSentHeight)

	m.UpdateLastSentHeight(ctx, 5)
	require.Equal(t, uint64(5), *m.GetState(ctx).LastSentHeight)

	m.UpdateLastSentHeight(ctx, 3)
	require.Equal(t, uint64(5), *m.GetState(ctx).LastSentHeight, "a lower height must not regress last_sent_height")

	m.UpdateLastSentHeight(ctx, 9)
	require.Equal(t, uint64(9), *m.GetState(ctx).LastSentHeight)
}

func TestSubscribePublishesOnUpdate(t *testing.T) {
	m := New(nil, "", 0)
	ctx := context.Background()
	ch := m.Subscribe()

	m.UpdateLastCommittedRound(ctx, 7)

	select {
	case snapshot := <-ch:
		require.Equal(t, types.Round(7), snapshot.LastCommittedRound)
	default:
		t.Fatal("expected a published snapshot after an update")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global_state.json")
	ctx := context.Background()

	m := New(nil, path, 1) // flush on every update
	m.UpdateLastCommittedRound(ctx, 42)
	m.UpdateConsensusIndex(ctx, 99)

	reloaded := New(nil, path, 1)
	state := reloaded.GetState(ctx)
	require.Equal(t, types.Round(42), state.LastCommittedRound)
	require.Equal(t, types.SequenceNumber(99), state.LastConsensusIndex)
}

func TestPersistenceIntervalBatchesFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global_state.json")
	ctx := context.Background()

	m := New(nil, path, 3)
	m.UpdateLastCommittedRound(ctx, 1)
	m.UpdateLastCommittedRound(ctx, 2)

	notYetFlushed := New(nil, path, 1)
	require.Equal(t, types.Round(0), notYetFlushed.GetState(ctx).LastCommittedRound, "fewer than persistence_interval updates must not have flushed yet")

	m.UpdateLastCommittedRound(ctx, 3)
	flushed := New(nil, path, 1)
	require.Equal(t, types.Round(3), flushed.GetState(ctx).LastCommittedRound)
}

func TestLoadFromDiskToleratesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	m := New(nil, path, 0)
	require.Equal(t, types.Round(0), m.GetState(context.Background()).LastCommittedRound)
}
