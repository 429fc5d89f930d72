// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/config"
)

func TestThresholdsAcrossCommitteeSizes(t *testing.T) {
	cases := []struct {
		total        uint64
		wantValidity uint64
		wantQuorum   uint64
	}{
		{1, 1, 1},
		{4, 2, 3},
		{7, 3, 5},
		{10, 4, 7},
	}
	for _, c := range cases {
		require.Equal(t, c.wantValidity, config.ValidityThreshold(c.total), "validity for total=%d", c.total)
		require.Equal(t, c.wantQuorum, config.QuorumThreshold(c.total), "quorum for total=%d", c.total)
	}
}

// QuorumThreshold only equals the literal 2f+1 when total stake ≡ 1 mod
// 3 (the cases above). Off that residue, total-validity+1 overshoots
// 2f+1 — still BFT-safe (quorum only ever gets harder to reach), just
// not numerically identical to the textbook formula.
func TestQuorumThresholdDivergesFromLiteral2fPlus1OffResidue(t *testing.T) {
	cases := []struct {
		total        uint64
		wantValidity uint64
		wantQuorum   uint64
	}{
		{5, 2, 4}, // f=1: literal 2f+1=3, actual quorum=4
		{6, 2, 5}, // f=1: literal 2f+1=3, actual quorum=5
	}
	for _, c := range cases {
		f := (c.total - 1) / 3
		require.Equal(t, c.wantValidity, config.ValidityThreshold(c.total), "validity for total=%d", c.total)
		require.Equal(t, c.wantQuorum, config.QuorumThreshold(c.total), "quorum for total=%d", c.total)
		require.GreaterOrEqual(t, config.QuorumThreshold(c.total), 2*f+1, "quorum must stay at least as strict as 2f+1 for total=%d", c.total)
	}
}

func TestValidityThresholdZeroStake(t *testing.T) {
	require.Equal(t, uint64(0), config.ValidityThreshold(0))
	require.Equal(t, uint64(1), config.QuorumThreshold(0))
}

func TestHasQuorumAndHasValidityBoundaries(t *testing.T) {
	const total = uint64(4)
	quorum := config.QuorumThreshold(total)
	validity := config.ValidityThreshold(total)

	require.False(t, config.HasQuorum(quorum-1, total))
	require.True(t, config.HasQuorum(quorum, total))

	require.False(t, config.HasValidity(validity-1, total))
	require.True(t, config.HasValidity(validity, total))
}

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, config.BackoffDelay(base, 0))
	require.Equal(t, 2*base, config.BackoffDelay(base, 1))
	require.Equal(t, 4*base, config.BackoffDelay(base, 2))
}

func TestPresetsLayerCorrectly(t *testing.T) {
	mainnet := config.Mainnet()
	testnet := config.Testnet()
	local := config.Local()

	require.Equal(t, config.PartiallySynchronous, mainnet.NetworkModel)
	require.Equal(t, config.PartiallySynchronous, testnet.NetworkModel)
	require.Equal(t, config.Asynchronous, local.NetworkModel)

	require.Less(t, testnet.GCDepth, mainnet.GCDepth)
	require.Less(t, local.GCDepth, testnet.GCDepth)

	require.Equal(t, uint64(50), mainnet.PersistenceInterval)
	require.Equal(t, uint64(10), testnet.PersistenceInterval)
	require.Equal(t, uint64(1), local.PersistenceInterval)

	require.Equal(t, mainnet.MaxSendRetries, testnet.MaxSendRetries)
	require.Equal(t, mainnet.RetryDelayBase, testnet.RetryDelayBase)
}
