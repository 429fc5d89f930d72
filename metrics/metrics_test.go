// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/metrics"
	"github.com/lunabft/narwhal-core/utils/wrappers"
)

func TestAveragerTracksRunningMean(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := metrics.NewAverager("test_avg", "a test average", reg)
	require.NoError(t, err)

	require.Equal(t, float64(0), a.Read())
	a.Observe(10)
	a.Observe(20)
	require.Equal(t, float64(15), a.Read())
}

func TestNewAveragerWithErrsCollectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	var errs wrappers.Errs

	a1 := metrics.NewAveragerWithErrs("dup_metric", "dup", reg, &errs)
	require.False(t, errs.Errored())

	a2 := metrics.NewAveragerWithErrs("dup_metric", "dup", reg, &errs)
	require.True(t, errs.Errored())

	// The error path still returns a usable in-memory averager.
	a2.Observe(5)
	require.Equal(t, float64(5), a2.Read())
	require.Equal(t, float64(0), a1.Read())
}

func TestNewProposerMetricsRegistersWithoutError(t *testing.T) {
	reg := prometheus.NewRegistry()
	var errs wrappers.Errs
	m := metrics.NewProposerMetrics(reg, &errs)
	require.False(t, errs.Errored())
	m.HeadersCreated.Inc()
	m.CurrentRound.Set(3)
	m.InFlightBatches.Set(2)
}

func TestNewConsensusMetricsRegistersWithoutError(t *testing.T) {
	reg := prometheus.NewRegistry()
	var errs wrappers.Errs
	m := metrics.NewConsensusMetrics(reg, &errs)
	require.False(t, errs.Errored())
	m.CertificatesCommitted.Inc()
}

func TestNewAssemblerMetricsRegistersWithoutError(t *testing.T) {
	reg := prometheus.NewRegistry()
	var errs wrappers.Errs
	m := metrics.NewAssemblerMetrics(reg, &errs)
	require.False(t, errs.Errored())
	m.DuplicateBatches.Inc()
	m.MissedBatches.Set(1)
}
