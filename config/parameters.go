// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the core's tunable parameters and the fixed
// constants the block assembler keys its GC and partitioning off of.
package config

import "time"

// NetworkModel selects the Proposer's readiness discipline.
type NetworkModel int

const (
	// Asynchronous never gates on leader votes: ready() is always true.
	Asynchronous NetworkModel = iota
	// PartiallySynchronous gates advancement on leader-vote quorums and
	// halves the header timeout when this authority leads the next round.
	PartiallySynchronous
)

const (
	// BlockSize is the fixed number of consensus indices per block.
	BlockSize = 10
	// GCDepthBlocks is the fixed window, in blocks, of batch-dedupe
	// history retained by the assembler.
	GCDepthBlocks = 100
)

// Parameters is the core's runtime configuration.
type Parameters struct {
	// GCDepth is the round window retained beyond last_committed_round in
	// both the Proposer's in-flight map and the Consensus DAG.
	GCDepth uint64
	// HeaderSize is the minimum payload byte count before fast-path
	// advancement is permitted.
	HeaderSize uint64
	// MaxHeaderDelay is the timer after which a header is emitted
	// regardless of payload size.
	MaxHeaderDelay time.Duration
	// NetworkModel selects the Proposer's readiness discipline.
	NetworkModel NetworkModel

	// MissedBatchTimeout is the soft diagnostic threshold for the
	// assembler's missed-batch tracker.
	MissedBatchTimeout time.Duration
	// MaxMissedBatchRetries caps repeat diagnostic logging per digest.
	MaxMissedBatchRetries int

	// MaxSendRetries bounds the assembler's UDS retry loop.
	MaxSendRetries int
	// RetryDelayBase is the base of the exponential backoff
	// (base * 2^attempt) between UDS send retries.
	RetryDelayBase time.Duration

	// PersistenceInterval is the number of Global State updates between
	// flushes to disk.
	PersistenceInterval uint64
}

// Mainnet returns production-scale defaults.
func Mainnet() Parameters {
	return Parameters{
		GCDepth:               50,
		HeaderSize:            1000,
		MaxHeaderDelay:        2 * time.Second,
		NetworkModel:          PartiallySynchronous,
		MissedBatchTimeout:    5 * time.Second,
		MaxMissedBatchRetries: 3,
		MaxSendRetries:        5,
		RetryDelayBase:        100 * time.Millisecond,
		PersistenceInterval:   50,
	}
}

// Testnet returns defaults tuned for faster feedback on a small committee.
func Testnet() Parameters {
	p := Mainnet()
	p.GCDepth = 25
	p.MaxHeaderDelay = 500 * time.Millisecond
	p.PersistenceInterval = 10
	return p
}

// Local returns defaults for single-process development and tests.
func Local() Parameters {
	p := Testnet()
	p.GCDepth = 10
	p.MaxHeaderDelay = 100 * time.Millisecond
	p.NetworkModel = Asynchronous
	p.PersistenceInterval = 1
	return p
}
