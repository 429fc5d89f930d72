// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lunabft/narwhal-core/utils/wrappers"
)

// ProposerMetrics are the Prometheus collectors the Proposer publishes.
type ProposerMetrics struct {
	CurrentRound    prometheus.Gauge
	HeadersCreated  prometheus.Counter
	InFlightBatches prometheus.Gauge
	HeaderLatency   Averager
}

// NewProposerMetrics registers the Proposer's collectors against reg,
// collecting any registration failures into errs instead of panicking.
func NewProposerMetrics(reg prometheus.Registerer, errs *wrappers.Errs) *ProposerMetrics {
	m := &ProposerMetrics{
		CurrentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narwhal_proposer_round",
			Help: "Current proposing round.",
		}),
		HeadersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "narwhal_proposer_headers_created_total",
			Help: "Total headers created.",
		}),
		InFlightBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narwhal_proposer_in_flight_batches",
			Help: "Batches certified but not yet sequenced.",
		}),
		HeaderLatency: NewAveragerWithErrs("narwhal_proposer_header_latency_seconds", "header creation latency", reg, errs),
	}
	errs.Add(reg.Register(m.CurrentRound))
	errs.Add(reg.Register(m.HeadersCreated))
	errs.Add(reg.Register(m.InFlightBatches))
	return m
}

// ConsensusMetrics are the Prometheus collectors the consensus engine
// publishes.
type ConsensusMetrics struct {
	LastCommittedRound prometheus.Gauge
	ConsensusIndex     prometheus.Gauge
	CertificatesCommitted prometheus.Counter
	DAGSize             prometheus.Gauge
}

// NewConsensusMetrics registers the consensus engine's collectors.
func NewConsensusMetrics(reg prometheus.Registerer, errs *wrappers.Errs) *ConsensusMetrics {
	m := &ConsensusMetrics{
		LastCommittedRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narwhal_consensus_last_committed_round",
			Help: "Highest round with a committed certificate.",
		}),
		ConsensusIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narwhal_consensus_index",
			Help: "Next consensus index to be assigned.",
		}),
		CertificatesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "narwhal_consensus_certificates_committed_total",
			Help: "Total certificates committed by the leader rule.",
		}),
		DAGSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narwhal_consensus_dag_certificates",
			Help: "Certificates currently retained in the DAG.",
		}),
	}
	errs.Add(reg.Register(m.LastCommittedRound))
	errs.Add(reg.Register(m.ConsensusIndex))
	errs.Add(reg.Register(m.CertificatesCommitted))
	errs.Add(reg.Register(m.DAGSize))
	return m
}

// AssemblerMetrics are the Prometheus collectors the block assembler
// publishes.
type AssemblerMetrics struct {
	LastSentHeight   prometheus.Gauge
	BlocksSent       prometheus.Counter
	SendRetries      prometheus.Counter
	DuplicateBatches prometheus.Counter
	MissedBatches    prometheus.Gauge
}

// NewAssemblerMetrics registers the assembler's collectors.
func NewAssemblerMetrics(reg prometheus.Registerer, errs *wrappers.Errs) *AssemblerMetrics {
	m := &AssemblerMetrics{
		LastSentHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narwhal_assembler_last_sent_height",
			Help: "Highest block height successfully sent.",
		}),
		BlocksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "narwhal_assembler_blocks_sent_total",
			Help: "Total blocks sent over the execution UDS stream.",
		}),
		SendRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "narwhal_assembler_send_retries_total",
			Help: "Total retries of the UDS send path.",
		}),
		DuplicateBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "narwhal_assembler_duplicate_batches_total",
			Help: "Batches skipped because they were already processed.",
		}),
		MissedBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narwhal_assembler_missed_batches",
			Help: "Committed batches not yet processed into a block.",
		}),
	}
	errs.Add(reg.Register(m.LastSentHeight))
	errs.Add(reg.Register(m.BlocksSent))
	errs.Add(reg.Register(m.SendRetries))
	errs.Add(reg.Register(m.DuplicateBatches))
	errs.Add(reg.Register(m.MissedBatches))
	return m
}
