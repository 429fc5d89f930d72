// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Batch is a worker-produced bundle of transactions. Core never parses
// transaction contents; it only ever moves batches and their digests
// around, and later hands raw transaction bytes to the executor.
type Batch struct {
	Digest       BatchDigest
	WorkerID     WorkerID
	Transactions [][]byte
}

// ConsensusOutput is one committed certificate paired with the index
// assigned to it by the consensus engine.
type ConsensusOutput struct {
	Certificate  *Certificate
	ConsensusIndex SequenceNumber
}

// ExecutionIndices are the deterministic coordinates of one transaction
// inside the committed stream.
type ExecutionIndices struct {
	NextCertificateIndex uint64
	NextBatchIndex       uint64
	NextTransactionIndex uint64
}

// Less reports whether e precedes other in the committed stream. Defined
// for completeness/debugging; the executor sorts by consensus index and
// transaction hash, not by ExecutionIndices.
func (e ExecutionIndices) Less(other ExecutionIndices) bool {
	if e.NextCertificateIndex != other.NextCertificateIndex {
		return e.NextCertificateIndex < other.NextCertificateIndex
	}
	if e.NextBatchIndex != other.NextBatchIndex {
		return e.NextBatchIndex < other.NextBatchIndex
	}
	return e.NextTransactionIndex < other.NextTransactionIndex
}
