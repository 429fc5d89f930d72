// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types holds the data model shared by every subsystem: rounds,
// digests, headers, certificates, the DAG's external store interfaces and
// the global-state snapshot contract.
package types

import (
	"bytes"
	"fmt"

	"github.com/luxfi/ids"
)

// Round is a monotonically increasing round number. Even rounds are leader
// rounds in the Bullshark commit rule.
type Round uint64

// IsLeaderRound reports whether r is an even (leader-eligible) round.
func (r Round) IsLeaderRound() bool {
	return r%2 == 0
}

// Epoch identifies a committee configuration period.
type Epoch uint64

// SequenceNumber is the strictly increasing consensus index assigned to
// each committed certificate.
type SequenceNumber uint64

// WorkerID identifies a worker process within an authority.
type WorkerID uint32

// AuthorityID is the stable public identity of a committee member.
type AuthorityID = ids.NodeID

// BatchDigest is the fixed-width hash of a transaction batch.
type BatchDigest = ids.ID

// CertificateDigest is the fixed-width hash of a certificate's header.
type CertificateDigest = ids.ID

// BatchKey uniquely identifies a batch produced by one worker, matching the
// proposer's in-flight and sequenced tracking keys.
type BatchKey struct {
	Digest   BatchDigest
	WorkerID WorkerID
}

// Less orders two keys lexicographically by (digest, worker_id), the order
// required when assembling a header payload so that every honest node sees
// the same bytes for the same set of in-flight digests.
func (k BatchKey) Less(other BatchKey) bool {
	if cmp := bytes.Compare(k.Digest[:], other.Digest[:]); cmp != 0 {
		return cmp < 0
	}
	return k.WorkerID < other.WorkerID
}

func (k BatchKey) String() string {
	return fmt.Sprintf("%s/%d", k.Digest, k.WorkerID)
}
