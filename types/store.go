// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "context"

// CertificateStore is the external, on-disk persistence of certificates.
// Its mechanics are out of scope for this core; consensus consults it only
// at recovery.
type CertificateStore interface {
	// AfterRound returns every stored certificate with round > minRound,
	// in no particular order; the caller sorts as needed.
	AfterRound(ctx context.Context, minRound Round) ([]*Certificate, error)
	// Write persists a certificate. Called by the external core/primary
	// once a certificate is assembled; consensus never writes here.
	Write(ctx context.Context, cert *Certificate) error
}

// ConsensusStore is the external persistence of consensus bookkeeping.
type ConsensusStore interface {
	ReadLastConsensusIndex(ctx context.Context) (SequenceNumber, error)
	ReadLastCommitted(ctx context.Context) (map[AuthorityID]Round, error)
	WriteLastConsensusIndex(ctx context.Context, index SequenceNumber) error
	WriteLastCommitted(ctx context.Context, committed map[AuthorityID]Round) error
}
