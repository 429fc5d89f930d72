// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "context"

// GlobalStateSnapshot is the process-wide cross-component snapshot that
// subsystems consult at startup to resume from the correct round/index.
type GlobalStateSnapshot struct {
	LastCommittedRound      Round
	LastCommitted           map[AuthorityID]Round
	ProposerRound           Round
	CoreGCRound             Round
	LastConsensusIndex      SequenceNumber
	LastSentHeight          *uint64
	NextExpectedBlockHeight uint64
	LastConfirmedBlock      *uint64
}

// GlobalStateManager lets any subsystem update and observe the shared
// snapshot without depending on the concrete manager implementation.
// Every Update* call is monotonic: it only takes effect if the incoming
// value exceeds what is already stored.
type GlobalStateManager interface {
	UpdateLastCommittedRound(ctx context.Context, round Round)
	UpdateLastCommitted(ctx context.Context, authority AuthorityID, round Round)
	UpdateConsensusIndex(ctx context.Context, index SequenceNumber)
	UpdateProposerRound(ctx context.Context, round Round)
	UpdateCoreGCRound(ctx context.Context, round Round)
	UpdateLastSentHeight(ctx context.Context, height uint64)
	UpdateNextExpectedBlockHeight(ctx context.Context, height uint64)
	UpdateLastConfirmedBlock(ctx context.Context, height uint64)

	GetState(ctx context.Context) GlobalStateSnapshot
	Subscribe() <-chan GlobalStateSnapshot
}
