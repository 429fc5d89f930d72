// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import "github.com/lunabft/narwhal-core/types"

// State is the consensus engine's owned view of the DAG plus the
// per-authority commit watermarks that drive its GC and sub-DAG
// flattening. Grounded on the original consensus engine's ConsensusState:
// new(), new_from_store(), and update() map directly to New,
// NewFromCommitted and Update below.
type State struct {
	DAG                DAG
	LastCommitted      map[types.AuthorityID]types.Round
	LastCommittedRound types.Round
	GCDepth            uint64
}

// New returns an empty consensus state for a freshly-started or
// freshly-reset (post-epoch-change) engine.
func New(gcDepth uint64) *State {
	return &State{
		DAG:           make(DAG),
		LastCommitted: make(map[types.AuthorityID]types.Round),
		GCDepth:       gcDepth,
	}
}

// NewFromCommitted rebuilds a consensus state from a persisted
// last-committed map, recomputing LastCommittedRound as its invariant
// requires. The DAG itself starts empty; callers repopulate it from the
// certificate store (see Rebuild).
func NewFromCommitted(gcDepth uint64, lastCommitted map[types.AuthorityID]types.Round) *State {
	s := New(gcDepth)
	for author, round := range lastCommitted {
		s.LastCommitted[author] = round
		if round > s.LastCommittedRound {
			s.LastCommittedRound = round
		}
	}
	return s
}

// Rebuild inserts every certificate with round > LastCommittedRound -
// GCDepth into the DAG, restoring working state after a crash. Certificates
// at or below that floor are not reloaded.
func (s *State) Rebuild(certs []*types.Certificate) {
	var floor types.Round
	if s.LastCommittedRound > types.Round(s.GCDepth) {
		floor = s.LastCommittedRound - types.Round(s.GCDepth)
	}
	for _, cert := range certs {
		if cert.Round() > floor {
			s.DAG.Insert(cert)
		}
	}
}

// Update applies the commit-time state transition for a newly committed
// certificate: advances the origin's watermark, recomputes
// LastCommittedRound, and purges the DAG of anything the new watermarks
// or GC window make obsolete.
func (s *State) Update(cert *types.Certificate) {
	origin := cert.Origin()
	if cert.Round() > s.LastCommitted[origin] {
		s.LastCommitted[origin] = cert.Round()
	}

	var maxRound types.Round
	for _, r := range s.LastCommitted {
		if r > maxRound {
			maxRound = r
		}
	}
	s.LastCommittedRound = maxRound

	for round, byAuthor := range s.DAG {
		if uint64(round)+s.GCDepth < uint64(s.LastCommittedRound) {
			delete(s.DAG, round)
			continue
		}
		for author, lastRound := range s.LastCommitted {
			entry, ok := byAuthor[author]
			if ok && entry.Certificate.Round() < lastRound {
				delete(byAuthor, author)
			}
		}
		if len(byAuthor) == 0 {
			delete(s.DAG, round)
		}
	}
}
