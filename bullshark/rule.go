// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bullshark implements the Bullshark-style CommitRule: leader
// election on even rounds, leader-support checks, and sub-DAG ordering.
// It is the consensus engine's sole extension point — swapping the
// leader-election and commit condition here (e.g. for a Tusk-style rule)
// requires no change to the engine itself.
package bullshark

import (
	"sort"

	"github.com/lunabft/narwhal-core/dag"
	"github.com/lunabft/narwhal-core/types"
)

// CommitRule is the consensus engine's polymorphic extension point.
type CommitRule interface {
	// ProcessCertificate integrates cert into the DAG and returns zero or
	// more certificates to commit, in commit order, each to be tagged
	// with a consensus index by the caller.
	ProcessCertificate(state *dag.State, cert *types.Certificate) ([]*types.Certificate, error)
	// UpdateCommittee swaps the committee the rule elects leaders from.
	UpdateCommittee(committee *types.Committee)
}

// Rule is the default Bullshark commit rule.
type Rule struct {
	committee *types.Committee
}

// New returns a Rule bound to committee.
func New(committee *types.Committee) *Rule {
	return &Rule{committee: committee}
}

// UpdateCommittee implements CommitRule.
func (r *Rule) UpdateCommittee(committee *types.Committee) {
	r.committee = committee
}

// getLeader returns the certificate authored by the elected leader of
// round, if the DAG holds one.
func (r *Rule) getLeader(state *dag.State, round types.Round) (*types.Certificate, bool) {
	leaderID := r.committee.Leader(round)
	entry, ok := state.DAG.Get(round, leaderID)
	if !ok {
		return nil, false
	}
	return entry.Certificate, true
}

// leaderSupport returns the total stake of round-(leader.Round()+1)
// certificates whose parent set includes leader's digest — i.e. the
// stake vouching for the candidate leader.
func (r *Rule) leaderSupport(state *dag.State, leader *types.Certificate) uint64 {
	voterRound := leader.Round() + 1
	byAuthor, ok := state.DAG[voterRound]
	if !ok {
		return 0
	}
	leaderDigest := leader.Digest()
	var support uint64
	for author, entry := range byAuthor {
		for _, parent := range entry.Certificate.Header.Parents {
			if parent == leaderDigest {
				support += r.committee.StakeOf(author)
				break
			}
		}
	}
	return support
}

// ProcessCertificate implements CommitRule. It inserts cert into the DAG;
// if cert lands on an even round and is that round's elected leader with
// enough round+1 support, it commits the leader's sub-DAG (and any
// deferred prior leaders order_leaders links to it).
func (r *Rule) ProcessCertificate(state *dag.State, cert *types.Certificate) ([]*types.Certificate, error) {
	state.DAG.Insert(cert)

	round := cert.Round()
	if !round.IsLeaderRound() || round <= state.LastCommittedRound {
		return nil, nil
	}
	if cert.Origin() != r.committee.Leader(round) {
		return nil, nil
	}
	if !r.committee.HasValidity(r.leaderSupport(state, cert)) {
		return nil, nil
	}

	leaders := r.orderLeaders(state, cert)
	var committed []*types.Certificate
	// Oldest first: later leaders' sub-DAGs only make sense once earlier
	// ones have been flattened and their authors marked committed.
	for i := len(leaders) - 1; i >= 0; i-- {
		sub := r.orderDAG(state, leaders[i])
		committed = append(committed, sub...)
		for _, c := range sub {
			state.Update(c)
		}
	}
	return committed, nil
}

// orderLeaders walks even rounds from leader down to
// last_committed_round+2 in descending steps of 2, keeping only the
// leaders still linked to leader through the DAG. Grounded on the
// original engine's order_leaders.
func (r *Rule) orderLeaders(state *dag.State, leader *types.Certificate) []*types.Certificate {
	ordered := []*types.Certificate{leader}
	current := leader
	round := leader.Round()
	for round >= state.LastCommittedRound+4 {
		round -= 2
		candidate, ok := r.getLeader(state, round)
		if !ok {
			continue
		}
		if r.linked(state, current, candidate) {
			ordered = append(ordered, candidate)
			current = candidate
		}
	}
	return ordered
}

// linked reports whether there is a path in the DAG from `from` back to
// `to` via iterated parent-set expansion, round by round. If any
// intermediate round's frontier is empty before reaching `to`'s round,
// the path is declared broken.
func (r *Rule) linked(state *dag.State, from, to *types.Certificate) bool {
	if to.Round() >= from.Round() {
		return false
	}
	frontier := map[types.CertificateDigest]struct{}{from.Digest(): {}}
	for round := from.Round(); round > to.Round(); round-- {
		byAuthor, ok := state.DAG[round]
		if !ok {
			return false
		}
		next := make(map[types.CertificateDigest]struct{})
		for _, entry := range byAuthor {
			if _, inFrontier := frontier[entry.Digest]; !inFrontier {
				continue
			}
			for _, parent := range entry.Certificate.Header.Parents {
				next[parent] = struct{}{}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			return false
		}
	}
	_, ok := frontier[to.Digest()]
	return ok
}

// orderDAG pre-order-DFS's the sub-DAG reachable from leader via
// header.Parents, skipping already-visited certificates and authors
// already committed at that round. The result is stable-sorted by round
// for presentation, matching the reference engine; consensus indices are
// assigned by the caller over this returned order.
func (r *Rule) orderDAG(state *dag.State, leader *types.Certificate) []*types.Certificate {
	visited := make(map[types.CertificateDigest]struct{})
	var out []*types.Certificate

	stack := []*types.Certificate{leader}
	for len(stack) > 0 {
		cert := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		digest := cert.Digest()
		if _, ok := visited[digest]; ok {
			continue
		}
		visited[digest] = struct{}{}

		if lastRound, ok := state.LastCommitted[cert.Origin()]; ok && lastRound == cert.Round() {
			continue
		}

		out = append(out, cert)

		parents := append([]types.CertificateDigest(nil), cert.Header.Parents...)
		sort.Slice(parents, func(i, j int) bool {
			return lessDigest(parents[i], parents[j])
		})
		for _, parentDigest := range parents {
			parentCert, ok := findByDigest(state.DAG, parentDigest)
			if !ok {
				continue
			}
			stack = append(stack, parentCert)
		}
	}

	filtered := out[:0]
	for _, c := range out {
		if uint64(c.Round())+state.GCDepth >= uint64(state.LastCommittedRound) {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Round() < filtered[j].Round()
	})
	return filtered
}

func findByDigest(d dag.DAG, digest types.CertificateDigest) (*types.Certificate, bool) {
	for _, byAuthor := range d {
		for _, entry := range byAuthor {
			if entry.Digest == digest {
				return entry.Certificate, true
			}
		}
	}
	return nil, false
}

func lessDigest(a, b types.CertificateDigest) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
