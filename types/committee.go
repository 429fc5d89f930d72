// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"sort"

	"github.com/lunabft/narwhal-core/config"
)

// Authority is one committee member: a stable identity plus its stake
// weight for the epoch.
type Authority struct {
	ID    AuthorityID
	Stake uint64
}

// Committee is the set of authorities and their stakes for one epoch.
type Committee struct {
	Epoch      Epoch
	Authorities map[AuthorityID]uint64
}

// NewCommittee builds a Committee from a stake map.
func NewCommittee(epoch Epoch, stakes map[AuthorityID]uint64) *Committee {
	cp := make(map[AuthorityID]uint64, len(stakes))
	for id, stake := range stakes {
		cp[id] = stake
	}
	return &Committee{Epoch: epoch, Authorities: cp}
}

// TotalStake sums every authority's stake.
func (c *Committee) TotalStake() uint64 {
	var total uint64
	for _, stake := range c.Authorities {
		total += stake
	}
	return total
}

// QuorumThreshold is the weight needed to certify a header: the smallest
// weight w such that w > 2*T/3 for total stake T. With f = ⌊(T-1)/3⌋
// byzantine tolerance this equals 2f+1 only when T ≡ 1 (mod 3).
func (c *Committee) QuorumThreshold() uint64 {
	return config.QuorumThreshold(c.TotalStake())
}

// ValidityThreshold is f+1 stake, the minimum weight that must include at
// least one honest authority.
func (c *Committee) ValidityThreshold() uint64 {
	return config.ValidityThreshold(c.TotalStake())
}

// HasQuorum reports whether weight meets QuorumThreshold.
func (c *Committee) HasQuorum(weight uint64) bool {
	return weight >= c.QuorumThreshold()
}

// HasValidity reports whether weight meets ValidityThreshold.
func (c *Committee) HasValidity(weight uint64) bool {
	return weight >= c.ValidityThreshold()
}

// StakeOf returns the stake of id, or 0 if it is not a member.
func (c *Committee) StakeOf(id AuthorityID) uint64 {
	return c.Authorities[id]
}

// sortedAuthorities returns the committee's authority IDs in a fixed,
// deterministic order (by raw ID bytes), used for leader rotation so every
// honest node computes the same rotation.
func (c *Committee) sortedAuthorities() []AuthorityID {
	ids := make([]AuthorityID, 0, len(c.Authorities))
	for id := range c.Authorities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return lessID(ids[i], ids[j])
	})
	return ids
}

func lessID(a, b AuthorityID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Leader returns the round-robin leader for round r, a deterministic
// hash-free rotation over the committee's sorted authority set. Only even
// (leader) rounds are meaningful callers, but Leader is total over all
// rounds for simplicity.
func (c *Committee) Leader(r Round) AuthorityID {
	ids := c.sortedAuthorities()
	if len(ids) == 0 {
		var zero AuthorityID
		return zero
	}
	return ids[uint64(r)%uint64(len(ids))]
}
