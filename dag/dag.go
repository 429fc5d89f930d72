// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dag holds the in-memory certificate DAG and the consensus
// state it backs. The DAG has exactly one owner: the consensus engine's
// goroutine. Nothing here takes a lock — concurrent access is prevented
// by construction, not by synchronization.
package dag

import "github.com/lunabft/narwhal-core/types"

// Entry is one certificate stored at (round, author).
type Entry struct {
	Digest      types.CertificateDigest
	Certificate *types.Certificate
}

// DAG is round -> author -> entry. At most one entry exists per
// (round, author) pair.
type DAG map[types.Round]map[types.AuthorityID]Entry

// Get returns the certificate stored for (round, author), if any.
func (d DAG) Get(round types.Round, author types.AuthorityID) (Entry, bool) {
	byAuthor, ok := d[round]
	if !ok {
		return Entry{}, false
	}
	e, ok := byAuthor[author]
	return e, ok
}

// Insert adds cert at its (round, author) slot. It reports false without
// modifying the DAG if a certificate is already present there — the DAG
// never stores more than one certificate per authority per round.
func (d DAG) Insert(cert *types.Certificate) bool {
	round := cert.Round()
	author := cert.Origin()
	byAuthor, ok := d[round]
	if !ok {
		byAuthor = make(map[types.AuthorityID]Entry)
		d[round] = byAuthor
	}
	if _, exists := byAuthor[author]; exists {
		return false
	}
	byAuthor[author] = Entry{Digest: cert.Digest(), Certificate: cert}
	return true
}

// Size returns the total number of certificates stored across all rounds.
func (d DAG) Size() int {
	n := 0
	for _, byAuthor := range d {
		n += len(byAuthor)
	}
	return n
}
