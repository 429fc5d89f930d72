// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensustest provides deterministic committee, header and
// certificate builders for tests across dag, bullshark, consensus and
// executor — grounded on the original test_utils.rs fixture helpers.
package consensustest

import (
	"github.com/lunabft/narwhal-core/types"
)

// Authorities returns n deterministic authority IDs, ordered the same way
// every time, each with equal stake.
func Authorities(n int) []types.AuthorityID {
	out := make([]types.AuthorityID, n)
	for i := range out {
		var id types.AuthorityID
		id[0] = byte(i + 1)
		out[i] = id
	}
	return out
}

// Committee builds a committee of n equally-staked authorities for epoch.
func Committee(epoch types.Epoch, n int) (*types.Committee, []types.AuthorityID) {
	authorities := Authorities(n)
	stakes := make(map[types.AuthorityID]uint64, n)
	for _, a := range authorities {
		stakes[a] = 1
	}
	return types.NewCommittee(epoch, stakes), authorities
}

// Digest returns a deterministic batch/certificate digest seeded by tag
// and an integer, for building test fixtures without colliding hashes.
func Digest(tag byte, n int) types.BatchDigest {
	var d types.BatchDigest
	d[0] = tag
	d[1] = byte(n >> 24)
	d[2] = byte(n >> 16)
	d[3] = byte(n >> 8)
	d[4] = byte(n)
	return d
}

// Header builds a header for author at round, with the given parent
// digests and payload, ready for Certify.
func Header(author types.AuthorityID, round types.Round, epoch types.Epoch, parents []types.CertificateDigest, payload []types.PayloadEntry) *types.Header {
	return &types.Header{
		Author:  author,
		Round:   round,
		Epoch:   epoch,
		Payload: payload,
		Parents: parents,
	}
}

// Certify wraps header into a certificate "signed" by every given
// authority — signature content is irrelevant to every component under
// test here, so Certify only records the signer set.
func Certify(header *types.Header, signers []types.AuthorityID) *types.Certificate {
	return &types.Certificate{
		Header:  *header,
		Signers: signers,
	}
}

// Genesis returns n genesis (round 0) certificates, one per authority,
// with empty parents and payload — the DAG's bootstrap frontier.
func Genesis(epoch types.Epoch, authorities []types.AuthorityID) []*types.Certificate {
	out := make([]*types.Certificate, len(authorities))
	for i, a := range authorities {
		h := Header(a, 0, epoch, nil, nil)
		out[i] = Certify(h, authorities)
	}
	return out
}

// Round builds one certificate per authority at round r, each parented on
// every certificate in parents (the prior round's full frontier) — the
// common case of a fully-connected DAG used by most fixtures.
func Round(epoch types.Epoch, r types.Round, authorities []types.AuthorityID, parents []*types.Certificate) []*types.Certificate {
	parentDigests := make([]types.CertificateDigest, len(parents))
	for i, p := range parents {
		parentDigests[i] = p.Digest()
	}
	out := make([]*types.Certificate, len(authorities))
	for i, a := range authorities {
		h := Header(a, r, epoch, parentDigests, nil)
		out[i] = Certify(h, authorities)
	}
	return out
}

// Digests returns the certificate digests of certs, in order.
func Digests(certs []*types.Certificate) []types.CertificateDigest {
	out := make([]types.CertificateDigest, len(certs))
	for i, c := range certs {
		out[i] = c.Digest()
	}
	return out
}
