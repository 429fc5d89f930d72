// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// PayloadEntry is one (batch_digest, worker_id) pair in a header's payload,
// kept as a slice rather than a map so insertion order is preserved —
// payload order must be deterministic across every honest node.
type PayloadEntry struct {
	Digest   BatchDigest
	WorkerID WorkerID
}

// Header is an authority's unsigned-then-signed proposal for one round.
type Header struct {
	Author  AuthorityID
	Round   Round
	Epoch   Epoch
	Payload []PayloadEntry
	Parents []CertificateDigest
	// Signature is produced by the external signature service; this core
	// never verifies or constructs signatures itself, it only carries them.
	Signature []byte
}

// Digest hashes the header's deterministic fields. Two headers with the
// same author/round/epoch/payload/parents always hash identically,
// independent of signature bytes.
func (h *Header) Digest() CertificateDigest {
	hasher := sha256.New()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], uint64(h.Round))
	hasher.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(h.Epoch))
	hasher.Write(buf[:])
	hasher.Write(h.Author[:])

	for _, p := range h.Payload {
		hasher.Write(p.Digest[:])
		binary.BigEndian.PutUint32(buf[:4], uint32(p.WorkerID))
		hasher.Write(buf[:4])
	}
	for _, p := range h.Parents {
		hasher.Write(p[:])
	}

	var out CertificateDigest
	copy(out[:], hasher.Sum(nil))
	return out
}

// HasBatch reports whether the payload contains the given batch key.
func (h *Header) HasBatch(key BatchKey) bool {
	for _, p := range h.Payload {
		if p.Digest == key.Digest && p.WorkerID == key.WorkerID {
			return true
		}
	}
	return false
}

// Certificate is a header plus proof that a quorum of authorities voted
// for it.
type Certificate struct {
	Header Header
	// AggregateSignature proves quorum endorsement; opaque to this core,
	// produced and verified by the external signature service.
	AggregateSignature []byte
	// Signers lists the authorities whose votes back AggregateSignature.
	Signers []AuthorityID
}

// Digest returns the certificate's identity, which is the digest of its
// header.
func (c *Certificate) Digest() CertificateDigest {
	return c.Header.Digest()
}

// Round returns the header's round.
func (c *Certificate) Round() Round {
	return c.Header.Round
}

// Origin returns the header's author, i.e. the certificate's originating
// authority.
func (c *Certificate) Origin() AuthorityID {
	return c.Header.Author
}
