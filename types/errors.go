// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "errors"

// Sentinel errors shared across subsystems. Each maps to a row of the
// error-handling policy table: some propagate and cause a clean shutdown,
// some are fatal and abort the process, some are filtered silently.
var (
	// ErrShuttingDown is returned by a subsystem's Run when one of its
	// input channels is closed; node.Run treats it as a clean stop. A
	// Shutdown reconfiguration makes Run return nil instead.
	ErrShuttingDown = errors.New("shutting down")

	// ErrNoQuorum indicates fewer than quorum_threshold votes were found
	// where a quorum was required.
	ErrNoQuorum = errors.New("no quorum")

	// ErrBadParentRound indicates a header or certificate referenced
	// parents from a round the strict parent-round rule forbids for the
	// containing round.
	ErrBadParentRound = errors.New("parents from invalid round")

	// ErrStaleCertificate indicates a certificate arrived with a
	// consensus_index or block height that has already been surpassed;
	// it is logged and dropped, never acted on.
	ErrStaleCertificate = errors.New("stale certificate")

	// ErrStorageFailure indicates a persistent-store read/write failed
	// during recovery; this is always fatal.
	ErrStorageFailure = errors.New("storage I/O failure")

	// ErrTransportWrite indicates the UDS write to the execution layer
	// failed after exhausting retries.
	ErrTransportWrite = errors.New("transport write failure")

	// ErrHashMismatch indicates the bytes about to be sent no longer
	// match the hash agreed on during block assembly; always fatal.
	ErrHashMismatch = errors.New("hash mismatch across validation checkpoint")

	// ErrSignature wraps an error returned by the external signature
	// service; it is propagated without emitting a header.
	ErrSignature = errors.New("signature service error")

	// ErrDecode indicates a malformed transaction payload; always fatal,
	// since it indicates corruption of committed content.
	ErrDecode = errors.New("decode failure")
)
