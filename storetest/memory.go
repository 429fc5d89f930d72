// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storetest provides in-memory CertificateStore and ConsensusStore
// doubles for recovery and integration tests. On-disk mechanics are out of
// core scope (spec §1); this is the test-only stand-in for that external
// collaborator.
package storetest

import (
	"context"
	"sync"

	"github.com/lunabft/narwhal-core/types"
)

// Memory implements types.CertificateStore and types.ConsensusStore
// entirely in memory.
type Memory struct {
	mu sync.Mutex

	certs []*types.Certificate

	lastConsensusIndex types.SequenceNumber
	lastCommitted      map[types.AuthorityID]types.Round
}

var (
	_ types.CertificateStore = (*Memory)(nil)
	_ types.ConsensusStore   = (*Memory)(nil)
)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{lastCommitted: make(map[types.AuthorityID]types.Round)}
}

// AfterRound implements types.CertificateStore.
func (m *Memory) AfterRound(ctx context.Context, minRound types.Round) ([]*types.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Certificate
	for _, c := range m.certs {
		if c.Round() > minRound {
			out = append(out, c)
		}
	}
	return out, nil
}

// Write implements types.CertificateStore.
func (m *Memory) Write(ctx context.Context, cert *types.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certs = append(m.certs, cert)
	return nil
}

// ReadLastConsensusIndex implements types.ConsensusStore.
func (m *Memory) ReadLastConsensusIndex(ctx context.Context) (types.SequenceNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastConsensusIndex, nil
}

// ReadLastCommitted implements types.ConsensusStore.
func (m *Memory) ReadLastCommitted(ctx context.Context) (map[types.AuthorityID]types.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[types.AuthorityID]types.Round, len(m.lastCommitted))
	for k, v := range m.lastCommitted {
		cp[k] = v
	}
	return cp, nil
}

// WriteLastConsensusIndex implements types.ConsensusStore.
func (m *Memory) WriteLastConsensusIndex(ctx context.Context, index types.SequenceNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastConsensusIndex = index
	return nil
}

// WriteLastCommitted implements types.ConsensusStore.
func (m *Memory) WriteLastCommitted(ctx context.Context, committed map[types.AuthorityID]types.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[types.AuthorityID]types.Round, len(committed))
	for k, v := range committed {
		cp[k] = v
	}
	m.lastCommitted = cp
	return nil
}

// SeedCommitted directly sets the last-committed map and index, for tests
// constructing a pre-crash state to recover from.
func (m *Memory) SeedCommitted(committed map[types.AuthorityID]types.Round, index types.SequenceNumber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[types.AuthorityID]types.Round, len(committed))
	for k, v := range committed {
		cp[k] = v
	}
	m.lastCommitted = cp
	m.lastConsensusIndex = index
}
