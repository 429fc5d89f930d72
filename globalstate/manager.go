// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package globalstate implements the process-wide cross-component
// snapshot: monotonic updates, a broadcast subscription, and atomic
// temp-file-then-rename persistence. Grounded on node/src/global_state.rs
// and types/src/global_state.rs.
package globalstate

import (
	"context"
	"os"
	"sync"

	golog "github.com/luxfi/log"

	"github.com/lunabft/narwhal-core/codec"
	"github.com/lunabft/narwhal-core/log"
	"github.com/lunabft/narwhal-core/types"
)

// Manager implements types.GlobalStateManager.
type Manager struct {
	log golog.Logger

	mu    sync.RWMutex
	state types.GlobalStateSnapshot

	statePath           string
	persistenceInterval uint64
	updatesSinceFlush    uint64

	subMu       sync.Mutex
	subscribers []chan types.GlobalStateSnapshot
}

var _ types.GlobalStateManager = (*Manager)(nil)

// New returns a Manager that persists to statePath, deserializing the
// current snapshot from disk if present. A corrupt, unreadable or missing
// file is tolerated: the manager starts at defaults rather than failing
// (logging a warning unless the file is simply absent), matching the
// original's load_from_disk behavior.
func New(logger golog.Logger, statePath string, persistenceInterval uint64) *Manager {
	m := &Manager{
		log:                 log.New(logger, "global_state"),
		statePath:           statePath,
		persistenceInterval: persistenceInterval,
		state: types.GlobalStateSnapshot{
			LastCommitted: make(map[types.AuthorityID]types.Round),
		},
	}
	m.loadFromDisk()
	return m
}

func (m *Manager) loadFromDisk() {
	if m.statePath == "" {
		return
	}
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Warn("failed to read global state file, starting at defaults", "error", err)
		}
		return
	}
	var snapshot types.GlobalStateSnapshot
	if _, err := codec.Codec.Unmarshal(data, &snapshot); err != nil {
		m.log.Warn("failed to decode global state file, starting at defaults", "error", err)
		return
	}
	if snapshot.LastCommitted == nil {
		snapshot.LastCommitted = make(map[types.AuthorityID]types.Round)
	}
	m.state = snapshot
	m.log.Info("loaded global state from disk", "path", m.statePath)
}

// persistToDisk serializes the snapshot to a temp file and atomically
// renames it over the canonical path. Caller must hold at least a read
// lock on m.mu.
func (m *Manager) persistToDisk() {
	if m.statePath == "" {
		return
	}
	data, err := codec.Codec.Marshal(codec.CurrentVersion, m.state)
	if err != nil {
		m.log.Error("failed to encode global state", "error", err)
		return
	}
	tmpPath := m.statePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		m.log.Error("failed to write global state tmp file", "error", err)
		return
	}
	if err := os.Rename(tmpPath, m.statePath); err != nil {
		m.log.Error("failed to rename global state tmp file", "error", err)
	}
}

func (m *Manager) persistIfNeeded() {
	m.updatesSinceFlush++
	if m.persistenceInterval == 0 || m.updatesSinceFlush < m.persistenceInterval {
		return
	}
	m.updatesSinceFlush = 0
	m.persistToDisk()
}

// ForcePersist flushes the current snapshot to disk unconditionally,
// typically called during clean shutdown.
func (m *Manager) ForcePersist() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.persistToDisk()
}

func (m *Manager) publish() {
	snapshot := m.copyLocked()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber: drop rather than block the writer; the
			// snapshot is a hint, not a guaranteed delivery.
		}
	}
}

func (m *Manager) copyLocked() types.GlobalStateSnapshot {
	committed := make(map[types.AuthorityID]types.Round, len(m.state.LastCommitted))
	for k, v := range m.state.LastCommitted {
		committed[k] = v
	}
	cp := m.state
	cp.LastCommitted = committed
	return cp
}

// GetState implements types.GlobalStateManager.
func (m *Manager) GetState(ctx context.Context) types.GlobalStateSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyLocked()
}

// Subscribe implements types.GlobalStateManager.
func (m *Manager) Subscribe() <-chan types.GlobalStateSnapshot {
	ch := make(chan types.GlobalStateSnapshot, 1)
	m.subMu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.subMu.Unlock()
	return ch
}

// UpdateLastCommittedRound implements types.GlobalStateManager.
func (m *Manager) UpdateLastCommittedRound(ctx context.Context, round types.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if round <= m.state.LastCommittedRound {
		return
	}
	m.state.LastCommittedRound = round
	m.persistIfNeeded()
	m.publish()
}

// UpdateLastCommitted implements types.GlobalStateManager.
func (m *Manager) UpdateLastCommitted(ctx context.Context, authority types.AuthorityID, round types.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if round <= m.state.LastCommitted[authority] {
		return
	}
	m.state.LastCommitted[authority] = round
	m.persistIfNeeded()
	m.publish()
}

// UpdateConsensusIndex implements types.GlobalStateManager.
func (m *Manager) UpdateConsensusIndex(ctx context.Context, index types.SequenceNumber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index <= m.state.LastConsensusIndex {
		return
	}
	m.state.LastConsensusIndex = index
	m.persistIfNeeded()
	m.publish()
}

// UpdateProposerRound implements types.GlobalStateManager.
func (m *Manager) UpdateProposerRound(ctx context.Context, round types.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if round <= m.state.ProposerRound {
		return
	}
	m.state.ProposerRound = round
	m.persistIfNeeded()
	m.publish()
}

// UpdateCoreGCRound implements types.GlobalStateManager.
func (m *Manager) UpdateCoreGCRound(ctx context.Context, round types.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if round <= m.state.CoreGCRound {
		return
	}
	m.state.CoreGCRound = round
	m.persistIfNeeded()
	m.publish()
}

// UpdateLastSentHeight implements types.GlobalStateManager.
func (m *Manager) UpdateLastSentHeight(ctx context.Context, height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.LastSentHeight != nil && height <= *m.state.LastSentHeight {
		return
	}
	m.state.LastSentHeight = &height
	m.persistIfNeeded()
	m.publish()
}

// UpdateNextExpectedBlockHeight implements types.GlobalStateManager.
func (m *Manager) UpdateNextExpectedBlockHeight(ctx context.Context, height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if height <= m.state.NextExpectedBlockHeight {
		return
	}
	m.state.NextExpectedBlockHeight = height
	m.persistIfNeeded()
	m.publish()
}

// UpdateLastConfirmedBlock implements types.GlobalStateManager.
func (m *Manager) UpdateLastConfirmedBlock(ctx context.Context, height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.LastConfirmedBlock != nil && height <= *m.state.LastConfirmedBlock {
		return
	}
	m.state.LastConfirmedBlock = &height
	m.persistIfNeeded()
	m.publish()
}
