// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"time"

	golog "github.com/luxfi/log"

	"github.com/lunabft/narwhal-core/types"
)

// MissedBatchInfo tracks one committed-but-not-yet-processed batch for the
// soft diagnostic tracker. Nothing here influences committed content —
// commitTime is wall-clock and therefore forbidden from gating anything
// but logging.
type MissedBatchInfo struct {
	CommitTime time.Time
	Index      uint64
	Round      types.Round
	Height     uint64
	RetryCount int
}

// missedBatchTracker records committed batches between commit and
// processing and periodically logs any that have sat too long. It is
// purely diagnostic: it never triggers re-execution.
type missedBatchTracker struct {
	entries map[types.BatchDigest]*MissedBatchInfo
	timeout time.Duration
	maxLogs int
}

func newMissedBatchTracker(timeout time.Duration, maxLogs int) *missedBatchTracker {
	return &missedBatchTracker{
		entries: make(map[types.BatchDigest]*MissedBatchInfo),
		timeout: timeout,
		maxLogs: maxLogs,
	}
}

func (t *missedBatchTracker) record(digest types.BatchDigest, round types.Round, index, height uint64, now time.Time) {
	if _, ok := t.entries[digest]; ok {
		return
	}
	t.entries[digest] = &MissedBatchInfo{CommitTime: now, Index: index, Round: round, Height: height}
}

func (t *missedBatchTracker) resolve(digest types.BatchDigest) {
	delete(t.entries, digest)
}

func (t *missedBatchTracker) len() int {
	return len(t.entries)
}

// scan logs every entry overdue by more than timeout, up to maxLogs times
// per digest, via logFn.
func (t *missedBatchTracker) scan(now time.Time, logFn func(digest types.BatchDigest, info MissedBatchInfo)) {
	for digest, info := range t.entries {
		if now.Sub(info.CommitTime) <= t.timeout {
			continue
		}
		if info.RetryCount >= t.maxLogs {
			continue
		}
		info.RetryCount++
		logFn(digest, *info)
	}
}

// logOverdue is the default logFn used by Assembler.scanMissedBatches.
func logOverdue(logger golog.Logger) func(types.BatchDigest, MissedBatchInfo) {
	return func(digest types.BatchDigest, info MissedBatchInfo) {
		logger.Warn("batch committed but not yet processed",
			"digest", digest,
			"round", info.Round,
			"consensus_index", info.Index,
			"height", info.Height,
			"retry_count", info.RetryCount,
		)
	}
}
