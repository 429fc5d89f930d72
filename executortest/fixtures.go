// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executortest provides in-memory doubles for the block
// assembler's external collaborators: batch storage (BatchFetcher) and
// the execution-layer socket (Dialer).
package executortest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/lunabft/narwhal-core/types"
)

// Fetcher is an in-memory BatchFetcher backed by a digest->batch map.
type Fetcher struct {
	mu      sync.Mutex
	batches map[types.BatchDigest]*types.Batch
}

// NewFetcher returns an empty Fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{batches: make(map[types.BatchDigest]*types.Batch)}
}

// Put registers a batch's content for later retrieval by digest.
func (f *Fetcher) Put(batch *types.Batch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[batch.Digest] = batch
}

// GetBatch implements executor.BatchFetcher.
func (f *Fetcher) GetBatch(ctx context.Context, digest types.BatchDigest, workerID types.WorkerID) (*types.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[digest]
	if !ok {
		return &types.Batch{Digest: digest, WorkerID: workerID}, nil
	}
	return b, nil
}

// memConn is an io.WriteCloser that appends every write to a shared
// buffer, standing in for the Unix-domain socket connection.
type memConn struct {
	dialer *MemoryDialer
}

func (c *memConn) Write(p []byte) (int, error) {
	c.dialer.mu.Lock()
	defer c.dialer.mu.Unlock()
	if c.dialer.failNext > 0 {
		c.dialer.failNext--
		return 0, io.ErrClosedPipe
	}
	c.dialer.buf.Write(p)
	return len(p), nil
}

func (c *memConn) Close() error { return nil }

// MemoryDialer is an in-memory executor.Dialer: every frame written is
// appended to an in-memory buffer a test can read back and re-parse with
// wire.ReadFrame.
type MemoryDialer struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	failNext int
}

// Dial implements executor.Dialer.
func (d *MemoryDialer) Dial(ctx context.Context) (io.WriteCloser, error) {
	return &memConn{dialer: d}, nil
}

// FailNextWrites makes the next n writes to any connection returned by
// Dial fail, to exercise the assembler's retry path.
func (d *MemoryDialer) FailNextWrites(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = n
}

// Bytes returns everything written so far.
func (d *MemoryDialer) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.buf.Bytes()...)
}

// Reader returns a reader over everything written so far, for draining
// frames with wire.ReadFrame.
func (d *MemoryDialer) Reader() *bytes.Reader {
	return bytes.NewReader(d.Bytes())
}
