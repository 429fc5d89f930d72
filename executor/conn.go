// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/lunabft/narwhal-core/config"
	"github.com/lunabft/narwhal-core/types"
	"github.com/lunabft/narwhal-core/wire"
)

// Dialer opens the byte-stream connection to the execution layer. The
// default dials a Unix-domain socket; tests substitute an in-memory pipe.
type Dialer interface {
	Dial(ctx context.Context) (io.WriteCloser, error)
}

// UnixDialer dials a Unix-domain socket at Path, lazily and on every
// reconnect after a failed write.
type UnixDialer struct {
	Path string
}

// Dial implements Dialer.
func (d UnixDialer) Dial(ctx context.Context) (io.WriteCloser, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", d.Path)
	if err != nil {
		return nil, fmt.Errorf("dialing execution socket %s: %w", d.Path, err)
	}
	return conn, nil
}

// conn lazily connects to the execution layer and serializes framed
// writes behind a single mutex, per §5's socket-lock discipline: the lock
// is held for exactly one block's framed write, never across retries of
// a different block.
type conn struct {
	mu     sync.Mutex
	dialer Dialer
	writer io.WriteCloser
}

func newConn(dialer Dialer) *conn {
	return &conn{dialer: dialer}
}

// send writes one framed payload, connecting lazily on first use or after
// a prior write failure. It does not retry — retry policy lives in the
// caller (Assembler.sendBlock), which needs to re-check last_sent_height
// between attempts.
func (c *conn) send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer == nil {
		w, err := c.dialer.Dial(ctx)
		if err != nil {
			return err
		}
		c.writer = w
	}

	var buf bytes.Buffer
	if err := wire.WriteFrame(&buf, payload); err != nil {
		return err
	}
	if _, err := c.writer.Write(buf.Bytes()); err != nil {
		c.writer.Close()
		c.writer = nil
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer != nil {
		c.writer.Close()
		c.writer = nil
	}
}

// sendWithRetry writes payload, retrying up to params.MaxSendRetries times
// with exponential backoff. abortIfStale is consulted before every attempt
// (including the first) so a block already sent by the time a retry would
// fire is skipped rather than resent.
func sendWithRetry(ctx context.Context, c *conn, params config.Parameters, payload []byte, abortIfStale func() bool) error {
	var lastErr error
	for attempt := 0; attempt <= params.MaxSendRetries; attempt++ {
		if abortIfStale() {
			return nil
		}
		err := c.send(ctx, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == params.MaxSendRetries {
			break
		}
		delay := config.BackoffDelay(params.RetryDelayBase, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: after %d attempts: %w", types.ErrTransportWrite, params.MaxSendRetries+1, lastErr)
}
