// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/drover/wire"
)

// result is the terminal outcome of a request: a response envelope or
// an error, never both.
type result struct {
	envelope *wire.Envelope
	err      error
}

// waiter is one caller blocked on a request. The same waiter moves
// through the offline queue (when issued while disconnected) and the
// pending table (once its frame is on the wire); it is resolved exactly
// once, by response delivery, expiry, or a terminal connection error.
type waiter struct {
	requestID  string
	expectKind wire.Kind
	frame      []byte
	done       chan result
	cancelled  atomic.Bool
	queuedAt   time.Time
	sentAt     time.Time
}

func newWaiter(requestID string, expectKind wire.Kind) *waiter {
	return &waiter{
		requestID:  requestID,
		expectKind: expectKind,
		done:       make(chan result, 1),
	}
}

// resolve delivers the outcome. The channel holds one slot and every
// waiter is removed from its table before resolution, so this never
// blocks and never double-sends.
func (w *waiter) resolve(r result) {
	w.done <- r
}

// correlator matches response envelopes to waiters by request ID.
type correlator struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*waiter
}

func newCorrelator(logger *slog.Logger) *correlator {
	return &correlator{
		logger:  logger,
		pending: make(map[string]*waiter),
	}
}

// register claims the correlation slot for w.requestID. Request IDs
// are process-unique, so a collision means a caller bug.
func (c *correlator) register(w *waiter, sentAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.pending[w.requestID]; exists {
		return fmt.Errorf("client: request %s already pending", w.requestID)
	}
	w.sentAt = sentAt
	c.pending[w.requestID] = w
	return nil
}

// route delivers env to the waiter registered under its request ID.
// Responses that match no waiter (already expired, or a peer bug) and
// responses whose kind does not pair with the waiter's request are
// logged and dropped; in the mismatch case the waiter stays registered
// and expires on its own schedule.
func (c *correlator) route(env *wire.Envelope) bool {
	c.mu.Lock()
	w, ok := c.pending[env.RequestID]
	if !ok {
		c.mu.Unlock()
		c.logger.Warn("dropping unmatched response",
			"kind", env.Kind,
			"request_id", env.RequestID,
		)
		return false
	}
	if env.Kind != w.expectKind {
		c.mu.Unlock()
		c.logger.Warn("dropping response with unexpected kind",
			"kind", env.Kind,
			"want", w.expectKind,
			"request_id", env.RequestID,
		)
		return false
	}
	delete(c.pending, env.RequestID)
	c.mu.Unlock()

	w.resolve(result{envelope: env})
	return true
}

// expire removes the waiter for requestID without resolving it; the
// caller owns the timeout result. Returns false when the slot is
// already gone, which means a response won the race.
func (c *correlator) expire(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[requestID]; !ok {
		return false
	}
	delete(c.pending, requestID)
	return true
}

// failAll resolves every pending waiter with err and empties the
// table. Used on Close and on entering the failed state.
func (c *correlator) failAll(err error) int {
	c.mu.Lock()
	waiters := make([]*waiter, 0, len(c.pending))
	for _, w := range c.pending {
		waiters = append(waiters, w)
	}
	c.pending = make(map[string]*waiter)
	c.mu.Unlock()

	for _, w := range waiters {
		w.resolve(result{err: err})
	}
	return len(waiters)
}

func (c *correlator) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
