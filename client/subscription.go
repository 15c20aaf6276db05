// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/drover/wire"
)

// subscriptionBuffer bounds how many undelivered updates one
// subscriber may accumulate before the read loop starts dropping for
// them.
const subscriptionBuffer = 64

// StatusCallback handles one status update. A returned error is
// logged; it neither cancels the subscription nor affects other
// subscribers.
type StatusCallback func(wire.StatusUpdate) error

// Subscription is a registered status-update consumer. Close detaches
// it; the callback goroutine drains what was already buffered and
// exits.
type Subscription struct {
	id       uint64
	agentID  uuid.UUID
	ch       chan wire.StatusUpdate
	registry *subscriptionRegistry
	once     sync.Once
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.registry.remove(s.id)
	})
}

// subscriptionRegistry fans status updates out to subscribers without
// letting any of them block the read loop.
type subscriptionRegistry struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
}

func newSubscriptionRegistry(logger *slog.Logger) *subscriptionRegistry {
	return &subscriptionRegistry{
		logger: logger,
		subs:   make(map[uint64]*Subscription),
	}
}

// add registers a subscriber and starts its callback goroutine.
// agentID filters updates to one agent; uuid.Nil subscribes to all.
func (r *subscriptionRegistry) add(agentID uuid.UUID, callback StatusCallback) (*Subscription, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	s := &Subscription{
		id:       r.nextID,
		agentID:  agentID,
		ch:       make(chan wire.StatusUpdate, subscriptionBuffer),
		registry: r,
	}
	r.nextID++
	r.subs[s.id] = s
	r.mu.Unlock()

	go r.run(s, callback)
	return s, nil
}

// run delivers updates to one subscriber's callback until its channel
// closes. Callback errors are logged and swallowed so one bad handler
// cannot silence the rest of the stream.
func (r *subscriptionRegistry) run(s *Subscription, callback StatusCallback) {
	for update := range s.ch {
		if err := callback(update); err != nil {
			r.logger.Error("status callback failed",
				"agent_id", update.AgentID,
				"update_type", update.Type,
				"error", err,
			)
		}
	}
}

// deliver fans one update out to every matching subscriber. Channel
// sends never block: a subscriber that has fallen subscriptionBuffer
// updates behind loses new updates until it drains.
func (r *subscriptionRegistry) deliver(update wire.StatusUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.agentID != uuid.Nil && s.agentID != update.AgentID {
			continue
		}
		select {
		case s.ch <- update:
		default:
			r.logger.Warn("subscriber backlogged, dropping status update",
				"agent_id", update.AgentID,
				"update_type", update.Type,
			)
		}
	}
}

// remove detaches one subscriber. Closing the channel under the
// registry lock is safe because deliver sends under the same lock.
func (r *subscriptionRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return
	}
	delete(r.subs, id)
	close(s.ch)
}

// closeAll detaches every subscriber and rejects future adds.
func (r *subscriptionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, s := range r.subs {
		delete(r.subs, id)
		close(s.ch)
	}
}

// SubscribeStatus registers callback for status updates pushed by the
// runner. agentID restricts delivery to one agent; uuid.Nil receives
// updates for all agents. Requires the async pattern.
func (c *Client) SubscribeStatus(agentID uuid.UUID, callback StatusCallback) (*Subscription, error) {
	if callback == nil {
		return nil, fmt.Errorf("client: subscription requires a callback")
	}
	if c.syncMode {
		return nil, fmt.Errorf("client: status subscriptions require the async pattern")
	}
	return c.subs.add(agentID, callback)
}
