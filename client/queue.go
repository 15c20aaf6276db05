// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"sync"
	"time"

	"github.com/juju/collections/deque"
)

// commandQueue buffers outbound commands while the connection is down
// and replays them in FIFO order once it recovers.
//
// The queue also acts as the ordering gate for the request path: while
// buffering is on (connection down, or replay still in progress) every
// new command is appended behind the backlog, so commands issued during
// an outage and commands issued during the replay that follows it reach
// the peer in issue order.
type commandQueue struct {
	capacity int

	mu        sync.Mutex
	buffering bool
	terminal  error
	entries   *deque.Deque
}

func newCommandQueue(capacity int) *commandQueue {
	return &commandQueue{
		capacity:  capacity,
		buffering: true, // clients start disconnected
		entries:   deque.New(),
	}
}

// intercept routes w through the queue when buffering. Returns
// queued=false when the connection is up and the caller should send
// directly, and a *QueueFullError when the backlog is at capacity.
func (q *commandQueue) intercept(w *waiter, now time.Time) (queued bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminal != nil {
		return false, q.terminal
	}
	if !q.buffering {
		return false, nil
	}
	if q.entries.Len() >= q.capacity {
		return false, &QueueFullError{Capacity: q.capacity}
	}
	w.queuedAt = now
	q.entries.PushBack(w)
	return true, nil
}

// enqueue appends w regardless of the gate. Used when a direct send
// fails under the caller's feet: the command is absorbed into the
// backlog for replay instead of surfacing a transport error.
func (q *commandQueue) enqueue(w *waiter, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminal != nil {
		return q.terminal
	}
	if q.entries.Len() >= q.capacity {
		return &QueueFullError{Capacity: q.capacity}
	}
	w.queuedAt = now
	q.entries.PushBack(w)
	return nil
}

// startBuffering closes the gate; subsequent commands queue.
func (q *commandQueue) startBuffering() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffering = true
}

// next pops the oldest queued command for replay. When the backlog is
// empty it opens the gate in the same critical section and reports
// done, so no command issued mid-replay can bypass the backlog.
func (q *commandQueue) next() (*waiter, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.entries.PopFront()
	if !ok {
		q.buffering = false
		return nil, false
	}
	return item.(*waiter), true
}

// requeueFront puts an unsent command back at the head of the backlog
// after a replay interrupted by another drop.
func (q *commandQueue) requeueFront(w *waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries.PushFront(w)
}

// failAll resolves every queued command with err, empties the backlog,
// and pins the queue: later submissions fail with the same error. Only
// terminal conditions (Failed state, Close) reach here.
func (q *commandQueue) failAll(err error) int {
	q.mu.Lock()
	q.terminal = err
	waiters := make([]*waiter, 0, q.entries.Len())
	for {
		item, ok := q.entries.PopFront()
		if !ok {
			break
		}
		waiters = append(waiters, item.(*waiter))
	}
	q.mu.Unlock()

	for _, w := range waiters {
		w.resolve(result{err: err})
	}
	return len(waiters)
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}
