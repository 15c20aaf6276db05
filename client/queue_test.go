// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/drover/wire"
)

func queuedWaiter(id string) *waiter {
	return newWaiter(id, wire.KindCommandResponse)
}

func TestQueueBuffersUntilDrained(t *testing.T) {
	q := newCommandQueue(10)
	now := time.Unix(1700000100, 0).UTC()

	// A fresh queue buffers: the client starts disconnected.
	for i := range 3 {
		queued, err := q.intercept(queuedWaiter(fmt.Sprintf("req-%d", i)), now)
		if err != nil {
			t.Fatalf("intercept %d: %v", i, err)
		}
		if !queued {
			t.Fatalf("intercept %d bypassed the queue while buffering", i)
		}
	}
	if got := q.len(); got != 3 {
		t.Fatalf("len = %d, want 3", got)
	}

	// Drain preserves FIFO order and opens the gate when empty.
	for i := range 3 {
		w, ok := q.next()
		if !ok {
			t.Fatalf("next returned done after %d entries", i)
		}
		if want := fmt.Sprintf("req-%d", i); w.requestID != want {
			t.Fatalf("popped %q, want %q", w.requestID, want)
		}
	}
	if _, ok := q.next(); ok {
		t.Fatal("next returned an entry from an empty queue")
	}

	queued, err := q.intercept(queuedWaiter("direct"), now)
	if err != nil {
		t.Fatalf("intercept after drain: %v", err)
	}
	if queued {
		t.Fatal("intercept queued a command after the gate opened")
	}
}

func TestQueueOverflowRejectsImmediately(t *testing.T) {
	q := newCommandQueue(2)
	now := time.Now()

	for i := range 2 {
		if _, err := q.intercept(queuedWaiter(fmt.Sprintf("req-%d", i)), now); err != nil {
			t.Fatalf("intercept %d: %v", i, err)
		}
	}

	_, err := q.intercept(queuedWaiter("overflow"), now)
	if err == nil {
		t.Fatal("intercept succeeded past capacity")
	}
	var full *QueueFullError
	if !errors.As(err, &full) {
		t.Fatalf("error type = %T, want *QueueFullError", err)
	}
	if full.Capacity != 2 {
		t.Fatalf("Capacity = %d, want 2", full.Capacity)
	}
	if !IsQueueFull(err) {
		t.Fatal("IsQueueFull returned false")
	}
	// The rejection must not evict anything already queued.
	if got := q.len(); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}
}

func TestQueueRequeueFront(t *testing.T) {
	q := newCommandQueue(10)
	now := time.Now()
	for i := range 3 {
		if _, err := q.intercept(queuedWaiter(fmt.Sprintf("req-%d", i)), now); err != nil {
			t.Fatalf("intercept %d: %v", i, err)
		}
	}

	w, ok := q.next()
	if !ok {
		t.Fatal("next returned done on a populated queue")
	}
	q.requeueFront(w)

	w, ok = q.next()
	if !ok || w.requestID != "req-0" {
		t.Fatalf("head after requeue = %q, want %q", w.requestID, "req-0")
	}
}

func TestQueueGateReclosesOnBuffering(t *testing.T) {
	q := newCommandQueue(10)
	now := time.Now()

	// Open the gate.
	if _, ok := q.next(); ok {
		t.Fatal("next returned an entry from an empty queue")
	}
	if queued, _ := q.intercept(queuedWaiter("a"), now); queued {
		t.Fatal("queued while the gate was open")
	}

	q.startBuffering()
	queued, err := q.intercept(queuedWaiter("b"), now)
	if err != nil {
		t.Fatalf("intercept: %v", err)
	}
	if !queued {
		t.Fatal("intercept bypassed a closed gate")
	}
}

func TestQueueFailAllIsTerminal(t *testing.T) {
	q := newCommandQueue(10)
	now := time.Now()
	first := queuedWaiter("req-0")
	second := queuedWaiter("req-1")
	for _, w := range []*waiter{first, second} {
		if _, err := q.intercept(w, now); err != nil {
			t.Fatalf("intercept: %v", err)
		}
	}

	failure := &ConnectionFailedError{Attempts: 3}
	if got := q.failAll(failure); got != 2 {
		t.Fatalf("failAll resolved %d, want 2", got)
	}
	for _, w := range []*waiter{first, second} {
		select {
		case r := <-w.done:
			if !IsConnectionFailed(r.err) {
				t.Fatalf("waiter error = %v, want *ConnectionFailedError", r.err)
			}
		default:
			t.Fatalf("waiter %s not resolved", w.requestID)
		}
	}

	// The queue is pinned: later submissions fail the same way.
	if _, err := q.intercept(queuedWaiter("late"), now); !IsConnectionFailed(err) {
		t.Fatalf("intercept after failAll = %v, want *ConnectionFailedError", err)
	}
	if err := q.enqueue(queuedWaiter("late"), now); !IsConnectionFailed(err) {
		t.Fatalf("enqueue after failAll = %v, want *ConnectionFailedError", err)
	}
}
