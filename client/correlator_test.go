// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/drover/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func responseEnvelope(t *testing.T, kind wire.Kind, requestID string) *wire.Envelope {
	t.Helper()
	env, err := wire.NewEnvelope(kind, requestID, wire.CommandResponse{Success: true}, time.Unix(1700000100, 0).UTC())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	return env
}

func TestCorrelatorRoutesResponse(t *testing.T) {
	c := newCorrelator(testLogger())
	w := newWaiter("req-1", wire.KindCommandResponse)
	if err := c.register(w, time.Now()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if !c.route(responseEnvelope(t, wire.KindCommandResponse, "req-1")) {
		t.Fatal("route returned false for a registered request")
	}
	select {
	case r := <-w.done:
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.envelope.RequestID != "req-1" {
			t.Fatalf("got request ID %q, want %q", r.envelope.RequestID, "req-1")
		}
	default:
		t.Fatal("waiter not resolved")
	}
	if got := c.len(); got != 0 {
		t.Fatalf("pending count = %d, want 0", got)
	}
}

func TestCorrelatorDropsUnmatchedResponse(t *testing.T) {
	c := newCorrelator(testLogger())
	if c.route(responseEnvelope(t, wire.KindCommandResponse, "nobody")) {
		t.Fatal("route returned true for an unknown request ID")
	}
}

func TestCorrelatorKindMismatchKeepsWaiter(t *testing.T) {
	c := newCorrelator(testLogger())
	w := newWaiter("req-1", wire.KindSpawnResponse)
	if err := c.register(w, time.Now()); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A reply with the right ID but the wrong kind is dropped and the
	// waiter stays registered.
	if c.route(responseEnvelope(t, wire.KindCommandResponse, "req-1")) {
		t.Fatal("route delivered a response of the wrong kind")
	}
	if got := c.len(); got != 1 {
		t.Fatalf("pending count = %d, want 1", got)
	}

	if !c.route(responseEnvelope(t, wire.KindSpawnResponse, "req-1")) {
		t.Fatal("route rejected the correctly typed response")
	}
}

func TestCorrelatorDuplicateRegister(t *testing.T) {
	c := newCorrelator(testLogger())
	if err := c.register(newWaiter("req-1", wire.KindCommandResponse), time.Now()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.register(newWaiter("req-1", wire.KindCommandResponse), time.Now()); err == nil {
		t.Fatal("second register with the same request ID succeeded")
	}
}

func TestCorrelatorExpire(t *testing.T) {
	c := newCorrelator(testLogger())
	w := newWaiter("req-1", wire.KindCommandResponse)
	if err := c.register(w, time.Now()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if !c.expire("req-1") {
		t.Fatal("expire returned false for a registered request")
	}
	if c.expire("req-1") {
		t.Fatal("second expire returned true")
	}
	if c.route(responseEnvelope(t, wire.KindCommandResponse, "req-1")) {
		t.Fatal("route delivered to an expired waiter")
	}
	select {
	case <-w.done:
		t.Fatal("expired waiter was resolved")
	default:
	}
}

func TestCorrelatorFailAll(t *testing.T) {
	c := newCorrelator(testLogger())
	waiters := make([]*waiter, 3)
	for i := range waiters {
		waiters[i] = newWaiter(fmt.Sprintf("req-%d", i), wire.KindCommandResponse)
		if err := c.register(waiters[i], time.Now()); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	boom := errors.New("boom")
	if got := c.failAll(boom); got != 3 {
		t.Fatalf("failAll resolved %d waiters, want 3", got)
	}
	for i, w := range waiters {
		select {
		case r := <-w.done:
			if !errors.Is(r.err, boom) {
				t.Fatalf("waiter %d error = %v, want %v", i, r.err, boom)
			}
		default:
			t.Fatalf("waiter %d not resolved", i)
		}
	}
	if got := c.len(); got != 0 {
		t.Fatalf("pending count = %d, want 0", got)
	}
}

func TestCorrelatorConcurrentRoundTrips(t *testing.T) {
	c := newCorrelator(testLogger())
	const n = 64

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		requestID := fmt.Sprintf("req-%d", i)
		w := newWaiter(requestID, wire.KindCommandResponse)
		if err := c.register(w, time.Now()); err != nil {
			t.Fatalf("register %s: %v", requestID, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case r := <-w.done:
				if r.err != nil {
					errs <- r.err
					return
				}
				if r.envelope.RequestID != requestID {
					errs <- fmt.Errorf("got response for %q, want %q", r.envelope.RequestID, requestID)
				}
			case <-time.After(5 * time.Second):
				errs <- fmt.Errorf("waiter %s timed out", requestID)
			}
		}()
	}

	// Deliver in reverse to make sure arrival order is irrelevant.
	for i := n - 1; i >= 0; i-- {
		if !c.route(responseEnvelope(t, wire.KindCommandResponse, fmt.Sprintf("req-%d", i))) {
			t.Fatalf("route req-%d failed", i)
		}
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
