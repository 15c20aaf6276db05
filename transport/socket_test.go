// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		network  string
		address  string
		wantErr  bool
	}{
		{"tcp://localhost:5555", "tcp", "localhost:5555", false},
		{"tcp://10.0.0.7:9000", "tcp", "10.0.0.7:9000", false},
		{"unix:///run/drover.sock", "unix", "/run/drover.sock", false},
		{"ipc:///tmp/runner.sock", "unix", "/tmp/runner.sock", false},
		{"localhost:5555", "", "", true},
		{"tcp://", "", "", true},
		{"quic://localhost:5555", "", "", true},
	}
	for _, test := range tests {
		network, address, err := parseEndpoint(test.endpoint)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseEndpoint(%q): expected error, got %s/%s", test.endpoint, network, address)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseEndpoint(%q): %v", test.endpoint, err)
			continue
		}
		if network != test.network || address != test.address {
			t.Errorf("parseEndpoint(%q): got %s/%s, want %s/%s",
				test.endpoint, network, address, test.network, test.address)
		}
	}
}

func TestParsePattern(t *testing.T) {
	sync, err := ParsePattern("sync")
	if err != nil || sync != Sync {
		t.Errorf("ParsePattern(sync): got %v, %v", sync, err)
	}
	async, err := ParsePattern("async")
	if err != nil || async != Async {
		t.Errorf("ParsePattern(async): got %v, %v", async, err)
	}
	if _, err := ParsePattern("carrier-pigeon"); err == nil {
		t.Error("ParsePattern accepted an unknown pattern")
	}
	if Sync.String() != "sync" || Async.String() != "async" {
		t.Errorf("Pattern.String: got %q and %q", Sync, Async)
	}
}

// startEchoPeer runs a TCP listener that echoes every frame back on
// the connection it arrived on. Returns the endpoint to dial.
func startEchoPeer(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					payload, err := readFrame(conn, DefaultMaxFrameSize)
					if err != nil {
						return
					}
					if err := writeFrame(conn, payload, DefaultMaxFrameSize); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return "tcp://" + listener.Addr().String()
}

// startSilentPeer runs a TCP listener that accepts connections and
// never responds. Returns the endpoint to dial.
func startSilentPeer(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	return "tcp://" + listener.Addr().String()
}

func TestSyncSocketExchange(t *testing.T) {
	endpoint := startEchoPeer(t)
	socket, err := New(Sync, endpoint, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := socket.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer socket.Disconnect()

	if err := socket.Send([]byte("ping")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	reply, err := socket.Receive(5 * time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(reply) != "ping" {
		t.Errorf("reply: got %q, want %q", reply, "ping")
	}

	// The exchange completed, so the next send is legal again.
	if err := socket.Send([]byte("pong")); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if _, err := socket.Receive(5 * time.Second); err != nil {
		t.Fatalf("second Receive: %v", err)
	}
}

func TestSyncSocketLockstep(t *testing.T) {
	endpoint := startEchoPeer(t)
	socket, err := New(Sync, endpoint, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := socket.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer socket.Disconnect()

	if _, err := socket.Receive(time.Second); !errors.Is(err, ErrNoPendingRequest) {
		t.Errorf("Receive before Send: got %v, want ErrNoPendingRequest", err)
	}

	if err := socket.Send([]byte("one")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := socket.Send([]byte("two")); !errors.Is(err, ErrAwaitingReply) {
		t.Errorf("Send while awaiting reply: got %v, want ErrAwaitingReply", err)
	}
	if _, err := socket.Receive(5 * time.Second); err != nil {
		t.Fatalf("Receive: %v", err)
	}
}

func TestAsyncSocketMultiplex(t *testing.T) {
	endpoint := startEchoPeer(t)
	socket, err := New(Async, endpoint, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := socket.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer socket.Disconnect()

	// Consecutive sends with no intervening receive are legal on the
	// async pattern.
	for _, payload := range []string{"a", "b", "c"} {
		if err := socket.Send([]byte(payload)); err != nil {
			t.Fatalf("Send(%q): %v", payload, err)
		}
	}

	seen := map[string]bool{}
	for range 3 {
		reply, err := socket.Receive(5 * time.Second)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		seen[string(reply)] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Errorf("reply %q never arrived", want)
		}
	}
}

func TestReceiveTimeout(t *testing.T) {
	endpoint := startSilentPeer(t)
	socket, err := New(Async, endpoint, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := socket.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer socket.Disconnect()

	start := time.Now()
	_, err = socket.Receive(50 * time.Millisecond)
	if !errors.Is(err, ErrReceiveTimeout) {
		t.Fatalf("Receive: got %v, want ErrReceiveTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestDisconnectUnblocksReceive(t *testing.T) {
	endpoint := startSilentPeer(t)
	socket, err := New(Async, endpoint, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := socket.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := socket.Receive(0)
		done <- err
	}()

	// Give the receiver a moment to block, then tear the socket down.
	time.Sleep(50 * time.Millisecond)
	if err := socket.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("blocked Receive returned nil after Disconnect")
		}
		if errors.Is(err, ErrReceiveTimeout) {
			t.Error("Disconnect surfaced as a receive timeout")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Receive still blocked after Disconnect")
	}
}

func TestSocketStateErrors(t *testing.T) {
	endpoint := startEchoPeer(t)
	socket, err := New(Sync, endpoint, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := socket.Send([]byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send while disconnected: got %v, want ErrNotConnected", err)
	}
	if _, err := socket.Receive(time.Second); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Receive while disconnected: got %v, want ErrNotConnected", err)
	}
	if err := socket.Disconnect(); err != nil {
		t.Errorf("Disconnect while disconnected: %v", err)
	}

	if err := socket.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer socket.Disconnect()
	if err := socket.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect: got %v, want ErrAlreadyConnected", err)
	}
}

func TestSendOversizedFrame(t *testing.T) {
	endpoint := startEchoPeer(t)
	socket, err := New(Async, endpoint, Options{MaxFrameSize: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := socket.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer socket.Disconnect()

	err = socket.Send(make([]byte, 17))
	if err == nil {
		t.Fatal("Send accepted an oversized frame")
	}
	var sizeErr *FrameSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *FrameSizeError, got %T: %v", err, err)
	}
}
