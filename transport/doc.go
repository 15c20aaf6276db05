// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries opaque message frames between a drover
// client and an agent runner over a single logical stream connection.
//
// A [Socket] is constructed with one of exactly two wire patterns:
//
//   - [Sync]: one request, one reply, strictly ordered. A second send
//     before the reply has been read is a state error, mirroring
//     lockstep request/reply sockets.
//   - [Async]: many concurrent requests multiplexed over one
//     connection, replies in whatever order the peer produces them.
//     Sends are serialized internally; receives return the next frame.
//
// Sockets never retry, reconnect, or interpret payload bytes. Retry
// and backoff belong to the connection manager above; encoding and
// correlation belong to the wire and client packages.
//
// Frames are a 4-byte big-endian payload length followed by the
// payload, bounded by [Options.MaxFrameSize] on both sides so a
// misbehaving peer cannot force unbounded allocation.
//
// Endpoints use an explicit scheme: "tcp://host:port" for TCP,
// "unix:///path" (or the "ipc://" alias) for Unix domain sockets.
package transport
