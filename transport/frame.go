// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameHeaderLength is the fixed size of a frame header: 4 bytes
// payload length, big-endian.
const frameHeaderLength = 4

// DefaultMaxFrameSize is the frame payload bound applied when Options
// leaves MaxFrameSize zero. Matches the protocol's default maximum
// message size.
const DefaultMaxFrameSize = 10 * 1024 * 1024

// FrameSizeError reports a frame whose payload exceeds the configured
// bound, on either side of the connection.
type FrameSizeError struct {
	// Length is the actual (or claimed) payload length.
	Length int
	// Limit is the configured maximum.
	Limit int
}

func (e *FrameSizeError) Error() string {
	return fmt.Sprintf("transport: frame payload %d exceeds maximum %d", e.Length, e.Limit)
}

// writeFrame writes one framed payload to w:
// [4 bytes payload length, big-endian uint32] [payload].
func writeFrame(w io.Writer, payload []byte, limit int) error {
	if len(payload) > limit {
		return &FrameSizeError{Length: len(payload), Limit: limit}
	}
	var header [frameHeaderLength]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// readFrame reads one framed payload from r. The claimed length is
// checked against limit before any payload allocation.
func readFrame(r io.Reader, limit int) ([]byte, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	payloadLength := binary.BigEndian.Uint32(header[:])
	if int(payloadLength) > limit {
		return nil, &FrameSizeError{Length: int(payloadLength), Limit: limit}
	}
	payload := make([]byte, payloadLength)
	if payloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("read frame payload: %w", err)
		}
	}
	return payload, nil
}
