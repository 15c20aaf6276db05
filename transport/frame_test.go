// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	var buffer bytes.Buffer
	payloads := [][]byte{
		[]byte("first"),
		{},
		[]byte("third frame with more bytes"),
	}
	for _, payload := range payloads {
		if err := writeFrame(&buffer, payload, DefaultMaxFrameSize); err != nil {
			t.Fatalf("writeFrame(%q): %v", payload, err)
		}
	}
	for i, want := range payloads {
		got, err := readFrame(&buffer, DefaultMaxFrameSize)
		if err != nil {
			t.Fatalf("readFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d: got %q, want %q", i, got, want)
		}
	}
}

func TestWriteFrameOversized(t *testing.T) {
	var buffer bytes.Buffer
	err := writeFrame(&buffer, make([]byte, 65), 64)
	if err == nil {
		t.Fatal("writeFrame accepted an oversized payload")
	}
	var sizeErr *FrameSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *FrameSizeError, got %T: %v", err, err)
	}
	if sizeErr.Length != 65 || sizeErr.Limit != 64 {
		t.Errorf("got length %d limit %d, want 65 and 64", sizeErr.Length, sizeErr.Limit)
	}
	if buffer.Len() != 0 {
		t.Errorf("oversized write left %d bytes in the stream", buffer.Len())
	}
}

func TestReadFrameOversizedClaim(t *testing.T) {
	// A header claiming a giant payload must be rejected before any
	// allocation or read of the payload itself.
	var header [frameHeaderLength]byte
	binary.BigEndian.PutUint32(header[:], 1<<30)

	_, err := readFrame(bytes.NewReader(header[:]), 64)
	if err == nil {
		t.Fatal("readFrame accepted an oversized length claim")
	}
	var sizeErr *FrameSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *FrameSizeError, got %T: %v", err, err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	var buffer bytes.Buffer
	if err := writeFrame(&buffer, []byte("complete payload"), DefaultMaxFrameSize); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()-4]

	if _, err := readFrame(bytes.NewReader(truncated), DefaultMaxFrameSize); err == nil {
		t.Fatal("readFrame accepted a truncated stream")
	}
}
