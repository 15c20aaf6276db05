// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// DefaultMaxMessageSize bounds the serialized size of a single message
// in both directions. A peer that claims a larger message is treated as
// malicious or broken rather than allocated for.
const DefaultMaxMessageSize = 10 * 1024 * 1024

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Types implementing encoding.TextMarshaler (uuid.UUID, Kind-like
	// string enums wrapped by callers) serialize as CBOR text strings
	// via MarshalText, keeping agent and request identifiers readable
	// in captures and logs.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// The protocol never uses non-string map keys. When the
		// decoder's target is any (e.g., opaque action parameters), it
		// must pick a concrete Go map type; the CBOR default of
		// map[interface{}]interface{} is incompatible with most Go
		// code, so force map[string]any for any-typed targets.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Mirror of the TextMarshaler setting above so text-encoded
		// identifiers round-trip through UnmarshalText.
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, &CodecError{Op: "encode", Err: err}
	}
	return data, nil
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return &CodecError{Op: "decode", Err: err}
	}
	return nil
}

// RawMessage is a raw encoded CBOR value. Used to delay decoding of
// kind-specific payloads until the envelope kind is known, and to
// carry opaque caller-supplied parameters without interpreting them.
type RawMessage = cbor.RawMessage

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// contents of data. Used when logging undecodable or unroutable
// messages before dropping them.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// Codec encodes and decodes message envelopes, enforcing the maximum
// serialized message size in both directions.
type Codec struct {
	maxSize int
}

// NewCodec returns a codec enforcing the given maximum serialized
// message size. A non-positive maxSize selects DefaultMaxMessageSize.
func NewCodec(maxSize int) *Codec {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Codec{maxSize: maxSize}
}

// MaxMessageSize reports the size limit this codec enforces.
func (c *Codec) MaxMessageSize() int {
	return c.maxSize
}

// Encode serializes an envelope. Envelopes whose serialized form
// exceeds the size limit are rejected with *OverflowError before any
// bytes reach the transport.
func (c *Codec) Encode(envelope *Envelope) ([]byte, error) {
	data, err := Marshal(envelope)
	if err != nil {
		return nil, err
	}
	if len(data) > c.maxSize {
		return nil, &OverflowError{Size: len(data), Limit: c.maxSize}
	}
	return data, nil
}

// Decode deserializes an envelope. Oversized input is rejected with
// *OverflowError without attempting to parse it.
func (c *Codec) Decode(data []byte) (*Envelope, error) {
	if len(data) > c.maxSize {
		return nil, &OverflowError{Size: len(data), Limit: c.maxSize}
	}
	var envelope Envelope
	if err := Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}
