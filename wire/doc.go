// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the message protocol between a drover client
// and an agent runner: a tagged envelope, the kind-specific payload
// types it carries, and the CBOR codec that puts them on the wire.
//
// # Envelope
//
// Every message is an [Envelope]: a kind tag, an optional request ID,
// a timestamp, and a payload encoded lazily as raw CBOR. Request
// kinds ([KindSpawnRequest], [KindControlCommand], ...) pair with the
// response kind that answers them; the response echoes the request's
// ID, which is the only thing that correlates the two — arrival order
// means nothing. Event kinds ([KindStatusUpdate], [KindLogStream])
// flow runner to client spontaneously, carry no request ID, and are
// never answered.
//
// # Encoding
//
// Envelopes are encoded with CBOR Core Deterministic Encoding: the
// same logical message always produces identical bytes. [Codec]
// enforces a maximum serialized size in both directions (default
// [DefaultMaxMessageSize]) so a buggy or malicious peer cannot force
// unbounded allocation; violations surface as [*OverflowError],
// distinct from [*CodecError] malformed-data failures, and both are
// distinct from application-level failures carried inside otherwise
// well-formed responses.
package wire
