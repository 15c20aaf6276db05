// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"time"
)

// Kind tags a message envelope with the payload type it carries.
type Kind string

// Message kinds. Request kinds pair with the response kind returned by
// ResponseKind; event kinds flow server to client with no response.
const (
	KindSpawnRequest    Kind = "spawn_request"
	KindSpawnResponse   Kind = "spawn_response"
	KindControlCommand  Kind = "control_command"
	KindCommandResponse Kind = "command_response"
	KindCustomAction    Kind = "custom_action_request"
	KindBatchControl    Kind = "batch_control_command"
	KindBatchResponse   Kind = "batch_control_response"
	KindOutputQuery     Kind = "output_query_request"
	KindOutputResponse  Kind = "output_query_response"
	KindListAgents      Kind = "list_agents_request"
	KindListResponse    Kind = "list_agents_response"
	KindHealthCheck     Kind = "health_check_request"
	KindHealthResponse  Kind = "health_check_response"
	KindStatusUpdate    Kind = "status_update"
	KindLogStream       Kind = "log_stream"
)

// responseKinds maps each request kind to the kind that answers it.
// Custom actions are answered by ordinary command responses.
var responseKinds = map[Kind]Kind{
	KindSpawnRequest:   KindSpawnResponse,
	KindControlCommand: KindCommandResponse,
	KindCustomAction:   KindCommandResponse,
	KindBatchControl:   KindBatchResponse,
	KindOutputQuery:    KindOutputResponse,
	KindListAgents:     KindListResponse,
	KindHealthCheck:    KindHealthResponse,
}

// ResponseKind returns the kind that answers a request of kind k, and
// whether k is a request kind at all.
func (k Kind) ResponseKind() (Kind, bool) {
	response, ok := responseKinds[k]
	return response, ok
}

// IsEvent reports whether k is a fire-and-forget event kind: pushed by
// the peer spontaneously, carrying no request ID, expecting no answer.
func (k Kind) IsEvent() bool {
	return k == KindStatusUpdate || k == KindLogStream
}

// Envelope is the tagged union carried on the wire. Every non-event
// envelope carries exactly one request ID; a response echoes the
// request ID of the request it answers.
type Envelope struct {
	// Kind selects the payload type.
	Kind Kind `cbor:"kind"`

	// RequestID correlates a response with its request. Empty on
	// event envelopes, required on everything else.
	RequestID string `cbor:"request_id,omitempty"`

	// Timestamp records when the sender built the envelope.
	Timestamp time.Time `cbor:"timestamp"`

	// Payload is the kind-specific body, decoded on demand once the
	// kind is known.
	Payload RawMessage `cbor:"payload,omitempty"`
}

// NewEnvelope builds an envelope around the given payload. Non-event
// kinds must carry a request ID; events must not.
func NewEnvelope(kind Kind, requestID string, payload any, at time.Time) (*Envelope, error) {
	if kind.IsEvent() {
		if requestID != "" {
			return nil, fmt.Errorf("wire: event kind %q must not carry a request ID", kind)
		}
	} else if requestID == "" {
		return nil, fmt.Errorf("wire: kind %q requires a request ID", kind)
	}

	raw, err := Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding %q payload: %w", kind, err)
	}

	return &Envelope{
		Kind:      kind,
		RequestID: requestID,
		Timestamp: at,
		Payload:   raw,
	}, nil
}

// Decode unmarshals the envelope's payload into v, which must match
// the envelope's kind.
func (e *Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("wire: %q envelope has no payload", e.Kind)
	}
	if err := Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("wire: decoding %q payload: %w", e.Kind, err)
	}
	return nil
}
