// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"fmt"
)

// OverflowError reports a message whose serialized size exceeds the
// codec's limit. Raised on encode before bytes leave the process and
// on decode before an oversized input is parsed.
type OverflowError struct {
	// Size is the serialized (or claimed) message size in bytes.
	Size int
	// Limit is the configured maximum.
	Limit int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("wire: message size %d exceeds maximum %d", e.Size, e.Limit)
}

// CodecError reports a CBOR encoding or decoding failure: the wire
// form was malformed, not the operation it carried. Callers use this
// distinction to tell "the wire was corrupt" from "the peer refused".
type CodecError struct {
	// Op is "encode" or "decode".
	Op string
	// Err is the underlying CBOR error.
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("wire: %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// IsOverflow reports whether err is an *OverflowError anywhere in its
// chain.
func IsOverflow(err error) bool {
	var overflow *OverflowError
	return errors.As(err, &overflow)
}
