// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec implements the sproto wire encoder and decoder: the
// tag/data split, integer auto-sizing, non-contiguous tag skip encoding,
// and the field-lookup optimization, driven by a *schema.Schema built
// once ahead of time.
package codec

import (
	"errors"
	"fmt"
)

// MaxDepth bounds struct recursion to guard against malformed or
// adversarial cyclic input.
const MaxDepth = 64

// Sentinel errors for the encode-side taxonomy. Use errors.Is to
// discriminate; the wrapped message carries field/type context.
var (
	ErrUnknownType     = errors.New("codec: unknown type")
	ErrTypeMismatch    = errors.New("codec: type mismatch")
	ErrValueOutOfRange = errors.New("codec: value out of range")
	ErrStringTooLong   = errors.New("codec: string too long")
	ErrEncodeDepth     = errors.New("codec: recursion depth exceeded")
)

// Sentinel errors for the decode-side taxonomy.
var (
	ErrTruncated     = errors.New("codec: truncated")
	ErrInvalidFormat = errors.New("codec: invalid format")
	ErrTagOutOfRange = errors.New("codec: tag out of range")
	ErrDecodeDepth   = errors.New("codec: recursion depth exceeded")
	ErrDecodeUnknown = errors.New("codec: unknown type")
)

func encErrf(base error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{base}, args...)...)
}
