// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pack implements the sproto zero-byte compression envelope: an
// 8-byte-chunked mask encoding with a 0xFF raw-run extension, used to
// shrink wire payloads that are mostly zero (sproto's tag/length framing
// tends to produce exactly that shape).
package pack

import "errors"

const chunkSize = 8

// ErrTruncated is returned when the packed stream ends mid-chunk.
var ErrTruncated = errors.New("pack: truncated")

// ErrInvalidFormat is returned for a malformed packed stream (unreachable
// in the current format, since every byte sequence after a mask or 0xFF
// prefix is structurally valid; kept for symmetry with the other codec
// error taxonomies and for forward use).
var ErrInvalidFormat = errors.New("pack: invalid format")

const maxRunChunks = 256 // raw-run batches are bounded at 256 chunks

// denseThreshold: a chunk whose non-zero byte count is at or above this
// popcount is as expensive to mask-encode (popcount+1 bytes, 7..9) as to
// carry raw (8 bytes), so a raw-run absorbs it rather than closing.
const denseThreshold = 6

// Pack compresses b using the zero-byte mask/raw-run scheme. It never
// fails: any input, including one not a multiple of 8 bytes, is
// zero-padded for the purposes of compression (callers recover the
// original length from their own outer framing).
func Pack(b []byte) []byte {
	out := make([]byte, 0, len(b))
	n := len(b)
	i := 0
	for i < n {
		if isDense(b, i, n) {
			out = packRun(b, &i, n, out)
			continue
		}
		out = packChunk(b, i, n, out)
		i += chunkSize
	}
	return out
}

// isDense reports whether the chunk starting at i has every one of its 8
// bytes non-zero, the condition that starts a raw-run.
func isDense(b []byte, i, n int) bool {
	for j := 0; j < chunkSize; j++ {
		if i+j >= n || b[i+j] == 0 {
			return false
		}
	}
	return true
}

// chunkNonZeroCount counts the non-zero bytes of the chunk starting at i
// (its mask popcount), used to decide whether a chunk is "dense enough"
// to extend an open raw-run even once it has a zero byte.
func chunkNonZeroCount(b []byte, i, n int) int {
	c := 0
	for j := 0; j < chunkSize; j++ {
		if i+j < n && b[i+j] != 0 {
			c++
		}
	}
	return c
}

func packChunk(b []byte, i, n int, out []byte) []byte {
	var mask byte
	var payload [chunkSize]byte
	np := 0
	for j := 0; j < chunkSize; j++ {
		var v byte
		if i+j < n {
			v = b[i+j]
		}
		if v != 0 {
			mask |= 1 << uint(j)
			payload[np] = v
			np++
		}
	}
	out = append(out, mask)
	out = append(out, payload[:np]...)
	return out
}

// packRun absorbs the maximal run of chunks starting at *i that are
// either fully dense or "dense enough" (popcount >= denseThreshold),
// bounded at maxRunChunks, emitting a 0xFF prefix, a patched count-1
// byte, and the literal chunk bytes (zero-padded on the final partial
// chunk).
func packRun(b []byte, i *int, n int, out []byte) []byte {
	start := *i
	count := 0
	for count < maxRunChunks {
		pos := start + count*chunkSize
		if pos >= n {
			break
		}
		if count > 0 && chunkNonZeroCount(b, pos, n) < denseThreshold {
			break
		}
		count++
	}
	if count == 0 {
		count = 1
	}

	out = append(out, 0xFF, byte(count-1))
	for c := 0; c < count; c++ {
		pos := start + c*chunkSize
		var chunk [chunkSize]byte
		for j := 0; j < chunkSize; j++ {
			if pos+j < n {
				chunk[j] = b[pos+j]
			}
		}
		out = append(out, chunk[:]...)
	}
	*i = start + count*chunkSize
	return out
}

// Unpack reverses Pack. It fails with ErrTruncated if the stream ends
// mid-chunk or mid-run.
func Unpack(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b)*2)
	i := 0
	n := len(b)
	for i < n {
		marker := b[i]
		i++
		if marker == 0xFF {
			if i >= n {
				return nil, ErrTruncated
			}
			count := int(b[i]) + 1
			i++
			need := count * chunkSize
			if i+need > n {
				return nil, ErrTruncated
			}
			out = append(out, b[i:i+need]...)
			i += need
			continue
		}
		mask := marker
		var chunk [chunkSize]byte
		for j := 0; j < chunkSize; j++ {
			if mask&(1<<uint(j)) != 0 {
				if i >= n {
					return nil, ErrTruncated
				}
				chunk[j] = b[i]
				i++
			}
		}
		out = append(out, chunk[:]...)
	}
	return out, nil
}
