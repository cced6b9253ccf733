// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sproto

import (
	"github.com/sprotogo/sproto/codec"
	"github.com/sprotogo/sproto/pack"
	"github.com/sprotogo/sproto/rpc"
	"github.com/sprotogo/sproto/schema"
	"github.com/sprotogo/sproto/value"
)

// Re-exported value-tree constructors and the Value/Kind types
// themselves, so callers building or inspecting payloads don't need a
// second import for the one presentation-adjacent type this module owns.
type (
	Value = value.Value
	Kind  = value.Kind
)

var (
	Nil      = value.Nil
	Int      = value.Int
	Bool     = value.Bool
	Str      = value.Str
	Bin      = value.Bin
	Double   = value.Double
	StructOf = value.StructOf
	ArrayOf  = value.ArrayOf
)

// Schema, Type, Field, and Protocol are re-exported so callers can hold
// and inspect schema metadata without a direct import of schema.
type (
	Schema   = schema.Schema
	Type     = schema.Type
	Field    = schema.Field
	Protocol = schema.Protocol
)

// Parse compiles sproto schema text into a Schema.
func Parse(src string) (*Schema, error) { return schema.Parse(src) }

// LoadBinary bootstraps a Schema from a pre-compiled binary schema.
func LoadBinary(b []byte) (*Schema, error) { return schema.LoadBinary(b) }

// SaveBinary renders s into the binary schema format LoadBinary reads.
func SaveBinary(s *Schema) []byte { return schema.SaveBinary(s) }

// Encode renders v into sproto wire bytes per typeName's field layout.
func Encode(s *Schema, typeName string, v Value) ([]byte, error) {
	return codec.Encode(s, typeName, v)
}

// Decode parses sproto wire bytes into a Value per typeName's field layout.
func Decode(s *Schema, typeName string, b []byte) (Value, error) {
	return codec.Decode(s, typeName, b)
}

// Pack compresses b using the zero-byte mask/raw-run envelope.
func Pack(b []byte) []byte { return pack.Pack(b) }

// Unpack reverses Pack.
func Unpack(b []byte) ([]byte, error) { return pack.Unpack(b) }

// Host dispatches and sends RPC packets framed against a Schema.
type Host = rpc.Host

// NewHost builds a Host over s, whose packets are framed with headerType.
func NewHost(s *Schema, headerType string) (*Host, error) { return rpc.New(s, headerType) }
