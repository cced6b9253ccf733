// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value defines the dynamic value tree shared by the codec and
// RPC layers: a tagged sum over the six sproto leaf kinds plus Struct
// (mapping name to value) and Array (sequence of value). It is the one
// presentation-adjacent type the core itself owns; richer host-language
// bridging is layered on top of this by external collaborators.
package value

import "strconv"

// Kind tags which variant of Value is populated.
type Kind int

const (
	KNil Kind = iota
	KInteger
	KBoolean
	KString
	KBinary
	KDouble
	KStruct
	KArray
)

func (k Kind) String() string {
	switch k {
	case KNil:
		return "nil"
	case KInteger:
		return "integer"
	case KBoolean:
		return "boolean"
	case KString:
		return "string"
	case KBinary:
		return "binary"
	case KDouble:
		return "double"
	case KStruct:
		return "struct"
	case KArray:
		return "array"
	default:
		return "invalid"
	}
}

// Value is the dynamic value tree passed to Encode and returned by
// Decode. Struct fields that are absent from a decoded struct are simply
// missing from the Struct map, rather than present with a zero Value —
// this preserves the distinction between an absent field and one
// explicitly set to its zero value.
//
// A sproto map field (*T(key)) decodes to a Struct whose keys are the
// stringified value of the element's key field, rather than to an Array;
// this lets map fields round-trip through the same Struct variant the
// spec's value_tree already defines, instead of inventing a ninth kind.
type Value struct {
	Kind Kind

	Int    int64
	Bool   bool
	Str    string
	Bin    []byte
	Double float64
	Struct map[string]Value
	Array  []Value
}

// Nil returns the absent/nil value.
func Nil() Value { return Value{Kind: KNil} }

// Int wraps a signed integer value.
func Int(v int64) Value { return Value{Kind: KInteger, Int: v} }

// Bool wraps a boolean value.
func Bool(v bool) Value { return Value{Kind: KBoolean, Bool: v} }

// Str wraps a string value.
func Str(v string) Value { return Value{Kind: KString, Str: v} }

// Bin wraps an opaque binary value.
func Bin(v []byte) Value { return Value{Kind: KBinary, Bin: v} }

// Double wraps a float64 value.
func Double(v float64) Value { return Value{Kind: KDouble, Double: v} }

// StructOf wraps a struct-shaped mapping of field name to value.
func StructOf(m map[string]Value) Value { return Value{Kind: KStruct, Struct: m} }

// ArrayOf wraps a sequence of values.
func ArrayOf(a []Value) Value { return Value{Kind: KArray, Array: a} }

// IsNil reports whether v is the absent value.
func (v Value) IsNil() bool { return v.Kind == KNil }

// KeyString renders a leaf Value as a map key string, used when building
// or consuming the Struct representation of a decoded map field. Only
// leaf kinds are valid map keys; composite kinds stringify to a fixed
// placeholder rather than panicking, since a malformed schema should
// surface as a decode error upstream, not a panic here.
func KeyString(v Value) string {
	switch v.Kind {
	case KInteger:
		return strconv.FormatInt(v.Int, 10)
	case KBoolean:
		return strconv.FormatBool(v.Bool)
	case KString:
		return v.Str
	case KBinary:
		return string(v.Bin)
	case KDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	default:
		return ""
	}
}
