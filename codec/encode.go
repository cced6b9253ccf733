// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"sort"

	"github.com/sprotogo/sproto/internal/wire"
	"github.com/sprotogo/sproto/schema"
	"github.com/sprotogo/sproto/value"
)

const inlineMax = 0x7ffd

// Encode renders v, which must be a Struct-shaped Value matching the
// field layout of the named type, into sproto wire bytes.
func Encode(s *schema.Schema, typeName string, v value.Value) ([]byte, error) {
	t, ok := s.TypeByName(typeName)
	if !ok {
		return nil, encErrf(ErrUnknownType, "%q", typeName)
	}
	return encodeStruct(s, t, v, 0)
}

func encodeStruct(s *schema.Schema, t *schema.Type, v value.Value, depth int) ([]byte, error) {
	if depth > MaxDepth {
		return nil, ErrEncodeDepth
	}
	if v.Kind != value.KStruct {
		return nil, encErrf(ErrTypeMismatch, "type %q: want struct, got %s", t.Name, v.Kind)
	}

	start := t.BaseTag
	if start < 0 {
		start = 0
	}
	tag := start

	var descriptors []uint16
	var dataParts [][]byte

	for _, f := range t.Fields {
		fv, present := v.Struct[f.Name]
		if !present || fv.IsNil() {
			continue
		}
		if diff := f.Tag - tag; diff > 0 {
			extra := diff - 1
			descriptors = append(descriptors, uint16(2*extra+1))
			tag += diff
		}

		inline, isInline, err := inlineValue(f, fv)
		if err != nil {
			return nil, err
		}
		if isInline {
			descriptors = append(descriptors, uint16(2*(inline+1)))
		} else {
			block, err := encodeBlock(s, f, fv, depth)
			if err != nil {
				return nil, err
			}
			descriptors = append(descriptors, 0)
			dataParts = append(dataParts, block)
		}
		tag++
	}

	w := wire.NewWriter(4 + 2*len(descriptors))
	w.PutU16(uint16(len(descriptors)))
	for _, d := range descriptors {
		w.PutU16(d)
	}
	for _, b := range dataParts {
		w.PutU32(uint32(len(b)))
		w.PutBytes(b)
	}
	return w.Bytes(), nil
}

// inlineValue reports whether f's value can be stored entirely in the
// header, returning the logical (pre-descriptor-math) inline value when
// it can. Booleans are always inline; integers are inline when their
// value fits 0..=0x7ffd.
func inlineValue(f schema.Field, v value.Value) (int64, bool, error) {
	if f.IsArray {
		return 0, false, nil
	}
	switch f.Kind {
	case schema.KindBoolean:
		if v.Kind != value.KBoolean {
			return 0, false, encErrf(ErrTypeMismatch, "field %q: want boolean, got %s", f.Name, v.Kind)
		}
		if v.Bool {
			return 1, true, nil
		}
		return 0, true, nil
	case schema.KindInteger:
		if v.Kind != value.KInteger {
			return 0, false, encErrf(ErrTypeMismatch, "field %q: want integer, got %s", f.Name, v.Kind)
		}
		if v.Int >= 0 && v.Int <= inlineMax {
			return v.Int, true, nil
		}
		return 0, false, nil
	default:
		return 0, false, nil
	}
}

// encodeBlock renders the data-part payload for a field that did not take
// the inline path: everything that lives behind a zero descriptor.
func encodeBlock(s *schema.Schema, f schema.Field, v value.Value, depth int) ([]byte, error) {
	if f.IsArray {
		return encodeArray(s, f, v, depth)
	}
	switch f.Kind {
	case schema.KindString:
		if v.Kind != value.KString {
			return nil, encErrf(ErrTypeMismatch, "field %q: want string, got %s", f.Name, v.Kind)
		}
		if uint64(len(v.Str)) >= 1<<32 {
			return nil, encErrf(ErrStringTooLong, "field %q", f.Name)
		}
		return []byte(v.Str), nil
	case schema.KindBinary:
		if v.Kind != value.KBinary {
			return nil, encErrf(ErrTypeMismatch, "field %q: want binary, got %s", f.Name, v.Kind)
		}
		if uint64(len(v.Bin)) >= 1<<32 {
			return nil, encErrf(ErrStringTooLong, "field %q", f.Name)
		}
		return v.Bin, nil
	case schema.KindDouble:
		if v.Kind != value.KDouble {
			return nil, encErrf(ErrTypeMismatch, "field %q: want double, got %s", f.Name, v.Kind)
		}
		w := wire.NewWriter(8)
		w.PutF64(v.Double)
		return w.Bytes(), nil
	case schema.KindInteger:
		if v.Kind != value.KInteger {
			return nil, encErrf(ErrTypeMismatch, "field %q: want integer, got %s", f.Name, v.Kind)
		}
		return encodeIntBlock(v.Int), nil
	case schema.KindStruct:
		if v.Kind != value.KStruct {
			return nil, encErrf(ErrTypeMismatch, "field %q: want struct, got %s", f.Name, v.Kind)
		}
		et := s.Types[f.TypeIndex]
		return encodeStruct(s, et, v, depth+1)
	default:
		return nil, encErrf(ErrTypeMismatch, "field %q: unsupported kind %s", f.Name, f.Kind)
	}
}

// encodeIntBlock writes the one-byte size marker (4 or 8) followed by
// that many little-endian two's-complement bytes.
func encodeIntBlock(v int64) []byte {
	w := wire.NewWriter(9)
	if wire.FitsInt32(v) {
		w.PutU8(4)
		w.PutI32(int32(v))
	} else {
		w.PutU8(8)
		w.PutI64(v)
	}
	return w.Bytes()
}

func encodeArray(s *schema.Schema, f schema.Field, v value.Value, depth int) ([]byte, error) {
	if f.MapKey != schema.NoIndex {
		return encodeMap(s, f, v, depth)
	}
	if v.Kind != value.KArray {
		return nil, encErrf(ErrTypeMismatch, "field %q: want array, got %s", f.Name, v.Kind)
	}
	elems := v.Array

	switch f.Kind {
	case schema.KindInteger:
		width := 4
		for _, e := range elems {
			if e.Kind != value.KInteger {
				return nil, encErrf(ErrTypeMismatch, "field %q: array element want integer, got %s", f.Name, e.Kind)
			}
			if !wire.FitsInt32(e.Int) {
				width = 8
			}
		}
		w := wire.NewWriter(1 + width*len(elems))
		w.PutU8(uint8(width))
		for _, e := range elems {
			if width == 4 {
				w.PutI32(int32(e.Int))
			} else {
				w.PutI64(e.Int)
			}
		}
		return w.Bytes(), nil
	case schema.KindBoolean:
		w := wire.NewWriter(len(elems))
		for _, e := range elems {
			if e.Kind != value.KBoolean {
				return nil, encErrf(ErrTypeMismatch, "field %q: array element want boolean, got %s", f.Name, e.Kind)
			}
			if e.Bool {
				w.PutU8(1)
			} else {
				w.PutU8(0)
			}
		}
		return w.Bytes(), nil
	case schema.KindDouble:
		w := wire.NewWriter(8 * len(elems))
		for _, e := range elems {
			if e.Kind != value.KDouble {
				return nil, encErrf(ErrTypeMismatch, "field %q: array element want double, got %s", f.Name, e.Kind)
			}
			w.PutF64(e.Double)
		}
		return w.Bytes(), nil
	case schema.KindString, schema.KindBinary:
		w := wire.NewWriter(0)
		for _, e := range elems {
			var b []byte
			switch f.Kind {
			case schema.KindString:
				if e.Kind != value.KString {
					return nil, encErrf(ErrTypeMismatch, "field %q: array element want string, got %s", f.Name, e.Kind)
				}
				b = []byte(e.Str)
			case schema.KindBinary:
				if e.Kind != value.KBinary {
					return nil, encErrf(ErrTypeMismatch, "field %q: array element want binary, got %s", f.Name, e.Kind)
				}
				b = e.Bin
			}
			w.PutU32(uint32(len(b)))
			w.PutBytes(b)
		}
		return w.Bytes(), nil
	case schema.KindStruct:
		et := s.Types[f.TypeIndex]
		w := wire.NewWriter(0)
		for _, e := range elems {
			eb, err := encodeStruct(s, et, e, depth+1)
			if err != nil {
				return nil, err
			}
			w.PutU32(uint32(len(eb)))
			w.PutBytes(eb)
		}
		return w.Bytes(), nil
	default:
		return nil, encErrf(ErrTypeMismatch, "field %q: unsupported array element kind %s", f.Name, f.Kind)
	}
}

// encodeMap accepts either the Array-of-struct form or the Struct
// (key-string -> element) form described in value.Value's doc comment,
// and always emits elements ordered by their stringified key so the
// wire output is deterministic regardless of Go map iteration order —
// mirroring the teacher's own deterministic-map-encoding convention
// (protobuf sorts map keys when asked to encode deterministically).
func encodeMap(s *schema.Schema, f schema.Field, v value.Value, depth int) ([]byte, error) {
	et := s.Types[f.TypeIndex]
	keyField, ok := et.FieldByTag(f.MapKey)
	if !ok {
		return nil, encErrf(ErrTypeMismatch, "field %q: map key tag %d not found in %s", f.Name, f.MapKey, et.Name)
	}

	var elems []value.Value
	switch v.Kind {
	case value.KArray:
		elems = v.Array
	case value.KStruct:
		elems = make([]value.Value, 0, len(v.Struct))
		for _, e := range v.Struct {
			elems = append(elems, e)
		}
	default:
		return nil, encErrf(ErrTypeMismatch, "field %q: want array or struct (map), got %s", f.Name, v.Kind)
	}

	keyOf := func(e value.Value) string {
		if e.Kind != value.KStruct {
			return ""
		}
		return value.KeyString(e.Struct[keyField.Name])
	}
	sort.SliceStable(elems, func(i, j int) bool { return keyOf(elems[i]) < keyOf(elems[j]) })

	w := wire.NewWriter(0)
	for _, e := range elems {
		eb, err := encodeStruct(s, et, e, depth+1)
		if err != nil {
			return nil, err
		}
		w.PutU32(uint32(len(eb)))
		w.PutBytes(eb)
	}
	return w.Bytes(), nil
}
