// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/sprotogo/sproto/internal/wire"
	"github.com/sprotogo/sproto/schema"
	"github.com/sprotogo/sproto/value"
)

// Decode parses sproto wire bytes into a Struct-shaped Value per the
// named type's field layout.
func Decode(s *schema.Schema, typeName string, b []byte) (value.Value, error) {
	t, ok := s.TypeByName(typeName)
	if !ok {
		return value.Nil(), encErrf(ErrDecodeUnknown, "%q", typeName)
	}
	r := wire.NewReader(b)
	v, err := decodeStruct(s, t, r, 0)
	if err != nil {
		return value.Nil(), err
	}
	if r.Len() != 0 {
		return value.Nil(), encErrf(ErrInvalidFormat, "%d unconsumed bytes after struct %s", r.Len(), t.Name)
	}
	return v, nil
}

// DecodePrefix decodes one instance of typeName from the front of b and
// reports how many bytes it consumed, leaving any trailing bytes (such as
// a payload struct concatenated after a header struct) unread. The RPC
// host uses this to split a packed header||payload frame without a
// length prefix between the two parts.
func DecodePrefix(s *schema.Schema, typeName string, b []byte) (value.Value, int, error) {
	t, ok := s.TypeByName(typeName)
	if !ok {
		return value.Nil(), 0, encErrf(ErrDecodeUnknown, "%q", typeName)
	}
	r := wire.NewReader(b)
	v, err := decodeStruct(s, t, r, 0)
	if err != nil {
		return value.Nil(), 0, err
	}
	return v, r.Pos(), nil
}

func decodeStruct(s *schema.Schema, t *schema.Type, r *wire.Reader, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Nil(), ErrDecodeDepth
	}
	fn, err := r.U16()
	if err != nil {
		return value.Nil(), ErrTruncated
	}
	// All descriptors precede the data part; blocks are read from r in
	// header order as zero descriptors are met.
	hdr, err := r.Take(2 * int(fn))
	if err != nil {
		return value.Nil(), ErrTruncated
	}
	hr := wire.NewReader(hdr)

	start := t.BaseTag
	if start < 0 {
		start = 0
	}
	tag := start

	result := make(map[string]value.Value, fn)
	for i := 0; i < int(fn); i++ {
		desc, err := hr.U16()
		if err != nil {
			return value.Nil(), ErrTruncated
		}
		if desc%2 == 1 {
			extra := int(desc-1) / 2
			tag += 1 + extra
			continue
		}
		slot := tag
		tag++

		if desc == 0 {
			length, err := r.U32()
			if err != nil {
				return value.Nil(), ErrTruncated
			}
			block, err := r.Take(int(length))
			if err != nil {
				return value.Nil(), ErrTruncated
			}
			f, ok := t.FieldByTag(slot)
			if !ok {
				continue // forward-compat: unknown tag, data discarded
			}
			v, err := decodeBlock(s, *f, block, depth)
			if err != nil {
				return value.Nil(), err
			}
			result[f.Name] = v
			continue
		}

		inline := int64(desc/2 - 1)
		f, ok := t.FieldByTag(slot)
		if !ok {
			continue
		}
		switch f.Kind {
		case schema.KindBoolean:
			result[f.Name] = value.Bool(inline != 0)
		case schema.KindInteger:
			result[f.Name] = value.Int(inline)
		default:
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: inline descriptor on non-inlinable kind %s", f.Name, f.Kind)
		}
	}
	return value.StructOf(result), nil
}

func decodeBlock(s *schema.Schema, f schema.Field, block []byte, depth int) (value.Value, error) {
	if f.IsArray {
		return decodeArray(s, f, block, depth)
	}
	switch f.Kind {
	case schema.KindString:
		return value.Str(string(block)), nil
	case schema.KindBinary:
		return value.Bin(append([]byte(nil), block...)), nil
	case schema.KindDouble:
		r := wire.NewReader(block)
		d, err := r.F64()
		if err != nil || r.Len() != 0 {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: malformed double", f.Name)
		}
		return value.Double(d), nil
	case schema.KindInteger:
		return decodeIntBlock(f, block)
	case schema.KindStruct:
		et := s.Types[f.TypeIndex]
		r := wire.NewReader(block)
		return decodeStruct(s, et, r, depth+1)
	default:
		return value.Nil(), encErrf(ErrInvalidFormat, "field %q: unsupported kind %s", f.Name, f.Kind)
	}
}

func decodeIntBlock(f schema.Field, block []byte) (value.Value, error) {
	r := wire.NewReader(block)
	marker, err := r.U8()
	if err != nil {
		return value.Nil(), encErrf(ErrInvalidFormat, "field %q: missing integer size marker", f.Name)
	}
	switch marker {
	case 4:
		v, err := r.I32()
		if err != nil || r.Len() != 0 {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: malformed 4-byte integer", f.Name)
		}
		return value.Int(int64(v)), nil
	case 8:
		v, err := r.I64()
		if err != nil || r.Len() != 0 {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: malformed 8-byte integer", f.Name)
		}
		return value.Int(v), nil
	default:
		return value.Nil(), encErrf(ErrInvalidFormat, "field %q: bad integer size marker %d", f.Name, marker)
	}
}

func decodeArray(s *schema.Schema, f schema.Field, block []byte, depth int) (value.Value, error) {
	if f.MapKey != schema.NoIndex {
		return decodeMap(s, f, block, depth)
	}
	switch f.Kind {
	case schema.KindInteger:
		r := wire.NewReader(block)
		width, err := r.U8()
		if err != nil {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: missing integer array width marker", f.Name)
		}
		if width != 4 && width != 8 {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: bad integer array width %d", f.Name, width)
		}
		if r.Len()%int(width) != 0 {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: trailing bytes in integer array", f.Name)
		}
		n := r.Len() / int(width)
		elems := make([]value.Value, n)
		for i := 0; i < n; i++ {
			if width == 4 {
				v, _ := r.I32()
				elems[i] = value.Int(int64(v))
			} else {
				v, _ := r.I64()
				elems[i] = value.Int(v)
			}
		}
		return value.ArrayOf(elems), nil
	case schema.KindBoolean:
		elems := make([]value.Value, len(block))
		for i, b := range block {
			elems[i] = value.Bool(b != 0)
		}
		return value.ArrayOf(elems), nil
	case schema.KindDouble:
		if len(block)%8 != 0 {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: trailing bytes in double array", f.Name)
		}
		r := wire.NewReader(block)
		n := len(block) / 8
		elems := make([]value.Value, n)
		for i := 0; i < n; i++ {
			d, _ := r.F64()
			elems[i] = value.Double(d)
		}
		return value.ArrayOf(elems), nil
	case schema.KindString, schema.KindBinary:
		r := wire.NewReader(block)
		var elems []value.Value
		for r.Len() > 0 {
			length, err := r.U32()
			if err != nil {
				return value.Nil(), encErrf(ErrInvalidFormat, "field %q: truncated array element length", f.Name)
			}
			eb, err := r.Take(int(length))
			if err != nil {
				return value.Nil(), encErrf(ErrInvalidFormat, "field %q: truncated array element", f.Name)
			}
			if f.Kind == schema.KindString {
				elems = append(elems, value.Str(string(eb)))
			} else {
				elems = append(elems, value.Bin(append([]byte(nil), eb...)))
			}
		}
		return value.ArrayOf(elems), nil
	case schema.KindStruct:
		et := s.Types[f.TypeIndex]
		r := wire.NewReader(block)
		var elems []value.Value
		for r.Len() > 0 {
			length, err := r.U32()
			if err != nil {
				return value.Nil(), encErrf(ErrInvalidFormat, "field %q: truncated array element length", f.Name)
			}
			eb, err := r.Take(int(length))
			if err != nil {
				return value.Nil(), encErrf(ErrInvalidFormat, "field %q: truncated array element", f.Name)
			}
			ev, err := decodeStruct(s, et, wire.NewReader(eb), depth+1)
			if err != nil {
				return value.Nil(), err
			}
			elems = append(elems, ev)
		}
		return value.ArrayOf(elems), nil
	default:
		return value.Nil(), encErrf(ErrInvalidFormat, "field %q: unsupported array element kind %s", f.Name, f.Kind)
	}
}

// decodeMap decodes the wire-identical array-of-struct payload of a map
// field, then re-presents it as a Struct keyed by the stringified value
// of each element's key field. Duplicate keys: last writer wins.
func decodeMap(s *schema.Schema, f schema.Field, block []byte, depth int) (value.Value, error) {
	et := s.Types[f.TypeIndex]
	keyField, ok := et.FieldByTag(f.MapKey)
	if !ok {
		return value.Nil(), encErrf(ErrInvalidFormat, "field %q: map key tag %d not found in %s", f.Name, f.MapKey, et.Name)
	}

	r := wire.NewReader(block)
	out := make(map[string]value.Value)
	for r.Len() > 0 {
		length, err := r.U32()
		if err != nil {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: truncated map element length", f.Name)
		}
		eb, err := r.Take(int(length))
		if err != nil {
			return value.Nil(), encErrf(ErrInvalidFormat, "field %q: truncated map element", f.Name)
		}
		ev, err := decodeStruct(s, et, wire.NewReader(eb), depth+1)
		if err != nil {
			return value.Nil(), err
		}
		key := value.KeyString(ev.Struct[keyField.Name])
		out[key] = ev
	}
	return value.StructOf(out), nil
}
