// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"fmt"

	"github.com/sprotogo/sproto/internal/wire"
)

// LoadBinary bootstraps a Schema from a pre-compiled binary schema: a
// sproto encoding of a schema about schemas. It cannot call into the
// codec package's Decode, since codec depends on *Schema to interpret
// field kinds in the first place — there is no schema yet to decode with.
// Instead it walks the same tag/data framing directly against a
// hardcoded, fixed-tag meta-schema:
//
//	.type  { name 0:string  fields 1:*field }
//	.field { name 0:string  buildin 1:integer  type 2:integer
//	         tag 3:integer  array 4:boolean  key 5:integer
//	         map 6:integer  extra 7:integer }
//	.group { type 0:*type  protocol 1:*protocol }
//	.protocol { name 0:string  tag 1:integer  request 2:integer
//	            response 3:integer  confirm 4:boolean }
func LoadBinary(b []byte) (*Schema, error) {
	root, err := rawStruct(wire.NewReader(b))
	if err != nil {
		return nil, err
	}

	typeCells, err := cellStructArray(root, 0)
	if err != nil {
		return nil, fmt.Errorf("sproto: binary schema: group.type: %w", err)
	}
	protoCells, err := cellStructArray(root, 1)
	if err != nil {
		return nil, fmt.Errorf("sproto: binary schema: group.protocol: %w", err)
	}

	// type.fields.type is a positional index into this same list, so the
	// name table has to exist before any field can be resolved.
	names := make([]string, len(typeCells))
	for i, tc := range typeCells {
		name, ok := cellString(tc, 0)
		if !ok {
			return nil, fmt.Errorf("sproto: binary schema: type %d: missing name", i)
		}
		names[i] = name
	}

	types := make([]*Type, len(typeCells))
	for i, tc := range typeCells {
		fieldCells, err := cellStructArray(tc, 1)
		if err != nil {
			return nil, fmt.Errorf("sproto: binary schema: type %q: fields: %w", names[i], err)
		}
		fields := make([]Field, len(fieldCells))
		for j, fc := range fieldCells {
			f, err := decodeMetaField(fc, names)
			if err != nil {
				return nil, fmt.Errorf("sproto: binary schema: type %q: field %d: %w", names[i], j, err)
			}
			fields[j] = f
		}
		t, err := newType(names[i], fields)
		if err != nil {
			return nil, fmt.Errorf("sproto: binary schema: %w", err)
		}
		types[i] = t
	}

	protos := make([]*Protocol, len(protoCells))
	for i, pc := range protoCells {
		name, ok := cellString(pc, 0)
		if !ok {
			return nil, fmt.Errorf("sproto: binary schema: protocol %d: missing name", i)
		}
		tag, err := cellInt(pc, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("sproto: binary schema: protocol %q: tag: %w", name, err)
		}
		req, err := resolveMetaTypeIndex(pc, 2, names)
		if err != nil {
			return nil, fmt.Errorf("sproto: binary schema: protocol %q: request: %w", name, err)
		}
		resp, err := resolveMetaTypeIndex(pc, 3, names)
		if err != nil {
			return nil, fmt.Errorf("sproto: binary schema: protocol %q: response: %w", name, err)
		}
		confirm := cellBool(pc, 4, false)
		protos[i] = &Protocol{Name: name, Tag: int(tag), RequestType: req, ResponseType: resp, Confirm: confirm}
	}

	s := &Schema{Types: types, Protocols: protos}
	if err := indexSchema(s); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeMetaField turns one decoded .field struct into a schema.Field,
// resolving buildin kinds and, for struct-kinded fields, the positional
// type reference against names.
func decodeMetaField(fc map[int]wireCell, names []string) (Field, error) {
	name, ok := cellString(fc, 0)
	if !ok {
		return Field{}, fmt.Errorf("missing name")
	}
	buildin, err := cellInt(fc, 1, -1)
	if err != nil {
		return Field{}, err
	}
	tag, err := cellInt(fc, 3, 0)
	if err != nil {
		return Field{}, err
	}
	isArray := cellBool(fc, 4, false)
	// tag 6 ("map") is a producer-side redundancy: whether a field is a
	// map is fully determined here by whether a key tag (5) is present.
	key, err := cellInt(fc, 5, int64(NoIndex))
	if err != nil {
		return Field{}, err
	}
	extra, err := cellInt(fc, 7, int64(NoIndex))
	if err != nil {
		return Field{}, err
	}

	f := Field{
		Name:      name,
		Tag:       int(tag),
		IsArray:   isArray,
		TypeIndex: NoIndex,
		Precision: int(extra),
		MapKey:    int(key),
	}

	if buildin >= 0 {
		switch buildin {
		case 0:
			f.Kind = KindInteger
		case 1:
			f.Kind = KindBoolean
		case 2:
			f.Kind = KindString
		case 3:
			f.Kind = KindBinary
		case 4:
			f.Kind = KindDouble
		default:
			return Field{}, fmt.Errorf("field %q: unknown buildin kind %d", name, buildin)
		}
		return f, nil
	}

	f.Kind = KindStruct
	idx, err := resolveMetaTypeIndex(fc, 2, names)
	if err != nil {
		return Field{}, err
	}
	if idx == NoIndex {
		return Field{}, fmt.Errorf("field %q: struct field missing type reference", name)
	}
	f.TypeIndex = idx
	return f, nil
}

// resolveMetaTypeIndex reads an absent-or-integer "type" style reference
// field as a type index, checking it against the bounds of names, which
// is indexed positionally the same way the binary schema's own type list is.
func resolveMetaTypeIndex(cells map[int]wireCell, tag int, names []string) (int, error) {
	c, ok := cells[tag]
	if !ok {
		return NoIndex, nil
	}
	var idx int64
	var err error
	if c.inline {
		idx = c.inlineValue
	} else {
		idx, err = decodeRawInt(c.block)
		if err != nil {
			return NoIndex, err
		}
	}
	if idx < 0 || int(idx) >= len(names) {
		return NoIndex, fmt.Errorf("type reference %d out of range (have %d types)", idx, len(names))
	}
	return int(idx), nil
}

// wireCell is one decoded field slot from a raw sproto struct: either an
// inline header value or a data-part block, exactly as the wire format
// distinguishes them, but without a *schema.Schema on hand to interpret
// which kind a tag denotes.
type wireCell struct {
	inline      bool
	inlineValue int64
	block       []byte
}

// rawStruct walks the generic sproto tag/header framing into a
// tag-indexed map of wireCell. It knows nothing about field kinds; that
// interpretation happens in the cell* accessors below, driven by the
// hardcoded meta-schema tags.
func rawStruct(r *wire.Reader) (map[int]wireCell, error) {
	fn, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("sproto: truncated binary schema header")
	}
	hdr, err := r.Take(2 * int(fn))
	if err != nil {
		return nil, fmt.Errorf("sproto: truncated binary schema header")
	}
	hr := wire.NewReader(hdr)
	cells := make(map[int]wireCell, fn)
	tag := 0
	for i := 0; i < int(fn); i++ {
		desc, err := hr.U16()
		if err != nil {
			return nil, fmt.Errorf("sproto: truncated binary schema header")
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
				return nil, fmt.Errorf("sproto: truncated binary schema data part")
			}
			block, err := r.Take(int(length))
			if err != nil {
				return nil, fmt.Errorf("sproto: truncated binary schema data part")
			}
			cells[slot] = wireCell{block: block}
			continue
		}
		cells[slot] = wireCell{inline: true, inlineValue: int64(desc/2 - 1)}
	}
	return cells, nil
}

func decodeRawInt(block []byte) (int64, error) {
	r := wire.NewReader(block)
	marker, err := r.U8()
	if err != nil {
		return 0, fmt.Errorf("missing integer size marker")
	}
	switch marker {
	case 4:
		v, err := r.I32()
		if err != nil {
			return 0, fmt.Errorf("malformed 4-byte integer")
		}
		return int64(v), nil
	case 8:
		v, err := r.I64()
		if err != nil {
			return 0, fmt.Errorf("malformed 8-byte integer")
		}
		return v, nil
	default:
		return 0, fmt.Errorf("bad integer size marker %d", marker)
	}
}

func cellInt(cells map[int]wireCell, tag int, def int64) (int64, error) {
	c, ok := cells[tag]
	if !ok {
		return def, nil
	}
	if c.inline {
		return c.inlineValue, nil
	}
	return decodeRawInt(c.block)
}

func cellBool(cells map[int]wireCell, tag int, def bool) bool {
	c, ok := cells[tag]
	if !ok {
		return def
	}
	return c.inlineValue != 0
}

func cellString(cells map[int]wireCell, tag int) (string, bool) {
	c, ok := cells[tag]
	if !ok || c.inline {
		return "", false
	}
	return string(c.block), true
}

// cellStructArray decodes a length-prefixed array-of-struct block into
// its element cell maps, one rawStruct call per element.
func cellStructArray(cells map[int]wireCell, tag int) ([]map[int]wireCell, error) {
	c, ok := cells[tag]
	if !ok {
		return nil, nil
	}
	if c.inline {
		return nil, fmt.Errorf("expected array block, got inline value")
	}
	r := wire.NewReader(c.block)
	var out []map[int]wireCell
	for r.Len() > 0 {
		length, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("truncated array element length")
		}
		eb, err := r.Take(int(length))
		if err != nil {
			return nil, fmt.Errorf("truncated array element")
		}
		sub, err := rawStruct(wire.NewReader(eb))
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}
