// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"sort"

	"github.com/sprotogo/sproto/internal/wire"
)

// rawInlineMax mirrors codec's inline-value ceiling. It is duplicated
// here, rather than imported, because codec imports schema to interpret
// field kinds — schema importing codec back would cycle. SaveBinary's
// hand-rolled struct encoder exists for the same reason LoadBinary's
// hand-rolled decoder does.
const rawInlineMax = 0x7ffd

// rawField is one field slot destined for encodeRawStruct, already
// decided between the inline and data-part paths.
type rawField struct {
	tag       int
	inline    bool
	inlineVal int64
	block     []byte
}

func rawInt(tag int, v int64) rawField {
	if v >= 0 && v <= rawInlineMax {
		return rawField{tag: tag, inline: true, inlineVal: v}
	}
	w := wire.NewWriter(9)
	if wire.FitsInt32(v) {
		w.PutU8(4)
		w.PutI32(int32(v))
	} else {
		w.PutU8(8)
		w.PutI64(v)
	}
	return rawField{tag: tag, block: w.Bytes()}
}

func rawBool(tag int, v bool) rawField {
	var iv int64
	if v {
		iv = 1
	}
	return rawField{tag: tag, inline: true, inlineVal: iv}
}

func rawString(tag int, v string) rawField {
	return rawField{tag: tag, block: []byte(v)}
}

func rawStructArray(tag int, elems [][]byte) rawField {
	w := wire.NewWriter(0)
	for _, e := range elems {
		w.PutU32(uint32(len(e)))
		w.PutBytes(e)
	}
	return rawField{tag: tag, block: w.Bytes()}
}

// encodeRawStruct renders fields (sorted ascending by tag, with any tag
// not present simply absent from the slice) into sproto's struct
// framing: a descriptor per present field plus a concatenated data part.
func encodeRawStruct(fields []rawField) []byte {
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	tag := 0
	var descriptors []uint16
	var dataParts [][]byte
	for _, f := range fields {
		if diff := f.tag - tag; diff > 0 {
			extra := diff - 1
			descriptors = append(descriptors, uint16(2*extra+1))
			tag += diff
		}
		if f.inline {
			descriptors = append(descriptors, uint16(2*(f.inlineVal+1)))
		} else {
			descriptors = append(descriptors, 0)
			dataParts = append(dataParts, f.block)
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
	return w.Bytes()
}

// SaveBinary renders s into the same binary schema framing LoadBinary
// reads: a sproto encoding of the hardcoded .type/.field/.group/.protocol
// meta-schema, built directly from the already-resolved in-memory model
// rather than from schema text.
func SaveBinary(s *Schema) []byte {
	typeBlocks := make([][]byte, len(s.Types))
	for i, t := range s.Types {
		fieldBlocks := make([][]byte, len(t.Fields))
		for j, f := range t.Fields {
			fieldBlocks[j] = encodeMetaField(f)
		}
		typeBlocks[i] = encodeRawStruct([]rawField{
			rawString(0, t.Name),
			rawStructArray(1, fieldBlocks),
		})
	}

	protoBlocks := make([][]byte, len(s.Protocols))
	for i, p := range s.Protocols {
		fields := []rawField{rawString(0, p.Name), rawInt(1, int64(p.Tag))}
		if p.RequestType != NoIndex {
			fields = append(fields, rawInt(2, int64(p.RequestType)))
		}
		if p.ResponseType != NoIndex {
			fields = append(fields, rawInt(3, int64(p.ResponseType)))
		}
		if p.Confirm {
			fields = append(fields, rawBool(4, true))
		}
		protoBlocks[i] = encodeRawStruct(fields)
	}

	var group []rawField
	if len(typeBlocks) > 0 {
		group = append(group, rawStructArray(0, typeBlocks))
	}
	if len(protoBlocks) > 0 {
		group = append(group, rawStructArray(1, protoBlocks))
	}
	return encodeRawStruct(group)
}

func encodeMetaField(f Field) []byte {
	fields := []rawField{rawString(0, f.Name), rawInt(3, int64(f.Tag))}
	if f.Kind == KindStruct {
		fields = append(fields, rawInt(2, int64(f.TypeIndex)))
	} else {
		fields = append(fields, rawInt(1, int64(buildinOf(f.Kind))))
	}
	if f.IsArray {
		fields = append(fields, rawBool(4, true))
	}
	if f.MapKey != NoIndex {
		fields = append(fields, rawInt(5, int64(f.MapKey)), rawInt(6, 1))
	}
	if f.Precision != NoIndex {
		fields = append(fields, rawInt(7, int64(f.Precision)))
	}
	return encodeRawStruct(fields)
}

func buildinOf(k Kind) int {
	switch k {
	case KindInteger:
		return 0
	case KindBoolean:
		return 1
	case KindString:
		return 2
	case KindBinary:
		return 3
	case KindDouble:
		return 4
	default:
		return -1
	}
}
