// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import "sort"

// Parse compiles schema text into a Schema using a three-pass builder:
// flatten and collect, sort, resolve and validate.
func Parse(src string) (*Schema, error) {
	ast, err := parseSchema(src)
	if err != nil {
		return nil, err
	}
	return build(ast)
}

// flatType is one type after nesting has been flattened to a dotted name,
// but before field type references are resolved.
type flatType struct {
	Name            string
	Fields          []astField
	EnclosingPrefix string
	Line, Col       int
}

func flattenTypes(types []astType, prefix string) []flatType {
	var out []flatType
	for _, t := range types {
		dotted := t.Name
		if prefix != "" {
			dotted = prefix + "." + t.Name
		}
		out = append(out, flatType{Name: dotted, Fields: t.Fields, EnclosingPrefix: prefix, Line: t.Line, Col: t.Col})
		out = append(out, flattenTypes(t.Nested, dotted)...)
	}
	return out
}

func build(ast *astSchema) (*Schema, error) {
	// Pass 1: flatten and collect.
	flats := flattenTypes(ast.Types, "")

	// Pass 2: sort type names lexicographically; this order is the
	// canonical type index order and must be stable, since it affects
	// binary-schema output.
	sort.Slice(flats, func(i, j int) bool { return flats[i].Name < flats[j].Name })

	nameToIndex := make(map[string]int, len(flats))
	for i, f := range flats {
		if _, dup := nameToIndex[f.Name]; dup {
			return nil, &ParseError{Line: f.Line, Col: f.Col, Msg: "duplicate type name " + f.Name}
		}
		nameToIndex[f.Name] = i
	}

	resolveTypeRef := func(ref, typeName, enclosingPrefix string, tok astField) (int, error) {
		if i, ok := nameToIndex[ref]; ok {
			return i, nil
		}
		// A type's own nested types are reachable by their short name.
		if i, ok := nameToIndex[typeName+"."+ref]; ok {
			return i, nil
		}
		if enclosingPrefix != "" {
			if i, ok := nameToIndex[enclosingPrefix+"."+ref]; ok {
				return i, nil
			}
		}
		return 0, &ParseError{Line: tok.Line, Col: tok.Col, Msg: "unknown type " + ref}
	}

	// Pass 3: resolve and validate.
	types := make([]*Type, len(flats))
	for i, ft := range flats {
		fields := make([]Field, 0, len(ft.Fields))
		for _, af := range ft.Fields {
			if af.Tag < 0 || af.Tag > 65534 {
				return nil, &ParseError{Line: af.Line, Col: af.Col, Msg: "tag out of range 0..65534"}
			}
			field := Field{
				Name:      af.Name,
				Tag:       af.Tag,
				IsArray:   af.IsArray,
				TypeIndex: NoIndex,
				Precision: NoIndex,
				MapKey:    NoIndex,
			}
			if k, ok := builtinKinds[af.TypeRef]; ok {
				field.Kind = k
				if af.HasExtra {
					if af.ExtraIsNum {
						if k != KindInteger {
							return nil, &ParseError{Line: af.Line, Col: af.Col, Msg: "precision is only valid for integer fields"}
						}
						if af.ExtraNum < 0 || af.ExtraNum > 10 {
							return nil, &ParseError{Line: af.Line, Col: af.Col, Msg: "precision must be 0..10"}
						}
						field.Precision = af.ExtraNum
					} else {
						return nil, &ParseError{Line: af.Line, Col: af.Col, Msg: "map key requires a struct element type"}
					}
				}
			} else {
				field.Kind = KindStruct
				idx, err := resolveTypeRef(af.TypeRef, ft.Name, ft.EnclosingPrefix, af)
				if err != nil {
					return nil, err
				}
				field.TypeIndex = idx
				if af.HasExtra {
					if af.ExtraIsNum {
						return nil, &ParseError{Line: af.Line, Col: af.Col, Msg: "precision is only valid for integer fields"}
					}
					elem := flats[idx]
					tag, ok := findFieldTag(elem.Fields, af.ExtraName)
					if !ok {
						return nil, &ParseError{Line: af.Line, Col: af.Col, Msg: "map key " + af.ExtraName + " not found in " + elem.Name}
					}
					field.MapKey = tag
				}
			}
			fields = append(fields, field)
		}
		t, err := newType(ft.Name, fields)
		if err != nil {
			return nil, &ParseError{Line: ft.Line, Col: ft.Col, Msg: err.Error()}
		}
		types[i] = t
	}

	protocols := make([]*Protocol, 0, len(ast.Protos))
	for _, ap := range ast.Protos {
		if ap.Tag < 0 || ap.Tag > 65535 {
			return nil, &ParseError{Line: ap.Line, Col: ap.Col, Msg: "protocol tag out of range"}
		}
		p := &Protocol{Name: ap.Name, Tag: ap.Tag, RequestType: NoIndex, ResponseType: NoIndex}
		if ap.HasRequest {
			idx, ok := nameToIndex[ap.RequestName]
			if !ok {
				return nil, &ParseError{Line: ap.Line, Col: ap.Col, Msg: "unknown request type " + ap.RequestName}
			}
			p.RequestType = idx
		}
		if ap.HasResponse {
			if ap.ResponseNil {
				p.Confirm = true
			} else {
				idx, ok := nameToIndex[ap.ResponseName]
				if !ok {
					return nil, &ParseError{Line: ap.Line, Col: ap.Col, Msg: "unknown response type " + ap.ResponseName}
				}
				p.ResponseType = idx
			}
		}
		protocols = append(protocols, p)
	}

	s := &Schema{Types: types, Protocols: protocols}
	if err := indexSchema(s); err != nil {
		return nil, &ParseError{Line: 0, Col: 0, Msg: err.Error()}
	}
	return s, nil
}

func findFieldTag(fields []astField, name string) (int, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Tag, true
		}
	}
	return 0, false
}
