// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

// astField is one parsed field declaration, before type-reference
// resolution.
type astField struct {
	Name    string
	Tag     int
	IsArray bool
	TypeRef string // one of the five builtin keywords, or a (possibly dotted) type name

	HasExtra   bool
	ExtraName  string // set when the parenthesized extra is an identifier (map key name)
	ExtraNum   int    // set when the parenthesized extra is a number (integer(N) precision)
	ExtraIsNum bool

	Line, Col int
}

// astType is one parsed type declaration, with nested type_defs still
// attached (not yet flattened into dotted names).
type astType struct {
	Name   string
	Fields []astField
	Nested []astType

	Line, Col int
}

// astProto is one parsed protocol declaration.
type astProto struct {
	Name string
	Tag  int

	HasRequest  bool
	RequestName string

	HasResponse  bool
	ResponseName string
	ResponseNil  bool

	Line, Col int
}

// astSchema is the full parse tree for one schema source.
type astSchema struct {
	Types  []astType
	Protos []astProto
}
