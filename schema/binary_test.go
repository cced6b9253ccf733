// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema_test

import (
	"testing"

	"github.com/sprotogo/sproto/codec"
	"github.com/sprotogo/sproto/schema"
	"github.com/sprotogo/sproto/value"
)

// metaSchemaText is the same hardcoded meta-schema schema.LoadBinary
// decodes against, used here only to produce binary schema fixtures
// with the ordinary text parser + codec, independent of the bootstrap
// loader under test.
const metaSchemaText = `
.type  { name 0:string  fields 1:*field }
.field {
	name 0:string  buildin 1:integer  type 2:integer
	tag 3:integer  array 4:boolean  key 5:integer
	map 6:integer  extra 7:integer
}
.group { type 0:*type  protocol 1:*protocol }
.protocol {
	name 0:string  tag 1:integer  request 2:integer
	response 3:integer  confirm 4:boolean
}
`

func fieldValue(name string, fields map[string]value.Value) value.Value {
	m := map[string]value.Value{"name": value.Str(name)}
	for k, v := range fields {
		m[k] = v
	}
	return value.StructOf(m)
}

func TestLoadBinarySimpleType(t *testing.T) {
	meta, err := schema.Parse(metaSchemaText)
	if err != nil {
		t.Fatal(err)
	}

	personFields := value.ArrayOf([]value.Value{
		fieldValue("name", map[string]value.Value{"buildin": value.Int(2), "tag": value.Int(0)}),
		fieldValue("age", map[string]value.Value{"buildin": value.Int(0), "tag": value.Int(1)}),
	})
	personType := value.StructOf(map[string]value.Value{
		"name":   value.Str("Person"),
		"fields": personFields,
	})
	group := value.StructOf(map[string]value.Value{
		"type": value.ArrayOf([]value.Value{personType}),
	})

	b, err := codec.Encode(meta, "group", group)
	if err != nil {
		t.Fatal(err)
	}

	s, err := schema.LoadBinary(b)
	if err != nil {
		t.Fatal(err)
	}
	typ, ok := s.TypeByName("Person")
	if !ok {
		t.Fatal("Person not found in loaded schema")
	}
	if len(typ.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(typ.Fields))
	}
	name, ok := typ.FieldByName("name")
	if !ok || name.Kind != schema.KindString {
		t.Fatalf("name field = %+v, %v", name, ok)
	}
	age, ok := typ.FieldByName("age")
	if !ok || age.Kind != schema.KindInteger {
		t.Fatalf("age field = %+v, %v", age, ok)
	}
}

func TestLoadBinaryStructFieldReference(t *testing.T) {
	meta, err := schema.Parse(metaSchemaText)
	if err != nil {
		t.Fatal(err)
	}

	addressType := value.StructOf(map[string]value.Value{
		"name": value.Str("Address"),
		"fields": value.ArrayOf([]value.Value{
			fieldValue("city", map[string]value.Value{"buildin": value.Int(2), "tag": value.Int(0)}),
		}),
	})
	personType := value.StructOf(map[string]value.Value{
		"name": value.Str("Person"),
		"fields": value.ArrayOf([]value.Value{
			fieldValue("name", map[string]value.Value{"buildin": value.Int(2), "tag": value.Int(0)}),
			fieldValue("address", map[string]value.Value{"type": value.Int(0), "tag": value.Int(1)}),
		}),
	})
	group := value.StructOf(map[string]value.Value{
		"type": value.ArrayOf([]value.Value{addressType, personType}),
	})

	b, err := codec.Encode(meta, "group", group)
	if err != nil {
		t.Fatal(err)
	}
	s, err := schema.LoadBinary(b)
	if err != nil {
		t.Fatal(err)
	}
	person, ok := s.TypeByName("Person")
	if !ok {
		t.Fatal("Person not found")
	}
	addr, ok := person.FieldByName("address")
	if !ok || addr.Kind != schema.KindStruct {
		t.Fatalf("address field = %+v, %v", addr, ok)
	}
	wantIdx, _ := s.TypeIndex("Address")
	if addr.TypeIndex != wantIdx {
		t.Fatalf("TypeIndex = %d, want %d", addr.TypeIndex, wantIdx)
	}
}

func TestLoadBinaryProtocol(t *testing.T) {
	meta, err := schema.Parse(metaSchemaText)
	if err != nil {
		t.Fatal(err)
	}

	reqType := value.StructOf(map[string]value.Value{
		"name": value.Str("foobar_request"),
		"fields": value.ArrayOf([]value.Value{
			fieldValue("what", map[string]value.Value{"buildin": value.Int(2), "tag": value.Int(0)}),
		}),
	})
	proto := value.StructOf(map[string]value.Value{
		"name":    value.Str("foobar"),
		"tag":     value.Int(1),
		"request": value.Int(0),
		"confirm": value.Bool(false),
	})
	group := value.StructOf(map[string]value.Value{
		"type":     value.ArrayOf([]value.Value{reqType}),
		"protocol": value.ArrayOf([]value.Value{proto}),
	})

	b, err := codec.Encode(meta, "group", group)
	if err != nil {
		t.Fatal(err)
	}
	s, err := schema.LoadBinary(b)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := s.ProtocolByName("foobar")
	if !ok || p.Tag != 1 {
		t.Fatalf("foobar = %+v, %v", p, ok)
	}
	if p.Confirm {
		t.Fatal("foobar should not be confirm-only")
	}
	wantIdx, _ := s.TypeIndex("foobar_request")
	if p.RequestType != wantIdx {
		t.Fatalf("RequestType = %d, want %d", p.RequestType, wantIdx)
	}
	if p.ResponseType != schema.NoIndex {
		t.Fatalf("ResponseType = %d, want NoIndex", p.ResponseType)
	}
}

func TestLoadBinaryMapField(t *testing.T) {
	meta, err := schema.Parse(metaSchemaText)
	if err != nil {
		t.Fatal(err)
	}
	itemType := value.StructOf(map[string]value.Value{
		"name": value.Str("Item"),
		"fields": value.ArrayOf([]value.Value{
			fieldValue("key", map[string]value.Value{"buildin": value.Int(2), "tag": value.Int(0)}),
			fieldValue("value", map[string]value.Value{"buildin": value.Int(0), "tag": value.Int(1)}),
		}),
	})
	bagType := value.StructOf(map[string]value.Value{
		"name": value.Str("Bag"),
		"fields": value.ArrayOf([]value.Value{
			fieldValue("items", map[string]value.Value{
				"type": value.Int(0), "tag": value.Int(0),
				"array": value.Bool(true), "map": value.Int(1), "key": value.Int(0),
			}),
		}),
	})
	group := value.StructOf(map[string]value.Value{
		"type": value.ArrayOf([]value.Value{itemType, bagType}),
	})
	b, err := codec.Encode(meta, "group", group)
	if err != nil {
		t.Fatal(err)
	}
	s, err := schema.LoadBinary(b)
	if err != nil {
		t.Fatal(err)
	}
	bag, _ := s.TypeByName("Bag")
	items, ok := bag.FieldByName("items")
	if !ok || !items.IsArray || items.MapKey != 0 {
		t.Fatalf("items = %+v, %v", items, ok)
	}
}

func TestLoadBinaryTruncated(t *testing.T) {
	if _, err := schema.LoadBinary([]byte{0x01}); err == nil {
		t.Fatal("expected error on truncated binary schema")
	}
}

func TestSaveLoadBinaryRoundTrip(t *testing.T) {
	src := `
.Item { key 0 : string  value 1 : integer }
.Bag { items 0 : *Item(key)  numbers 1 : *integer  note 2 : integer(2) }
foobar 1 {
	request Item
	response Bag
}
ping 2 {
	request Item
	response nil
}
`
	s, err := schema.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	b := schema.SaveBinary(s)
	back, err := schema.LoadBinary(b)
	if err != nil {
		t.Fatal(err)
	}

	bag, ok := back.TypeByName("Bag")
	if !ok {
		t.Fatal("Bag missing after round-trip")
	}
	items, ok := bag.FieldByName("items")
	if !ok || !items.IsArray || items.MapKey != 0 {
		t.Fatalf("items = %+v, %v", items, ok)
	}
	numbers, ok := bag.FieldByName("numbers")
	if !ok || !numbers.IsArray || numbers.Kind != schema.KindInteger {
		t.Fatalf("numbers = %+v, %v", numbers, ok)
	}
	note, ok := bag.FieldByName("note")
	if !ok || note.Precision != 2 {
		t.Fatalf("note = %+v, %v", note, ok)
	}

	p, ok := back.ProtocolByName("foobar")
	if !ok || p.Tag != 1 {
		t.Fatalf("foobar = %+v, %v", p, ok)
	}
	wantReq, _ := back.TypeIndex("Item")
	wantResp, _ := back.TypeIndex("Bag")
	if p.RequestType != wantReq || p.ResponseType != wantResp {
		t.Fatalf("foobar request/response = %d/%d, want %d/%d", p.RequestType, p.ResponseType, wantReq, wantResp)
	}

	ping, ok := back.ProtocolByName("ping")
	if !ok || !ping.Confirm || ping.ResponseType != schema.NoIndex {
		t.Fatalf("ping = %+v, %v", ping, ok)
	}
}
