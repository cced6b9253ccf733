// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sprotogo/sproto/schema"
	"github.com/sprotogo/sproto/value"
)

func mustSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

const personSchema = `
.Person {
	name 0 : string
	age 1 : integer
	marital 2 : boolean
	children 3 : *Person
}
`

func TestEncodePersonGolden(t *testing.T) {
	s := mustSchema(t, personSchema)
	v := value.StructOf(map[string]value.Value{
		"name":    value.Str("Alice"),
		"age":     value.Int(13),
		"marital": value.Bool(false),
	})
	got, err := Encode(s, "Person", v)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0x03 || got[1] != 0x00 {
		t.Fatalf("header fn bytes = % x, want 03 00", got[:2])
	}
	wantNameBlock := []byte{0x05, 0x00, 0x00, 0x00, 'A', 'l', 'i', 'c', 'e'}
	if !bytes.Contains(got, wantNameBlock) {
		t.Fatalf("encoded bytes % x do not contain name block % x", got, wantNameBlock)
	}

	back, err := Decode(s, "Person", got)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(v, back); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodePersonWithChildrenArray(t *testing.T) {
	s := mustSchema(t, personSchema)
	v := value.StructOf(map[string]value.Value{
		"name": value.Str("Alice"),
		"age":  value.Int(13),
		"children": value.ArrayOf([]value.Value{
			value.StructOf(map[string]value.Value{"name": value.Str("Alice"), "age": value.Int(13)}),
			value.StructOf(map[string]value.Value{"name": value.Str("Carol"), "age": value.Int(5)}),
		}),
	})
	b, err := Encode(s, "Person", v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(s, "Person", b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(v, back); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeIntegerArrayWidth4(t *testing.T) {
	s := mustSchema(t, `.Data { numbers 0 : *integer }`)
	v := value.StructOf(map[string]value.Value{
		"numbers": value.ArrayOf([]value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4), value.Int(5)}),
	})
	b, err := Encode(s, "Data", v)
	if err != nil {
		t.Fatal(err)
	}
	// header: fn=1 descriptor=0(zero) -> 4 bytes header, then u32 len=21, then marker 04, then 20 bytes.
	block := b[8:]
	if block[0] != 0x04 {
		t.Fatalf("length-prefixed block marker = %x, want 04", block[0])
	}
	if len(block) != 1+20 {
		t.Fatalf("block length = %d, want 21", len(block))
	}
}

func TestEncodeIntegerArrayWidth8(t *testing.T) {
	s := mustSchema(t, `.Data { numbers 0 : *integer }`)
	big := int64(1)<<32 + 1
	v := value.StructOf(map[string]value.Value{
		"numbers": value.ArrayOf([]value.Value{value.Int(big), value.Int(big + 1), value.Int(big + 2)}),
	})
	b, err := Encode(s, "Data", v)
	if err != nil {
		t.Fatal(err)
	}
	block := b[8:]
	if block[0] != 0x08 {
		t.Fatalf("marker = %x, want 08", block[0])
	}
	if len(block) != 1+24 {
		t.Fatalf("block length = %d, want 25", len(block))
	}
}

func TestEncodeSizeSelection(t *testing.T) {
	s := mustSchema(t, `.Data { number 2 : integer  bignumber 3 : integer }`)
	v := value.StructOf(map[string]value.Value{
		"number":    value.Int(100000),
		"bignumber": value.Int(-10000000000),
	})
	b, err := Encode(s, "Data", v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(s, "Data", b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(v, back); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegerInlineBoundary(t *testing.T) {
	s := mustSchema(t, `.T { v 0 : integer }`)
	cases := []int64{0, 1, 0x7ffd, -1, 0x7ffe, 1<<31 - 1, 1 << 31, -(1 << 31), -(1<<31 + 1), 1<<63 - 1, -(1 << 63)}
	for _, n := range cases {
		v := value.StructOf(map[string]value.Value{"v": value.Int(n)})
		b, err := Encode(s, "T", v)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		back, err := Decode(s, "T", b)
		if err != nil {
			t.Fatalf("n=%d decode: %v", n, err)
		}
		if back.Struct["v"].Int != n {
			t.Fatalf("n=%d round-tripped to %d", n, back.Struct["v"].Int)
		}
	}
}

func TestBooleanArrayMixed(t *testing.T) {
	s := mustSchema(t, `.T { flags 0 : *boolean }`)
	v := value.StructOf(map[string]value.Value{
		"flags": value.ArrayOf([]value.Value{value.Bool(true), value.Bool(false), value.Bool(true)}),
	})
	b, err := Encode(s, "T", v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(s, "T", b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(v, back); diff != "" {
		t.Fatalf("mismatch: %s", diff)
	}
}

func TestEmptyStringBinaryArray(t *testing.T) {
	s := mustSchema(t, `.T { s 0 : string  b 1 : binary  a 2 : *integer }`)
	v := value.StructOf(map[string]value.Value{
		"s": value.Str(""),
		"b": value.Bin([]byte{}),
		"a": value.ArrayOf(nil),
	})
	b, err := Encode(s, "T", v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(s, "T", b)
	if err != nil {
		t.Fatal(err)
	}
	if back.Struct["s"].Str != "" || back.Struct["s"].Kind != value.KString {
		t.Fatalf("empty string did not round-trip: %+v", back.Struct["s"])
	}
	if back.Struct["b"].Kind != value.KBinary || len(back.Struct["b"].Bin) != 0 {
		t.Fatalf("empty binary did not round-trip: %+v", back.Struct["b"])
	}
	if back.Struct["a"].Kind != value.KArray || len(back.Struct["a"].Array) != 0 {
		t.Fatalf("empty array did not round-trip: %+v", back.Struct["a"])
	}
}

func TestNonContiguousTagsPartialPresence(t *testing.T) {
	s := mustSchema(t, `.T { a 0 : integer  b 5 : integer  c 10 : integer }`)
	v := value.StructOf(map[string]value.Value{"b": value.Int(7)})
	b, err := Encode(s, "T", v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(s, "T", b)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Struct) != 1 || back.Struct["b"].Int != 7 {
		t.Fatalf("got %+v, want only b=7", back.Struct)
	}
}

func TestUnknownTagSkipped(t *testing.T) {
	wide := mustSchema(t, `.T { a 0 : integer  extra 1 : string }`)
	narrow := mustSchema(t, `.T { a 0 : integer }`)

	v := value.StructOf(map[string]value.Value{"a": value.Int(42), "extra": value.Str("drop me")})
	b, err := Encode(wide, "T", v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(narrow, "T", b)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := back.Struct["extra"]; present {
		t.Fatal("extra field should have been dropped by the older schema")
	}
	if back.Struct["a"].Int != 42 {
		t.Fatalf("a = %+v", back.Struct["a"])
	}
}

func TestMapFieldRoundTrip(t *testing.T) {
	s := mustSchema(t, `
.Item { key 0 : string  value 1 : integer }
.Bag { items 0 : *Item(key) }
`)
	arr := value.ArrayOf([]value.Value{
		value.StructOf(map[string]value.Value{"key": value.Str("a"), "value": value.Int(1)}),
		value.StructOf(map[string]value.Value{"key": value.Str("b"), "value": value.Int(2)}),
	})
	v := value.StructOf(map[string]value.Value{"items": arr})
	b, err := Encode(s, "Bag", v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(s, "Bag", b)
	if err != nil {
		t.Fatal(err)
	}
	items := back.Struct["items"]
	if items.Kind != value.KStruct {
		t.Fatalf("decoded map field kind = %v, want Struct", items.Kind)
	}
	if items.Struct["a"].Struct["value"].Int != 1 || items.Struct["b"].Struct["value"].Int != 2 {
		t.Fatalf("got %+v", items.Struct)
	}
}

func TestMapFieldDuplicateKeyLastWins(t *testing.T) {
	s := mustSchema(t, `
.Item { key 0 : string  value 1 : integer }
.Bag { items 0 : *Item(key) }
`)
	arr := value.ArrayOf([]value.Value{
		value.StructOf(map[string]value.Value{"key": value.Str("a"), "value": value.Int(1)}),
		value.StructOf(map[string]value.Value{"key": value.Str("a"), "value": value.Int(2)}),
	})
	b, err := Encode(s, "Bag", value.StructOf(map[string]value.Value{"items": arr}))
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(s, "Bag", b)
	if err != nil {
		t.Fatal(err)
	}
	if back.Struct["items"].Struct["a"].Struct["value"].Int != 2 {
		t.Fatalf("last-writer-wins violated: %+v", back.Struct["items"])
	}
}

func TestDepthExceeded(t *testing.T) {
	s := mustSchema(t, `.Node { next 0 : Node }`)
	v := value.StructOf(map[string]value.Value{})
	cur := v
	for i := 0; i < MaxDepth+5; i++ {
		cur = value.StructOf(map[string]value.Value{"next": cur})
	}
	_, err := Encode(s, "Node", cur)
	if err == nil {
		t.Fatal("expected DepthExceeded")
	}
}

func TestTruncatedDecode(t *testing.T) {
	s := mustSchema(t, personSchema)
	_, err := Decode(s, "Person", []byte{0x01})
	if err == nil {
		t.Fatal("expected truncated error")
	}
}
