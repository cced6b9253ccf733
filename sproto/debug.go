// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sproto

import (
	"github.com/segmentio/encoding/json"

	"github.com/sprotogo/sproto/value"
)

// ToJSON renders a decoded Value tree to JSON for logs and CLI
// inspection. It is a presentation convenience, not a wire format: map
// fields (value.KStruct produced from a *T(key) array field) and plain
// structs are indistinguishable once rendered. Integers are written as
// exact JSON numbers; a reader that parses JSON numbers as float64 loses
// precision on values wider than its 53-bit mantissa.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toPlain(v))
}

// ToJSONIndent is ToJSON with indentation, for CLI output.
func ToJSONIndent(v Value, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(toPlain(v), prefix, indent)
}

func toPlain(v Value) interface{} {
	switch v.Kind {
	case value.KNil:
		return nil
	case value.KInteger:
		return v.Int
	case value.KBoolean:
		return v.Bool
	case value.KString:
		return v.Str
	case value.KBinary:
		return v.Bin
	case value.KDouble:
		return v.Double
	case value.KArray:
		out := make([]interface{}, len(v.Array))
		for i, e := range v.Array {
			out[i] = toPlain(e)
		}
		return out
	case value.KStruct:
		out := make(map[string]interface{}, len(v.Struct))
		for k, e := range v.Struct {
			out[k] = toPlain(e)
		}
		return out
	default:
		return nil
	}
}
