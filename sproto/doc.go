// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sproto is the top-level façade over the wire codec, schema
// model, zero-byte packer, and RPC host: Parse/LoadBinary build a
// *schema.Schema, Encode/Decode run the codec against it, Pack/Unpack
// apply the compression envelope, and NewHost opens an RPC dispatcher.
// Callers who only need one subsystem can import schema, codec, pack, or
// rpc directly; this package exists for the common case of wanting all
// four without naming each import.
package sproto
