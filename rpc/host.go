// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpc frames sproto-encoded request/response packets over a
// user-nominated header type and dispatches them against a schema's
// protocol table, tracking in-flight sessions by a sender-assigned id.
package rpc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sprotogo/sproto/codec"
	"github.com/sprotogo/sproto/pack"
	"github.com/sprotogo/sproto/schema"
	"github.com/sprotogo/sproto/value"
)

// Sentinel errors, matching the host's failure taxonomy.
var (
	ErrUnknownProtocol = errors.New("rpc: unknown protocol")
	ErrUnknownSession  = errors.New("rpc: unknown session")
)

const (
	fieldType    = "type"
	fieldSession = "session"
)

// sessionEntry records what a pending request is waiting on.
type sessionEntry struct {
	protocolIndex int
	userTag       interface{}
}

// Host dispatches inbound packets and tracks the sessions of requests
// this host itself sent. A Host is safe for concurrent use: every read
// and write of the session table, during dispatch and session allocation,
// serializes through a mutex guarding the bounded, non-suspending critical
// section spec.md's concurrency model calls for.
type Host struct {
	schema      *schema.Schema
	headerType  string
	nextSession int64

	mu       sync.Mutex
	sessions map[int64]sessionEntry
}

// New builds a Host over s, whose packets are framed with headerType (the
// user-nominated "package" type, conventionally carrying type/session/ud
// fields).
func New(s *schema.Schema, headerType string) (*Host, error) {
	if _, ok := s.TypeByName(headerType); !ok {
		return nil, fmt.Errorf("rpc: header type %q not found in schema", headerType)
	}
	return &Host{schema: s, headerType: headerType, sessions: make(map[int64]sessionEntry)}, nil
}

// Direction distinguishes a decoded packet's role.
type Direction int

const (
	DirRequest Direction = iota
	DirResponse
)

// DispatchResult is what Host.Dispatch returns for one decoded packet.
type DispatchResult struct {
	Direction Direction
	Protocol  *schema.Protocol
	Payload   value.Value // zero Value (KNil) when the protocol carries none
	HasReply  bool        // true iff Responder is safe to call
	Responder *Responder  // set iff HasReply

	// UserTag is only populated on a Response, echoing what Attach's
	// RequestSender recorded when it allocated the session.
	UserTag interface{}
}

// Responder replies to one in-flight request.
type Responder struct {
	host        *Host
	session     int64
	sessionFlag bool
	respType    int // index into host.schema.Types, or schema.NoIndex
}

// Dispatch unpacks and decodes one inbound packet, classifying it as a
// request or a response and resolving its payload type from the header.
func (h *Host) Dispatch(raw []byte) (DispatchResult, error) {
	body, err := pack.Unpack(raw)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("rpc: unpack: %w", err)
	}

	header, n, err := codec.DecodePrefix(h.schema, h.headerType, body)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("rpc: decode header: %w", err)
	}
	rest := body[n:]

	typeVal, hasType := header.Struct[fieldType]
	sessionVal, hasSession := header.Struct[fieldSession]

	if hasSession && !hasType {
		return h.dispatchResponse(sessionVal.Int, rest)
	}
	if !hasType {
		return DispatchResult{}, fmt.Errorf("rpc: header carries neither %q nor %q", fieldType, fieldSession)
	}
	return h.dispatchRequest(typeVal.Int, sessionVal, hasSession, rest)
}

func (h *Host) dispatchResponse(session int64, rest []byte) (DispatchResult, error) {
	h.mu.Lock()
	entry, ok := h.sessions[session]
	if ok {
		delete(h.sessions, session)
	}
	h.mu.Unlock()
	if !ok {
		return DispatchResult{}, ErrUnknownSession
	}

	proto := h.schema.Protocols[entry.protocolIndex]
	var payload value.Value
	if proto.ResponseType != schema.NoIndex {
		var err error
		// DecodePrefix ignores the zero padding Unpack leaves after the payload.
		payload, _, err = codec.DecodePrefix(h.schema, h.schema.Types[proto.ResponseType].Name, rest)
		if err != nil {
			return DispatchResult{}, fmt.Errorf("rpc: decode response payload: %w", err)
		}
	}
	return DispatchResult{
		Direction: DirResponse,
		Protocol:  proto,
		Payload:   payload,
		UserTag:   entry.userTag,
	}, nil
}

func (h *Host) dispatchRequest(tag int64, sessionVal value.Value, hasSession bool, rest []byte) (DispatchResult, error) {
	proto, ok := h.schema.ProtocolByTag(int(tag))
	if !ok {
		return DispatchResult{}, ErrUnknownProtocol
	}

	var payload value.Value
	if proto.RequestType != schema.NoIndex {
		var err error
		// DecodePrefix ignores the zero padding Unpack leaves after the payload.
		payload, _, err = codec.DecodePrefix(h.schema, h.schema.Types[proto.RequestType].Name, rest)
		if err != nil {
			return DispatchResult{}, fmt.Errorf("rpc: decode request payload: %w", err)
		}
	}

	result := DispatchResult{Direction: DirRequest, Protocol: proto, Payload: payload}
	expectsReply := proto.ResponseType != schema.NoIndex || proto.Confirm
	if expectsReply {
		result.HasReply = true
		result.Responder = &Responder{
			host:        h,
			session:     sessionVal.Int,
			sessionFlag: hasSession,
			respType:    proto.ResponseType,
		}
	}
	return result, nil
}

// Respond encodes a response packet carrying payload (which may be the
// zero Value when the protocol is confirm-only or has no response body)
// and packs it for the wire, reusing the incoming request's session id.
func (r *Responder) Respond(payload value.Value) ([]byte, error) {
	headerType, _ := r.host.schema.TypeByName(r.host.headerType)
	fields := map[string]value.Value{}
	if r.sessionFlag {
		fields[fieldSession] = value.Int(r.session)
	}
	header := value.StructOf(fields)

	headerBytes, err := codec.Encode(r.host.schema, headerType.Name, header)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode response header: %w", err)
	}

	var payloadBytes []byte
	if r.respType != schema.NoIndex {
		payloadBytes, err = codec.Encode(r.host.schema, r.host.schema.Types[r.respType].Name, payload)
		if err != nil {
			return nil, fmt.Errorf("rpc: encode response payload: %w", err)
		}
	}
	return pack.Pack(concatFrame(headerBytes, payloadBytes)), nil
}

// DropSession removes a pending session without expecting a response for
// it; a response that later references it will fail UnknownSession.
func (h *Host) DropSession(session int64) {
	h.mu.Lock()
	delete(h.sessions, session)
	h.mu.Unlock()
}

// RequestSender binds the send side of an RPC exchange against a
// (possibly remote) schema: it knows how to name protocols and allocate
// sessions, but shares the owning Host's session table so responses
// dispatched back through the same Host resolve.
type RequestSender struct {
	host   *Host
	schema *schema.Schema
}

// Attach binds a RequestSender to remoteSchema, the schema describing the
// peer this sender will talk to (ordinarily the same schema the Host
// itself dispatches against, but not required to be).
func (h *Host) Attach(remoteSchema *schema.Schema) *RequestSender {
	return &RequestSender{host: h, schema: remoteSchema}
}

// Send encodes protocolName's request packet, allocating and recording a
// session if the protocol expects a response, and packs it for the wire.
// userTag is opaque caller data returned verbatim on DispatchResult when
// the matching response arrives; it is ignored for response-less
// protocols, which allocate no session. Confirm-only protocols do allocate
// one, since a response is still expected.
func (s *RequestSender) Send(protocolName string, payload value.Value, userTag interface{}) ([]byte, error) {
	proto, ok := s.schema.ProtocolByName(protocolName)
	if !ok {
		return nil, ErrUnknownProtocol
	}

	headerType, ok := s.host.schema.TypeByName(s.host.headerType)
	if !ok {
		return nil, fmt.Errorf("rpc: header type %q not found", s.host.headerType)
	}

	fields := map[string]value.Value{fieldType: value.Int(int64(proto.Tag))}
	expectsReply := proto.ResponseType != schema.NoIndex || proto.Confirm
	if expectsReply {
		hostIdx, ok := s.host.schema.ProtocolIndex(protocolName)
		if !ok {
			return nil, fmt.Errorf("rpc: protocol %q not present in host schema for response correlation", protocolName)
		}
		session := s.host.allocSession(hostIdx, userTag)
		fields[fieldSession] = value.Int(session)
	}
	header := value.StructOf(fields)

	headerBytes, err := codec.Encode(s.host.schema, headerType.Name, header)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode request header: %w", err)
	}

	var payloadBytes []byte
	if proto.RequestType != schema.NoIndex {
		payloadBytes, err = codec.Encode(s.schema, s.schema.Types[proto.RequestType].Name, payload)
		if err != nil {
			return nil, fmt.Errorf("rpc: encode request payload: %w", err)
		}
	}
	return pack.Pack(concatFrame(headerBytes, payloadBytes)), nil
}

func (h *Host) allocSession(protocolIndex int, userTag interface{}) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSession++
	session := h.nextSession
	h.sessions[session] = sessionEntry{protocolIndex: protocolIndex, userTag: userTag}
	return session
}

func concatFrame(header, payload []byte) []byte {
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}
