// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import "fmt"

// ParseError reports a schema text parse or build failure at a source
// position, carrying the offending (line, column) and a textual reason.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schema: %d:%d: %s", e.Line, e.Col, e.Msg)
}

var builtinKinds = map[string]Kind{
	"integer": KindInteger,
	"boolean": KindBoolean,
	"string":  KindString,
	"binary":  KindBinary,
	"double":  KindDouble,
}

// parser turns lexer tokens into an astSchema per the following grammar:
//
//	schema    := (type_def | proto_def)*
//	type_def  := '.' Name '{' (field | type_def)* '}'
//	proto_def := Name Number '{' ('request' Name | 'response' (Name | 'nil'))* '}'
//	field     := Name Number ':' ('*')? type_ref ('(' (Name | Number) ')')?
//	type_ref  := 'integer' | 'boolean' | 'string' | 'binary' | 'double' | Name
type parser struct {
	lex  *lexer
	tok  Token
	have bool
}

func newParser(src string) *parser {
	return &parser{lex: newLexer(src)}
}

func (p *parser) peek() (Token, error) {
	if !p.have {
		t, err := p.lex.Next()
		if err != nil {
			return Token{}, err
		}
		p.tok = t
		p.have = true
	}
	return p.tok, nil
}

func (p *parser) next() (Token, error) {
	t, err := p.peek()
	if err != nil {
		return Token{}, err
	}
	p.have = false
	return t, nil
}

func perr(t Token, format string, args ...interface{}) error {
	return &ParseError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k TokenKind, what string) (Token, error) {
	t, err := p.next()
	if err != nil {
		return Token{}, err
	}
	if t.Kind != k {
		return Token{}, perr(t, "expected %s", what)
	}
	return t, nil
}

// parseSchema parses a whole schema source into an AST.
func parseSchema(src string) (*astSchema, error) {
	p := newParser(src)
	out := &astSchema{}
	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch t.Kind {
		case TokEOF:
			return out, nil
		case TokDot:
			td, err := p.parseTypeDef()
			if err != nil {
				return nil, err
			}
			out.Types = append(out.Types, *td)
		case TokName:
			pd, err := p.parseProtoDef()
			if err != nil {
				return nil, err
			}
			out.Protos = append(out.Protos, *pd)
		default:
			return nil, perr(t, "expected type or protocol declaration")
		}
	}
}

func (p *parser) parseTypeDef() (*astType, error) {
	dot, err := p.expect(TokDot, "'.'")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokName, "type name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	t := &astType{Name: name.Text, Line: dot.Line, Col: dot.Col}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokRBrace:
			p.next()
			return t, nil
		case TokDot:
			nested, err := p.parseTypeDef()
			if err != nil {
				return nil, err
			}
			t.Nested = append(t.Nested, *nested)
		case TokName:
			f, err := p.parseField()
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, *f)
		default:
			return nil, perr(tok, "expected field, nested type, or '}'")
		}
	}
}

func (p *parser) parseField() (*astField, error) {
	name, err := p.expect(TokName, "field name")
	if err != nil {
		return nil, err
	}
	tagTok, err := p.expect(TokNumber, "field tag")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon, "':'"); err != nil {
		return nil, err
	}
	f := &astField{Name: name.Text, Tag: int(tagTok.Num), Line: name.Line, Col: name.Col}

	t, err := p.peek()
	if err != nil {
		return nil, err
	}
	if t.Kind == TokStar {
		p.next()
		f.IsArray = true
	}

	typeTok, err := p.expect(TokName, "field type")
	if err != nil {
		return nil, err
	}
	f.TypeRef = typeTok.Text

	t, err = p.peek()
	if err != nil {
		return nil, err
	}
	if t.Kind == TokLParen {
		p.next()
		extra, err := p.next()
		if err != nil {
			return nil, err
		}
		switch extra.Kind {
		case TokName:
			f.HasExtra = true
			f.ExtraName = extra.Text
		case TokNumber:
			f.HasExtra = true
			f.ExtraIsNum = true
			f.ExtraNum = int(extra.Num)
		default:
			return nil, perr(extra, "expected map key name or precision number")
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (p *parser) parseProtoDef() (*astProto, error) {
	name, err := p.expect(TokName, "protocol name")
	if err != nil {
		return nil, err
	}
	tagTok, err := p.expect(TokNumber, "protocol tag")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	pr := &astProto{Name: name.Text, Tag: int(tagTok.Num), Line: name.Line, Col: name.Col}
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case t.Kind == TokRBrace:
			return pr, nil
		case t.Kind == TokName && t.Text == "request":
			n, err := p.expect(TokName, "request type name")
			if err != nil {
				return nil, err
			}
			pr.HasRequest = true
			pr.RequestName = n.Text
		case t.Kind == TokName && t.Text == "response":
			n, err := p.expect(TokName, "response type name or 'nil'")
			if err != nil {
				return nil, err
			}
			pr.HasResponse = true
			if n.Text == "nil" {
				pr.ResponseNil = true
			} else {
				pr.ResponseName = n.Text
			}
		default:
			return nil, perr(t, "expected 'request', 'response', or '}'")
		}
	}
}
