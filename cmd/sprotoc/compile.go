// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"

	"github.com/sprotogo/sproto/schema"
)

// compileFiles parses each input schema file and writes one output file
// per input into outDir, in the requested format. Files compile
// concurrently: parsing and validating one schema has no dependency on
// any other, so the only shared state is the filesystem writes, each to
// its own path.
func compileFiles(files []string, outDir, format string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("sprotoc: creating %s: %w", outDir, err)
	}

	var g errgroup.Group
	for _, f := range files {
		f := f
		g.Go(func() error {
			return compileOne(f, outDir, format)
		})
	}
	return g.Wait()
}

func compileOne(path, outDir, format string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sprotoc: reading %s: %w", path, err)
	}

	s, err := schema.Parse(string(src))
	if err != nil {
		return fmt.Errorf("sprotoc: %s: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch format {
	case "binary":
		out := schema.SaveBinary(s)
		dest := filepath.Join(outDir, base+".sprotob")
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			return fmt.Errorf("sprotoc: writing %s: %w", dest, err)
		}
	case "json":
		out, err := json.MarshalIndent(catalogOf(s), "", "  ")
		if err != nil {
			return fmt.Errorf("sprotoc: %s: rendering catalog: %w", path, err)
		}
		dest := filepath.Join(outDir, base+".json")
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			return fmt.Errorf("sprotoc: writing %s: %w", dest, err)
		}
	}
	return nil
}

// typeCatalog and friends are a plain, JSON-friendly projection of a
// *schema.Schema, independent of the binary schema's tag-keyed framing —
// this is the CLI's inspection surface, not a wire format.
type typeCatalog struct {
	Types     []typeEntry     `json:"types"`
	Protocols []protocolEntry `json:"protocols"`
}

type typeEntry struct {
	Name    string       `json:"name"`
	BaseTag int          `json:"base_tag"`
	Maxn    int          `json:"maxn"`
	Fields  []fieldEntry `json:"fields"`
}

type fieldEntry struct {
	Name      string `json:"name"`
	Tag       int    `json:"tag"`
	Kind      string `json:"kind"`
	IsArray   bool   `json:"is_array"`
	Precision *int   `json:"precision,omitempty"`
	MapKey    *int   `json:"map_key,omitempty"`
	Struct    string `json:"struct_type,omitempty"`
}

type protocolEntry struct {
	Name     string `json:"name"`
	Tag      int    `json:"tag"`
	Request  string `json:"request,omitempty"`
	Response string `json:"response,omitempty"`
	Confirm  bool   `json:"confirm"`
}

func catalogOf(s *schema.Schema) typeCatalog {
	c := typeCatalog{
		Types:     make([]typeEntry, len(s.Types)),
		Protocols: make([]protocolEntry, len(s.Protocols)),
	}
	for i, t := range s.Types {
		te := typeEntry{Name: t.Name, BaseTag: t.BaseTag, Maxn: t.Maxn, Fields: make([]fieldEntry, len(t.Fields))}
		for j, f := range t.Fields {
			fe := fieldEntry{Name: f.Name, Tag: f.Tag, Kind: f.Kind.String(), IsArray: f.IsArray}
			if f.Precision != schema.NoIndex {
				p := f.Precision
				fe.Precision = &p
			}
			if f.MapKey != schema.NoIndex {
				k := f.MapKey
				fe.MapKey = &k
			}
			if f.Kind == schema.KindStruct {
				fe.Struct = s.Types[f.TypeIndex].Name
			}
			te.Fields[j] = fe
		}
		c.Types[i] = te
	}
	for i, p := range s.Protocols {
		pe := protocolEntry{Name: p.Name, Tag: p.Tag, Confirm: p.Confirm}
		if p.RequestType != schema.NoIndex {
			pe.Request = s.Types[p.RequestType].Name
		}
		if p.ResponseType != schema.NoIndex {
			pe.Response = s.Types[p.ResponseType].Name
		}
		c.Protocols[i] = pe
	}
	return c
}
