// Package schema computes the fixed output column set of a merge run.
//
// The field union is derived from the headers alone, before any data row is
// read, and is immutable afterwards: every row written by the merge engine is
// projected onto it.
package schema

import (
	"context"
	"sort"

	csvparser "onmcombine/internal/parser/csv"
)

// DefaultExcluded are survey-artifact columns that never reach the output.
var DefaultExcluded = []string{"q73", "q74"}

// Schema is an ordered set of unique field names.
type Schema struct {
	fields []string
	index  map[string]int
}

// New returns a Schema over names, keeping the first occurrence of each.
func New(names ...string) *Schema {
	s := &Schema{index: make(map[string]int, len(names))}
	for _, n := range names {
		s.add(n)
	}
	return s
}

func (s *Schema) add(name string) {
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, name)
}

// Fields returns a copy of the ordered field names.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Sorted returns the field names in lexical order, for operator display.
func (s *Schema) Sorted() []string {
	out := s.Fields()
	sort.Strings(out)
	return out
}

// without returns a new Schema with the excluded names removed, order kept.
func (s *Schema) without(excluded []string) *Schema {
	drop := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		drop[e] = struct{}{}
	}
	out := New()
	for _, f := range s.fields {
		if _, ok := drop[f]; !ok {
			out.add(f)
		}
	}
	return out
}

// Union merges already-normalized headers into a Schema:
//
//  1. primary seeds the result in its own order;
//  2. each adhoc header, in the order given, appends names not yet seen;
//  3. weight is appended when still absent;
//  4. excluded names are removed wherever they landed.
func Union(primary []string, adhoc [][]string, weight string, excluded []string) *Schema {
	s := New(primary...)
	for _, h := range adhoc {
		for _, name := range h {
			s.add(name)
		}
	}
	s.add(weight)
	return s.without(excluded)
}

// Build reads the headers of the primary file and of every ad-hoc file and
// returns their Union. adhocPaths must already be in their deterministic
// (sorted) order. Any read failure is returned as is.
func Build(ctx context.Context, primaryPath string, adhocPaths []string, weight string, excluded []string) (*Schema, error) {
	primary, err := csvparser.ReadHeader(ctx, primaryPath)
	if err != nil {
		return nil, err
	}
	adhoc := make([][]string, 0, len(adhocPaths))
	for _, p := range adhocPaths {
		h, err := csvparser.ReadHeader(ctx, p)
		if err != nil {
			return nil, err
		}
		adhoc = append(adhoc, h)
	}
	return Union(primary, adhoc, weight, excluded), nil
}
