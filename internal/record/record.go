// Package record defines the in-memory row representation shared by the
// reader, the transformers and the merge engine.
//
// A Record maps a lowercase field name to its raw string value. Field names
// are normalized once, when a header is read (see FieldName), so every lookup
// downstream is an exact map access.
package record

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Missing is written for schema fields a record does not carry.
const Missing = "NA"

// Record is one CSV row keyed by normalized field name.
type Record map[string]string

// FieldName returns the canonical (lowercase) form of a header cell.
// Lowercasing follows Unicode rules so non-English survey headers normalize the
// same way across files. Whitespace is significant. A Caser is stateful, hence
// one per call.
func FieldName(s string) string {
	return cases.Lower(language.Und).String(s)
}

// FromRow zips header and row into a Record. Extra cells beyond the header are
// ignored; short rows simply lack the trailing fields. When a header repeats a
// name, the last cell wins.
func FromRow(header, row []string) Record {
	r := make(Record, len(header))
	for i, name := range header {
		if i >= len(row) {
			break
		}
		r[name] = row[i]
	}
	return r
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Is reports whether field is present and equal to want.
func (r Record) Is(field, want string) bool {
	v, ok := r[field]
	return ok && v == want
}

// KeysContaining returns the field names of r that contain sub, sorted.
//
// Matching is deliberately a substring test, not an exact name: survey
// multi-choice questions are exported as one column per option with a
// generated suffix, and a rule aimed at the question must catch all of them.
func (r Record) KeysContaining(sub string) []string {
	var keys []string
	for k := range r {
		if strings.Contains(k, sub) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Project lays r out along fields, substituting Missing for absent ones.
// dst is reused when it has enough capacity.
func (r Record) Project(fields []string, dst []string) []string {
	if cap(dst) < len(fields) {
		dst = make([]string, len(fields))
	}
	dst = dst[:len(fields)]
	for i, f := range fields {
		v, ok := r[f]
		if !ok {
			v = Missing
		}
		dst[i] = v
	}
	return dst
}
