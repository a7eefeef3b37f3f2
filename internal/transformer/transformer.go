// Package transformer defines the per-record correction step applied to
// ad-hoc survey rows before they are merged.
package transformer

import "onmcombine/internal/record"

// Transformer rewrites a single record. Implementations must not mutate their
// input; when a change is needed they return a modified copy.
type Transformer interface {
	Apply(record.Record) (record.Record, error)
}

// Func adapts a plain function to Transformer.
type Func func(record.Record) (record.Record, error)

// Apply calls f.
func (f Func) Apply(r record.Record) (record.Record, error) { return f(r) }

// Chain is an ordered list of transformers. It stops at the first error.
type Chain []Transformer

// Apply runs every transformer of c in order.
func (c Chain) Apply(r record.Record) (record.Record, error) {
	out := r
	for _, t := range c {
		var err error
		if out, err = t.Apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
