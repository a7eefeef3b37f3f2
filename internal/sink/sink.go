// Package sink defines where merged rows go.
//
// A run writes exactly one header and then rows already projected onto that
// header. A sink either commits everything it received or, when the run fails,
// is aborted and leaves nothing consistent-looking behind.
package sink

import (
	"context"
	"errors"
)

// Sink receives the merged output.
type Sink interface {
	// WriteHeader fixes the output columns. It is called once, first.
	WriteHeader(ctx context.Context, fields []string) error
	// WriteRow appends one row; len(values) equals the header length. The
	// caller reuses values after the call returns.
	WriteRow(ctx context.Context, values []string) error
	// Commit makes the output durable and visible.
	Commit(ctx context.Context) error
	// Abort discards whatever was written. It is safe after Commit (no-op).
	Abort() error
}

// Tee fans every call out to all of its sinks, in order. It stops at the
// first error; the caller is then expected to Abort the Tee.
type Tee []Sink

// WriteHeader implements Sink.
func (t Tee) WriteHeader(ctx context.Context, fields []string) error {
	for _, s := range t {
		if err := s.WriteHeader(ctx, fields); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow implements Sink.
func (t Tee) WriteRow(ctx context.Context, values []string) error {
	for _, s := range t {
		if err := s.WriteRow(ctx, values); err != nil {
			return err
		}
	}
	return nil
}

// Commit implements Sink. Sinks are committed in order; a failure leaves the
// remaining ones uncommitted so a following Abort can discard them. Already
// committed sinks stay committed, so the sink whose output marks a successful
// run belongs last.
func (t Tee) Commit(ctx context.Context) error {
	for _, s := range t {
		if err := s.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Abort implements Sink. Every sink is aborted; errors are joined.
func (t Tee) Abort() error {
	var errs []error
	for _, s := range t {
		if err := s.Abort(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
