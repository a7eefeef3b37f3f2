// Package file implements the local filesystem inputs of a merge run: opening
// survey extracts and discovering ad-hoc files by name suffix.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Local is a filesystem data source bound to a single path.
type Local struct{ path string }

// NewLocal returns a Local data source for path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the configured path for reading.
//
// Behavior:
//   - If ctx is already done, Open returns ctx.Err() without touching the
//     filesystem.
//   - A leading UTF-8 byte-order mark is stripped, so header names from
//     spreadsheet exports compare equal to those from plain exports.
//   - Input must be UTF-8. A read reaching an invalid byte fails with
//     encoding.ErrInvalidUTF8, wrapped with the path.
//   - Filesystem errors are wrapped with the path and keep their identity
//     (errors.Is(err, os.ErrNotExist) still works).
//
// Closing the returned reader closes the underlying file.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	t := transform.Chain(unicode.BOMOverride(transform.Nop), encoding.UTF8Validator)
	return &utf8Source{
		path:   l.path,
		r:      transform.NewReader(f, t),
		Closer: f,
	}, nil
}

type utf8Source struct {
	path string
	r    io.Reader
	io.Closer
}

func (s *utf8Source) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("read %s: %w", s.path, err)
	}
	return n, err
}
