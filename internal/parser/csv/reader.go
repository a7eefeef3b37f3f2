// Package csv streams survey extracts as header-keyed records.
//
// Reader wraps encoding/csv the same way for every input of a merge run: the
// header row is read eagerly and normalized with record.FieldName, and each
// subsequent row is returned as a record.Record. Rows may be wider or narrower
// than the header; the merge projects them onto the output schema later, so
// width is not enforced here.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"onmcombine/internal/datasource/file"
	"onmcombine/internal/record"
)

// Reader yields records from one CSV file. It is not safe for concurrent use.
type Reader struct {
	path   string
	src    io.ReadCloser
	cr     *csv.Reader
	header []string
}

// Open opens path and consumes its header row.
//
// An empty file is an error: every input of the merge must at least declare
// its columns.
func Open(ctx context.Context, path string) (*Reader, error) {
	src, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		src.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header %s: empty file", path)
		}
		return nil, fmt.Errorf("read csv header %s: %w", path, err)
	}
	header := make([]string, len(h))
	for i, name := range h {
		header[i] = record.FieldName(name)
	}

	return &Reader{path: path, src: src, cr: cr, header: header}, nil
}

// ReadHeader returns the normalized header of path and closes the file.
func ReadHeader(ctx context.Context, path string) ([]string, error) {
	r, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Header(), nil
}

// Header returns the normalized header, in file order.
func (r *Reader) Header() []string { return r.header }

// HasField reports whether the header declares name.
func (r *Reader) HasField(name string) bool {
	for _, h := range r.header {
		if h == name {
			return true
		}
	}
	return false
}

// Next returns the next data row, or io.EOF when the file is exhausted.
// Parse errors carry the file path and the line where the record starts.
func (r *Reader) Next() (record.Record, error) {
	row, err := r.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return record.FromRow(r.header, row), nil
}

// Line returns the input line on which the most recently read record started.
func (r *Reader) Line() int {
	line, _ := r.cr.FieldPos(0)
	return line
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.src.Close() }
