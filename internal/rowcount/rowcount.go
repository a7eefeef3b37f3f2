// Package rowcount gates the ordinal merge of two aligned files on equal row
// counts.
//
// Counting is line based: a file's row count is its number of lines minus the
// header. Quoted fields with embedded newlines therefore count as several
// rows. Consumers that pair records positionally must still detect drift on
// their own; this check only refuses obviously misaligned inputs before any
// output exists.
package rowcount

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrRowCountMismatch is matched (via errors.Is) by every *MismatchError.
var ErrRowCountMismatch = errors.New("row count mismatch")

// MismatchError reports two files whose data row counts differ.
type MismatchError struct {
	PathA, PathB string
	RowsA, RowsB int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: %s has %d data rows, %s has %d",
		ErrRowCountMismatch, e.PathA, e.RowsA, e.PathB, e.RowsB)
}

// Is makes errors.Is(err, ErrRowCountMismatch) succeed.
func (e *MismatchError) Is(target error) bool { return target == ErrRowCountMismatch }

// Lines counts newline-terminated lines in r, plus a trailing line that lacks
// a final newline.
func Lines(r io.Reader) (int, error) {
	buf := make([]byte, 64*1024)
	n := 0
	var last byte = '\n'
	for {
		k, err := r.Read(buf)
		if k > 0 {
			n += bytes.Count(buf[:k], []byte{'\n'})
			last = buf[k-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		n++
	}
	return n, nil
}

// Count returns the number of data rows in path: its line count minus the
// header line. A file holding only a header (or nothing) has zero rows.
func Count(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("count rows: open %s: %w", path, err)
	}
	defer f.Close()

	n, err := Lines(f)
	if err != nil {
		return 0, fmt.Errorf("count rows: read %s: %w", path, err)
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}

// Verify returns the shared row count of a and b, or a *MismatchError when
// they differ.
func Verify(a, b string) (int, error) {
	na, err := Count(a)
	if err != nil {
		return 0, err
	}
	nb, err := Count(b)
	if err != nil {
		return 0, err
	}
	if na != nb {
		return 0, &MismatchError{PathA: a, PathB: b, RowsA: na, RowsB: nb}
	}
	return na, nil
}
