package merge

import (
	"errors"
	"fmt"
	"io"

	"onmcombine/internal/record"
)

// ErrStreamsDiverged means two positionally paired inputs did not end on the
// same row. The row-count gate should make it unreachable; hitting it means
// the line-based count was fooled (e.g. quoted newlines in one file only).
var ErrStreamsDiverged = errors.New("paired streams ended at different rows")

// recordReader is the part of csv.Reader the merge engine consumes.
type recordReader interface {
	Next() (record.Record, error)
}

// zip pairs two readers by position.
type zip struct {
	left, right recordReader
	n           int
}

// Next returns the next pair. It returns io.EOF only when both readers are
// exhausted together, and ErrStreamsDiverged when only one of them is.
func (z *zip) Next() (record.Record, record.Record, error) {
	l, lerr := z.left.Next()
	if lerr != nil && lerr != io.EOF {
		return nil, nil, lerr
	}
	r, rerr := z.right.Next()
	if rerr != nil && rerr != io.EOF {
		return nil, nil, rerr
	}
	switch {
	case lerr == io.EOF && rerr == io.EOF:
		return nil, nil, io.EOF
	case lerr == io.EOF, rerr == io.EOF:
		return nil, nil, &DivergedError{Row: z.n + 1, LeftEnded: lerr == io.EOF}
	}
	z.n++
	return l, r, nil
}

// DivergedError reports at which data row the paired streams fell apart.
type DivergedError struct {
	Row       int  // 1-based data row at which one side had nothing left
	LeftEnded bool // true when the left (primary) stream ended first
}

func (e *DivergedError) Error() string {
	side := "weights"
	if e.LeftEnded {
		side = "primary"
	}
	return fmt.Sprintf("%v: %s ended first at data row %d", ErrStreamsDiverged, side, e.Row)
}

// Is makes errors.Is(err, ErrStreamsDiverged) succeed.
func (e *DivergedError) Is(target error) bool { return target == ErrStreamsDiverged }
