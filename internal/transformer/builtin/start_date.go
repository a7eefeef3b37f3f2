package builtin

import (
	"errors"
	"fmt"

	"onmcombine/internal/record"
)

const (
	FieldStartTime = "start_time"
	FieldStartDate = "start_date"

	dateLen = len("YYYY-MM-DD") // characters, not bytes
)

// ErrMalformedStartTime reports a start_time shorter than 10 characters, or no
// start_time at all.
var ErrMalformedStartTime = errors.New("malformed start_time")

// StartDate derives start_date from the date prefix of start_time
// ("2022-05-01T03:00:00" → "2022-05-01").
type StartDate struct{}

// Apply implements transformer.Transformer.
func (StartDate) Apply(r record.Record) (record.Record, error) {
	v, ok := r[FieldStartTime]
	if !ok {
		return nil, fmt.Errorf("%w: field missing", ErrMalformedStartTime)
	}
	cut, n := len(v), 0
	for i := range v {
		if n == dateLen {
			cut = i
			break
		}
		n++
	}
	if n < dateLen {
		return nil, fmt.Errorf("%w: %q", ErrMalformedStartTime, v)
	}
	out := r.Clone()
	out[FieldStartDate] = v[:cut]
	return out, nil
}
