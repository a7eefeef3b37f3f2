// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics of a merge run.
//
// It exposes a narrow Backend interface (counters and timings) behind a
// global, pluggable backend that defaults to a no-op, so instrumentation is
// always safe to call. Concrete systems live in subpackages (prompush,
// datadog) and are installed by the CLI.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal        = "onm_step_total"
	StepDuration     = "onm_step_duration_seconds"
	RecordsTotal     = "onm_records_total"
	SourceFilesTotal = "onm_source_files_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a merge step and its duration, labeled
// success or failure.
//
// Steps used by the merge engine: "schema", "verify", "primary", "adhoc",
// "commit".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter for the given job and kind.
//
// Kinds used by the merge engine:
//   - "primary": rows written from the primary+weights pairing
//   - "adhoc":   rows written from ad-hoc extracts
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordSourceFile counts one input file consumed in the given role
// ("primary", "weights", "adhoc").
func RecordSourceFile(job, role string) {
	backend.IncCounter(SourceFilesTotal, 1, Labels{
		"job":  job,
		"role": role,
	})
}
