// Package merge combines the primary survey export, its weights and the
// ad-hoc extracts into one output with a fixed schema.
//
// A run has four phases, each owning the files it opens:
//
//	schema   read every header once and fix the output columns
//	verify   refuse primary/weights files with different row counts
//	primary  pair primary and weight rows by position and write them
//	adhoc    stream each ad-hoc file through the correction chain
//
// The sink is only opened after verify succeeds and the weights header is
// known to carry the weight column, so a precondition failure never produces
// output. Any later failure aborts the sink.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"onmcombine/internal/metrics"
	csvparser "onmcombine/internal/parser/csv"
	"onmcombine/internal/record"
	"onmcombine/internal/rowcount"
	"onmcombine/internal/schema"
	"onmcombine/internal/sink"
	"onmcombine/internal/transformer"
	"onmcombine/internal/transformer/builtin"
)

// ErrMissingWeightColumn means the weights file (or one of its rows) lacks the
// weight column.
var ErrMissingWeightColumn = errors.New("weights file lacks the weight column")

// DefaultWeightColumn is the national daily weight for respondents aged 13+.
const DefaultWeightColumn = "weight_daily_national_13plus"

// Inputs names the files of one run. Adhoc must already be sorted.
type Inputs struct {
	Primary string
	Weights string
	Adhoc   []string
}

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	Job           string
	WeightColumn  string
	Excluded      []string // nil selects schema.DefaultExcluded; matched case-insensitively
	ProgressEvery int      // debug progress line every N rows; 0 disables
	// Adhoc is applied to every ad-hoc record; nil selects builtin.AdhocChain.
	Adhoc transformer.Transformer
}

// OpenSink creates the output. It is called once, after the inputs passed
// verification.
type OpenSink func(ctx context.Context) (sink.Sink, error)

// Summary describes a completed run.
type Summary struct {
	Fields      []string
	PrimaryRows int64
	AdhocRows   int64
	AdhocFiles  int
}

// Engine runs merges. It holds no per-run state and may be reused.
type Engine struct {
	opts Options
	log  *zap.Logger
}

// New returns an Engine. A nil logger discards logs.
func New(opts Options, log *zap.Logger) *Engine {
	if opts.WeightColumn == "" {
		opts.WeightColumn = DefaultWeightColumn
	}
	if opts.Excluded == nil {
		opts.Excluded = schema.DefaultExcluded
	}
	excluded := make([]string, len(opts.Excluded))
	for i, name := range opts.Excluded {
		excluded[i] = record.FieldName(name)
	}
	opts.Excluded = excluded
	if opts.Adhoc == nil {
		opts.Adhoc = builtin.AdhocChain()
	}
	if opts.Job == "" {
		opts.Job = "onm_combine"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{opts: opts, log: log}
}

// step times fn and records it under name.
func (e *Engine) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(e.opts.Job, name, err, time.Since(start))
	return err
}

// Run performs one merge of in into the sink returned by open.
func (e *Engine) Run(ctx context.Context, in Inputs, open OpenSink) (sum Summary, err error) {
	var sch *schema.Schema
	if err := e.step("schema", func() (err error) {
		sch, err = schema.Build(ctx, in.Primary, in.Adhoc, e.opts.WeightColumn, e.opts.Excluded)
		return err
	}); err != nil {
		return sum, fmt.Errorf("build schema: %w", err)
	}
	sum.Fields = sch.Fields()
	e.log.Info("output schema", zap.Int("fields", sch.Len()), zap.Strings("sorted", sch.Sorted()))

	var rows int
	if err := e.step("verify", func() (err error) {
		rows, err = rowcount.Verify(in.Primary, in.Weights)
		return err
	}); err != nil {
		return sum, err
	}
	e.log.Info("primary and weights aligned", zap.Int("rows", rows))

	if err := e.checkWeights(ctx, in.Weights); err != nil {
		return sum, err
	}

	out, err := open(ctx)
	if err != nil {
		return sum, err
	}
	defer func() {
		if err != nil {
			if aerr := out.Abort(); aerr != nil {
				e.log.Warn("abort output", zap.Error(aerr))
			}
		}
	}()

	if err := out.WriteHeader(ctx, sum.Fields); err != nil {
		return sum, err
	}

	w := &rowWriter{ctx: ctx, out: out, fields: sum.Fields}

	if err := e.step("primary", func() (err error) {
		sum.PrimaryRows, err = e.writePrimary(ctx, in, w)
		return err
	}); err != nil {
		return sum, err
	}
	metrics.RecordRow(e.opts.Job, "primary", sum.PrimaryRows)

	for _, path := range in.Adhoc {
		var n int64
		if err := e.step("adhoc", func() (err error) {
			n, err = e.writeAdhoc(ctx, path, w)
			return err
		}); err != nil {
			return sum, err
		}
		sum.AdhocRows += n
		sum.AdhocFiles++
		metrics.RecordRow(e.opts.Job, "adhoc", n)
	}

	if err := e.step("commit", func() error { return out.Commit(ctx) }); err != nil {
		return sum, err
	}
	return sum, nil
}

// checkWeights fails unless the weights header declares the weight column.
func (e *Engine) checkWeights(ctx context.Context, path string) error {
	r, err := csvparser.Open(ctx, path)
	if err != nil {
		return err
	}
	defer r.Close()
	if !r.HasField(e.opts.WeightColumn) {
		return fmt.Errorf("%w: %s has no %q", ErrMissingWeightColumn, path, e.opts.WeightColumn)
	}
	return nil
}

// writePrimary streams primary rows with the weight taken from the row at the
// same position in the weights file.
func (e *Engine) writePrimary(ctx context.Context, in Inputs, w *rowWriter) (int64, error) {
	primary, err := csvparser.Open(ctx, in.Primary)
	if err != nil {
		return 0, err
	}
	defer primary.Close()
	metrics.RecordSourceFile(e.opts.Job, "primary")

	weights, err := csvparser.Open(ctx, in.Weights)
	if err != nil {
		return 0, err
	}
	defer weights.Close()
	metrics.RecordSourceFile(e.opts.Job, "weights")

	col := e.opts.WeightColumn

	e.log.Info("writing primary rows", zap.String("primary", in.Primary), zap.String("weights", in.Weights))
	z := &zip{left: primary, right: weights}
	var n int64
	for {
		d, wr, err := z.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		v, ok := wr[col]
		if !ok {
			return n, fmt.Errorf("%w: %s line %d", ErrMissingWeightColumn, in.Weights, weights.Line())
		}
		d[col] = v
		if err := w.write(d); err != nil {
			return n, err
		}
		n++
		e.progress("primary", n)
	}
	e.log.Info("primary rows written", zap.Int64("rows", n))
	return n, nil
}

// writeAdhoc streams one ad-hoc file through the correction chain.
func (e *Engine) writeAdhoc(ctx context.Context, path string, w *rowWriter) (int64, error) {
	r, err := csvparser.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	metrics.RecordSourceFile(e.opts.Job, "adhoc")

	var n int64
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		rec, err = e.opts.Adhoc.Apply(rec)
		if err != nil {
			return n, fmt.Errorf("%s line %d: %w", path, r.Line(), err)
		}
		if err := w.write(rec); err != nil {
			return n, err
		}
		n++
		e.progress(path, n)
	}
	e.log.Info("adhoc rows written", zap.String("file", path), zap.Int64("rows", n))
	return n, nil
}

func (e *Engine) progress(source string, n int64) {
	if every := int64(e.opts.ProgressEvery); every > 0 && n%every == 0 {
		e.log.Debug("progress", zap.String("source", source), zap.Int64("rows", n))
	}
}

// rowWriter projects records onto the schema before handing them to the sink.
type rowWriter struct {
	ctx    context.Context
	out    sink.Sink
	fields []string
	buf    []string
}

func (w *rowWriter) write(r record.Record) error {
	w.buf = r.Project(w.fields, w.buf)
	return w.out.WriteRow(w.ctx, w.buf)
}
