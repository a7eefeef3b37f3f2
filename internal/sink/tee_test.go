package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSink records calls for assertions.
type memSink struct {
	header    []string
	rows      [][]string
	committed bool
	aborted   bool
	failRow   error
}

func (m *memSink) WriteHeader(_ context.Context, f []string) error {
	m.header = append([]string(nil), f...)
	return nil
}

func (m *memSink) WriteRow(_ context.Context, v []string) error {
	if m.failRow != nil {
		return m.failRow
	}
	m.rows = append(m.rows, append([]string(nil), v...))
	return nil
}

func (m *memSink) Commit(context.Context) error { m.committed = true; return nil }
func (m *memSink) Abort() error                 { m.aborted = true; return nil }

func TestTee_FansOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, b := &memSink{}, &memSink{}
	tee := Tee{a, b}

	require.NoError(t, tee.WriteHeader(ctx, []string{"x"}))
	require.NoError(t, tee.WriteRow(ctx, []string{"1"}))
	require.NoError(t, tee.Commit(ctx))

	for _, m := range []*memSink{a, b} {
		assert.Equal(t, []string{"x"}, m.header)
		assert.Equal(t, [][]string{{"1"}}, m.rows)
		assert.True(t, m.committed)
	}
}

func TestTee_StopsAndAbortsAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("boom")
	a, b := &memSink{failRow: boom}, &memSink{}
	tee := Tee{a, b}

	require.NoError(t, tee.WriteHeader(ctx, []string{"x"}))
	require.ErrorIs(t, tee.WriteRow(ctx, []string{"1"}), boom)
	assert.Empty(t, b.rows, "later sinks must not see a row the first one rejected")

	require.NoError(t, tee.Abort())
	assert.True(t, a.aborted)
	assert.True(t, b.aborted)
}
