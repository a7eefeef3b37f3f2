package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

const partialSuffix = ".partial"

// CSV writes the merged output to a file.
//
// Rows go to "<path>.partial" and the file is renamed to path only on Commit,
// so a failed run never leaves a file at path. The xxh3-64 digest of the bytes
// written is available after Commit.
type CSV struct {
	path   string
	f      *os.File
	buf    *bufio.Writer
	w      *csv.Writer
	hash   *xxh3.Hasher
	rows   int64
	done   bool
	digest uint64
}

// NewCSV creates the partial output file for path.
func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path + partialSuffix)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	h := xxh3.New()
	buf := bufio.NewWriterSize(f, 256*1024)
	return &CSV{
		path: path,
		f:    f,
		buf:  buf,
		w:    csv.NewWriter(io.MultiWriter(buf, h)),
		hash: h,
	}, nil
}

// Path returns the final output path.
func (c *CSV) Path() string { return c.path }

// Rows returns the number of data rows written so far.
func (c *CSV) Rows() int64 { return c.rows }

// Digest returns the xxh3-64 digest of the committed file.
func (c *CSV) Digest() uint64 { return c.digest }

// DigestHex returns Digest as 16 lowercase hex digits.
func (c *CSV) DigestHex() string {
	return fmt.Sprintf("%016x", c.digest)
}

// WriteHeader implements Sink.
func (c *CSV) WriteHeader(_ context.Context, fields []string) error {
	if err := c.w.Write(fields); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WriteRow implements Sink.
func (c *CSV) WriteRow(_ context.Context, values []string) error {
	if err := c.w.Write(values); err != nil {
		return fmt.Errorf("write row %d: %w", c.rows+1, err)
	}
	c.rows++
	return nil
}

// Commit flushes, syncs and renames the partial file into place.
func (c *CSV) Commit(_ context.Context) error {
	if c.done {
		return nil
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := c.buf.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := c.f.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err := c.f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(c.path+partialSuffix, c.path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	c.digest = c.hash.Sum64()
	c.done = true
	return nil
}

// Abort closes and removes the partial file.
func (c *CSV) Abort() error {
	if c.done {
		return nil
	}
	c.done = true
	closeErr := c.f.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	rmErr := os.Remove(c.path + partialSuffix)
	if errors.Is(rmErr, os.ErrNotExist) {
		rmErr = nil
	}
	return errors.Join(closeErr, rmErr)
}
