package body

import (
	"bytes"
	"context"
	"io"
)

// WriterFunc turns a function into a blocking writer that cannot be reset.
type WriterFunc func(w io.Writer) error

// WriteBody calls f.
func (f WriterFunc) WriteBody(w io.Writer) error {
	return f(w)
}

// Reset always fails.
func (f WriterFunc) Reset() bool {
	return false
}

// AsyncWriterFunc turns a function into an async writer that cannot be reset.
type AsyncWriterFunc func(ctx context.Context, w io.Writer) error

// WriteBody calls f.
func (f AsyncWriterFunc) WriteBody(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Reset always fails.
func (f AsyncWriterFunc) Reset() bool {
	return false
}

type bytesWriter []byte

// Bytes returns a resettable writer for an in-memory payload.
func Bytes(data []byte) Writer {
	return bytesWriter(data)
}

func (b bytesWriter) WriteBody(w io.Writer) error {
	_, err := io.Copy(w, bytes.NewReader(b))
	return err
}

func (b bytesWriter) Reset() bool {
	return true
}

type readerWriter struct {
	r     io.ReadSeeker
	start int64
}

// Reader returns a writer copying r from its current offset. Reset seeks back to that offset.
func Reader(r io.ReadSeeker) Writer {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		start = 0
	}
	return &readerWriter{r: r, start: start}
}

func (rw *readerWriter) WriteBody(w io.Writer) error {
	_, err := io.Copy(w, rw.r)
	return err
}

func (rw *readerWriter) Reset() bool {
	_, err := rw.r.Seek(rw.start, io.SeekStart)
	return err == nil
}

type asyncAdapter struct {
	w Writer
}

// Async runs a blocking writer as an async writer. The writer is not interrupted by ctx once
// it has started.
func Async(w Writer) AsyncWriter {
	return asyncAdapter{w}
}

func (a asyncAdapter) WriteBody(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.w.WriteBody(w)
}

func (a asyncAdapter) Reset() bool {
	return a.w.Reset()
}
