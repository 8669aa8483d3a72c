package body

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrAlreadyWritten is returned when a body is written a second time without a successful
// Reset in between.
var ErrAlreadyWritten = errors.New("body already written")

// Erased is a heap allocated streaming body of any execution style. It enforces the
// write-once-until-reset contract on behalf of the wrapped writer.
type Erased struct {
	mu      sync.Mutex
	write   func(ctx context.Context, w io.Writer) error
	reset   func() bool
	written bool
}

// Erase wraps a blocking writer.
func Erase(w Writer) *Erased {
	return &Erased{
		write: func(_ context.Context, out io.Writer) error { return w.WriteBody(out) },
		reset: w.Reset,
	}
}

// EraseAsync wraps an async writer.
func EraseAsync(w AsyncWriter) *Erased {
	return &Erased{write: w.WriteBody, reset: w.Reset}
}

// EraseLocal wraps a local writer. The result is still only safe to run on a Loop.
func EraseLocal(w LocalWriter) *Erased {
	return &Erased{write: w.WriteBody, reset: w.Reset}
}

// WriteBody writes the wrapped body to w.
func (e *Erased) WriteBody(ctx context.Context, w io.Writer) error {
	e.mu.Lock()
	if e.written {
		e.mu.Unlock()
		return ErrAlreadyWritten
	}
	e.written = true
	e.mu.Unlock()

	return e.write(ctx, w)
}

// Reset rewinds the wrapped body. After a successful Reset the body may be written again.
func (e *Erased) Reset() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reset() {
		return false
	}
	e.written = false
	return true
}

// Written reports whether the body has been written since creation or the last Reset.
func (e *Erased) Written() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.written
}

// Blocking returns e as a blocking Writer which writes with a background context.
func (e *Erased) Blocking() Writer {
	return erasedBlocking{e}
}

type erasedBlocking struct {
	e *Erased
}

func (b erasedBlocking) WriteBody(w io.Writer) error {
	return b.e.WriteBody(context.Background(), w)
}

func (b erasedBlocking) Reset() bool {
	return b.e.Reset()
}
