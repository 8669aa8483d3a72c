// Package body models request and response bodies.
//
// A Body is empty, a fixed buffer, or a streaming writer. Streaming writers come in three
// execution styles sharing one state machine: Writer runs on the calling goroutine,
// AsyncWriter may run on any goroutine, and LocalWriter only ever runs on the goroutine of a
// Loop. A streaming writer writes its whole payload in one WriteBody call; Reset rewinds it so
// a transport may retry after a failed attempt, and reports whether that was possible.
package body

import (
	"context"
	"io"
)

// Kind is the variant of a Body.
type Kind int

const (
	// KindEmpty is a body without payload.
	KindEmpty Kind = iota
	// KindFixed is a fully buffered payload of known length.
	KindFixed
	// KindStreaming is a payload produced by a writer.
	KindStreaming
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindFixed:
		return "fixed"
	case KindStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Writer is a blocking streaming body.
type Writer interface {
	WriteBody(w io.Writer) error
	Reset() bool
}

// AsyncWriter is a streaming body which may be executed on any goroutine.
type AsyncWriter interface {
	WriteBody(ctx context.Context, w io.Writer) error
	Reset() bool
}

// LocalWriter is a streaming body that may hold state which is not safe for concurrent use.
// It must only be executed through WriteLocal, which runs it on a Loop goroutine.
type LocalWriter interface {
	WriteBody(ctx context.Context, w io.Writer) error
	Reset() bool
}

// Body is an empty, fixed or streaming body whose streaming variant holds a W.
type Body[W any] struct {
	kind   Kind
	data   []byte
	writer W
}

// Empty returns a body without payload.
func Empty[W any]() Body[W] {
	return Body[W]{kind: KindEmpty}
}

// Fixed returns a buffered body. A nil or empty slice still yields a fixed body of length 0.
func Fixed[W any](data []byte) Body[W] {
	return Body[W]{kind: KindFixed, data: data}
}

// Streaming returns a body produced by w.
func Streaming[W any](w W) Body[W] {
	return Body[W]{kind: KindStreaming, writer: w}
}

// Kind returns the variant of the body.
func (b Body[W]) Kind() Kind {
	return b.kind
}

// Bytes returns the payload of a fixed body.
func (b Body[W]) Bytes() []byte {
	return b.data
}

// Writer returns the writer of a streaming body.
func (b Body[W]) Writer() W {
	return b.writer
}

// ContentLength returns the payload size when it is known up front.
func (b Body[W]) ContentLength() (int64, bool) {
	switch b.kind {
	case KindEmpty:
		return 0, true
	case KindFixed:
		return int64(len(b.data)), true
	default:
		return 0, false
	}
}

// Visitor dispatches on the variant of a body.
type Visitor[W, R any] interface {
	VisitEmpty() R
	VisitFixed(data []byte) R
	VisitStreaming(w W) R
}

// Visit calls the method of v matching the variant of b.
func Visit[W, R any](b Body[W], v Visitor[W, R]) R {
	switch b.kind {
	case KindFixed:
		return v.VisitFixed(b.data)
	case KindStreaming:
		return v.VisitStreaming(b.writer)
	default:
		return v.VisitEmpty()
	}
}
