package server

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/Suhaibinator/SWire/pkg/body"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	"github.com/Suhaibinator/SWire/pkg/serviceerror"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

// ContentTypeBinary is the content type of binary responses.
const ContentTypeBinary = "application/octet-stream"

// Response is the result of an endpoint: headers plus a body whose streaming variant holds a W.
type Response[W any] struct {
	Header http.Header
	Body   body.Body[W]
}

// Empty returns a response without body. It is written as 204 No Content.
func Empty[W any]() Response[W] {
	return Response[W]{Header: http.Header{}, Body: body.Empty[W]()}
}

// Binary returns a streaming response of opaque bytes. Its content type is always
// application/octet-stream, whatever the Accept header asked for.
func Binary[W any](w W) Response[W] {
	h := http.Header{}
	h.Set("Content-Type", ContentTypeBinary)
	return Response[W]{Header: h, Body: body.Streaming(w)}
}

// Serialize encodes v with the encoding negotiated from the request's Accept header.
func Serialize[W, T any](rt *wire.Runtime, r *http.Request, v T) (Response[W], error) {
	enc, err := rt.ResponseBodyEncoding(r.Header)
	if err != nil {
		return Response[W]{}, err
	}

	data, err := enc.Marshal(v)
	rt.Metrics().Codec(metrics.Response, enc.ContentType(), len(data), err)
	if err != nil {
		return Response[W]{}, serviceerror.InternalSerializationFailure(enc.ContentType(), err)
	}

	h := http.Header{}
	h.Set("Content-Type", enc.ContentType())
	return Response[W]{Header: h, Body: body.Fixed[W](data)}, nil
}

// SerializeList is Serialize for list values. An empty list is written as 204 No Content.
func SerializeList[W, T any](rt *wire.Runtime, r *http.Request, v []T) (Response[W], error) {
	if len(v) == 0 {
		return Empty[W](), nil
	}
	return Serialize[W](rt, r, v)
}

// SerializeSet is Serialize for set values. An empty set is written as 204 No Content.
func SerializeSet[W any, T comparable](rt *wire.Runtime, r *http.Request, v []T) (Response[W], error) {
	return SerializeList[W](rt, r, v)
}

// SerializeMap is Serialize for map values. An empty map is written as 204 No Content.
func SerializeMap[W any, K comparable, V any](rt *wire.Runtime, r *http.Request, v map[K]V) (Response[W], error) {
	if len(v) == 0 {
		return Empty[W](), nil
	}
	return Serialize[W](rt, r, v)
}

// SerializeOptional is Serialize for optional values. nil is written as 204 No Content.
func SerializeOptional[W, T any](rt *wire.Runtime, r *http.Request, v *T) (Response[W], error) {
	if v == nil {
		return Empty[W](), nil
	}
	return Serialize[W](rt, r, *v)
}

// responseVisitor writes the status line, headers and payload of a response.
type responseVisitor[W any] struct {
	w      http.ResponseWriter
	stream func(W, io.Writer) error
}

func (v responseVisitor[W]) VisitEmpty() error {
	h := v.w.Header()
	h.Del("Content-Type")
	h.Del("Content-Length")
	v.w.WriteHeader(http.StatusNoContent)
	return nil
}

func (v responseVisitor[W]) VisitFixed(data []byte) error {
	v.w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	v.w.WriteHeader(http.StatusOK)
	_, err := v.w.Write(data)
	return err
}

func (v responseVisitor[W]) VisitStreaming(writer W) error {
	v.w.Header().Del("Content-Length")
	v.w.WriteHeader(http.StatusOK)
	return v.stream(writer, v.w)
}

func writeResponse[W any](w http.ResponseWriter, resp Response[W], stream func(W, io.Writer) error) error {
	h := w.Header()
	for k, values := range resp.Header {
		h[k] = append([]string(nil), values...)
	}
	return body.Visit[W, error](resp.Body, responseVisitor[W]{w: w, stream: stream})
}

// WriteResponse writes a blocking response on the calling goroutine.
func WriteResponse(w http.ResponseWriter, resp Response[body.Writer]) error {
	return writeResponse(w, resp, func(writer body.Writer, out io.Writer) error {
		return body.WriteBlocking(body.Erase(writer).Blocking(), out)
	})
}

// WriteAsyncResponse writes a response whose streaming body runs on its own goroutine, and
// waits for it to finish.
func WriteAsyncResponse(ctx context.Context, w http.ResponseWriter, resp Response[body.AsyncWriter]) error {
	return writeResponse(w, resp, func(writer body.AsyncWriter, out io.Writer) error {
		return body.WriteAsync(ctx, body.EraseAsync(writer), out).Wait()
	})
}

// WriteLocalResponse writes a response whose streaming body runs on loop.
func WriteLocalResponse(ctx context.Context, loop *body.Loop, w http.ResponseWriter, resp Response[body.LocalWriter]) error {
	return writeResponse(w, resp, func(writer body.LocalWriter, out io.Writer) error {
		return body.WriteLocal(ctx, loop, body.EraseLocal(writer), out)
	})
}
