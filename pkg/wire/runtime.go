// Package wire holds the Runtime: the ordered, immutable list of body encodings shared by
// clients and servers, and the content negotiation performed against it.
package wire

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Suhaibinator/SWire/pkg/codec"
	"github.com/Suhaibinator/SWire/pkg/metrics"
)

// Runtime is the encoding configuration of a client or server.
// It is immutable once built and may be shared between goroutines without locking.
type Runtime struct {
	encodings []codec.Encoding
	logger    *zap.Logger
	recorder  metrics.Recorder
}

// Builder assembles a Runtime.
type Builder struct {
	encodings []codec.Encoding
	logger    *zap.Logger
	recorder  metrics.Recorder
}

// NewBuilder returns a Builder with no encodings registered.
func NewBuilder() *Builder {
	return &Builder{}
}

// Encoding appends enc to the registration order. Duplicates are kept; lookups always
// consider earlier registrations first.
func (b *Builder) Encoding(enc codec.Encoding) *Builder {
	b.encodings = append(b.encodings, enc)
	return b
}

// Logger sets the logger used for negotiation diagnostics.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Metrics sets the recorder notified of every negotiation.
func (b *Builder) Metrics(recorder metrics.Recorder) *Builder {
	b.recorder = recorder
	return b
}

// Build validates the registered encodings and returns the Runtime. When no encoding was
// registered the runtime holds exactly JSON followed by CBOR.
func (b *Builder) Build() (*Runtime, error) {
	encodings := slices.Clone(b.encodings)
	if len(encodings) == 0 {
		encodings = []codec.Encoding{codec.JSON(), codec.CBOR()}
	}
	for i, enc := range encodings {
		if enc == nil {
			return nil, fmt.Errorf("encoding %d is nil", i)
		}
		if err := codec.ValidateContentType(enc); err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		encodings: encodings,
		logger:    logger,
		recorder:  metrics.OrNop(b.recorder),
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Runtime {
	rt, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rt
}

// Default returns a runtime with the default encodings.
func Default() *Runtime {
	return NewBuilder().MustBuild()
}

// Encodings returns the registered encodings in registration order.
func (r *Runtime) Encodings() []codec.Encoding {
	return slices.Clone(r.encodings)
}

// RequestEncoding returns the encoding clients use for request bodies: the first registered one.
func (r *Runtime) RequestEncoding() codec.Encoding {
	return r.encodings[0]
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *zap.Logger {
	return r.logger
}

// Metrics returns the runtime's metrics recorder.
func (r *Runtime) Metrics() metrics.Recorder {
	return r.recorder
}
