// Package scontext is the request-scoped side channel between the router, the middleware and
// endpoint dispatch. All values live in one struct stored under a single context key.
package scontext

import (
	"context"
	"maps"
	"net/http"
	"sync"

	"github.com/Suhaibinator/SWire/pkg/endpoint"
)

// swireContextKey is a private type for the context key to avoid collisions
type swireContextKey struct{}

// SWireContext holds all values that SWire adds to request contexts.
type SWireContext struct {
	TraceID string

	// Path parameters extracted by the router, already percent-decoded.
	PathParams map[string]string

	Endpoint *endpoint.Metadata

	HandlerError error

	ClientIP string

	TraceIDSet      bool
	PathParamsSet   bool
	EndpointSet     bool
	HandlerErrorSet bool
	ClientIPSet     bool

	mu         sync.Mutex
	safeParams map[string]any
}

// NewSWireContext creates an empty context value.
func NewSWireContext() *SWireContext {
	return &SWireContext{safeParams: make(map[string]any)}
}

// GetSWireContext retrieves the SWire context from a request context
func GetSWireContext(ctx context.Context) (*SWireContext, bool) {
	sc, ok := ctx.Value(swireContextKey{}).(*SWireContext)
	return sc, ok
}

// WithSWireContext stores sc in ctx.
func WithSWireContext(ctx context.Context, sc *SWireContext) context.Context {
	return context.WithValue(ctx, swireContextKey{}, sc)
}

// EnsureSWireContext retrieves or creates the SWire context
func EnsureSWireContext(ctx context.Context) (*SWireContext, context.Context) {
	sc, ok := GetSWireContext(ctx)
	if !ok {
		sc = NewSWireContext()
		ctx = WithSWireContext(ctx, sc)
	}
	return sc, ctx
}

// WithTraceID adds a trace ID to the context. An existing trace ID is never overwritten.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	sc, ctx := EnsureSWireContext(ctx)
	if sc.TraceIDSet {
		return ctx
	}
	sc.TraceID = traceID
	sc.TraceIDSet = true
	return ctx
}

// TraceID returns the trace ID of the request, or "" when none was assigned.
func TraceID(ctx context.Context) string {
	sc, ok := GetSWireContext(ctx)
	if !ok || !sc.TraceIDSet {
		return ""
	}
	return sc.TraceID
}

// TraceIDFromRequest is a convenience function to get the trace ID from a request.
func TraceIDFromRequest(r *http.Request) string {
	return TraceID(r.Context())
}

// WithClientIP records the address of the client that sent the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	sc, ctx := EnsureSWireContext(ctx)
	sc.ClientIP = ip
	sc.ClientIPSet = true
	return ctx
}

// ClientIP returns the address recorded by WithClientIP.
func ClientIP(ctx context.Context) (string, bool) {
	sc, ok := GetSWireContext(ctx)
	if !ok || !sc.ClientIPSet {
		return "", false
	}
	return sc.ClientIP, true
}

// WithPathParams attaches the path parameters extracted by the router.
func WithPathParams(ctx context.Context, params map[string]string) context.Context {
	sc, ctx := EnsureSWireContext(ctx)
	sc.PathParams = params
	sc.PathParamsSet = true
	return ctx
}

// PathParams returns the path parameters attached by the router.
func PathParams(ctx context.Context) (map[string]string, bool) {
	sc, ok := GetSWireContext(ctx)
	if !ok || !sc.PathParamsSet {
		return nil, false
	}
	return sc.PathParams, true
}

// WithEndpoint records the endpoint serving the request.
func WithEndpoint(ctx context.Context, m *endpoint.Metadata) context.Context {
	sc, ctx := EnsureSWireContext(ctx)
	sc.Endpoint = m
	sc.EndpointSet = true
	return ctx
}

// Endpoint returns the endpoint serving the request.
func Endpoint(ctx context.Context) (*endpoint.Metadata, bool) {
	sc, ok := GetSWireContext(ctx)
	if !ok || !sc.EndpointSet {
		return nil, false
	}
	return sc.Endpoint, true
}

// AddSafeParam records a value which may be logged alongside the request. It is a no-op when
// the context carries no SWire context, since there is nobody to read the value back.
// Safe to call from several goroutines.
func AddSafeParam(ctx context.Context, name string, value any) {
	sc, ok := GetSWireContext(ctx)
	if !ok {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.safeParams == nil {
		sc.safeParams = make(map[string]any)
	}
	sc.safeParams[name] = value
}

// SafeParams returns a copy of the safe parameters recorded so far.
func SafeParams(ctx context.Context) map[string]any {
	sc, ok := GetSWireContext(ctx)
	if !ok {
		return map[string]any{}
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.safeParams == nil {
		return map[string]any{}
	}
	return maps.Clone(sc.safeParams)
}

// WithHandlerError records the error an endpoint failed with, so outer middleware can log it.
func WithHandlerError(ctx context.Context, err error) context.Context {
	sc, ctx := EnsureSWireContext(ctx)
	sc.HandlerError = err
	sc.HandlerErrorSet = true
	return ctx
}

// HandlerError returns the error recorded by WithHandlerError.
func HandlerError(ctx context.Context) (error, bool) {
	sc, ok := GetSWireContext(ctx)
	if !ok || !sc.HandlerErrorSet {
		return nil, false
	}
	return sc.HandlerError, true
}
