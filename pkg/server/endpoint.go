package server

import (
	"context"
	"net/http"

	"github.com/Suhaibinator/SWire/pkg/body"
	"github.com/Suhaibinator/SWire/pkg/endpoint"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

// Handler serves a blocking endpoint on the request goroutine.
type Handler func(r *http.Request) (Response[body.Writer], error)

// AsyncHandler serves an endpoint on a goroutine of its own. It must not rely on
// goroutine-local state.
type AsyncHandler func(ctx context.Context, r *http.Request) (Response[body.AsyncWriter], error)

// LocalHandler serves an endpoint on the server's single event loop goroutine, which lets it
// capture state that is not safe for concurrent use.
type LocalHandler func(ctx context.Context, r *http.Request) (Response[body.LocalWriter], error)

// Endpoint binds metadata to a blocking handler.
type Endpoint struct {
	Metadata *endpoint.Metadata
	Handler  Handler
}

// AsyncEndpoint binds metadata to an async handler.
type AsyncEndpoint struct {
	Metadata *endpoint.Metadata
	Handler  AsyncHandler
}

// LocalEndpoint binds metadata to a local handler.
type LocalEndpoint struct {
	Metadata *endpoint.Metadata
	Handler  LocalHandler
}

// Service is a named bundle of blocking endpoints. The runtime is handed over so handlers
// can negotiate encodings with it.
type Service interface {
	Endpoints(rt *wire.Runtime) []Endpoint
}

// AsyncService is a bundle of async endpoints.
type AsyncService interface {
	AsyncEndpoints(rt *wire.Runtime) []AsyncEndpoint
}

// LocalService is a bundle of local endpoints.
type LocalService interface {
	LocalEndpoints(rt *wire.Runtime) []LocalEndpoint
}
