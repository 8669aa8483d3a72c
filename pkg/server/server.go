// Package server dispatches HTTP requests to endpoints: it routes on the endpoint templates,
// decodes parameters and bodies, invokes the handler and writes the negotiated response.
// Failures anywhere in an invocation are answered with a service error body.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Suhaibinator/SWire/pkg/body"
	"github.com/Suhaibinator/SWire/pkg/endpoint"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	"github.com/Suhaibinator/SWire/pkg/middleware"
	"github.com/Suhaibinator/SWire/pkg/percent"
	"github.com/Suhaibinator/SWire/pkg/scontext"
	"github.com/Suhaibinator/SWire/pkg/serviceerror"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

// tracerName is the instrumentation scope of server spans.
const tracerName = "github.com/Suhaibinator/SWire/pkg/server"

// Config configures a Server.
type Config struct {
	// Logger receives request, error and panic logs. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics receives endpoint observations. Defaults to the runtime's recorder.
	Metrics metrics.Recorder

	// TracerProvider creates the span of every endpoint invocation. Defaults to the global
	// provider.
	TracerProvider trace.TracerProvider

	// TraceIDBufferSize enables trace IDs when positive; it sizes the pool of precomputed IDs.
	TraceIDBufferSize int

	// LocalBacklog is the number of local endpoint jobs queued before callers block.
	LocalBacklog int

	// SlowRequestThreshold logs requests slower than this at Warn level. Zero disables it.
	SlowRequestThreshold time.Duration

	// IPConfig enables client IP extraction for request logs when set.
	IPConfig *middleware.IPConfig

	// Middlewares run inside the built-in recovery, logging and trace middleware.
	Middlewares []middleware.Middleware
}

// Server mounts endpoints on an httprouter and serves them.
type Server struct {
	rt       *wire.Runtime
	logger   *zap.Logger
	recorder metrics.Recorder
	tracer   trace.Tracer
	router   *httprouter.Router
	handler  http.Handler
	loop     *body.Loop
	ids      *middleware.IDGenerator

	mu        sync.Mutex
	endpoints []*endpoint.Metadata
	closeOnce sync.Once
}

// dispatchFunc runs a matched endpoint. Errors are turned into error responses by the caller.
type dispatchFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// New creates a server using rt for content negotiation.
func New(rt *wire.Runtime, config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := config.Metrics
	if recorder == nil {
		recorder = rt.Metrics()
	}
	provider := config.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	s := &Server{
		rt:       rt,
		logger:   logger,
		recorder: recorder,
		tracer:   provider.Tracer(tracerName),
		router:   httprouter.New(),
		loop:     body.NewLoop(config.LocalBacklog),
	}

	// Paths are matched in their escaped form, so cleaning or redirecting them would change
	// what a percent-encoded parameter decodes to.
	s.router.RedirectTrailingSlash = false
	s.router.RedirectFixedPath = false
	s.router.HandleMethodNotAllowed = false
	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, nil, serviceerror.NotFound(fmt.Errorf("no endpoint for %s %s", r.Method, r.URL.Path)))
	})

	chain := []middleware.Middleware{middleware.Recovery(logger), middleware.Logging(logger, config.SlowRequestThreshold)}
	if config.IPConfig != nil {
		chain = append(chain, middleware.ClientIP(config.IPConfig))
	}
	if config.TraceIDBufferSize > 0 {
		s.ids = middleware.NewIDGenerator(config.TraceIDBufferSize)
		chain = append(chain, middleware.Trace(s.ids))
	}
	chain = append(chain, config.Middlewares...)
	s.handler = middleware.Chain(chain...)(http.HandlerFunc(s.route))

	return s
}

// Runtime returns the runtime the server negotiates with.
func (s *Server) Runtime() *wire.Runtime {
	return s.rt
}

// Endpoints lists the metadata of every registered endpoint in registration order.
func (s *Server) Endpoints() []*endpoint.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*endpoint.Metadata(nil), s.endpoints...)
}

// Register mounts blocking endpoints.
func (s *Server) Register(endpoints ...Endpoint) error {
	for _, ep := range endpoints {
		handler := ep.Handler
		err := s.mount(ep.Metadata, func(_ context.Context, w http.ResponseWriter, r *http.Request) error {
			resp, err := handler(r)
			if err != nil {
				return err
			}
			return WriteResponse(w, resp)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RegisterAsync mounts async endpoints. Handlers and streaming bodies run on their own
// goroutines while the request goroutine waits for them.
func (s *Server) RegisterAsync(endpoints ...AsyncEndpoint) error {
	for _, ep := range endpoints {
		handler := ep.Handler
		err := s.mount(ep.Metadata, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			// The handler gets the request context: streaming bodies it returns may keep
			// using it until the response has been written.
			var resp Response[body.AsyncWriter]
			var g errgroup.Group
			g.Go(func() (err error) {
				defer recoverInto(&err)
				resp, err = handler(ctx, r)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			return WriteAsyncResponse(ctx, w, resp)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RegisterLocal mounts local endpoints. Handlers and streaming bodies run on the server's
// event loop goroutine.
func (s *Server) RegisterLocal(endpoints ...LocalEndpoint) error {
	for _, ep := range endpoints {
		handler := ep.Handler
		err := s.mount(ep.Metadata, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			type result struct {
				resp Response[body.LocalWriter]
				err  error
			}
			done := make(chan result, 1)
			err := s.loop.Submit(func() {
				var res result
				defer func() { done <- res }()
				defer recoverInto(&res.err)
				res.resp, res.err = handler(ctx, r)
			})
			if err != nil {
				return serviceerror.Internal(err)
			}
			res := <-done
			if res.err != nil {
				return res.err
			}
			return WriteLocalResponse(ctx, s.loop, w, res.resp)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RegisterService mounts every endpoint of svc. svc may implement any combination of
// Service, AsyncService and LocalService.
func (s *Server) RegisterService(svc any) error {
	registered := false
	if bs, ok := svc.(Service); ok {
		registered = true
		if err := s.Register(bs.Endpoints(s.rt)...); err != nil {
			return err
		}
	}
	if as, ok := svc.(AsyncService); ok {
		registered = true
		if err := s.RegisterAsync(as.AsyncEndpoints(s.rt)...); err != nil {
			return err
		}
	}
	if ls, ok := svc.(LocalService); ok {
		registered = true
		if err := s.RegisterLocal(ls.LocalEndpoints(s.rt)...); err != nil {
			return err
		}
	}
	if !registered {
		return fmt.Errorf("%T does not provide any endpoints", svc)
	}
	return nil
}

func recoverInto(err *error) {
	if rec := recover(); rec != nil {
		*err = serviceerror.Internal(fmt.Errorf("panic: %v", rec))
	}
}

// mount registers dispatch on the router under the endpoint's method and template.
func (s *Server) mount(m *endpoint.Metadata, dispatch dispatchFunc) (err error) {
	if m == nil {
		return fmt.Errorf("endpoint metadata is required")
	}
	// httprouter reports conflicting routes by panicking.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("registering %s %s: %v", m.Method, m.Template, rec)
		}
	}()

	s.router.Handle(m.Method, m.HTTPRouterPath(), s.handle(m, dispatch))

	s.mu.Lock()
	s.endpoints = append(s.endpoints, m)
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("endpoint", m.FullName()),
		zap.String("method", m.Method),
		zap.String("path", m.Template),
	}
	if m.Deprecated {
		s.logger.Info("Registered deprecated endpoint", fields...)
	} else {
		s.logger.Debug("Registered endpoint", fields...)
	}
	return nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// route hands the request to httprouter, matching on the escaped path so that encoded
// slashes inside parameters do not split segments.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	routed := *r.URL
	routed.Path = r.URL.EscapedPath()
	routed.RawPath = ""

	req := r.WithContext(r.Context())
	req.URL = &routed
	s.router.ServeHTTP(w, req)
}

func (s *Server) handle(m *endpoint.Metadata, dispatch dispatchFunc) httprouter.Handle {
	rest := ""
	for _, seg := range m.Path {
		if seg.Rest {
			rest = seg.Param
		}
	}

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Give handlers the decoded path back.
		escaped := r.URL.Path
		if decoded, err := percent.Decode(escaped); err == nil {
			r.URL.Path, r.URL.RawPath = decoded, escaped
		}

		ctx := scontext.WithEndpoint(r.Context(), m)
		ctx, span := s.tracer.Start(ctx, m.FullName(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", m.Template),
			),
		)
		r = r.WithContext(ctx)

		defer func() {
			for k, v := range scontext.SafeParams(ctx) {
				span.SetAttributes(attribute.String("param."+k, fmt.Sprint(v)))
			}
			span.SetAttributes(attribute.Int("http.response.status_code", sw.statusCode))
			span.End()
			s.recorder.Endpoint(m.Service, m.Name, sw.statusCode, time.Since(start))
		}()

		params := make(map[string]string, len(ps))
		for _, p := range ps {
			value := p.Value
			if p.Key == rest {
				value = strings.TrimPrefix(value, "/")
			}
			decoded, err := percent.Decode(value)
			if err != nil {
				s.writeError(sw, r, span, serviceerror.InvalidArgument(p.Key, err))
				return
			}
			params[p.Key] = decoded
		}
		if name := m.RegexMismatch(params); name != "" {
			s.writeError(sw, r, span, serviceerror.NotFound(
				fmt.Errorf("path parameter %q does not match %s", name, m.Template)))
			return
		}
		r = r.WithContext(scontext.WithPathParams(r.Context(), params))

		if err := invoke(dispatch, sw, r); err != nil {
			s.writeError(sw, r, span, err)
		}
	}
}

// invoke runs dispatch, turning a panic into an INTERNAL error so the span and metrics
// observe the failure.
func invoke(dispatch dispatchFunc, w http.ResponseWriter, r *http.Request) (err error) {
	defer recoverInto(&err)
	return dispatch(r.Context(), w, r)
}

// writeError logs err and answers with its service error body, unless the response has
// already started.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	svcErr := serviceerror.From(err)
	scontext.WithHandlerError(r.Context(), svcErr)

	fields := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("error_name", svcErr.Name),
		zap.String("error_code", string(svcErr.Code)),
		zap.String("error_instance_id", svcErr.InstanceID.String()),
	}
	if len(svcErr.Safe) > 0 {
		fields = append(fields, zap.Any("safe_params", svcErr.Safe))
	}
	if traceID := scontext.TraceIDFromRequest(r); traceID != "" {
		fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
	}
	if svcErr.Code.IsClientError() {
		s.logger.Warn("Endpoint returned a client error", fields...)
	} else {
		s.logger.Error("Endpoint failed", fields...)
	}

	if span != nil {
		span.RecordError(svcErr)
		span.SetStatus(codes.Error, svcErr.Name)
	}

	if sw, ok := w.(*statusWriter); ok && sw.wroteHeader {
		s.logger.Error("Response already started, cannot write error body", fields...)
		return
	}
	if werr := middleware.WriteError(w, svcErr); werr != nil {
		s.logger.Error("Failed to write error response",
			zap.Error(werr),
			zap.String("error_instance_id", svcErr.InstanceID.String()),
		)
	}
}

// Close stops the event loop and the trace ID generator. Requests still being served by
// local endpoints finish first.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.loop.Close()
		if s.ids != nil {
			s.ids.Stop()
		}
	})
	return err
}

// statusWriter records the status code of a response and whether it has started.
type statusWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
