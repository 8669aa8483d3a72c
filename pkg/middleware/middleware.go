// Package middleware provides the HTTP middleware the SWire server wraps around endpoint
// dispatch: trace IDs, panic recovery and request logging.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/Suhaibinator/SWire/pkg/scontext"
	"github.com/Suhaibinator/SWire/pkg/serviceerror"
)

// Middleware wraps an http.Handler to provide additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together into a single middleware.
// The first middleware in the list is the outermost wrapper.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Recovery recovers from panics in HTTP handlers. It logs the panic with its stack trace and
// answers with an INTERNAL service error body.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					svcErr := serviceerror.Internal(nil).WithUnsafe("panic", rec)

					fields := []zap.Field{
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("error_instance_id", svcErr.InstanceID.String()),
					}
					if traceID := scontext.TraceIDFromRequest(r); traceID != "" {
						fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
					}
					logger.Error("Panic recovered", fields...)

					if err := WriteError(w, svcErr); err != nil {
						logger.Error("Failed to write error response", zap.Error(err))
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes the JSON body of a service error with its status code.
func WriteError(w http.ResponseWriter, svcErr *serviceerror.Error) error {
	body, err := svcErr.Serializable().Marshal()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Del("Content-Length")
	w.WriteHeader(svcErr.StatusCode())
	_, err = w.Write(body)
	return err
}

// Logging logs every request after it completes. The level is determined by the outcome:
// - 500+ status codes are logged at Error level
// - 400-499 status codes are logged at Warn level
// - Requests taking longer than slowThreshold are logged at Warn level
// - All other requests are logged at Debug level
//
// Safe parameters recorded during dispatch are attached as the safe_params field.
func Logging(logger *zap.Logger, slowThreshold time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sc, ctx := scontext.EnsureSWireContext(r.Context())
			r = r.WithContext(ctx)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", duration),
				zap.Int64("bytes", rw.bytesWritten),
			}
			if sc.EndpointSet {
				fields = append(fields, zap.String("endpoint", sc.Endpoint.FullName()))
			}
			if ip, ok := scontext.ClientIP(ctx); ok {
				fields = append(fields, zap.String("client_ip", ip))
			}
			if params := scontext.SafeParams(ctx); len(params) > 0 {
				fields = append(fields, zap.Any("safe_params", params))
			}
			if err, ok := scontext.HandlerError(ctx); ok && err != nil {
				fields = append(fields, zap.Error(err))
			}
			if traceID := scontext.TraceID(ctx); traceID != "" {
				fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
			}

			switch {
			case rw.statusCode >= 500:
				logger.Error("Server error", fields...)
			case rw.statusCode >= 400:
				logger.Warn("Client error", fields...)
			case slowThreshold > 0 && duration > slowThreshold:
				logger.Warn("Slow request", fields...)
			default:
				logger.Debug("Request", fields...)
			}
		})
	}
}

// responseWriter captures the status code and size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

// WriteHeader captures the status code and calls the underlying ResponseWriter.WriteHeader.
func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Write counts the bytes written and calls the underlying ResponseWriter.Write.
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush calls the underlying ResponseWriter.Flush if it implements http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
