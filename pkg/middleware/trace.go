package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Suhaibinator/SWire/pkg/scontext"
)

// DefaultTraceBufferSize is the number of trace IDs an IDGenerator keeps ready by default.
const DefaultTraceBufferSize = 1024

// TraceHeader is the response header carrying the trace ID of a request.
const TraceHeader = "X-Trace-Id"

// IDGenerator provides efficient generation of trace IDs by precomputing them
type IDGenerator struct {
	idChan   chan string
	size     int
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewIDGenerator creates a new IDGenerator with the specified buffer size and starts filling it
// in the background. Call Stop to release the background goroutine.
func NewIDGenerator(bufferSize int) *IDGenerator {
	if bufferSize <= 0 {
		bufferSize = DefaultTraceBufferSize
	}
	g := &IDGenerator{
		idChan: make(chan string, bufferSize),
		size:   bufferSize,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go g.fill()
	return g
}

// fill keeps the channel topped up until Stop is called
func (g *IDGenerator) fill() {
	defer close(g.done)
	for {
		select {
		case <-g.stop:
			return
		case g.idChan <- uuid.New().String():
		default:
			// Channel is full, back off briefly before checking again.
			select {
			case <-g.stop:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}
}

// GetID returns a precomputed UUID from the channel, blocking until one is available.
func (g *IDGenerator) GetID() string {
	return <-g.idChan
}

// GetIDNonBlocking returns a precomputed UUID, or generates one on the spot when the buffer
// is empty. Requests are never delayed by the generator.
func (g *IDGenerator) GetIDNonBlocking() string {
	select {
	case id := <-g.idChan:
		return id
	default:
		return uuid.New().String()
	}
}

// Stop terminates the background goroutine. It is safe to call more than once.
func (g *IDGenerator) Stop() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
	<-g.done
}

// Trace assigns a trace ID to every request, stores it in the SWire context and echoes it in
// the X-Trace-Id response header. An incoming X-Trace-Id header is reused.
func Trace(generator *IDGenerator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if traceID == "" {
				traceID = generator.GetIDNonBlocking()
			}
			ctx := scontext.WithTraceID(r.Context(), traceID)
			w.Header().Set(TraceHeader, scontext.TraceID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
