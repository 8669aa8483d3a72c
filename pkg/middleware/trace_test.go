package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suhaibinator/SWire/pkg/scontext"
)

// NewTestGenerator returns a small generator which is stopped when the test ends.
func NewTestGenerator(t *testing.T) *IDGenerator {
	t.Helper()
	g := NewIDGenerator(8)
	t.Cleanup(g.Stop)
	return g
}

func TestIDGenerator(t *testing.T) {
	g := NewTestGenerator(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.GetIDNonBlocking()
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate trace id %s", id)
		seen[id] = true
	}

	_, err := uuid.Parse(g.GetID())
	assert.NoError(t, err)
}

func TestIDGeneratorStopIsIdempotent(t *testing.T) {
	g := NewIDGenerator(0)
	assert.Equal(t, DefaultTraceBufferSize, g.size)
	g.Stop()
	g.Stop()

	// Exhausting the buffer after Stop still yields IDs.
	for i := 0; i < DefaultTraceBufferSize+1; i++ {
		assert.NotEmpty(t, g.GetIDNonBlocking())
	}
}

func TestTrace(t *testing.T) {
	var seen string
	handler := Trace(NewTestGenerator(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = scontext.TraceIDFromRequest(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(TraceHeader))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TraceHeader, "caller-supplied")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", seen)
	assert.Equal(t, "caller-supplied", rec.Header().Get(TraceHeader))
}
