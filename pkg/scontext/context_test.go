package scontext

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suhaibinator/SWire/pkg/endpoint"
)

func TestEnsureSWireContextReusesValue(t *testing.T) {
	sc, ctx := EnsureSWireContext(context.Background())
	again, ctx2 := EnsureSWireContext(ctx)

	assert.Same(t, sc, again)
	assert.Equal(t, ctx, ctx2)
}

func TestTraceIDIsNotOverwritten(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))

	ctx := WithTraceID(context.Background(), "first")
	ctx = WithTraceID(ctx, "second")
	assert.Equal(t, "first", TraceID(ctx))

	req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	assert.Equal(t, "first", TraceIDFromRequest(req))
}

func TestPathParams(t *testing.T) {
	_, ok := PathParams(context.Background())
	assert.False(t, ok)

	ctx := WithPathParams(context.Background(), map[string]string{"id": "a b"})
	params, ok := PathParams(ctx)
	require.True(t, ok)
	assert.Equal(t, "a b", params["id"])
}

func TestClientIP(t *testing.T) {
	_, ok := ClientIP(context.Background())
	assert.False(t, ok)

	ctx := WithClientIP(context.Background(), "203.0.113.1")
	ip, ok := ClientIP(ctx)
	require.True(t, ok)
	assert.Equal(t, "203.0.113.1", ip)
}

func TestEndpoint(t *testing.T) {
	_, ok := Endpoint(context.Background())
	assert.False(t, ok)

	m := endpoint.MustNew("svc", "ping", "GET", "/ping")
	got, ok := Endpoint(WithEndpoint(context.Background(), m))
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestSafeParams(t *testing.T) {
	// Without a SWire context there is nowhere to record values.
	AddSafeParam(context.Background(), "dropped", 1)
	assert.Empty(t, SafeParams(context.Background()))

	_, ctx := EnsureSWireContext(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			AddSafeParam(ctx, string(rune('a'+i)), i)
		}(i)
	}
	wg.Wait()

	params := SafeParams(ctx)
	assert.Len(t, params, 10)
	assert.Equal(t, 3, params["d"])

	// The returned map is a copy.
	params["z"] = true
	assert.NotContains(t, SafeParams(ctx), "z")
}

func TestHandlerError(t *testing.T) {
	_, ok := HandlerError(context.Background())
	assert.False(t, ok)

	boom := errors.New("boom")
	err, ok := HandlerError(WithHandlerError(context.Background(), boom))
	require.True(t, ok)
	assert.Same(t, boom, err)
}
