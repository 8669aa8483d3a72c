package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Suhaibinator/SWire/pkg/body"
	"github.com/Suhaibinator/SWire/pkg/codec"
	"github.com/Suhaibinator/SWire/pkg/endpoint"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	"github.com/Suhaibinator/SWire/pkg/param"
	"github.com/Suhaibinator/SWire/pkg/serviceerror"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL})
	require.NoError(t, err)
	return c
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = New(Config{BaseURL: "/relative"})
	assert.ErrorIs(t, err, ErrInvalidBaseURL)

	c, err := New(Config{BaseURL: "http://example.com/api/", RateLimit: 100})
	require.NoError(t, err)
	assert.Len(t, c.Runtime().Encodings(), 2)
}

func TestRequestURL(t *testing.T) {
	c := newTestClient(t, "http://example.com/api")

	tests := []struct {
		name     string
		template string
		params   []endpoint.Parameter
		build    func(b *RequestBuilder) *RequestBuilder
		want     string
	}{
		{
			name:     "literal with space",
			template: "/hello world",
			build:    func(b *RequestBuilder) *RequestBuilder { return b },
			want:     "http://example.com/api/hello%20world",
		},
		{
			name:     "path parameter with reserved characters",
			template: "/items/{id}",
			params:   []endpoint.Parameter{{Name: "id", Kind: endpoint.Path}},
			build: func(b *RequestBuilder) *RequestBuilder {
				return Path(b, "id", param.Value(param.String()), "a/b c?")
			},
			want: "http://example.com/api/items/a%2Fb%20c%3F",
		},
		{
			name:     "rest parameter keeps slashes",
			template: "/files/{path:.*}",
			params:   []endpoint.Parameter{{Name: "path", Kind: endpoint.Path}},
			build: func(b *RequestBuilder) *RequestBuilder {
				return Path(b, "path", param.Value(param.String()), "docs/read me.txt")
			},
			want: "http://example.com/api/files/docs/read%20me.txt",
		},
		{
			name:     "query keys are sorted and values component encoded",
			template: "/search",
			params: []endpoint.Parameter{
				{Name: "q", Kind: endpoint.Query},
				{Name: "tag", Kind: endpoint.Query},
				{Name: "limit", Kind: endpoint.Query},
			},
			build: func(b *RequestBuilder) *RequestBuilder {
				Query(b, "tag", param.List(param.String()), []string{"b&c", "a+b"})
				Query(b, "q", param.Value(param.String()), "x y")
				return Query(b, "limit", param.Optional(param.Int()), nil)
			},
			want: "http://example.com/api/search?q=x%20y&tag=b%26c&tag=a%2Bb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := endpoint.MustNew("Svc", "op", http.MethodGet, tt.template, endpoint.WithParameters(tt.params...))
			u, err := tt.build(c.NewRequest(m)).URL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestRequestURLErrors(t *testing.T) {
	c := newTestClient(t, "http://example.com")
	m := endpoint.MustNew("Svc", "op", http.MethodGet, "/numbers/{n:[0-9]+}",
		endpoint.WithParameters(endpoint.Parameter{Name: "n", Kind: endpoint.Path}))

	_, err := c.NewRequest(m).URL()
	assert.ErrorIs(t, err, ErrMissingPathParam)

	_, err = Path(c.NewRequest(m), "n", param.Value(param.String()), "abc").URL()
	assert.Error(t, err)

	_, err = Path(c.NewRequest(m), "n", param.List(param.String()), []string{"1", "2"}).URL()
	assert.ErrorIs(t, err, param.ErrMultiValuedPath)
}

func TestBuildHeaders(t *testing.T) {
	c := newTestClient(t, "http://example.com")
	m := endpoint.MustNew("Svc", "op", http.MethodPost, "/items")

	b := c.NewRequest(m).Body(map[string]int{"a": 1}).Bearer("tok").Cookie("session", "cookie-tok")
	Header(b, "X-Request-Id", param.Value(param.String()), "r1")
	req, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, codec.ContentTypeJSON, req.Header.Get("Content-Type"))
	assert.Equal(t, codec.ContentTypeJSON, req.Header.Get("Accept"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "r1", req.Header.Get("X-Request-Id"))
	cookie, err := req.Cookie("session")
	require.NoError(t, err)
	assert.Equal(t, "cookie-tok", cookie.Value)
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	req, err = c.NewRequest(m).AcceptBinary().Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ContentTypeBinary, req.Header.Get("Accept"))
	assert.Empty(t, req.Header.Get("Content-Type"))

	_, err = c.NewRequest(m).Body(make(chan int)).Build(context.Background())
	assert.Error(t, err)
}

func TestStreamingBodyReplay(t *testing.T) {
	c := newTestClient(t, "http://example.com")
	m := endpoint.MustNew("Svc", "upload", http.MethodPut, "/blob")

	req, err := c.NewRequest(m).StreamingBody(body.Bytes([]byte("payload"))).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ContentTypeBinary, req.Header.Get("Content-Type"))
	assert.Equal(t, int64(-1), req.ContentLength)

	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	require.NoError(t, req.Body.Close())
	assert.Equal(t, "payload", string(data))

	replay, err := req.GetBody()
	require.NoError(t, err)
	data, err = io.ReadAll(replay)
	require.NoError(t, err)
	require.NoError(t, replay.Close())
	assert.Equal(t, "payload", string(data))

	once := body.WriterFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, "once")
		return err
	})
	req, err = c.NewRequest(m).StreamingBody(once).Build(context.Background())
	require.NoError(t, err)
	_, err = io.ReadAll(req.Body)
	require.NoError(t, err)
	require.NoError(t, req.Body.Close())
	_, err = req.GetBody()
	assert.ErrorIs(t, err, ErrNotResettable)
}

func TestStreamingBodyWrittenOnlyWhenRead(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := newTestClient(t, "http://example.com")
	m := endpoint.MustNew("Svc", "upload", http.MethodPut, "/blob")
	var writes int
	w := body.WriterFunc(func(out io.Writer) error {
		writes++
		_, err := io.WriteString(out, "payload")
		return err
	})

	b := c.NewRequest(m).StreamingBody(w)
	discarded, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, discarded)
	assert.Zero(t, writes)

	req, err := b.Build(context.Background())
	require.NoError(t, err)
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	require.NoError(t, req.Body.Close())
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, 1, writes)
}

func respond(status int, contentType, payload string) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(strings.NewReader(payload))}
}

func TestDecode(t *testing.T) {
	rt := wire.Default()

	v, err := Decode[map[string]int](rt, respond(http.StatusOK, codec.ContentTypeJSON, `{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1}, v)

	list, err := DecodeCollection[[]string](rt, respond(http.StatusNoContent, "", ""))
	require.NoError(t, err)
	assert.Nil(t, list)

	opt, err := DecodeOptional[int](rt, respond(http.StatusNoContent, "", ""))
	require.NoError(t, err)
	assert.Nil(t, opt)

	opt, err = DecodeOptional[int](rt, respond(http.StatusOK, codec.ContentTypeJSON, "3"))
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, 3, *opt)

	assert.NoError(t, DecodeEmpty(respond(http.StatusNoContent, "", "")))

	_, err = Decode[int](rt, respond(http.StatusOK, "text/plain", "3"))
	var svcErr *serviceerror.Error
	assert.ErrorAs(t, err, &svcErr)

	_, err = Decode[int](rt, respond(http.StatusOK, codec.ContentTypeJSON, "{"))
	assert.Error(t, err)

	rc, err := DecodeBinary(respond(http.StatusOK, ContentTypeBinary, "raw"))
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "raw", string(data))

	_, err = DecodeBinary(respond(http.StatusOK, codec.ContentTypeJSON, "{}"))
	assert.ErrorIs(t, err, ErrUnexpectedContentType)
}

type directionRecorder struct {
	metrics.Nop
	negotiations []metrics.Direction
}

func (d *directionRecorder) Negotiation(direction metrics.Direction, _ string, _ error) {
	d.negotiations = append(d.negotiations, direction)
}

func TestDecodeRecordsResponseNegotiation(t *testing.T) {
	rec := &directionRecorder{}
	rt := wire.NewBuilder().Metrics(rec).MustBuild()

	_, err := Decode[int](rt, respond(http.StatusOK, codec.ContentTypeJSON, "1"))
	require.NoError(t, err)
	assert.Equal(t, []metrics.Direction{metrics.Response}, rec.negotiations)
}

func TestDecodeRemoteError(t *testing.T) {
	payload := `{"errorCode":"NOT_FOUND","errorName":"Default:NotFound","errorInstanceId":"abc","parameters":{"id":"7"}}`

	_, err := Decode[int](wire.Default(), respond(http.StatusNotFound, "application/json", payload))
	var remote *serviceerror.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusNotFound, remote.StatusCode)
	assert.Equal(t, serviceerror.CodeNotFound, remote.ErrorCode)
	assert.Equal(t, map[string]string{"id": "7"}, remote.Params())

	err = DecodeEmpty(respond(http.StatusBadGateway, "text/html", "<html>"))
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadGateway, remote.StatusCode)
	assert.Equal(t, serviceerror.NameInternal, remote.ErrorName)

	_, err = DecodeBinary(respond(http.StatusUnauthorized, "application/json", `{"errorCode":"UNAUTHORIZED","errorName":"Default:Unauthorized","errorInstanceId":"x"}`))
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, serviceerror.CodeUnauthorized, remote.ErrorCode)
}

func TestSend(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.EscapedPath(), r.URL.RawQuery
		w.Header().Set("Content-Type", codec.ContentTypeJSON)
		_, _ = io.WriteString(w, `"ok"`)
	}))
	defer ts.Close()

	c, err := New(Config{BaseURL: ts.URL, RateLimit: 1000})
	require.NoError(t, err)
	m := endpoint.MustNew("Svc", "op", http.MethodGet, "/items/{id}",
		endpoint.WithParameters(endpoint.Parameter{Name: "id", Kind: endpoint.Path}))

	b := Path(c.NewRequest(m), "id", param.Value(param.UUID()), uuid.UUID{1})
	Query(b, "at", param.Value(param.Bool()), true)
	resp, err := b.Send(context.Background())
	require.NoError(t, err)
	v, err := Decode[string](c.Runtime(), resp)
	require.NoError(t, err)

	assert.Equal(t, "ok", v)
	assert.Equal(t, "/items/01000000-0000-0000-0000-000000000000", gotPath)
	assert.Equal(t, "at=true", gotQuery)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.NewRequest(endpoint.MustNew("Svc", "ping", http.MethodGet, "/ping")).Send(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
