package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Suhaibinator/SWire/pkg/body"
	"github.com/Suhaibinator/SWire/pkg/endpoint"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	"github.com/Suhaibinator/SWire/pkg/param"
	"github.com/Suhaibinator/SWire/pkg/percent"
)

// ContentTypeBinary is the content type of binary request and response bodies.
const ContentTypeBinary = "application/octet-stream"

// RequestBuilder accumulates the parameters and body of one request. The first error
// encountered is kept and returned by Build.
type RequestBuilder struct {
	client *Client
	m      *endpoint.Metadata
	path   map[string]string
	query  url.Values
	header http.Header
	cookie []*http.Cookie

	payload     []byte
	stream      *body.Erased
	contentType string
	binaryReply bool

	err error
}

// Path sets a path parameter.
func Path[T any](b *RequestBuilder, name string, c param.Codec[T], v T) *RequestBuilder {
	if b.err != nil {
		return b
	}
	s, err := param.EncodePath(c, name, v)
	if err != nil {
		b.err = err
		return b
	}
	b.path[name] = s
	return b
}

// Query adds every encoded value of a query parameter.
func Query[T any](b *RequestBuilder, name string, c param.Codec[T], v T) *RequestBuilder {
	param.EncodeQuery(b.query, c, name, v)
	return b
}

// Header adds every encoded value of a header parameter.
func Header[T any](b *RequestBuilder, name string, c param.Codec[T], v T) *RequestBuilder {
	param.EncodeHeader(b.header, c, name, v)
	return b
}

// Body encodes v with the runtime's request encoding.
func (b *RequestBuilder) Body(v any) *RequestBuilder {
	if b.err != nil {
		return b
	}
	rt := b.client.rt
	enc := rt.RequestEncoding()
	data, err := enc.Marshal(v)
	rt.Metrics().Codec(metrics.Request, enc.ContentType(), len(data), err)
	if err != nil {
		b.err = errors.Wrapf(err, "encoding request body as %s", enc.ContentType())
		return b
	}
	b.payload, b.stream, b.contentType = data, nil, enc.ContentType()
	return b
}

// StreamingBody sends w as an application/octet-stream body.
func (b *RequestBuilder) StreamingBody(w body.Writer) *RequestBuilder {
	b.payload, b.stream, b.contentType = nil, body.Erase(w), ContentTypeBinary
	return b
}

// StreamingAsyncBody is StreamingBody for async writers.
func (b *RequestBuilder) StreamingAsyncBody(w body.AsyncWriter) *RequestBuilder {
	b.payload, b.stream, b.contentType = nil, body.EraseAsync(w), ContentTypeBinary
	return b
}

// Bearer sets the Authorization header.
func (b *RequestBuilder) Bearer(token param.BearerToken) *RequestBuilder {
	b.header.Set("Authorization", "Bearer "+string(token))
	return b
}

// Cookie sends token in the named cookie.
func (b *RequestBuilder) Cookie(name string, token param.BearerToken) *RequestBuilder {
	b.cookie = append(b.cookie, &http.Cookie{Name: name, Value: string(token)})
	return b
}

// AcceptBinary asks for an application/octet-stream response.
func (b *RequestBuilder) AcceptBinary() *RequestBuilder {
	b.binaryReply = true
	return b
}

// URL renders the request URL from the endpoint template and the parameters set so far.
func (b *RequestBuilder) URL() (*url.URL, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.m == nil {
		return nil, fmt.Errorf("endpoint metadata is required")
	}

	var path strings.Builder
	path.WriteString(b.client.base.EscapedPath())
	for _, seg := range b.m.Path {
		if !seg.IsParam() {
			path.WriteByte('/')
			path.WriteString(percent.Encode(seg.Literal, percent.Component))
			continue
		}
		v, ok := b.path[seg.Param]
		if !ok {
			return nil, errors.Wrapf(ErrMissingPathParam, "%s of %s", seg.Param, b.m.FullName())
		}
		if seg.Regex != nil && !seg.Regex.MatchString(v) {
			return nil, fmt.Errorf("path parameter %q does not match %s", seg.Param, seg.Regex)
		}
		if seg.Rest {
			for _, part := range strings.Split(v, "/") {
				path.WriteByte('/')
				path.WriteString(percent.Encode(part, percent.Component))
			}
			continue
		}
		path.WriteByte('/')
		path.WriteString(percent.Encode(v, percent.Component))
	}
	if path.Len() == 0 {
		path.WriteByte('/')
	}

	u := *b.client.base
	u.RawPath = path.String()
	decoded, err := percent.Decode(u.RawPath)
	if err != nil {
		return nil, err
	}
	u.Path = decoded
	u.RawQuery = encodeQuery(b.query)
	return &u, nil
}

// encodeQuery renders q with sorted keys, encoding keys and values with the component set.
func encodeQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		key := percent.Encode(k, percent.Component)
		for _, v := range q[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(key)
			sb.WriteByte('=')
			sb.WriteString(percent.Encode(v, percent.Component))
		}
	}
	return sb.String()
}

// Build creates the *http.Request. Streaming bodies are produced on a goroutine once the
// transport starts reading them, so a request that is never sent never runs its writer. The
// transport may replay them only when the writer can be reset.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	u, err := b.URL()
	if err != nil {
		return nil, err
	}

	var req *http.Request
	switch {
	case b.stream != nil:
		stream := b.stream
		req, err = http.NewRequestWithContext(ctx, b.m.Method, u.String(), body.Pipe(ctx, stream))
		if err != nil {
			return nil, err
		}
		req.ContentLength = -1
		req.GetBody = func() (io.ReadCloser, error) {
			if !stream.Reset() {
				return nil, ErrNotResettable
			}
			return body.Pipe(ctx, stream), nil
		}
	case b.payload != nil:
		req, err = http.NewRequestWithContext(ctx, b.m.Method, u.String(), bytes.NewReader(b.payload))
	default:
		req, err = http.NewRequestWithContext(ctx, b.m.Method, u.String(), nil)
	}
	if err != nil {
		return nil, err
	}

	for k, values := range b.header {
		req.Header[k] = append([]string(nil), values...)
	}
	if b.contentType != "" {
		req.Header.Set("Content-Type", b.contentType)
	}
	if b.binaryReply {
		req.Header.Set("Accept", ContentTypeBinary)
	} else {
		req.Header.Set("Accept", b.client.rt.RequestEncoding().ContentType())
	}
	for _, c := range b.cookie {
		req.AddCookie(c)
	}
	return req, nil
}

// Send builds the request and sends it.
func (b *RequestBuilder) Send(ctx context.Context) (*http.Response, error) {
	req, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	return b.client.Do(ctx, req)
}
