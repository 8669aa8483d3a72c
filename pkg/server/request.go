package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/Suhaibinator/SWire/pkg/endpoint"
	"github.com/Suhaibinator/SWire/pkg/mediatype"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	"github.com/Suhaibinator/SWire/pkg/param"
	"github.com/Suhaibinator/SWire/pkg/scontext"
	"github.com/Suhaibinator/SWire/pkg/serviceerror"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

// PathParam decodes a path parameter from the values the router attached to the request.
func PathParam[T any](r *http.Request, name string, c param.Codec[T]) (T, error) {
	params, _ := scontext.PathParams(r.Context())
	v, err := param.DecodePath(c, name, params)
	if err == nil {
		recordSafe(r, name, v)
	}
	return v, err
}

// QueryParam decodes a query parameter from every occurrence in the request URL.
func QueryParam[T any](r *http.Request, name string, c param.Codec[T]) (T, error) {
	v, err := param.DecodeQuery(c, name, r.URL.Query())
	if err == nil {
		recordSafe(r, name, v)
	}
	return v, err
}

// HeaderParam decodes a header parameter from every value of the header.
func HeaderParam[T any](r *http.Request, name string, c param.Codec[T]) (T, error) {
	v, err := param.DecodeHeader(c, name, r.Header)
	if err == nil {
		recordSafe(r, name, v)
	}
	return v, err
}

// recordSafe surfaces values of parameters declared Safe into the safe params collection.
func recordSafe(r *http.Request, name string, v any) {
	m, ok := scontext.Endpoint(r.Context())
	if !ok {
		return
	}
	if p, ok := m.Parameter(name); ok && p.Safe {
		scontext.AddSafeParam(r.Context(), name, v)
	}
}

// DecodeBody decodes the request body with the encoding matching its Content-Type.
// Bodies that cannot be parsed by an otherwise acceptable encoding are reported as an
// internal serialization failure.
func DecodeBody[T any](rt *wire.Runtime, r *http.Request) (T, error) {
	var v T
	enc, err := rt.RequestBodyEncoding(r.Header)
	if err != nil {
		return v, err
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return v, serviceerror.InternalSerializationFailure(enc.ContentType(), errors.Wrap(err, "reading request body"))
	}
	err = enc.Unmarshal(data, &v)
	rt.Metrics().Codec(metrics.Request, enc.ContentType(), len(data), err)
	if err != nil {
		return v, serviceerror.InternalSerializationFailure(enc.ContentType(), err)
	}
	return v, nil
}

// DecodeOptionalBody is DecodeBody for optional bodies: a request without payload decodes to
// nil and needs no Content-Type.
func DecodeOptionalBody[T any](rt *wire.Runtime, r *http.Request) (*T, error) {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, serviceerror.InternalSerializationFailure("", errors.Wrap(err, "reading request body"))
	}
	if len(data) == 0 {
		return nil, nil
	}

	enc, err := rt.RequestBodyEncoding(r.Header)
	if err != nil {
		return nil, err
	}
	var v T
	err = enc.Unmarshal(data, &v)
	rt.Metrics().Codec(metrics.Request, enc.ContentType(), len(data), err)
	if err != nil {
		return nil, serviceerror.InternalSerializationFailure(enc.ContentType(), err)
	}
	return &v, nil
}

// BinaryBody returns the raw request body of an endpoint taking binary input. The request
// must be sent as application/octet-stream.
func BinaryBody(r *http.Request) (io.ReadCloser, error) {
	raw := r.Header.Get("Content-Type")
	if raw == "" {
		return nil, serviceerror.MissingContentType()
	}
	mt, err := mediatype.Parse(raw)
	if err != nil {
		return nil, serviceerror.UnparsableContentType(raw, err)
	}
	if mt.Essence() != ContentTypeBinary {
		return nil, serviceerror.UnsupportedContentType(mt.Essence())
	}
	return r.Body, nil
}

// AuthHeader extracts the bearer token of the Authorization header.
func AuthHeader(r *http.Request) (param.BearerToken, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", serviceerror.Unauthorized(errors.New("missing Authorization header"))
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", serviceerror.Unauthorized(errors.New("authorization header is not a bearer token"))
	}
	parsed, err := param.ParseBearerToken(strings.TrimSpace(token))
	if err != nil {
		return "", serviceerror.Unauthorized(err)
	}
	return parsed, nil
}

// CookieAuth extracts a bearer token from the named cookie.
func CookieAuth(r *http.Request, name string) (param.BearerToken, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", serviceerror.Unauthorized(errors.Wrapf(err, "cookie %q", name))
	}
	parsed, err := param.ParseBearerToken(cookie.Value)
	if err != nil {
		return "", serviceerror.Unauthorized(err)
	}
	return parsed, nil
}

// Params lists the safe params recorded for r so far.
func Params(r *http.Request) map[string]any {
	return scontext.SafeParams(r.Context())
}

// CurrentEndpoint returns the metadata of the endpoint serving r.
func CurrentEndpoint(r *http.Request) (*endpoint.Metadata, bool) {
	return scontext.Endpoint(r.Context())
}
