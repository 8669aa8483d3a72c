package param

import (
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/Suhaibinator/SWire/pkg/serviceerror"
)

// ErrMultiValuedPath is returned when a path parameter encodes to anything but one string.
var ErrMultiValuedPath = errors.New("path parameters must encode to exactly one value")

// EncodePath encodes a path parameter. The result is not percent-encoded yet.
func EncodePath[T any](c Codec[T], name string, v T) (string, error) {
	values := c.Encode(v)
	if len(values) != 1 {
		return "", errors.Wrapf(ErrMultiValuedPath, "parameter %q encoded to %d values", name, len(values))
	}
	return values[0], nil
}

// DecodePath decodes a path parameter from the map supplied by the router. The map holds
// values which have already been percent-decoded.
func DecodePath[T any](c Codec[T], name string, params map[string]string) (T, error) {
	raw, ok := params[name]
	if !ok {
		var zero T
		return zero, serviceerror.InvalidCardinality(name, 0,
			errors.Errorf("path parameter %q is missing", name))
	}
	return c.Decode(name, []string{raw})
}

// EncodeQuery appends every encoded value of a query parameter to q.
func EncodeQuery[T any](q url.Values, c Codec[T], name string, v T) {
	for _, s := range c.Encode(v) {
		q.Add(name, s)
	}
}

// DecodeQuery decodes a query parameter from all of its occurrences.
func DecodeQuery[T any](c Codec[T], name string, q url.Values) (T, error) {
	return c.Decode(name, q[name])
}

// EncodeHeader appends every encoded value of a header parameter to h. Existing values of
// the same header are kept.
func EncodeHeader[T any](h http.Header, c Codec[T], name string, v T) {
	for _, s := range c.Encode(v) {
		h.Add(name, s)
	}
}

// DecodeHeader decodes a header parameter from all of its values. Header names are case
// insensitive.
func DecodeHeader[T any](c Codec[T], name string, h http.Header) (T, error) {
	return c.Decode(name, h.Values(name))
}
