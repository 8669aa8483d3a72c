// Package codec provides the wire encodings a runtime can negotiate between.
package codec

import (
	"fmt"
	"strings"

	"github.com/Suhaibinator/SWire/pkg/mediatype"
)

// Encoding defines an interface for marshaling and unmarshaling structured request and
// response bodies. Each encoding is identified by a canonical MIME content type which is
// matched against the Content-Type and Accept headers during negotiation.
// The package includes implementations for JSON, CBOR and Protocol Buffers.
type Encoding interface {
	// ContentType returns the canonical MIME content type of the encoding (e.g. "application/json").
	ContentType() string

	// Marshal serializes a value into the wire format.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes data into the value pointed to by v.
	Unmarshal(data []byte, v any) error
}

// Encoding names accepted by ByName.
const (
	NameJSON     = "json"
	NameCBOR     = "cbor"
	NameProtobuf = "protobuf"
)

// ByName returns the built-in encoding registered under name.
// It is used by the config package to turn encoding lists into a runtime.
func ByName(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameJSON:
		return JSON(), nil
	case NameCBOR:
		return CBOR(), nil
	case NameProtobuf, "proto":
		return Proto(), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

// ValidateContentType checks that the encoding advertises a parseable media type.
func ValidateContentType(enc Encoding) error {
	if _, err := mediatype.Parse(enc.ContentType()); err != nil {
		return fmt.Errorf("encoding content type is not a valid media type: %w", err)
	}
	return nil
}

// renamed overrides the content type of an underlying encoding.
type renamed struct {
	Encoding
	contentType string
}

func (r *renamed) ContentType() string {
	return r.contentType
}

// WithContentType returns an encoding which behaves like enc but advertises contentType.
// This is how the binary encoding can be registered under an alternative name such as
// "application/x-jackson-smile".
func WithContentType(enc Encoding, contentType string) Encoding {
	return &renamed{Encoding: enc, contentType: contentType}
}
