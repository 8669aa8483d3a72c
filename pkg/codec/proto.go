package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// ContentTypeProtobuf is the content type of the Protocol Buffers encoding.
const ContentTypeProtobuf = "application/x-protobuf"

// For testing purposes, we expose these variables so they can be overridden in tests
var protoUnmarshal = proto.Unmarshal
var protoMarshal = proto.Marshal

var protoMessageType = reflect.TypeOf((*proto.Message)(nil)).Elem()

// protoEncoding implements Encoding for Protocol Buffers.
// Both marshaled and unmarshaled values must be proto.Message implementations
// (e.g. *MyRequest); any other value is rejected with an error.
type protoEncoding struct{}

// Proto returns the Protocol Buffers encoding.
func Proto() Encoding {
	return protoEncoding{}
}

// ContentType returns "application/x-protobuf".
func (protoEncoding) ContentType() string {
	return ContentTypeProtobuf
}

// Marshal encodes a proto.Message to its binary wire format.
func (protoEncoding) Marshal(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("protobuf encoding requires a proto.Message, got %T", v)
	}
	return protoMarshal(msg)
}

// Unmarshal decodes binary protobuf data into v, which must be a proto.Message.
// A pointer to a message pointer (e.g. **MyRequest, as produced by generic callers doing
// `var v T; Unmarshal(data, &v)`) is also accepted; a nil message is allocated first.
func (protoEncoding) Unmarshal(data []byte, v any) error {
	if msg, ok := v.(proto.Message); ok {
		return protoUnmarshal(data, msg)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		elem := rv.Elem()
		if elem.Kind() == reflect.Pointer && elem.Type().Implements(protoMessageType) {
			if elem.IsNil() {
				elem.Set(reflect.New(elem.Type().Elem()))
			}
			return protoUnmarshal(data, elem.Interface().(proto.Message))
		}
	}
	return fmt.Errorf("protobuf encoding requires a proto.Message, got %T", v)
}
