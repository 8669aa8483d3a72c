package codec

import (
	"encoding/json"
)

// ContentTypeJSON is the content type of the JSON encoding.
const ContentTypeJSON = "application/json"

// jsonEncoding is an Encoding that uses encoding/json.
type jsonEncoding struct{}

var defaultJSON = &jsonEncoding{}

// JSON returns the JSON encoding.
func JSON() Encoding {
	return defaultJSON
}

// ContentType returns "application/json".
func (jsonEncoding) ContentType() string {
	return ContentTypeJSON
}

// Marshal encodes v as JSON.
func (jsonEncoding) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
// We need to unmarshal into a pointer for JSON, callers pass &value.
func (jsonEncoding) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
