package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// ContentTypeCBOR is the content type of the binary CBOR encoding.
const ContentTypeCBOR = "application/cbor"

// cborEncoding is the default binary alternative to JSON. Like Smile it is a schemaless
// binary rendering of the JSON data model, so any value that round-trips through JSON also
// round-trips through it.
type cborEncoding struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var defaultCBOR = newCBOR()

func newCBOR() *cborEncoding {
	// Sorted map keys keep the output deterministic for equal values.
	enc, err := cbor.EncOptions{Sort: cbor.SortCanonical, Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return &cborEncoding{enc: enc, dec: dec}
}

// CBOR returns the CBOR encoding.
func CBOR() Encoding {
	return defaultCBOR
}

// ContentType returns "application/cbor".
func (c *cborEncoding) ContentType() string {
	return ContentTypeCBOR
}

// Marshal encodes v as CBOR.
func (c *cborEncoding) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func (c *cborEncoding) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
