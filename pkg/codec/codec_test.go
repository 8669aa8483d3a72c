package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Name  string            `json:"name" cbor:"name"`
	Count int               `json:"count" cbor:"count"`
	Tags  []string          `json:"tags" cbor:"tags"`
	Attrs map[string]string `json:"attrs" cbor:"attrs"`
}

func TestStructuredEncodingsRoundTrip(t *testing.T) {
	in := testPayload{
		Name:  "widget",
		Count: 3,
		Tags:  []string{"a", "b"},
		Attrs: map[string]string{"k": "v"},
	}

	for _, enc := range []Encoding{JSON(), CBOR()} {
		t.Run(enc.ContentType(), func(t *testing.T) {
			data, err := enc.Marshal(in)
			require.NoError(t, err)

			var out testPayload
			require.NoError(t, enc.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestEncodingsRejectMalformedInput(t *testing.T) {
	var out testPayload
	assert.Error(t, JSON().Unmarshal([]byte("{not json"), &out))
	assert.Error(t, CBOR().Unmarshal([]byte{0xff, 0x00}, &out))
}

func TestByName(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantErr     bool
	}{
		{name: "json", contentType: ContentTypeJSON},
		{name: " CBOR ", contentType: ContentTypeCBOR},
		{name: "protobuf", contentType: ContentTypeProtobuf},
		{name: "proto", contentType: ContentTypeProtobuf},
		{name: "smile", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := ByName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, enc.ContentType())
		})
	}
}

func TestWithContentType(t *testing.T) {
	smile := WithContentType(CBOR(), "application/x-jackson-smile")
	assert.Equal(t, "application/x-jackson-smile", smile.ContentType())
	require.NoError(t, ValidateContentType(smile))

	data, err := smile.Marshal(map[string]int{"a": 1})
	require.NoError(t, err)
	var out map[string]int
	require.NoError(t, smile.Unmarshal(data, &out))
	assert.Equal(t, map[string]int{"a": 1}, out)
}

func TestValidateContentType(t *testing.T) {
	assert.NoError(t, ValidateContentType(JSON()))
	assert.Error(t, ValidateContentType(WithContentType(JSON(), "not a media type")))
}
