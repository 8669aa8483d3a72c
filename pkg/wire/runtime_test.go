package wire

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suhaibinator/SWire/pkg/codec"
	"github.com/Suhaibinator/SWire/pkg/metrics"
)

type countingRecorder struct {
	metrics.Nop
	mu       sync.Mutex
	outcomes map[metrics.Direction][]string
}

func (c *countingRecorder) Negotiation(direction metrics.Direction, contentType string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[metrics.Direction][]string{}
	}
	c.outcomes[direction] = append(c.outcomes[direction], contentType+"/"+metrics.Outcome(err))
}

func TestBuildDefaults(t *testing.T) {
	rt, err := NewBuilder().Build()
	require.NoError(t, err)

	encodings := rt.Encodings()
	require.Len(t, encodings, 2)
	assert.Equal(t, codec.ContentTypeJSON, encodings[0].ContentType())
	assert.Equal(t, codec.ContentTypeCBOR, encodings[1].ContentType())
	assert.Equal(t, codec.ContentTypeJSON, rt.RequestEncoding().ContentType())
	assert.NotNil(t, rt.Logger())
	assert.IsType(t, metrics.Nop{}, rt.Metrics())
}

func TestBuildKeepsRegistrationOrderAndDuplicates(t *testing.T) {
	rt := NewBuilder().
		Encoding(codec.CBOR()).
		Encoding(codec.JSON()).
		Encoding(codec.CBOR()).
		MustBuild()

	var got []string
	for _, enc := range rt.Encodings() {
		got = append(got, enc.ContentType())
	}
	assert.Equal(t, []string{codec.ContentTypeCBOR, codec.ContentTypeJSON, codec.ContentTypeCBOR}, got)
}

func TestBuildRejectsInvalidEncodings(t *testing.T) {
	_, err := NewBuilder().Encoding(codec.WithContentType(codec.JSON(), "not a media type")).Build()
	assert.Error(t, err)

	_, err = NewBuilder().Encoding(nil).Build()
	assert.Error(t, err)

	assert.Panics(t, func() { NewBuilder().Encoding(nil).MustBuild() })
}

func TestRuntimeIsImmutable(t *testing.T) {
	b := NewBuilder().Encoding(codec.JSON())
	rt := b.MustBuild()

	b.Encoding(codec.CBOR())
	assert.Len(t, rt.Encodings(), 1)

	encodings := rt.Encodings()
	encodings[0] = codec.CBOR()
	assert.Equal(t, codec.ContentTypeJSON, rt.Encodings()[0].ContentType())
}

func TestRuntimeConcurrentNegotiation(t *testing.T) {
	rec := &countingRecorder{}
	rt := NewBuilder().Metrics(rec).MustBuild()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := http.Header{"Accept": []string{"application/cbor"}}
			enc, err := rt.ResponseBodyEncoding(h)
			assert.NoError(t, err)
			assert.Equal(t, codec.ContentTypeCBOR, enc.ContentType())
		}()
	}
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.outcomes[metrics.Response], 16)
}

func TestNegotiationRecordsMetrics(t *testing.T) {
	rec := &countingRecorder{}
	rt := NewBuilder().Metrics(rec).MustBuild()

	_, _ = rt.RequestBodyEncoding(http.Header{"Content-Type": []string{"application/json"}})
	_, _ = rt.RequestBodyEncoding(http.Header{})
	_, _ = rt.ResponseBodyEncoding(http.Header{"Accept": []string{"text/html"}})

	assert.Equal(t, []string{"application/json/success", "/failure"}, rec.outcomes[metrics.Request])
	assert.Equal(t, []string{"/failure"}, rec.outcomes[metrics.Response])
}

func TestReceivedResponseEncodingRecordsResponseDirection(t *testing.T) {
	rec := &countingRecorder{}
	rt := NewBuilder().Metrics(rec).MustBuild()

	enc, err := rt.ReceivedResponseEncoding(http.Header{"Content-Type": []string{"application/cbor"}})
	require.NoError(t, err)
	assert.Equal(t, codec.ContentTypeCBOR, enc.ContentType())
	_, err = rt.ReceivedResponseEncoding(http.Header{"Content-Type": []string{"text/plain"}})
	assert.Error(t, err)

	assert.Empty(t, rec.outcomes[metrics.Request])
	assert.Equal(t, []string{"application/cbor/success", "/failure"}, rec.outcomes[metrics.Response])
}

// Nop's remaining methods are promoted; make sure the embedded value satisfies Recorder.
var _ metrics.Recorder = (*countingRecorder)(nil)
