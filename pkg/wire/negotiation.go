package wire

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Suhaibinator/SWire/pkg/codec"
	"github.com/Suhaibinator/SWire/pkg/mediatype"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	"github.com/Suhaibinator/SWire/pkg/serviceerror"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
)

// RequestBodyEncoding selects the encoding for a request body from its Content-Type header.
// The first registered encoding with the same essence wins; parameters are ignored.
func (r *Runtime) RequestBodyEncoding(h http.Header) (codec.Encoding, error) {
	enc, err := r.requestBodyEncoding(h)
	r.observe(metrics.Request, enc, err, zap.String("content_type", h.Get(headerContentType)))
	return enc, err
}

// ReceivedResponseEncoding selects the encoding for a response body a client received, from
// its Content-Type header. Resolution is the same as RequestBodyEncoding; the observation is
// recorded in the response direction.
func (r *Runtime) ReceivedResponseEncoding(h http.Header) (codec.Encoding, error) {
	enc, err := r.requestBodyEncoding(h)
	r.observe(metrics.Response, enc, err, zap.String("content_type", h.Get(headerContentType)))
	return enc, err
}

func (r *Runtime) requestBodyEncoding(h http.Header) (codec.Encoding, error) {
	values := h.Values(headerContentType)
	if len(values) == 0 {
		return nil, serviceerror.MissingContentType()
	}
	mt, err := mediatype.Parse(values[0])
	if err != nil {
		return nil, serviceerror.UnparsableContentType(values[0], err)
	}

	essence := mt.Essence()
	for _, enc := range r.encodings {
		if essenceOf(enc) == essence {
			return enc, nil
		}
	}
	return nil, serviceerror.UnsupportedContentType(essence)
}

// ResponseBodyEncoding selects the encoding for a response body from the Accept headers,
// following RFC 9110 section 12.5.1. Without an Accept header every encoding is acceptable and
// the first registered one is chosen.
func (r *Runtime) ResponseBodyEncoding(h http.Header) (codec.Encoding, error) {
	enc, err := r.responseBodyEncoding(h)
	r.observe(metrics.Response, enc, err, zap.Strings("accept", h.Values(headerAccept)))
	return enc, err
}

func (r *Runtime) responseBodyEncoding(h http.Header) (codec.Encoding, error) {
	accept := h.Values(headerAccept)

	var ranges []mediatype.Range
	if len(accept) == 0 {
		ranges = []mediatype.Range{{
			MediaType: mediatype.MediaType{Type: mediatype.Wildcard, Subtype: mediatype.Wildcard},
			Q:         mediatype.MaxQuality,
		}}
	} else {
		ranges = mediatype.ParseAccept(accept)
	}
	mediatype.SortRanges(ranges)

	var (
		best      codec.Encoding
		bestRange mediatype.Range
	)
	// Encodings are scanned last to first and a candidate replaces the current best when it
	// is at least as good, so equal ranges resolve to the earliest registration.
	for i := len(r.encodings) - 1; i >= 0; i-- {
		enc := r.encodings[i]
		matched, ok := firstMatch(ranges, essenceOf(enc))
		if !ok || matched.Q == 0 {
			continue
		}
		if best == nil || preferable(matched, bestRange) {
			best, bestRange = enc, matched
		}
	}

	if best == nil {
		return nil, serviceerror.NotAcceptable(accept)
	}
	return best, nil
}

// firstMatch returns the highest ranked range covering essence.
func firstMatch(sorted []mediatype.Range, essence string) (mediatype.Range, bool) {
	for _, rng := range sorted {
		if rng.Matches(essence) {
			return rng, true
		}
	}
	return mediatype.Range{}, false
}

// preferable reports whether candidate should replace current: higher quality first, then
// the earlier position in the Accept header. Equal pairs prefer the candidate.
func preferable(candidate, current mediatype.Range) bool {
	if candidate.Q != current.Q {
		return candidate.Q > current.Q
	}
	return candidate.Index <= current.Index
}

func essenceOf(enc codec.Encoding) string {
	mt, err := mediatype.Parse(enc.ContentType())
	if err != nil {
		// Content types are validated by Build.
		return enc.ContentType()
	}
	return mt.Essence()
}

func (r *Runtime) observe(direction metrics.Direction, enc codec.Encoding, err error, field zap.Field) {
	contentType := ""
	if enc != nil {
		contentType = enc.ContentType()
	}
	r.recorder.Negotiation(direction, contentType, err)
	r.logger.Debug("Resolved body encoding",
		zap.String("direction", string(direction)),
		field,
		zap.String("encoding", contentType),
		zap.Error(err),
	)
}
