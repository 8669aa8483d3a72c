package client

import (
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/Suhaibinator/SWire/pkg/mediatype"
	"github.com/Suhaibinator/SWire/pkg/metrics"
	"github.com/Suhaibinator/SWire/pkg/serviceerror"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

// ErrUnexpectedContentType is returned when a binary response is not application/octet-stream.
var ErrUnexpectedContentType = errors.New("unexpected response content type")

// checkStatus consumes and closes the body of a non-2xx response, returning it as a
// *serviceerror.RemoteError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return serviceerror.ParseRemote(resp.StatusCode, data)
}

// Decode decodes the body of resp with the encoding matching its Content-Type. The body is
// always closed.
func Decode[T any](rt *wire.Runtime, resp *http.Response) (T, error) {
	var v T
	if err := checkStatus(resp); err != nil {
		return v, err
	}
	defer resp.Body.Close()

	enc, err := rt.ReceivedResponseEncoding(resp.Header)
	if err != nil {
		return v, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return v, errors.Wrap(err, "reading response body")
	}
	err = enc.Unmarshal(data, &v)
	rt.Metrics().Codec(metrics.Response, enc.ContentType(), len(data), err)
	if err != nil {
		return v, errors.Wrapf(err, "decoding %s response", enc.ContentType())
	}
	return v, nil
}

// DecodeCollection is Decode for lists, sets and maps: a 204 No Content response decodes to
// the zero value.
func DecodeCollection[T any](rt *wire.Runtime, resp *http.Response) (T, error) {
	if resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		var zero T
		return zero, nil
	}
	return Decode[T](rt, resp)
}

// DecodeOptional is Decode for optional values: a 204 No Content response decodes to nil.
func DecodeOptional[T any](rt *wire.Runtime, resp *http.Response) (*T, error) {
	if resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		return nil, nil
	}
	v, err := Decode[T](rt, resp)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DecodeEmpty checks the status of a response without body and closes it.
func DecodeEmpty(resp *http.Response) error {
	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// DecodeBinary returns the raw body of a binary response. The caller must close it.
func DecodeBinary(resp *http.Response) (io.ReadCloser, error) {
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return http.NoBody, resp.Body.Close()
	}
	mt, err := mediatype.Parse(resp.Header.Get("Content-Type"))
	if err != nil || mt.Essence() != ContentTypeBinary {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrUnexpectedContentType, "%q", resp.Header.Get("Content-Type"))
	}
	return resp.Body, nil
}
