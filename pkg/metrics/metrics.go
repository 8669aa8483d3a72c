// Package metrics defines the interface SWire components use to report what they do.
// The framework only calls the methods of Recorder; users plug in an implementation
// (see the prometheus subpackage) or leave the no-op default in place.
package metrics

import (
	"time"
)

// Direction tells whether a negotiation or codec operation concerned a request or a response body.
type Direction string

const (
	// Request is a request body (Content-Type resolution, decoding).
	Request Direction = "request"

	// Response is a response body (Accept resolution, encoding).
	Response Direction = "response"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Outcome returns the label for an operation which returned err.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Recorder receives observations from the runtime, the server and the client.
type Recorder interface {
	// Negotiation is called once per resolved body encoding. contentType is the chosen
	// encoding's content type, or empty when err is non-nil.
	Negotiation(direction Direction, contentType string, err error)

	// Codec is called after a body was marshaled (Response) or unmarshaled (Request).
	Codec(direction Direction, contentType string, size int, err error)

	// Endpoint is called when an endpoint invocation finishes.
	Endpoint(service, endpoint string, statusCode int, duration time.Duration)
}

// Nop is a Recorder which discards everything.
type Nop struct{}

// Negotiation implements Recorder.
func (Nop) Negotiation(Direction, string, error) {}

// Codec implements Recorder.
func (Nop) Codec(Direction, string, int, error) {}

// Endpoint implements Recorder.
func (Nop) Endpoint(string, string, int, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
