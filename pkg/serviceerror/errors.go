package serviceerror

import (
	"errors"
)

// MissingContentType is returned when a request with a body carries no Content-Type header.
func MissingContentType() *Error {
	return New(CodeUnsupportedMediaType, NameMissingContentType, errors.New("request is missing a Content-Type header"))
}

// UnparsableContentType is returned when the Content-Type header is not a valid media type.
func UnparsableContentType(contentType string, cause error) *Error {
	return New(CodeUnsupportedMediaType, NameUnparsableContentType, cause).
		WithUnsafe("contentType", contentType)
}

// UnsupportedContentType is returned when no registered encoding handles the Content-Type.
func UnsupportedContentType(contentType string) *Error {
	return New(CodeUnsupportedMediaType, NameUnsupportedContentType, nil).
		WithSafe("contentType", contentType)
}

// NotAcceptable is returned when no registered encoding satisfies the Accept header.
func NotAcceptable(accept []string) *Error {
	return New(CodeNotAcceptable, NameNotAcceptable, nil).
		WithUnsafe("accept", accept)
}

// InternalSerializationFailure is returned when an encoding fails to serialize or deserialize
// a body whose content type was acceptable.
func InternalSerializationFailure(contentType string, cause error) *Error {
	return New(CodeInternal, NameSerializationFailure, cause).
		WithSafe("contentType", contentType)
}

// InvalidArgument is returned when a parameter cannot be decoded.
func InvalidArgument(param string, cause error) *Error {
	return New(CodeInvalidArgument, NameInvalidArgument, cause).
		WithSafe("parameter", param)
}

// InvalidCardinality is returned when a parameter occurs the wrong number of times.
func InvalidCardinality(param string, count int, cause error) *Error {
	return InvalidArgument(param, cause).WithSafe("count", count)
}

// Unauthorized is returned when a request carries no usable credentials.
func Unauthorized(cause error) *Error {
	return New(CodeUnauthorized, NameUnauthorized, cause)
}

// NotFound is returned when a request does not address an endpoint.
func NotFound(cause error) *Error {
	return New(CodeNotFound, NameNotFound, cause)
}

// Internal wraps an unexpected error.
func Internal(cause error) *Error {
	return New(CodeInternal, NameInternal, cause)
}
