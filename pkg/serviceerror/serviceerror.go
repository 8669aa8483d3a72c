// Package serviceerror defines the errors surfaced at the boundary of an endpoint invocation
// and their JSON wire form.
package serviceerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/google/uuid"
)

// Code classifies a service error and determines its HTTP status.
type Code string

// Error codes.
const (
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodePermissionDenied     Code = "PERMISSION_DENIED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeNotAcceptable        Code = "NOT_ACCEPTABLE"
	CodeUnsupportedMediaType Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeInternal             Code = "INTERNAL"
)

// StatusCode returns the HTTP status a code is reported with.
func (c Code) StatusCode() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotAcceptable:
		return http.StatusNotAcceptable
	case CodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the code describes a caller mistake (4xx).
func (c Code) IsClientError() bool {
	s := c.StatusCode()
	return s >= 400 && s < 500
}

// Error names.
const (
	NameMissingContentType     = "Encoding:MissingContentType"
	NameUnparsableContentType  = "Encoding:UnparsableContentType"
	NameUnsupportedContentType = "Encoding:UnsupportedContentType"
	NameNotAcceptable          = "Encoding:NotAcceptable"
	NameSerializationFailure   = "Encoding:InternalSerializationFailure"
	NameInvalidArgument        = "Default:InvalidArgument"
	NameUnauthorized           = "Default:Unauthorized"
	NameNotFound               = "Default:NotFound"
	NameInternal               = "Default:Internal"
)

// Error is a service error. It carries a code, a stable name, a unique instance id which is
// echoed to the caller and logged on the server, and two sets of parameters: safe parameters
// are sent to the caller and may be logged freely, unsafe parameters are never sent to the
// caller.
type Error struct {
	Code       Code
	Name       string
	InstanceID uuid.UUID
	Safe       map[string]any
	Unsafe     map[string]any
	cause      error
}

// New creates a service error with a fresh instance id.
func New(code Code, name string, cause error) *Error {
	return &Error{
		Code:       code,
		Name:       name,
		InstanceID: uuid.New(),
		Safe:       map[string]any{},
		Unsafe:     map[string]any{},
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%s) [%s]", e.Name, e.Code, e.InstanceID)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error with the same name, so sentinel values built with the
// constructors below can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Name == e.Name
}

// StatusCode returns the HTTP status of the error.
func (e *Error) StatusCode() int {
	return e.Code.StatusCode()
}

// WithSafe adds a parameter which may be returned to the caller and logged.
func (e *Error) WithSafe(key string, value any) *Error {
	e.Safe[key] = value
	return e
}

// WithUnsafe adds a parameter which is only logged at the server.
func (e *Error) WithUnsafe(key string, value any) *Error {
	e.Unsafe[key] = value
	return e
}

// Serializable returns the wire form of the error. Only safe parameters are included.
func (e *Error) Serializable() SerializableError {
	params := make(map[string]string, len(e.Safe))
	for k, v := range e.Safe {
		params[k] = fmt.Sprint(v)
	}
	return SerializableError{
		ErrorCode:       e.Code,
		ErrorName:       e.Name,
		ErrorInstanceID: e.InstanceID.String(),
		Parameters:      params,
	}
}

// SerializableError is the JSON body of an error response.
type SerializableError struct {
	ErrorCode       Code              `json:"errorCode"`
	ErrorName       string            `json:"errorName"`
	ErrorInstanceID string            `json:"errorInstanceId"`
	Parameters      map[string]string `json:"parameters"`
}

// Marshal renders the error body.
func (s SerializableError) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// From converts any error into a service error. Service errors anywhere in the chain are
// returned as is; everything else becomes an INTERNAL error wrapping err.
func From(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return Internal(err)
}

// RemoteError is a service error received from a server.
type RemoteError struct {
	StatusCode int
	SerializableError
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s (%s) [%s]", e.StatusCode, e.ErrorName, e.ErrorCode, e.ErrorInstanceID)
}

// Params returns a copy of the safe parameters sent by the server.
func (e *RemoteError) Params() map[string]string {
	return maps.Clone(e.Parameters)
}

// ParseRemote decodes an error response body. Bodies which are not a SerializableError yield
// an INTERNAL remote error holding only the status code.
func ParseRemote(statusCode int, body []byte) *RemoteError {
	remote := &RemoteError{StatusCode: statusCode}
	if err := json.Unmarshal(body, &remote.SerializableError); err != nil || remote.ErrorName == "" {
		remote.SerializableError = SerializableError{ErrorCode: CodeInternal, ErrorName: NameInternal}
	}
	return remote
}
