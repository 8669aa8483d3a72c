// Package param converts typed values to and from the string form they take in path
// segments, query strings and headers.
//
// A Scalar knows how to format and parse a single value. A Codec lifts a Scalar to one of the
// supported shapes (a required value, an optional value, a list or a set) and decides how many
// occurrences of the parameter are legal. The Encode*/Decode* functions bind a Codec to the
// place the parameter lives in the request.
package param

import (
	"encoding"
	"encoding/base64"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Scalar formats and parses single values of type T.
type Scalar[T any] interface {
	Format(v T) string
	Parse(s string) (T, error)
}

type funcScalar[T any] struct {
	format func(T) string
	parse  func(string) (T, error)
}

func (f funcScalar[T]) Format(v T) string {
	return f.format(v)
}

func (f funcScalar[T]) Parse(s string) (T, error) {
	return f.parse(s)
}

// Func builds a Scalar from a pair of functions. It is the hook for domain types with their
// own string representation.
func Func[T any](format func(T) string, parse func(string) (T, error)) Scalar[T] {
	return funcScalar[T]{format: format, parse: parse}
}

// Alias maps a Scalar of the underlying type B onto the alias type A.
func Alias[A, B any](s Scalar[B], wrap func(B) A, unwrap func(A) B) Scalar[A] {
	return Func(
		func(v A) string { return s.Format(unwrap(v)) },
		func(raw string) (A, error) {
			b, err := s.Parse(raw)
			if err != nil {
				var zero A
				return zero, err
			}
			return wrap(b), nil
		},
	)
}

// String is the identity Scalar.
func String() Scalar[string] {
	return Func(
		func(v string) string { return v },
		func(s string) (string, error) { return s, nil },
	)
}

// Bool formats booleans as "true" and "false".
func Bool() Scalar[bool] {
	return Func(strconv.FormatBool, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		return v, errors.Wrapf(err, "invalid boolean %q", s)
	})
}

// Int formats int values in base 10.
func Int() Scalar[int] {
	return Func(strconv.Itoa, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		return v, errors.Wrapf(err, "invalid integer %q", s)
	})
}

// Int64 formats int64 values in base 10.
func Int64() Scalar[int64] {
	return Func(
		func(v int64) string { return strconv.FormatInt(v, 10) },
		func(s string) (int64, error) {
			v, err := strconv.ParseInt(s, 10, 64)
			return v, errors.Wrapf(err, "invalid integer %q", s)
		},
	)
}

// MaxSafeLong is the largest integer a double can represent exactly (2^53 - 1).
const MaxSafeLong = 1<<53 - 1

// ErrUnsafeLong is returned for integers outside [-MaxSafeLong, MaxSafeLong].
var ErrUnsafeLong = errors.New("integer is outside the safe long range")

// SafeLong is Int64 restricted to integers exactly representable as a double.
func SafeLong() Scalar[int64] {
	base := Int64()
	return Func(base.Format, func(s string) (int64, error) {
		v, err := base.Parse(s)
		if err != nil {
			return 0, err
		}
		if v > MaxSafeLong || v < -MaxSafeLong {
			return 0, errors.Wrapf(ErrUnsafeLong, "%d", v)
		}
		return v, nil
	})
}

// Float64 formats doubles with the shortest exact representation. Non-finite values use
// "NaN", "Infinity" and "-Infinity".
func Float64() Scalar[float64] {
	return Func(formatFloat, parseFloat)
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid double %q", s)
	}
	// strconv accepts "inf" and "nan" spellings which are not part of the wire format.
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.Errorf("invalid double %q", s)
	}
	return v, nil
}

// UUID formats UUIDs in their canonical hyphenated form.
func UUID() Scalar[uuid.UUID] {
	return Func(uuid.UUID.String, func(s string) (uuid.UUID, error) {
		v, err := uuid.Parse(s)
		return v, errors.Wrapf(err, "invalid uuid %q", s)
	})
}

// DateTime formats timestamps as RFC 3339 with nanosecond precision when needed.
func DateTime() Scalar[time.Time] {
	return Func(
		func(v time.Time) string { return v.Format(time.RFC3339Nano) },
		func(s string) (time.Time, error) {
			v, err := time.Parse(time.RFC3339Nano, s)
			return v, errors.Wrapf(err, "invalid datetime %q", s)
		},
	)
}

// Binary formats bytes as standard padded base64.
func Binary() Scalar[[]byte] {
	return Func(base64.StdEncoding.EncodeToString, func(s string) ([]byte, error) {
		v, err := base64.StdEncoding.DecodeString(s)
		return v, errors.Wrap(err, "invalid base64")
	})
}

// Text adapts a type implementing encoding.TextMarshaler and, through its pointer,
// encoding.TextUnmarshaler.
func Text[T encoding.TextMarshaler, PT interface {
	*T
	encoding.TextUnmarshaler
}]() Scalar[T] {
	return Func(
		func(v T) string {
			b, err := v.MarshalText()
			if err != nil {
				return ""
			}
			return string(b)
		},
		func(s string) (T, error) {
			var v T
			if err := PT(&v).UnmarshalText([]byte(s)); err != nil {
				return v, errors.Wrapf(err, "invalid value %q", s)
			}
			return v, nil
		},
	)
}
