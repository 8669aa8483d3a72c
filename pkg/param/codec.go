package param

import (
	"github.com/pkg/errors"

	"github.com/Suhaibinator/SWire/pkg/serviceerror"
)

// Codec encodes a parameter into zero or more strings and decodes it back from every
// occurrence observed in a request.
type Codec[T any] interface {
	Encode(v T) []string
	Decode(name string, values []string) (T, error)
}

// Value is the shape of a required parameter: exactly one occurrence.
func Value[T any](s Scalar[T]) Codec[T] {
	return valueCodec[T]{s}
}

type valueCodec[T any] struct {
	scalar Scalar[T]
}

func (c valueCodec[T]) Encode(v T) []string {
	return []string{c.scalar.Format(v)}
}

func (c valueCodec[T]) Decode(name string, values []string) (T, error) {
	var zero T
	if len(values) != 1 {
		return zero, cardinalityError(name, len(values), "exactly one")
	}
	return parseOne(c.scalar, name, values[0])
}

// Optional is the shape of an optional parameter: nil encodes to nothing and zero
// occurrences decode to nil.
func Optional[T any](s Scalar[T]) Codec[*T] {
	return optionalCodec[T]{s}
}

type optionalCodec[T any] struct {
	scalar Scalar[T]
}

func (c optionalCodec[T]) Encode(v *T) []string {
	if v == nil {
		return nil
	}
	return []string{c.scalar.Format(*v)}
}

func (c optionalCodec[T]) Decode(name string, values []string) (*T, error) {
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		v, err := parseOne(c.scalar, name, values[0])
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, cardinalityError(name, len(values), "at most one")
	}
}

// List is the shape of a repeated parameter. Elements keep their order and an empty list
// decodes to an empty, non-nil slice.
func List[T any](s Scalar[T]) Codec[[]T] {
	return listCodec[T]{s}
}

type listCodec[T any] struct {
	scalar Scalar[T]
}

func (c listCodec[T]) Encode(v []T) []string {
	out := make([]string, 0, len(v))
	for _, e := range v {
		out = append(out, c.scalar.Format(e))
	}
	return out
}

func (c listCodec[T]) Decode(name string, values []string) ([]T, error) {
	out := make([]T, 0, len(values))
	for _, raw := range values {
		v, err := parseOne(c.scalar, name, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Set is like List but drops repeated elements, keeping the first occurrence.
func Set[T comparable](s Scalar[T]) Codec[[]T] {
	return setCodec[T]{listCodec[T]{s}}
}

type setCodec[T comparable] struct {
	list listCodec[T]
}

func (c setCodec[T]) Encode(v []T) []string {
	return c.list.Encode(dedupe(v))
}

func (c setCodec[T]) Decode(name string, values []string) ([]T, error) {
	v, err := c.list.Decode(name, values)
	if err != nil {
		return nil, err
	}
	return dedupe(v), nil
}

func dedupe[T comparable](v []T) []T {
	seen := make(map[T]struct{}, len(v))
	out := make([]T, 0, len(v))
	for _, e := range v {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func parseOne[T any](s Scalar[T], name, raw string) (T, error) {
	v, err := s.Parse(raw)
	if err != nil {
		var zero T
		return zero, serviceerror.InvalidArgument(name, errors.Wrapf(err, "parameter %q", name)).
			WithUnsafe("value", raw)
	}
	return v, nil
}

func cardinalityError(name string, count int, want string) error {
	return serviceerror.InvalidCardinality(name, count,
		errors.Errorf("parameter %q expects %s value, got %d", name, want, count))
}
