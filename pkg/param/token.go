package param

import (
	"github.com/pkg/errors"
)

// BearerToken is an opaque OAuth 2.0 bearer token.
type BearerToken string

// ErrInvalidBearerToken is returned for tokens that are not valid RFC 6750 token68 strings.
var ErrInvalidBearerToken = errors.New("invalid bearer token")

// ParseBearerToken validates s against the token68 grammar of RFC 6750: one or more
// characters from ALPHA DIGIT "-" "." "_" "~" "+" "/", followed by any number of "=".
func ParseBearerToken(s string) (BearerToken, error) {
	if s == "" {
		return "", errors.Wrap(ErrInvalidBearerToken, "token is empty")
	}
	i := 0
	for i < len(s) && isToken68(s[i]) {
		i++
	}
	if i == 0 {
		return "", errors.Wrap(ErrInvalidBearerToken, "token must start with a token68 character")
	}
	for i < len(s) && s[i] == '=' {
		i++
	}
	if i != len(s) {
		return "", errors.Wrapf(ErrInvalidBearerToken, "illegal character at offset %d", i)
	}
	return BearerToken(s), nil
}

func isToken68(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', '+', '/':
		return true
	}
	return false
}

// Bearer is the Scalar for bearer tokens.
func Bearer() Scalar[BearerToken] {
	return Func(func(v BearerToken) string { return string(v) }, ParseBearerToken)
}
