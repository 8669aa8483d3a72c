// Package percent implements the nested WHATWG URL percent-encode sets used to build request
// paths and query strings.
package percent

import (
	"fmt"
	"strings"
)

// AsciiSet is a set of ASCII bytes which must be percent-encoded.
// Bytes outside ASCII are always encoded.
type AsciiSet [2]uint64

// Contains reports whether b is in the set.
func (s AsciiSet) Contains(b byte) bool {
	if b >= 0x80 {
		return true
	}
	return s[b/64]&(1<<(b%64)) != 0
}

// Add returns a copy of the set with the given bytes added.
func (s AsciiSet) Add(bytes ...byte) AsciiSet {
	for _, b := range bytes {
		if b < 0x80 {
			s[b/64] |= 1 << (b % 64)
		}
	}
	return s
}

func controls() AsciiSet {
	var s AsciiSet
	for b := byte(0); b < 0x20; b++ {
		s = s.Add(b)
	}
	return s.Add(0x7f)
}

var (
	// Query is the query percent-encode set: C0 controls, space, '"', '#', '<' and '>'.
	Query = controls().Add(' ', '"', '#', '<', '>')
	// Path is the path percent-encode set: Query plus '?', '`', '{' and '}'.
	Path = Query.Add('?', '`', '{', '}')
	// Userinfo is the userinfo percent-encode set: Path plus '/', ':', ';', '=', '@', '[', '\', ']', '^' and '|'.
	Userinfo = Path.Add('/', ':', ';', '=', '@', '[', '\\', ']', '^', '|')
	// Component is the component percent-encode set: Userinfo plus '$', '%', '&', '+' and ','.
	// Path segments and query keys and values are encoded with it.
	Component = Userinfo.Add('$', '%', '&', '+', ',')
)

const upperHex = "0123456789ABCDEF"

// Encode percent-encodes every byte of s contained in set.
func Encode(s string, set AsciiSet) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if set.Contains(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if set.Contains(c) {
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0f])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Decode reverses Encode. Every '%' must be followed by two hex digits.
func Decode(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated percent escape at offset %d in %q", i, s)
		}
		hi, okHi := unhex(s[i+1])
		lo, okLo := unhex(s[i+2])
		if !okHi || !okLo {
			return "", fmt.Errorf("invalid percent escape %q in %q", s[i:i+3], s)
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
