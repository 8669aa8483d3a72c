// Package mediatype parses Content-Type and Accept header values as described by RFC 9110
// and ranks Accept ranges for content negotiation.
package mediatype

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
)

// Wildcard is the media range component matching any type or subtype.
const Wildcard = "*"

// qualityParam is the name of the weight parameter of an Accept range.
const qualityParam = "q"

// MaxQuality is the quality of a range without a q parameter (1.000).
const MaxQuality uint16 = 1000

// ErrMissingSubtype is returned for values without a "/subtype" part.
var ErrMissingSubtype = errors.New("media type has no subtype")

// ErrWildcardType is returned for ranges such as "*/json" which RFC 9110 does not allow.
var ErrWildcardType = errors.New("wildcard type requires a wildcard subtype")

// MediaType is a parsed media type or media range.
// Type, Subtype and parameter names are lower-cased; parameter values keep their case.
type MediaType struct {
	Type    string
	Subtype string
	Params  map[string]string
}

// Parse parses a single media type such as "text/plain; charset=utf-8".
func Parse(s string) (MediaType, error) {
	full, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, fmt.Errorf("invalid media type %q: %w", s, err)
	}
	typ, subtype, _ := strings.Cut(full, "/")
	if subtype == "" {
		return MediaType{}, fmt.Errorf("invalid media type %q: %w", s, ErrMissingSubtype)
	}
	if typ == Wildcard && subtype != Wildcard {
		return MediaType{}, fmt.Errorf("invalid media type %q: %w", s, ErrWildcardType)
	}
	return MediaType{Type: typ, Subtype: subtype, Params: params}, nil
}

// Essence returns "type/subtype" with all parameters stripped.
func (m MediaType) Essence() string {
	return m.Type + "/" + m.Subtype
}

// String renders the media type with its parameters in sorted order.
func (m MediaType) String() string {
	if len(m.Params) == 0 {
		return m.Essence()
	}
	return mime.FormatMediaType(m.Essence(), m.Params)
}

// Quality returns the q parameter of the media type.
// A missing or malformed q parameter yields MaxQuality: malformed weights are deliberately
// treated as the default rather than rejected.
func (m MediaType) Quality() uint16 {
	raw, ok := m.Params[qualityParam]
	if !ok {
		return MaxQuality
	}
	q, ok := ParseQuality(raw)
	if !ok {
		return MaxQuality
	}
	return q
}

// Specificity returns how specific the media range is.
func (m MediaType) Specificity() Specificity {
	params := len(m.Params)
	if _, ok := m.Params[qualityParam]; ok {
		params--
	}
	return Specificity{
		TypeConcrete:    m.Type != Wildcard,
		SubtypeConcrete: m.Subtype != Wildcard,
		Params:          params,
	}
}

// Matches reports whether the media range covers the given essence.
// "*/*" matches everything, "type/*" matches the same type, anything else requires an exact
// essence match.
func (m MediaType) Matches(essence string) bool {
	if m.Type == Wildcard {
		return true
	}
	typ, subtype, _ := strings.Cut(strings.ToLower(essence), "/")
	if m.Type != typ {
		return false
	}
	return m.Subtype == Wildcard || m.Subtype == subtype
}

// ParseQuality parses an RFC 9110 qvalue: "0" or "1" optionally followed by "." and up to
// three digits. The result is the weight in thousandths, so "0.2" is 200.
func ParseQuality(s string) (uint16, bool) {
	if s == "" || (s[0] != '0' && s[0] != '1') {
		return 0, false
	}
	q := uint16(s[0]-'0') * 1000

	rest := s[1:]
	if rest == "" {
		return q, true
	}
	if rest[0] != '.' || len(rest) > 4 {
		return 0, false
	}

	scale := uint16(100)
	for i := 1; i < len(rest); i++ {
		c := rest[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		q += uint16(c-'0') * scale
		scale /= 10
	}
	if q > MaxQuality {
		return 0, false
	}
	return q, true
}

// Specificity ranks a media range by how few wildcards it contains and how many
// (non-q) parameters it carries: "text/plain;format=flowed" > "text/plain" > "text/*" > "*/*".
type Specificity struct {
	TypeConcrete    bool
	SubtypeConcrete bool
	Params          int
}

// Compare returns -1, 0 or 1 as s is less, equally or more specific than o.
func (s Specificity) Compare(o Specificity) int {
	if c := compareBool(s.TypeConcrete, o.TypeConcrete); c != 0 {
		return c
	}
	if c := compareBool(s.SubtypeConcrete, o.SubtypeConcrete); c != 0 {
		return c
	}
	switch {
	case s.Params < o.Params:
		return -1
	case s.Params > o.Params:
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

// Range is one media range of an Accept header, tagged with its weight and its position in
// the flattened list of ranges across all Accept header lines.
type Range struct {
	MediaType
	Q     uint16
	Index int
}

// ParseAccept flattens every Accept header line into media ranges. Ranges which do not parse
// are skipped; they can never match an encoding.
func ParseAccept(values []string) []Range {
	var ranges []Range
	for _, value := range values {
		for _, element := range splitList(value) {
			mt, err := Parse(element)
			if err != nil {
				continue
			}
			ranges = append(ranges, Range{MediaType: mt, Q: mt.Quality(), Index: len(ranges)})
		}
	}
	return ranges
}

// SortRanges orders ranges by descending specificity, then descending quality, then
// ascending original index.
func SortRanges(ranges []Range) {
	sort.SliceStable(ranges, func(i, j int) bool {
		if c := ranges[i].Specificity().Compare(ranges[j].Specificity()); c != 0 {
			return c > 0
		}
		if ranges[i].Q != ranges[j].Q {
			return ranges[i].Q > ranges[j].Q
		}
		return ranges[i].Index < ranges[j].Index
	})
}

// splitList splits a comma separated header value, ignoring commas inside quoted strings
// and dropping empty elements.
func splitList(value string) []string {
	var (
		parts   []string
		start   int
		quoted  bool
		escaped bool
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			parts = appendTrimmed(parts, value[start:i])
			start = i + 1
		}
	}
	return appendTrimmed(parts, value[start:])
}

func appendTrimmed(parts []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		parts = append(parts, s)
	}
	return parts
}
