package param

import (
	"math"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarFormats(t *testing.T) {
	id := uuid.MustParse("4f0ad4c2-3f5b-4e0b-9a3c-2b1f7d6e8a90")
	ts := time.Date(2024, 3, 9, 17, 4, 5, 120000000, time.UTC)

	assert.Equal(t, "true", Bool().Format(true))
	assert.Equal(t, "-42", Int().Format(-42))
	assert.Equal(t, "9007199254740991", SafeLong().Format(MaxSafeLong))
	assert.Equal(t, "1.5", Float64().Format(1.5))
	assert.Equal(t, "NaN", Float64().Format(math.NaN()))
	assert.Equal(t, "Infinity", Float64().Format(math.Inf(1)))
	assert.Equal(t, "-Infinity", Float64().Format(math.Inf(-1)))
	assert.Equal(t, "4f0ad4c2-3f5b-4e0b-9a3c-2b1f7d6e8a90", UUID().Format(id))
	assert.Equal(t, "2024-03-09T17:04:05.12Z", DateTime().Format(ts))
	assert.Equal(t, "aGVsbG8=", Binary().Format([]byte("hello")))
}

func TestScalarParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) error
		input string
	}{
		{"bool", func(s string) error { _, err := Bool().Parse(s); return err }, "yes please"},
		{"int", func(s string) error { _, err := Int().Parse(s); return err }, "1.5"},
		{"int64 overflow", func(s string) error { _, err := Int64().Parse(s); return err }, "9223372036854775808"},
		{"safelong too large", func(s string) error { _, err := SafeLong().Parse(s); return err }, "9007199254740992"},
		{"safelong too small", func(s string) error { _, err := SafeLong().Parse(s); return err }, "-9007199254740992"},
		{"double", func(s string) error { _, err := Float64().Parse(s); return err }, "one"},
		{"double go spelling", func(s string) error { _, err := Float64().Parse(s); return err }, "inf"},
		{"uuid", func(s string) error { _, err := UUID().Parse(s); return err }, "not-a-uuid"},
		{"datetime", func(s string) error { _, err := DateTime().Parse(s); return err }, "2024-03-09"},
		{"binary", func(s string) error { _, err := Binary().Parse(s); return err }, "!!!"},
		{"text", func(s string) error { _, err := Text[netip.Addr]().Parse(s); return err }, "300.1.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.parse(tt.input))
		})
	}
}

func TestSafeLongBounds(t *testing.T) {
	v, err := SafeLong().Parse("-9007199254740991")
	require.NoError(t, err)
	assert.Equal(t, int64(-MaxSafeLong), v)

	_, err = SafeLong().Parse("9007199254740992")
	assert.ErrorIs(t, err, ErrUnsafeLong)
}

func TestFloat64NonFinite(t *testing.T) {
	v, err := Float64().Parse("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = Float64().Parse("-Infinity")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))
}

func TestText(t *testing.T) {
	s := Text[netip.Addr]()
	addr := netip.MustParseAddr("2001:db8::1")

	assert.Equal(t, "2001:db8::1", s.Format(addr))
	parsed, err := s.Parse("2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
}

type userID string

func TestAliasAndFunc(t *testing.T) {
	upper := Func(strings.ToUpper, func(s string) (string, error) { return strings.ToLower(s), nil })
	alias := Alias(upper, func(s string) userID { return userID(s) }, func(u userID) string { return string(u) })

	assert.Equal(t, "ABC", alias.Format(userID("abc")))
	v, err := alias.Parse("ABC")
	require.NoError(t, err)
	assert.Equal(t, userID("abc"), v)

	failing := Alias(Int(), func(i int) userID { return userID(rune(i)) }, func(userID) int { return 0 })
	_, err = failing.Parse("x")
	assert.Error(t, err)
}

func TestParseBearerToken(t *testing.T) {
	valid := []string{"abc", "a.b-c_d~e+f/g", "dG9rZW4=", "dG9r=="}
	for _, s := range valid {
		tok, err := ParseBearerToken(s)
		require.NoError(t, err, s)
		assert.Equal(t, BearerToken(s), tok)
	}

	invalid := []string{"", "=abc", "has space", "a=b", "tok\n", "ünïcode"}
	for _, s := range invalid {
		_, err := ParseBearerToken(s)
		assert.ErrorIs(t, err, ErrInvalidBearerToken, s)
	}

	assert.Equal(t, "abc", Bearer().Format("abc"))
}
