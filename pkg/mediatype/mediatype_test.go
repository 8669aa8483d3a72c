package mediatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		essence string
		params  map[string]string
		wantErr bool
	}{
		{name: "plain", input: "application/json", essence: "application/json"},
		{name: "case folded", input: "Application/JSON", essence: "application/json"},
		{name: "with params", input: "text/plain; charset=UTF-8", essence: "text/plain", params: map[string]string{"charset": "UTF-8"}},
		{name: "quoted param", input: `text/plain; format="a,b"`, essence: "text/plain", params: map[string]string{"format": "a,b"}},
		{name: "full wildcard", input: "*/*", essence: "*/*"},
		{name: "subtype wildcard", input: "text/*", essence: "text/*"},
		{name: "type wildcard only", input: "*/json", wantErr: true},
		{name: "missing subtype", input: "application", wantErr: true},
		{name: "garbage", input: "not a media type", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.essence, mt.Essence())
			for k, v := range tt.params {
				assert.Equal(t, v, mt.Params[k])
			}
		})
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		input string
		want  uint16
		ok    bool
	}{
		{"0", 0, true},
		{"1", 1000, true},
		{"0.2", 200, true},
		{"0.25", 250, true},
		{"0.125", 125, true},
		{"1.0", 1000, true},
		{"1.000", 1000, true},
		{"0.", 0, true},
		{"1.5", 0, false},
		{"0.1234", 0, false},
		{"2", 0, false},
		{".5", 0, false},
		{"0,5", 0, false},
		{"0.a", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseQuality(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestQualityDefaultsWhenMalformed(t *testing.T) {
	for _, input := range []string{"text/plain", "text/plain;q=abc", "text/plain;q=7"} {
		mt, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, MaxQuality, mt.Quality(), input)
	}

	mt, err := Parse("text/plain;Q=0.3")
	require.NoError(t, err)
	assert.Equal(t, uint16(300), mt.Quality())
}

func TestSpecificityOrdering(t *testing.T) {
	parse := func(s string) Specificity {
		mt, err := Parse(s)
		require.NoError(t, err)
		return mt.Specificity()
	}

	ordered := []string{"text/plain;format=flowed", "text/plain", "text/*", "*/*"}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Equal(t, 1, parse(ordered[i]).Compare(parse(ordered[i+1])), "%s > %s", ordered[i], ordered[i+1])
		assert.Equal(t, -1, parse(ordered[i+1]).Compare(parse(ordered[i])))
	}

	// q does not count towards specificity
	assert.Equal(t, 0, parse("text/plain;q=0.5").Compare(parse("text/plain")))
}

func TestMatches(t *testing.T) {
	tests := []struct {
		rng     string
		essence string
		want    bool
	}{
		{"*/*", "application/json", true},
		{"application/*", "application/json", true},
		{"application/*", "text/plain", false},
		{"application/json", "application/json", true},
		{"application/json;charset=utf-8", "application/json", true},
		{"application/json", "application/cbor", false},
		{"APPLICATION/JSON", "application/JSON", true},
	}

	for _, tt := range tests {
		mt, err := Parse(tt.rng)
		require.NoError(t, err)
		assert.Equal(t, tt.want, mt.Matches(tt.essence), "%s vs %s", tt.rng, tt.essence)
	}
}

func TestParseAccept(t *testing.T) {
	ranges := ParseAccept([]string{
		`text/html, application/json;q=0.5`,
		`, bogus, text/plain;format="a,b", */*;q=0.1`,
	})

	require.Len(t, ranges, 4)
	assert.Equal(t, "text/html", ranges[0].Essence())
	assert.Equal(t, MaxQuality, ranges[0].Q)
	assert.Equal(t, "application/json", ranges[1].Essence())
	assert.Equal(t, uint16(500), ranges[1].Q)
	assert.Equal(t, "text/plain", ranges[2].Essence())
	assert.Equal(t, "a,b", ranges[2].Params["format"])
	assert.Equal(t, "*/*", ranges[3].Essence())

	for i, r := range ranges {
		assert.Equal(t, i, r.Index)
	}

	assert.Empty(t, ParseAccept(nil))
}

func TestSortRanges(t *testing.T) {
	ranges := ParseAccept([]string{"*/*, text/*, text/plain;q=0.5, text/plain;format=flowed, text/plain"})
	SortRanges(ranges)

	var got []string
	for _, r := range ranges {
		got = append(got, r.String())
	}
	assert.Equal(t, []string{
		"text/plain; format=flowed",
		"text/plain",
		"text/plain; q=0.5",
		"text/*",
		"*/*",
	}, got)
}
