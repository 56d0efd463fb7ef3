package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"negative", -100, "-100"},
		{"float", 1.5, "1.5"},
		{"integral float", 2.0, "2"},
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"no html escaping", "<a&b>", `"<a&b>"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	got, err := MarshalCanonical(json.RawMessage(`{"zebra":1,"alpha":{"b":1,"a":2},"beta":3}`))
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"beta":3,"zebra":1}`, string(got))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts before
	// U+E000 in UTF-16 but after it in UTF-8.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	got, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got))
}

func TestDocumentDigest(t *testing.T) {
	a, err := ParseDocument([]byte(`{"name":"x","connectors":[{"id":"J1","label":"a"}]}`))
	require.NoError(t, err)
	b, err := ParseDocument([]byte(`{"connectors":[{"label":"a","id":"J1"}],"name":"x"}`))
	require.NoError(t, err)

	da, err := DocumentDigest(a)
	require.NoError(t, err)
	db, err := DocumentDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	b.Connectors[0].Label = "b"
	dc, err := DocumentDigest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)

	empty, err := DocumentDigest(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
