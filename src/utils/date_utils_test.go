package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15T10:30", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-01-15T10:30:45", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)},
		{"2024-01-15T10:30:45Z", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)},
		// The space separator form common in exported CSVs.
		{"2024-01-15 10:30", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"  2024-01-15  ", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseFlexibleDate(tc.in)
		require.True(t, ok, "input %q", tc.in)
		assert.True(t, tc.want.Equal(got), "input %q: got %v", tc.in, got)
	}
}

func TestParseFlexibleDateRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-date", "15/01/2024", "2024-13-45"} {
		_, ok := ParseFlexibleDate(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1489.75, RoundFloat(1489.7500000001, 8))
	assert.Equal(t, 3.14, RoundFloat(3.14159, 2))
	assert.Equal(t, -2.5, RoundFloat(-2.4999999999, 2))
}

func TestGenerateETagIsStable(t *testing.T) {
	payload := map[string]int{"a": 1}

	first, err := GenerateETag(payload)
	require.NoError(t, err)
	second, err := GenerateETag(payload)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := GenerateETag(map[string]int{"a": 2})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
