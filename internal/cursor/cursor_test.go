package cursor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchor_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 45, 123456000, time.UTC)

	tests := []struct {
		name string
		id   string
	}{
		{"uuid id", "3f1c2a9e-0d4b-4c55-9d0e-8a7b6c5d4e3f"},
		{"id containing separator", "a|b"},
		{"id with several separators", "a|b|c"},
		{"id with leading separator", "|a"},
		{"id with trailing separator", "a|"},
		{"single char", "z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeAnchor(ts, tt.id)
			decoded, ok := DecodeAnchor(encoded)
			require.True(t, ok)
			assert.True(t, ts.Equal(decoded.CreatedAt))
			assert.Equal(t, tt.id, decoded.ID)
		})
	}
}

func TestAnchor_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2024, 5, 1, 15, 0, 0, 0, loc)

	encoded := Anchor{CreatedAt: ts, ID: "p1"}.Encode()
	assert.Equal(t, "2024-05-01T12:00:00Z|p1", encoded)
}

func TestDecodeAnchor_SplitsOnFirstSeparator(t *testing.T) {
	decoded, ok := DecodeAnchor("2024-05-01T12:00:00Z|x|y")

	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), decoded.CreatedAt)
	assert.Equal(t, "x|y", decoded.ID)
}

func TestDecodeAnchor_Lenient(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"garbage",
		"|",
		"2024-05-01T12:00:00Z|",
		"|some-id",
		"not-a-time|some-id",
		"2024-13-45T99:00:00Z|some-id",
		"12345",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, ok := DecodeAnchor(in)
			assert.False(t, ok)
		})
	}
}

func TestAnchor_Before(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	anchor := Anchor{CreatedAt: t0, ID: "m"}

	assert.True(t, anchor.Before(t0.Add(-time.Second), "z"), "older item follows the anchor")
	assert.False(t, anchor.Before(t0.Add(time.Second), "a"), "newer item precedes the anchor")
	assert.True(t, anchor.Before(t0, "a"), "equal time, smaller id follows")
	assert.False(t, anchor.Before(t0, "z"), "equal time, larger id precedes")
	assert.False(t, anchor.Before(t0, "m"), "the anchor itself is excluded")
}

func TestDecodeOffset(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"15", 15},
		{" 20 ", 20},
		{"-5", 0},
		{"abc", 0},
		{"1.5", 0},
		{"2024-05-01T12:00:00Z|id", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeOffset(tt.in))
		})
	}

	assert.Equal(t, 30, DecodeOffset(EncodeOffset(30)))
}
