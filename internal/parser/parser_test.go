package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhenExplicit(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

	got, err := ParseWhen("2024-06-01 18:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 18, 0, 0, 0, time.Local), got)

	got, err = ParseWhen("2024-06-01T18:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 18, 0, 0, 0, time.Local), got)
}

func TestParseWhenBareClock(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

	// Later today.
	got, err := ParseWhen("18:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 18, 0, 0, 0, time.Local), got)

	// Already passed today, rolls to tomorrow.
	got, err = ParseWhen("08:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 0, time.Local), got)
}

func TestParseWhenNaturalLanguage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

	got, err := ParseWhen("tomorrow at 6pm", now)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Day())
	assert.Equal(t, 18, got.Hour())
}

func TestParseWhenRejectsGarbage(t *testing.T) {
	now := time.Now()

	_, err := ParseWhen("", now)
	assert.Error(t, err)

	_, err = ParseWhen("not a time at all zzz", now)
	assert.Error(t, err)
}

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"45m", 45},
		{"45", 45},
		{"1h", 60},
		{"1h30m", 90},
		{"1.5h", 90},
		{"90 minutes", 90},
		{"2 hours", 120},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDurationMinutes(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationMinutesInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "0m", "-5m"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDurationMinutes(input)
			assert.Error(t, err)
		})
	}
}

func TestParseOffsetMinutes(t *testing.T) {
	got, err := ParseOffsetMinutes("30m")
	require.NoError(t, err)
	assert.Equal(t, 30, got)

	_, err = ParseOffsetMinutes("25h")
	assert.Error(t, err)
}
