package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatMillis(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "-"},
		{0.25, "250µs"},
		{12.44, "12.4ms"},
		{1520, "1.52s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMillis(tt.ms))
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "4s", FormatAge(now.Add(-4*time.Second), now))
	assert.Equal(t, "2m 5s", FormatAge(now.Add(-125*time.Second), now))
	assert.Equal(t, "1h 0m 3s", FormatAge(now.Add(-time.Hour-3*time.Second), now))
	assert.Equal(t, "0s", FormatAge(now.Add(time.Minute), now))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))
	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)
	assert.Equal(t, "Fri Jan 2 15:04:05 2026", FormatTime(ts))
}
