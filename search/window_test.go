package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeWindow_Valid(t *testing.T) {
	cases := []struct {
		in    string
		count int
		unit  string
	}{
		{"12 months", 12, "month"},
		{"1 year", 1, "year"},
		{"30 days", 30, "day"},
		{"1 day", 1, "day"},
		{"6 hours", 6, "hour"},
		{"2 weeks", 2, "week"},
		{"  12 Months  ", 12, "month"},
		{"0 days", 0, "day"},
	}
	for _, tc := range cases {
		w, err := ParseTimeWindow(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.count, w.Count, "input %q", tc.in)
		assert.Equal(t, tc.unit, w.Unit, "input %q", tc.in)
	}
}

func TestParseTimeWindow_Invalid(t *testing.T) {
	cases := []string{
		"",
		"months",
		"12",
		"twelve months",
		"-3 days",
		"3 fortnights",
		"12 months; DROP TABLE documents",
		"1 year OR 1=1",
		"3.5 days",
	}
	for _, in := range cases {
		_, err := ParseTimeWindow(in)
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, ErrInvalidTimeWindow, "input %q", in)
	}
}

func TestTimeWindow_Interval(t *testing.T) {
	w, err := ParseTimeWindow("12 months")
	require.NoError(t, err)
	assert.Equal(t, "12 months", w.Interval())

	w, err = ParseTimeWindow("1 year")
	require.NoError(t, err)
	assert.Equal(t, "1 years", w.Interval())
	assert.Equal(t, "1 year", w.String())
}
