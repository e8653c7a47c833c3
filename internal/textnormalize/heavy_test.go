package textnormalize

import "testing"

func TestHeavy(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Hypertable Basics", "hypertable basics"},
		{"  Continuous   Aggregates!  ", "continuous aggregates"},
		{"pg_stat-statements (v2.1)", "pg stat statements v2 1"},
		{"Café au lait", "cafe au lait"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Heavy(tc.in); got != tc.want {
			t.Errorf("Heavy(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
