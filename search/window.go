package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TimeWindow is a validated recency window: documents qualify when
// published_date falls within [now - window, now]. Construction goes through
// ParseTimeWindow so that nothing but an integer count and an allow-listed
// unit can ever reach the storage layer. The rendered interval is always sent
// as a bound query parameter, never spliced into SQL text.
type TimeWindow struct {
	Count int
	Unit  string // hour, day, week, month, year
}

var timeWindowRe = regexp.MustCompile(`^(\d+)\s+(hour|day|week|month|year)s?$`)

// ParseTimeWindow parses strings like "12 months", "1 year" or "30 days".
// The grammar is a strict allow-list: a non-negative integer, whitespace, and
// a unit from {hour, day, week, month, year} with an optional plural s.
func ParseTimeWindow(s string) (TimeWindow, error) {
	m := timeWindowRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return TimeWindow{}, fmt.Errorf("%w: %q (want e.g. %q, %q or %q)",
			ErrInvalidTimeWindow, s, "12 months", "1 year", "30 days")
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Digits that overflow int are still a malformed window.
		return TimeWindow{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimeWindow, s, err)
	}
	return TimeWindow{Count: n, Unit: m[2]}, nil
}

// Interval renders the window as a Postgres interval value, e.g. "12 months".
func (w TimeWindow) Interval() string {
	return fmt.Sprintf("%d %ss", w.Count, w.Unit)
}

func (w TimeWindow) String() string {
	if w.Count == 1 {
		return fmt.Sprintf("1 %s", w.Unit)
	}
	return w.Interval()
}
