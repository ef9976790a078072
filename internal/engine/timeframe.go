package engine

import (
	"fmt"
	"strings"
	"time"
)

// Epoch anchors the all-time window. Trello did not exist before it.
var Epoch = time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)

// Timeframe is a recency window. Only cards whose last activity is strictly
// younger than the window are scanned.
type Timeframe struct {
	name string
	d    time.Duration
}

var (
	Day     = Timeframe{name: "day", d: 24 * time.Hour}
	Week    = Timeframe{name: "week", d: 7 * 24 * time.Hour}
	Month   = Timeframe{name: "month", d: 30 * 24 * time.Hour}
	AllTime = Timeframe{name: "all"}
)

// ParseTimeframe accepts d, w, m, a or their long forms day, week, month, all.
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "day":
		return Day, nil
	case "w", "week":
		return Week, nil
	case "m", "month":
		return Month, nil
	case "a", "all":
		return AllTime, nil
	}
	return Timeframe{}, fmt.Errorf("unknown timeframe %q (want d, w, m or a)", s)
}

func (t Timeframe) String() string { return t.name }

// Window is the width of the timeframe as seen at now. For AllTime it spans
// back to Epoch.
func (t Timeframe) Window(now time.Time) time.Duration {
	if t.d == 0 {
		return now.Sub(Epoch)
	}
	return t.d
}

// Includes reports whether a card last active at epoch seconds passes the
// recency filter at now.
func (t Timeframe) Includes(now time.Time, lastActivity int64) bool {
	age := now.Unix() - lastActivity
	return age < int64(t.Window(now)/time.Second)
}

// TimeLayout renders timestamps the way the API emits them.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
}

// TimestampError reports a card timestamp that could not be parsed.
type TimestampError struct {
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %v", e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// ConvertTime parses an ISO-8601 timestamp with optional fractional seconds
// and a Z or numeric offset into epoch seconds.
func ConvertTime(ts string) (int64, error) {
	var firstErr error
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, ts)
		if err == nil {
			return t.Unix(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return 0, &TimestampError{Value: ts, Err: firstErr}
}

// FormatTime renders epoch seconds in UTC using TimeLayout.
func FormatTime(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(TimeLayout)
}
