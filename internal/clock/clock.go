// Package clock provides the current time and the date formats shown on
// tickets and receipts.
package clock

import (
	"fmt"
	"strings"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns the current UTC time truncated to whole seconds.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Func adapts a plain function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

const (
	isoLayout     = "2006-01-02T15:04:05.000Z"
	displayLayout = "2/1/2006, 3:04:05 PM"
)

// naive layouts carry no zone and are read in the display location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ISO renders t the way the front-end stores timestamps.
func ISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Display renders t for humans in loc, e.g. "14/2/2025, 3:30:00 PM".
func Display(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(displayLayout)
}

// Parse reads a timestamp supplied by a client. Zoned values are honoured,
// values without a zone are taken to be in loc. The result is UTC.
func Parse(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// DayBounds returns the start of the calendar day containing t in loc and the
// start of the following day, both in UTC.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// LoadLocation resolves name, falling back to IST when the zone database is
// unavailable on the host.
func LoadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+30*60)
}
