// Package localtime derives calendar fields from absolute instants in a
// fixed timezone. The zone is threaded in explicitly so behavior does not
// depend on the host's TZ setting.
package localtime

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInstant is returned when a timestamp string cannot be parsed
// as a valid point in time.
var ErrInvalidInstant = errors.New("invalid instant")

// Weekday names indexed Sunday=0, matching time.Weekday.
var weekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// Fields are the calendar components of an instant as seen in the
// deriver's timezone.
type Fields struct {
	Date    string // YYYY-MM-DD
	Time    string // HH:MM:SS
	Weekday string
}

// Deriver computes local calendar fields for a fixed timezone.
type Deriver struct {
	loc *time.Location
}

// NewDeriver returns a Deriver for the given location. A nil location
// falls back to UTC.
func NewDeriver(loc *time.Location) *Deriver {
	if loc == nil {
		loc = time.UTC
	}
	return &Deriver{loc: loc}
}

// Location returns the deriver's timezone.
func (d *Deriver) Location() *time.Location {
	return d.loc
}

// Derive maps an absolute instant to its local calendar fields. The date
// reflects the local day, which can differ from the UTC day by a day near
// midnight.
func (d *Deriver) Derive(instant time.Time) Fields {
	local := instant.In(d.loc)
	return Fields{
		Date:    local.Format("2006-01-02"),
		Time:    local.Format("15:04:05"),
		Weekday: weekdayNames[int(local.Weekday())],
	}
}

// instantLayouts are accepted on input, tried in order. RFC3339 is the
// canonical wire format; the others cover common client shortcuts.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInstant parses a timestamp string into an absolute instant. Layouts
// without an offset are interpreted in the given location. Returns
// ErrInvalidInstant when no layout matches.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for i, layout := range instantLayouts {
		var t time.Time
		var err error
		if i < 2 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
}

// ParseDate parses a YYYY-MM-DD string, midnight in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
	}
	return t, nil
}
