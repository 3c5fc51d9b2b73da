package utils

import (
    "fmt"
    "strings"
    "time"
)

// EventDateLayout is the layout of events.date: local wall time followed
// by a numeric UTC offset, e.g. "2012-09-18T09:30:00+0200".
const EventDateLayout = "2006-01-02T15:04:05-0700"

// SortKeyLayout is the layout of events.starts_utc.  It sorts
// lexicographically in chronological order on every SQL dialect.
const SortKeyLayout = "2006-01-02 15:04:05"

// ParseEventDate parses a stored event date.  The returned time keeps the
// offset of the input; the location is a fixed zone named "GMT+hhmm"
// after that offset.
func ParseEventDate(s string) (time.Time, *time.Location, error) {
    s = strings.TrimSpace(s)
    t, err := time.Parse(EventDateLayout, s)
    if err != nil {
        return time.Time{}, nil, fmt.Errorf("parse event date %q: %w", s, err)
    }
    _, offset := t.Zone()
    loc := time.FixedZone("GMT"+s[len(s)-5:], offset)
    return t.In(loc), loc, nil
}

// EventEnd returns start plus length minutes.
func EventEnd(start time.Time, lengthMin int) time.Time {
    return start.Add(time.Duration(lengthMin) * time.Minute)
}

// SortKey renders t in UTC with SortKeyLayout.
func SortKey(t time.Time) string {
    return t.UTC().Format(SortKeyLayout)
}
