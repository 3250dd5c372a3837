package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// InputDateLayout is the form date inputs post (YYYY-MM-DD).
	InputDateLayout = "2006-01-02"
	// DisplayDateLayout is the stored form, e.g. "04 September 2025".
	DisplayDateLayout = "02 January 2006"
	// TimestampLayout matches ISO-8601 with milliseconds in UTC.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var acceptedLayouts = []string{
	InputDateLayout,
	time.RFC3339,
	DisplayDateLayout,
	"2 January 2006",
}

// ParseDate accepts the input, RFC3339 and display forms and returns the
// calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, Validation("date is required")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, Validation(fmt.Sprintf("invalid date %q", s))
}

// DisplayDate formats d the way rows store it.
func DisplayDate(d time.Time) string {
	return d.Format(DisplayDateLayout)
}

// Weekday returns the English weekday name of d.
func Weekday(d time.Time) string {
	return d.Weekday().String()
}

// DateMatch selects how stored date strings are compared to a target day.
type DateMatch string

const (
	// DateMatchCalendar parses the stored value and compares calendar dates.
	DateMatchCalendar DateMatch = "calendar"
	// DateMatchDisplay compares the stored string with the display form.
	DateMatchDisplay DateMatch = "display"
)

func (m DateMatch) IsValid() bool {
	return m == DateMatchCalendar || m == DateMatchDisplay
}

// SameDay reports whether the stored date value denotes target.
func (m DateMatch) SameDay(stored string, target time.Time) bool {
	if m == DateMatchDisplay {
		return stored == DisplayDate(target)
	}
	d, err := ParseDate(stored)
	if err != nil {
		return false
	}
	return d.Equal(time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC))
}
