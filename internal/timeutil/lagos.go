package timeutil

import (
	"time"
)

// Lagos is the West Africa Time location (UTC+1)
var Lagos *time.Location

func init() {
	var err error
	Lagos, err = time.LoadLocation("Africa/Lagos")
	if err != nil {
		// Fallback: create fixed zone if Africa/Lagos not available
		Lagos = time.FixedZone("WAT", 60*60) // UTC+1
	}
}

// Now returns the current time in Lagos time
func Now() time.Time {
	return time.Now().In(Lagos)
}

// ToLagos converts any time to Lagos time
func ToLagos(t time.Time) time.Time {
	return t.In(Lagos)
}

// ParseInLagos parses a time string in Lagos time
func ParseInLagos(layout, value string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, value, Lagos)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// Format formats a time in Lagos time using the given layout
func Format(t time.Time, layout string) string {
	return t.In(Lagos).Format(layout)
}

// StartOfDay returns the start of day (00:00:00) in Lagos time
func StartOfDay(t time.Time) time.Time {
	l := t.In(Lagos)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Lagos)
}

// EndOfDay returns the end of day (23:59:59) in Lagos time
func EndOfDay(t time.Time) time.Time {
	l := t.In(Lagos)
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, 999999999, Lagos)
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
