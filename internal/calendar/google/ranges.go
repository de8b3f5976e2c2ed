package google

import (
	"fmt"
	"time"

	"github.com/user/chatcal/internal/calendar"
)

// dayBounds returns [start of day, start of next day) for t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// weekBounds returns [Monday 00:00, next Monday 00:00) of the week holding t.
func weekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	day, _ := dayBounds(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 7)
}

func parseDate(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(calendar.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

// parseDateTime combines an ISO date and an HH:MM clock in loc.
func parseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(calendar.DateLayout+" "+calendar.TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q %q: %w", date, clock, err)
	}
	return t, nil
}
