package calendar

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// EventRecord is a read-only projection of a backend event.
type EventRecord struct {
	Summary string
	Start   EventTime
}

// EventTime holds either a timed instant or an all-day date, never both.
type EventTime struct {
	DateTime time.Time
	Date     string
}

func Timed(t time.Time) EventTime { return EventTime{DateTime: t} }

func AllDay(date string) EventTime { return EventTime{Date: date} }

// AllDay reports whether the event has no time component.
func (t EventTime) AllDay() bool {
	return t.DateTime.IsZero()
}

// DateString is the ISO date of the start, in the instant's own offset for
// timed events.
func (t EventTime) DateString() string {
	if t.AllDay() {
		return t.Date
	}
	return t.DateTime.Format(DateLayout)
}

// Clock returns HH:MM for timed events and "" for all-day ones.
func (t EventTime) Clock() string {
	if t.AllDay() {
		return ""
	}
	return t.DateTime.Format(TimeLayout)
}
