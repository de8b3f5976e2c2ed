// Package temporal derives the "today" context handed to the intent parser.
package temporal

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// WeekdayNames are indexed Monday-first.
var WeekdayNames = [7]string{"월요일", "화요일", "수요일", "목요일", "금요일", "토요일", "일요일"}

var shortWeekdayNames = [7]string{"월", "화", "수", "목", "금", "토", "일"}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	FixedNow time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.FixedNow
}

// Today is the date context rendered into the parser prompt.
type Today struct {
	Date    string
	Weekday string
}

// Build renders now in its own location as an ISO date plus weekday name.
func Build(now time.Time) Today {
	return Today{
		Date:    now.Format(dateLayout),
		Weekday: WeekdayNames[weekdayIndex(now)],
	}
}

func (t Today) String() string {
	return fmt.Sprintf("%s (%s)", t.Date, t.Weekday)
}

// ShortWeekday returns the single-syllable weekday name for t.
func ShortWeekday(t time.Time) string {
	return shortWeekdayNames[weekdayIndex(t)]
}

func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
