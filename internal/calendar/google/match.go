package google

import (
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/user/chatcal/internal/calendar"
)

// normalize folds case and drops whitespace so "팀회의" matches "팀 회의".
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// titleMatches is a loose containment test in either direction.
func titleMatches(summary, title string) bool {
	s, t := normalize(summary), normalize(title)
	if s == "" || t == "" {
		return false
	}
	return strings.Contains(s, t) || strings.Contains(t, s)
}

// pick chooses the event a delete or edit refers to among one day's events.
// originalTime, when set, must equal the event's start clock. Among several
// candidates an exact title wins, then the earliest.
func pick(items []*gcal.Event, title, originalTime string, loc *time.Location) *gcal.Event {
	var candidates []*gcal.Event
	for _, item := range items {
		if !titleMatches(item.Summary, title) {
			continue
		}
		if originalTime != "" && startOf(item, loc).Clock() != originalTime {
			continue
		}
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		return nil
	}
	want := normalize(title)
	for _, c := range candidates {
		if normalize(c.Summary) == want {
			return c
		}
	}
	return candidates[0]
}

// startOf projects the start of a Google event into an EventTime.
func startOf(item *gcal.Event, loc *time.Location) calendar.EventTime {
	if item.Start == nil {
		return calendar.AllDay("")
	}
	if item.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			return calendar.Timed(t.In(loc))
		}
	}
	return calendar.AllDay(item.Start.Date)
}

func toRecords(items []*gcal.Event, loc *time.Location) []calendar.EventRecord {
	out := make([]calendar.EventRecord, 0, len(items))
	for _, item := range items {
		out = append(out, calendar.EventRecord{
			Summary: item.Summary,
			Start:   startOf(item, loc),
		})
	}
	return out
}
