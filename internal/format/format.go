// Package format renders calendar events and edit changes as chat replies.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/chatcal/internal/calendar"
	"github.com/user/chatcal/internal/temporal"
)

const (
	EmptyDay    = "📭 오늘은 예정된 일정이 없습니다."
	EmptyWeek   = "📭 이번 주는 예정된 일정이 없습니다."
	EmptySearch = "🔍 검색 결과가 없습니다."

	untitled = "(제목 없음)"
	allDay   = "종일"
)

// Day numbers events from 1 in the order given.
func Day(events []calendar.EventRecord) string {
	if len(events) == 0 {
		return EmptyDay
	}

	lines := []string{"📅 오늘의 일정:\n"}
	for i, ev := range events {
		lines = append(lines, fmt.Sprintf("%d. 🕐 %s - %s", i+1, clockOrAllDay(ev.Start), summary(ev)))
	}
	return strings.Join(lines, "\n")
}

// Week groups consecutive events by start date. Events must already be
// sorted by start; Week does not reorder them.
func Week(events []calendar.EventRecord) string {
	if len(events) == 0 {
		return EmptyWeek
	}

	lines := []string{"📅 이번 주 일정:\n"}
	current := ""
	for i, ev := range events {
		date := ev.Start.DateString()
		if i == 0 || date != current {
			current = date
			lines = append(lines, "\n"+dateHeader(date))
		}
		lines = append(lines, fmt.Sprintf("  🕐 %s - %s", clockOrAllDay(ev.Start), summary(ev)))
	}
	return strings.Join(lines, "\n")
}

// Search lists every result with its date; keyword is echoed when set.
func Search(events []calendar.EventRecord, keyword string) string {
	if len(events) == 0 {
		if keyword != "" {
			return fmt.Sprintf("%s (\"%s\")", EmptySearch, keyword)
		}
		return EmptySearch
	}

	header := "🔍 검색 결과"
	if keyword != "" {
		header += fmt.Sprintf(" \"%s\"", keyword)
	}
	header += fmt.Sprintf(" (%d건):\n", len(events))

	lines := []string{header}
	for i, ev := range events {
		date := ev.Start.DateString()
		if ev.Start.AllDay() {
			lines = append(lines, fmt.Sprintf("%d. 📅 %s %s - %s", i+1, date, allDay, summary(ev)))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. 📅 %s 🕐 %s - %s", i+1, date, ev.Start.Clock(), summary(ev)))
	}
	return strings.Join(lines, "\n")
}

var changeLabels = map[calendar.Field]string{
	calendar.FieldTitle:       "제목",
	calendar.FieldDate:        "날짜",
	calendar.FieldStartTime:   "시작",
	calendar.FieldEndTime:     "종료",
	calendar.FieldDescription: "설명",
}

// Changes renders one line per changed field, in calendar.FieldOrder.
func Changes(changes calendar.Changes) []string {
	var lines []string
	for _, c := range changes.Fields() {
		lines = append(lines, fmt.Sprintf("%s → %s", changeLabels[c.Field], c.Value))
	}
	return lines
}

// TimeRange renders "HH:MM" or "HH:MM - HH:MM".
func TimeRange(start, end string) string {
	if end == "" {
		return start
	}
	return start + " - " + end
}

func summary(ev calendar.EventRecord) string {
	if strings.TrimSpace(ev.Summary) == "" {
		return untitled
	}
	return ev.Summary
}

func clockOrAllDay(t calendar.EventTime) string {
	if t.AllDay() {
		return allDay
	}
	return t.Clock()
}

// dateHeader leaves the weekday off when date does not parse.
func dateHeader(date string) string {
	d, err := time.Parse(calendar.DateLayout, date)
	if err != nil {
		return "📆 " + date
	}
	return fmt.Sprintf("📆 %s (%s)", date, temporal.ShortWeekday(d))
}
