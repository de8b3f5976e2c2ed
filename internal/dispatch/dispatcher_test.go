package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/chatcal/internal/calendar"
	"github.com/user/chatcal/internal/format"
	"github.com/user/chatcal/internal/intent"
	"github.com/user/chatcal/internal/temporal"
	"github.com/user/chatcal/internal/types"
)

const chat types.ChatID = 4242

var kst = time.FixedZone("KST", 9*60*60)

func newClock() *temporal.FixedClock {
	return &temporal.FixedClock{FixedNow: time.Date(2024, 1, 1, 9, 0, 0, 0, kst)}
}

func newDispatcher(p IntentParser, s calendar.Store) (*Dispatcher, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(p, s, newClock(), WithLogger(logger)), &buf
}

func TestAddEndToEnd(t *testing.T) {
	parser := &stubParser{ParseFunc: func(_ context.Context, utterance string, today temporal.Today) (map[string]any, error) {
		// Resolve "내일" the way the model would.
		d, _ := time.Parse(calendar.DateLayout, today.Date)
		return map[string]any{
			"kind":       "add",
			"title":      "팀 회의",
			"date":       d.AddDate(0, 0, 1).Format(calendar.DateLayout),
			"start_time": "15:00",
		}, nil
	}}
	var got calendar.NewEvent
	store := &stubStore{AddFunc: func(ev calendar.NewEvent) (calendar.Result, error) {
		got = ev
		return calendar.Succeeded(ev.Title), nil
	}}
	d, _ := newDispatcher(parser, store)

	reply := d.HandleUserMessage(context.Background(), chat, "내일 오후 3시에 팀 회의")

	assert.Equal(t, "내일 오후 3시에 팀 회의", parser.utterance)
	assert.Equal(t, temporal.Today{Date: "2024-01-01", Weekday: "월요일"}, parser.today)
	assert.Equal(t, calendar.NewEvent{Title: "팀 회의", Date: "2024-01-02", StartTime: "15:00"}, got)

	assert.True(t, strings.HasPrefix(reply, "✅"))
	assert.Contains(t, reply, "팀 회의")
	assert.Contains(t, reply, "2024-01-02")
	assert.Contains(t, reply, "15:00")
	assert.NotContains(t, reply, "💬")
}

func TestAddWithEndTimeAndDescription(t *testing.T) {
	d, _ := newDispatcher(returning(map[string]any{
		"kind":        "add",
		"title":       "치과",
		"date":        "2024-01-03",
		"start_time":  "14:00",
		"end_time":    "15:30",
		"description": "스케일링",
	}), &stubStore{})

	reply := d.HandleUserMessage(context.Background(), chat, "수요일 2시 치과")
	assert.Equal(t, "✅ 일정이 추가되었습니다!\n\n📅 2024-01-03\n🕐 14:00 - 15:30\n📝 치과\n💬 스케일링", reply)
}

func TestAddBackendFailureShowsDetail(t *testing.T) {
	store := &stubStore{AddFunc: func(calendar.NewEvent) (calendar.Result, error) {
		return calendar.Failed("Google Calendar 오류: quota exceeded"), nil
	}}
	d, _ := newDispatcher(returning(map[string]any{
		"kind": "add", "title": "팀 회의", "date": "2024-01-02", "start_time": "15:00",
	}), store)

	reply := d.HandleUserMessage(context.Background(), chat, "내일 오후 3시에 팀 회의")
	assert.True(t, strings.HasPrefix(reply, "❌"))
	assert.Contains(t, reply, "quota exceeded")
}

func TestStoreErrorsBecomeGenericReplies(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name  string
		raw   map[string]any
		store *stubStore
		want  string
	}{
		{
			name:  "add",
			raw:   map[string]any{"kind": "add", "title": "a", "date": "2024-01-02", "start_time": "10:00"},
			store: &stubStore{AddFunc: func(calendar.NewEvent) (calendar.Result, error) { return calendar.Result{}, boom }},
			want:  ReplyFailed,
		},
		{
			name:  "delete",
			raw:   map[string]any{"kind": "delete", "title": "a", "date": "2024-01-02"},
			store: &stubStore{DeleteFunc: func(string, string, string) (calendar.Result, error) { return calendar.Result{}, boom }},
			want:  ReplyFailed,
		},
		{
			name: "edit",
			raw:  map[string]any{"kind": "edit", "title": "a", "date": "2024-01-02", "changes": map[string]any{"title": "b"}},
			store: &stubStore{EditFunc: func(string, string, calendar.Changes, string) (calendar.Result, error) {
				return calendar.Result{}, boom
			}},
			want: ReplyFailed,
		},
		{
			name:  "query_today",
			raw:   map[string]any{"kind": "query_today"},
			store: &stubStore{TodayFunc: func() ([]calendar.EventRecord, error) { return nil, boom }},
			want:  ReplyLoadFailed,
		},
		{
			name:  "query_week",
			raw:   map[string]any{"kind": "query_week"},
			store: &stubStore{WeekFunc: func() ([]calendar.EventRecord, error) { return nil, boom }},
			want:  ReplyLoadFailed,
		},
		{
			name:  "search",
			raw:   map[string]any{"kind": "search", "keyword": "a"},
			store: &stubStore{SearchFunc: func(calendar.SearchQuery) ([]calendar.EventRecord, error) { return nil, boom }},
			want:  ReplySearchFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, logs := newDispatcher(returning(tt.raw), tt.store)
			assert.Equal(t, tt.want, d.HandleUserMessage(context.Background(), chat, "msg"))
			assert.Contains(t, logs.String(), "connection reset")
		})
	}
}

func TestQueryTodayEmpty(t *testing.T) {
	d, _ := newDispatcher(returning(map[string]any{"kind": "query_today"}), &stubStore{})
	assert.Equal(t, format.EmptyDay, d.HandleUserMessage(context.Background(), chat, "오늘 일정"))
}

func TestQueryWeekFormatsEvents(t *testing.T) {
	events := []calendar.EventRecord{
		{Summary: "회의", Start: calendar.Timed(time.Date(2024, 1, 2, 10, 0, 0, 0, kst))},
	}
	store := &stubStore{WeekFunc: func() ([]calendar.EventRecord, error) { return events, nil }}
	d, _ := newDispatcher(returning(map[string]any{"kind": "query_week"}), store)

	assert.Equal(t, format.Week(events), d.HandleUserMessage(context.Background(), chat, "이번 주"))
	assert.Equal(t, []string{"week"}, store.calls)
}

func TestDelete(t *testing.T) {
	var gotTitle, gotDate, gotTime string
	store := &stubStore{DeleteFunc: func(title, date, originalTime string) (calendar.Result, error) {
		gotTitle, gotDate, gotTime = title, date, originalTime
		return calendar.Succeeded("치과 예약"), nil
	}}
	d, _ := newDispatcher(returning(map[string]any{
		"kind": "delete", "title": "치과", "date": "2024-01-03", "original_time": "14:00",
	}), store)

	reply := d.HandleUserMessage(context.Background(), chat, "수요일 치과 취소")
	assert.Equal(t, "🗑️ 일정이 삭제되었습니다!\n\n📅 2024-01-03\n📝 치과 예약", reply)
	assert.Equal(t, "치과", gotTitle)
	assert.Equal(t, "2024-01-03", gotDate)
	assert.Equal(t, "14:00", gotTime)
}

func TestDeleteNotFound(t *testing.T) {
	store := &stubStore{DeleteFunc: func(title, date, _ string) (calendar.Result, error) {
		return calendar.Failed("'" + title + "' 일정을 찾을 수 없습니다."), nil
	}}
	d, _ := newDispatcher(returning(map[string]any{"kind": "delete", "title": "치과", "date": "2024-01-03"}), store)

	reply := d.HandleUserMessage(context.Background(), chat, "치과 취소")
	assert.Equal(t, "❌ 일정 삭제 실패\n'치과' 일정을 찾을 수 없습니다.", reply)
}

func TestEditOnlyStartTime(t *testing.T) {
	var got calendar.Changes
	store := &stubStore{EditFunc: func(_, _ string, changes calendar.Changes, _ string) (calendar.Result, error) {
		got = changes
		return calendar.Succeeded("팀 회의"), nil
	}}
	d, _ := newDispatcher(returning(map[string]any{
		"kind":    "edit",
		"title":   "팀 회의",
		"date":    "2024-01-02",
		"changes": map[string]any{"start_time": "16:00", "title": nil},
	}), store)

	reply := d.HandleUserMessage(context.Background(), chat, "내일 팀 회의 4시로 변경")

	assert.Equal(t, calendar.Changes{StartTime: "16:00"}, got)
	require.Contains(t, reply, "변경사항:")
	changes := reply[strings.Index(reply, "변경사항:"):]
	assert.Equal(t, 1, strings.Count(changes, "•"))
	assert.Contains(t, changes, "16:00")
}

func TestEditFailure(t *testing.T) {
	store := &stubStore{EditFunc: func(string, string, calendar.Changes, string) (calendar.Result, error) {
		return calendar.Failed("not found"), nil
	}}
	d, _ := newDispatcher(returning(map[string]any{
		"kind": "edit", "title": "a", "date": "2024-01-02", "changes": map[string]any{"date": "2024-01-05"},
	}), store)
	assert.Equal(t, "❌ 일정 수정 실패\nnot found", d.HandleUserMessage(context.Background(), chat, "x"))
}

func TestSearchPassesQuery(t *testing.T) {
	var got calendar.SearchQuery
	store := &stubStore{SearchFunc: func(q calendar.SearchQuery) ([]calendar.EventRecord, error) {
		got = q
		return nil, nil
	}}
	d, _ := newDispatcher(returning(map[string]any{
		"kind": "search", "keyword": "점심", "date_from": "2024-01-01", "date_to": "2024-01-31",
	}), store)

	reply := d.HandleUserMessage(context.Background(), chat, "1월 점심 약속 찾아줘")
	assert.Equal(t, calendar.SearchQuery{Keyword: "점심", DateFrom: "2024-01-01", DateTo: "2024-01-31"}, got)
	assert.Equal(t, format.Search(nil, "점심"), reply)
}

func TestOther(t *testing.T) {
	d, _ := newDispatcher(returning(map[string]any{"kind": "other", "response": "안녕하세요!"}), &stubStore{})
	assert.Equal(t, "안녕하세요!", d.HandleUserMessage(context.Background(), chat, "안녕"))

	assert.Equal(t, ReplyOtherFallback, d.Dispatch(context.Background(), chat, intent.Other{}))

	spaced := "안녕하세요!\n\n  무엇을 도와드릴까요?\n"
	d, _ = newDispatcher(returning(map[string]any{"kind": "other", "response": spaced}), &stubStore{})
	assert.Equal(t, spaced, d.HandleUserMessage(context.Background(), chat, "안녕"))
}

func TestUnknownKind(t *testing.T) {
	store := &stubStore{}
	d, logs := newDispatcher(returning(map[string]any{"kind": "reminder", "title": "x"}), store)

	assert.Equal(t, ReplyUnrecognized, d.HandleUserMessage(context.Background(), chat, "알림 설정"))
	assert.Empty(t, store.calls)
	assert.Contains(t, logs.String(), "reminder")
}

func TestParseFailure(t *testing.T) {
	store := &stubStore{}
	parser := &stubParser{ParseFunc: func(context.Context, string, temporal.Today) (map[string]any, error) {
		return nil, errors.New("model returned prose")
	}}
	d, _ := newDispatcher(parser, store)

	assert.Equal(t, ReplyNotUnderstood, d.HandleUserMessage(context.Background(), chat, "음..."))
	assert.Empty(t, store.calls)
}

func TestValidationFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing kind", map[string]any{"title": "x"}},
		{"missing start_time", map[string]any{"kind": "add", "title": "x", "date": "2024-01-02"}},
		{"bad date", map[string]any{"kind": "add", "title": "x", "date": "tomorrow", "start_time": "10:00"}},
		{"empty changes", map[string]any{"kind": "edit", "title": "x", "date": "2024-01-02", "changes": map[string]any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			d, _ := newDispatcher(returning(tt.raw), store)
			assert.Equal(t, ReplyNotUnderstood, d.HandleUserMessage(context.Background(), chat, "msg"))
			assert.Empty(t, store.calls)
		})
	}
}

func TestNotAuthenticated(t *testing.T) {
	parser := returning(map[string]any{"kind": "query_today"})
	store := &stubStore{Unauthenticated: true}
	d, _ := newDispatcher(parser, store)

	assert.Equal(t, ReplyNotAuthenticated, d.HandleUserMessage(context.Background(), chat, "오늘 일정"))
	assert.Equal(t, ReplyNotAuthenticated, d.HandleTodayShortcut(context.Background(), chat))
	assert.Empty(t, parser.utterance)
	assert.Empty(t, store.calls)
}

func TestTodayShortcutSkipsParser(t *testing.T) {
	parser := &stubParser{}
	events := []calendar.EventRecord{
		{Summary: "점심", Start: calendar.Timed(time.Date(2024, 1, 1, 12, 0, 0, 0, kst))},
	}
	store := &stubStore{TodayFunc: func() ([]calendar.EventRecord, error) { return events, nil }}
	d, _ := newDispatcher(parser, store)

	assert.Equal(t, format.Day(events), d.HandleTodayShortcut(context.Background(), chat))
	assert.Empty(t, parser.utterance)
}

func TestPanicIsContained(t *testing.T) {
	store := &stubStore{AddFunc: func(calendar.NewEvent) (calendar.Result, error) {
		panic("nil map write")
	}}
	d, logs := newDispatcher(returning(map[string]any{
		"kind": "add", "title": "x", "date": "2024-01-02", "start_time": "10:00",
	}), store)

	var reply string
	require.NotPanics(t, func() {
		reply = d.HandleUserMessage(context.Background(), chat, "x")
	})
	assert.Equal(t, ReplyFailed, reply)
	assert.Contains(t, logs.String(), "nil map write")

	store.TodayFunc = func() ([]calendar.EventRecord, error) { panic("boom") }
	assert.Equal(t, ReplyFailed, d.HandleTodayShortcut(context.Background(), chat))
}

type bogusIntent struct{ intent.QueryToday }

func (bogusIntent) Kind() intent.Kind { return "bogus" }

func TestDispatchUnknownVariant(t *testing.T) {
	d, _ := newDispatcher(&stubParser{}, &stubStore{})
	assert.Equal(t, ReplyUnrecognized, d.Dispatch(context.Background(), chat, bogusIntent{}))
	assert.Equal(t, ReplyUnrecognized, d.Dispatch(context.Background(), chat, nil))
}
