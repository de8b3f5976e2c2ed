package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/user/chatcal/internal/calendar"
	"github.com/user/chatcal/internal/temporal"
	"github.com/user/chatcal/internal/types"
)

// stubParser returns a canned payload and records what it was asked.
type stubParser struct {
	ParseFunc func(ctx context.Context, utterance string, today temporal.Today) (map[string]any, error)

	mu        sync.Mutex
	utterance string
	today     temporal.Today
}

func (p *stubParser) Parse(ctx context.Context, utterance string, today temporal.Today) (map[string]any, error) {
	p.mu.Lock()
	p.utterance = utterance
	p.today = today
	p.mu.Unlock()
	if p.ParseFunc != nil {
		return p.ParseFunc(ctx, utterance, today)
	}
	return nil, errors.New("no payload")
}

func returning(raw map[string]any) *stubParser {
	return &stubParser{ParseFunc: func(context.Context, string, temporal.Today) (map[string]any, error) {
		return raw, nil
	}}
}

// stubStore is a calendar.Store whose behaviour is set per test.
type stubStore struct {
	Unauthenticated bool

	AddFunc    func(ev calendar.NewEvent) (calendar.Result, error)
	DeleteFunc func(title, date, originalTime string) (calendar.Result, error)
	EditFunc   func(title, date string, changes calendar.Changes, originalTime string) (calendar.Result, error)
	TodayFunc  func() ([]calendar.EventRecord, error)
	WeekFunc   func() ([]calendar.EventRecord, error)
	SearchFunc func(q calendar.SearchQuery) ([]calendar.EventRecord, error)

	calls []string
}

var _ calendar.Store = (*stubStore)(nil)

func (s *stubStore) IsAuthenticated(context.Context, types.ChatID) bool {
	return !s.Unauthenticated
}

func (s *stubStore) AddEvent(_ context.Context, _ types.ChatID, ev calendar.NewEvent) (calendar.Result, error) {
	s.calls = append(s.calls, "add")
	if s.AddFunc != nil {
		return s.AddFunc(ev)
	}
	return calendar.Succeeded(ev.Title), nil
}

func (s *stubStore) DeleteEvent(_ context.Context, _ types.ChatID, title, date, originalTime string) (calendar.Result, error) {
	s.calls = append(s.calls, "delete")
	if s.DeleteFunc != nil {
		return s.DeleteFunc(title, date, originalTime)
	}
	return calendar.Succeeded(title), nil
}

func (s *stubStore) EditEvent(_ context.Context, _ types.ChatID, title, date string, changes calendar.Changes, originalTime string) (calendar.Result, error) {
	s.calls = append(s.calls, "edit")
	if s.EditFunc != nil {
		return s.EditFunc(title, date, changes, originalTime)
	}
	return calendar.Succeeded(title), nil
}

func (s *stubStore) EventsToday(context.Context, types.ChatID) ([]calendar.EventRecord, error) {
	s.calls = append(s.calls, "today")
	if s.TodayFunc != nil {
		return s.TodayFunc()
	}
	return nil, nil
}

func (s *stubStore) EventsThisWeek(context.Context, types.ChatID) ([]calendar.EventRecord, error) {
	s.calls = append(s.calls, "week")
	if s.WeekFunc != nil {
		return s.WeekFunc()
	}
	return nil, nil
}

func (s *stubStore) Search(_ context.Context, _ types.ChatID, q calendar.SearchQuery) ([]calendar.EventRecord, error) {
	s.calls = append(s.calls, "search")
	if s.SearchFunc != nil {
		return s.SearchFunc(q)
	}
	return nil, nil
}
