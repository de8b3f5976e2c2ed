// Package google implements the calendar capability on Google Calendar v3,
// one OAuth identity per chat.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/user/chatcal/internal/calendar"
	"github.com/user/chatcal/internal/temporal"
	"github.com/user/chatcal/internal/types"
)

const (
	// DefaultCalendarID is the signed-in user's main calendar.
	DefaultCalendarID = "primary"
	// SearchLimit caps the number of events one search returns.
	SearchLimit = 50

	defaultDuration = time.Hour
)

// Authorizer hands out per-chat HTTP clients. *Auth implements it.
type Authorizer interface {
	IsAuthenticated(chatID types.ChatID) bool
	Client(ctx context.Context, chatID types.ChatID) (*http.Client, error)
}

// Backend is a calendar.Store over the Google Calendar API.
type Backend struct {
	auth       Authorizer
	calendarID string
	loc        *time.Location
	zone       string
	clock      temporal.Clock
	timeout    time.Duration
	clientOpts []option.ClientOption
	logger     *slog.Logger
}

var _ calendar.Store = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithCalendarID selects a calendar other than the primary one.
func WithCalendarID(id string) Option {
	return func(b *Backend) {
		if id != "" {
			b.calendarID = id
		}
	}
}

// WithLocation sets the zone in which dates and clocks are interpreted.
func WithLocation(loc *time.Location) Option {
	return func(b *Backend) { b.loc = loc }
}

// WithClock replaces the wall clock used for today and this week.
func WithClock(c temporal.Clock) Option {
	return func(b *Backend) { b.clock = c }
}

// WithTimeout bounds each operation as a whole. A delete or edit makes two
// requests within the same limit.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithClientOptions appends options to every calendar service built.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(b *Backend) { b.clientOpts = append(b.clientOpts, opts...) }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// NewBackend creates a Backend. Without WithLocation dates are read in UTC.
func NewBackend(auth Authorizer, opts ...Option) *Backend {
	b := &Backend{
		auth:       auth,
		calendarID: DefaultCalendarID,
		loc:        time.UTC,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.zone = zoneName(b.loc)
	if b.clock == nil {
		b.clock = temporal.SystemClock{Location: b.loc}
	}
	return b
}

func (b *Backend) IsAuthenticated(_ context.Context, chatID types.ChatID) bool {
	return b.auth.IsAuthenticated(chatID)
}

func (b *Backend) AddEvent(ctx context.Context, chatID types.ChatID, ev calendar.NewEvent) (calendar.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	svc, err := b.service(ctx, chatID)
	if err != nil {
		return calendar.Result{}, err
	}

	start, err := parseDateTime(ev.Date, ev.StartTime, b.loc)
	if err != nil {
		return calendar.Result{}, err
	}
	end := start.Add(defaultDuration)
	if ev.EndTime != "" {
		if end, err = parseDateTime(ev.Date, ev.EndTime, b.loc); err != nil {
			return calendar.Result{}, err
		}
	}

	created, err := svc.Events.Insert(b.calendarID, &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       b.timed(start),
		End:         b.timed(end),
	}).Context(ctx).Do()
	if err != nil {
		return b.failure("insert event", chatID, err)
	}

	b.logger.Info("event added", "chat_id", int64(chatID), "event_id", created.Id)
	return calendar.Succeeded(created.Summary), nil
}

func (b *Backend) DeleteEvent(ctx context.Context, chatID types.ChatID, title, date, originalTime string) (calendar.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	svc, err := b.service(ctx, chatID)
	if err != nil {
		return calendar.Result{}, err
	}

	ev, res, err := b.find(ctx, chatID, svc, title, date, originalTime)
	if ev == nil {
		return res, err
	}

	if err := svc.Events.Delete(b.calendarID, ev.Id).Context(ctx).Do(); err != nil {
		return b.failure("delete event", chatID, err)
	}

	b.logger.Info("event deleted", "chat_id", int64(chatID), "event_id", ev.Id)
	return calendar.Succeeded(ev.Summary), nil
}

func (b *Backend) EditEvent(ctx context.Context, chatID types.ChatID, title, date string, changes calendar.Changes, originalTime string) (calendar.Result, error) {
	if changes.Empty() {
		return calendar.Failed("변경할 내용이 없습니다."), nil
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	svc, err := b.service(ctx, chatID)
	if err != nil {
		return calendar.Result{}, err
	}

	ev, res, err := b.find(ctx, chatID, svc, title, date, originalTime)
	if ev == nil {
		return res, err
	}

	patch, reason, err := b.patchFor(ev, changes)
	if err != nil {
		return calendar.Result{}, err
	}
	if reason != "" {
		return calendar.Failed(reason), nil
	}

	updated, err := svc.Events.Patch(b.calendarID, ev.Id, patch).Context(ctx).Do()
	if err != nil {
		return b.failure("patch event", chatID, err)
	}

	b.logger.Info("event edited", "chat_id", int64(chatID), "event_id", ev.Id)
	return calendar.Succeeded(updated.Summary), nil
}

func (b *Backend) EventsToday(ctx context.Context, chatID types.ChatID) ([]calendar.EventRecord, error) {
	from, to := dayBounds(b.clock.Now(), b.loc)
	return b.between(ctx, chatID, from, to)
}

func (b *Backend) EventsThisWeek(ctx context.Context, chatID types.ChatID) ([]calendar.EventRecord, error) {
	from, to := weekBounds(b.clock.Now(), b.loc)
	return b.between(ctx, chatID, from, to)
}

// Search lists events matching every filter given. With no date filter at all
// it looks forward from now.
func (b *Backend) Search(ctx context.Context, chatID types.ChatID, q calendar.SearchQuery) ([]calendar.EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	svc, err := b.service(ctx, chatID)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(b.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(SearchLimit)
	if q.Keyword != "" {
		call = call.Q(q.Keyword)
	}
	if q.DateFrom != "" {
		from, err := parseDate(q.DateFrom, b.loc)
		if err != nil {
			return nil, err
		}
		call = call.TimeMin(from.Format(time.RFC3339))
	}
	if q.DateTo != "" {
		to, err := parseDate(q.DateTo, b.loc)
		if err != nil {
			return nil, err
		}
		call = call.TimeMax(to.AddDate(0, 0, 1).Format(time.RFC3339))
	}
	if q.DateFrom == "" && q.DateTo == "" {
		call = call.TimeMin(b.clock.Now().Format(time.RFC3339))
	}

	events, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return toRecords(events.Items, b.loc), nil
}

func (b *Backend) service(ctx context.Context, chatID types.ChatID) (*gcal.Service, error) {
	client, err := b.auth.Client(ctx, chatID)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, b.clientOpts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

func (b *Backend) between(ctx context.Context, chatID types.ChatID, from, to time.Time) ([]calendar.EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	svc, err := b.service(ctx, chatID)
	if err != nil {
		return nil, err
	}
	items, err := b.list(ctx, svc, from, to)
	if err != nil {
		return nil, err
	}
	return toRecords(items, b.loc), nil
}

func (b *Backend) list(ctx context.Context, svc *gcal.Service, from, to time.Time) ([]*gcal.Event, error) {
	events, err := svc.Events.List(b.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events.Items, nil
}

// find locates the event a delete or edit refers to. A nil event comes with
// either a failed Result or an error.
func (b *Backend) find(ctx context.Context, chatID types.ChatID, svc *gcal.Service, title, date, originalTime string) (*gcal.Event, calendar.Result, error) {
	day, err := parseDate(date, b.loc)
	if err != nil {
		return nil, calendar.Result{}, err
	}
	from, to := dayBounds(day, b.loc)

	items, err := b.list(ctx, svc, from, to)
	if err != nil {
		res, err := b.failure("list events", chatID, err)
		return nil, res, err
	}

	ev := pick(items, title, originalTime, b.loc)
	if ev == nil {
		when := date
		if originalTime != "" {
			when += " " + originalTime
		}
		return nil, calendar.Failed(fmt.Sprintf("'%s' 일정을 찾을 수 없습니다. (%s)", title, when)), nil
	}
	return ev, calendar.Result{}, nil
}

// patchFor builds the partial update for changes. A non-empty reason means
// the change cannot be applied to this event.
func (b *Backend) patchFor(ev *gcal.Event, changes calendar.Changes) (*gcal.Event, string, error) {
	patch := &gcal.Event{
		Summary:     changes.Title,
		Description: changes.Description,
	}
	if changes.Date == "" && changes.StartTime == "" && changes.EndTime == "" {
		return patch, "", nil
	}

	cur := startOf(ev, b.loc)

	if cur.AllDay() && changes.StartTime == "" {
		if changes.EndTime != "" {
			return nil, "종일 일정은 시작 시간 없이 종료 시간만 바꿀 수 없습니다.", nil
		}
		oldStart, err := parseDate(cur.Date, b.loc)
		if err != nil {
			return nil, "", err
		}
		newStart, err := parseDate(changes.Date, b.loc)
		if err != nil {
			return nil, "", err
		}
		days := 1
		if ev.End != nil && ev.End.Date != "" {
			if oldEnd, err := parseDate(ev.End.Date, b.loc); err == nil {
				days = int(oldEnd.Sub(oldStart).Hours()/24 + 0.5)
			}
		}
		patch.Start = &gcal.EventDateTime{Date: changes.Date}
		patch.End = &gcal.EventDateTime{Date: newStart.AddDate(0, 0, days).Format(calendar.DateLayout)}
		return patch, "", nil
	}

	date := changes.Date
	if date == "" {
		date = cur.DateString()
	}
	clock := changes.StartTime
	if clock == "" {
		clock = cur.Clock()
	}
	start, err := parseDateTime(date, clock, b.loc)
	if err != nil {
		return nil, "", err
	}

	duration := defaultDuration
	if !cur.AllDay() && ev.End != nil && ev.End.DateTime != "" {
		if oldEnd, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
			duration = oldEnd.Sub(cur.DateTime)
		}
	}
	end := start.Add(duration)
	if changes.EndTime != "" {
		if end, err = parseDateTime(date, changes.EndTime, b.loc); err != nil {
			return nil, "", err
		}
	}

	patch.Start = b.timed(start)
	patch.End = b.timed(end)
	if cur.AllDay() {
		patch.Start.NullFields = []string{"Date"}
		patch.End.NullFields = []string{"Date"}
	}
	return patch, "", nil
}

func (b *Backend) timed(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: b.zone,
	}
}

// zoneName returns the IANA name Google accepts for loc, or "" when loc has
// none. The offset in DateTime is enough without it.
func zoneName(loc *time.Location) string {
	name := loc.String()
	if name == "" || name == "Local" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}

// failure turns an API rejection into a failed Result and anything else into
// an error.
func (b *Backend) failure(op string, chatID types.ChatID, err error) (calendar.Result, error) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		b.logger.Warn("google calendar rejected request", "op", op, "chat_id", int64(chatID), "code", gerr.Code, "error", gerr)
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return calendar.Failed("Google Calendar 오류: " + msg), nil
	}
	return calendar.Result{}, fmt.Errorf("%s: %w", op, err)
}
