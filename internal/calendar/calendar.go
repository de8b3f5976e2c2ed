// Package calendar defines the calendar capability the dispatcher talks to and
// the read-only event records it hands back.
package calendar

import (
	"context"

	"github.com/user/chatcal/internal/types"
)

// Store is the calendar backend as seen by the dispatcher. Write operations
// report expected failures (no matching event, rejected request) through
// Result; a non-nil error means something unexpected went wrong.
type Store interface {
	IsAuthenticated(ctx context.Context, chatID types.ChatID) bool
	AddEvent(ctx context.Context, chatID types.ChatID, event NewEvent) (Result, error)
	DeleteEvent(ctx context.Context, chatID types.ChatID, title, date, originalTime string) (Result, error)
	EditEvent(ctx context.Context, chatID types.ChatID, title, date string, changes Changes, originalTime string) (Result, error)
	EventsToday(ctx context.Context, chatID types.ChatID) ([]EventRecord, error)
	EventsThisWeek(ctx context.Context, chatID types.ChatID) ([]EventRecord, error)
	Search(ctx context.Context, chatID types.ChatID, query SearchQuery) ([]EventRecord, error)
}

// Result is the outcome of a write. Detail holds the matched or created
// event title on success and a user-facing reason on failure.
type Result struct {
	OK     bool
	Detail string
}

func Succeeded(detail string) Result { return Result{OK: true, Detail: detail} }

func Failed(detail string) Result { return Result{OK: false, Detail: detail} }

// NewEvent carries the arguments of an add. EndTime and Description are
// optional and empty when absent.
type NewEvent struct {
	Title       string
	Date        string
	StartTime   string
	EndTime     string
	Description string
}

// SearchQuery filters a search. Every field is optional.
type SearchQuery struct {
	Keyword  string
	DateFrom string
	DateTo   string
}
