// Package intent holds the validated interpretation of a chat message and the
// validator that builds it from raw parser output.
package intent

import "github.com/user/chatcal/internal/calendar"

// Kind is the intent discriminator.
type Kind string

const (
	KindAdd        Kind = "add"
	KindDelete     Kind = "delete"
	KindEdit       Kind = "edit"
	KindQueryToday Kind = "query_today"
	KindQueryWeek  Kind = "query_week"
	KindSearch     Kind = "search"
	KindOther      Kind = "other"
)

// Kinds lists every known discriminator value.
var Kinds = []Kind{KindAdd, KindDelete, KindEdit, KindQueryToday, KindQueryWeek, KindSearch, KindOther}

// Intent is one of Add, Delete, Edit, QueryToday, QueryWeek, Search or Other.
// The set is closed: only this package can add variants.
type Intent interface {
	Kind() Kind
	isIntent()
}

// Add creates an event. EndTime and Description may be empty.
type Add struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	Description string `json:"description,omitempty"`
}

// Delete removes the event best matching Title on Date.
type Delete struct {
	Title        string `json:"title"`
	Date         string `json:"date"`
	OriginalTime string `json:"original_time,omitempty"`
}

// Edit applies Changes to the event best matching Title on Date.
type Edit struct {
	Title        string           `json:"title"`
	Date         string           `json:"date"`
	Changes      calendar.Changes `json:"changes"`
	OriginalTime string           `json:"original_time,omitempty"`
}

type QueryToday struct{}

type QueryWeek struct{}

// Search filters events; every field is optional.
type Search struct {
	Keyword  string `json:"keyword,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

// Other is a message unrelated to the calendar; Response is sent back as is.
type Other struct {
	Response string `json:"response"`
}

func (Add) Kind() Kind        { return KindAdd }
func (Delete) Kind() Kind     { return KindDelete }
func (Edit) Kind() Kind       { return KindEdit }
func (QueryToday) Kind() Kind { return KindQueryToday }
func (QueryWeek) Kind() Kind  { return KindQueryWeek }
func (Search) Kind() Kind     { return KindSearch }
func (Other) Kind() Kind      { return KindOther }

func (Add) isIntent()        {}
func (Delete) isIntent()     {}
func (Edit) isIntent()       {}
func (QueryToday) isIntent() {}
func (QueryWeek) isIntent()  {}
func (Search) isIntent()     {}
func (Other) isIntent()      {}

// NewEvent converts an Add into the calendar's argument shape.
func (a Add) NewEvent() calendar.NewEvent {
	return calendar.NewEvent{
		Title:       a.Title,
		Date:        a.Date,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Description: a.Description,
	}
}

// Query converts a Search into the calendar's argument shape.
func (s Search) Query() calendar.SearchQuery {
	return calendar.SearchQuery{Keyword: s.Keyword, DateFrom: s.DateFrom, DateTo: s.DateTo}
}

func knownKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
