package intent

import (
	"regexp"
	"strings"
	"time"

	"github.com/user/chatcal/internal/calendar"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// required lists the fields each kind must carry, in reporting order.
var required = map[Kind][]string{
	KindAdd:        {"title", "date", "start_time"},
	KindDelete:     {"title", "date"},
	KindEdit:       {"title", "date", "changes"},
	KindQueryToday: nil,
	KindQueryWeek:  nil,
	KindSearch:     nil,
	KindOther:      {"response"},
}

// Validate checks raw parser output against the schema of its kind and builds
// the matching Intent. Extra fields are ignored. It either returns a complete
// Intent or an error, never both.
func Validate(raw map[string]any) (Intent, error) {
	kind, err := discriminator(raw)
	if err != nil {
		return nil, err
	}

	for _, field := range required[kind] {
		if !present(raw, field) {
			return nil, &MissingFieldError{Kind: kind, Field: field}
		}
	}

	v := &fields{kind: kind, raw: raw}
	var out Intent
	switch kind {
	case KindAdd:
		out = Add{
			Title:       v.text("title"),
			Date:        v.date("date"),
			StartTime:   v.clock("start_time"),
			EndTime:     v.clock("end_time"),
			Description: v.text("description"),
		}
	case KindDelete:
		out = Delete{
			Title:        v.text("title"),
			Date:         v.date("date"),
			OriginalTime: v.clock("original_time"),
		}
	case KindEdit:
		out = Edit{
			Title:        v.text("title"),
			Date:         v.date("date"),
			Changes:      v.changes("changes"),
			OriginalTime: v.clock("original_time"),
		}
	case KindQueryToday:
		out = QueryToday{}
	case KindQueryWeek:
		out = QueryWeek{}
	case KindSearch:
		out = Search{
			Keyword:  v.text("keyword"),
			DateFrom: v.date("date_from"),
			DateTo:   v.date("date_to"),
		}
	case KindOther:
		out = Other{Response: v.verbatim("response")}
	}
	if v.err != nil {
		return nil, v.err
	}
	return out, nil
}

func discriminator(raw map[string]any) (Kind, error) {
	value, ok := raw["kind"]
	if !ok || value == nil {
		value = raw["intent"]
	}
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", ErrMissingKind
	}
	kind, ok := knownKind(strings.TrimSpace(s))
	if !ok {
		return "", &UnknownKindError{Value: s}
	}
	return kind, nil
}

// present reports whether a required field holds a usable value: a non-blank
// string, or for changes an object with at least one non-null entry.
func present(raw map[string]any, field string) bool {
	switch v := raw[field].(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case map[string]any:
		for _, f := range calendar.FieldOrder {
			if s, ok := v[string(f)].(string); ok && strings.TrimSpace(s) != "" {
				return true
			}
		}
		return false
	}
	return false
}

// fields reads optional and required values, keeping the first format error.
type fields struct {
	kind Kind
	raw  map[string]any
	err  error
}

func (f *fields) fail(field string, value any) {
	if f.err == nil {
		f.err = &InvalidFieldError{Kind: f.kind, Field: field, Value: value}
	}
}

func (f *fields) textFrom(m map[string]any, key, name string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		f.fail(name, v)
		return ""
	}
}

func (f *fields) dateFrom(m map[string]any, key, name string) string {
	s := f.textFrom(m, key, name)
	if s == "" {
		return ""
	}
	if _, err := time.Parse(calendar.DateLayout, s); err != nil {
		f.fail(name, s)
		return ""
	}
	return s
}

func (f *fields) clockFrom(m map[string]any, key, name string) string {
	s := f.textFrom(m, key, name)
	if s == "" {
		return ""
	}
	if !clockPattern.MatchString(s) {
		f.fail(name, s)
		return ""
	}
	return s
}

// verbatim reads a string without trimming it.
func (f *fields) verbatim(key string) string {
	switch v := f.raw[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		f.fail(key, v)
		return ""
	}
}

func (f *fields) text(key string) string  { return f.textFrom(f.raw, key, key) }
func (f *fields) date(key string) string  { return f.dateFrom(f.raw, key, key) }
func (f *fields) clock(key string) string { return f.clockFrom(f.raw, key, key) }

func (f *fields) changes(key string) calendar.Changes {
	m, _ := f.raw[key].(map[string]any)
	return calendar.Changes{
		Title:       f.textFrom(m, "title", key+".title"),
		Date:        f.dateFrom(m, "date", key+".date"),
		StartTime:   f.clockFrom(m, "start_time", key+".start_time"),
		EndTime:     f.clockFrom(m, "end_time", key+".end_time"),
		Description: f.textFrom(m, "description", key+".description"),
	}
}
