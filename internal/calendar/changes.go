package calendar

// Field names an editable event attribute.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDate        Field = "date"
	FieldStartTime   Field = "start_time"
	FieldEndTime     Field = "end_time"
	FieldDescription Field = "description"
)

// FieldOrder is the order in which changes are applied and reported.
var FieldOrder = []Field{FieldTitle, FieldDate, FieldStartTime, FieldEndTime, FieldDescription}

// Changes lists replacement values for an edit. An empty string means the
// attribute stays as it is.
type Changes struct {
	Title       string
	Date        string
	StartTime   string
	EndTime     string
	Description string
}

// FieldChange is one attribute the user asked to change.
type FieldChange struct {
	Field Field
	Value string
}

// Get returns the replacement value for f.
func (c Changes) Get(f Field) string {
	switch f {
	case FieldTitle:
		return c.Title
	case FieldDate:
		return c.Date
	case FieldStartTime:
		return c.StartTime
	case FieldEndTime:
		return c.EndTime
	case FieldDescription:
		return c.Description
	}
	return ""
}

// Fields returns the set attributes in FieldOrder.
func (c Changes) Fields() []FieldChange {
	var out []FieldChange
	for _, f := range FieldOrder {
		if v := c.Get(f); v != "" {
			out = append(out, FieldChange{Field: f, Value: v})
		}
	}
	return out
}

func (c Changes) Empty() bool {
	return len(c.Fields()) == 0
}
