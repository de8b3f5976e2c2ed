// internal/types/models.go
package types

// MessageKind tells the gateway which core entry point a message goes to.
type MessageKind string

const (
	// MessageText is free text routed through the intent parser.
	MessageText MessageKind = "text"
	// MessageToday is the "show today" shortcut that bypasses the parser.
	MessageToday MessageKind = "today"
)

type InboundMessage struct {
	Source string      `json:"source"`
	ChatID ChatID      `json:"chat_id"`
	UserID string      `json:"user_id,omitempty"`
	Kind   MessageKind `json:"kind"`
	Text   string      `json:"text,omitempty"`
}
