// internal/types/ids.go
package types

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type ChatID int64
type RunID string
type DeliveryKey string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func (c ChatID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// ParseChatID parses the decimal form produced by ChatID.String.
func ParseChatID(s string) (ChatID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return ChatID(n), nil
}

func NewDeliveryKey(parts ...string) DeliveryKey {
	return DeliveryKey(strings.Join(parts, ":"))
}

// TelegramKey is the delivery key for a Telegram chat, e.g. "telegram:12345".
func TelegramKey(chatID ChatID) DeliveryKey {
	return NewDeliveryKey("telegram", chatID.String())
}
