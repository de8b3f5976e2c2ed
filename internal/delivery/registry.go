// Package delivery routes outbound messages that do not answer an inbound
// one, such as scheduled briefings, to the transport named by their key.
package delivery

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/user/chatcal/internal/types"
)

// ErrNoHandler is returned when no registered prefix matches a key.
var ErrNoHandler = errors.New("no delivery handler")

// Handler delivers a message to the destination identified by key.
type Handler func(key types.DeliveryKey, message string) error

// Registry routes messages to the appropriate delivery handler based on key
// prefix (e.g. "telegram:"). The longest matching prefix wins.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for keys starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Deliver finds the handler matching the key prefix and calls it.
func (r *Registry) Deliver(key types.DeliveryKey, message string) error {
	r.mu.RLock()
	var (
		best    string
		handler Handler
	)
	for prefix, h := range r.handlers {
		if strings.HasPrefix(string(key), prefix) && len(prefix) >= len(best) {
			best, handler = prefix, h
		}
	}
	r.mu.RUnlock()

	if handler == nil {
		return fmt.Errorf("%w for key: %s", ErrNoHandler, key)
	}
	return handler(key, message)
}

// TelegramPrefix is the key prefix for Telegram chats.
const TelegramPrefix = "telegram:"

// ChatSender sends text to one chat.
type ChatSender func(chatID types.ChatID, text string) error

// Telegram adapts a ChatSender to keys of the form "telegram:<chat id>".
func Telegram(send ChatSender) Handler {
	return func(key types.DeliveryKey, message string) error {
		chatID, err := ParseTelegramKey(key)
		if err != nil {
			return err
		}
		return send(chatID, message)
	}
}

// ParseTelegramKey extracts the chat id from a Telegram delivery key.
func ParseTelegramKey(key types.DeliveryKey) (types.ChatID, error) {
	rest, ok := strings.CutPrefix(string(key), TelegramPrefix)
	if !ok {
		return 0, fmt.Errorf("not a telegram key: %s", key)
	}
	chatID, err := types.ParseChatID(rest)
	if err != nil {
		return 0, fmt.Errorf("parse telegram key %s: %w", key, err)
	}
	return chatID, nil
}
