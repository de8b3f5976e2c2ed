// Package dispatch turns chat messages into calendar operations and replies.
//
// A message moves through Received → Validated → Dispatched → Replied, or
// stops early at Rejected when the parser or validator gives up. Nothing is
// kept between messages; every call produces exactly one reply.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/user/chatcal/internal/calendar"
	"github.com/user/chatcal/internal/intent"
	"github.com/user/chatcal/internal/temporal"
	"github.com/user/chatcal/internal/types"
)

// IntentParser turns an utterance into a raw structured object. Any error
// means nothing usable came back.
type IntentParser interface {
	Parse(ctx context.Context, utterance string, today temporal.Today) (map[string]any, error)
}

// Dispatcher routes validated intents to their handlers.
type Dispatcher struct {
	parser IntentParser
	store  calendar.Store
	clock  temporal.Clock
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher over the given parser, calendar and clock.
func New(parser IntentParser, store calendar.Store, clock temporal.Clock, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		parser: parser,
		store:  store,
		clock:  clock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleUserMessage answers one free-text message.
func (d *Dispatcher) HandleUserMessage(ctx context.Context, chatID types.ChatID, text string) (reply string) {
	defer d.contain(chatID, "message", &reply)

	if !d.store.IsAuthenticated(ctx, chatID) {
		return ReplyNotAuthenticated
	}

	today := temporal.Build(d.clock.Now())
	raw, err := d.parser.Parse(ctx, text, today)
	if err != nil {
		d.logger.Warn("intent parse failed", "chat_id", int64(chatID), "error", err)
		return ReplyNotUnderstood
	}

	in, err := intent.Validate(raw)
	if err != nil {
		var unknown *intent.UnknownKindError
		if errors.As(err, &unknown) {
			d.logger.Warn("unrecognized intent", "chat_id", int64(chatID), "kind", unknown.Value, "raw", raw)
			return ReplyUnrecognized
		}
		d.logger.Warn("intent validation failed", "chat_id", int64(chatID), "error", err, "raw", raw)
		return ReplyNotUnderstood
	}

	return d.Dispatch(ctx, chatID, in)
}

// HandleTodayShortcut lists today's events without going through the parser.
func (d *Dispatcher) HandleTodayShortcut(ctx context.Context, chatID types.ChatID) (reply string) {
	defer d.contain(chatID, "today", &reply)

	if !d.store.IsAuthenticated(ctx, chatID) {
		return ReplyNotAuthenticated
	}
	return d.handleQueryToday(ctx, chatID)
}

// Dispatch runs the handler for in and returns its reply.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID types.ChatID, in intent.Intent) string {
	d.logger.Debug("dispatching intent", "chat_id", int64(chatID), "kind", kindOf(in))

	switch v := in.(type) {
	case intent.Add:
		return d.handleAdd(ctx, chatID, v)
	case intent.Delete:
		return d.handleDelete(ctx, chatID, v)
	case intent.Edit:
		return d.handleEdit(ctx, chatID, v)
	case intent.QueryToday:
		return d.handleQueryToday(ctx, chatID)
	case intent.QueryWeek:
		return d.handleQueryWeek(ctx, chatID)
	case intent.Search:
		return d.handleSearch(ctx, chatID, v)
	case intent.Other:
		return handleOther(v)
	default:
		d.logger.Warn("unrecognized intent", "chat_id", int64(chatID), "kind", kindOf(in))
		return ReplyUnrecognized
	}
}

// contain is the last line of defence: a panic below an entry point becomes
// the generic failure reply.
func (d *Dispatcher) contain(chatID types.ChatID, entry string, reply *string) {
	if r := recover(); r != nil {
		d.logger.Error("unexpected failure handling message",
			"chat_id", int64(chatID),
			"entry", entry,
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()),
		)
		*reply = ReplyFailed
	}
}

func kindOf(in intent.Intent) string {
	if in == nil {
		return "<nil>"
	}
	return string(in.Kind())
}
