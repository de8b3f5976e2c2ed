// Package scheduler pushes daily briefings: on each cron tick a chat's
// agenda for today is looked up and delivered to that chat.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/chatcal/internal/state"
	"github.com/user/chatcal/internal/types"
)

// fireTimeout bounds one briefing, including the wait behind the chat's
// other queued messages.
const fireTimeout = 2 * time.Minute

// Asker answers a message in order with the chat's other messages.
// *gateway.Gateway implements it.
type Asker interface {
	Ask(ctx context.Context, msg *types.InboundMessage) (string, error)
}

// Deliverer sends a message to a delivery key. *delivery.Registry implements it.
type Deliverer interface {
	Deliver(key types.DeliveryKey, message string) error
}

// Scheduler evaluates cron expressions from the briefing store and fires
// briefings through the gateway.
type Scheduler struct {
	store    *state.BriefingStore
	asker    Asker
	out      Deliverer
	location *time.Location

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates schedules in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether expr is a schedule Start would accept.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// New creates a Scheduler backed by the given briefing store.
func New(store *state.BriefingStore, asker Asker, out Deliverer, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		asker:    asker,
		out:      out,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = s.newCron()
	return s
}

func (s *Scheduler) newCron() *cron.Cron {
	return cron.New(cron.WithParser(cronParser), cron.WithLocation(s.location))
}

// Start loads briefings from the store, registers the enabled ones that have
// a schedule, and starts the cron ticker.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start()
}

func (s *Scheduler) start() error {
	briefings, err := s.store.List()
	if err != nil {
		return err
	}

	for _, b := range briefings {
		if b.Schedule == "" || !b.Enabled {
			continue
		}

		briefing := *b
		_, err := s.cron.AddFunc(briefing.Schedule, func() {
			slog.Info("cron firing briefing", "name", briefing.Name, "chat_id", int64(briefing.ChatID))
			ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
			defer cancel()
			if _, err := s.Fire(ctx, briefing); err != nil {
				slog.Error("briefing failed", "name", briefing.Name, "error", err)
			}
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", briefing.Name, "schedule", briefing.Schedule, "error", err)
			continue
		}
		slog.Info("scheduled briefing", "name", briefing.Name, "schedule", briefing.Schedule)
	}

	s.cron.Start()
	return nil
}

// Fire runs one briefing now: today's agenda for the briefing's chat is
// produced through the gateway and delivered to that chat. The delivered
// text is returned.
func (s *Scheduler) Fire(ctx context.Context, b state.Briefing) (string, error) {
	reply, err := s.asker.Ask(ctx, &types.InboundMessage{
		Source: "scheduler",
		ChatID: b.ChatID,
		Kind:   types.MessageToday,
	})
	if err != nil {
		return "", fmt.Errorf("briefing %s: %w", b.Name, err)
	}
	if err := s.out.Deliver(types.TelegramKey(b.ChatID), reply); err != nil {
		return "", fmt.Errorf("deliver briefing %s: %w", b.Name, err)
	}
	return reply, nil
}

// Reload stops the existing cron, creates a new one, and registers the
// briefings again.
func (s *Scheduler) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.cron = s.newCron()
	return s.start()
}

// Stop stops the cron ticker and waits for running briefings to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	<-c.Stop().Done()
}
