package gateway

import (
	"context"
	"fmt"

	"github.com/user/chatcal/internal/types"
)

// Handler produces the reply for one message. *dispatch.Dispatcher
// implements it.
type Handler interface {
	HandleUserMessage(ctx context.Context, chatID types.ChatID, text string) string
	HandleTodayShortcut(ctx context.Context, chatID types.ChatID) string
}

// Gateway serializes inbound messages per chat and hands them to a Handler.
type Gateway struct {
	handler Handler
	Queue   *Queue

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway over handler. maxConcurrent bounds how many chats
// are served at once and defaults to 2.
func New(handler Handler, maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	g := &Gateway{
		handler: handler,
		Queue:   NewQueue(concurrency),
	}
	g.Queue.SetProcessor(g.process)
	return g
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context and stops the queue.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnComplete sets a callback invoked with the run's reply.
func WithOnComplete(fn func(string)) RunOption {
	return func(r *Run) { r.OnComplete = fn }
}

// HandleInbound wraps msg in a Run and enqueues it on its chat's lane.
func (g *Gateway) HandleInbound(ctx context.Context, msg *types.InboundMessage, opts ...RunOption) error {
	run := NewRun(msg)
	for _, opt := range opts {
		opt(run)
	}
	return g.Queue.Enqueue(run)
}

// Ask enqueues msg and waits for its reply, so callers outside a chat
// transport still respect the chat's ordering.
func (g *Gateway) Ask(ctx context.Context, msg *types.InboundMessage) (string, error) {
	replies := make(chan string, 1)
	if err := g.HandleInbound(ctx, msg, WithOnComplete(func(reply string) { replies <- reply })); err != nil {
		return "", err
	}
	select {
	case reply := <-replies:
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Gateway) process(run *Run) error {
	ctx := run.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var reply string
	switch run.Message.Kind {
	case types.MessageText, "":
		reply = g.handler.HandleUserMessage(ctx, run.ChatID, run.Message.Text)
	case types.MessageToday:
		reply = g.handler.HandleTodayShortcut(ctx, run.ChatID)
	default:
		return fmt.Errorf("unknown message kind %q", run.Message.Kind)
	}

	if run.OnComplete != nil {
		run.OnComplete(reply)
	}
	return nil
}
