package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/user/chatcal/internal/types"
)

type fakeHandler struct {
	mu    sync.Mutex
	calls []string
}

func (h *fakeHandler) HandleUserMessage(_ context.Context, chatID types.ChatID, text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "text:"+text)
	return "reply to " + text
}

func (h *fakeHandler) HandleTodayShortcut(_ context.Context, chatID types.ChatID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "today")
	return "today for " + chatID.String()
}

func TestGatewayHandleInbound(t *testing.T) {
	handler := &fakeHandler{}
	gw := New(handler)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	replies := make(chan string, 1)
	err := gw.HandleInbound(ctx, &types.InboundMessage{
		Source: "test", ChatID: 123, Kind: types.MessageText, Text: "hello",
	}, WithOnComplete(func(r string) { replies <- r }))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-replies:
		if r != "reply to hello" {
			t.Errorf("unexpected reply %q", r)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestGatewayAsk(t *testing.T) {
	handler := &fakeHandler{}
	gw := New(handler, 4)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	reply, err := gw.Ask(ctx, &types.InboundMessage{Source: "http", ChatID: 9, Kind: types.MessageToday})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "today for 9" {
		t.Errorf("unexpected reply %q", reply)
	}
}

func TestGatewayOrderingPerChat(t *testing.T) {
	handler := &fakeHandler{}
	gw := New(handler)
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var replies []string
	for _, text := range []string{"1", "2", "3", "4"} {
		wg.Add(1)
		err := gw.HandleInbound(ctx, &types.InboundMessage{ChatID: 1, Kind: types.MessageText, Text: text},
			WithOnComplete(func(r string) {
				mu.Lock()
				replies = append(replies, r)
				mu.Unlock()
				wg.Done()
			}))
		if err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	want := []string{"reply to 1", "reply to 2", "reply to 3", "reply to 4"}
	for i := range want {
		if replies[i] != want[i] {
			t.Errorf("reply %d = %q, want %q", i, replies[i], want[i])
		}
	}
}

func TestGatewayUnknownKind(t *testing.T) {
	gw := New(&fakeHandler{})
	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	reply, err := gw.Ask(ctx, &types.InboundMessage{ChatID: 1, Kind: "sticker"})
	if err != nil {
		t.Fatal(err)
	}
	if reply != GenericFailureReply {
		t.Errorf("expected generic failure reply, got %q", reply)
	}
}

func TestGatewayAskCancelled(t *testing.T) {
	block := make(chan struct{})
	gw := New(blockingHandler{block})
	gw.Start(context.Background())
	defer gw.Stop()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := gw.Ask(ctx, &types.InboundMessage{ChatID: 1, Kind: types.MessageText, Text: "x"}); err == nil {
		t.Fatal("expected context error")
	}
}

type blockingHandler struct{ block chan struct{} }

func (h blockingHandler) HandleUserMessage(context.Context, types.ChatID, string) string {
	<-h.block
	return ""
}

func (h blockingHandler) HandleTodayShortcut(context.Context, types.ChatID) string { return "" }
