package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/chatcal/internal/gateway"
	"github.com/user/chatcal/internal/types"
)

type mockSender struct {
	SendFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	sent     []tgbotapi.MessageConfig
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if cfg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, cfg)
	}
	if m.SendFunc != nil {
		return m.SendFunc(c)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockSender) texts() []string {
	var out []string
	for _, cfg := range m.sent {
		out = append(out, cfg.Text)
	}
	return out
}

// echoInbound answers synchronously with the kind and text it was given.
type echoInbound struct {
	err      error
	messages []*types.InboundMessage
}

func (e *echoInbound) HandleInbound(_ context.Context, msg *types.InboundMessage, opts ...gateway.RunOption) error {
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	run := gateway.NewRun(msg)
	for _, opt := range opts {
		opt(run)
	}
	run.OnComplete(string(msg.Kind) + ":" + msg.Text)
	return nil
}

type mockAuth struct {
	authenticated bool
	err           error
	codes         []string
	unlinkErr     error

	// AuthenticateFunc replaces the canned exchange when set.
	AuthenticateFunc func(ctx context.Context, code string) (string, error)
}

func (m *mockAuth) IsAuthenticated(types.ChatID) bool { return m.authenticated }

func (m *mockAuth) AuthURL(chatID types.ChatID) string {
	return "https://accounts.example/auth?state=" + chatID.String()
}

func (m *mockAuth) Authenticate(ctx context.Context, _ types.ChatID, code string) (string, error) {
	m.codes = append(m.codes, code)
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, code)
	}
	if m.err != nil {
		return "", m.err
	}
	return "연동 완료", nil
}

func (m *mockAuth) Unlink(types.ChatID) (bool, error) {
	if m.unlinkErr != nil {
		return false, m.unlinkErr
	}
	was := m.authenticated
	m.authenticated = false
	return was, nil
}

func newTestAdapter(auth *mockAuth, inbound *echoInbound) (*Adapter, *mockSender) {
	sender := &mockSender{}
	a := NewWithSender(sender, inbound, auth)
	a.SetRetryPolicy(&gateway.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond})
	return a, sender
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: 555},
	}
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	msg := textMessage(chatID, text)
	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func TestFreeTextGoesThroughGateway(t *testing.T) {
	inbound := &echoInbound{}
	a, sender := newTestAdapter(&mockAuth{authenticated: true}, inbound)

	a.handleMessage(context.Background(), textMessage(42, "내일 오후 3시에 팀 회의"))

	if len(inbound.messages) != 1 {
		t.Fatalf("expected 1 inbound message, got %d", len(inbound.messages))
	}
	in := inbound.messages[0]
	if in.ChatID != 42 || in.Kind != types.MessageText || in.UserID != "555" || in.Source != "telegram" {
		t.Errorf("unexpected inbound %+v", in)
	}
	if got := sender.texts(); len(got) != 1 || got[0] != "text:내일 오후 3시에 팀 회의" {
		t.Errorf("unexpected replies %v", got)
	}
	if sender.sent[0].ChatID != 42 || sender.sent[0].ParseMode != "" {
		t.Errorf("expected plain reply to chat 42, got %+v", sender.sent[0])
	}
}

func TestTodayCommandUsesShortcut(t *testing.T) {
	inbound := &echoInbound{}
	a, _ := newTestAdapter(&mockAuth{authenticated: true}, inbound)

	a.handleMessage(context.Background(), commandMessage(42, "/today"))

	if len(inbound.messages) != 1 || inbound.messages[0].Kind != types.MessageToday {
		t.Fatalf("expected a today message, got %+v", inbound.messages)
	}
}

func TestStartCommand(t *testing.T) {
	auth := &mockAuth{}
	a, sender := newTestAdapter(auth, &echoInbound{})

	a.handleMessage(context.Background(), commandMessage(42, "/start"))
	if got := sender.texts(); len(got) != 1 || !strings.Contains(got[0], "https://accounts.example/auth?state=42") {
		t.Errorf("expected consent link, got %v", got)
	}

	auth.authenticated = true
	a.handleMessage(context.Background(), commandMessage(42, "/start"))
	if got := sender.texts(); got[1] != replyWelcomeBack {
		t.Errorf("expected welcome back, got %q", got[1])
	}
}

func TestAuthCommand(t *testing.T) {
	auth := &mockAuth{}
	a, sender := newTestAdapter(auth, &echoInbound{})

	a.handleMessage(context.Background(), commandMessage(42, "/auth"))
	if got := sender.texts(); len(got) != 1 || got[0] != replyAuthUsage {
		t.Fatalf("expected usage, got %v", got)
	}
	if len(auth.codes) != 0 {
		t.Fatal("Authenticate should not run without a code")
	}

	a.handleMessage(context.Background(), commandMessage(42, "/auth 4/0AX4XfWh"))
	a.authWG.Wait()
	got := sender.texts()
	if len(got) != 3 || got[1] != replyAuthPending || !strings.HasPrefix(got[2], "✅ 인증 성공!\n연동 완료") {
		t.Errorf("unexpected replies %v", got)
	}
	if auth.codes[0] != "4/0AX4XfWh" {
		t.Errorf("expected code to be passed through, got %q", auth.codes[0])
	}

	auth.err = errors.New("invalid_grant")
	a.handleMessage(context.Background(), commandMessage(42, "/auth bad"))
	a.authWG.Wait()
	if got := sender.texts(); got[len(got)-1] != replyAuthFailed {
		t.Errorf("expected failure reply, got %q", got[len(got)-1])
	}
}

func TestAuthDoesNotBlockOtherChats(t *testing.T) {
	release := make(chan struct{})
	auth := &mockAuth{AuthenticateFunc: func(ctx context.Context, _ string) (string, error) {
		select {
		case <-release:
			return "연동 완료", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	inbound := &echoInbound{}
	a, _ := newTestAdapter(auth, inbound)

	returned := make(chan struct{})
	go func() {
		a.handleMessage(context.Background(), commandMessage(42, "/auth slow-code"))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("/auth held up the update loop")
	}

	close(release)
	a.authWG.Wait()
}

func TestAuthExchangeIsBounded(t *testing.T) {
	auth := &mockAuth{AuthenticateFunc: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	a, sender := newTestAdapter(auth, &echoInbound{})
	a.SetAuthTimeout(20 * time.Millisecond)

	a.handleMessage(context.Background(), commandMessage(42, "/auth never-answers"))

	done := make(chan struct{})
	go func() {
		a.authWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("authentication was not cut off")
	}
	if got := sender.texts(); got[len(got)-1] != replyAuthFailed {
		t.Errorf("expected failure reply, got %v", got)
	}
}

func TestLogoutCommand(t *testing.T) {
	auth := &mockAuth{authenticated: true}
	a, sender := newTestAdapter(auth, &echoInbound{})

	a.handleMessage(context.Background(), commandMessage(42, "/logout"))
	a.handleMessage(context.Background(), commandMessage(42, "/logout"))

	got := sender.texts()
	if len(got) != 2 || got[0] != replyLoggedOut || got[1] != replyNotLinked {
		t.Errorf("unexpected replies %v", got)
	}

	auth.unlinkErr = errors.New("disk full")
	a.handleMessage(context.Background(), commandMessage(42, "/logout"))
	if got := sender.texts(); got[len(got)-1] != replyBusy {
		t.Errorf("expected busy reply, got %q", got[len(got)-1])
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	inbound := &echoInbound{}
	a, sender := newTestAdapter(&mockAuth{}, inbound)

	a.handleMessage(context.Background(), commandMessage(42, "/settings"))
	if len(sender.sent) != 0 || len(inbound.messages) != 0 {
		t.Errorf("expected no reply and no inbound, got %v / %v", sender.texts(), inbound.messages)
	}
}

func TestInboundFailure(t *testing.T) {
	a, sender := newTestAdapter(&mockAuth{}, &echoInbound{err: errors.New("queue full")})

	a.handleMessage(context.Background(), textMessage(42, "hi"))
	if got := sender.texts(); len(got) != 1 || got[0] != replyBusy {
		t.Errorf("expected busy reply, got %v", got)
	}
}

func TestSendRetriesTransientErrors(t *testing.T) {
	a, sender := newTestAdapter(&mockAuth{}, &echoInbound{})
	calls := 0
	sender.SendFunc = func(tgbotapi.Chattable) (tgbotapi.Message, error) {
		calls++
		if calls < 3 {
			return tgbotapi.Message{}, errors.New("Too Many Requests: retry after 1")
		}
		return tgbotapi.Message{}, nil
	}

	if err := a.Send(42, "hello"); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestSendPermanentError(t *testing.T) {
	a, sender := newTestAdapter(&mockAuth{}, &echoInbound{})
	sender.SendFunc = func(tgbotapi.Chattable) (tgbotapi.Message, error) {
		return tgbotapi.Message{}, errors.New("Bad Request: chat not found")
	}

	if err := a.Send(42, "hello"); err == nil {
		t.Fatal("expected error")
	}
	if len(sender.sent) != 1 {
		t.Errorf("expected a single attempt, got %d", len(sender.sent))
	}
}

func TestSendSkipsEmpty(t *testing.T) {
	a, sender := newTestAdapter(&mockAuth{}, &echoInbound{})
	if err := a.Send(42, "  \n"); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected nothing sent, got %d", len(sender.sent))
	}
}

func TestSplitMessage(t *testing.T) {
	short := "Hello world"
	parts := splitMessage(short)
	if len(parts) != 1 || parts[0] != short {
		t.Fatalf("expected %q as one part, got %v", short, parts)
	}
}

func TestSplitMessageLong(t *testing.T) {
	long := strings.Repeat("a", 5000)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("expected first part length %d, got %d", maxTelegramMessage, len(parts[0]))
	}
}

func TestSplitMessageKeepsRunesWhole(t *testing.T) {
	// Hangul syllables are three bytes each; 4096 is not a multiple of three.
	long := strings.Repeat("일", 3000)
	parts := splitMessage(long)
	if strings.Join(parts, "") != long {
		t.Fatal("parts do not reassemble the original")
	}
	for i, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %d is not valid UTF-8", i)
		}
		if len(p) > maxTelegramMessage {
			t.Errorf("part %d is %d bytes", i, len(p))
		}
	}
}

func TestSplitMessagePrefersLineBreaks(t *testing.T) {
	line := strings.Repeat("x", 99) + "\n"
	long := strings.Repeat(line, 50)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if !strings.HasSuffix(parts[0], "\n") {
		t.Error("expected first part to end at a line break")
	}
}
