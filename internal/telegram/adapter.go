// Package telegram connects the bot's Telegram chats to the gateway.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/chatcal/internal/gateway"
	"github.com/user/chatcal/internal/types"
)

const (
	maxTelegramMessage = 4096
	defaultAuthTimeout = time.Minute
)

// Sender is the part of *tgbotapi.BotAPI used for replies.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Inbound accepts messages for processing. *gateway.Gateway implements it.
type Inbound interface {
	HandleInbound(ctx context.Context, msg *types.InboundMessage, opts ...gateway.RunOption) error
}

// Authenticator runs the account linking flow behind /start, /auth and
// /logout.
type Authenticator interface {
	IsAuthenticated(chatID types.ChatID) bool
	AuthURL(chatID types.ChatID) string
	Authenticate(ctx context.Context, chatID types.ChatID, code string) (string, error)
	Unlink(chatID types.ChatID) (bool, error)
}

// Adapter bridges Telegram to the gateway.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	sender  Sender
	inbound Inbound
	auth    Authenticator
	retry   *gateway.RetryPolicy
	logger  *slog.Logger

	authTimeout time.Duration
	authWG      sync.WaitGroup
}

// New creates a Telegram adapter that long-polls with token.
func New(token string, inbound Inbound, auth Authenticator) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	a := NewWithSender(bot, inbound, auth)
	a.bot = bot
	return a, nil
}

// NewWithSender creates an adapter that only sends. Start needs an adapter
// built by New.
func NewWithSender(sender Sender, inbound Inbound, auth Authenticator) *Adapter {
	return &Adapter{
		sender:  sender,
		inbound: inbound,
		auth:    auth,
		retry:   gateway.DefaultRetryPolicy(),
		logger:  slog.Default().With("component", "telegram"),

		authTimeout: defaultAuthTimeout,
	}
}

// SetRetryPolicy replaces the policy used for outbound sends.
func (a *Adapter) SetRetryPolicy(p *gateway.RetryPolicy) {
	a.retry = p
}

// SetAuthTimeout bounds the code exchange behind /auth.
func (a *Adapter) SetAuthTimeout(d time.Duration) {
	if d > 0 {
		a.authTimeout = d
	}
}

// Start begins long-polling for Telegram updates and returns when ctx is done.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	a.logger.Info("telegram polling started", "bot", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			a.authWG.Wait()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(ctx, msg)
		return
	}
	a.enqueue(ctx, msg, types.MessageText)
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := types.ChatID(msg.Chat.ID)

	switch msg.Command() {
	case "start":
		if a.auth.IsAuthenticated(chatID) {
			a.reply(chatID, replyWelcomeBack)
			return
		}
		a.reply(chatID, fmt.Sprintf(replyWelcomeFormat, a.auth.AuthURL(chatID)))

	case "auth":
		code := strings.TrimSpace(msg.CommandArguments())
		if code == "" {
			a.reply(chatID, replyAuthUsage)
			return
		}
		a.reply(chatID, replyAuthPending)
		a.authWG.Add(1)
		go func() {
			defer a.authWG.Done()
			a.authenticate(ctx, chatID, code)
		}()

	case "logout":
		removed, err := a.auth.Unlink(chatID)
		switch {
		case err != nil:
			a.logger.Error("unlink failed", "chat_id", int64(chatID), "error", err)
			a.reply(chatID, replyBusy)
		case removed:
			a.reply(chatID, replyLoggedOut)
		default:
			a.reply(chatID, replyNotLinked)
		}

	case "today":
		a.enqueue(ctx, msg, types.MessageToday)

	default:
		a.logger.Debug("ignoring unknown command", "chat_id", int64(chatID), "command", msg.Command())
	}
}

// authenticate runs off the polling loop so a slow token endpoint only
// delays the chat that sent /auth.
func (a *Adapter) authenticate(ctx context.Context, chatID types.ChatID, code string) {
	ctx, cancel := context.WithTimeout(ctx, a.authTimeout)
	defer cancel()

	detail, err := a.auth.Authenticate(ctx, chatID, code)
	if err != nil {
		a.logger.Warn("authentication failed", "chat_id", int64(chatID), "error", err)
		a.reply(chatID, replyAuthFailed)
		return
	}
	a.reply(chatID, fmt.Sprintf(replyAuthSuccessFormat, detail))
}

func (a *Adapter) enqueue(ctx context.Context, msg *tgbotapi.Message, kind types.MessageKind) {
	chatID := types.ChatID(msg.Chat.ID)
	in := &types.InboundMessage{
		Source: "telegram",
		ChatID: chatID,
		Kind:   kind,
		Text:   msg.Text,
	}
	if msg.From != nil {
		in.UserID = strconv.FormatInt(msg.From.ID, 10)
	}

	err := a.inbound.HandleInbound(ctx, in, gateway.WithOnComplete(func(reply string) {
		a.reply(chatID, reply)
	}))
	if err != nil {
		a.logger.Error("handle inbound failed", "chat_id", int64(chatID), "error", err)
		a.reply(chatID, replyBusy)
	}
}

func (a *Adapter) reply(chatID types.ChatID, text string) {
	if err := a.Send(chatID, text); err != nil {
		a.logger.Error("send message failed", "chat_id", int64(chatID), "error", err)
	}
}

// Send delivers text as plain messages, split to Telegram's size limit.
// Each part is retried on transient errors.
func (a *Adapter) Send(chatID types.ChatID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(int64(chatID), part)
		err := a.retry.Execute(func() error {
			_, err := a.sender.Send(msg)
			return err
		})
		if err != nil {
			return fmt.Errorf("send to chat %s: %w", chatID, err)
		}
	}
	return nil
}

// splitMessage cuts text into parts of at most maxTelegramMessage bytes,
// preferring line breaks and never splitting a rune.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > maxTelegramMessage {
		end := maxTelegramMessage
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		if nl := strings.LastIndexByte(text[:end], '\n'); nl > maxTelegramMessage/2 {
			end = nl + 1
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
