package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/user/chatcal/internal/types"
)

// DefaultRedirectURL sends the browser to a page that does not exist, leaving
// the code visible in the address bar for the user to copy into /auth.
const DefaultRedirectURL = "http://localhost"

// DefaultTimeout bounds a single request to Google.
const DefaultTimeout = 30 * time.Second

// ErrUnauthenticated means the chat has not linked a Google account yet.
var ErrUnauthenticated = errors.New("chat is unauthenticated, authentication is required")

// ErrMissingCode is returned by Authenticate for a blank code.
var ErrMissingCode = errors.New("authorization code is empty")

// TokenStore persists one OAuth token per chat. Get returns nil, nil when the
// chat has no token.
type TokenStore interface {
	Get(chatID types.ChatID) (*oauth2.Token, error)
	Put(chatID types.ChatID, token *oauth2.Token) error
	Delete(chatID types.ChatID) error
}

// AuthConfig holds the OAuth client registration.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Auth runs the copy-paste OAuth flow and hands out authorized HTTP clients.
type Auth struct {
	oauth   *oauth2.Config
	tokens  TokenStore
	timeout time.Duration
	logger  *slog.Logger
}

// NewAuth creates an Auth for the calendar events scope.
func NewAuth(cfg AuthConfig, tokens TokenStore) *Auth {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	return &Auth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     googleoauth.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
		tokens:  tokens,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
}

// WithEndpoint points the flow at another token server. Used by tests.
func (a *Auth) WithEndpoint(ep oauth2.Endpoint) *Auth {
	a.oauth.Endpoint = ep
	return a
}

// WithTimeout limits every request made for a chat, token refreshes and
// code exchanges included. Non-positive values keep the current limit.
func (a *Auth) WithTimeout(d time.Duration) *Auth {
	if d > 0 {
		a.timeout = d
	}
	return a
}

// AuthURL returns the consent page URL for chatID. Offline access with a
// forced prompt makes Google hand back a refresh token every time.
func (a *Auth) AuthURL(chatID types.ChatID) string {
	state := chatID.String() + "|" + uuid.New().String()
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Authenticate exchanges code for a token and stores it for chatID. The
// returned message is meant for the user.
func (a *Auth) Authenticate(ctx context.Context, chatID types.ChatID, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrMissingCode
	}

	ctx, cancel := context.WithTimeout(a.httpContext(ctx), a.timeout)
	defer cancel()

	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		a.logger.Warn("oauth code exchange failed", "chat_id", int64(chatID), "error", err)
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if err := a.tokens.Put(chatID, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	a.logger.Info("google account linked", "chat_id", int64(chatID))
	return "Google Calendar 연동이 완료되었습니다.", nil
}

// Unlink forgets the token stored for chatID. It reports whether there was
// one.
func (a *Auth) Unlink(chatID types.ChatID) (bool, error) {
	token, err := a.tokens.Get(chatID)
	if err != nil {
		return false, fmt.Errorf("read token: %w", err)
	}
	if token == nil {
		return false, nil
	}
	if err := a.tokens.Delete(chatID); err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	a.logger.Info("google account unlinked", "chat_id", int64(chatID))
	return true, nil
}

// IsAuthenticated reports whether a token is stored for chatID.
func (a *Auth) IsAuthenticated(chatID types.ChatID) bool {
	token, err := a.tokens.Get(chatID)
	if err != nil {
		a.logger.Error("reading token failed", "chat_id", int64(chatID), "error", err)
		return false
	}
	return token != nil
}

// Client returns an HTTP client that authorizes as chatID and writes
// refreshed tokens back to the store.
func (a *Auth) Client(ctx context.Context, chatID types.ChatID) (*http.Client, error) {
	token, err := a.tokens.Get(chatID)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if token == nil {
		return nil, ErrUnauthenticated
	}

	ctx = a.httpContext(ctx)
	src := &savingSource{
		src:    a.oauth.TokenSource(ctx, token),
		chatID: chatID,
		tokens: a.tokens,
		last:   token.AccessToken,
		logger: a.logger,
	}
	client := oauth2.NewClient(ctx, src)
	client.Timeout = a.timeout
	return client, nil
}

// httpContext carries the bounded client oauth2 uses for token requests.
func (a *Auth) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: a.timeout})
}

// savingSource persists a token whenever the wrapped source rotates it.
type savingSource struct {
	src    oauth2.TokenSource
	chatID types.ChatID
	tokens TokenStore
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.tokens.Put(s.chatID, token); err != nil {
			s.logger.Error("saving refreshed token failed", "chat_id", int64(s.chatID), "error", err)
		}
	}
	return token, nil
}
