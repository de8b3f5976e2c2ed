package state

import (
	"strconv"
	"sync"

	"golang.org/x/oauth2"

	"github.com/user/chatcal/internal/types"
)

// TokenStore keeps one OAuth token per chat in a single JSON object keyed by
// chat id. The file holds refresh tokens and is written owner-only.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore creates a new file-backed TokenStore at the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Get returns the token for chatID, or nil when none is stored.
func (s *TokenStore) Get(chatID types.ChatID) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return nil, err
	}
	return tokens[chatKey(chatID)], nil
}

// Put stores or replaces the token for chatID.
func (s *TokenStore) Put(chatID types.ChatID, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}
	tokens[chatKey(chatID)] = token
	return writeJSON(s.path, tokens, 0o600)
}

// Delete forgets the token for chatID. Deleting a missing token is not an error.
func (s *TokenStore) Delete(chatID types.ChatID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := tokens[chatKey(chatID)]; !ok {
		return nil
	}
	delete(tokens, chatKey(chatID))
	return writeJSON(s.path, tokens, 0o600)
}

func (s *TokenStore) load() (map[string]*oauth2.Token, error) {
	tokens := map[string]*oauth2.Token{}
	if _, err := readJSON(s.path, &tokens); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = map[string]*oauth2.Token{}
	}
	return tokens, nil
}

func chatKey(chatID types.ChatID) string {
	return strconv.FormatInt(int64(chatID), 10)
}
