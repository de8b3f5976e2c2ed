package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/user/chatcal/internal/types"
)

// ErrBriefingNotFound is wrapped by every lookup of an unknown briefing.
var ErrBriefingNotFound = errors.New("briefing not found")

// Briefing pushes a chat's agenda for the day on a cron schedule. A briefing
// without a schedule only runs when triggered over HTTP.
type Briefing struct {
	Name     string       `json:"name"`
	Schedule string       `json:"schedule,omitempty"`
	ChatID   types.ChatID `json:"chat_id"`
	Enabled  bool         `json:"enabled"`
}

// BriefingStore is a JSON-file-backed store for briefings.
type BriefingStore struct {
	path string
	mu   sync.RWMutex
}

// NewBriefingStore creates a new file-backed BriefingStore at the given file path.
func NewBriefingStore(path string) *BriefingStore {
	return &BriefingStore{path: path}
}

// Path returns the file path used by this store.
func (s *BriefingStore) Path() string {
	return s.path
}

// List returns all briefings. Returns an empty slice if the file doesn't exist.
func (s *BriefingStore) List() ([]*Briefing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	briefings, err := s.load()
	if err != nil {
		return nil, err
	}
	if briefings == nil {
		return []*Briefing{}, nil
	}
	return briefings, nil
}

// Get finds a briefing by name.
func (s *BriefingStore) Get(name string) (*Briefing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	briefings, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, b := range briefings {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBriefingNotFound, name)
}

// Add appends a briefing. Names are unique.
func (s *BriefingStore) Add(b *Briefing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	briefings, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range briefings {
		if existing.Name == b.Name {
			return fmt.Errorf("briefing already exists: %s", b.Name)
		}
	}
	return s.save(append(briefings, b))
}

// Remove deletes a briefing by name.
func (s *BriefingStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	briefings, err := s.load()
	if err != nil {
		return err
	}
	for i, b := range briefings {
		if b.Name == name {
			return s.save(append(briefings[:i], briefings[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", ErrBriefingNotFound, name)
}

// SetEnabled toggles the enabled flag for a briefing.
func (s *BriefingStore) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	briefings, err := s.load()
	if err != nil {
		return err
	}
	for _, b := range briefings {
		if b.Name == name {
			b.Enabled = enabled
			return s.save(briefings)
		}
	}
	return fmt.Errorf("%w: %s", ErrBriefingNotFound, name)
}

func (s *BriefingStore) load() ([]*Briefing, error) {
	var briefings []*Briefing
	if _, err := readJSON(s.path, &briefings); err != nil {
		return nil, err
	}
	return briefings, nil
}

func (s *BriefingStore) save(briefings []*Briefing) error {
	return writeJSON(s.path, briefings, 0o644)
}
