package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/user/chatcal/internal/temporal"
	"github.com/user/chatcal/internal/types"
)

var kst = time.FixedZone("KST", 9*60*60)

// fakeCalendar is an in-memory stand-in for the events endpoints.
type fakeCalendar struct {
	mu       sync.Mutex
	items    []*gcal.Event
	inserted []*gcal.Event
	patched  map[string]*gcal.Event
	deleted  []string
	queries  []url.Values
	fail     int
	failMsg  string
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.fail)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": f.fail, "message": f.failMsg},
		})
		return
	}

	_, rest, ok := strings.Cut(r.URL.Path, "/events")
	if !ok {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(rest, "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		f.queries = append(f.queries, r.URL.Query())
		json.NewEncoder(w).Encode(&gcal.Events{Items: f.items})
	case r.Method == http.MethodPost && id == "":
		var ev gcal.Event
		json.NewDecoder(r.Body).Decode(&ev)
		ev.Id = "new-1"
		f.inserted = append(f.inserted, &ev)
		json.NewEncoder(w).Encode(&ev)
	case r.Method == http.MethodPatch:
		var ev gcal.Event
		json.NewDecoder(r.Body).Decode(&ev)
		if f.patched == nil {
			f.patched = map[string]*gcal.Event{}
		}
		f.patched[id] = &ev
		out := ev
		out.Id = id
		if out.Summary == "" {
			for _, item := range f.items {
				if item.Id == id {
					out.Summary = item.Summary
				}
			}
		}
		json.NewEncoder(w).Encode(&out)
	case r.Method == http.MethodDelete:
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected "+r.Method, http.StatusMethodNotAllowed)
	}
}

// staticAuth authorizes every chat except those listed as locked out.
type staticAuth struct {
	client    *http.Client
	lockedOut map[types.ChatID]bool
}

func (a *staticAuth) IsAuthenticated(chatID types.ChatID) bool { return !a.lockedOut[chatID] }

func (a *staticAuth) Client(_ context.Context, chatID types.ChatID) (*http.Client, error) {
	if a.lockedOut[chatID] {
		return nil, ErrUnauthenticated
	}
	return a.client, nil
}

// hungServer accepts requests and never answers them.
func hungServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func newTestBackend(t *testing.T, fake *fakeCalendar) *Backend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	clock := &temporal.FixedClock{FixedNow: time.Date(2024, 1, 3, 10, 0, 0, 0, kst)}
	return NewBackend(&staticAuth{client: srv.Client()},
		WithLocation(kst),
		WithClock(clock),
		WithClientOptions(option.WithEndpoint(srv.URL+"/")),
	)
}

func timedEvent(id, summary, start, end string) *gcal.Event {
	return &gcal.Event{
		Id:      id,
		Summary: summary,
		Start:   &gcal.EventDateTime{DateTime: start},
		End:     &gcal.EventDateTime{DateTime: end},
	}
}
