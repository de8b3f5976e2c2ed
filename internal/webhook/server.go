// Package webhook exposes the bot over HTTP for scripts and health checks.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/user/chatcal/internal/state"
	"github.com/user/chatcal/internal/types"
)

// Asker answers a message in order with the chat's other messages.
// *gateway.Gateway implements it.
type Asker interface {
	Ask(ctx context.Context, msg *types.InboundMessage) (string, error)
}

// BriefingFunc runs one briefing now and returns the delivered text.
type BriefingFunc func(ctx context.Context, b state.Briefing) (string, error)

// Server is a lightweight HTTP handler for the bot's endpoints.
type Server struct {
	asker     Asker
	briefings *state.BriefingStore
	brief     BriefingFunc
	router    *mux.Router
}

// NewServer creates a Server. briefings and brief may be nil, in which case
// the briefing trigger answers 503.
func NewServer(asker Asker, briefings *state.BriefingStore, brief BriefingFunc) *Server {
	s := &Server{
		asker:     asker,
		briefings: briefings,
		brief:     brief,
		router:    mux.NewRouter(),
	}
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/message", s.handleMessage).Methods(http.MethodPost)
	s.router.HandleFunc("/today", s.handleToday).Methods(http.MethodPost)
	s.router.HandleFunc("/briefings/{name}", s.handleBriefing).Methods(http.MethodPost)
	return s
}

// ServeHTTP delegates to the router, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// messageRequest is the JSON body for POST /message and POST /today.
type messageRequest struct {
	ChatID types.ChatID `json:"chat_id"`
	Text   string       `json:"text"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ChatID == 0 || req.Text == "" {
		writeError(w, http.StatusBadRequest, "chat_id and text are required")
		return
	}
	s.ask(w, r, &types.InboundMessage{Source: "http", ChatID: req.ChatID, Kind: types.MessageText, Text: req.Text})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	s.ask(w, r, &types.InboundMessage{Source: "http", ChatID: req.ChatID, Kind: types.MessageToday})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, msg *types.InboundMessage) {
	reply, err := s.asker.Ask(r.Context(), msg)
	if err != nil {
		slog.Error("webhook ask failed", "chat_id", int64(msg.ChatID), "kind", string(msg.Kind), "error", err)
		writeError(w, http.StatusServiceUnavailable, "unable to process message")
		return
	}
	writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	if s.briefings == nil || s.brief == nil {
		writeError(w, http.StatusServiceUnavailable, "briefings not configured")
		return
	}
	name := mux.Vars(r)["name"]

	b, err := s.briefings.Get(name)
	if errors.Is(err, state.ErrBriefingNotFound) {
		writeError(w, http.StatusNotFound, "briefing not found")
		return
	}
	if err != nil {
		slog.Error("load briefing failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !b.Enabled {
		writeError(w, http.StatusForbidden, "briefing is disabled")
		return
	}

	reply, err := s.brief(r.Context(), *b)
	if err != nil {
		slog.Error("webhook briefing failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
