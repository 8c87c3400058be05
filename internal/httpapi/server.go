package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/roundtable/internal/config"
	"github.com/antoniostano/roundtable/internal/discussion"
	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/session"
	"github.com/antoniostano/roundtable/internal/transcript"
)

// Controller is the slice of the orchestrator the API can drive.
type Controller interface {
	Pause() error
	Resume() error
	UpdateTopic(topic string) error
}

// Server exposes the observer API: session state, the live transcript (plain
// and websocket), moderation controls, and the archive when one is configured.
type Server struct {
	cfg        config.Config
	tracker    *session.Tracker
	controller Controller
	hub        *Hub
	archive    *transcript.PostgresStore
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, tracker *session.Tracker, controller Controller, hub *Hub, archive *transcript.PostgresStore, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:        cfg,
		tracker:    tracker,
		controller: controller,
		hub:        hub,
		archive:    archive,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly
				// opened up; non-browser clients omit Origin and pass.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		s.metrics.Handler().ServeHTTP(w, req)
	})

	r.Get("/v1/session", s.handleSession)
	r.Post("/v1/session/pause", s.handlePause)
	r.Post("/v1/session/resume", s.handleResume)
	r.Post("/v1/session/topic", s.handleTopic)
	r.Get("/v1/transcript", s.handleTranscript)
	r.Get("/v1/transcript/ws", s.handleTranscriptWS)
	r.Get("/v1/archive/{id}", s.handleArchive)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"archive_enabled": s.archive != nil,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.control(w, func() error { return s.controller.Pause() })
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	s.control(w, func() error { return s.controller.Resume() })
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s.control(w, func() error { return s.controller.UpdateTopic(req.Topic) })
}

func (s *Server) control(w http.ResponseWriter, fn func() error) {
	if s.controller == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "controller not configured")
		return
	}
	switch err := fn(); {
	case err == nil:
		respondJSON(w, http.StatusOK, s.tracker.Snapshot())
	case errors.Is(err, discussion.ErrNotRunning):
		respondError(w, http.StatusConflict, "not_running", err.Error())
	case errors.Is(err, discussion.ErrEmptyTopic):
		respondError(w, http.StatusBadRequest, "empty_topic", err.Error())
	case errors.Is(err, discussion.ErrControlBacklog):
		respondError(w, http.StatusTooManyRequests, "control_backlog", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "control_failed", err.Error())
	}
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	turns := s.hub.Turns()
	respondJSON(w, http.StatusOK, map[string]any{
		"session": s.tracker.Snapshot(),
		"turns":   turns,
		"count":   len(turns),
	})
}

func (s *Server) handleTranscriptWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, snapshot, cancel := s.hub.Subscribe()
	defer cancel()

	// Replay the transcript so far, then stream.
	for i := range snapshot {
		ev := Event{Type: eventTurn, Speaker: snapshot[i].Speaker, Turn: &snapshot[i]}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}

	// Reads are only used to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(1 << 16)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		respondError(w, http.StatusNotImplemented, "archive_disabled", "no database configured")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.archive.RecentTurns(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_query_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"turns":      records,
		"count":      len(records),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
