package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"scholarshelf/internal/ratelimit"
	"scholarshelf/internal/util"
	"scholarshelf/pkg/domain"
	"scholarshelf/pkg/store"
	"scholarshelf/services/share/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	SubmitLimiter *ratelimit.FixedWindowLimiter // optional
}

// Server exposes the share subsystem to the rest of the application. User
// authentication happens upstream at the gateway, which injects the
// verified user id as X-User-Id.
type Server struct {
	app           *app.App
	submitLimiter *ratelimit.FixedWindowLimiter
	mux           *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:           cfg.App,
		submitLimiter: cfg.SubmitLimiter,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("share", s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/shares", s.withUser(s.handleShares))
	s.mux.Handle("/shares/", s.withUser(s.handleShareSubpath))
	s.mux.Handle("/notifications", s.withUser(s.handleNotifications))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, userID)
	})
}

func (s *Server) handleShares(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.handleSubmit(w, r, userID)
}

// /shares/drain, /shares/inbox, /shares/sent and /shares/{side}/{id}[/action]
func (s *Server) handleShareSubpath(w http.ResponseWriter, r *http.Request, userID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/shares/")
	parts := strings.SplitN(rest, "/", 3)
	switch parts[0] {
	case "drain":
		s.handleDrain(w, r, userID)
	case "inbox":
		s.handleInbox(w, r, userID, parts[1:])
	case "sent":
		s.handleSent(w, r, userID, parts[1:])
	default:
		notFound(w)
	}
}

type submitPayload struct {
	ReceiverID    string       `json:"receiverId"`
	Receiver      domain.Party `json:"receiver"`
	Message       string       `json:"message"`
	SourceID      string       `json:"sourceId"`
	ReceiverEmail string       `json:"receiverEmail"`
	ReceiverPhone string       `json:"receiverPhone"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, userID string) {
	if s.submitLimiter != nil && !s.submitLimiter.Allow(userID) {
		writeError(w, http.StatusTooManyRequests, "too many submissions")
		return
	}
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	source, err := s.app.SourceReference(r.Context(), userID, payload.SourceID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeError(w, http.StatusNotFound, "source reference not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}
	env, err := s.app.Submit(r.Context(), userID, app.SubmitRequest{
		ReceiverID:    payload.ReceiverID,
		Receiver:      payload.Receiver,
		Message:       payload.Message,
		Source:        source,
		ReceiverEmail: payload.ReceiverEmail,
		ReceiverPhone: payload.ReceiverPhone,
	})
	if err != nil {
		if errors.Is(err, app.ErrTransportUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "delivery failed, retry")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"messageId": env.ID})
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.Drain(r.Context(), userID); err != nil {
		writeError(w, http.StatusServiceUnavailable, "drain failed, retry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "drained"})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request, userID string, parts []string) {
	if len(parts) == 0 || parts[0] == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		envs, err := s.app.Inbox(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "inbox unavailable")
			return
		}
		writeJSON(w, http.StatusOK, envs)
		return
	}
	id := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	switch {
	case action == "" && r.Method == http.MethodDelete:
		if err := s.app.Delete(r.Context(), userID, id, store.SideInbox); err != nil {
			writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case action == "claim" && r.Method == http.MethodPost:
		s.handleClaim(w, r, userID, id)
	case action == "read" && r.Method == http.MethodPost:
		s.handleMarkRead(w, r, userID, id)
	case action == "content" && r.Method == http.MethodGet:
		s.handleContent(w, r, userID, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request, userID, id string) {
	ref, err := s.app.Claim(r.Context(), userID, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, ref)
	case errors.Is(err, app.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "already claimed")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "message not found")
	default:
		writeError(w, http.StatusServiceUnavailable, "claim failed, retry")
	}
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, userID, id string) {
	if err := s.app.MarkRead(r.Context(), userID, id); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "mark read failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request, userID, id string) {
	kind := r.URL.Query().Get("kind")
	url, err := s.app.ContentURL(r.Context(), userID, id, kind)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeError(w, http.StatusNotFound, "content not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleSent(w http.ResponseWriter, r *http.Request, userID string, parts []string) {
	if len(parts) == 0 || parts[0] == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		envs, err := s.app.Sent(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "sent history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, envs)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.Delete(r.Context(), userID, parts[0], store.SideSent); err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Feed(r.Context(), userID))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
