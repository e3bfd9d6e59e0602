package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

type Server struct {
	svc *conversation.Service
}

func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /sessions/{id}          → GET: state + grouped timeline
	// /sessions/{id}/messages → POST: send message, DELETE: clear
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type displayMessageResponse struct {
	messageResponse
	domain.DisplayFlags
	TimeLabel string `json:"time_label"`
}

type displayGroupResponse struct {
	DayLabel string                   `json:"day_label"`
	Day      string                   `json:"day"`
	Messages []displayMessageResponse `json:"messages"`
}

type getSessionResponse struct {
	SessionID string                 `json:"session_id"`
	State     string                 `json:"state"`
	Groups    []displayGroupResponse `json:"groups"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage  messageResponse  `json:"user_message"`
	AgentMessage *messageResponse `json:"agent_message"`
	Source       string           `json:"source"`
	Discarded    bool             `json:"discarded"`
}

type clearSessionResponse struct {
	Greeting messageResponse `json:"greeting"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /sessions/{id} or /sessions/{id}/messages
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	id := parts[0]

	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, domain.SessionID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "messages" {
		switch r.Method {
		case http.MethodPost:
			s.handleSendMessage(w, r, domain.SessionID(id))
		case http.MethodDelete:
			s.handleClearSession(w, r, domain.SessionID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	tl, err := s.svc.GetSessionTimeline(r.Context(), id)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		SessionID: string(tl.SessionID),
		State:     string(tl.State),
		Groups:    toGroupsResponse(tl.Groups),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: id,
		Text:      req.Text,
	})
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		badRequest(w, "text is required")
		return
	case errors.Is(err, domain.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a reply is still pending"})
		return
	case err != nil:
		internalError(w, r, err)
		return
	}

	resp := sendMessageResponse{
		UserMessage: toMessageResponse(out.UserMessage),
		Source:      string(out.Source),
		Discarded:   out.Discarded,
	}
	if out.AgentMessage != nil {
		m := toMessageResponse(out.AgentMessage)
		resp.AgentMessage = &m
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	greeting, err := s.svc.ClearSession(r.Context(), id)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearSessionResponse{Greeting: toMessageResponse(greeting)})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		SessionID: string(m.SessionID),
		Author:    string(m.Author),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func toGroupsResponse(groups []domain.DisplayGroup) []displayGroupResponse {
	out := make([]displayGroupResponse, 0, len(groups))
	for _, g := range groups {
		msgs := make([]displayMessageResponse, 0, len(g.Messages))
		for _, dm := range g.Messages {
			msgs = append(msgs, displayMessageResponse{
				messageResponse: toMessageResponse(dm.Message),
				DisplayFlags:    dm.Flags,
				TimeLabel:       dm.TimeLabel,
			})
		}
		out = append(out, displayGroupResponse{
			DayLabel: g.DayLabel,
			Day:      g.Day.Format(time.DateOnly),
			Messages: msgs,
		})
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrMissingSession) {
		badRequest(w, err.Error())
		return
	}
	observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
