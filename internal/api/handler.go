// Package api exposes the gateway's boundary: the realtime websocket
// endpoint and a thin JSON surface for session control and outbound
// sends.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wappgate/wappgate/internal/dispatch"
	"github.com/wappgate/wappgate/internal/domain"
	"github.com/wappgate/wappgate/internal/realtime"
	"github.com/wappgate/wappgate/internal/session"
)

type Handler struct {
	controller *session.Controller
	dispatcher *dispatch.Dispatcher
	hub        *realtime.Hub
	jwtSecret  string
	log        zerolog.Logger
}

func NewHandler(controller *session.Controller, dispatcher *dispatch.Dispatcher, hub *realtime.Hub, jwtSecret string, log zerolog.Logger) *Handler {
	return &Handler{
		controller: controller,
		dispatcher: dispatcher,
		hub:        hub,
		jwtSecret:  jwtSecret,
		log:        log.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", h.realtimeWebSocket)
	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/sessions", h.listSessions)
		r.Post("/sessions/{accountID}", h.startSession)
		r.Delete("/sessions/{accountID}", h.removeSession)
		r.Post("/messages", h.sendMessage)
	})
	return r
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := verifyToken(bearerFromRequest(r), h.jwtSecret); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Snapshots())
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account id is required", "")
		return
	}

	if _, err := h.controller.Initialize(r.Context(), accountID); err != nil {
		switch {
		case errors.Is(err, domain.ErrAuthFailed):
			writeError(w, http.StatusUnauthorized, "session authentication failed", err.Error())
		case errors.Is(err, domain.ErrInitTimeout):
			writeError(w, http.StatusGatewayTimeout, "session initialization timed out", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "failed to start session", err.Error())
		}
		return
	}

	rec, _ := h.controller.Record(accountID)
	writeJSON(w, http.StatusOK, rec.Snapshot())
}

func (h *Handler) removeSession(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account id is required", "")
		return
	}
	h.controller.RemoveSession(accountID)
	w.WriteHeader(http.StatusNoContent)
}

type sendMessageRequest struct {
	AccountID       string `json:"accountId"`
	To              string `json:"to"`
	Body            string `json:"body"`
	QuotedMessageID string `json:"quotedMessageId,omitempty"`
	TicketID        string `json:"ticketId,omitempty"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	err := h.dispatcher.Send(r.Context(), dispatch.OutboundMessage{
		AccountID:       req.AccountID,
		To:              req.To,
		Body:            req.Body,
		QuotedMessageID: req.QuotedMessageID,
		TicketID:        req.TicketID,
	})
	if err != nil {
		var sendFailed *domain.SendFailedError
		switch {
		case errors.Is(err, domain.ErrSendValidation):
			writeError(w, http.StatusBadRequest, "invalid outbound message", err.Error())
		case errors.Is(err, domain.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "no active session for account", "")
		case errors.As(err, &sendFailed):
			writeError(w, http.StatusBadGateway, "message delivery failed", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to send message", err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message, details string) {
	resp := errorResponse{Error: message}
	if details != "" {
		resp.Details = details
	}
	writeJSON(w, code, resp)
}
