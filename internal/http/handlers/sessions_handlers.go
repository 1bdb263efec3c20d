package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/firasbarkia/energy-connect-hub/internal/service"
)

// SessionsHandler exposes the reservation lifecycle over HTTP.
type SessionsHandler struct {
	svc    *service.ReservationsService
	logger *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(svc *service.ReservationsService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, logger: logger}
}

// HandleAvailable handles GET /sessions/available.
func (h *SessionsHandler) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.AvailableSessions(r.Context(), 50)
	if err != nil {
		h.logger.Error("list available sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

type reserveRequest struct {
	SessionID string `json:"session_id"`
}

// HandleReserve handles POST /sessions/reserve.
func (h *SessionsHandler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	session, err := h.svc.Reserve(r.Context(), req.SessionID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

type confirmRequest struct {
	SessionID    string  `json:"session_id"`
	KWhRequested float64 `json:"kwh_requested"`
	CreditsUsed  float64 `json:"credits_used"`
	IsPriority   bool    `json:"is_priority"`
}

// HandleConfirm handles POST /sessions/confirm.
func (h *SessionsHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.KWhRequested <= 0 {
		writeError(w, http.StatusBadRequest, "kwh_requested must be positive")
		return
	}
	if req.CreditsUsed < 0 {
		writeError(w, http.StatusBadRequest, "credits_used cannot be negative")
		return
	}

	reservation, err := h.svc.Confirm(r.Context(), req.SessionID, userID, service.ConfirmInput{
		KWhRequested: req.KWhRequested,
		CreditsUsed:  req.CreditsUsed,
		IsPriority:   req.IsPriority,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"reservation": reservation})
}

type cancelRequest struct {
	SessionID string `json:"session_id"`
}

// HandleCancel handles POST /sessions/cancel.
func (h *SessionsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.svc.Cancel(r.Context(), req.SessionID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type completeRequest struct {
	SessionID string `json:"session_id"`
}

// HandleComplete handles POST /sessions/complete.
func (h *SessionsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	session, err := h.svc.Complete(r.Context(), req.SessionID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}
