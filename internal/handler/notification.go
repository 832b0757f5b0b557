package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"tokenjar/internal/auth"
	"tokenjar/internal/ledger"
	"tokenjar/internal/model"
	"tokenjar/internal/store"
	"tokenjar/internal/websocket"
)

const defaultNotificationLimit = 10

type NotificationHandler struct {
	ledger        *ledger.Service
	notifications *store.NotificationStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewNotificationHandler(svc *ledger.Service, ns *store.NotificationStore, hub *websocket.Hub, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{ledger: svc, notifications: ns, hub: hub, logger: logger}
}

// List returns the caller's notifications, newest first. ?limit= overrides
// the default of 10; limit=0 returns everything.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	notifications, err := h.notifications.ListByRecipient(auth.AccountID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// Toggle sets the caller's archive flag on a notification.
func (h *NotificationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	n, err := h.ledger.ToggleNotification(r.Context(), auth.AccountID(r.Context()), id, req.Completed)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("notification", "toggled", id, nil))
	}

	writeJSON(w, http.StatusOK, n)
}
