package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tokenjar/internal/auth"
	"tokenjar/internal/ledger"
	"tokenjar/internal/model"
	"tokenjar/internal/store"
	"tokenjar/internal/websocket"
)

type ChoreHandler struct {
	ledger *ledger.Service
	chores *store.ChoreStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChoreHandler(svc *ledger.Service, cs *store.ChoreStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{ledger: svc, chores: cs, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type choreRequest struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	chore, err := h.ledger.CreateChore(r.Context(), auth.AccountID(r.Context()), req.Name, req.Tokens)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("chore", "created", chore.ID, nil))

	writeJSON(w, http.StatusCreated, chore)
}

// List returns the caller's own chores.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.chores.ListByAccount(auth.AccountID(r.Context()))
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.ledger.DeleteChore(r.Context(), auth.AccountID(r.Context()), id); err != nil {
		writeLedgerError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("chore", "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

// Complete marks a chore done and credits its tokens. Completing an
// already-completed chore reports credited=false with a 200.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.ledger.CompleteChore(r.Context(), auth.AccountID(r.Context()), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if res.Credited {
		h.broadcast(websocket.NewMessage("chore", "completed", id, map[string]any{"balance": res.Balance}))
	}

	writeJSON(w, http.StatusOK, res)
}

// Uncomplete is the explicit undo: it re-arms the chore and takes the
// credit back.
func (h *ChoreHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.ledger.UncompleteChore(r.Context(), auth.AccountID(r.Context()), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if res.Credited {
		h.broadcast(websocket.NewMessage("chore", "uncompleted", id, map[string]any{"balance": res.Balance}))
	}

	writeJSON(w, http.StatusOK, res)
}
