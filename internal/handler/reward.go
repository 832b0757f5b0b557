package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tokenjar/internal/auth"
	"tokenjar/internal/ledger"
	"tokenjar/internal/model"
	"tokenjar/internal/push"
	"tokenjar/internal/store"
	"tokenjar/internal/websocket"
)

type RewardHandler struct {
	ledger  *ledger.Service
	rewards *store.RewardStore
	pushSvc *push.Service
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRewardHandler(svc *ledger.Service, rs *store.RewardStore, pushSvc *push.Service, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{ledger: svc, rewards: rs, pushSvc: pushSvc, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type rewardRequest struct {
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	reward, err := h.ledger.CreateReward(r.Context(), auth.AccountID(r.Context()), req.Name, req.Cost, req.Description)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("reward", "created", reward.ID, nil))

	writeJSON(w, http.StatusCreated, reward)
}

// List returns every account's rewards; the shop is shared.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List()
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.ledger.DeleteReward(r.Context(), auth.AccountID(r.Context()), id); err != nil {
		writeLedgerError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("reward", "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

// Redeem debits the caller and notifies the reward's creator.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.ledger.RedeemReward(r.Context(), auth.AccountID(r.Context()), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("reward", "redeemed", id, map[string]any{
		"recipient_id": res.Notification.RecipientID,
	}))
	if h.pushSvc != nil {
		go h.pushSvc.NotifyRedemption(res.Notification)
	}

	writeJSON(w, http.StatusOK, res)
}
