package handler

import (
	"log/slog"
	"net/http"

	"tokenjar/internal/auth"
	"tokenjar/internal/store"
)

type AccountHandler struct {
	accounts *store.AccountStore
	logger   *slog.Logger
}

func NewAccountHandler(as *store.AccountStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: as, logger: logger}
}

// Get returns the caller's account, including the current token balance.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByID(auth.AccountID(r.Context()))
	if err != nil {
		h.logger.Error("get account", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get account")
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, account)
}
