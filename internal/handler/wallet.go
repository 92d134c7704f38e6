package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// GetWalletBalance handles GET /api/wallet?customer_id=...
func (h *Handler) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	balance, err := h.wallets.Balance(r.Context(), customerID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("customer_id", func(e *jx.Encoder) { e.Str(customerID) })
			e.Field("balance", func(e *jx.Encoder) { money(e, balance) })
		})
	})
}
