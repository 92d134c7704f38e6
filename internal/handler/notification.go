package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// ListNotifications handles GET /api/notification?customer_id=...
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	items, err := h.notifications.ListByCustomer(r.Context(), customerID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, n := range items {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(n.ID) })
					e.Field("title", func(e *jx.Encoder) { e.Str(n.Title) })
					e.Field("message", func(e *jx.Encoder) { e.Str(n.Message) })
					e.Field("read", func(e *jx.Encoder) { e.Bool(n.Read) })
					e.Field("created_at", func(e *jx.Encoder) { e.Str(n.CreatedAt.Format(time.RFC3339)) })
				})
			}
		})
	})
}

// MarkNotificationRead handles POST /api/notification/{notificationID}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkRead(r.Context(), r.PathValue("notificationID")); err != nil {
		writeInternalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
