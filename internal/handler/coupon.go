package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ApplyCoupon handles POST /api/coupon/apply: a pricing preview with the
// coupon applied. Nothing is persisted and no redemption is consumed; the
// coupon is only spent when the order commits.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	req, err := decodePlaceOrder(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	res, err := h.orderService.PreviewCoupon(r.Context(), req.Items, req.CouponCode)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("subtotal", func(e *jx.Encoder) { money(e, res.Subtotal) })
			e.Field("discount", func(e *jx.Encoder) { money(e, res.Discount) })
			e.Field("total", func(e *jx.Encoder) { money(e, res.Total) })
		})
	})
}
