package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/rxkart/checkout-api/internal/domain/product"
)

// ListProducts handles GET /api/product: the full catalog with attributes.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				encodeProduct(e, &products[i])
			}
		})
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		if p.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		}
		e.Field("price", func(e *jx.Encoder) { money(e, p.Price) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("requires_rx", func(e *jx.Encoder) { e.Bool(p.RequiresRx) })
		if len(p.Attributes) > 0 {
			e.Field("attributes", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, a := range p.Attributes {
						e.Obj(func(e *jx.Encoder) {
							e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
							e.Field("name", func(e *jx.Encoder) { e.Str(a.Name) })
							e.Field("additional_price", func(e *jx.Encoder) { money(e, a.AdditionalPrice) })
						})
					}
				})
			})
		}
	})
}
