package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/rxkart/checkout-api/internal/domain/coupon"
	"github.com/rxkart/checkout-api/internal/domain/order"
	"github.com/rxkart/checkout-api/internal/domain/payment"
	"github.com/rxkart/checkout-api/internal/domain/wallet"
)

type placeOrderRequest struct {
	CustomerID string
	AddressID  string
	Items      []order.ItemRequest
	CouponCode string
	Method     string
}

func decodePlaceOrder(body []byte) (placeOrderRequest, error) {
	var req placeOrderRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_id":
			req.CustomerID, err = d.Str()
		case "address_id":
			req.AddressID, err = d.Str()
		case "coupon_code":
			req.CouponCode, err = d.Str()
		case "payment_method":
			req.Method, err = d.Str()
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

func decodeItem(d *jx.Decoder) (order.ItemRequest, error) {
	var item order.ItemRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			item.ProductID, err = d.Str()
		case "attribute_id":
			item.AttributeID, err = d.Str()
		case "quantity":
			item.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
	return item, err
}

// PlaceOrder handles POST /api/order: price the cart, apply the optional
// coupon, and commit the order with its payment.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
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
	if req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	res, err := h.orderService.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		CustomerID: req.CustomerID,
		AddressID:  req.AddressID,
		Items:      req.Items,
		CouponCode: req.CouponCode,
		Method:     req.Method,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			encodeOrderFields(e, res.Order)
			e.Field("payment", func(e *jx.Encoder) { encodePayment(e, res.Payment) })
			if res.GatewayOrderRef != "" {
				e.Field("gateway_order_ref", func(e *jx.Encoder) { e.Str(res.GatewayOrderRef) })
			}
		})
	})
}

// ListOrders handles GET /api/order?customer_id=...
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), customerID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				e.Obj(func(e *jx.Encoder) { encodeOrderFields(e, &orders[i]) })
			}
		})
	})
}

// UpdateOrderStatus handles PATCH /api/order/{orderID}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	var status string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "status" {
			var err error
			status, err = d.Str()
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orderService.UpdateStatus(r.Context(), orderID, order.Status(status))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case !order.Status(status).Known():
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeInternalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) { encodeOrderFields(e, o) })
	})
}

// VerifyPayment handles POST /api/order/verify-payment: the signed gateway
// callback that settles a pending gateway payment.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	var req order.VerifyGatewayPaymentRequest
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "order_id":
			req.OrderID, err = d.Str()
		case "gateway_order_ref":
			req.OrderRef, err = d.Str()
		case "gateway_payment_ref":
			req.PaymentRef, err = d.Str()
		case "signature":
			req.Signature, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := h.orderService.VerifyGatewayPayment(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePayment(e, p) })
	case errors.Is(err, payment.ErrSignatureMismatch):
		writeError(w, http.StatusBadRequest, "signature verification failed")
	case errors.Is(err, payment.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment not found")
	case errors.Is(err, payment.ErrAlreadySettled):
		writeError(w, http.StatusConflict, "payment already settled")
	default:
		writeInternalError(w, r, err)
	}
}

// writeOrderError maps domain errors from order placement onto HTTP
// statuses.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
		mdErr  *order.MethodDisabledError
		umErr  *order.UnknownMethodError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr), errors.As(err, &pnfErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &mdErr), errors.As(err, &umErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, coupon.ErrInvalidCoupon):
		writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient wallet balance")
	default:
		writeInternalError(w, r, err)
	}
}

func encodeOrderFields(e *jx.Encoder, o *order.Order) {
	e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
	e.Field("customer_id", func(e *jx.Encoder) { e.Str(o.CustomerID) })
	if o.AddressID != "" {
		e.Field("address_id", func(e *jx.Encoder) { e.Str(o.AddressID) })
	}
	e.Field("items", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, it := range o.Items {
				e.Obj(func(e *jx.Encoder) {
					e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
					if it.AttributeID != "" {
						e.Field("attribute_id", func(e *jx.Encoder) { e.Str(it.AttributeID) })
					}
					e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					e.Field("unit_price", func(e *jx.Encoder) { money(e, it.UnitPrice) })
					e.Field("surcharge", func(e *jx.Encoder) { money(e, it.Surcharge) })
				})
			}
		})
	})
	e.Field("subtotal", func(e *jx.Encoder) { money(e, o.Subtotal) })
	e.Field("discount", func(e *jx.Encoder) { money(e, o.Discount) })
	e.Field("total", func(e *jx.Encoder) { money(e, o.Total) })
	if o.CouponCode != "" {
		e.Field("coupon_code", func(e *jx.Encoder) { e.Str(o.CouponCode) })
	}
	e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
}

func encodePayment(e *jx.Encoder, p *payment.Payment) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("order_id", func(e *jx.Encoder) { e.Str(p.OrderID) })
		e.Field("method", func(e *jx.Encoder) { e.Str(p.Method.Name()) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(p.Status)) })
		if p.ExternalRef != "" {
			e.Field("external_ref", func(e *jx.Encoder) { e.Str(p.ExternalRef) })
		}
		e.Field("amount", func(e *jx.Encoder) { money(e, p.Amount) })
	})
}
