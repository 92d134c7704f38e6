// Package handler exposes the HTTP API. Requests are decoded and responses
// encoded with jx; business logic lives in the order service and the domain
// repositories.
package handler

import (
	"net/http"

	"github.com/rxkart/checkout-api/internal/domain/order"
	"github.com/rxkart/checkout-api/internal/domain/product"
	"github.com/rxkart/checkout-api/internal/domain/wallet"
	"github.com/rxkart/checkout-api/internal/notify"
)

// Handler serves the checkout API, delegating business logic to the order
// service and the domain repositories.
type Handler struct {
	products      product.Repository
	orderService  *order.Service
	wallets       wallet.Repository
	notifications notify.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	orderService *order.Service,
	wallets wallet.Repository,
	notifications notify.Repository,
) *Handler {
	return &Handler{
		products:      products,
		orderService:  orderService,
		wallets:       wallets,
		notifications: notifications,
	}
}

// Routes registers every API endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/product", h.ListProducts)
	mux.HandleFunc("POST /api/order", h.PlaceOrder)
	mux.HandleFunc("GET /api/order", h.ListOrders)
	mux.HandleFunc("PATCH /api/order/{orderID}/status", h.UpdateOrderStatus)
	mux.HandleFunc("POST /api/order/verify-payment", h.VerifyPayment)
	mux.HandleFunc("POST /api/coupon/apply", h.ApplyCoupon)
	mux.HandleFunc("GET /api/wallet", h.GetWalletBalance)
	mux.HandleFunc("GET /api/notification", h.ListNotifications)
	mux.HandleFunc("POST /api/notification/{notificationID}/read", h.MarkNotificationRead)
	return mux
}
