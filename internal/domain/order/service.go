package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxkart/checkout-api/internal/domain/coupon"
	"github.com/rxkart/checkout-api/internal/domain/payment"
	"github.com/rxkart/checkout-api/internal/domain/pricing"
	"github.com/rxkart/checkout-api/internal/domain/product"
)

// GatewayClient creates orders on the external payment gateway ahead of the
// client-side payment flow. The gateway is an opaque collaborator; only the
// returned order reference matters here.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (orderRef string, err error)
}

// Notifier dispatches a customer notification. Implementations must treat
// delivery as best-effort: a failed notification never affects the
// transition that triggered it.
type Notifier interface {
	Notify(ctx context.Context, customerID, title, message string) error
}

// Config holds the explicitly loaded settings the service depends on,
// replacing any hidden global settings lookup.
type Config struct {
	CODEnabled     bool
	WalletEnabled  bool
	GatewayEnabled bool
	// GatewaySecret keys the HMAC verification of gateway callbacks.
	GatewaySecret []byte
	// Currency is the ISO code sent with gateway order creation.
	Currency string
}

// Service encapsulates order placement, coupon preview, and gateway
// payment verification.
type Service struct {
	cfg      Config
	products product.Repository
	coupons  coupon.Repository
	orders   Repository
	payments payment.Repository
	gateway  GatewayClient
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	cfg Config,
	products product.Repository,
	coupons coupon.Repository,
	orders Repository,
	payments payment.Repository,
	gateway GatewayClient,
	notifier Notifier,
) *Service {
	return &Service{
		cfg:      cfg,
		products: products,
		coupons:  coupons,
		orders:   orders,
		payments: payments,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
	}
}

// ItemRequest is a single requested cart line.
type ItemRequest struct {
	ProductID   string
	AttributeID string
	Quantity    int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	CustomerID string
	AddressID  string
	Items      []ItemRequest
	CouponCode string
	// Method is the requested payment method name: COD, Wallet, or Gateway.
	Method string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order   *Order
	Payment *payment.Payment
	Pricing pricing.Result
	// GatewayOrderRef is set for Gateway payments: the reference the client
	// completes the payment against.
	GatewayOrderRef string
}

// PlaceOrder prices the requested items, applies an optional coupon, and
// commits the order together with its payment in one atomic checkout.
// Coupon redemption and wallet debit happen inside that commit, never
// before, so a failed placement leaves no trace.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	lines, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := pricing.Subtotal(lines)

	discount := decimal.Zero
	if req.CouponCode != "" {
		c, err := s.coupons.FindByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, errors.Wrap(err, "lookup coupon")
		}
		discount, err = c.Discount(subtotal, s.now())
		if err != nil {
			return nil, errors.Wrap(err, "apply coupon")
		}
	}

	result := pricing.NewResult(subtotal, discount)

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		AddressID:  req.AddressID,
		Items:      itemsFromLines(req.Items, lines),
		Subtotal:   result.Subtotal,
		Discount:   result.Discount,
		Total:      result.Total,
		CouponCode: req.CouponCode,
		Status:     StatusPending,
	}

	checkout := Checkout{
		Order:        o,
		RedeemCoupon: req.CouponCode,
	}

	switch req.Method {
	case "COD":
		if !s.cfg.CODEnabled {
			return nil, &MethodDisabledError{Method: req.Method}
		}
		checkout.Payment = payment.New(o.ID, payment.COD{}, result.Total)

	case "Wallet":
		if !s.cfg.WalletEnabled {
			return nil, &MethodDisabledError{Method: req.Method}
		}
		p := payment.New(o.ID, payment.Wallet{CustomerID: req.CustomerID}, result.Total)
		// The debit and the Completed status commit together below.
		if err := p.Settle(true); err != nil {
			return nil, errors.Wrap(err, "settle wallet payment")
		}
		checkout.Payment = p
		checkout.DebitWallet = &WalletDebit{
			CustomerID: req.CustomerID,
			Amount:     result.Total,
		}

	case "Gateway":
		if !s.cfg.GatewayEnabled {
			return nil, &MethodDisabledError{Method: req.Method}
		}
		orderRef, err := s.gateway.CreateOrder(ctx, result.Total, s.cfg.Currency)
		if err != nil {
			return nil, errors.Wrap(err, "create gateway order")
		}
		checkout.Payment = payment.New(o.ID, payment.Gateway{OrderRef: orderRef}, result.Total)

	default:
		return nil, &UnknownMethodError{Method: req.Method}
	}

	if err := s.orders.CreateCheckout(ctx, checkout); err != nil {
		return nil, errors.Wrap(err, "commit checkout")
	}

	res := &PlaceOrderResult{
		Order:   o,
		Payment: checkout.Payment,
		Pricing: result,
	}
	if gw, ok := checkout.Payment.Method.(payment.Gateway); ok {
		res.GatewayOrderRef = gw.OrderRef
	}
	return res, nil
}

// PreviewCoupon prices the given items with the coupon applied, without
// persisting anything or consuming a redemption.
func (s *Service) PreviewCoupon(ctx context.Context, items []ItemRequest, code string) (pricing.Result, error) {
	if code == "" {
		return pricing.Result{}, coupon.ErrInvalidCoupon
	}

	lines, err := s.resolveItems(ctx, items)
	if err != nil {
		return pricing.Result{}, err
	}
	subtotal := pricing.Subtotal(lines)

	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return pricing.Result{}, errors.Wrap(err, "lookup coupon")
	}
	discount, err := c.Discount(subtotal, s.now())
	if err != nil {
		return pricing.Result{}, errors.Wrap(err, "apply coupon")
	}

	return pricing.NewResult(subtotal, discount), nil
}

// VerifyGatewayPaymentRequest carries the opaque strings from a gateway
// callback.
type VerifyGatewayPaymentRequest struct {
	OrderID    string
	OrderRef   string
	PaymentRef string
	Signature  string
}

// VerifyGatewayPayment settles a pending gateway payment from a signed
// callback. A matching signature completes the payment and the order; a
// mismatch fails the payment and returns payment.ErrSignatureMismatch.
// Replayed callbacks against a settled payment return
// payment.ErrAlreadySettled. Success is reported only after the terminal
// transition is durably committed.
func (s *Service) VerifyGatewayPayment(ctx context.Context, req VerifyGatewayPaymentRequest) (*payment.Payment, error) {
	p, err := s.payments.FindByOrderRef(ctx, req.OrderID, req.OrderRef)
	if err != nil {
		return nil, errors.Wrap(err, "find payment")
	}

	verifyErr := p.VerifyCallback(s.cfg.GatewaySecret, req.OrderRef, req.PaymentRef, req.Signature)
	if errors.Is(verifyErr, payment.ErrAlreadySettled) {
		return p, verifyErr
	}

	if err := s.payments.Settle(ctx, p.ID, p.Status, p.ExternalRef); err != nil {
		return nil, errors.Wrap(err, "persist settlement")
	}

	if verifyErr != nil {
		return p, verifyErr
	}

	if err := s.orders.UpdateStatus(ctx, req.OrderID, StatusCompleted); err != nil {
		return nil, errors.Wrap(err, "complete order")
	}

	s.notifyOrderCustomer(ctx, req.OrderID,
		"Payment Received",
		fmt.Sprintf("Payment for order #%s was verified successfully.", req.OrderID),
	)
	return p, nil
}

// UpdateStatus records a fulfillment status change and notifies the
// customer.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	if !status.Known() {
		return nil, errors.Errorf("unknown order status %q", status)
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	o.Status = status

	s.notify(ctx, o.CustomerID,
		"Order Status Update",
		fmt.Sprintf("Your order #%s status has been updated to %s.", o.ID, status),
	)
	return o, nil
}

// ListOrders returns a customer's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// resolveItems validates quantities, batch-fetches the products, and
// resolves attribute surcharges into priced lines.
func (s *Service) resolveItems(ctx context.Context, items []ItemRequest) ([]pricing.LineItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
		ids[i] = it.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	lines := make([]pricing.LineItem, len(items))
	for i, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}

		surcharge := decimal.Zero
		if it.AttributeID != "" {
			attr, err := p.AttributeByID(it.AttributeID)
			if err != nil {
				return nil, errors.Wrapf(err, "product %s", it.ProductID)
			}
			surcharge = attr.AdditionalPrice
		}

		lines[i] = pricing.LineItem{
			ProductID: it.ProductID,
			UnitPrice: p.Price,
			Surcharge: surcharge,
			Quantity:  it.Quantity,
		}
	}
	return lines, nil
}

// itemsFromLines captures the priced lines as order items, preserving the
// requested attribute selection.
func itemsFromLines(items []ItemRequest, lines []pricing.LineItem) []Item {
	out := make([]Item, len(lines))
	for i, line := range lines {
		out[i] = Item{
			ProductID:   line.ProductID,
			AttributeID: items[i].AttributeID,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Surcharge:   line.Surcharge,
		}
	}
	return out
}

// notifyOrderCustomer resolves the order's customer and dispatches a
// notification to them.
func (s *Service) notifyOrderCustomer(ctx context.Context, orderID, title, message string) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		zctx.From(ctx).Warn("Load order for notification", zap.Error(err))
		return
	}
	s.notify(ctx, o.CustomerID, title, message)
}

// notify dispatches asynchronously; failures are logged and never affect
// the caller.
func (s *Service) notify(ctx context.Context, customerID, title, message string) {
	if s.notifier == nil {
		return
	}
	lg := zctx.From(ctx)
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.Notify(bg, customerID, title, message); err != nil {
			lg.Warn("Notification dispatch failed",
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
		}
	}()
}
