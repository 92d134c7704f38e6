package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxkart/checkout-api/internal/domain/coupon"
	"github.com/rxkart/checkout-api/internal/domain/payment"
	"github.com/rxkart/checkout-api/internal/domain/product"
	"github.com/rxkart/checkout-api/internal/domain/wallet"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	seen := make(map[string]bool)
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && !seen[id] {
			out = append(out, *p)
			seen[id] = true
		}
	}
	return out, nil
}

type mockCouponRepo struct {
	mu     sync.Mutex
	coupon *coupon.Coupon
	err    error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := *m.coupon
	return &c, nil
}

// Redeem mirrors the conditional compare-and-increment the real repository
// performs in SQL.
func (m *mockCouponRepo) Redeem(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.coupon == nil || m.coupon.TimesUsed >= m.coupon.UsageLimit {
		return coupon.ErrInvalidCoupon
	}
	m.coupon.TimesUsed++
	return nil
}

type mockOrderRepo struct {
	mu           sync.Mutex
	coupons      *mockCouponRepo
	walletFunds  decimal.Decimal
	checkouts    []Checkout
	createErr    error
	statusErr    error
	lastStatus   Status
	lastStatusID string
}

func (m *mockOrderRepo) CreateCheckout(ctx context.Context, c Checkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if c.RedeemCoupon != "" && m.coupons != nil {
		if err := m.coupons.Redeem(ctx, c.RedeemCoupon); err != nil {
			return err
		}
	}
	if c.DebitWallet != nil {
		if m.walletFunds.LessThan(c.DebitWallet.Amount) {
			return wallet.ErrInsufficientFunds
		}
		m.walletFunds = m.walletFunds.Sub(c.DebitWallet.Amount)
	}
	m.checkouts = append(m.checkouts, c)
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.checkouts {
		if c.Order.ID == id {
			o := *c.Order
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, c := range m.checkouts {
		if c.Order.CustomerID == customerID {
			out = append(out, *c.Order)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	m.lastStatusID = id
	m.lastStatus = status
	return nil
}

type mockPaymentRepo struct {
	payment   *payment.Payment
	findErr   error
	settleErr error
	settled   []payment.Status
}

func (m *mockPaymentRepo) FindByOrderRef(_ context.Context, _, _ string) (*payment.Payment, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.payment, nil
}

func (m *mockPaymentRepo) Settle(_ context.Context, _ string, status payment.Status, _ string) error {
	if m.settleErr != nil {
		return m.settleErr
	}
	m.settled = append(m.settled, status)
	return nil
}

type mockGateway struct {
	orderRef string
	err      error
}

func (m *mockGateway) CreateOrder(_ context.Context, _ decimal.Decimal, _ string) (string, error) {
	return m.orderRef, m.err
}

type mockNotifier struct {
	mu    sync.Mutex
	sent  []string
	calls chan struct{}
}

func (m *mockNotifier) Notify(_ context.Context, _, title, _ string) error {
	m.mu.Lock()
	m.sent = append(m.sent, title)
	m.mu.Unlock()
	if m.calls != nil {
		m.calls <- struct{}{}
	}
	return nil
}

// --- Helpers ---

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() Config {
	return Config{
		CODEnabled:     true,
		WalletEnabled:  true,
		GatewayEnabled: true,
		GatewaySecret:  []byte("s3cr3t"),
		Currency:       "INR",
	}
}

func testCatalog() *mockProductRepo {
	return &mockProductRepo{byID: map[string]*product.Product{
		"p1": {ID: "p1", Name: "Paracetamol 500mg", Price: d("10.00")},
		"p2": {
			ID: "p2", Name: "Vitamin D3", Price: d("20.00"),
			Attributes: []product.Attribute{
				{ID: "a1", ProductID: "p2", Name: "60 tablets", AdditionalPrice: d("5.00")},
			},
		},
	}}
}

func newTestService(t *testing.T, orders *mockOrderRepo, coupons *mockCouponRepo, opts ...func(*Service)) *Service {
	t.Helper()
	if coupons == nil {
		coupons = &mockCouponRepo{err: coupon.ErrInvalidCoupon}
	}
	svc := NewService(
		testConfig(),
		testCatalog(),
		coupons,
		orders,
		&mockPaymentRepo{},
		&mockGateway{orderRef: "gw_order_1"},
		nil,
	)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func validCoupon() *coupon.Coupon {
	return &coupon.Coupon{
		Code: "SAVE10", Kind: coupon.KindPercentage, Amount: d("10"),
		ExpiryDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UsageLimit: 5,
	}
}

// --- PlaceOrder ---

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Method: "COD"})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 0}},
		Method: "COD",
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:  []ItemRequest{{ProductID: "missing", Quantity: 1}},
		Method: "COD",
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlaceOrder_UnknownAttribute(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:  []ItemRequest{{ProductID: "p1", AttributeID: "nope", Quantity: 1}},
		Method: "COD",
	})
	require.ErrorIs(t, err, product.ErrAttributeNotFound)
}

func TestPlaceOrder_CODPricing(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, orders, nil)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", AttributeID: "a1", Quantity: 1},
		},
		Method: "COD",
	})

	require.NoError(t, err)
	// 2*10.00 + (20.00+5.00) = 45.00
	assert.True(t, d("45.00").Equal(res.Order.Total), "total: %s", res.Order.Total)
	assert.True(t, decimal.Zero.Equal(res.Order.Discount))
	assert.Equal(t, StatusPending, res.Order.Status)
	assert.Equal(t, payment.StatusPending, res.Payment.Status)
	assert.Equal(t, "COD", res.Payment.Method.Name())
	require.Len(t, orders.checkouts, 1)
	assert.Nil(t, orders.checkouts[0].DebitWallet)
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	coupons := &mockCouponRepo{coupon: validCoupon()}
	orders := &mockOrderRepo{coupons: coupons}
	svc := newTestService(t, orders, coupons)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 4}},
		CouponCode: "SAVE10",
		Method:     "COD",
	})

	require.NoError(t, err)
	assert.True(t, d("40.00").Equal(res.Pricing.Subtotal))
	assert.True(t, d("4.00").Equal(res.Pricing.Discount))
	assert.True(t, d("36.00").Equal(res.Order.Total))
	assert.Equal(t, 1, coupons.coupon.TimesUsed, "redemption happens exactly once at commit")
}

func TestPlaceOrder_InvalidCouponRejected(t *testing.T) {
	coupons := &mockCouponRepo{err: coupon.ErrInvalidCoupon}
	svc := newTestService(t, &mockOrderRepo{coupons: coupons}, coupons)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		CouponCode: "BOGUS",
		Method:     "COD",
	})
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestPlaceOrder_ExpiredCouponRejected(t *testing.T) {
	c := validCoupon()
	c.ExpiryDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	coupons := &mockCouponRepo{coupon: c}
	orders := &mockOrderRepo{coupons: coupons}
	svc := newTestService(t, orders, coupons)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		CouponCode: "SAVE10",
		Method:     "COD",
	})
	require.ErrorIs(t, err, coupon.ErrExpired)
	assert.Empty(t, orders.checkouts, "nothing persisted on coupon failure")
}

func TestPlaceOrder_Wallet(t *testing.T) {
	orders := &mockOrderRepo{walletFunds: d("100.00")}
	svc := newTestService(t, orders, nil)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 3}},
		Method:     "Wallet",
	})

	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, res.Payment.Status)
	require.Len(t, orders.checkouts, 1)
	require.NotNil(t, orders.checkouts[0].DebitWallet)
	assert.True(t, d("30.00").Equal(orders.checkouts[0].DebitWallet.Amount))
	assert.True(t, d("70.00").Equal(orders.walletFunds))
}

func TestPlaceOrder_WalletInsufficientFunds(t *testing.T) {
	orders := &mockOrderRepo{walletFunds: d("5.00")}
	svc := newTestService(t, orders, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 3}},
		Method:     "Wallet",
	})

	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	assert.Empty(t, orders.checkouts)
	assert.True(t, d("5.00").Equal(orders.walletFunds), "failed debit must not change the balance")
}

func TestPlaceOrder_Gateway(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, orders, nil)

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []ItemRequest{{ProductID: "p2", Quantity: 1}},
		Method:     "Gateway",
	})

	require.NoError(t, err)
	assert.Equal(t, "gw_order_1", res.GatewayOrderRef)
	assert.Equal(t, payment.StatusPending, res.Payment.Status)
}

func TestPlaceOrder_GatewayCreateFails(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, orders, nil, func(s *Service) {
		s.gateway = &mockGateway{err: errors.New("gateway unavailable")}
	})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 1}},
		Method: "Gateway",
	})
	require.Error(t, err)
	assert.Empty(t, orders.checkouts)
}

func TestPlaceOrder_DisabledMethods(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, nil, func(s *Service) {
		s.cfg.CODEnabled = false
		s.cfg.WalletEnabled = false
		s.cfg.GatewayEnabled = false
	})

	for _, method := range []string{"COD", "Wallet", "Gateway"} {
		_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			Items:  []ItemRequest{{ProductID: "p1", Quantity: 1}},
			Method: method,
		})
		var mdErr *MethodDisabledError
		require.ErrorAs(t, err, &mdErr, "method %s", method)
		assert.Equal(t, method, mdErr.Method)
	}
}

func TestPlaceOrder_UnknownMethod(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 1}},
		Method: "Cheque",
	})

	var umErr *UnknownMethodError
	require.ErrorAs(t, err, &umErr)
}

func TestPlaceOrder_CommitFailurePropagates(t *testing.T) {
	orders := &mockOrderRepo{createErr: errors.New("connection reset")}
	svc := newTestService(t, orders, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 1}},
		Method: "COD",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit checkout")
}

// Two concurrent placements redeeming a limit-1 coupon: exactly one may
// succeed.
func TestPlaceOrder_ConcurrentRedemption(t *testing.T) {
	c := validCoupon()
	c.UsageLimit = 1
	coupons := &mockCouponRepo{coupon: c}
	orders := &mockOrderRepo{coupons: coupons}
	svc := newTestService(t, orders, coupons)

	req := PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		CouponCode: "SAVE10",
		Method:     "COD",
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(context.Background(), req)
		}()
	}
	wg.Wait()

	var ok, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, coupon.ErrInvalidCoupon):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one placement succeeds")
	assert.Equal(t, 1, invalid, "the other fails with ErrInvalidCoupon")
	assert.Equal(t, 1, coupons.coupon.TimesUsed)
}

// --- PreviewCoupon ---

func TestPreviewCoupon_DoesNotRedeem(t *testing.T) {
	coupons := &mockCouponRepo{coupon: validCoupon()}
	svc := newTestService(t, &mockOrderRepo{coupons: coupons}, coupons)

	res, err := svc.PreviewCoupon(context.Background(),
		[]ItemRequest{{ProductID: "p1", Quantity: 4}}, "SAVE10")

	require.NoError(t, err)
	assert.True(t, d("4.00").Equal(res.Discount))
	assert.True(t, d("36.00").Equal(res.Total))
	assert.Equal(t, 0, coupons.coupon.TimesUsed, "preview must not consume a redemption")
}

func TestPreviewCoupon_EmptyCart(t *testing.T) {
	coupons := &mockCouponRepo{coupon: validCoupon()}
	svc := newTestService(t, &mockOrderRepo{}, coupons)

	_, err := svc.PreviewCoupon(context.Background(), nil, "SAVE10")
	require.ErrorIs(t, err, ErrEmptyCart)
}

// --- VerifyGatewayPayment ---

func verifyFixture(t *testing.T, pay *payment.Payment, payments *mockPaymentRepo, orders *mockOrderRepo) *Service {
	t.Helper()
	payments.payment = pay
	return newTestService(t, orders, nil, func(s *Service) {
		s.payments = payments
	})
}

func TestVerifyGatewayPayment_Success(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, orders, nil)
	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		Method:     "Gateway",
	})
	require.NoError(t, err)

	payments := &mockPaymentRepo{}
	svc = verifyFixture(t, res.Payment, payments, orders)

	sig := payment.Sign([]byte("s3cr3t"), "gw_order_1", "pay_1")
	p, err := svc.VerifyGatewayPayment(context.Background(), VerifyGatewayPaymentRequest{
		OrderID:    res.Order.ID,
		OrderRef:   "gw_order_1",
		PaymentRef: "pay_1",
		Signature:  sig,
	})

	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, p.Status)
	assert.Equal(t, []payment.Status{payment.StatusCompleted}, payments.settled)
	assert.Equal(t, StatusCompleted, orders.lastStatus)
	assert.Equal(t, res.Order.ID, orders.lastStatusID)
}

func TestVerifyGatewayPayment_SignatureMismatch(t *testing.T) {
	pay := payment.New("o1", payment.Gateway{OrderRef: "gw_order_1"}, d("10.00"))
	payments := &mockPaymentRepo{}
	svc := verifyFixture(t, pay, payments, &mockOrderRepo{})

	p, err := svc.VerifyGatewayPayment(context.Background(), VerifyGatewayPaymentRequest{
		OrderID:    "o1",
		OrderRef:   "gw_order_1",
		PaymentRef: "pay_1",
		Signature:  "forged",
	})

	require.ErrorIs(t, err, payment.ErrSignatureMismatch)
	assert.Equal(t, payment.StatusFailed, p.Status)
	assert.Equal(t, []payment.Status{payment.StatusFailed}, payments.settled,
		"failed transition must still be persisted")
}

func TestVerifyGatewayPayment_AlreadySettled(t *testing.T) {
	pay := payment.New("o1", payment.Gateway{OrderRef: "gw_order_1"}, d("10.00"))
	require.NoError(t, pay.Settle(true))
	payments := &mockPaymentRepo{}
	svc := verifyFixture(t, pay, payments, &mockOrderRepo{})

	_, err := svc.VerifyGatewayPayment(context.Background(), VerifyGatewayPaymentRequest{
		OrderID:    "o1",
		OrderRef:   "gw_order_1",
		PaymentRef: "pay_1",
		Signature:  payment.Sign([]byte("s3cr3t"), "gw_order_1", "pay_1"),
	})

	require.ErrorIs(t, err, payment.ErrAlreadySettled)
	assert.Empty(t, payments.settled, "replay must not write")
}

func TestVerifyGatewayPayment_PersistFailureIsNotSuccess(t *testing.T) {
	pay := payment.New("o1", payment.Gateway{OrderRef: "gw_order_1"}, d("10.00"))
	payments := &mockPaymentRepo{settleErr: errors.New("disk full")}
	svc := verifyFixture(t, pay, payments, &mockOrderRepo{})

	_, err := svc.VerifyGatewayPayment(context.Background(), VerifyGatewayPaymentRequest{
		OrderID:    "o1",
		OrderRef:   "gw_order_1",
		PaymentRef: "pay_1",
		Signature:  payment.Sign([]byte("s3cr3t"), "gw_order_1", "pay_1"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist settlement")
}

// --- UpdateStatus ---

func TestUpdateStatus_Notifies(t *testing.T) {
	orders := &mockOrderRepo{}
	notifier := &mockNotifier{calls: make(chan struct{}, 1)}
	svc := newTestService(t, orders, nil, func(s *Service) {
		s.notifier = notifier
	})

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "c1",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		Method:     "COD",
	})
	require.NoError(t, err)

	o, err := svc.UpdateStatus(context.Background(), res.Order.ID, StatusOnRoute)
	require.NoError(t, err)
	assert.Equal(t, StatusOnRoute, o.Status)
	assert.Equal(t, StatusOnRoute, orders.lastStatus)

	select {
	case <-notifier.calls:
	case <-time.After(time.Second):
		t.Fatal("expected a notification dispatch")
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, nil)

	_, err := svc.UpdateStatus(context.Background(), "o1", Status("Teleported"))
	require.Error(t, err)
}
