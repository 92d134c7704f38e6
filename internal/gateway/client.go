// Package gateway is a thin client for the external payment gateway's
// order-creation API. The gateway is treated as an opaque service: orders
// are created ahead of the client-side payment flow and referenced later by
// the signed callback.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Config holds the gateway connection settings.
type Config struct {
	// BaseURL is the gateway API root, e.g. https://api.gateway.example.
	BaseURL string
	// KeyID and KeySecret authenticate API calls (HTTP basic auth).
	KeyID     string
	KeySecret string
}

// Client creates gateway orders over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a gateway client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateOrder registers an order with the gateway and returns the
// gateway-side order reference. The amount is converted to minor currency
// units (paise, cents) as the gateway expects.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) {
			e.Int64(amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
		})
		e.Field("currency", func(e *jx.Encoder) {
			e.Str(currency)
		})
		e.Field("payment_capture", func(e *jx.Encoder) {
			e.Int(1)
		})
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/orders", bytes.NewReader(e.Bytes()))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read gateway response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errors.Errorf("gateway order creation failed: status %d", resp.StatusCode)
	}

	orderRef, err := parseOrderRef(body)
	if err != nil {
		return "", errors.Wrap(err, "parse gateway response")
	}
	return orderRef, nil
}

// parseOrderRef extracts the "id" field from a gateway order response.
func parseOrderRef(body []byte) (string, error) {
	var orderRef string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "id" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		orderRef = v
		return nil
	}); err != nil {
		return "", err
	}
	if orderRef == "" {
		return "", errors.New("response missing order id")
	}
	return orderRef, nil
}
