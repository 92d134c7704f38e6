package notify

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// PushConfig holds the push provider settings.
type PushConfig struct {
	// Endpoint is the provider's notification API URL.
	Endpoint string
	// AppID identifies the application on the provider.
	AppID string
	// APIKey authorizes API calls.
	APIKey string
}

// PushClient sends push notifications through a OneSignal-compatible API.
type PushClient struct {
	cfg  PushConfig
	http *http.Client
}

// NewPushClient creates a PushClient with a bounded request timeout.
func NewPushClient(cfg PushConfig) *PushClient {
	return &PushClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Push sends a notification to all subscribed devices.
func (c *PushClient) Push(ctx context.Context, title, message string) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("app_id", func(e *jx.Encoder) { e.Str(c.cfg.AppID) })
		e.Field("included_segments", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) { e.Str("All") })
		})
		e.Field("headings", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("en", func(e *jx.Encoder) { e.Str(title) })
			})
		})
		e.Field("contents", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("en", func(e *jx.Encoder) { e.Str(message) })
			})
		})
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(e.Bytes()))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "push request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("push delivery failed: status %d", resp.StatusCode)
	}
	return nil
}
