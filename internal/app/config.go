package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (RXKART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (RXKART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (RXKART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Payments     PaymentsConfig
	Gateway      GatewayConfig
	Push         PushConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PaymentsConfig switches payment methods on and off. Replaces the
// database-backed settings row the legacy system used.
type PaymentsConfig struct {
	CODEnabled     bool   `default:"true"  usage:"Accept cash on delivery" flag:"cod-enabled"`
	WalletEnabled  bool   `default:"true"  usage:"Accept wallet payments" flag:"wallet-enabled"`
	GatewayEnabled bool   `default:"false" usage:"Accept gateway payments" flag:"gateway-enabled"`
	Currency       string `default:"INR"   usage:"Currency code sent to the payment gateway"`
}

// GatewayConfig holds the external payment gateway credentials.
type GatewayConfig struct {
	BaseURL   string `default:"https://api.razorpay.com" usage:"Payment gateway base URL" flag:"gateway-url"`
	KeyID     string `usage:"Gateway API key ID" flag:"gateway-key-id"`
	KeySecret string `usage:"Gateway API key secret; also keys callback signature verification" flag:"gateway-key-secret"`
}

// PushConfig holds the push notification provider credentials. Push is
// disabled when AppID is empty.
type PushConfig struct {
	Endpoint string `default:"https://onesignal.com/api/v1/notifications" usage:"Push provider API endpoint" flag:"push-endpoint"`
	AppID    string `usage:"Push provider application ID" flag:"push-app-id"`
	APIKey   string `usage:"Push provider REST API key" flag:"push-api-key"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RXKART",
		Files:     []string{"config.yaml", "/etc/rxkart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set RXKART_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Payments.GatewayEnabled && cfg.Gateway.KeySecret == "" {
		return nil, errors.New("gateway payments enabled but RXKART_GATEWAY_KEY_SECRET is not set")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's RXKART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
