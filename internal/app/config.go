package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ayurkart/checkout/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	Razorpay     RazorpayConfig
	Pricing      PricingConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// RazorpayConfig holds payment gateway credentials.
type RazorpayConfig struct {
	KeyID     string `usage:"Razorpay key id" flag:"razorpay-key-id"`
	KeySecret string `usage:"Razorpay key secret" flag:"razorpay-key-secret"`
	BaseURL   string `default:"" usage:"Razorpay API base URL (override for testing)" flag:"razorpay-base-url"`
}

// PricingConfig holds the pricing policy. Values are decimal strings so the
// policy is exact, never float.
type PricingConfig struct {
	FreeShippingThreshold string `default:"500.00" usage:"Subtotal at which shipping becomes free"`
	ShippingFee           string `default:"50.00" usage:"Flat shipping fee below the threshold"`
	TaxRate               string `default:"0.18" usage:"GST rate applied to the discounted subtotal"`
}

// Policy parses the configured values into a pricing.Policy.
func (c PricingConfig) Policy() (pricing.Policy, error) {
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return pricing.Policy{}, errors.Wrap(err, "parse free shipping threshold")
	}
	fee, err := decimal.NewFromString(c.ShippingFee)
	if err != nil {
		return pricing.Policy{}, errors.Wrap(err, "parse shipping fee")
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return pricing.Policy{}, errors.Wrap(err, "parse tax rate")
	}
	return pricing.Policy{
		FreeShippingThreshold: threshold,
		ShippingFee:           fee,
		TaxRate:               rate,
	}, nil
}

// KafkaConfig controls order event publishing. Events are disabled when no
// brokers are configured.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka broker addresses (empty disables events)"`
	Topic   string   `default:"order-events" usage:"Topic for order lifecycle events"`
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
// files, and flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		return nil, errors.New("payment gateway credentials are required: set CHECKOUT_RAZORPAY_KEY_ID and CHECKOUT_RAZORPAY_KEY_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the CHECKOUT_-prefixed
// configuration.
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
