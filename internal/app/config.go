package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/storage/postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (SHOP_API_KEY_PEPPER)" flag:"api-key-pepper"`
	DeliveryInfo string `default:"" usage:"Message shown on delivery orders" flag:"delivery-info"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
	Cashback     CashbackConfig
	Payment      PaymentConfig
	Notify       NotifyConfig
	Tx           TxConfig
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

// CashbackConfig sets the cashback earned on completed orders.
type CashbackConfig struct {
	MobilePercent  int   `default:"5" usage:"Cashback percent for mobile orders"`
	WebPercent     int   `default:"3" usage:"Cashback percent for web orders"`
	UnknownPercent int   `default:"0" usage:"Cashback percent for orders of unknown source"`
	MinOrderPrice  int64 `default:"0" usage:"Minimum cash amount that earns cashback"`
}

func (c CashbackConfig) domain() bonus.CashbackConfig {
	return bonus.CashbackConfig{
		MobilePercent:  c.MobilePercent,
		WebPercent:     c.WebPercent,
		UnknownPercent: c.UnknownPercent,
		MinOrderPrice:  c.MinOrderPrice,
	}
}

// PaymentConfig configures the hosted payment page. Without a URL, card and
// online orders are placed but no payment link is issued.
type PaymentConfig struct {
	URL      string `default:"" usage:"Payment gateway redirect URL" flag:"payment-url"`
	Currency string `default:"KZT" usage:"ISO currency code sent to the gateway"`
}

// NotifyConfig selects SQS delivery when QueueURL is set, logging otherwise.
type NotifyConfig struct {
	QueueURL string        `default:"" usage:"SQS queue URL for order events" flag:"notify-queue-url"`
	Region   string        `default:"us-east-1" usage:"AWS region of the queue"`
	Endpoint string        `default:"" usage:"SQS endpoint override (LocalStack)"`
	Timeout  time.Duration `default:"5s" usage:"Timeout per notification"`
}

// TxConfig controls retries of transactions that hit lock conflicts.
type TxConfig struct {
	MaxTries        uint          `default:"3" usage:"Attempts per transaction"`
	InitialInterval time.Duration `default:"50ms" usage:"First retry delay"`
	MaxInterval     time.Duration `default:"1s" usage:"Maximum retry delay"`
}

func (c TxConfig) retry() postgres.RetryConfig {
	return postgres.RetryConfig{
		MaxTries:        c.MaxTries,
		InitialInterval: c.InitialInterval,
		MaxInterval:     c.MaxInterval,
	}
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: skipFlags,
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT onto the
// SHOP_-prefixed configuration.
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
