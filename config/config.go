package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway endpoints
const (
	ProductionCheckoutURL = "https://secure.payza.com/checkout"
	SandboxCheckoutURL    = "https://sandbox.payza.com/sandbox/payprocess.aspx"
	ProductionIPNURL      = "https://secure.payza.com/ipn2.ashx"
	SandboxIPNURL         = "https://sandbox.Payza.com/sandbox/IPN2.ashx"
)

// Config holds application configuration
type Config struct {
	ServiceName  string
	OTELEndpoint string
	Port         string
	DatabaseURL  string
	Gateway      Gateway
}

// Gateway holds everything the checkout builder and the notification
// validator need to talk to the hosted checkout.
type Gateway struct {
	MerchantID    string
	PurchaseType  string
	Currency      string
	ReturnURL     string
	CancelURL     string
	NotifyURL     string
	CheckoutURL   string // storefront checkout page, used to send the buyer back
	Sandbox       bool
	VerifyTimeout time.Duration
	VerifyTLS     bool
}

// CheckoutEndpoint returns the hosted checkout URL for the configured mode.
func (g Gateway) CheckoutEndpoint() string {
	if g.Sandbox {
		return SandboxCheckoutURL
	}
	return ProductionCheckoutURL
}

// IPNEndpoint returns the token verification URL for the configured mode.
func (g Gateway) IPNEndpoint() string {
	if g.Sandbox {
		return SandboxIPNURL
	}
	return ProductionIPNURL
}

// Validate reports missing required gateway settings.
func (g Gateway) Validate() error {
	if strings.TrimSpace(g.MerchantID) == "" {
		return errors.New("PAYZA_MERCHANT_ID is required")
	}
	if g.Currency == "" {
		return errors.New("STORE_CURRENCY is required")
	}
	return nil
}

// Load loads configuration from environment variables, reading a .env
// file first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	baseURL := strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8081"), "/")

	cfg := &Config{
		ServiceName:  "payza-gateway",
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Port:         getEnv("PORT", "8081"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Gateway: Gateway{
			MerchantID:    strings.TrimSpace(os.Getenv("PAYZA_MERCHANT_ID")),
			PurchaseType:  getEnv("PAYZA_PURCHASE_TYPE", "item"),
			Currency:      strings.ToUpper(getEnv("STORE_CURRENCY", "USD")),
			ReturnURL:     getEnv("PAYZA_RETURN_URL", baseURL+"/checkout/success?payment-confirmation=payza"),
			CancelURL:     getEnv("PAYZA_CANCEL_URL", baseURL+"/checkout/failed"),
			NotifyURL:     getEnv("PAYZA_NOTIFY_URL", baseURL+"/?listener=PAYZA_IPN"),
			CheckoutURL:   getEnv("STORE_CHECKOUT_URL", baseURL+"/checkout"),
			Sandbox:       getEnvBool("PAYZA_SANDBOX", false),
			VerifyTimeout: getEnvDuration("PAYZA_VERIFY_TIMEOUT", 5*time.Second),
			VerifyTLS:     getEnvBool("PAYZA_VERIFY_TLS", true),
		},
	}

	if err := cfg.Gateway.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
