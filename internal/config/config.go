package config

import (
	"os"
	"strconv"
	"time"
)

// GatewayVariant selects the charging strategy for a gateway entry.
// The original product shipped "full payment" and "partial advance + COD"
// as separate near-identical gateways; here they are one type with a variant.
type GatewayVariant string

const (
	VariantFull       GatewayVariant = "full"
	VariantPartialCOD GatewayVariant = "partial_cod"
)

// Gateway holds the settings for one registered payment method.
type Gateway struct {
	ID          string
	Variant     GatewayVariant
	Enabled     bool
	Title       string
	Description string

	// Mode is "production" or "development"; credentials are resolved per mode.
	Mode         string
	DisplayMode  string // "wizard" (popup widget) or "inline" (QR in page)
	ClientID     string
	ClientSecret string

	// PartialPercent is the advance percentage charged online for the
	// partial_cod variant. Ignored for the full variant.
	PartialPercent int

	// Result is a testing aid: when "failure", checkout reports failure even
	// after a session was created, exercising the failure path end to end.
	Result string
}

type Config struct {
	Port         string
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string

	// PublicBaseURL is the externally reachable base of this service; the
	// provider calls back on {PublicBaseURL}/webhook.
	PublicBaseURL string

	CurrencySymbol string

	// DefaultLayout is used when a checkout request carries no page content
	// to classify: "block" or "classic".
	DefaultLayout string

	// Background reconciliation sweep.
	SweepInterval time.Duration
	SweepGrace    time.Duration

	Gateways []Gateway
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	symbol := os.Getenv("CURRENCY_SYMBOL")
	if symbol == "" {
		symbol = "₹"
	}

	layout := os.Getenv("CHECKOUT_LAYOUT")
	if layout == "" {
		layout = "classic"
	}

	return &Config{
		Port:           port,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   os.Getenv("KAFKA_BROKERS"),
		PublicBaseURL:  baseURL,
		CurrencySymbol: symbol,
		DefaultLayout:  layout,
		SweepInterval:  envDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepGrace:     envDuration("SWEEP_GRACE", 2*time.Minute),
		Gateways: []Gateway{
			loadGateway("smepfowo", VariantFull, ""),
			loadGateway("smepfowo_partial_cod", VariantPartialCOD, "PARTIAL_COD_"),
		},
	}
}

// loadGateway reads one gateway block. Variant-specific overrides use the
// given env prefix (e.g. SMEPAY_PARTIAL_COD_ENABLED); credentials and mode
// are shared across variants unless overridden.
func loadGateway(id string, variant GatewayVariant, prefix string) Gateway {
	mode := envFallback("SMEPAY_"+prefix+"MODE", "SMEPAY_MODE")
	if mode == "" {
		mode = "production"
	}

	clientID := envFallback("SMEPAY_"+prefix+"CLIENT_ID", "SMEPAY_CLIENT_ID")
	clientSecret := envFallback("SMEPAY_"+prefix+"CLIENT_SECRET", "SMEPAY_CLIENT_SECRET")
	if mode == "development" {
		clientID = envFallback("SMEPAY_"+prefix+"DEV_CLIENT_ID", "SMEPAY_DEV_CLIENT_ID")
		clientSecret = envFallback("SMEPAY_"+prefix+"DEV_CLIENT_SECRET", "SMEPAY_DEV_CLIENT_SECRET")
	}

	displayMode := envFallback("SMEPAY_"+prefix+"DISPLAY_MODE", "SMEPAY_DISPLAY_MODE")
	if displayMode == "" {
		displayMode = "wizard"
	}

	result := envFallback("SMEPAY_"+prefix+"RESULT", "SMEPAY_RESULT")
	if result == "" {
		result = "success"
	}

	title := "UPI Pay"
	description := "Secure by SMEPay."
	if variant == VariantPartialCOD {
		title = "Partial Payment with COD"
		description = "Pay part now, rest on delivery."
	}
	if v := os.Getenv("SMEPAY_" + prefix + "TITLE"); v != "" {
		title = v
	}
	if v := os.Getenv("SMEPAY_" + prefix + "DESCRIPTION"); v != "" {
		description = v
	}

	return Gateway{
		ID:             id,
		Variant:        variant,
		Enabled:        os.Getenv("SMEPAY_"+prefix+"ENABLED") != "false",
		Title:          title,
		Description:    description,
		Mode:           mode,
		DisplayMode:    displayMode,
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		PartialPercent: envInt("SMEPAY_PARTIAL_PERCENT", 30),
		Result:         result,
	}
}

// Available reports whether the gateway can be offered at checkout.
// Missing credentials hide the method rather than erroring at payment time.
func (g Gateway) Available() bool {
	return g.Enabled && g.ClientID != "" && g.ClientSecret != ""
}

func envFallback(key, fallbackKey string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return os.Getenv(fallbackKey)
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
