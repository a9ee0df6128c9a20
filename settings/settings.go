// Package settings is the read-only configuration surface the gateway
// consumes. All config is flat env vars read after Load; the admin UI that
// used to own these knobs is an external concern.
package settings

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	ucp "github.com/lilly-ofek/WooUCP"
)

// Load reads the .env file named by UCP_ENV (or .env by default), then the
// corresponding .secret sidecar if it exists.
func Load() error {
	envFile := os.Getenv("UCP_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; real deployments inject env directly.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return ":" + strconv.Itoa(ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// PublicEndpoint is the REST endpoint advertised in the discovery manifest.
func PublicEndpoint() string {
	if v := os.Getenv("UCP_PUBLIC_ENDPOINT"); v != "" {
		return v
	}
	return "http://localhost" + ServerAddr() + "/ucp/v1/"
}

// DevMode allows the "test" bypass signature. Off by default; never enable
// in production.
func DevMode() bool {
	return boolEnv("UCP_DEV_MODE", false)
}

// DebugMode raises log verbosity.
func DebugMode() bool {
	return boolEnv("UCP_DEBUG_MODE", false)
}

// RequireRequestDigest controls whether signature tokens must carry the
// request_digest claim. On by default.
func RequireRequestDigest() bool {
	return boolEnv("UCP_REQUIRE_REQUEST_DIGEST", true)
}

// MaxOrderTotal returns the spend cap in minor units; 0 disables the cap.
// The env value is a decimal amount, e.g. UCP_MAX_ORDER_TOTAL=500.00.
func MaxOrderTotal() int64 {
	raw := os.Getenv("UCP_MAX_ORDER_TOTAL")
	if raw == "" {
		raw = "500.00"
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(math.Round(f * 100))
}

// AgentAllowlist returns the allowed agent profile URLs, one per line in
// UCP_AGENT_WHITELIST. Empty means any agent with a valid signature.
func AgentAllowlist() []string {
	return ParseAllowlist(os.Getenv("UCP_AGENT_WHITELIST"))
}

// ParseAllowlist splits a newline-separated allow-list, trimming blanks.
func ParseAllowlist(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// DefaultOrderStatus is the status given to new agent-created orders.
// Valid values: processing, on-hold, pending.
func DefaultOrderStatus() string {
	switch v := os.Getenv("UCP_DEFAULT_ORDER_STATUS"); v {
	case "processing", "on-hold", "pending":
		return v
	default:
		return "processing"
	}
}

// Capabilities parses UCP_CAPABILITIES (comma-separated). Defaults to both
// checkout and discovery enabled.
func Capabilities() ucp.CapabilitySet {
	raw := os.Getenv("UCP_CAPABILITIES")
	if raw == "" {
		return ucp.NewCapabilitySet(ucp.CapabilityCheckout, ucp.CapabilityDiscovery)
	}
	set := ucp.CapabilitySet{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		set[ucp.Capability(part)] = struct{}{}
	}
	return set
}

// PaymentMethod names the registered payment backend. Empty disables
// checkout entirely; the default is the mock handler advertised in the
// discovery manifest.
func PaymentMethod() string {
	if v, ok := os.LookupEnv("UCP_PAYMENT_METHOD"); ok {
		return v
	}
	return "mock_payment_handler"
}

// CatalogFile optionally points at a JSON product/coupon catalog.
func CatalogFile() string {
	return os.Getenv("UCP_CATALOG_FILE")
}

// WebhookEndpoint optionally names an order-event webhook receiver.
func WebhookEndpoint() string {
	return os.Getenv("UCP_WEBHOOK_ENDPOINT")
}

func WebhookSecret() string {
	return os.Getenv("UCP_WEBHOOK_SECRET")
}

// RateLimitRPS returns requests per second per client IP. Defaults to 50.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 50
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting. Defaults to 20.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

func boolEnv(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
