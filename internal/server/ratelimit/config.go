package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket survives cleanup.
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window; 0 means unlimited
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// DefaultConfig returns the configuration used when no environment overrides are set.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// LoadConfig loads rate limiting configuration from RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom is LoadConfig with an explicit variable lookup.
func LoadConfigFrom(getenv func(string) string) *Config {
	env := envReader(getenv)
	cfg := DefaultConfig()

	cfg.Enabled = env.bool("RATE_LIMIT_ENABLED", cfg.Enabled)
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}

	cfg.DefaultLimit = env.int("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = env.duration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = env.duration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseIPList(getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseIPList(getenv("RATE_LIMIT_BLACKLIST"))

	// Uploads call the model, so they get their own knob.
	auditLimit := env.int("RATE_LIMIT_AUDIT_LIMIT", 0)
	auditWindow := env.duration("RATE_LIMIT_AUDIT_WINDOW", 0)
	for i := range cfg.EndpointConfigs {
		ec := &cfg.EndpointConfigs[i]
		if ec.Path != AuditPath {
			continue
		}
		if auditLimit > 0 {
			ec.Limit = auditLimit
			ec.Burst = min(ec.Burst, auditLimit)
		}
		if auditWindow > 0 {
			ec.Window = auditWindow
		}
	}

	return cfg
}

// AuditPath is the upload endpoint, the most expensive route.
const AuditPath = "/api/audit"

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Uploads run text extraction and a model call.
		{Path: AuditPath, Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// Corrections and deletions.
		{Path: "/api/contracts/", Method: "PUT", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/api/contracts/", Method: "DELETE", Limit: 60, Window: time.Minute, Burst: 10},

		// Workbook generation walks every record.
		{Path: "/api/contracts/export.xlsx", Method: "GET", Limit: 20, Window: time.Minute, Burst: 5},

		// Reads fall through to the default limit; /health is unlimited (see MatchEndpoint).
	}
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(e(key))); err == nil {
		return v
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(e(key))); err == nil {
		return v
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(e(key))); err == nil {
		return v
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
