package config

import (
	"strings"
	"time"
)

// ObservabilityConfig groups configuration for metrics and relay fan-out.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
	Relay   RelayConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Relay.Sanitize()
}

// ObservabilityMetricsConfig controls the Prometheus scrape endpoint.
type ObservabilityMetricsConfig struct {
	Enabled bool   `env:"OBSERVABILITY_METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"OBSERVABILITY_METRICS_PATH"    envDefault:"/metrics"`
}

// Sanitize normalises the scrape path.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
}

// RelayConfig points at the real-time event relay that fans complaint
// updates out to connected clients.
type RelayConfig struct {
	URL     string        `env:"RELAY_URL"`
	Timeout time.Duration `env:"RELAY_TIMEOUT" envDefault:"2s"`
}

// Sanitize normalises relay configuration values.
func (c *RelayConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
}

// IsEnabled returns true when a relay URL is configured.
func (c *RelayConfig) IsEnabled() bool {
	return c.URL != ""
}
