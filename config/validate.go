package config

import (
	"fmt"
	"net/url"

	klog "github.com/Klingon-tech/bchgate/internal/log"
)

// MaxLookahead caps the concurrent prefetch window of a scan.
const MaxLookahead = 16

// Validate checks the configuration for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Regtest:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Regtest)
	}

	if err := validateURL(cfg.Node.URL, "node.url", true); err != nil {
		return err
	}
	if err := validateURL(cfg.Indexer.URL, "indexer.url", true); err != nil {
		return err
	}
	if err := validateURL(cfg.Indexer.TokenURL, "indexer.tokenurl", false); err != nil {
		return err
	}
	if cfg.Node.Timeout <= 0 || cfg.Indexer.Timeout <= 0 {
		return fmt.Errorf("node.timeout and indexer.timeout must be positive")
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be in range [0, 65535]")
	}
	if cfg.Gateway.RateLimit < 0 {
		return fmt.Errorf("gateway.ratelimit must not be negative")
	}
	if cfg.Gateway.RateLimit > 0 && cfg.Gateway.RateBurst < 1 {
		return fmt.Errorf("gateway.rateburst must be at least 1 when rate limiting is enabled")
	}
	if cfg.Gateway.MaxBulk < 1 {
		return fmt.Errorf("gateway.maxbulk must be at least 1")
	}

	if cfg.Resolver.Timeout <= 0 {
		return fmt.Errorf("resolver.timeout must be positive")
	}
	if cfg.Resolver.Lookahead < 1 || cfg.Resolver.Lookahead > MaxLookahead {
		return fmt.Errorf("resolver.lookahead must be in range [1, %d]", MaxLookahead)
	}

	if !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error, off", cfg.Log.Level)
	}
	return nil
}

func validateURL(raw, field string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}
