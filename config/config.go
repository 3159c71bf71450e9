// Package config handles gateway configuration.
//
// Settings are layered: built-in defaults per network, then the
// bchgate.conf file, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies the Bitcoin Cash network the gateway serves.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// Config holds the gateway runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Full node JSON-RPC
	Node NodeConfig

	// Address history and token metadata indexers
	Indexer IndexerConfig

	// REST gateway
	Gateway GatewayConfig

	// Resolution scans
	Resolver ResolverConfig

	// Logging
	Log LogConfig
}

// NodeConfig holds full node RPC settings.
type NodeConfig struct {
	URL      string        `conf:"node.url"`
	User     string        `conf:"node.user"`
	Password string        `conf:"node.password"`
	Timeout  time.Duration `conf:"node.timeout"`
}

// IndexerConfig holds indexer REST settings.
type IndexerConfig struct {
	URL      string        `conf:"indexer.url"`
	TokenURL string        `conf:"indexer.tokenurl"` // Token metadata indexer (empty disables token lookups).
	Timeout  time.Duration `conf:"indexer.timeout"`
}

// GatewayConfig holds REST server settings.
type GatewayConfig struct {
	Enabled     bool     `conf:"gateway.enabled"`
	Addr        string   `conf:"gateway.addr"`
	Port        int      `conf:"gateway.port"`
	AllowedIPs  []string `conf:"gateway.allowed"`
	CORSOrigins []string `conf:"gateway.cors"`
	RateLimit   float64  `conf:"gateway.ratelimit"` // Requests per second per client IP (0 = unlimited).
	RateBurst   int      `conf:"gateway.rateburst"`
	MaxBulk     int      `conf:"gateway.maxbulk"` // Max addresses per bulk request.
}

// ResolverConfig holds scan settings.
type ResolverConfig struct {
	Timeout   time.Duration `conf:"resolver.timeout"`   // Wall-clock bound for one resolution.
	Lookahead int           `conf:"resolver.lookahead"` // Concurrent prefetch window (1 = sequential).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.bchgate
//	macOS:   ~/Library/Application Support/bchgate
//	Windows: %APPDATA%\bchgate
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bchgate"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "bchgate")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "bchgate")
		}
		return filepath.Join(home, "AppData", "Roaming", "bchgate")
	default:
		return filepath.Join(home, ".bchgate")
	}
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "bchgate.conf")
}
