package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration values from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// Node
	case "node.url":
		cfg.Node.URL = value
	case "node.user":
		cfg.Node.User = value
	case "node.password":
		cfg.Node.Password = value
	case "node.timeout":
		cfg.Node.Timeout, err = time.ParseDuration(value)

	// Indexer
	case "indexer.url":
		cfg.Indexer.URL = value
	case "indexer.tokenurl":
		cfg.Indexer.TokenURL = value
	case "indexer.timeout":
		cfg.Indexer.Timeout, err = time.ParseDuration(value)

	// Gateway
	case "gateway.enabled", "gateway":
		cfg.Gateway.Enabled = parseBool(value)
	case "gateway.addr":
		cfg.Gateway.Addr = value
	case "gateway.port":
		cfg.Gateway.Port, err = strconv.Atoi(value)
	case "gateway.allowed":
		cfg.Gateway.AllowedIPs = parseStringList(value)
	case "gateway.cors":
		cfg.Gateway.CORSOrigins = parseStringList(value)
	case "gateway.ratelimit":
		cfg.Gateway.RateLimit, err = strconv.ParseFloat(value, 64)
	case "gateway.rateburst":
		cfg.Gateway.RateBurst, err = strconv.Atoi(value)
	case "gateway.maxbulk":
		cfg.Gateway.MaxBulk, err = strconv.Atoi(value)

	// Resolver
	case "resolver.timeout":
		cfg.Resolver.Timeout, err = time.ParseDuration(value)
	case "resolver.lookahead":
		cfg.Resolver.Lookahead, err = strconv.Atoi(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, cfg *Config) error {
	content := `# bchgate configuration

# Network: mainnet, testnet or regtest
network = ` + string(cfg.Network) + `

# Data directory (default: ~/.bchgate)
# datadir = ~/.bchgate

# ============================================================================
# Full node (JSON-RPC)
# ============================================================================

node.url = ` + cfg.Node.URL + `
# node.user = rpcuser
# node.password = rpcpassword
node.timeout = ` + cfg.Node.Timeout.String() + `

# ============================================================================
# Indexers
# ============================================================================

indexer.url = ` + cfg.Indexer.URL + `
# Token metadata indexer (enables /v1/slp/mutable/token/{tokenId})
# indexer.tokenurl = http://127.0.0.1:5010
indexer.timeout = ` + cfg.Indexer.Timeout.String() + `

# ============================================================================
# REST gateway
# ============================================================================

gateway.enabled = true
gateway.addr = ` + cfg.Gateway.Addr + `
gateway.port = ` + strconv.Itoa(cfg.Gateway.Port) + `
# gateway.allowed = 127.0.0.1,10.0.0.0/8
# gateway.cors = *
gateway.ratelimit = ` + strconv.FormatFloat(cfg.Gateway.RateLimit, 'f', -1, 64) + `
gateway.rateburst = ` + strconv.Itoa(cfg.Gateway.RateBurst) + `
gateway.maxbulk = ` + strconv.Itoa(cfg.Gateway.MaxBulk) + `

# ============================================================================
# Resolver
# ============================================================================

resolver.timeout = ` + cfg.Resolver.Timeout.String() + `
# Transactions prefetched concurrently during a scan (1 = sequential)
resolver.lookahead = ` + strconv.Itoa(cfg.Resolver.Lookahead) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
