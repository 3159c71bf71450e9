package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is the gateway version reported by --version.
const Version = "0.3.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Node
	NodeURL      string
	NodeUser     string
	NodePassword string
	NodeTimeout  time.Duration

	// Indexer
	IndexerURL      string
	TokenIndexerURL string
	IndexerTimeout  time.Duration

	// Gateway
	Gateway        bool
	GatewayAddr    string
	GatewayPort    int
	GatewayAllowed string
	GatewayCORS    string
	RateLimit      float64
	RateBurst      int
	MaxBulk        int

	// Resolver
	ResolveTimeout time.Duration
	Lookahead      int

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags (for zero-value overrides).
	SetGateway   bool
	SetLogJSON   bool
	SetRateLimit bool
}

// ParseFlags parses command-line flags (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("bchgated", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet, testnet or regtest)")
	fs.BoolFunc("testnet", "Use testnet (shorthand for --network=testnet)", func(string) error {
		f.Network = string(Testnet)
		return nil
	})
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Node
	fs.StringVar(&f.NodeURL, "node-url", "", "Full node JSON-RPC URL")
	fs.StringVar(&f.NodeUser, "node-user", "", "Full node RPC user")
	fs.StringVar(&f.NodePassword, "node-password", "", "Full node RPC password")
	fs.DurationVar(&f.NodeTimeout, "node-timeout", 0, "Full node request timeout")

	// Indexer
	fs.StringVar(&f.IndexerURL, "indexer-url", "", "Address history indexer URL")
	fs.StringVar(&f.TokenIndexerURL, "token-indexer-url", "", "Token metadata indexer URL")
	fs.DurationVar(&f.IndexerTimeout, "indexer-timeout", 0, "Indexer request timeout")

	// Gateway
	fs.BoolVar(&f.Gateway, "gateway", true, "Enable REST gateway")
	fs.StringVar(&f.GatewayAddr, "addr", "", "Gateway listen address")
	fs.IntVar(&f.GatewayPort, "port", 0, "Gateway listen port")
	fs.StringVar(&f.GatewayAllowed, "allowed", "", "Allowed client IPs/CIDRs (comma-separated)")
	fs.StringVar(&f.GatewayCORS, "cors", "", "Allowed CORS origins (comma-separated)")
	fs.Float64Var(&f.RateLimit, "ratelimit", 0, "Requests per second per client (0 = unlimited)")
	fs.IntVar(&f.RateBurst, "rateburst", 0, "Rate limiter burst size")
	fs.IntVar(&f.MaxBulk, "maxbulk", 0, "Max addresses per bulk request")

	// Resolver
	fs.DurationVar(&f.ResolveTimeout, "resolve-timeout", 0, "Wall-clock bound for one resolution")
	fs.IntVar(&f.Lookahead, "lookahead", 0, "Transactions prefetched concurrently during a scan")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.SetGateway = isFlagSet(fs, "gateway")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetRateLimit = isFlagSet(fs, "ratelimit")
	f.Args = fs.Args()

	// A positional argument stops the parser; anything flag-like after it
	// would be silently ignored.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Node
	if f.NodeURL != "" {
		cfg.Node.URL = f.NodeURL
	}
	if f.NodeUser != "" {
		cfg.Node.User = f.NodeUser
	}
	if f.NodePassword != "" {
		cfg.Node.Password = f.NodePassword
	}
	if f.NodeTimeout != 0 {
		cfg.Node.Timeout = f.NodeTimeout
	}

	// Indexer
	if f.IndexerURL != "" {
		cfg.Indexer.URL = f.IndexerURL
	}
	if f.TokenIndexerURL != "" {
		cfg.Indexer.TokenURL = f.TokenIndexerURL
	}
	if f.IndexerTimeout != 0 {
		cfg.Indexer.Timeout = f.IndexerTimeout
	}

	// Gateway
	if f.SetGateway {
		cfg.Gateway.Enabled = f.Gateway
	}
	if f.GatewayAddr != "" {
		cfg.Gateway.Addr = f.GatewayAddr
	}
	if f.GatewayPort != 0 {
		cfg.Gateway.Port = f.GatewayPort
	}
	if f.GatewayAllowed != "" {
		cfg.Gateway.AllowedIPs = parseStringList(f.GatewayAllowed)
	}
	if f.GatewayCORS != "" {
		cfg.Gateway.CORSOrigins = parseStringList(f.GatewayCORS)
	}
	if f.SetRateLimit {
		cfg.Gateway.RateLimit = f.RateLimit
	}
	if f.RateBurst != 0 {
		cfg.Gateway.RateBurst = f.RateBurst
	}
	if f.MaxBulk != 0 {
		cfg.Gateway.MaxBulk = f.MaxBulk
	}

	// Resolver
	if f.ResolveTimeout != 0 {
		cfg.Resolver.Timeout = f.ResolveTimeout
	}
	if f.Lookahead != 0 {
		cfg.Resolver.Lookahead = f.Lookahead
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `bchgate - Bitcoin Cash REST gateway

Usage:
  bchgated [options]
  bchgated --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network type: mainnet (default), testnet or regtest
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.bchgate)
  --config, -c    Config file path (default: <datadir>/bchgate.conf)

Backend Options:
  --node-url            Full node JSON-RPC URL (mainnet: http://127.0.0.1:8332)
  --node-user           Full node RPC user
  --node-password       Full node RPC password
  --node-timeout        Full node request timeout (default: 15s)
  --indexer-url         Address history indexer URL
  --token-indexer-url   Token metadata indexer URL
  --indexer-timeout     Indexer request timeout (default: 15s)

Gateway Options:
  --gateway       Enable REST gateway (default: true)
  --addr          Listen address (default: 127.0.0.1)
  --port          Listen port (mainnet: 3000, testnet: 3100, regtest: 3200)
  --allowed       Allowed client IPs/CIDRs (comma-separated)
  --cors          Allowed CORS origins (comma-separated)
  --ratelimit     Requests per second per client (default: 10, 0 = unlimited)
  --rateburst     Rate limiter burst size (default: 20)
  --maxbulk       Max addresses per bulk request (default: 20)

Resolver Options:
  --resolve-timeout   Wall-clock bound for one resolution (default: 30s)
  --lookahead         Transactions prefetched concurrently (default: 1)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: <datadir>/logs/bchgate.log)
  --log-json      Output logs as JSON
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dir + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("bchgated version " + Version)
		os.Exit(0)
	}

	network := Mainnet
	if flags.Network != "" {
		network = NetworkType(strings.ToLower(flags.Network))
	}
	cfg := Default(network)

	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
