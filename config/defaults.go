package config

import "time"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Node: NodeConfig{
			URL:     "http://127.0.0.1:8332",
			Timeout: 15 * time.Second,
		},
		Indexer: IndexerConfig{
			URL:     "http://127.0.0.1:3001/v1",
			Timeout: 15 * time.Second,
		},
		Gateway: GatewayConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       3000,
			AllowedIPs: []string{},
			RateLimit:  10,
			RateBurst:  20,
			MaxBulk:    20,
		},
		Resolver: ResolverConfig{
			Timeout:   30 * time.Second,
			Lookahead: 1,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Node.URL = "http://127.0.0.1:18332"
	cfg.Gateway.Port = 3100
	return cfg
}

// DefaultRegtest returns the default configuration for regtest.
func DefaultRegtest() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Regtest
	cfg.Node.URL = "http://127.0.0.1:18443"
	cfg.Gateway.Port = 3200
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Regtest:
		return DefaultRegtest()
	default:
		return DefaultMainnet()
	}
}
