// Package node provides a reusable gateway node that can be embedded
// in any binary (daemon, CLI, tests).
package node

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/bchgate/config"
	"github.com/Klingon-tech/bchgate/internal/gateway"
	"github.com/Klingon-tech/bchgate/internal/indexer"
	klog "github.com/Klingon-tech/bchgate/internal/log"
	"github.com/Klingon-tech/bchgate/internal/resolver"
	"github.com/Klingon-tech/bchgate/internal/rpcclient"
	"github.com/Klingon-tech/bchgate/pkg/cashaddr"
)

// Backends are the clients and resolver built from a configuration.
type Backends struct {
	Node     *rpcclient.Client
	Indexer  *indexer.Client
	Codec    *cashaddr.Codec
	Resolver *resolver.Resolver
}

// NewBackends builds the full node and indexer clients, the address
// codec for the configured network, and a resolver over them.
func NewBackends(cfg *config.Config) (*Backends, error) {
	params, err := cashaddr.ParamsFor(string(cfg.Network))
	if err != nil {
		return nil, err
	}
	codec := cashaddr.NewCodec(params)

	nodeClient := rpcclient.NewWithTimeout(cfg.Node.URL, cfg.Node.Timeout,
		rpcclient.WithBasicAuth(cfg.Node.User, cfg.Node.Password))
	idx := indexer.New(cfg.Indexer.URL, cfg.Indexer.TokenURL, cfg.Indexer.Timeout)

	res := resolver.New(idx, nodeClient, codec, resolver.Config{
		Timeout:   cfg.Resolver.Timeout,
		Lookahead: cfg.Resolver.Lookahead,
	})

	return &Backends{
		Node:     nodeClient,
		Indexer:  idx,
		Codec:    codec,
		Resolver: res,
	}, nil
}

// Node is a fully-initialized gateway node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	backends *Backends
	gateway  *gateway.Server
}

// New creates and initializes a new Node. It sets up logging, the
// backend clients, the resolver and the gateway, but does NOT bind the
// listener. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "bchgate.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("node", redactURL(cfg.Node.URL)).
		Str("indexer", cfg.Indexer.URL).
		Int("lookahead", cfg.Resolver.Lookahead).
		Dur("timeout", cfg.Resolver.Timeout).
		Msg("Starting bchgate")

	// ── 2. Backends ─────────────────────────────────────────────────
	backends, err := NewBackends(cfg)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		logger:   logger,
		backends: backends,
	}

	// ── 3. Gateway ──────────────────────────────────────────────────
	if cfg.Gateway.Enabled {
		addr := net.JoinHostPort(cfg.Gateway.Addr, strconv.Itoa(cfg.Gateway.Port))
		n.gateway = gateway.New(addr, backends.Resolver, cfg.Gateway)
		if cfg.Indexer.TokenURL != "" {
			n.gateway.SetTokenIndex(backends.Indexer)
		}
		n.gateway.SetHealthCheck(func(ctx context.Context) error {
			_, err := backends.Node.BlockCount(ctx)
			return err
		})
	}

	return n, nil
}

// Start binds the gateway listener and probes the full node. An
// unreachable node is logged, not fatal: every request re-dials it.
func (n *Node) Start() error {
	if n.gateway != nil {
		if err := n.gateway.Start(); err != nil {
			return err
		}
		n.logger.Info().Str("addr", n.gateway.Addr()).Msg("Gateway listening")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	height, err := n.backends.Node.BlockCount(ctx)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Full node not reachable yet")
	} else {
		n.logger.Info().Int64("height", height).Msg("Full node reachable")
	}

	n.logger.Info().
		Bool("gateway", n.gateway != nil).
		Bool("tokens", n.cfg.Indexer.TokenURL != "").
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown.
func (n *Node) Stop() {
	if n.gateway != nil {
		if err := n.gateway.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("Gateway shutdown")
		}
	}
	n.logger.Info().Msg("Goodbye!")
}

// GatewayAddr returns the address the gateway is listening on.
func (n *Node) GatewayAddr() string {
	if n.gateway == nil {
		return ""
	}
	return n.gateway.Addr()
}

// Resolver returns the node's resolver.
func (n *Node) Resolver() *resolver.Resolver {
	return n.backends.Resolver
}
