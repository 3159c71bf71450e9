package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Klingon-tech/bchgate/config"
	klog "github.com/Klingon-tech/bchgate/internal/log"
	"github.com/Klingon-tech/bchgate/internal/node"
)

// options holds the persistent flags shared by every command.
type options struct {
	network      string
	dataDir      string
	confFile     string
	nodeURL      string
	nodeUser     string
	nodePassword string
	indexerURL   string
	tokenURL     string
	timeout      time.Duration
	lookahead    int
	logLevel     string
	json         bool

	// Filled in by PersistentPreRunE.
	cfg      *config.Config
	backends *node.Backends
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "bchgate-cli",
		Short: "Resolve Bitcoin Cash public keys and mutable data pointers",
		Long: `bchgate-cli runs the gateway's resolution scans from the command line.

It reads the same bchgate.conf as bchgated (from --datadir or --config)
and talks to the full node and indexers directly. Output is human readable
on a terminal and JSON otherwise (or with --json).`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}
			return opts.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.network, "network", "mainnet", "Network: mainnet, testnet, regtest")
	pf.StringVar(&opts.dataDir, "datadir", "", "Data directory holding bchgate.conf")
	pf.StringVarP(&opts.confFile, "config", "c", "", "Config file path")
	pf.StringVar(&opts.nodeURL, "node-url", "", "Full node JSON-RPC URL")
	pf.StringVar(&opts.nodeUser, "node-user", "", "Full node RPC user")
	pf.StringVar(&opts.nodePassword, "node-password", "", "Full node RPC password (prompted when a user is set and this is empty)")
	pf.StringVar(&opts.indexerURL, "indexer-url", "", "Address history indexer URL")
	pf.StringVar(&opts.tokenURL, "token-indexer-url", "", "Token metadata indexer URL")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Resolution timeout")
	pf.IntVar(&opts.lookahead, "lookahead", 0, "Concurrent prefetch window")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level (written to stderr)")
	pf.BoolVar(&opts.json, "json", false, "Always print JSON")

	rootCmd.AddCommand(
		newPubKeyCmd(opts),
		newPointerCmd(opts),
		newRecordCmd(opts),
		newMutableCmd(opts),
		newTokenCmd(opts),
		newAddressCmd(opts),
		newStatusCmd(opts),
	)
	return rootCmd
}

// setup layers defaults, the config file and changed flags, then builds
// the backends.
func (o *options) setup(cmd *cobra.Command) error {
	if !klog.ValidLevel(o.logLevel) {
		return fmt.Errorf("invalid log level %q", o.logLevel)
	}
	klog.SetLogger(klog.NewConsoleLogger(os.Stderr, o.logLevel))

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Node.User != "" && cfg.Node.Password == "" && term.IsTerminal(int(syscall.Stdin)) {
		pw, err := readPassword(fmt.Sprintf("RPC password for %s: ", cfg.Node.User))
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		cfg.Node.Password = string(pw)
	}

	backends, err := node.NewBackends(cfg)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.backends = backends
	return nil
}

func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default(config.NetworkType(strings.ToLower(o.network)))
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}

	path := o.confFile
	if path == "" {
		path = cfg.ConfigFile()
	}
	values, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := config.ApplyFileConfig(cfg, values); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("node-url") {
		cfg.Node.URL = o.nodeURL
	}
	if changed("node-user") {
		cfg.Node.User = o.nodeUser
	}
	if changed("node-password") {
		cfg.Node.Password = o.nodePassword
	}
	if changed("indexer-url") {
		cfg.Indexer.URL = o.indexerURL
	}
	if changed("token-indexer-url") {
		cfg.Indexer.TokenURL = o.tokenURL
	}
	if changed("timeout") {
		cfg.Resolver.Timeout = o.timeout
	}
	if changed("lookahead") {
		cfg.Resolver.Lookahead = o.lookahead
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}
