package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"pvkey-address/config"
	"pvkey-address/log"
	"pvkey-address/metrics"
	"pvkey-address/network/connection"
	"pvkey-address/pkg"
	"pvkey-address/types"
	"pvkey-address/wallet"

	"github.com/spf13/cobra"
)

var (
	configFile   string
	keysFile     string
	providerURLs string
	concurrency  int
	timeout      time.Duration
	logLevel     string
	logJSON      bool
)

// loadConfig resolves defaults, the config file, the environment and the
// flags the user actually set, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("keys-file") {
		cfg.KeysFile = keysFile
	}
	if flags.Changed("provider-urls") {
		cfg.ProviderURLs = config.SplitProviderURLs(providerURLs)
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = logJSON
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run derives an address for every valid key in cfg.KeysFile and writes them
// to stdout. With provider URLs configured each line also carries the
// account balance and pending nonce.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	startTime := time.Now()
	metricsData := types.NewDerivationMetrics()

	privateKeys, err := pkg.ReadPrivateKeysFromFile(cfg.KeysFile)
	if err != nil {
		return err
	}
	metricsData.AddLinesRead(len(privateKeys))
	metricsData.AddReadTime(time.Since(startTime))

	wallets := wallet.DeriveWallets(privateKeys, metricsData)

	if len(cfg.ProviderURLs) == 0 {
		if err := writeAddresses(stdout, wallets); err != nil {
			return err
		}
		metrics.LogDerivationSummary(log.Logger, metricsData, startTime)
		return nil
	}

	pool, err := connection.NewClientPool(ctx, connection.PoolConfig{
		Endpoints: cfg.ProviderURLs,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize client pool: %w", err)
	}
	defer pool.Close()
	log.RPC.Info().Int("endpoints", pool.Len()).Msg("Connected to providers")

	accounts := wallet.InspectWallets(ctx, wallets, pool, wallet.InspectOptions{
		Concurrency: cfg.Concurrency,
		CallTimeout: cfg.Timeout,
		Retry:       connection.DefaultRetryConfig(),
	}, metricsData)

	if err := writeAccounts(stdout, accounts); err != nil {
		return err
	}

	metrics.LogPoolStats(log.RPC, pool.Stats())
	metrics.LogDerivationSummary(log.Logger, metricsData, startTime)
	return nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pvkey-address",
		Short: "Print the EVM address of every private key in a file",
		Long: `pvkey-address reads private keys from a text file, one per line, and
prints the EVM wallet address of each valid key. Invalid lines are skipped
silently. With --provider-urls the balance and pending nonce of every address
are looked up as well.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flag values until the config is resolved, so loading can log.
			log.Init(stderr, logLevel, logJSON)
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log.Init(stderr, cfg.LogLevel, cfg.LogJSON)
			return run(cmd.Context(), cfg, stdout)
		},
	}

	defaults := config.Default()
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "Optional YAML config file")
	flags.StringVar(&keysFile, "keys-file", defaults.KeysFile, "File path for private keys")
	flags.StringVar(&providerURLs, "provider-urls", "", "Comma-separated list of provider URLs for balance and nonce lookup")
	flags.IntVar(&concurrency, "concurrency", defaults.Concurrency, "Maximum concurrent account lookups")
	flags.DurationVar(&timeout, "timeout", defaults.Timeout, "Timeout for a single RPC call")
	flags.StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error or off")
	flags.BoolVar(&logJSON, "log-json", defaults.LogJSON, "Write logs to stderr as JSON")

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
