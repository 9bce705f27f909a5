package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/config"
)

const programName = "lmctl"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string

	cfg    *config.Config
	logger *zap.Logger
)

func newLogger() (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if globalFlags.debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapCfg.Build()
}

// connect dials the configured node
func connect(ctx context.Context) (*evm.Client, error) {
	client, err := evm.NewClient(ctx, &cfg.Chain, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPCURL, err)
	}
	return client, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Rehearse the liquidity mining proposal against a forked node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", os.Getenv("LM_CONFIG_FILE"), "path to config file")
	rootCmd.PersistentFlags().
		String("rpc-url", "", "node JSON-RPC endpoint, overrides the config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		if logger, err = newLogger(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg, err = config.LoadConfig(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with command line flags
		if rpcURL, _ := cmd.Root().PersistentFlags().GetString("rpc-url"); rpcURL != "" {
			cfg.Chain.RPCURL = rpcURL
		}
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(deployCommand())
	rootCmd.AddCommand(rehearseCommand())
	rootCmd.AddCommand(poolCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
