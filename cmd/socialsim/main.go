package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"socialsim/config"
	"socialsim/db"
	"socialsim/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const version = "0.3.0"

var (
	configPath string
	verbose    bool
	seed       bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "socialsim",
	Short: "socialsim - in-memory social network console",
	Long: `socialsim keeps accounts, posts and direct messages in memory and
drives them from a line-oriented console on stdin/stdout.

Run without arguments to start the console. Type "help" for commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger, err = newLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context(), cfg.Seed || seed)
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive console",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context(), cfg.Seed || seed)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Start the console with the demo accounts Sarto and Aof",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context(), true)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "socialsim", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&seed, "seed", false, "register the demo accounts at startup")

	rootCmd.AddCommand(consoleCmd, demoCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = cfg.LogFormat
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.LogFormat == "console" {
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zcfg.Build()
}

func runConsole(ctx context.Context, withSeed bool) error {
	database := db.New(
		db.WithBcryptCost(cfg.BcryptCost),
		db.WithLogger(logger.Named("db")),
	)
	srv, err := server.New(database, &server.ServerConfig{MaxLineBytes: cfg.MaxLineBytes}, logger.Named("server"))
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer srv.Close()

	if withSeed {
		if err := srv.Seed(); err != nil {
			return err
		}
		logger.Info("demo accounts registered")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Serve(gctx, os.Stdin, os.Stdout)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("console closed", zap.String("stats", srv.Stats()))
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
