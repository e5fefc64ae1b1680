package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/abhisek/tierwise/internal/bank"
	"github.com/abhisek/tierwise/internal/config"
	"github.com/abhisek/tierwise/internal/store"
	"github.com/abhisek/tierwise/internal/thresholds"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tierwise",
	Short: "Adaptive assessment and tiering engine",
	Long: "tierwise delivers adaptive assessments, scores them and places students " +
		"into intervention tiers, with reading breakdown diagnosis.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "SQLite path or postgres:// DSN (overrides TIERWISE_DB)")
	pf.String("thresholds", "", "Threshold YAML file (overrides TIERWISE_THRESHOLDS)")
	pf.String("bank", "", "Question bank JSON file (overrides TIERWISE_BANK)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (overrides TIERWISE_LOG_LEVEL)")
	pf.String("log-format", "", "Log format: text or json (overrides TIERWISE_LOG_FORMAT)")
	pf.StringSlice("env-file", nil, "Env files to load (default .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(readingCmd)
	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(thresholdsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads env files and environment, then applies flags, which
// win over both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	override := func(dst *string, flag string) {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*dst = v
		}
	}
	override(&cfg.DB, "db")
	override(&cfg.Thresholds, "thresholds")
	override(&cfg.Bank, "bank")
	override(&cfg.LogLevel, "log-level")
	override(&cfg.LogFormat, "log-format")
	return cfg, cfg.Validate()
}

// newLogger logs to stderr so command output on stdout stays clean.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return logger
}

// loadThresholds returns the configured table, or the built-in one when no
// file is set.
func loadThresholds(cfg *config.Config) (*thresholds.Config, error) {
	if cfg.Thresholds == "" {
		return thresholds.Default(), nil
	}
	return thresholds.Load(cfg.Thresholds)
}

func loadBank(cfg *config.Config) (*bank.Bank, error) {
	if cfg.Bank == "" {
		return nil, fmt.Errorf("no question bank: set --bank or TIERWISE_BANK")
	}
	return bank.Load(cfg.Bank)
}

// openStore resolves the database using --db / TIERWISE_DB, then the
// default data-dir path.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	dsn := cfg.DB
	switch {
	case dsn == "":
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = p
	case !store.IsPostgres(dsn):
		if err := store.EnsureDir(dsn); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	s, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
