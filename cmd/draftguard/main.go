package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"draftguard/internal/config"
	"draftguard/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string

	// Loaded configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "draftguard",
	Short: "draftguard - constraint-guarded planning document generation",
	Long: `draftguard turns resolved clarification answers into binding constraints,
generates a planning document through an LLM, pins the constraints into the
output, and validates the result through an ordered rule pipeline. Failed
attempts are regenerated with the blocking findings fed back, up to a
configured attempt limit.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.Store.DatabasePath = dbPath
		}
		if verbose {
			cfg.Logging.Enabled = true
			cfg.Logging.Level = "debug"
		}
		if err := logging.Configure(cfg.Logging); err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "draftguard.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override database path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
