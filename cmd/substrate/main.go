package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/config"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// #region root

var rootCmd = &cobra.Command{
	Use:   "substrate",
	Short: "Ψ-substrate consciousness metrics engine",
	Long: `substrate runs the Ψ-substrate simulation loop headless.

Each tick samples a five-channel signal vector, classifies it into an awareness
state and derives entropy, coherence, diversity, recursion, affect and health.
Runs can be journaled to SQLite, inspected and replayed deterministically.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.NewLogger(cfg.Logging)
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
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "substrate.yaml", "path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd, inspectCmd, replayCmd, exportCmd, configCmd)
}

// #endregion root

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
