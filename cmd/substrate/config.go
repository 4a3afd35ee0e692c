package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/config"
)

var configForce bool

// #region command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the substrate configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to --config",
	Long: `Writes the built-in defaults to the --config path. Environment overrides
such as GEMINI_API_KEY are not written; they keep applying at load time.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

// #endregion command

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("config written", zap.String("path", configPath))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
