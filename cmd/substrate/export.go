package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/replay"
)

var (
	exportDB      string
	exportSession string
	exportOut     string
	exportDesc    string
)

// #region command

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a journaled session as a replay fixture",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDB, "db", "", "journal path (defaults to config journal.path)")
	exportCmd.Flags().StringVarP(&exportSession, "session", "s", "", "journaled session ID")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output fixture JSON path")
	exportCmd.Flags().StringVar(&exportDesc, "description", "", "fixture description")
	_ = exportCmd.MarkFlagRequired("session")
	_ = exportCmd.MarkFlagRequired("out")
}

// #endregion command

func runExport(cmd *cobra.Command, _ []string) error {
	f, err := loadSessionFixture(exportDB, exportSession)
	if err != nil {
		return err
	}
	if exportDesc != "" {
		f.Description = exportDesc
	}
	if err := replay.SaveFixture(exportOut, f); err != nil {
		return err
	}
	logger.Info("fixture exported",
		zap.String("session", exportSession),
		zap.String("path", exportOut),
		zap.Int("steps", f.Ticks),
		zap.Int("commands", len(f.Commands)))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d steps, %d commands, %d expected results\n",
		exportOut, f.Ticks, len(f.Commands), len(f.ExpectedResults))
	return nil
}
