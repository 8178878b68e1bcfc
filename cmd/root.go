package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pivotpie/collection-insights/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "collection-insights",
	Short: "Temporal pattern analysis for grease-trap collection services",
	Long:  "Infers per-entity collection intervals from service history, classifies overdue risk, aggregates by category and area, forecasts demand, and ranks critical alerts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
