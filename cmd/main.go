package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namrata935/polycentric-el/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zones",
	Short: "Polycentric zone classifier",
	Long:  "Loads business and transit points from OpenStreetMap and classifies ~1 km grid cells into commercial, balanced and opportunity zones.",
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
