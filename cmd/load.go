package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

var loadForce bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load points from the Overpass API",
}

var loadBusinessCmd = &cobra.Command{
	Use:   "business",
	Short: "Load offices, shops and amenities",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), func(ctx context.Context, env *appEnv) (*model.IngestResult, error) {
			return env.Ingest.LoadBusinesses(ctx, loadForce)
		})
	},
}

var loadTransitCmd = &cobra.Command{
	Use:   "transit",
	Short: "Load bus stops, stations and subway entrances",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), func(ctx context.Context, env *appEnv) (*model.IngestResult, error) {
			return env.Ingest.LoadTransit(ctx, loadForce)
		})
	},
}

func runLoad(ctx context.Context, fn func(context.Context, *appEnv) (*model.IngestResult, error)) error {
	env, err := initEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := fn(ctx, env)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	loadCmd.PersistentFlags().BoolVar(&loadForce, "force", false, "reload even when data is already stored")
	loadCmd.AddCommand(loadBusinessCmd, loadTransitCmd)
	rootCmd.AddCommand(loadCmd)
}
