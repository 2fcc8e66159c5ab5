package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namrata935/polycentric-el/internal/core"
	"github.com/namrata935/polycentric-el/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Classify and export zones",
}

var zonesClassifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify the stored points and print the summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Zones.Summary(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

var zonesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the classified zones as CSV or GeoJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportFormat != "csv" && exportFormat != "geojson" {
			return eris.Errorf("unsupported export format %q (want csv or geojson)", exportFormat)
		}

		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		zones, err := env.Zones.ClassifyZones(cmd.Context())
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOut)
			}
			defer f.Close()
			w = f
		}

		if exportFormat == "geojson" {
			err = export.WriteGeoJSON(w, zones)
		} else {
			err = export.WriteCSV(w, zones)
		}
		if err != nil {
			return err
		}

		summary := core.Summarize(zones)
		zap.L().Info("zones exported",
			zap.String("format", exportFormat),
			zap.String("out", exportOut),
			zap.Int("zones", summary.TotalZones),
		)
		return nil
	},
}

func init() {
	zonesExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or geojson")
	zonesExportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	zonesCmd.AddCommand(zonesClassifyCmd, zonesExportCmd)
	rootCmd.AddCommand(zonesCmd)
}
