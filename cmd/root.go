package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "acsmap",
	Short: "Choropleth maps from American Community Survey tables",
	Long:  "Fetches one ACS table from the Census API, reshapes it into a region/value table for a state, county or ZIP map, and renders it as GeoJSON, an Excel workbook or a console table.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
