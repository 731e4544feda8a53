package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/choropleth"
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Manage cached Census boundary files",
}

var boundariesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download boundary shapefiles ahead of rendering",
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, _ := cmd.Flags().GetStringSlice("levels")
		levels, err := parseLevels(names)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("prefetching boundaries",
			zap.Strings("levels", names),
			zap.Int("year", env.Boundaries.Year()),
			zap.String("dir", cfg.Boundary.Dir),
		)
		if err := env.Boundaries.Prefetch(cmd.Context(), levels...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Boundaries for %s ready in %s\n", strings.Join(names, ", "), cfg.Boundary.Dir) //nolint:errcheck
		return nil
	},
}

func parseLevels(names []string) ([]choropleth.DetailLevel, error) {
	levels := make([]choropleth.DetailLevel, 0, len(names))
	for _, n := range names {
		l, err := choropleth.ParseDetailLevel(n)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, nil
}

func init() {
	boundariesFetchCmd.Flags().StringSlice("levels", []string{"state", "county", "zip"}, "detail levels to download")
	boundariesCmd.AddCommand(boundariesFetchCmd)
	rootCmd.AddCommand(boundariesCmd)
}
