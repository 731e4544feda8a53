package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render TABLE",
	Short: "Render an ACS table as a choropleth",
	Long: `Fetches every region of the requested level for TABLE (for example B19013,
median household income), picks one estimate column and renders it.

Tables with several estimate columns prompt for a column on a terminal; use
--column or --first in scripts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("render"); err != nil {
			return err
		}

		job, err := renderJobFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		deps := env.deps()
		keepMissing, _ := cmd.Flags().GetBool("keep-missing")
		if keepMissing {
			deps.normalize = append(deps.normalize, choropleth.KeepMissing())
		}

		res, out, err := deps.run(ctx, job)
		if err != nil {
			return err
		}
		if err := writeArtifact(cmd.OutOrStdout(), job.output, out); err != nil {
			return err
		}

		zap.L().Info("render complete",
			zap.String("table", job.req.TableID),
			zap.String("column", res.ColumnName),
			zap.Int("regions", len(res.Table)),
			zap.String("output", job.output),
		)
		if job.output != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d regions (%s) to %s\n", len(res.Table), res.ColumnName, job.output) //nolint:errcheck
		}
		return nil
	},
}

// renderJobFromFlags builds the job from flags, falling back to config defaults.
func renderJobFromFlags(cmd *cobra.Command, tableID string) (renderJob, error) {
	f := cmd.Flags()

	levelFlag, _ := f.GetString("level")
	level, err := choropleth.ParseDetailLevel(levelFlag)
	if err != nil {
		return renderJob{}, err
	}

	formatName := cfg.Render.Format
	if f.Changed("format") {
		formatName, _ = f.GetString("format")
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		return renderJob{}, err
	}

	req := choropleth.NewRequest(strings.ToUpper(strings.TrimSpace(tableID)), level)
	req.Buckets = cfg.Render.Buckets
	if f.Changed("buckets") {
		req.Buckets, _ = f.GetInt("buckets")
	}
	req.ShowLabels = cfg.Render.ShowLabels
	if f.Changed("labels") {
		req.ShowLabels, _ = f.GetBool("labels")
	}
	req.Title, _ = f.GetString("title")
	req.Subtitle, _ = f.GetString("subtitle")

	column, _ := f.GetInt("column")
	first, _ := f.GetBool("first")
	out, _ := f.GetString("out")
	chooser, err := chooserFor(column, first)
	if err != nil {
		return renderJob{}, err
	}

	return renderJob{
		req:     req,
		format:  format,
		chooser: chooser,
		output:  outputPath(out, format, req),
	}, nil
}

// outputPath returns the destination for an artifact. Console tables default
// to stdout; other formats default to <output_dir>/<TABLE>_<level><ext>.
func outputPath(out string, format render.Format, req choropleth.Request) string {
	if out != "" {
		return out
	}
	if format == render.FormatTable {
		return "-"
	}
	name := fmt.Sprintf("%s_%s%s", req.TableID, req.Level, format.Ext())
	return filepath.Join(cfg.Render.OutputDir, name)
}

// writeArtifact writes data to path, or to stdout when path is "-".
func writeArtifact(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return eris.Wrap(err, "render: write stdout")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "render: create %s", dir)
		}
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "render: write %s", path)
}

func init() {
	f := renderCmd.Flags()
	f.String("level", "", "detail level: state, county or zip")
	f.Int("buckets", choropleth.DefaultBuckets, "1 for a continuous scale, 2-9 for quantile buckets")
	f.Bool("labels", true, "show region labels")
	f.String("format", "geojson", "output format: geojson, xlsx or table")
	f.String("out", "", `output path ("-" for stdout)`)
	f.Int("column", -1, "zero-based estimate column to render")
	f.Bool("first", false, "render the first estimate column without prompting")
	f.String("title", "", "map title (default: table title)")
	f.String("subtitle", "", "map subtitle (default: column label for multi-column tables)")
	f.Bool("keep-missing", false, "keep ZIP regions without an estimate")
	_ = renderCmd.MarkFlagRequired("level")
	renderCmd.MarkFlagsMutuallyExclusive("column", "first")
	rootCmd.AddCommand(renderCmd)
}
