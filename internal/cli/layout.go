package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xfe/vf-musicxml-sub003/pkg/pipeline"
)

// layoutCommand creates the layout command for computing score layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout [score.json]",
		Short: "Compute a page layout plan from a score file",
		Long: `Compute a page layout plan from a score file.

The layout command takes a score file (JSON, or YAML by extension) and
computes the complete layout: measure widths, system and page breaks, glyph
boxes, text lanes, and spanner paths. The output is a plan.json that a
renderer draws without further layout decisions.

The plan also runs through a collision audit unless --no-audit is set.
Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ScorePath = args[0]
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.plan.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")

	// Layout flags
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "TOML file with engraving coefficients")
	cmd.Flags().BoolVar(&opts.NoAudit, "no-audit", false, "skip the collision audit")

	return cmd
}

// runLayout executes the pipeline and writes the plan.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(opts.ScorePath, filepath.Ext(opts.ScorePath))
		outputPath = base + ".plan.json"
	}

	data, err := result.Plan.Marshal()
	if err != nil {
		return fmt.Errorf("serialize plan: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(result.Stats.Measures, result.Stats.Systems, result.Stats.Pages, result.CacheInfo.PlanHit)

	for _, d := range result.Plan.Diagnostics {
		printWarning("%s", d.String())
	}
	if result.Report != nil {
		minor, major := result.Report.Counts()
		if major > 0 {
			printWarning("audit found %d major and %d minor findings", major, minor)
		} else if minor > 0 {
			printDetail("audit found %d minor findings", minor)
		}
	}

	printNewline()
	printNextStep("Inspect", appName+" audit "+outputPath)

	return nil
}
