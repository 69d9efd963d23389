package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/audit"
)

// auditCommand creates the audit command for inspecting finished plans.
func (c *CLI) auditCommand() *cobra.Command {
	var minOverlap float64

	cmd := &cobra.Command{
		Use:   "audit [plan.json]",
		Short: "Inspect a layout plan for collisions and defects",
		Long: `Inspect a layout plan for geometric defects.

The audit command reads a plan.json (produced by 'layout') and checks for
noteheads intruding into barlines, overlapping text rows, text covering
glyphs, and duplicated flags. The audit never modifies the plan; findings
are printed with their page, system, and measure locations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAudit(args[0], audit.Options{MinBarlineOverlap: minOverlap})
		},
	}

	cmd.Flags().Float64Var(&minOverlap, "min-barline-overlap", audit.DefaultOptions().MinBarlineOverlap,
		"ignore barline intrusions below this many layout units")

	return cmd
}

func (c *CLI) runAudit(input string, opts audit.Options) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read plan %s: %w", input, err)
	}
	plan, err := engrave.UnmarshalPlan(data)
	if err != nil {
		return fmt.Errorf("decode plan %s: %w", input, err)
	}

	report := audit.Inspect(plan, opts)
	minor, major := report.Counts()

	if report.Clean() {
		printSuccess("Plan is clean")
		printDetail("%d pages, %d systems inspected", len(plan.Pages), len(plan.Systems()))
		return nil
	}

	for _, f := range report.Findings {
		line := fmt.Sprintf("[%s] page %d system %d measure %d: %s",
			f.Code, f.Page, f.System, f.Measure, f.Message)
		if f.Severity == audit.SeverityMajor {
			printError("%s", line)
		} else {
			printWarning("%s", line)
		}
	}

	printNewline()
	printInfo("%d major, %d minor findings", major, minor)
	if major > 0 {
		return fmt.Errorf("audit found %d major findings", major)
	}
	return nil
}
