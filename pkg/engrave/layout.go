// Package engrave turns a validated score into a deterministic page layout
// plan: measure widths, system and page breaks, glyph boxes, text lanes,
// and routed spanner paths, all in absolute page coordinates.
//
// The pipeline is staged and single-pass per stage: width planning, system
// breaking, justification, system assembly, page stacking, then spanner
// routing over the final coordinates. No stage revisits an earlier stage's
// decisions except the bounded opening-measure replan and the trailing
// system rebalance.
package engrave

import (
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/diag"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/geom"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/measure"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/page"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/spanner"
	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// Layout computes the complete plan for a score under a config. Structural
// input errors fail fast; degenerate geometry lands in the plan's
// diagnostics instead of aborting the run.
func Layout(s *score.Score, cfg Config) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	from, to, err := clampWindow(cfg, s.MeasureCount())
	if err != nil {
		return nil, err
	}

	diags := &diag.List{}
	plan := &Plan{Title: s.Title, Config: cfg}
	if from == to {
		plan.Diagnostics = diags.Items()
		return plan, nil
	}

	views := flatten(s, from, to, diags)
	weights := cfg.weights()

	widths := make([]float64, len(views))
	pressures := make([]measure.Pressure, len(views))
	cols := make([]page.Column, len(views))
	for i, v := range views {
		w, p := measure.Plan(v.merged, s.Divisions, weights)
		widths[i], pressures[i] = w, p
		cols[i] = page.Column{Index: v.index, Width: w, MinWidth: weights.Floor, Density: p.Density}
	}

	budget := cfg.ContentWidth()
	systems := page.BreakSystems(cols, budget, cfg.MinMeasures, cfg.MaxMeasures)

	built := make([]builtSystem, 0, len(systems))
	offset := 0
	for si, syscols := range systems {
		n := len(syscols)
		svs := views[offset : offset+n]
		sw := make([]float64, n)
		sp := make([]measure.Pressure, n)
		for i := range syscols {
			sw[i] = widths[offset+i]
			sp[i] = pressures[offset+i]
		}

		// A sparse opening measure is replanned with its density normalized
		// against the rest of the system so it is not over-widened.
		if n > 1 {
			if scale := measure.OpeningScale(sp[0], sp[1:]); scale < 1 {
				sw[0], sp[0] = measure.Replan(svs[0].merged, s.Divisions, weights, scale)
			}
		}

		if n == 1 && sw[0] > budget {
			diags.Errorf(diag.CodeMeasureOverflow, svs[0].index,
				"measure %d needs width %.1f but the content width is %.1f", svs[0].number, sw[0], budget)
			sw[0] = budget
		}

		jc := make([]page.Column, n)
		total := 0.0
		for i := range jc {
			jc[i] = page.Column{Index: svs[i].index, Width: sw[i], MinWidth: weights.Floor, Density: sp[i].Density}
			total += sw[i]
		}
		if total < cfg.SparseRatio*budget && si == len(systems)-1 && len(systems) > 1 {
			diags.Warnf(diag.CodeSparseSystem, svs[0].index,
				"trailing system uses %.0f%% of the content width and is kept compact", 100*total/budget)
		}
		finalW := page.Justify(jc, budget, cfg.SparseRatio)

		built = append(built, buildSystem(cfg, si, s.Divisions, svs, finalW, sp, diags))
		offset += n
	}

	heights := make([]float64, len(built))
	gaps := make([]float64, len(built))
	for i, b := range built {
		heights[i] = b.plan.Box.H
		if i > 0 {
			gaps[i] = page.SystemGap(cfg.MinSystemGap, cfg.SystemGap,
				built[i-1].extentBelow, b.extentAbove,
				built[i-1].pressureBelow+b.pressureAbove, cfg.LaneGap)
		}
	}

	vBudget := cfg.ContentHeight()
	pageGroups := page.BreakPages(heights, gaps, vBudget)

	// Shift systems to absolute page coordinates, then route spanners over
	// the final anchor positions so paths land in page space directly.
	x0 := cfg.MarginX + cfg.LabelWidth
	overflow := make([]bool, len(pageGroups))
	for pi, group := range pageGroups {
		y := cfg.MarginY
		for k, si := range group {
			if k > 0 {
				y += gaps[si]
			}
			b := &built[si]
			if b.plan.Box.H > vBudget {
				overflow[pi] = true
				diags.Warnf(diag.CodeSystemOverflow, b.plan.Columns[0].Index,
					"system %d height %.1f exceeds the page content height %.1f", si, b.plan.Box.H, vBudget)
			}
			translateSystem(b, x0, y)
			y += b.plan.Box.H
		}
	}

	router := spanner.NewRouter(cfg.spannerOptions())
	for i := range built {
		for _, m := range built[i].markers {
			router.Add(m, diags)
		}
	}
	for _, path := range router.Finish(diags) {
		sp := &built[path.System].plan
		sp.Spanners = append(sp.Spanners, path)
	}

	pageBox := geom.Box{W: cfg.PageWidth, H: cfg.PageHeight}
	for pi, group := range pageGroups {
		pp := PagePlan{
			Number:   pi + 1,
			Bounds:   pageBox,
			Overflow: overflow[pi],
		}
		for _, si := range group {
			sys := built[si].plan
			pp.Systems = append(pp.Systems, sys)
			if !pp.Overflow && systemEscapes(pageBox, sys) {
				pp.Overflow = true
				diags.Warnf(diag.CodePageOverflow, sys.Columns[0].Index,
					"page %d has elements extending past the page box", pp.Number)
			}
		}
		first := pp.Systems[0]
		last := pp.Systems[len(pp.Systems)-1]
		pp.FirstMeasure = first.Columns[0].Index
		pp.LastMeasure = last.Columns[len(last.Columns)-1].Index
		plan.Pages = append(plan.Pages, pp)
	}

	plan.Diagnostics = diags.Items()
	return plan, nil
}

// clampWindow resolves the configured measure window against the score
// length. An out-of-range window is a caller error, not a diagnostic.
func clampWindow(cfg Config, total int) (from, to int, err error) {
	from, to = cfg.WindowFrom, cfg.WindowTo
	if to == 0 || to > total {
		to = total
	}
	if total == 0 {
		return 0, 0, nil
	}
	if from >= to {
		return 0, 0, errors.New(errors.ErrCodeInvalidWindow,
			"window [%d, %d) is outside the score's %d measures", cfg.WindowFrom, cfg.WindowTo, total)
	}
	return from, to, nil
}

// systemEscapes reports whether any element box or spanner path point of the
// system lies outside the page box. Outer text bands sit outside the system
// box, so the box-height check alone cannot see them.
func systemEscapes(pageBox geom.Box, sys SystemPlan) bool {
	for _, e := range sys.Elements {
		if !pageBox.Contains(e.Box) {
			return true
		}
	}
	for _, p := range sys.Spanners {
		for _, pt := range [3]geom.Point{p.Start, p.Control, p.End} {
			if pt.X < pageBox.X || pt.X > pageBox.Right() || pt.Y < pageBox.Y || pt.Y > pageBox.Bottom() {
				return true
			}
		}
	}
	return false
}

// translateSystem shifts a built system and its markers from local to
// absolute page coordinates.
func translateSystem(b *builtSystem, dx, dy float64) {
	b.plan.Box = b.plan.Box.Translate(dx, dy)
	for i := range b.plan.Columns {
		b.plan.Columns[i].X += dx
	}
	for i := range b.plan.Elements {
		b.plan.Elements[i].Box = b.plan.Elements[i].Box.Translate(dx, dy)
	}
	for i := range b.markers {
		b.markers[i].Anchor.Point.X += dx
		b.markers[i].Anchor.Point.Y += dy
	}
}

func (c Config) weights() measure.Weights {
	return measure.Weights{
		Floor:         c.WidthFloor,
		Density:       c.DensityWeight,
		Rhythm:        c.RhythmWeight,
		Peak:          c.PeakWeight,
		StaffCount:    c.StaffCountWeight,
		Accidental:    c.AccidentalWeight,
		Hint:          c.HintWeight,
		NoteheadWidth: c.NoteheadWidth,
	}
}

func (c Config) spannerOptions() spanner.Options {
	return spanner.Options{
		SpreadCap:     c.SpreadCap(),
		CrossStaffGap: c.CrossStaffGap(),
		CurveHeight:   c.CurveHeight,
		Strict:        c.StrictSpanners,
	}
}
