// Package audit inspects finished layout plans for geometric defects the
// layout stages cannot see in isolation: glyphs intruding into barlines,
// overlapping text rows, and duplicated stem decorations.
//
// The auditor is a pure reader. It never repairs a plan; findings go back
// to the caller, who decides whether to re-run layout with different
// coefficients or ship the plan as is.
package audit

import (
	"fmt"
	"sort"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave"
)

// Severity classifies a finding. Major findings are visible defects in the
// rendered output; minor findings are cosmetic.
type Severity string

const (
	SeverityMinor Severity = "minor"
	SeverityMajor Severity = "major"
)

// Finding codes.
const (
	CodeNoteheadBarline = "notehead_into_barline"
	CodeTextOverlap     = "text_row_overlap"
	CodeTextOverGlyph   = "text_over_glyph"
	CodeDuplicateFlag   = "duplicate_flag"
)

// Finding is one detected defect, located by page, system and measure.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Page     int      `json:"page"`
	System   int      `json:"system"`
	Measure  int      `json:"measure"`
}

// Options tunes inspection thresholds.
type Options struct {
	// MinBarlineOverlap is the horizontal intrusion, in layout units, below
	// which a notehead touching a barline is ignored as sub-visible.
	MinBarlineOverlap float64
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{MinBarlineOverlap: 1}
}

// Report is the full inspection result.
type Report struct {
	Findings []Finding `json:"findings,omitempty"`
}

// Counts returns the finding totals by severity.
func (r Report) Counts() (minor, major int) {
	for _, f := range r.Findings {
		if f.Severity == SeverityMajor {
			major++
		} else {
			minor++
		}
	}
	return minor, major
}

// Clean reports whether the plan passed with no findings at all.
func (r Report) Clean() bool { return len(r.Findings) == 0 }

// Inspect runs all checks over every system of the plan.
func Inspect(p *engrave.Plan, opts Options) Report {
	var rep Report
	for _, pg := range p.Pages {
		for _, sys := range pg.Systems {
			rep.auditSystem(pg.Number, sys, opts)
		}
	}
	return rep
}

func (r *Report) auditSystem(pageNum int, sys engrave.SystemPlan, opts Options) {
	var noteheads, barlines, texts []engrave.Element
	flagCount := make(map[flagKey]int)
	for _, e := range sys.Elements {
		switch e.Kind {
		case engrave.ElementNotehead:
			noteheads = append(noteheads, e)
		case engrave.ElementBarline:
			barlines = append(barlines, e)
		case engrave.ElementText:
			texts = append(texts, e)
		case engrave.ElementFlag:
			flagCount[flagKey{e.Measure, e.Staff, e.Voice, e.Tick}]++
		}
	}

	// Noteheads crossing a barline on their own staff read as spilling out
	// of the measure.
	for _, n := range noteheads {
		for _, b := range barlines {
			if n.Staff != b.Staff || !n.Box.Intersects(b.Box) {
				continue
			}
			if n.Box.OverlapX(b.Box) < opts.MinBarlineOverlap {
				continue
			}
			r.add(Finding{
				Severity: SeverityMajor,
				Code:     CodeNoteheadBarline,
				Message: fmt.Sprintf("notehead at tick %d intrudes %.1f into the barline of measure %d",
					n.Tick, n.Box.OverlapX(b.Box), b.Measure),
				Page: pageNum, System: sys.Index, Measure: n.Measure,
			})
		}
	}

	// Two texts sharing a staff, category and lane must occupy disjoint
	// horizontal spans; anything else escaped the packer's invariant.
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			a, b := texts[i], texts[j]
			if a.Staff != b.Staff || a.Category != b.Category || a.Lane != b.Lane {
				continue
			}
			if !a.Box.Intersects(b.Box) {
				continue
			}
			r.add(Finding{
				Severity: SeverityMajor,
				Code:     CodeTextOverlap,
				Message: fmt.Sprintf("%s texts %q and %q overlap in lane %d of staff %d",
					a.Category, a.Text, b.Text, a.Lane, a.Staff),
				Page: pageNum, System: sys.Index, Measure: a.Measure,
			})
		}
	}

	// Text boxes over noteheads are legible but ugly.
	for _, t := range texts {
		for _, n := range noteheads {
			if !t.Box.Intersects(n.Box) {
				continue
			}
			r.add(Finding{
				Severity: SeverityMinor,
				Code:     CodeTextOverGlyph,
				Message: fmt.Sprintf("%s text %q overlaps a notehead at tick %d",
					t.Category, t.Text, n.Tick),
				Page: pageNum, System: sys.Index, Measure: t.Measure,
			})
		}
	}

	for _, key := range flagKeysInOrder(flagCount) {
		if flagCount[key] > 1 {
			r.add(Finding{
				Severity: SeverityMinor,
				Code:     CodeDuplicateFlag,
				Message: fmt.Sprintf("voice %d carries %d flags at tick %d on staff %d",
					key.voice, flagCount[key], key.tick, key.staff),
				Page: pageNum, System: sys.Index, Measure: key.measure,
			})
		}
	}
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

type flagKey struct {
	measure int
	staff   int
	voice   int
	tick    int
}

// flagKeysInOrder sorts the flag index so findings emit deterministically.
func flagKeysInOrder(counts map[flagKey]int) []flagKey {
	keys := make([]flagKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.measure != b.measure {
			return a.measure < b.measure
		}
		if a.staff != b.staff {
			return a.staff < b.staff
		}
		if a.voice != b.voice {
			return a.voice < b.voice
		}
		return a.tick < b.tick
	})
	return keys
}
