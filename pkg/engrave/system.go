package engrave

import (
	"sort"
	"strconv"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/diag"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/geom"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/measure"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/spanner"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/textlane"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/voice"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// staffSlot is one part's staff within a measure view, tagged with the
// global staff row it occupies and the part it pairs spanners in.
type staffSlot struct {
	global int
	part   int
	st     score.Staff
}

// measureView is one global measure with all parts' staves side by side.
// merged exists so the width planner sees the full vertical content.
type measureView struct {
	index  int // global measure index
	number int // printed measure number
	ticks  int
	merged score.Measure
	slots  []staffSlot
}

// flatten builds the per-measure views for the layout window, assigning
// global staff rows top-down in part order. It also raises the data-shape
// diagnostics that are legal input but worth surfacing.
func flatten(s *score.Score, from, to int, diags *diag.List) []measureView {
	views := make([]measureView, 0, to-from)
	for mi := from; mi < to; mi++ {
		v := measureView{index: mi, number: mi + 1}
		global := 0
		for pi, part := range s.Parts {
			m := part.Measures[mi]
			if m.Number > 0 && pi == 0 {
				v.number = m.Number
			}
			if m.WidthHint > 0 && v.merged.WidthHint == 0 {
				v.merged.WidthHint = m.WidthHint
			}
			for _, st := range m.Staves {
				v.slots = append(v.slots, staffSlot{global: global, part: pi, st: st})
				v.merged.Staves = append(v.merged.Staves, st)
				global++
			}
		}
		v.merged.Number = v.number
		v.ticks = v.merged.MaxTick()
		if v.merged.EventCount() == 0 {
			diags.Warnf(diag.CodeEmptyMeasure, mi, "measure %d has no events", v.number)
		}
		for _, slot := range v.slots {
			for _, vc := range slot.st.Voices {
				for _, e := range vc.Events {
					if e.Duration == 0 {
						diags.Warnf(diag.CodeZeroDuration, mi,
							"measure %d voice %d has a zero-duration event at tick %d", v.number, vc.ID, e.Tick)
					}
				}
			}
		}
		views = append(views, v)
	}
	return views
}

// laneSide is the vertical side of the staff a text band occupies.
type laneSide int

const (
	sideAbove laneSide = iota
	sideBelow
)

// Band stacking order per side, closest to the staff first. Dynamics sit
// nearest the staff below; directions nearest above.
var aboveOrder = []score.TextCategory{score.CategoryDirection, score.CategoryHarmony, score.CategoryDynamics, score.CategoryLyric}
var belowOrder = []score.TextCategory{score.CategoryDynamics, score.CategoryLyric, score.CategoryDirection, score.CategoryHarmony}

func resolveSide(d score.Direction) laneSide {
	switch d.Placement {
	case "above":
		return sideAbove
	case "below":
		return sideBelow
	}
	if d.Category == score.CategoryHarmony || d.Category == score.CategoryDirection {
		return sideAbove
	}
	return sideBelow
}

type bandKey struct {
	staff int
	side  laneSide
}

// builtSystem is one system in local coordinates, origin at the content
// top-left of the system's staves. Outer text bands extend past the box and
// are paid for by the inter-system gap, not the box height.
type builtSystem struct {
	plan          SystemPlan
	markers       []spanner.Marker
	extentAbove   float64 // physical height of the top outer band
	extentBelow   float64 // physical height of the bottom outer band
	pressureAbove float64 // weighted lane pressure escaping above the box
	pressureBelow float64 // weighted lane pressure escaping below the box
}

// buildSystem places one system. Column widths are final (already
// justified); everything else is derived here: voice formatting, glyph
// boxes, text lanes, staff row offsets, and spanner anchor collection.
func buildSystem(cfg Config, sysIndex, divisions int, views []measureView, widths []float64, pressures []measure.Pressure, diags *diag.List) builtSystem {
	cols := make([]MeasureColumn, len(views))
	tms := make([]voice.TickMap, len(views))
	x := 0.0
	for i, v := range views {
		cols[i] = MeasureColumn{Index: v.index, X: x, Width: widths[i], Pressure: pressures[i]}
		tms[i] = voice.NewTickMap(x, widths[i], cfg.ColumnPadding, v.ticks)
		x += widths[i]
	}
	systemWidth := x

	rows := staffRows(views)

	// Pack text first: lane counts shape the vertical frame, and packing
	// needs only x-coordinates.
	bands := make(map[bandKey][]textlane.Annotation)
	for i, v := range views {
		for _, slot := range v.slots {
			for _, d := range slot.st.Directions {
				size := d.FontSize
				if size == 0 {
					size = cfg.FontSize
				}
				key := bandKey{staff: slot.global, side: resolveSide(d)}
				bands[key] = append(bands[key], textlane.Annotation{
					Category: d.Category,
					Text:     d.Text,
					X:        tms[i].X(d.Tick),
					FontSize: size,
					Bold:     d.Bold,
					Italic:   d.Italic,
					Measure:  v.index,
					Staff:    slot.global,
					Tick:     d.Tick,
				})
			}
		}
	}
	packers := make(map[bandKey]*textlane.Packer, len(bands))
	placedByBand := make(map[bandKey][]textlane.Placed, len(bands))
	for _, key := range sortedBandKeys(bands) {
		p := textlane.NewPacker(textlane.Options{Padding: cfg.LanePadding, MergeWindow: cfg.MergeWindow})
		placedByBand[key] = p.Pack(bands[key])
		packers[key] = p
	}

	// Vertical frame. The top strip holds the measure number overlay; staff
	// separation expands past the configured distance when interior bands
	// need the room. Outer bands stay outside the box.
	topStrip := 0.0
	if cfg.MeasureNumbers {
		topStrip = cfg.LaneHeight
	}
	staffTop := make(map[int]float64, len(rows))
	for ri, g := range rows {
		if ri == 0 {
			staffTop[g] = topStrip
			continue
		}
		prev := rows[ri-1]
		sep := cfg.StaffDistance
		need := cfg.StaffHeight() + bandHeight(cfg, packers[bandKey{prev, sideBelow}]) +
			bandHeight(cfg, packers[bandKey{g, sideAbove}]) + cfg.LaneGap
		if need > sep {
			sep = need
		}
		staffTop[g] = staffTop[prev] + sep
	}
	height := topStrip
	if len(rows) > 0 {
		height = staffTop[rows[len(rows)-1]] + cfg.StaffHeight()
	}

	out := builtSystem{plan: SystemPlan{
		Index:      sysIndex,
		Box:        geom.Box{X: 0, Y: 0, W: systemWidth, H: height},
		Columns:    cols,
		LaneCounts: mergedLaneCounts(packers),
	}}
	if len(rows) > 0 {
		topBand := packers[bandKey{rows[0], sideAbove}]
		bottomBand := packers[bandKey{rows[len(rows)-1], sideBelow}]
		out.extentAbove = bandHeight(cfg, topBand)
		out.extentBelow = bandHeight(cfg, bottomBand)
		out.pressureAbove = textlane.WeightedLanes(laneCounts(topBand))
		out.pressureBelow = textlane.WeightedLanes(laneCounts(bottomBand))
	}

	if cfg.MeasureNumbers && len(views) > 0 {
		text := strconv.Itoa(views[0].number)
		out.plan.Elements = append(out.plan.Elements, Element{
			Kind:    ElementMeasureNumber,
			Measure: views[0].index,
			Staff:   firstRow(rows),
			Box:     geom.Box{X: 0, Y: 0, W: textlane.EstimateWidth(text, cfg.FontSize, false, false), H: cfg.LaneHeight},
			Text:    text,
		})
	}

	// Leading barline, one per staff row.
	for _, g := range rows {
		out.plan.Elements = append(out.plan.Elements, barline(cfg, views[0].index, g, 0, staffTop[g]))
	}

	for i, v := range views {
		for _, slot := range v.slots {
			out.buildStaff(cfg, sysIndex, divisions, v, slot, tms[i], staffTop[slot.global], diags)
		}
		for _, g := range rows {
			out.plan.Elements = append(out.plan.Elements, barline(cfg, v.index, g, cols[i].X+cols[i].Width, staffTop[g]))
		}
	}

	// Materialize text lanes now that staff rows are fixed.
	for _, key := range sortedBandKeys(bands) {
		offsets := laneOffsets(packers[key], key.side)
		for _, pl := range placedByBand[key] {
			if pl.Merged {
				continue
			}
			row := offsets[pl.Category] + pl.Lane
			var y float64
			if key.side == sideAbove {
				y = staffTop[key.staff] - cfg.LaneGap - float64(row+1)*cfg.LaneHeight
			} else {
				y = staffTop[key.staff] + cfg.StaffHeight() + cfg.LaneGap + float64(row)*cfg.LaneHeight
			}
			out.plan.Elements = append(out.plan.Elements, Element{
				Kind:     ElementText,
				Measure:  pl.Measure,
				Staff:    pl.Staff,
				Tick:     pl.Tick,
				Box:      geom.Box{X: pl.X, Y: y, W: pl.Width, H: cfg.LaneHeight},
				Lane:     pl.Lane,
				Category: pl.Category,
				Text:     pl.Text,
			})
		}
	}

	return out
}

// buildStaff places one staff's voices within one measure column.
func (b *builtSystem) buildStaff(cfg Config, sysIndex, divisions int, v measureView, slot staffSlot, tm voice.TickMap, top float64, diags *diag.List) {
	res := voice.Format(slot.st, voice.Options{MaxVoices: cfg.MaxVoices, RestShift: cfg.RestShift})
	for _, id := range res.Dropped {
		diags.Warnf(diag.CodeVoiceOverflow, v.index,
			"measure %d staff %d voice %d exceeds the %d-voice ceiling and was not laid out",
			v.number, slot.global, id, cfg.MaxVoices)
	}

	byID := make(map[int]score.Voice, len(slot.st.Voices))
	for _, vc := range slot.st.Voices {
		byID[vc.ID] = vc
	}

	ss := cfg.StaffSpace
	lineY := func(line float64) float64 { return top + 2*ss - line*ss/2 }
	stemW := 0.12 * ss
	stemLen := 3.5 * ss

	for _, a := range res.Assignments {
		vc := byID[a.Voice]
		for _, e := range vc.Events {
			ex := tm.X(e.Tick)

			if !e.Sounding() {
				cy := top + 2*ss + a.RestOffset
				b.plan.Elements = append(b.plan.Elements, Element{
					Kind: ElementRest, Measure: v.index, Staff: slot.global, Voice: a.Voice, Tick: e.Tick,
					Box: geom.Box{X: ex, Y: cy - ss/2, W: cfg.NoteheadWidth, H: ss},
				})
				continue
			}

			stem := a.StemFor(e)
			stemUp := stem != score.StemDown
			cyTop := lineY(e.TopLine())
			cyBot := lineY(e.BottomLine())

			for _, p := range e.Pitches {
				cy := lineY(p.Line)
				b.plan.Elements = append(b.plan.Elements, Element{
					Kind: ElementNotehead, Measure: v.index, Staff: slot.global, Voice: a.Voice, Tick: e.Tick,
					Box:  geom.Box{X: ex, Y: cy - ss/2, W: cfg.NoteheadWidth, H: ss},
					Stem: stem,
				})
			}

			// Whole notes carry no stem; anything shorter than a quarter
			// carries a flag as well.
			if e.Duration > 0 && e.Duration < 4*divisions {
				var box geom.Box
				if stemUp {
					box = geom.Box{X: ex + cfg.NoteheadWidth - stemW, Y: cyTop - stemLen, W: stemW, H: stemLen + (cyBot - cyTop)}
				} else {
					box = geom.Box{X: ex, Y: cyTop, W: stemW, H: (cyBot - cyTop) + stemLen}
				}
				b.plan.Elements = append(b.plan.Elements, Element{
					Kind: ElementStem, Measure: v.index, Staff: slot.global, Voice: a.Voice, Tick: e.Tick,
					Box: box, Stem: stem,
				})
				if e.Duration < divisions {
					flagH := 2 * ss
					var fbox geom.Box
					if stemUp {
						fbox = geom.Box{X: ex + cfg.NoteheadWidth, Y: cyTop - stemLen, W: 0.8 * cfg.NoteheadWidth, H: flagH}
					} else {
						fbox = geom.Box{X: ex, Y: cyBot + stemLen - flagH, W: 0.8 * cfg.NoteheadWidth, H: flagH}
					}
					b.plan.Elements = append(b.plan.Elements, Element{
						Kind: ElementFlag, Measure: v.index, Staff: slot.global, Voice: a.Voice, Tick: e.Tick,
						Box: fbox, Stem: stem,
					})
				}
			}

			for _, mk := range e.Spanners {
				line := spanner.AnchorLine(e, stemUp)
				b.markers = append(b.markers, spanner.Marker{
					Type:      mk.Type,
					Number:    mk.Number,
					Op:        mk.Op,
					Scope:     slot.part,
					Placement: mk.Placement,
					Anchor: spanner.Anchor{
						Point:   geom.Point{X: ex + cfg.NoteheadWidth/2, Y: lineY(line)},
						Staff:   slot.global,
						System:  sysIndex,
						Measure: v.index,
						StemUp:  stemUp,
					},
				})
			}
		}
	}
}

func barline(cfg Config, measureIdx, staff int, rightEdge, top float64) Element {
	w := 0.12 * cfg.StaffSpace
	return Element{
		Kind:    ElementBarline,
		Measure: measureIdx,
		Staff:   staff,
		Box:     geom.Box{X: rightEdge - w/2, Y: top, W: w, H: cfg.StaffHeight()},
	}
}

// staffRows returns the sorted union of global staff indices across the
// system's measures.
func staffRows(views []measureView) []int {
	seen := make(map[int]bool)
	var rows []int
	for _, v := range views {
		for _, slot := range v.slots {
			if !seen[slot.global] {
				seen[slot.global] = true
				rows = append(rows, slot.global)
			}
		}
	}
	sort.Ints(rows)
	return rows
}

func firstRow(rows []int) int {
	if len(rows) == 0 {
		return 0
	}
	return rows[0]
}

func bandHeight(cfg Config, p *textlane.Packer) float64 {
	n := totalLanes(p)
	if n == 0 {
		return 0
	}
	return float64(n)*cfg.LaneHeight + cfg.LaneGap
}

func totalLanes(p *textlane.Packer) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, c := range p.LaneCounts() {
		n += c
	}
	return n
}

func laneCounts(p *textlane.Packer) map[score.TextCategory]int {
	if p == nil {
		return nil
	}
	return p.LaneCounts()
}

// laneOffsets returns each category's first row index within a band, per
// the side's fixed stacking order.
func laneOffsets(p *textlane.Packer, side laneSide) map[score.TextCategory]int {
	order := belowOrder
	if side == sideAbove {
		order = aboveOrder
	}
	offsets := make(map[score.TextCategory]int, len(order))
	off := 0
	for _, cat := range order {
		offsets[cat] = off
		if p != nil {
			off += p.LaneCount(cat)
		}
	}
	return offsets
}

func mergedLaneCounts(packers map[bandKey]*textlane.Packer) map[score.TextCategory]int {
	counts := make(map[score.TextCategory]int)
	for _, p := range packers {
		for cat, n := range p.LaneCounts() {
			counts[cat] += n
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}

func sortedBandKeys(bands map[bandKey][]textlane.Annotation) []bandKey {
	keys := make([]bandKey, 0, len(bands))
	for k := range bands {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].staff != keys[j].staff {
			return keys[i].staff < keys[j].staff
		}
		return keys[i].side < keys[j].side
	})
	return keys
}
