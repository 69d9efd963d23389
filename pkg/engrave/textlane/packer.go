// Package textlane assigns non-overlapping horizontal rows to lyric,
// harmony, direction, and dynamics annotations within one system.
//
// Lanes persist for the lifetime of the system, not per measure, so a
// category's vertical position does not jump between adjacent measures.
// Each category packs into its own lane stack; categories never share rows.
package textlane

import (
	"sort"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/geom"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// Annotation is one text item to place, with its anchor x already resolved
// from the tick position.
type Annotation struct {
	Category score.TextCategory
	Text     string
	X        float64 // anchor (left edge) in system coordinates
	FontSize float64
	Bold     bool
	Italic   bool
	Measure  int // global measure index
	Staff    int // global staff index
	Tick     int
}

// Placed is an annotation with its resolved lane and occupied interval.
// Lane 0 is closest to the staff; higher lanes stack outward.
type Placed struct {
	Annotation
	Lane     int
	Width    float64
	Interval geom.Interval
	Merged   bool // true when a redundant dynamics mark was folded into this one
}

// Options configures packing.
type Options struct {
	Padding     float64 // minimum horizontal clearance between neighbors in a lane
	MergeWindow float64 // max anchor distance for merging redundant dynamics
}

// Packer owns the lane state for one system.
type Packer struct {
	opts  Options
	lanes map[score.TextCategory][][]geom.Interval
}

// NewPacker creates a packer for one system.
func NewPacker(opts Options) *Packer {
	return &Packer{opts: opts, lanes: make(map[score.TextCategory][][]geom.Interval)}
}

// Pack places the annotations. Processing is left to right by anchor x;
// each annotation lands in the first lane of its category whose occupied
// intervals, padded, do not overlap the candidate, opening a new lane only
// when none admits it. Adjacent dynamics with identical text inside the
// merge window collapse into the earlier mark.
func (p *Packer) Pack(anns []Annotation) []Placed {
	ordered := make([]Annotation, len(anns))
	copy(ordered, anns)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X < ordered[j].X
		}
		return ordered[i].Category < ordered[j].Category
	})

	placed := make([]Placed, 0, len(ordered))
	var lastDynamics *Placed

	for _, a := range ordered {
		w := EstimateWidth(a.Text, a.FontSize, a.Bold, a.Italic)
		iv := geom.Interval{Start: a.X, End: a.X + w}

		if a.Category == score.CategoryDynamics && lastDynamics != nil &&
			lastDynamics.Text == a.Text && a.X-lastDynamics.X <= p.opts.MergeWindow {
			// Redundant repeat of the same mark: fold it away. The merge
			// never crosses categories.
			placed = append(placed, Placed{Annotation: a, Lane: lastDynamics.Lane, Width: 0, Merged: true})
			continue
		}

		lane := p.place(a.Category, iv)
		pl := Placed{Annotation: a, Lane: lane, Width: w, Interval: iv}
		placed = append(placed, pl)
		if a.Category == score.CategoryDynamics {
			last := pl
			lastDynamics = &last
		}
	}
	return placed
}

// place scans the category's lanes from closest-to-staff outward and
// returns the first admitting lane, opening a new one if needed.
func (p *Packer) place(cat score.TextCategory, iv geom.Interval) int {
	lanes := p.lanes[cat]
	for li, occupied := range lanes {
		if fits(occupied, iv, p.opts.Padding) {
			p.lanes[cat][li] = append(occupied, iv)
			return li
		}
	}
	p.lanes[cat] = append(lanes, []geom.Interval{iv})
	return len(p.lanes[cat]) - 1
}

func fits(occupied []geom.Interval, iv geom.Interval, pad float64) bool {
	for _, o := range occupied {
		if o.Overlaps(iv, pad) {
			return false
		}
	}
	return true
}

// LaneCount returns how many lanes a category opened.
func (p *Packer) LaneCount(cat score.TextCategory) int {
	return len(p.lanes[cat])
}

// LaneCounts returns the per-category lane counts for gap sizing.
func (p *Packer) LaneCounts() map[score.TextCategory]int {
	counts := make(map[score.TextCategory]int, len(p.lanes))
	for cat, lanes := range p.lanes {
		counts[cat] = len(lanes)
	}
	return counts
}

// WeightedLanes converts lane counts into gap pressure. Lyric, harmony and
// direction rows carry full weight; dynamics are visually compact and
// contribute half the required clearance.
func WeightedLanes(counts map[score.TextCategory]int) float64 {
	total := 0.0
	for cat, n := range counts {
		w := 1.0
		if cat == score.CategoryDynamics {
			w = 0.5
		}
		total += w * float64(n)
	}
	return total
}
