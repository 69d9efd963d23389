// Package spanner resolves paired start/stop markers (ties, slurs, wedges,
// tuplet and arpeggio brackets) into concrete curve and line paths between
// glyph anchor coordinates.
//
// Pairing uses an index built once per pairing scope (the part) mapping
// (type, number) to the pending start anchor, consumed on stop. The scope is
// the part rather than the staff so cross-staff spanners still pair. Markers
// never hold direct back-references to each other.
package spanner

import (
	"math"
	"sort"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/diag"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/geom"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// Side is the placement of a path relative to its anchors.
type Side string

const (
	SideAbove Side = "above"
	SideBelow Side = "below"
)

// Anchor is a resolved glyph anchor for one end of a spanner.
type Anchor struct {
	Point   geom.Point
	Staff   int // global staff index
	System  int // system index the anchor landed in
	Measure int // global measure index
	StemUp  bool
}

// Marker is one spanner end with its resolved anchor. Scope is the pairing
// scope (the part index); starts and stops pair only within one scope.
type Marker struct {
	Type      score.SpannerType
	Number    int
	Op        score.SpannerOp
	Scope     int
	Placement string // explicit side override from the source model
	Anchor    Anchor
}

// Path is one resolved spanner: two anchors, a side, and the control point
// of a quadratic curve. Flattened marks paths whose vertical spread
// exceeded the cap and was clamped; CrossSystem paths span a system break
// and are trimmed by the drawing collaborator.
type Path struct {
	Type        score.SpannerType `json:"type"`
	Number      int               `json:"number"`
	Start       geom.Point        `json:"start"`
	End         geom.Point        `json:"end"`
	Control     geom.Point        `json:"control"`
	Side        Side              `json:"side"`
	Staff       int               `json:"staff"`
	System      int               `json:"system"`
	Flattened   bool              `json:"flattened,omitempty"`
	CrossStaff  bool              `json:"cross_staff,omitempty"`
	CrossSystem bool              `json:"cross_system,omitempty"`
}

// Options configures routing geometry. SpreadCap and CrossStaffGap are
// pre-scaled from the staff distance by the caller; they are not fixed
// pixel constants.
type Options struct {
	SpreadCap     float64 // max vertical anchor spread before flattening
	CrossStaffGap float64 // staff separation beyond which paths route as direct connectors
	CurveHeight   float64 // apex height of an unflattened curve
	Strict        bool    // escalate unmatched markers to error severity
}

type pairKey struct {
	scope  int
	typ    score.SpannerType
	number int
}

// Router resolves markers into paths. It is used for one layout run and
// discarded; pending starts survive system boundaries so cross-system
// spanners resolve when their stop arrives.
type Router struct {
	opts    Options
	pending map[pairKey]Marker
	paths   []Path
}

// NewRouter creates a router for one layout run.
func NewRouter(opts Options) *Router {
	return &Router{opts: opts, pending: make(map[pairKey]Marker)}
}

// Add feeds one marker. Starts are indexed; stops consume their pending
// start and produce a path. A stop with no pending start is recorded as a
// diagnostic and produces nothing; a wide spread never drops a path.
func (r *Router) Add(m Marker, diags *diag.List) {
	key := pairKey{scope: m.Scope, typ: m.Type, number: m.Number}
	switch m.Op {
	case score.SpannerStart:
		if prev, ok := r.pending[key]; ok {
			r.warn(diags, prev.Anchor.Measure, "spanner %s/%d restarted before stop", m.Type, m.Number)
		}
		r.pending[key] = m
	case score.SpannerStop:
		start, ok := r.pending[key]
		if !ok {
			r.warn(diags, m.Anchor.Measure, "spanner %s/%d stop without start", m.Type, m.Number)
			return
		}
		delete(r.pending, key)
		r.paths = append(r.paths, r.route(start, m, diags))
	}
}

// Finish reports any starts that never saw a stop and returns the resolved
// paths in emission order.
func (r *Router) Finish(diags *diag.List) []Path {
	for _, m := range sortedPending(r.pending) {
		r.warn(diags, m.Anchor.Measure, "spanner %s/%d start without stop", m.Type, m.Number)
	}
	return r.paths
}

// route builds the path between a matched start/stop pair.
func (r *Router) route(start, stop Marker, diags *diag.List) Path {
	p := Path{
		Type:   start.Type,
		Number: start.Number,
		Start:  start.Anchor.Point,
		End:    stop.Anchor.Point,
		Staff:  start.Anchor.Staff,
		System: start.Anchor.System,
	}
	p.CrossSystem = start.Anchor.System != stop.Anchor.System

	staffSep := math.Abs(stop.Anchor.Point.Y - start.Anchor.Point.Y)
	if stop.Anchor.Staff != start.Anchor.Staff && staffSep > r.opts.CrossStaffGap {
		// Distant staves connect directly: control point on the chord line.
		p.CrossStaff = true
		p.Side = SideAbove
		p.Control = geom.Point{X: (p.Start.X + p.End.X) / 2, Y: (p.Start.Y + p.End.Y) / 2}
		return p
	}

	p.Side = chooseSide(start, stop)

	spread := math.Abs(p.End.Y - p.Start.Y)
	curve := r.opts.CurveHeight
	if r.opts.SpreadCap > 0 && spread > r.opts.SpreadCap {
		// Clamp the far endpoint's vertical travel to the cap and flatten
		// the curvature proportionally. Dropping the spanner is an
		// anti-goal: a distorted curve still reads, a missing tie lies.
		p.Flattened = true
		curve *= r.opts.SpreadCap / spread
		if p.End.Y > p.Start.Y {
			p.End.Y = p.Start.Y + r.opts.SpreadCap
		} else {
			p.End.Y = p.Start.Y - r.opts.SpreadCap
		}
		diags.Warnf(diag.CodeSpreadClamped, start.Anchor.Measure,
			"spanner %s/%d spread %.1f clamped to %.1f", p.Type, p.Number, spread, r.opts.SpreadCap)
	}

	apexY := (p.Start.Y+p.End.Y)/2 - curve
	if p.Side == SideBelow {
		apexY = (p.Start.Y+p.End.Y)/2 + curve
	}
	p.Control = geom.Point{X: (p.Start.X + p.End.X) / 2, Y: apexY}
	return p
}

// chooseSide picks the side minimizing total vertical skew between the
// curve and its two endpoints, unless the source model carries an explicit
// placement override. Anchors sit on the notehead side of their events, so
// the skew-minimizing side is the notehead side: below when both stems
// point up, above when both point down. Mixed stems resolve above.
func chooseSide(start, stop Marker) Side {
	if override := overrideSide(start, stop); override != "" {
		return override
	}
	if start.Anchor.StemUp && stop.Anchor.StemUp {
		return SideBelow
	}
	return SideAbove
}

func overrideSide(start, stop Marker) Side {
	for _, m := range []Marker{start, stop} {
		switch m.Placement {
		case string(SideAbove):
			return SideAbove
		case string(SideBelow):
			return SideBelow
		}
	}
	return ""
}

// AnchorLine returns the pitch line a spanner attaches to on a chord: the
// topmost note for stem-up, the bottommost for stem-down, never simply the
// first note in source order.
func AnchorLine(e score.Event, stemUp bool) float64 {
	if stemUp {
		return e.TopLine()
	}
	return e.BottomLine()
}

func (r *Router) warn(diags *diag.List, measure int, format string, args ...any) {
	if r.opts.Strict {
		diags.Errorf(diag.CodeUnmatchedSpanner, measure, format, args...)
		return
	}
	diags.Warnf(diag.CodeUnmatchedSpanner, measure, format, args...)
}

// sortedPending orders leftover starts deterministically by scope, type,
// then number, so diagnostic output is stable across runs.
func sortedPending(pending map[pairKey]Marker) []Marker {
	keys := make([]pairKey, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
	out := make([]Marker, len(keys))
	for i, k := range keys {
		out[i] = pending[k]
	}
	return out
}

func lessKey(a, b pairKey) bool {
	if a.scope != b.scope {
		return a.scope < b.scope
	}
	if a.typ != b.typ {
		return a.typ < b.typ
	}
	return a.number < b.number
}
