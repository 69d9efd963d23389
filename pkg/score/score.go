// Package score defines the canonical timed score model consumed by the
// layout engine.
//
// The model is backend-independent: a parsing collaborator resolves raw score
// markup (pitch, key, clef semantics) into parts, measures, staves, voices and
// tick-timed events before this package ever sees it. Vertical positions are
// carried as resolved staff lines, so no clef logic lives here.
//
// # Timebase
//
// All events share a single integer timebase: the tick. Divisions is the
// number of ticks per quarter note; a quarter note in a score with
// Divisions=4 has Duration=4.
//
// # Invariants
//
// Within one voice, events are tick-ordered and non-overlapping. Spanner
// start/stop markers pair by (type, number) within their part; unmatched
// markers are legal input and resolved by the layout engine's diagnostic
// policy.
package score

// StemDirection is a per-event stem hint. The empty value defers to the
// layout engine's voice-ordinal convention.
type StemDirection string

const (
	StemAuto StemDirection = ""
	StemUp   StemDirection = "up"
	StemDown StemDirection = "down"
)

// EventKind identifies the timed event variants.
type EventKind string

const (
	KindNote  EventKind = "note"
	KindRest  EventKind = "rest"
	KindChord EventKind = "chord"
)

// TextCategory is the closed set of text annotation categories. Packing and
// weighting rules are dispatched per category; there is no open-ended kind.
type TextCategory string

const (
	CategoryLyric     TextCategory = "lyric"
	CategoryHarmony   TextCategory = "harmony"
	CategoryDirection TextCategory = "direction"
	CategoryDynamics  TextCategory = "dynamics"
)

// Categories lists all text categories in a fixed order.
var Categories = []TextCategory{CategoryLyric, CategoryHarmony, CategoryDirection, CategoryDynamics}

// SpannerType identifies paired start/stop notation elements.
type SpannerType string

const (
	SpannerTie      SpannerType = "tie"
	SpannerSlur     SpannerType = "slur"
	SpannerWedge    SpannerType = "wedge"
	SpannerTuplet   SpannerType = "tuplet"
	SpannerArpeggio SpannerType = "arpeggio"
)

// SpannerOp marks an event as the start or stop of a spanner pair.
type SpannerOp string

const (
	SpannerStart SpannerOp = "start"
	SpannerStop  SpannerOp = "stop"
)

// Score is the root of the canonical model.
type Score struct {
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Divisions int    `json:"divisions" yaml:"divisions"` // ticks per quarter note
	Parts     []Part `json:"parts" yaml:"parts"`
}

// Part is one instrument's measure sequence. All parts of a score carry the
// same number of measures; measure index i across parts sounds simultaneously.
type Part struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Measures []Measure `json:"measures" yaml:"measures"`
}

// Measure holds the staves of one part for one measure.
type Measure struct {
	Number    int     `json:"number" yaml:"number"`
	WidthHint float64 `json:"width_hint,omitempty" yaml:"width_hint,omitempty"` // author-supplied, 0 = none
	Staves    []Staff `json:"staves" yaml:"staves"`
}

// Staff is one five-line staff within a measure, holding its voices and
// anchored text directions.
type Staff struct {
	Number     int         `json:"number" yaml:"number"`
	Voices     []Voice     `json:"voices,omitempty" yaml:"voices,omitempty"`
	Directions []Direction `json:"directions,omitempty" yaml:"directions,omitempty"`
}

// Voice is a tick-ordered, non-overlapping event stream.
type Voice struct {
	ID     int     `json:"id" yaml:"id"`
	Events []Event `json:"events" yaml:"events"`
}

// Event is a note, rest, or chord with a start tick and duration, plus any
// spanner markers anchored to it.
type Event struct {
	Kind     EventKind     `json:"kind" yaml:"kind"`
	Tick     int           `json:"tick" yaml:"tick"`
	Duration int           `json:"duration" yaml:"duration"`
	Pitches  []Pitch       `json:"pitches,omitempty" yaml:"pitches,omitempty"`
	Stem     StemDirection `json:"stem,omitempty" yaml:"stem,omitempty"`
	Spanners []Marker      `json:"spanners,omitempty" yaml:"spanners,omitempty"`
}

// Pitch is a resolved vertical position. Line is the staff position in
// half-space steps relative to the middle line (positive up); Alter counts
// the pitch alteration (sharp/flat) needing lateral accidental clearance.
type Pitch struct {
	Line  float64 `json:"line" yaml:"line"`
	Alter int     `json:"alter,omitempty" yaml:"alter,omitempty"`
}

// Direction is a text annotation anchored at a tick.
type Direction struct {
	Category  TextCategory `json:"category" yaml:"category"`
	Text      string       `json:"text" yaml:"text"`
	Tick      int          `json:"tick" yaml:"tick"`
	Voice     int          `json:"voice,omitempty" yaml:"voice,omitempty"`
	Placement string       `json:"placement,omitempty" yaml:"placement,omitempty"` // "above"/"below", "" = category default
	FontSize  float64      `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	Bold      bool         `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic    bool         `json:"italic,omitempty" yaml:"italic,omitempty"`
}

// Marker is one end of a spanner, identified by type and number within its
// part.
type Marker struct {
	Type      SpannerType `json:"type" yaml:"type"`
	Number    int         `json:"number" yaml:"number"`
	Op        SpannerOp   `json:"op" yaml:"op"`
	Placement string      `json:"placement,omitempty" yaml:"placement,omitempty"` // explicit side override
}

// End returns the tick at which the event stops sounding.
func (e Event) End() int { return e.Tick + e.Duration }

// Sounding reports whether the event produces noteheads.
func (e Event) Sounding() bool { return e.Kind == KindNote || e.Kind == KindChord }

// TopLine returns the highest pitch line of the event, or 0 for rests.
func (e Event) TopLine() float64 {
	top := 0.0
	for i, p := range e.Pitches {
		if i == 0 || p.Line > top {
			top = p.Line
		}
	}
	return top
}

// BottomLine returns the lowest pitch line of the event, or 0 for rests.
func (e Event) BottomLine() float64 {
	bottom := 0.0
	for i, p := range e.Pitches {
		if i == 0 || p.Line < bottom {
			bottom = p.Line
		}
	}
	return bottom
}

// Accidentals counts the altered pitches on the event.
func (e Event) Accidentals() int {
	n := 0
	for _, p := range e.Pitches {
		if p.Alter != 0 {
			n++
		}
	}
	return n
}

// MaxTick returns the largest event end tick in the measure across all
// staves and voices. Empty measures report 0.
func (m Measure) MaxTick() int {
	maxTick := 0
	for _, s := range m.Staves {
		for _, v := range s.Voices {
			for _, e := range v.Events {
				if end := e.End(); end > maxTick {
					maxTick = end
				}
			}
		}
	}
	return maxTick
}

// EventCount returns the number of timed events in the measure.
func (m Measure) EventCount() int {
	n := 0
	for _, s := range m.Staves {
		for _, v := range s.Voices {
			n += len(v.Events)
		}
	}
	return n
}

// MeasureCount returns the measure count shared by all parts.
func (s *Score) MeasureCount() int {
	if len(s.Parts) == 0 {
		return 0
	}
	return len(s.Parts[0].Measures)
}

// StaffCount returns the total staff count across all parts, taken from the
// first measure.
func (s *Score) StaffCount() int {
	n := 0
	for _, p := range s.Parts {
		if len(p.Measures) > 0 {
			n += len(p.Measures[0].Staves)
		}
	}
	return n
}
