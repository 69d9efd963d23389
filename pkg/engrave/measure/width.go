// Package measure computes target horizontal widths for measures from
// rhythmic density and authoring hints.
//
// Each pressure signal maps to one engraving concern:
//   - density: more events per beat need more lateral room
//   - rhythm: fine subdivisions must not fall below glyph width spacing
//   - peak: a locally dense beat inside a sparse measure still needs room
//   - staff count: grand-staff measures carry parallel content
//   - accidentals: alterations need lateral clearance before the notehead
package measure

import (
	"math"

	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// Pressure carries the signals that produced a measure width, kept on the
// column for traceability.
type Pressure struct {
	Density     float64 `json:"density"`       // events per beat
	Rhythm      float64 `json:"rhythm"`        // subdivision depth below quarter
	Peak        float64 `json:"peak"`          // max events in any single beat window
	StaffCount  int     `json:"staff_count"`   // staves in the measure
	Accidentals int     `json:"accidentals"`   // altered pitches
	EventCount  int     `json:"event_count"`   // timed events in the measure
	MaxVoiceRun int     `json:"max_voice_run"` // events in the densest single voice
}

// Weights maps pressure signals to width units. One immutable copy is built
// from the engraving config and shared by every planning call.
type Weights struct {
	Floor         float64 // minimum width of any measure
	Density       float64 // units per event-per-beat
	Rhythm        float64 // units per subdivision level; prevents sub-glyph-width note spacing
	Peak          float64 // units per event in the densest beat window
	StaffCount    float64 // units per staff beyond the first
	Accidental    float64 // units per altered pitch
	Hint          float64 // blend weight for author width hints, in [0,1]
	NoteheadWidth float64 // glyph width used for the simultaneity floor
}

// Analyze derives the pressure signals for one measure. divisions is the
// score's ticks-per-quarter. An empty measure yields the zero Pressure.
func Analyze(m score.Measure, divisions int) Pressure {
	p := Pressure{StaffCount: len(m.Staves)}
	ticks := m.MaxTick()
	if ticks == 0 || divisions <= 0 {
		return p
	}

	smallest := math.MaxInt
	for _, st := range m.Staves {
		for _, v := range st.Voices {
			if len(v.Events) > p.MaxVoiceRun {
				p.MaxVoiceRun = len(v.Events)
			}
			for _, e := range v.Events {
				p.EventCount++
				p.Accidentals += e.Accidentals()
				if e.Duration > 0 && e.Duration < smallest {
					smallest = e.Duration
				}
			}
		}
	}
	if p.EventCount == 0 {
		return p
	}

	beats := float64(ticks) / float64(divisions)
	p.Density = float64(p.EventCount) / beats

	// Subdivision depth below the quarter note: eighths are 1, sixteenths 2.
	if smallest != math.MaxInt && smallest < divisions {
		p.Rhythm = math.Log2(float64(divisions) / float64(smallest))
	}

	// Densest single-beat window, slid across one voice at a time so that
	// chords in parallel voices do not double-count against the same window.
	for _, st := range m.Staves {
		for _, v := range st.Voices {
			for start := 0; start < ticks; start += divisions {
				n := 0
				for _, e := range v.Events {
					if e.Tick >= start && e.Tick < start+divisions {
						n++
					}
				}
				if float64(n) > p.Peak {
					p.Peak = float64(n)
				}
			}
		}
	}

	return p
}

// Width converts pressure signals into a target width. The result never
// drops below the configured floor or below the simultaneity floor that
// keeps the densest voice's noteheads from overlapping.
func (w Weights) Width(p Pressure) float64 {
	width := w.Floor +
		p.Density*w.Density +
		p.Rhythm*w.Rhythm +
		p.Peak*w.Peak +
		float64(maxInt(p.StaffCount-1, 0))*w.StaffCount +
		float64(p.Accidentals)*w.Accidental
	return math.Max(width, w.floorFor(p))
}

// Plan computes a measure's width, blending an optional author hint. The
// hint is weighted against the computed width but can never push the result
// below the density floor. Empty measures fall back to the floor width.
func Plan(m score.Measure, divisions int, w Weights) (float64, Pressure) {
	p := Analyze(m, divisions)
	if p.EventCount == 0 {
		return w.Floor, p
	}
	width := w.Width(p)
	if m.WidthHint > 0 {
		blended := m.WidthHint*w.Hint + width*(1-w.Hint)
		width = math.Max(blended, w.floorFor(p))
	}
	return width, p
}

// OpeningScale returns the density scale applied to the first measure of a
// system. A sparse opening measure is normalized by its note count relative
// to the system's subsequent measures so it is not misclassified as
// compressed and over-widened. The scale is in (0, 1].
func OpeningScale(first Pressure, rest []Pressure) float64 {
	if len(rest) == 0 || first.EventCount == 0 {
		return 1
	}
	sum := 0
	for _, p := range rest {
		sum += p.EventCount
	}
	mean := float64(sum) / float64(len(rest))
	if mean <= 0 {
		return 1
	}
	scale := float64(first.EventCount) / mean
	if scale >= 1 {
		return 1
	}
	return scale
}

// Replan recomputes a system-opening measure's width with its density
// normalized by scale, preserving hint blending and floors.
func Replan(m score.Measure, divisions int, w Weights, scale float64) (float64, Pressure) {
	p := Analyze(m, divisions)
	if p.EventCount == 0 {
		return w.Floor, p
	}
	scaled := p
	scaled.Density *= scale
	scaled.Peak *= scale
	width := w.Width(scaled)
	if m.WidthHint > 0 {
		blended := m.WidthHint*w.Hint + width*(1-w.Hint)
		width = math.Max(blended, w.floorFor(p))
	}
	return width, p
}

// floorFor returns the larger of the configured floor and the simultaneity
// floor for the densest voice. Noteheads in one voice are spaced at least
// 1.5 glyph widths apart.
func (w Weights) floorFor(p Pressure) float64 {
	noteFloor := float64(p.MaxVoiceRun) * w.NoteheadWidth * 1.5
	return math.Max(w.Floor, noteFloor)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
