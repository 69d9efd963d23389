// Package voice assigns stem directions and vertical offsets to the voices
// sharing a staff, and maps ticks to shared x-coordinates within a measure
// column so simultaneous events align across voices.
package voice

import (
	"sort"

	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// StemPolicy decides a voice's default stem direction from its ordinal
// within the staff. It is an explicit, overridable policy: per-event stem
// hints from the canonical model always win over the policy's answer.
type StemPolicy func(ordinal int) score.StemDirection

// DefaultStemPolicy alternates stems by voice ordinal: the first voice
// observed stems up, the second down, further voices alternate.
func DefaultStemPolicy(ordinal int) score.StemDirection {
	if ordinal%2 == 0 {
		return score.StemUp
	}
	return score.StemDown
}

// Assignment is one voice's formatting decision, valid for one measure.
// Voice activity may change between measures, so assignments are recomputed
// per measure.
type Assignment struct {
	Voice      int                 // voice id from the canonical model
	Ordinal    int                 // position within the staff, by first observation
	Stem       score.StemDirection // resolved default for the voice
	RestOffset float64             // vertical displacement for this voice's rests
}

// Options configures voice formatting for one staff in one measure.
type Options struct {
	MaxVoices  int        // joint-formatting ceiling; lowest ordinals are kept beyond it
	RestShift  float64    // rest displacement magnitude for secondary voices
	StemPolicy StemPolicy // nil = DefaultStemPolicy
}

// Result holds the per-voice assignments and the list of voices that
// exceeded the ceiling (kept out of the layout with a diagnostic upstream).
type Result struct {
	Assignments []Assignment
	Dropped     []int
}

// Format assigns stem conventions and rest offsets to the staff's voices.
// Voices are ordered by id to fix the ordinal convention deterministically.
// Secondary voices' rests are displaced from the centerline in the direction
// of their stem convention so they clear the primary voice's notes at the
// same tick.
func Format(st score.Staff, opts Options) Result {
	policy := opts.StemPolicy
	if policy == nil {
		policy = DefaultStemPolicy
	}

	voices := make([]score.Voice, len(st.Voices))
	copy(voices, st.Voices)
	sort.SliceStable(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })

	var res Result
	for ordinal, v := range voices {
		if opts.MaxVoices > 0 && ordinal >= opts.MaxVoices {
			res.Dropped = append(res.Dropped, v.ID)
			continue
		}
		a := Assignment{Voice: v.ID, Ordinal: ordinal, Stem: policy(ordinal)}
		if ordinal > 0 {
			if a.Stem == score.StemUp {
				a.RestOffset = -opts.RestShift
			} else {
				a.RestOffset = opts.RestShift
			}
		}
		res.Assignments = append(res.Assignments, a)
	}
	return res
}

// StemFor resolves the effective stem direction for one event under an
// assignment: an explicit hint from the canonical model overrides the
// voice's convention.
func (a Assignment) StemFor(e score.Event) score.StemDirection {
	if e.Stem != score.StemAuto {
		return e.Stem
	}
	return a.Stem
}

// TickMap is the shared tick→x function for one measure column. All voices
// of all staves in the measure place simultaneous ticks at the same x.
type TickMap struct {
	x0    float64
	span  float64
	ticks float64
	pad   float64
}

// NewTickMap builds the mapping for a column starting at x0 with the given
// width. measureTicks is the measure's total duration; pad reserves room at
// both column edges for barlines and accidentals.
func NewTickMap(x0, width, pad float64, measureTicks int) TickMap {
	t := TickMap{x0: x0, pad: pad, span: width - 2*pad}
	if t.span < 0 {
		t.span = 0
	}
	t.ticks = float64(measureTicks)
	return t
}

// X returns the x-coordinate for a tick. Ticks beyond the measure clamp to
// the right padding edge; an empty measure pins everything to the left edge.
func (t TickMap) X(tick int) float64 {
	if t.ticks <= 0 {
		return t.x0 + t.pad
	}
	frac := float64(tick) / t.ticks
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return t.x0 + t.pad + frac*t.span
}
