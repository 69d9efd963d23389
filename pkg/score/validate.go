package score

import (
	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
)

// validKinds is the closed set of event kinds.
var validKinds = map[EventKind]bool{
	KindNote:  true,
	KindRest:  true,
	KindChord: true,
}

var validCategories = map[TextCategory]bool{
	CategoryLyric:     true,
	CategoryHarmony:   true,
	CategoryDirection: true,
	CategoryDynamics:  true,
}

var validSpannerTypes = map[SpannerType]bool{
	SpannerTie:      true,
	SpannerSlur:     true,
	SpannerWedge:    true,
	SpannerTuplet:   true,
	SpannerArpeggio: true,
}

// Validate checks the structural invariants the layout engine relies on.
// Structurally invalid input (missing timebase, negative ticks, overlapping
// events within a voice, unknown variant tags) is the parsing collaborator's
// bug; the engine fails fast on it rather than guessing.
//
// Degenerate-but-legal input (empty measures, zero-duration events, unmatched
// spanner markers) passes validation and is resolved by layout diagnostics.
func (s *Score) Validate() error {
	if s.Divisions <= 0 {
		return errors.New(errors.ErrCodeInvalidScore, "divisions must be positive, got %d", s.Divisions)
	}
	if len(s.Parts) == 0 {
		return errors.New(errors.ErrCodeInvalidScore, "score has no parts")
	}

	measures := len(s.Parts[0].Measures)
	for _, p := range s.Parts {
		if p.ID == "" {
			return errors.New(errors.ErrCodeInvalidScore, "part without id")
		}
		if len(p.Measures) != measures {
			return errors.New(errors.ErrCodeInvalidScore,
				"part %s has %d measures, part %s has %d: parts must align",
				p.ID, len(p.Measures), s.Parts[0].ID, measures)
		}
		for mi, m := range p.Measures {
			if err := validateMeasure(p.ID, mi, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateMeasure(partID string, index int, m Measure) error {
	for _, st := range m.Staves {
		for _, v := range st.Voices {
			prevEnd := 0
			for ei, e := range v.Events {
				if !validKinds[e.Kind] {
					return errors.New(errors.ErrCodeInvalidScore,
						"part %s measure %d voice %d: unknown event kind %q", partID, index, v.ID, e.Kind)
				}
				if e.Tick < 0 || e.Duration < 0 {
					return errors.New(errors.ErrCodeInvalidScore,
						"part %s measure %d voice %d: negative timing at event %d", partID, index, v.ID, ei)
				}
				if e.Tick < prevEnd {
					return errors.New(errors.ErrCodeInvalidScore,
						"part %s measure %d voice %d: event %d at tick %d overlaps previous ending at %d",
						partID, index, v.ID, ei, e.Tick, prevEnd)
				}
				if e.Sounding() && len(e.Pitches) == 0 {
					return errors.New(errors.ErrCodeInvalidScore,
						"part %s measure %d voice %d: %s without pitches", partID, index, v.ID, e.Kind)
				}
				for _, mk := range e.Spanners {
					if !validSpannerTypes[mk.Type] {
						return errors.New(errors.ErrCodeInvalidScore,
							"part %s measure %d: unknown spanner type %q", partID, index, mk.Type)
					}
					if mk.Op != SpannerStart && mk.Op != SpannerStop {
						return errors.New(errors.ErrCodeInvalidScore,
							"part %s measure %d: spanner op must be start or stop, got %q", partID, index, mk.Op)
					}
				}
				prevEnd = e.End()
			}
		}
		for _, d := range st.Directions {
			if !validCategories[d.Category] {
				return errors.New(errors.ErrCodeInvalidScore,
					"part %s measure %d: unknown text category %q", partID, index, d.Category)
			}
			if d.Tick < 0 {
				return errors.New(errors.ErrCodeInvalidScore,
					"part %s measure %d: direction %q at negative tick", partID, index, d.Text)
			}
		}
	}
	return nil
}
