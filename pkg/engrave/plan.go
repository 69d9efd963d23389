package engrave

import (
	"encoding/json"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/diag"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/geom"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/measure"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/spanner"
	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// ElementKind identifies the drawable element variants in a plan.
type ElementKind string

const (
	ElementNotehead      ElementKind = "notehead"
	ElementRest          ElementKind = "rest"
	ElementStem          ElementKind = "stem"
	ElementFlag          ElementKind = "flag"
	ElementBarline       ElementKind = "barline"
	ElementText          ElementKind = "text"
	ElementMeasureNumber ElementKind = "measure_number"
)

// Element is one positioned drawable. Boxes are in absolute page
// coordinates, y-down, anchored at the top-left corner.
type Element struct {
	Kind     ElementKind         `json:"kind"`
	Measure  int                 `json:"measure"`         // global measure index
	Staff    int                 `json:"staff"`           // global staff index
	Voice    int                 `json:"voice,omitempty"` // voice id, sounding elements only
	Tick     int                 `json:"tick,omitempty"`
	Box      geom.Box            `json:"box"`
	Stem     score.StemDirection `json:"stem,omitempty"`     // resolved direction, noteheads and stems
	Lane     int                 `json:"lane,omitempty"`     // text elements only
	Category score.TextCategory  `json:"category,omitempty"` // text elements only
	Text     string              `json:"text,omitempty"`
}

// MeasureColumn is one measure's resolved horizontal slot within a system,
// with the pressure signals that produced its width kept for inspection.
type MeasureColumn struct {
	Index    int              `json:"index"` // global measure index
	X        float64          `json:"x"`     // absolute left edge
	Width    float64          `json:"width"`
	Pressure measure.Pressure `json:"pressure"`
}

// SystemPlan is one horizontal band of measures with everything placed
// inside it. Elements and spanners are in absolute page coordinates.
type SystemPlan struct {
	Index      int                        `json:"index"` // global system index
	Box        geom.Box                   `json:"box"`
	Columns    []MeasureColumn            `json:"columns"`
	Elements   []Element                  `json:"elements"`
	Spanners   []spanner.Path             `json:"spanners,omitempty"`
	LaneCounts map[score.TextCategory]int `json:"lane_counts,omitempty"`
}

// PagePlan is one page of systems.
type PagePlan struct {
	Number       int          `json:"number"` // 1-based
	Bounds       geom.Box     `json:"bounds"`
	Systems      []SystemPlan `json:"systems"`
	FirstMeasure int          `json:"first_measure"`
	LastMeasure  int          `json:"last_measure"`
	Overflow     bool         `json:"overflow,omitempty"` // a system exceeded the page budget
}

// Plan is the complete layout result: a deterministic, serializable scene
// description the drawing collaborator renders without further decisions.
type Plan struct {
	Title       string            `json:"title,omitempty"`
	Config      Config            `json:"config"`
	Pages       []PagePlan        `json:"pages"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// Marshal serializes the plan to indented JSON. Output is byte-identical
// for identical inputs: all collections are slices in placement order, and
// the lane count maps marshal with sorted keys.
func (p *Plan) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// UnmarshalPlan decodes a serialized plan.
func UnmarshalPlan(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPlan, err, "decode plan JSON")
	}
	return &p, nil
}

// Systems returns all systems across pages in index order.
func (p *Plan) Systems() []SystemPlan {
	var out []SystemPlan
	for _, pg := range p.Pages {
		out = append(out, pg.Systems...)
	}
	return out
}

// MeasureRange returns the inclusive global measure index range the plan
// covers, or (0, -1) for an empty plan.
func (p *Plan) MeasureRange() (first, last int) {
	if len(p.Pages) == 0 {
		return 0, -1
	}
	return p.Pages[0].FirstMeasure, p.Pages[len(p.Pages)-1].LastMeasure
}
