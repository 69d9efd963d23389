package engrave

import (
	"github.com/BurntSushi/toml"

	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
)

// Config is the complete, immutable coefficient set for one layout run.
// Every pressure weight, padding, and cap lives here and is passed
// explicitly into the components, never held as module-level state, so
// behavior is reproducible and each coefficient is independently testable.
//
// All lengths are in layout units; the drawing collaborator owns the
// mapping to device pixels.
type Config struct {
	// Page geometry.
	PageWidth  float64 `toml:"page_width"`
	PageHeight float64 `toml:"page_height"`
	MarginX    float64 `toml:"margin_x"`
	MarginY    float64 `toml:"margin_y"`
	LabelWidth float64 `toml:"label_width"` // room reserved for part labels at system start
	Scale      float64 `toml:"scale"`       // multiplies all music geometry, not the page box

	// Staff geometry.
	StaffSpace    float64 `toml:"staff_space"`    // distance between adjacent staff lines
	StaffDistance float64 `toml:"staff_distance"` // vertical distance between staves in a system

	// System and page composition.
	MinMeasures    int     `toml:"min_measures"`     // minimum measures per system before backtracking
	MaxMeasures    int     `toml:"max_measures"`     // 0 = unbounded
	MinSystemGap   float64 `toml:"min_system_gap"`   // floor for the inter-system gap
	SystemGap      float64 `toml:"system_gap"`       // explicit gap, 0 = pressure-derived
	SparseRatio    float64 `toml:"sparse_ratio"`     // budget fraction below which a system compacts instead of stretching
	MeasureNumbers bool    `toml:"measure_numbers"`  // overlay measure numbers at system starts
	WindowFrom     int     `toml:"window_from"`      // first measure index to lay out
	WindowTo       int     `toml:"window_to"`        // one past the last measure index, 0 = end of score

	// Measure width pressure weights. Each weight is documented against
	// the engraving concern it addresses in DefaultConfig.
	WidthFloor       float64 `toml:"width_floor"`
	DensityWeight    float64 `toml:"density_weight"`
	RhythmWeight     float64 `toml:"rhythm_weight"`
	PeakWeight       float64 `toml:"peak_weight"`
	StaffCountWeight float64 `toml:"staff_count_weight"`
	AccidentalWeight float64 `toml:"accidental_weight"`
	HintWeight       float64 `toml:"hint_weight"`
	NoteheadWidth    float64 `toml:"notehead_width"`
	ColumnPadding    float64 `toml:"column_padding"` // room at column edges for barlines and accidentals

	// Voice formatting.
	MaxVoices int     `toml:"max_voices"` // joint-formatting ceiling per staff
	RestShift float64 `toml:"rest_shift"` // vertical rest displacement for secondary voices

	// Spanner routing. Caps are ratios of the staff distance, not fixed
	// pixel constants, so they track the configured staff geometry.
	SpreadCapRatio  float64 `toml:"spread_cap_ratio"`
	CrossStaffRatio float64 `toml:"cross_staff_ratio"`
	CurveHeight     float64 `toml:"curve_height"`
	StrictSpanners  bool    `toml:"strict_spanners"` // unmatched markers escalate to error severity

	// Text lanes.
	FontSize    float64 `toml:"font_size"`
	LanePadding float64 `toml:"lane_padding"`
	LaneHeight  float64 `toml:"lane_height"`
	LaneGap     float64 `toml:"lane_gap"` // clearance between staff edge and first lane
	MergeWindow float64 `toml:"merge_window"`
}

// DefaultConfig returns the documented default coefficients.
func DefaultConfig() Config {
	return Config{
		PageWidth:  1200,
		PageHeight: 1600,
		MarginX:    60,
		MarginY:    80,
		LabelWidth: 0,
		Scale:      1,

		StaffSpace:    10,
		StaffDistance: 85,

		MinMeasures:  2,
		MaxMeasures:  8,
		MinSystemGap: 40,
		SparseRatio:  0.55,

		// A quarter-note measure in one voice costs the floor plus one
		// density unit; the rhythm weight keeps sixteenth runs from
		// spacing notes below glyph width, and the peak weight protects a
		// single dense beat inside an otherwise sparse measure.
		WidthFloor:       120,
		DensityWeight:    40,
		RhythmWeight:     30,
		PeakWeight:       25,
		StaffCountWeight: 20,
		AccidentalWeight: 8,
		HintWeight:       0.5,
		NoteheadWidth:    12,
		ColumnPadding:    14,

		MaxVoices: 4,
		RestShift: 15,

		SpreadCapRatio:  0.8,
		CrossStaffRatio: 1.5,
		CurveHeight:     14,

		FontSize:    13,
		LanePadding: 8,
		LaneHeight:  18,
		LaneGap:     10,
		MergeWindow: 90,
	}
}

// LoadConfig reads a TOML coefficient file over the defaults, so partial
// files override only the coefficients they name.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the coefficient set for internal consistency.
func (c Config) Validate() error {
	switch {
	case c.PageWidth <= 0 || c.PageHeight <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "page dimensions must be positive")
	case c.MarginX*2 >= c.PageWidth || c.MarginY*2 >= c.PageHeight:
		return errors.New(errors.ErrCodeInvalidConfig, "margins leave no content area")
	case c.LabelWidth < 0 || c.LabelWidth >= c.PageWidth-2*c.MarginX:
		return errors.New(errors.ErrCodeInvalidConfig, "label width leaves no content area")
	case c.Scale <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "scale must be positive")
	case c.StaffSpace <= 0 || c.StaffDistance <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "staff geometry must be positive")
	case c.MinMeasures < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "min_measures must be at least 1")
	case c.MaxMeasures != 0 && c.MaxMeasures < c.MinMeasures:
		return errors.New(errors.ErrCodeInvalidConfig, "max_measures %d below min_measures %d", c.MaxMeasures, c.MinMeasures)
	case c.WidthFloor <= 0 || c.NoteheadWidth <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "width floor and notehead width must be positive")
	case c.WidthFloor > c.ContentWidth():
		return errors.New(errors.ErrCodeBudgetExceeded,
			"width floor %.0f exceeds the content width %.0f; no measure can fit", c.WidthFloor, c.ContentWidth())
	case c.HintWeight < 0 || c.HintWeight > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "hint_weight must be in [0,1]")
	case c.SparseRatio < 0 || c.SparseRatio > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "sparse_ratio must be in [0,1]")
	case c.SpreadCapRatio <= 0 || c.CrossStaffRatio <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "spanner ratios must be positive")
	case c.MaxVoices < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max_voices must be at least 1")
	case c.WindowFrom < 0 || (c.WindowTo != 0 && c.WindowTo <= c.WindowFrom):
		return errors.New(errors.ErrCodeInvalidWindow, "window [%d, %d) is empty", c.WindowFrom, c.WindowTo)
	case c.FontSize <= 0 || c.LaneHeight <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "text geometry must be positive")
	}
	return nil
}

// normalized returns a copy with the scale factor folded into every music
// geometry coefficient, leaving Scale at 1. Page box and margins are not
// scaled: scale changes the music size on a fixed page.
func (c Config) normalized() Config {
	s := c.Scale
	if s == 1 {
		return c
	}
	n := c
	n.Scale = 1
	n.StaffSpace *= s
	n.StaffDistance *= s
	n.MinSystemGap *= s
	n.SystemGap *= s
	n.WidthFloor *= s
	n.DensityWeight *= s
	n.RhythmWeight *= s
	n.PeakWeight *= s
	n.StaffCountWeight *= s
	n.AccidentalWeight *= s
	n.NoteheadWidth *= s
	n.ColumnPadding *= s
	n.RestShift *= s
	n.CurveHeight *= s
	n.FontSize *= s
	n.LanePadding *= s
	n.LaneHeight *= s
	n.LaneGap *= s
	n.MergeWindow *= s
	return n
}

// ContentWidth returns the horizontal budget available to measure columns.
func (c Config) ContentWidth() float64 {
	return c.PageWidth - 2*c.MarginX - c.LabelWidth
}

// ContentHeight returns the vertical budget available to systems.
func (c Config) ContentHeight() float64 {
	return c.PageHeight - 2*c.MarginY
}

// StaffHeight returns the height of one five-line staff.
func (c Config) StaffHeight() float64 { return 4 * c.StaffSpace }

// SpreadCap returns the effective spanner spread cap in layout units.
func (c Config) SpreadCap() float64 { return c.SpreadCapRatio * c.StaffDistance }

// CrossStaffGap returns the staff separation beyond which spanners route as
// direct connectors.
func (c Config) CrossStaffGap() float64 { return c.CrossStaffRatio * c.StaffDistance }
