package engrave

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/diag"
	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// quarterMeasure builds a measure of four quarter notes on the middle line.
func quarterMeasure(number int) score.Measure {
	var events []score.Event
	for i := 0; i < 4; i++ {
		events = append(events, score.Event{
			Kind: score.KindNote, Tick: i * 4, Duration: 4,
			Pitches: []score.Pitch{{Line: 0}},
		})
	}
	return score.Measure{
		Number: number,
		Staves: []score.Staff{{Number: 1, Voices: []score.Voice{{ID: 1, Events: events}}}},
	}
}

// testScore builds a single-part score of n quarter-note measures with
// Divisions 4.
func testScore(n int) *score.Score {
	p := score.Part{ID: "P1", Name: "Piano"}
	for i := 0; i < n; i++ {
		p.Measures = append(p.Measures, quarterMeasure(i+1))
	}
	return &score.Score{Title: "Layout Test", Divisions: 4, Parts: []score.Part{p}}
}

func TestLayoutEndToEnd(t *testing.T) {
	s := testScore(12)
	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	if len(plan.Pages) == 0 {
		t.Fatal("plan has no pages")
	}
	if plan.Title != "Layout Test" {
		t.Errorf("Title = %q", plan.Title)
	}

	// Every measure appears exactly once, in order.
	var indices []int
	for _, sys := range plan.Systems() {
		for _, col := range sys.Columns {
			indices = append(indices, col.Index)
		}
	}
	if len(indices) != 12 {
		t.Fatalf("plan covers %d measures, want 12", len(indices))
	}
	for i, idx := range indices {
		if idx != i {
			t.Errorf("column %d carries measure %d", i, idx)
		}
	}

	first, last := plan.MeasureRange()
	if first != 0 || last != 11 {
		t.Errorf("MeasureRange = (%d, %d), want (0, 11)", first, last)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MeasureNumbers = true
	s := testScore(16)
	s.Parts[0].Measures[2].Staves[0].Directions = []score.Direction{
		{Category: score.CategoryDynamics, Text: "mf", Tick: 0},
		{Category: score.CategoryLyric, Text: "la", Tick: 4},
	}

	a, err := Layout(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Layout(s, cfg)
	if err != nil {
		t.Fatal(err)
	}

	da, err := a.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	db, err := b.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(da, db) {
		t.Error("identical inputs produced different serialized plans")
	}
}

func TestLayoutEmptyScore(t *testing.T) {
	s := &score.Score{Divisions: 4, Parts: []score.Part{{ID: "P1"}}}
	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(plan.Pages) != 0 {
		t.Errorf("empty score produced %d pages", len(plan.Pages))
	}
	first, last := plan.MeasureRange()
	if first != 0 || last != -1 {
		t.Errorf("MeasureRange = (%d, %d), want (0, -1)", first, last)
	}
}

func TestLayoutWindow(t *testing.T) {
	s := testScore(10)
	cfg := DefaultConfig()
	cfg.WindowFrom = 2
	cfg.WindowTo = 5

	plan, err := Layout(s, cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	first, last := plan.MeasureRange()
	if first != 2 || last != 4 {
		t.Errorf("MeasureRange = (%d, %d), want (2, 4)", first, last)
	}
}

func TestLayoutWindowIdempotence(t *testing.T) {
	// Re-running layout on exactly the measure range a page covers must
	// reproduce that page's placements: page boundaries align with system
	// boundaries, and nothing outside the range influences them.
	cfg := DefaultConfig()
	cfg.MaxMeasures = 2
	cfg.MinMeasures = 1
	cfg.PageHeight = 360

	full, err := Layout(testScore(8), cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(full.Pages) < 2 {
		t.Fatalf("got %d pages, want at least 2", len(full.Pages))
	}
	pg := full.Pages[1]

	wcfg := cfg
	wcfg.WindowFrom = pg.FirstMeasure
	wcfg.WindowTo = pg.LastMeasure + 1
	windowed, err := Layout(testScore(8), wcfg)
	if err != nil {
		t.Fatalf("Layout window: %v", err)
	}

	winSystems := windowed.Systems()
	if len(winSystems) != len(pg.Systems) {
		t.Fatalf("window produced %d systems, page has %d", len(winSystems), len(pg.Systems))
	}
	for i, want := range pg.Systems {
		if !reflect.DeepEqual(want.Columns, winSystems[i].Columns) {
			t.Errorf("system %d columns differ:\nfull:   %+v\nwindow: %+v", i, want.Columns, winSystems[i].Columns)
		}
		if !reflect.DeepEqual(want.Elements, winSystems[i].Elements) {
			t.Errorf("system %d elements differ between full and windowed runs", i)
		}
	}
}

func TestLayoutWindowOutOfRange(t *testing.T) {
	s := testScore(4)
	cfg := DefaultConfig()
	cfg.WindowFrom = 10

	_, err := Layout(s, cfg)
	if !errors.Is(err, errors.ErrCodeInvalidWindow) {
		t.Errorf("error code = %q, want INVALID_WINDOW", errors.GetCode(err))
	}
}

func TestLayoutRejectsInvalidInput(t *testing.T) {
	if _, err := Layout(&score.Score{}, DefaultConfig()); !errors.Is(err, errors.ErrCodeInvalidScore) {
		t.Errorf("invalid score code = %q", errors.GetCode(err))
	}

	cfg := DefaultConfig()
	cfg.Scale = 0
	if _, err := Layout(testScore(2), cfg); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("invalid config code = %q", errors.GetCode(err))
	}
}

func TestLayoutDiagnostics(t *testing.T) {
	s := testScore(4)
	// An empty measure and a zero-duration event.
	s.Parts[0].Measures[1].Staves[0].Voices[0].Events = nil
	s.Parts[0].Measures[2].Staves[0].Voices[0].Events = []score.Event{
		{Kind: score.KindNote, Tick: 0, Duration: 0, Pitches: []score.Pitch{{Line: 0}}},
	}

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	codes := make(map[string]int)
	for _, d := range plan.Diagnostics {
		codes[d.Code]++
	}
	if codes[diag.CodeEmptyMeasure] == 0 {
		t.Error("missing empty_measure diagnostic")
	}
	if codes[diag.CodeZeroDuration] == 0 {
		t.Error("missing zero_duration_event diagnostic")
	}
}

func TestLayoutVoiceOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxVoices = 2

	s := testScore(2)
	staff := &s.Parts[0].Measures[0].Staves[0]
	for id := 2; id <= 4; id++ {
		staff.Voices = append(staff.Voices, score.Voice{ID: id, Events: []score.Event{
			{Kind: score.KindNote, Tick: 0, Duration: 16, Pitches: []score.Pitch{{Line: -2}}},
		}})
	}

	plan, err := Layout(s, cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	overflow := 0
	for _, d := range plan.Diagnostics {
		if d.Code == diag.CodeVoiceOverflow {
			overflow++
		}
	}
	if overflow != 2 {
		t.Errorf("got %d voice_overflow diagnostics, want 2 (voices 3 and 4)", overflow)
	}

	// No element belongs to a dropped voice.
	for _, sys := range plan.Systems() {
		for _, e := range sys.Elements {
			if e.Voice > 2 {
				t.Errorf("element for dropped voice %d: %+v", e.Voice, e)
			}
		}
	}
}

func TestLayoutMaxMeasuresPerSystem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMeasures = 3

	plan, err := Layout(testScore(9), cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for _, sys := range plan.Systems() {
		if len(sys.Columns) > 3 {
			t.Errorf("system %d has %d measures, want at most 3", sys.Index, len(sys.Columns))
		}
	}
}

func TestLayoutMeasureNumbers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MeasureNumbers = true

	plan, err := Layout(testScore(10), cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for _, sys := range plan.Systems() {
		found := false
		for _, e := range sys.Elements {
			if e.Kind == ElementMeasureNumber {
				found = true
				if e.Text == "" {
					t.Error("measure number element without text")
				}
			}
		}
		if !found {
			t.Errorf("system %d has no measure number element", sys.Index)
		}
	}
}

func TestLayoutMultiPartStaffRows(t *testing.T) {
	s := testScore(4)
	p2 := score.Part{ID: "P2", Name: "Bass"}
	for i := 0; i < 4; i++ {
		p2.Measures = append(p2.Measures, quarterMeasure(i+1))
	}
	s.Parts = append(s.Parts, p2)

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	staves := make(map[int]bool)
	for _, sys := range plan.Systems() {
		for _, e := range sys.Elements {
			if e.Kind == ElementNotehead {
				staves[e.Staff] = true
			}
		}
	}
	if !staves[0] || !staves[1] {
		t.Errorf("noteheads on staves %v, want rows 0 and 1", staves)
	}

	// The second part's staff sits below the first's.
	sys := plan.Systems()[0]
	var y0, y1 float64
	for _, e := range sys.Elements {
		if e.Kind == ElementBarline {
			if e.Staff == 0 && y0 == 0 {
				y0 = e.Box.Y
			}
			if e.Staff == 1 && y1 == 0 {
				y1 = e.Box.Y
			}
		}
	}
	if y1 <= y0 {
		t.Errorf("staff 1 top %v should be below staff 0 top %v", y1, y0)
	}
}

func TestLayoutRoutesSpanners(t *testing.T) {
	s := testScore(2)
	events := s.Parts[0].Measures[0].Staves[0].Voices[0].Events
	events[0].Spanners = []score.Marker{{Type: score.SpannerSlur, Number: 1, Op: score.SpannerStart}}
	events[3].Spanners = []score.Marker{{Type: score.SpannerSlur, Number: 1, Op: score.SpannerStop}}

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	var paths int
	for _, sys := range plan.Systems() {
		paths += len(sys.Spanners)
	}
	if paths != 1 {
		t.Fatalf("got %d spanner paths, want 1", paths)
	}
	p := plan.Systems()[0].Spanners[0]
	if p.Start.X >= p.End.X {
		t.Errorf("path runs backward: %+v", p)
	}
	if len(plan.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", plan.Diagnostics)
	}
}

func TestLayoutCrossSystemSpanner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMeasures = 2

	s := testScore(4)
	start := &s.Parts[0].Measures[0].Staves[0].Voices[0].Events[0]
	start.Spanners = []score.Marker{{Type: score.SpannerTie, Number: 1, Op: score.SpannerStart}}
	stop := &s.Parts[0].Measures[3].Staves[0].Voices[0].Events[0]
	stop.Spanners = []score.Marker{{Type: score.SpannerTie, Number: 1, Op: score.SpannerStop}}

	plan, err := Layout(s, cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	systems := plan.Systems()
	if len(systems) < 2 {
		t.Fatalf("got %d systems, want at least 2", len(systems))
	}
	if len(systems[0].Spanners) != 1 {
		t.Fatalf("start system carries %d paths, want 1", len(systems[0].Spanners))
	}
	if !systems[0].Spanners[0].CrossSystem {
		t.Error("path should be marked cross-system")
	}
}

func TestLayoutElementsInsideContentBox(t *testing.T) {
	cfg := DefaultConfig()
	s := testScore(20)
	plan, err := Layout(s, cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	for _, pg := range plan.Pages {
		if pg.Overflow {
			continue
		}
		for _, sys := range pg.Systems {
			if sys.Box.X != cfg.MarginX {
				t.Errorf("system %d left edge %v, want %v", sys.Index, sys.Box.X, cfg.MarginX)
			}
			if sys.Box.Y < cfg.MarginY {
				t.Errorf("system %d top %v above the margin", sys.Index, sys.Box.Y)
			}
			if sys.Box.Bottom() > cfg.PageHeight-cfg.MarginY {
				t.Errorf("system %d bottom %v below the margin", sys.Index, sys.Box.Bottom())
			}
			for _, e := range sys.Elements {
				if e.Kind == ElementNotehead && !sys.Box.Contains(e.Box) {
					t.Errorf("notehead outside its system box: %+v", e)
				}
			}
		}
	}
}

func TestLayoutTextPlacement(t *testing.T) {
	s := testScore(2)
	s.Parts[0].Measures[0].Staves[0].Directions = []score.Direction{
		{Category: score.CategoryHarmony, Text: "Cmaj7", Tick: 0},
		{Category: score.CategoryLyric, Text: "word", Tick: 0},
	}

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	sys := plan.Systems()[0]
	var staffTop float64
	for _, e := range sys.Elements {
		if e.Kind == ElementBarline {
			staffTop = e.Box.Y
			break
		}
	}

	for _, e := range sys.Elements {
		if e.Kind != ElementText {
			continue
		}
		switch e.Category {
		case score.CategoryHarmony:
			if e.Box.Bottom() > staffTop {
				t.Errorf("harmony at y=%v should sit above the staff top %v", e.Box.Y, staffTop)
			}
		case score.CategoryLyric:
			if e.Box.Y < staffTop {
				t.Errorf("lyric at y=%v should sit below the staff top %v", e.Box.Y, staffTop)
			}
		}
	}
	if sys.LaneCounts[score.CategoryHarmony] != 1 || sys.LaneCounts[score.CategoryLyric] != 1 {
		t.Errorf("LaneCounts = %v", sys.LaneCounts)
	}
}

func TestLayoutAdjacentSystemTextClearance(t *testing.T) {
	// Stacked lyric lanes below one system and a harmony band above the
	// next both live outside their system boxes; the inter-system gap must
	// clear both so the rows never collide.
	cfg := DefaultConfig()
	cfg.MaxMeasures = 1
	cfg.MinMeasures = 1

	s := testScore(2)
	s.Parts[0].Measures[0].Staves[0].Directions = []score.Direction{
		{Category: score.CategoryLyric, Text: "lalalala", Tick: 0},
		{Category: score.CategoryLyric, Text: "lalalala", Tick: 0},
	}
	s.Parts[0].Measures[1].Staves[0].Directions = []score.Direction{
		{Category: score.CategoryHarmony, Text: "Cmaj7sus4", Tick: 0},
	}

	plan, err := Layout(s, cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	systems := plan.Systems()
	if len(systems) != 2 {
		t.Fatalf("got %d systems, want 2", len(systems))
	}

	textsOf := func(sys SystemPlan) []Element {
		var out []Element
		for _, e := range sys.Elements {
			if e.Kind == ElementText {
				out = append(out, e)
			}
		}
		return out
	}
	upper, lower := textsOf(systems[0]), textsOf(systems[1])
	if len(upper) != 2 || len(lower) != 1 {
		t.Fatalf("text counts = %d,%d, want 2,1", len(upper), len(lower))
	}
	for _, a := range upper {
		for _, b := range lower {
			if a.Box.Intersects(b.Box) {
				t.Errorf("text %q (box %+v) collides with next system's %q (box %+v)",
					a.Text, a.Box, b.Text, b.Box)
			}
		}
	}
}

func TestLayoutOverflowFlagsEscapedElements(t *testing.T) {
	// Enough harmony lanes above the first system push text past the page
	// top without growing the system box, so the height check alone stays
	// quiet; the page must still report the overflow.
	s := testScore(1)
	var dirs []score.Direction
	for i := 0; i < 6; i++ {
		dirs = append(dirs, score.Direction{Category: score.CategoryHarmony, Text: "Cmaj7", Tick: 0})
	}
	s.Parts[0].Measures[0].Staves[0].Directions = dirs

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if !plan.Pages[0].Overflow {
		t.Error("stacked lanes above the margin should flag page overflow")
	}
	found := false
	for _, d := range plan.Diagnostics {
		if d.Code == diag.CodePageOverflow {
			found = true
		}
	}
	if !found {
		t.Error("missing element_exceeds_page diagnostic")
	}
}

func TestLayoutStemsAndFlags(t *testing.T) {
	s := testScore(1)
	// Replace with one whole note and two eighths.
	s.Parts[0].Measures[0].Staves[0].Voices[0].Events = []score.Event{
		{Kind: score.KindNote, Tick: 0, Duration: 2, Pitches: []score.Pitch{{Line: 1}}},
		{Kind: score.KindNote, Tick: 2, Duration: 2, Pitches: []score.Pitch{{Line: 1}}},
		{Kind: score.KindNote, Tick: 4, Duration: 12, Pitches: []score.Pitch{{Line: 1}}},
	}

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	counts := make(map[ElementKind]int)
	for _, e := range plan.Systems()[0].Elements {
		counts[e.Kind]++
	}
	if counts[ElementNotehead] != 3 {
		t.Errorf("noteheads = %d, want 3", counts[ElementNotehead])
	}
	// All three notes are shorter than a whole note, so all carry stems; only
	// the two eighths carry flags.
	if counts[ElementStem] != 3 {
		t.Errorf("stems = %d, want 3", counts[ElementStem])
	}
	if counts[ElementFlag] != 2 {
		t.Errorf("flags = %d, want 2", counts[ElementFlag])
	}
}

func TestLayoutWholeNoteHasNoStem(t *testing.T) {
	s := testScore(1)
	s.Parts[0].Measures[0].Staves[0].Voices[0].Events = []score.Event{
		{Kind: score.KindNote, Tick: 0, Duration: 16, Pitches: []score.Pitch{{Line: 0}}},
	}

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for _, e := range plan.Systems()[0].Elements {
		if e.Kind == ElementStem {
			t.Errorf("whole note grew a stem: %+v", e)
		}
	}
}

func TestLayoutScaleGrowsGeometry(t *testing.T) {
	s := testScore(4)

	base, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Scale = 1.5
	big, err := Layout(s, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if big.Config.Scale != 1 {
		t.Errorf("plan config scale = %v, want normalized to 1", big.Config.Scale)
	}
	hBase := base.Systems()[0].Box.H
	hBig := big.Systems()[0].Box.H
	if hBig <= hBase {
		t.Errorf("scaled system height %v should exceed base %v", hBig, hBase)
	}
	// The page box stays fixed.
	if big.Pages[0].Bounds != base.Pages[0].Bounds {
		t.Error("page bounds must not scale")
	}
}

func TestLayoutCrossingVoices(t *testing.T) {
	// Two voices whose pitch ranges cross at a shared tick: voice 1 stems up,
	// voice 2 stems down, and the noteheads occupy distinct boxes.
	s := testScore(1)
	s.Parts[0].Measures[0].Staves[0].Voices = []score.Voice{
		{ID: 1, Events: []score.Event{
			{Kind: score.KindNote, Tick: 0, Duration: 16, Pitches: []score.Pitch{{Line: -2}}},
		}},
		{ID: 2, Events: []score.Event{
			{Kind: score.KindNote, Tick: 0, Duration: 16, Pitches: []score.Pitch{{Line: 2}}},
		}},
	}

	plan, err := Layout(s, DefaultConfig())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	var heads []Element
	for _, e := range plan.Systems()[0].Elements {
		if e.Kind == ElementNotehead {
			heads = append(heads, e)
		}
	}
	if len(heads) != 2 {
		t.Fatalf("got %d noteheads, want 2", len(heads))
	}
	for _, h := range heads {
		switch h.Voice {
		case 1:
			if h.Stem != score.StemUp {
				t.Errorf("voice 1 stem = %q, want up", h.Stem)
			}
		case 2:
			if h.Stem != score.StemDown {
				t.Errorf("voice 2 stem = %q, want down", h.Stem)
			}
		}
	}
	if heads[0].Box == heads[1].Box {
		t.Error("crossing voices share one notehead box")
	}
}

func TestLayoutPageBreak(t *testing.T) {
	// Four systems against a page budget that fits exactly three.
	cfg := DefaultConfig()
	cfg.MaxMeasures = 2
	cfg.MinMeasures = 1
	cfg.PageHeight = 360 // content height 200: three 40-unit systems plus two 40-unit gaps

	plan, err := Layout(testScore(8), cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(plan.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(plan.Pages))
	}
	if len(plan.Pages[0].Systems) != 3 || len(plan.Pages[1].Systems) != 1 {
		t.Errorf("systems per page = %d,%d, want 3,1",
			len(plan.Pages[0].Systems), len(plan.Pages[1].Systems))
	}
	for _, pg := range plan.Pages {
		if pg.Overflow {
			t.Errorf("page %d flagged overflow", pg.Number)
		}
	}
	if plan.Pages[1].FirstMeasure != 6 || plan.Pages[1].LastMeasure != 7 {
		t.Errorf("page 2 range = [%d, %d], want [6, 7]",
			plan.Pages[1].FirstMeasure, plan.Pages[1].LastMeasure)
	}
}

func TestPlanRoundTrip(t *testing.T) {
	plan, err := Layout(testScore(6), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	data, err := plan.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalPlan(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Pages) != len(plan.Pages) || got.Title != plan.Title {
		t.Errorf("round trip changed the plan")
	}
}

func TestUnmarshalPlanRejectsBadJSON(t *testing.T) {
	_, err := UnmarshalPlan([]byte("{not a plan"))
	if !errors.Is(err, errors.ErrCodeInvalidPlan) {
		t.Errorf("error code = %q, want INVALID_PLAN", errors.GetCode(err))
	}
}
