package voice

import (
	"testing"

	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

func staffWithVoices(ids ...int) score.Staff {
	st := score.Staff{Number: 1}
	for _, id := range ids {
		st.Voices = append(st.Voices, score.Voice{ID: id})
	}
	return st
}

func TestFormatAlternatesStems(t *testing.T) {
	res := Format(staffWithVoices(1, 2, 3, 4), Options{MaxVoices: 4, RestShift: 15})

	wantStems := []score.StemDirection{score.StemUp, score.StemDown, score.StemUp, score.StemDown}
	if len(res.Assignments) != 4 {
		t.Fatalf("got %d assignments, want 4", len(res.Assignments))
	}
	for i, a := range res.Assignments {
		if a.Stem != wantStems[i] {
			t.Errorf("voice %d stem = %q, want %q", a.Voice, a.Stem, wantStems[i])
		}
		if a.Ordinal != i {
			t.Errorf("voice %d ordinal = %d, want %d", a.Voice, a.Ordinal, i)
		}
	}
}

func TestFormatRestOffsets(t *testing.T) {
	res := Format(staffWithVoices(1, 2, 3), Options{MaxVoices: 4, RestShift: 15})

	// Primary voice rests stay on the centerline. Secondary voices displace
	// toward their stem side.
	if res.Assignments[0].RestOffset != 0 {
		t.Errorf("primary rest offset = %v, want 0", res.Assignments[0].RestOffset)
	}
	if res.Assignments[1].RestOffset != 15 {
		t.Errorf("stem-down rest offset = %v, want 15", res.Assignments[1].RestOffset)
	}
	if res.Assignments[2].RestOffset != -15 {
		t.Errorf("stem-up rest offset = %v, want -15", res.Assignments[2].RestOffset)
	}
}

func TestFormatDropsBeyondCeiling(t *testing.T) {
	res := Format(staffWithVoices(5, 2, 9, 1, 7), Options{MaxVoices: 3, RestShift: 15})

	if len(res.Assignments) != 3 {
		t.Fatalf("got %d assignments, want 3", len(res.Assignments))
	}
	// Ordering is by voice id, so the lowest ids survive.
	gotKept := []int{res.Assignments[0].Voice, res.Assignments[1].Voice, res.Assignments[2].Voice}
	wantKept := []int{1, 2, 5}
	for i := range wantKept {
		if gotKept[i] != wantKept[i] {
			t.Errorf("kept voices = %v, want %v", gotKept, wantKept)
			break
		}
	}
	if len(res.Dropped) != 2 || res.Dropped[0] != 7 || res.Dropped[1] != 9 {
		t.Errorf("Dropped = %v, want [7 9]", res.Dropped)
	}
}

func TestFormatZeroCeilingKeepsAll(t *testing.T) {
	res := Format(staffWithVoices(1, 2, 3, 4, 5), Options{MaxVoices: 0})
	if len(res.Assignments) != 5 || len(res.Dropped) != 0 {
		t.Errorf("got %d assignments %d dropped, want 5/0", len(res.Assignments), len(res.Dropped))
	}
}

func TestStemForHintOverride(t *testing.T) {
	a := Assignment{Stem: score.StemUp}

	if got := a.StemFor(score.Event{Stem: score.StemDown}); got != score.StemDown {
		t.Errorf("explicit hint = %q, want down", got)
	}
	if got := a.StemFor(score.Event{}); got != score.StemUp {
		t.Errorf("auto stem = %q, want up", got)
	}
}

func TestCustomStemPolicy(t *testing.T) {
	allDown := func(int) score.StemDirection { return score.StemDown }
	res := Format(staffWithVoices(1, 2), Options{StemPolicy: allDown})
	for _, a := range res.Assignments {
		if a.Stem != score.StemDown {
			t.Errorf("voice %d stem = %q, want down", a.Voice, a.Stem)
		}
	}
}

func TestTickMap(t *testing.T) {
	tm := NewTickMap(100, 120, 10, 16)

	if got := tm.X(0); got != 110 {
		t.Errorf("X(0) = %v, want 110 (left pad edge)", got)
	}
	if got := tm.X(8); got != 160 {
		t.Errorf("X(8) = %v, want 160 (midpoint)", got)
	}
	if got := tm.X(16); got != 210 {
		t.Errorf("X(16) = %v, want 210 (right pad edge)", got)
	}
	// Ticks past the measure clamp.
	if got := tm.X(99); got != 210 {
		t.Errorf("X(99) = %v, want clamped to 210", got)
	}
	if got := tm.X(-4); got != 110 {
		t.Errorf("X(-4) = %v, want clamped to 110", got)
	}
}

func TestTickMapEmptyMeasure(t *testing.T) {
	tm := NewTickMap(50, 100, 10, 0)
	if got := tm.X(8); got != 60 {
		t.Errorf("X on empty measure = %v, want left edge 60", got)
	}
}

func TestTickMapNarrowColumn(t *testing.T) {
	// Padding wider than the column collapses the span instead of inverting it.
	tm := NewTickMap(0, 10, 20, 8)
	if got := tm.X(4); got != 20 {
		t.Errorf("X = %v, want pinned to pad edge 20", got)
	}
}
