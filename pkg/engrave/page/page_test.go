package page

import (
	"math"
	"testing"
)

func columns(widths ...float64) []Column {
	cols := make([]Column, len(widths))
	for i, w := range widths {
		cols[i] = Column{Index: i, Width: w, Density: 1}
	}
	return cols
}

func TestBreakSystemsGreedy(t *testing.T) {
	cols := columns(400, 400, 400, 400, 400)

	systems := BreakSystems(cols, 1000, 1, 0)
	if len(systems) != 3 {
		t.Fatalf("got %d systems, want 3", len(systems))
	}
	if len(systems[0]) != 2 || len(systems[1]) != 2 || len(systems[2]) != 1 {
		t.Errorf("system sizes = %d,%d,%d, want 2,2,1",
			len(systems[0]), len(systems[1]), len(systems[2]))
	}
	// Order preserved.
	if systems[1][0].Index != 2 {
		t.Errorf("second system starts at measure %d, want 2", systems[1][0].Index)
	}
}

func TestBreakSystemsMaxPer(t *testing.T) {
	cols := columns(10, 10, 10, 10, 10, 10)

	systems := BreakSystems(cols, 1000, 1, 2)
	if len(systems) != 3 {
		t.Fatalf("got %d systems, want 3", len(systems))
	}
	for i, sys := range systems {
		if len(sys) != 2 {
			t.Errorf("system %d has %d measures, want 2", i, len(sys))
		}
	}
}

func TestBreakSystemsOversizedColumn(t *testing.T) {
	// A single column wider than the budget still gets a system.
	systems := BreakSystems(columns(2000), 1000, 1, 0)
	if len(systems) != 1 || len(systems[0]) != 1 {
		t.Errorf("oversized column systems = %v", systems)
	}
}

func TestBreakSystemsEmpty(t *testing.T) {
	if got := BreakSystems(nil, 1000, 1, 0); got != nil {
		t.Errorf("BreakSystems(nil) = %v, want nil", got)
	}
}

func TestRebalanceTail(t *testing.T) {
	// Greedy leaves a lone trailing measure; the rebalance pulls one back
	// from the predecessor so the final system meets the minimum.
	cols := columns(300, 300, 300, 300)
	systems := BreakSystems(cols, 950, 2, 0)

	if len(systems) != 2 {
		t.Fatalf("got %d systems, want 2", len(systems))
	}
	if len(systems[0]) != 2 || len(systems[1]) != 2 {
		t.Errorf("system sizes = %d,%d, want 2,2 after rebalance",
			len(systems[0]), len(systems[1]))
	}
	// The moved measure keeps its position in reading order.
	if systems[1][0].Index != 2 || systems[1][1].Index != 3 {
		t.Errorf("tail system indices = %d,%d, want 2,3",
			systems[1][0].Index, systems[1][1].Index)
	}
}

func TestRebalanceTailRespectsBudget(t *testing.T) {
	// Moving the candidate would overflow the tail's budget, so the sparse
	// tail stands.
	cols := columns(300, 300, 300, 900)
	systems := BreakSystems(cols, 950, 2, 0)

	last := systems[len(systems)-1]
	if len(last) != 1 || last[0].Index != 3 {
		t.Errorf("tail = %v, want the single oversized measure", last)
	}
}

func TestJustifyStretchesToBudget(t *testing.T) {
	cols := columns(300, 300, 300)
	widths := Justify(cols, 1000, 0.55)

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if math.Abs(total-1000) > 1e-9 {
		t.Errorf("justified total = %v, want 1000", total)
	}
	for i, w := range widths {
		if w < cols[i].Width {
			t.Errorf("column %d shrank from %v to %v", i, cols[i].Width, w)
		}
	}
}

func TestJustifyInverseDensity(t *testing.T) {
	cols := []Column{
		{Index: 0, Width: 300, Density: 1},
		{Index: 1, Width: 300, Density: 4},
	}
	widths := Justify(cols, 1000, 0.55)

	grow0 := widths[0] - 300
	grow1 := widths[1] - 300
	if grow0 <= grow1 {
		t.Errorf("sparse measure grew %v, dense grew %v; sparse should stretch more", grow0, grow1)
	}
}

func TestJustifySparseSystemKeepsWidths(t *testing.T) {
	cols := columns(100, 100)
	widths := Justify(cols, 1000, 0.55)

	// 200 of 1000 used is below the 0.55 sparse ratio: no stretch.
	if widths[0] != 100 || widths[1] != 100 {
		t.Errorf("sparse system stretched: %v", widths)
	}
}

func TestJustifyFullSystemUnchanged(t *testing.T) {
	cols := columns(600, 600)
	widths := Justify(cols, 1000, 0.55)
	if widths[0] != 600 || widths[1] != 600 {
		t.Errorf("over-budget system changed: %v", widths)
	}
}

func TestSystemGap(t *testing.T) {
	tests := []struct {
		name             string
		minGap, explicit float64
		below, above     float64
		pressure, gap    float64
		want             float64
	}{
		{"minimum wins", 40, 0, 0, 0, 0, 10, 40},
		// Two lanes below (2*18+10) and one above (18+10) with weighted
		// pressure 3: the gap clears both bands plus breathing room.
		{"bands expand", 40, 0, 46, 28, 3, 10, 104},
		{"explicit overrides", 40, 100, 46, 28, 3, 10, 100},
		{"small band stays at minimum", 40, 0, 28, 0, 0.5, 10, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SystemGap(tt.minGap, tt.explicit, tt.below, tt.above, tt.pressure, tt.gap)
			if got != tt.want {
				t.Errorf("SystemGap = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreakPages(t *testing.T) {
	heights := []float64{300, 300, 300, 300}
	gaps := []float64{0, 50, 50, 50}

	pages := BreakPages(heights, gaps, 700)
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if len(pages[0]) != 2 || len(pages[1]) != 2 {
		t.Errorf("page sizes = %d,%d, want 2,2", len(pages[0]), len(pages[1]))
	}
	// The first system of a page drops its leading gap.
	if pages[1][0] != 2 {
		t.Errorf("second page starts at system %d, want 2", pages[1][0])
	}
}

func TestBreakPagesOversizedSystem(t *testing.T) {
	heights := []float64{200, 1500, 200}
	gaps := []float64{0, 40, 40}

	pages := BreakPages(heights, gaps, 1000)
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	if len(pages[1]) != 1 || pages[1][0] != 1 {
		t.Errorf("oversized system should stand alone: %v", pages[1])
	}
}

func TestBreakPagesEmpty(t *testing.T) {
	if got := BreakPages(nil, nil, 1000); got != nil {
		t.Errorf("BreakPages(nil) = %v, want nil", got)
	}
}
