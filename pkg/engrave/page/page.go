// Package page groups measure columns into systems and systems into pages
// under width and height budgets. It works over abstract column widths so
// the grouping arithmetic stays independent of glyph geometry.
package page

// Column is one measure's width demand when entering pagination.
type Column struct {
	Index    int     // global measure index
	Width    float64 // planned width
	MinWidth float64 // density floor; justification never compresses below it
	Density  float64 // events per beat, drives inverse-density stretch
}

// BreakSystems greedily accumulates columns into systems while their summed
// width stays within budget, closing a system on overflow. maxPer bounds the
// measures per system (0 = unbounded). After the greedy pass, a trailing
// system below minPer gets one or two measures redistributed backward from
// its predecessor (a bounded local backtrack) rather than standing as a
// visually sparse row.
func BreakSystems(cols []Column, budget float64, minPer, maxPer int) [][]Column {
	if len(cols) == 0 {
		return nil
	}

	var systems [][]Column
	var current []Column
	used := 0.0
	for _, c := range cols {
		overWidth := len(current) > 0 && used+c.Width > budget
		overCount := maxPer > 0 && len(current) >= maxPer
		if overWidth || overCount {
			systems = append(systems, current)
			current = nil
			used = 0
		}
		current = append(current, c)
		used += c.Width
	}
	systems = append(systems, current)

	rebalanceTail(systems, budget, minPer)
	return systems
}

// rebalanceTail moves up to two measures from the penultimate system into a
// sparse final system. A move is legal while the penultimate stays at or
// above minPer and the final system still fits its budget.
func rebalanceTail(systems [][]Column, budget float64, minPer int) {
	n := len(systems)
	if minPer <= 1 || n < 2 {
		return
	}
	last, prev := systems[n-1], systems[n-2]
	moved := 0
	for moved < 2 && len(last) < minPer && len(prev) > minPer {
		candidate := prev[len(prev)-1]
		if width(last)+candidate.Width > budget {
			break
		}
		prev = prev[:len(prev)-1]
		last = append([]Column{candidate}, last...)
		moved++
	}
	systems[n-1], systems[n-2] = last, prev
}

// Justify distributes a system's leftover width. Dense systems stretch
// proportionally, weighted by inverse density so denser measures stretch
// less. A sparse system, one using less than sparseRatio of its budget,
// keeps its density-justified widths instead of stretching to fill, and
// justification never reduces a column below its floor.
func Justify(cols []Column, budget, sparseRatio float64) []float64 {
	widths := make([]float64, len(cols))
	total := 0.0
	for i, c := range cols {
		widths[i] = c.Width
		total += c.Width
	}
	if total >= budget || total == 0 {
		return widths
	}
	if total < sparseRatio*budget {
		return widths
	}

	const minDensity = 0.05
	invSum := 0.0
	for _, c := range cols {
		invSum += 1 / densityOrMin(c.Density, minDensity)
	}
	leftover := budget - total
	for i, c := range cols {
		share := (1 / densityOrMin(c.Density, minDensity)) / invSum
		widths[i] += leftover * share
	}
	return widths
}

func densityOrMin(d, floor float64) float64 {
	if d < floor {
		return floor
	}
	return d
}

// SystemGap sizes the vertical gap between two adjacent systems. The gap
// must clear the physical extent of the text band hanging below the upper
// system plus the band hanging above the lower one, with pressure-weighted
// breathing room on top, so text rows from adjacent systems cannot collide.
// belowExtent and aboveExtent are those bands' full heights including their
// staff clearance; lanePressure is the adjoining bands' weighted lane count
// (compact dynamics lanes earn less breathing than text-heavy lanes). An
// explicit gap (explicit > 0) overrides both the minimum and the expansion.
func SystemGap(minGap, explicit, belowExtent, aboveExtent, lanePressure, laneGap float64) float64 {
	if explicit > 0 {
		return explicit
	}
	expansion := belowExtent + aboveExtent + lanePressure*laneGap
	if expansion > minGap {
		return expansion
	}
	return minGap
}

// BreakPages stacks system heights (with their leading gaps) into pages
// within the height budget. gaps[i] is the gap above system i inside a
// page; the first system of each page carries no gap. Returns per-page
// system index groups. A single system taller than the budget still gets
// its own page; the caller flags the overflow.
func BreakPages(heights, gaps []float64, budget float64) [][]int {
	if len(heights) == 0 {
		return nil
	}
	var pages [][]int
	var current []int
	used := 0.0
	for i, h := range heights {
		if len(current) > 0 && used+gaps[i]+h > budget {
			pages = append(pages, current)
			current = nil
		}
		if len(current) == 0 {
			used = h
		} else {
			used += gaps[i] + h
		}
		current = append(current, i)
	}
	return append(pages, current)
}

func width(cols []Column) float64 {
	total := 0.0
	for _, c := range cols {
		total += c.Width
	}
	return total
}
