// Package geom provides the rectangle and interval primitives shared by the
// layout components. Coordinates are in abstract layout units with the
// y-axis growing downward from the page top.
package geom

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned rectangle anchored at its top-left corner.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x-coordinate of the right edge.
func (b Box) Right() float64 { return b.X + b.W }

// Bottom returns the y-coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.H }

// CenterX returns the horizontal center point of the box.
func (b Box) CenterX() float64 { return b.X + b.W/2 }

// CenterY returns the vertical center point of the box.
func (b Box) CenterY() float64 { return b.Y + b.H/2 }

// Translate returns the box shifted by (dx, dy).
func (b Box) Translate(dx, dy float64) Box {
	return Box{X: b.X + dx, Y: b.Y + dy, W: b.W, H: b.H}
}

// Intersects reports whether two boxes share any area. Touching edges do
// not count as intersection.
func (b Box) Intersects(o Box) bool {
	return b.X < o.Right() && o.X < b.Right() && b.Y < o.Bottom() && o.Y < b.Bottom()
}

// OverlapX returns the horizontal overlap amount, or 0 when disjoint.
func (b Box) OverlapX(o Box) float64 {
	left := max(b.X, o.X)
	right := min(b.Right(), o.Right())
	if right <= left {
		return 0
	}
	return right - left
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	x := min(b.X, o.X)
	y := min(b.Y, o.Y)
	return Box{
		X: x,
		Y: y,
		W: max(b.Right(), o.Right()) - x,
		H: max(b.Bottom(), o.Bottom()) - y,
	}
}

// Contains reports whether the box fully contains o.
func (b Box) Contains(o Box) bool {
	return o.X >= b.X && o.Right() <= b.Right() && o.Y >= b.Y && o.Bottom() <= b.Bottom()
}

// Interval is a half-open horizontal span [Start, End).
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Width returns the span of the interval.
func (i Interval) Width() float64 { return i.End - i.Start }

// Overlaps reports whether the intervals overlap once both are expanded by
// pad on each side.
func (i Interval) Overlaps(o Interval, pad float64) bool {
	return i.Start-pad < o.End && o.Start-pad < i.End
}
