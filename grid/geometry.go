package grid

import (
	"fmt"
	"math"
	"time"
)

// Position is a horizontal coordinate pair in some CRS.
type Position struct {
	X float64
	Y float64
}

// String returns "(x, y)".
func (p Position) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// PositionList is an ordered set of scattered target positions, such as
// station locations or the vertices of a transect.
type PositionList struct {
	// CRS of the positions; nil means the CRS of the source grid.
	CRS       *CRS
	Positions []Position
}

// Len returns the number of positions.
func (l PositionList) Len() int { return len(l.Positions) }

// BBox is a horizontal axis-aligned box; bounds are inclusive.
type BBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Contains reports whether p lies inside or on the edge of b.
func (b BBox) Contains(p Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Intersects reports whether two boxes share at least one point.
func (b BBox) Intersects(o BBox) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// BBoxOf returns the smallest box containing every position.
// ok is false for an empty slice.
func BBoxOf(ps []Position) (b BBox, ok bool) {
	if len(ps) == 0 {
		return b, false
	}
	b = BBox{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range ps {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b, true
}

// Extent is a closed numeric interval, used for vertical ranges.
type Extent struct {
	Min float64
	Max float64
}

// Intersects reports whether two closed intervals overlap.
func (e Extent) Intersects(o Extent) bool {
	return e.Min <= o.Max && o.Min <= e.Max
}

// Contains reports whether v lies in the interval.
func (e Extent) Contains(v float64) bool {
	return v >= e.Min && v <= e.Max
}

// TimeExtent is a closed time interval.
type TimeExtent struct {
	Start time.Time
	End   time.Time
}

// Intersects reports whether two closed time intervals overlap.
func (e TimeExtent) Intersects(o TimeExtent) bool {
	return !e.Start.After(o.End) && !o.Start.After(e.End)
}
