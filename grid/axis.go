package grid

import (
	"fmt"
	"hash/fnv"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Axis is a 1D coordinate axis of cell centres.
//
// Cell i covers the half-open interval between the midpoints to its
// neighbours; the first and last cells extend half a spacing beyond their
// centres. Axes may be ascending or descending.
type Axis interface {
	// Size returns the number of cells.
	Size() int
	// Coordinate returns the centre of cell i.
	Coordinate(i int) float64
	// IndexOf returns the cell containing v, or -1 if v is outside the axis.
	IndexOf(v float64) int
	// Extent returns the covered interval, min <= max.
	Extent() Extent
	// Key identifies the axis for cache lookups.
	Key() string
}

// RegularAxis has equally spaced cells. Index lookup is O(1).
type RegularAxis struct {
	start   float64
	spacing float64
	n       int
}

// NewRegularAxis creates an axis of n cells centred at start, start+spacing, ...
// A negative spacing gives a descending axis.
func NewRegularAxis(start, spacing float64, n int) (*RegularAxis, error) {
	if n < 1 {
		return nil, fmt.Errorf("axis needs at least one cell, got %d", n)
	}
	if spacing == 0 || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return nil, fmt.Errorf("invalid axis spacing %g", spacing)
	}
	return &RegularAxis{start: start, spacing: spacing, n: n}, nil
}

// Size returns the number of cells.
func (a *RegularAxis) Size() int { return a.n }

// Spacing returns the signed distance between neighbouring centres.
func (a *RegularAxis) Spacing() float64 { return a.spacing }

// Coordinate returns the centre of cell i.
func (a *RegularAxis) Coordinate(i int) float64 {
	return a.start + float64(i)*a.spacing
}

// IndexOf returns the cell containing v, or -1.
func (a *RegularAxis) IndexOf(v float64) int {
	f := (v-a.start)/a.spacing + 0.5
	if math.IsNaN(f) || f < 0 || f >= float64(a.n) {
		return -1
	}
	return int(f)
}

// Extent returns the covered interval.
func (a *RegularAxis) Extent() Extent {
	lo := a.start - a.spacing/2
	hi := a.start + (float64(a.n)-0.5)*a.spacing
	return Extent{Min: math.Min(lo, hi), Max: math.Max(lo, hi)}
}

// Key identifies the axis.
func (a *RegularAxis) Key() string {
	return fmt.Sprintf("reg(%g,%g,%d)", a.start, a.spacing, a.n)
}

// IrregularAxis has arbitrary strictly monotonic cell centres.
// Index lookup is a binary search over the cell edges.
type IrregularAxis struct {
	values     []float64
	edges      []float64 // ascending, len(values)+1
	descending bool
	key        string
}

// NewIrregularAxis creates an axis from at least two strictly monotonic centres.
func NewIrregularAxis(values []float64) (*IrregularAxis, error) {
	n := len(values)
	if n < 2 {
		return nil, fmt.Errorf("irregular axis needs at least two values, got %d", n)
	}
	if floats.HasNaN(values) {
		return nil, fmt.Errorf("irregular axis contains NaN")
	}

	descending := values[1] < values[0]
	for i := 1; i < n; i++ {
		if descending && values[i] >= values[i-1] || !descending && values[i] <= values[i-1] {
			return nil, fmt.Errorf("axis values not strictly monotonic at index %d", i)
		}
	}

	asc := make([]float64, n)
	copy(asc, values)
	if descending {
		floats.Reverse(asc)
	}

	edges := make([]float64, n+1)
	edges[0] = asc[0] - (asc[1]-asc[0])/2
	for i := 1; i < n; i++ {
		edges[i] = (asc[i-1] + asc[i]) / 2
	}
	edges[n] = asc[n-1] + (asc[n-1]-asc[n-2])/2

	h := fnv.New64a()
	for _, v := range values {
		_, _ = fmt.Fprintf(h, "%g,", v)
	}

	vals := make([]float64, n)
	copy(vals, values)
	return &IrregularAxis{
		values:     vals,
		edges:      edges,
		descending: descending,
		key:        fmt.Sprintf("irr(%d,%x)", n, h.Sum64()),
	}, nil
}

// Size returns the number of cells.
func (a *IrregularAxis) Size() int { return len(a.values) }

// Coordinate returns the centre of cell i.
func (a *IrregularAxis) Coordinate(i int) float64 { return a.values[i] }

// IndexOf returns the cell containing v, or -1.
func (a *IrregularAxis) IndexOf(v float64) int {
	k := floats.Within(a.edges, v)
	if k < 0 {
		return -1
	}
	if a.descending {
		return len(a.values) - 1 - k
	}
	return k
}

// Extent returns the covered interval.
func (a *IrregularAxis) Extent() Extent {
	return Extent{Min: a.edges[0], Max: a.edges[len(a.edges)-1]}
}

// Key identifies the axis.
func (a *IrregularAxis) Key() string { return a.key }
