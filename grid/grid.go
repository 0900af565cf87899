package grid

import "fmt"

// Grid is a finite 2D array of addressable cells.
type Grid interface {
	// Width returns the number of cells along x (i).
	Width() int
	// Height returns the number of cells along y (j).
	Height() int
	// Size returns Width()*Height().
	Size() int
	// CRS returns the coordinate reference system of the cell coordinates;
	// nil means unspecified.
	CRS() *CRS
	// IndexOf returns the cell containing p (given in this grid's CRS),
	// or (-1, -1) if p is outside the grid.
	IndexOf(p Position) (i, j int)
	// Coordinate returns the centre of cell (i, j).
	Coordinate(i, j int) Position
}

// Rectilinear is a grid whose cells are the cartesian product of two
// independent axes: x depends only on i, y only on j.
type Rectilinear interface {
	Grid
	XAxis() Axis
	YAxis() Axis
}

// Keyer is implemented by grids that can identify themselves for caching.
type Keyer interface {
	Key() string
}

// Key returns a string identifying g's geometry. Grids that do not
// implement Keyer are identified by pointer, so only the same instance
// shares a key.
func Key(g Grid) string {
	if k, ok := g.(Keyer); ok {
		return k.Key()
	}
	return fmt.Sprintf("%T@%p", g, g)
}

// SameCRS reports whether both grids use an equal CRS.
func SameCRS(a, b Grid) bool {
	return a.CRS().Equal(b.CRS())
}

// IsSeparable reports whether both grids are rectilinear and share a CRS,
// in which case target cells can be resolved one axis at a time.
func IsSeparable(source, target Grid) bool {
	_, srcOK := source.(Rectilinear)
	_, dstOK := target.(Rectilinear)
	return srcOK && dstOK && SameCRS(source, target)
}

// RectilinearGrid is a Grid built from an x and a y axis.
type RectilinearGrid struct {
	x   Axis
	y   Axis
	crs *CRS
}

var _ Rectilinear = (*RectilinearGrid)(nil)

// NewRectilinear creates a grid from two axes.
func NewRectilinear(x, y Axis, crs *CRS) *RectilinearGrid {
	return &RectilinearGrid{x: x, y: y, crs: crs}
}

// NewRegular creates a grid of width x height equal cells covering box.
func NewRegular(box BBox, width, height int, crs *CRS) (*RectilinearGrid, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	dx := (box.MaxX - box.MinX) / float64(width)
	dy := (box.MaxY - box.MinY) / float64(height)
	x, err := NewRegularAxis(box.MinX+dx/2, dx, width)
	if err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	y, err := NewRegularAxis(box.MinY+dy/2, dy, height)
	if err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}
	return NewRectilinear(x, y, crs), nil
}

// Width returns the x axis size.
func (g *RectilinearGrid) Width() int { return g.x.Size() }

// Height returns the y axis size.
func (g *RectilinearGrid) Height() int { return g.y.Size() }

// Size returns the number of cells.
func (g *RectilinearGrid) Size() int { return g.x.Size() * g.y.Size() }

// CRS returns the grid CRS.
func (g *RectilinearGrid) CRS() *CRS { return g.crs }

// XAxis returns the x axis.
func (g *RectilinearGrid) XAxis() Axis { return g.x }

// YAxis returns the y axis.
func (g *RectilinearGrid) YAxis() Axis { return g.y }

// IndexOf returns the cell containing p, or (-1, -1).
func (g *RectilinearGrid) IndexOf(p Position) (int, int) {
	i := g.x.IndexOf(p.X)
	j := g.y.IndexOf(p.Y)
	if i < 0 || j < 0 {
		return -1, -1
	}
	return i, j
}

// Coordinate returns the centre of cell (i, j).
func (g *RectilinearGrid) Coordinate(i, j int) Position {
	return Position{X: g.x.Coordinate(i), Y: g.y.Coordinate(j)}
}

// BBox returns the area covered by the grid.
func (g *RectilinearGrid) BBox() BBox {
	ex, ey := g.x.Extent(), g.y.Extent()
	return BBox{MinX: ex.Min, MinY: ey.Min, MaxX: ex.Max, MaxY: ey.Max}
}

// Key identifies the grid geometry.
func (g *RectilinearGrid) Key() string {
	return fmt.Sprintf("rect[%s;%s;%s]", g.x.Key(), g.y.Key(), g.crs)
}
