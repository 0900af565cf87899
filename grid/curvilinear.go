package grid

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// CurvilinearGrid is a grid whose cell centres are given as two 2D
// coordinate arrays, as produced by rotated-pole or ocean-model meshes.
//
// Each cell's footprint is the quadrilateral through the corners shared
// with its neighbours. Footprints are held in an R-tree, so IndexOf costs
// one tree query plus a point-in-quadrilateral test per candidate.
type CurvilinearGrid struct {
	width  int
	height int
	xs     []float64
	ys     []float64
	crs    *CRS
	tree   *rtree.Rtree
	key    string
}

var _ Grid = (*CurvilinearGrid)(nil)

// curvCell is one footprint stored in the R-tree.
type curvCell struct {
	geom.Polygon
	i, j   int
	corner [4]Position
}

// NewCurvilinear creates a grid from row-major centre coordinates:
// the centre of cell (i, j) is (xs[j*width+i], ys[j*width+i]).
// Both dimensions must be at least 2.
func NewCurvilinear(width, height int, xs, ys []float64, crs *CRS) (*CurvilinearGrid, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("curvilinear grid needs at least 2x2 cells, got %dx%d", width, height)
	}
	if len(xs) != width*height || len(ys) != width*height {
		return nil, fmt.Errorf("coordinate arrays have %d and %d values, want %d", len(xs), len(ys), width*height)
	}

	g := &CurvilinearGrid{
		width:  width,
		height: height,
		xs:     append([]float64(nil), xs...),
		ys:     append([]float64(nil), ys...),
		crs:    crs,
		tree:   rtree.NewTree(25, 50),
	}

	h := fnv.New64a()
	for k := range g.xs {
		_, _ = fmt.Fprintf(h, "%g,%g;", g.xs[k], g.ys[k])
	}
	g.key = fmt.Sprintf("curv[%dx%d;%x;%s]", width, height, h.Sum64(), crs)

	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			g.tree.Insert(g.footprint(i, j))
		}
	}
	return g, nil
}

func (g *CurvilinearGrid) centre(i, j int) Position {
	k := j*g.width + i
	return Position{X: g.xs[k], Y: g.ys[k]}
}

// padded returns cell centres extended linearly one cell beyond each edge.
func (g *CurvilinearGrid) padded(i, j int) Position {
	switch {
	case j < 0:
		a, b := g.padded(i, 0), g.padded(i, 1)
		return Position{X: 2*a.X - b.X, Y: 2*a.Y - b.Y}
	case j >= g.height:
		a, b := g.padded(i, g.height-1), g.padded(i, g.height-2)
		return Position{X: 2*a.X - b.X, Y: 2*a.Y - b.Y}
	case i < 0:
		a, b := g.centre(0, j), g.centre(1, j)
		return Position{X: 2*a.X - b.X, Y: 2*a.Y - b.Y}
	case i >= g.width:
		a, b := g.centre(g.width-1, j), g.centre(g.width-2, j)
		return Position{X: 2*a.X - b.X, Y: 2*a.Y - b.Y}
	default:
		return g.centre(i, j)
	}
}

// corner returns the corner shared by cells (ci-1..ci, cj-1..cj).
func (g *CurvilinearGrid) corner(ci, cj int) Position {
	a := g.padded(ci-1, cj-1)
	b := g.padded(ci, cj-1)
	c := g.padded(ci-1, cj)
	d := g.padded(ci, cj)
	return Position{X: (a.X + b.X + c.X + d.X) / 4, Y: (a.Y + b.Y + c.Y + d.Y) / 4}
}

func (g *CurvilinearGrid) footprint(i, j int) *curvCell {
	c := &curvCell{i: i, j: j}
	c.corner = [4]Position{g.corner(i, j), g.corner(i+1, j), g.corner(i+1, j+1), g.corner(i, j+1)}
	path := make(geom.Path, 0, 5)
	for _, p := range c.corner {
		path = append(path, geom.Point{X: p.X, Y: p.Y})
	}
	path = append(path, path[0])
	c.Polygon = geom.Polygon{path}
	return c
}

// contains is a crossing-number test against the cell quadrilateral.
// Points on the left or bottom edges count as inside.
func (c *curvCell) contains(p Position) bool {
	inside := false
	for k := 0; k < 4; k++ {
		a, b := c.corner[k], c.corner[(k+1)%4]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Width returns the number of cells along i.
func (g *CurvilinearGrid) Width() int { return g.width }

// Height returns the number of cells along j.
func (g *CurvilinearGrid) Height() int { return g.height }

// Size returns the number of cells.
func (g *CurvilinearGrid) Size() int { return g.width * g.height }

// CRS returns the grid CRS.
func (g *CurvilinearGrid) CRS() *CRS { return g.crs }

// Coordinate returns the centre of cell (i, j).
func (g *CurvilinearGrid) Coordinate(i, j int) Position { return g.centre(i, j) }

// Key identifies the grid geometry.
func (g *CurvilinearGrid) Key() string { return g.key }

// IndexOf returns the cell whose footprint contains p, or (-1, -1).
// When footprints overlap (strongly distorted meshes) the cell with the
// nearest centre wins, then the lowest flat index.
func (g *CurvilinearGrid) IndexOf(p Position) (int, int) {
	pt := geom.Point{X: p.X, Y: p.Y}
	bestI, bestJ := -1, -1
	bestDist := math.Inf(1)
	for _, s := range g.tree.SearchIntersect(&geom.Bounds{Min: pt, Max: pt}) {
		c, ok := s.(*curvCell)
		if !ok || !c.contains(p) {
			continue
		}
		ctr := g.centre(c.i, c.j)
		d := math.Hypot(ctr.X-p.X, ctr.Y-p.Y)
		if d < bestDist || d == bestDist && c.j*g.width+c.i < bestJ*g.width+bestI {
			bestI, bestJ, bestDist = c.i, c.j, d
		}
	}
	return bestI, bestJ
}
