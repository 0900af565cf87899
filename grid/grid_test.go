package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegularGrid(t *testing.T) {
	g, err := NewRegular(BBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}, 360, 180, nil)
	require.NoError(t, err)

	assert.Equal(t, 360, g.Width())
	assert.Equal(t, 180, g.Height())
	assert.Equal(t, 64800, g.Size())

	for _, ij := range [][2]int{{0, 0}, {359, 179}, {12, 100}} {
		p := g.Coordinate(ij[0], ij[1])
		i, j := g.IndexOf(p)
		assert.Equal(t, ij[0], i)
		assert.Equal(t, ij[1], j)
	}

	i, j := g.IndexOf(Position{X: 181, Y: 0})
	assert.Equal(t, -1, i)
	assert.Equal(t, -1, j)

	i, j = g.IndexOf(Position{X: 0, Y: -95})
	assert.Equal(t, -1, i)
	assert.Equal(t, -1, j)

	box := g.BBox()
	assert.InDelta(t, -180, box.MinX, 1e-9)
	assert.InDelta(t, 90, box.MaxY, 1e-9)

	_, err = NewRegular(BBox{MaxX: 1, MaxY: 1}, 0, 1, nil)
	require.Error(t, err)
}

func TestSeparability(t *testing.T) {
	a, _ := NewRegular(BBox{MaxX: 10, MaxY: 10}, 10, 10, nil)
	b, _ := NewRegular(BBox{MaxX: 5, MaxY: 5}, 20, 20, nil)
	c, err := NewCurvilinear(2, 2, []float64{0, 1, 0, 1}, []float64{0, 0, 1, 1}, nil)
	require.NoError(t, err)

	assert.True(t, IsSeparable(a, b))
	assert.False(t, IsSeparable(a, c))
	assert.False(t, IsSeparable(c, a))

	ll := NewRectilinear(b.XAxis(), b.YAxis(), LonLat())
	assert.False(t, IsSeparable(a, ll), "unspecified and specified CRS differ")
}

func TestGridKey(t *testing.T) {
	a, _ := NewRegular(BBox{MaxX: 10, MaxY: 10}, 10, 10, nil)
	b, _ := NewRegular(BBox{MaxX: 10, MaxY: 10}, 10, 10, nil)
	c, _ := NewRegular(BBox{MaxX: 10, MaxY: 10}, 10, 11, nil)

	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(c))
}

func TestBBoxAndExtents(t *testing.T) {
	b, ok := BBoxOf([]Position{{1, 5}, {-2, 3}, {4, -1}})
	require.True(t, ok)
	assert.Equal(t, BBox{MinX: -2, MinY: -1, MaxX: 4, MaxY: 5}, b)
	assert.True(t, b.Contains(Position{X: 4, Y: 5}))
	assert.False(t, b.Contains(Position{X: 4.1, Y: 5}))
	assert.True(t, b.Intersects(BBox{MinX: 4, MinY: 5, MaxX: 6, MaxY: 6}))
	assert.False(t, b.Intersects(BBox{MinX: 4.5, MinY: 0, MaxX: 6, MaxY: 1}))

	_, ok = BBoxOf(nil)
	assert.False(t, ok)

	assert.True(t, Extent{Min: 0, Max: 10}.Intersects(Extent{Min: 10, Max: 20}))
	assert.False(t, Extent{Min: 0, Max: 10}.Intersects(Extent{Min: 10.5, Max: 20}))
}

func TestCurvilinearGrid(t *testing.T) {
	// A 4x3 grid rotated by 30 degrees.
	const w, h = 4, 3
	rot := math.Pi / 6
	xs := make([]float64, w*h)
	ys := make([]float64, w*h)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			x, y := float64(i), float64(j)
			xs[j*w+i] = x*math.Cos(rot) - y*math.Sin(rot)
			ys[j*w+i] = x*math.Sin(rot) + y*math.Cos(rot)
		}
	}

	g, err := NewCurvilinear(w, h, xs, ys, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, g.Size())

	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			gi, gj := g.IndexOf(g.Coordinate(i, j))
			assert.Equal(t, i, gi, "cell (%d,%d)", i, j)
			assert.Equal(t, j, gj, "cell (%d,%d)", i, j)
		}
	}

	// Slightly off-centre points stay in their cell.
	p := g.Coordinate(2, 1)
	gi, gj := g.IndexOf(Position{X: p.X + 0.1, Y: p.Y + 0.1})
	assert.Equal(t, 2, gi)
	assert.Equal(t, 1, gj)

	gi, gj = g.IndexOf(Position{X: 100, Y: 100})
	assert.Equal(t, -1, gi)
	assert.Equal(t, -1, gj)
}

func TestCurvilinearValidation(t *testing.T) {
	_, err := NewCurvilinear(1, 2, []float64{0, 0}, []float64{0, 1}, nil)
	require.Error(t, err)
	_, err = NewCurvilinear(2, 2, []float64{0, 0, 1}, []float64{0, 1, 0, 1}, nil)
	require.Error(t, err)
}

func TestCRS(t *testing.T) {
	ll := LonLat()
	ll2, err := ParseCRS(LonLatDef)
	require.NoError(t, err)
	assert.True(t, ll.Equal(ll2))

	var unspecified *CRS
	assert.True(t, unspecified.Equal(nil))
	assert.False(t, unspecified.Equal(ll))
	assert.False(t, ll.Equal(nil))

	tr, err := ll.TransformTo(ll2)
	require.NoError(t, err)
	p, err := tr(Position{X: 12, Y: 34})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 12, Y: 34}, p)

	merc, err := ParseCRS("+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs")
	require.NoError(t, err)
	assert.False(t, ll.Equal(merc))

	tr, err = ll.TransformTo(merc)
	require.NoError(t, err)
	p, err = tr(Position{X: 0, Y: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, p.X, 1e-6)
	assert.InDelta(t, 0, p.Y, 1e-6)
}
