package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/gridextract/array"
	"github.com/scigolib/gridextract/grid"
	mocktesting "github.com/scigolib/gridextract/internal/testing"
	"github.com/scigolib/gridextract/mapping"
	"github.com/scigolib/gridextract/source"
)

const missing = -9999.0

func cellValue(t, z, y, x int) float64 {
	return float64(10000*t + 1000*z + 20*y + x)
}

type fixture struct {
	sourceGrid *grid.RectilinearGrid
	targetGrid *grid.RectilinearGrid
	mapper     *mapping.Domain2DMapper
	mem        *source.Memory
}

// newFixture maps a 20x10 unit grid onto a 2x upsampled window over
// source columns 3..10 and rows 2..7.
func newFixture(t *testing.T, targetBox grid.BBox) fixture {
	t.Helper()
	src, err := grid.NewRegular(grid.BBox{MinX: 0, MinY: 0, MaxX: 20, MaxY: 10}, 20, 10, nil)
	require.NoError(t, err)
	dst, err := grid.NewRegular(targetBox, 16, 12, nil)
	require.NoError(t, err)
	m, err := mapping.ForGrid(src, dst)
	require.NoError(t, err)

	mem := source.NewMemory()
	mem.AddFunc("temp", [4]int{2, 3, 10, 20}, cellValue)
	return fixture{sourceGrid: src, targetGrid: dst, mapper: m, mem: mem}
}

var window = grid.BBox{MinX: 3, MinY: 2, MaxX: 11, MaxY: 8}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"pixel", KindPixel, false},
		{"Pixel-By-Pixel", KindPixel, false},
		{"bbox", KindBoundingBox, false},
		{"bounding-box", KindBoundingBox, false},
		{" scanline ", KindScanline, false},
		{"tile", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Kind("tile"))
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestStrategiesAgree(t *testing.T) {
	f := newFixture(t, window)
	req := Request{Variable: "temp", T: 1, Z: 2}

	var reference *array.Array2D
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			s, err := New(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, s.Kind())

			out, err := Apply(s, f.mapper, f.mem, req, missing)
			require.NoError(t, err)
			require.Equal(t, 16, out.Width())
			require.Equal(t, 12, out.Height())
			assert.Equal(t, 16*12, out.CountValid())

			for y := 0; y < out.Height(); y++ {
				for x := 0; x < out.Width(); x++ {
					i, j := f.sourceGrid.IndexOf(f.targetGrid.Coordinate(x, y))
					require.GreaterOrEqual(t, i, 0)
					assert.Equal(t, cellValue(1, 2, j, i), out.Get(x, y), "target (%d, %d)", x, y)
				}
			}

			if reference == nil {
				reference = out
				return
			}
			assert.True(t, reference.Identical(out))
		})
	}
}

func TestStrategiesPartialOverlap(t *testing.T) {
	// Half of the target lies east of the source grid.
	f := newFixture(t, grid.BBox{MinX: 16, MinY: 2, MaxX: 24, MaxY: 8})
	req := Request{Variable: "temp"}

	var outs []*array.Array2D
	for _, kind := range Kinds {
		s, err := New(kind)
		require.NoError(t, err)
		out, err := Apply(s, f.mapper, f.mem, req, missing)
		require.NoError(t, err)
		assert.Equal(t, 8*12, out.CountValid(), kind)
		assert.True(t, out.IsMissing(out.Get(15, 0)), kind)
		outs = append(outs, out)
	}
	assert.True(t, outs[0].Identical(outs[1]))
	assert.True(t, outs[0].Identical(outs[2]))
}

func TestDisjointIssuesNoReads(t *testing.T) {
	f := newFixture(t, grid.BBox{MinX: 100, MinY: 100, MaxX: 108, MaxY: 106})
	require.True(t, f.mapper.IsEmpty())

	for _, kind := range Kinds {
		mock := mocktesting.NewMockSource(f.mem)
		s, err := New(kind)
		require.NoError(t, err)

		out, err := Apply(s, f.mapper, mock, Request{Variable: "temp"}, missing)
		require.NoError(t, err)
		assert.Equal(t, 0, out.CountValid(), kind)
		assert.Equal(t, 0, mock.ReadCount(), kind)

		// Calling Read directly on an empty mapper reads nothing either.
		require.NoError(t, s.Read(f.mapper, mock, Request{Variable: "temp"}, out))
		assert.Equal(t, 0, mock.ReadCount(), kind)
	}
}

func TestReadCounts(t *testing.T) {
	f := newFixture(t, window)
	st := f.mapper.Stats()
	require.Equal(t, 48, st.UniquePairs)
	require.Equal(t, 6, st.Rows)

	tests := []struct {
		kind      Kind
		wantReads int
		wantCells int
	}{
		{KindPixel, 48, 48},
		{KindBoundingBox, 1, 48},
		{KindScanline, 6, 48},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			mock := mocktesting.NewMockSource(f.mem)
			s, err := New(tt.kind)
			require.NoError(t, err)
			_, err = Apply(s, f.mapper, mock, Request{Variable: "temp"}, missing)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReads, mock.ReadCount())
			assert.Equal(t, tt.wantCells, mock.CellsRead())
		})
	}
}

func TestSparseBoundingBoxFetchesMore(t *testing.T) {
	// Two distant targets produce a bounding box much larger than the cells used.
	src, err := grid.NewRegular(grid.BBox{MinX: 0, MinY: 0, MaxX: 20, MaxY: 10}, 20, 10, nil)
	require.NoError(t, err)
	dstX, err := grid.NewIrregularAxis([]float64{0.5, 19.5})
	require.NoError(t, err)
	dstY, err := grid.NewIrregularAxis([]float64{0.5, 9.5})
	require.NoError(t, err)
	m, err := mapping.ForGrid(src, grid.NewRectilinear(dstX, dstY, nil))
	require.NoError(t, err)

	mem := source.NewMemory()
	mem.AddFunc("temp", [4]int{1, 1, 10, 20}, cellValue)

	cells := map[Kind]int{}
	var outs []*array.Array2D
	for _, kind := range Kinds {
		mock := mocktesting.NewMockSource(mem)
		s, err := New(kind)
		require.NoError(t, err)
		out, err := Apply(s, m, mock, Request{Variable: "temp"}, missing)
		require.NoError(t, err)
		cells[kind] = mock.CellsRead()
		outs = append(outs, out)
	}
	assert.Equal(t, 4, cells[KindPixel])
	assert.Equal(t, 200, cells[KindBoundingBox])
	assert.Equal(t, 40, cells[KindScanline])
	assert.True(t, outs[0].Identical(outs[1]))
	assert.True(t, outs[0].Identical(outs[2]))
	assert.Equal(t, cellValue(0, 0, 9, 19), outs[0].Get(1, 1))
}

func TestReadErrorPropagates(t *testing.T) {
	f := newFixture(t, window)
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			mock := mocktesting.NewMockSource(f.mem).FailAfter(0)
			s, err := New(kind)
			require.NoError(t, err)
			_, err = Apply(s, f.mapper, mock, Request{Variable: "temp"}, missing)
			require.Error(t, err)
			assert.ErrorIs(t, err, mocktesting.ErrInjected)
			assert.ErrorIs(t, err, source.ErrDataRead)
		})
	}
}

func TestUnknownVariable(t *testing.T) {
	f := newFixture(t, window)
	_, err := Apply(Scanline{}, f.mapper, f.mem, Request{Variable: "salt"}, missing)
	require.ErrorIs(t, err, source.ErrUnknownVariable)
	assert.ErrorIs(t, err, source.ErrDataRead)
}

func TestOutputShapeChecked(t *testing.T) {
	f := newFixture(t, window)
	out := array.New2D(3, 3, missing)
	for _, kind := range Kinds {
		s, err := New(kind)
		require.NoError(t, err)
		err = s.Read(f.mapper, f.mem, Request{Variable: "temp"}, out)
		assert.ErrorIs(t, err, ErrOutputShape, kind)
	}
}

func TestReadPoints(t *testing.T) {
	f := newFixture(t, window)
	points := grid.PositionList{Positions: []grid.Position{
		{X: 3.5, Y: 2.5},
		{X: 50, Y: 50},
		{X: 3.2, Y: 2.9},
		{X: 19.5, Y: 9.5},
	}}
	m, err := mapping.ForList(f.sourceGrid, points)
	require.NoError(t, err)

	mock := mocktesting.NewMockSource(f.mem)
	out := []float64{missing, missing, missing, missing}
	require.NoError(t, ReadPoints(m, mock, Request{Variable: "temp", T: 1}, out))

	assert.Equal(t, []float64{cellValue(1, 0, 2, 3), missing, cellValue(1, 0, 2, 3), cellValue(1, 0, 9, 19)}, out)
	assert.Equal(t, 2, mock.ReadCount())

	assert.ErrorIs(t, ReadPoints(m, mock, Request{Variable: "temp"}, out[:2]), ErrOutputShape)

	failing := mocktesting.NewMockSource(f.mem).FailAfter(1)
	err = ReadPoints(m, failing, Request{Variable: "temp"}, out)
	assert.ErrorIs(t, err, mocktesting.ErrInjected)
}
