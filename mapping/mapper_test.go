package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/gridextract/internal/compact"
)

func identity(index int64) int { return int(index) }

func newTestMapper(t *testing.T, w, h, targets int) *DomainMapper[int] {
	t.Helper()
	m, err := NewDomainMapper(w, h, targets, identity)
	require.NoError(t, err)
	return m
}

func collect[T any](t *testing.T, m *DomainMapper[T]) []GroupedEntry[T] {
	t.Helper()
	var out []GroupedEntry[T]
	it := m.Entries()
	for it.Next() {
		out = append(out, it.Entry())
	}
	require.NoError(t, it.Err())
	return out
}

func TestNewDomainMapperWidths(t *testing.T) {
	tests := []struct {
		name        string
		w, h        int
		targets     int
		sourceWidth compact.Width
		targetWidth compact.Width
		chunk       int
	}{
		{"tiny", 4, 4, 5, compact.W8, compact.W8, 1},
		{"source needs 16 bits", 20, 20, 100, compact.W16, compact.W8, 10},
		{"target needs 32 bits", 10, 10, 100_000, compact.W8, compact.W32, 10_000},
		{"empty target", 2, 2, 0, compact.W8, compact.W8, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMapper(t, tt.w, tt.h, tt.targets)
			assert.Equal(t, tt.sourceWidth, m.source.Width())
			assert.Equal(t, tt.targetWidth, m.target.Width())
			assert.Equal(t, tt.chunk, m.source.ChunkSize())
			assert.True(t, m.IsEmpty())
		})
	}
}

func TestNewDomainMapperErrors(t *testing.T) {
	_, err := NewDomainMapper(10, 10, 1<<31, identity)
	require.ErrorIs(t, err, ErrTargetTooLarge)

	_, err = NewDomainMapper(0, 10, 5, identity)
	require.Error(t, err)

	_, err = NewDomainMapper(10, 10, -1, identity)
	require.Error(t, err)
}

func TestPutIgnoresNegativeIndices(t *testing.T) {
	m := newTestMapper(t, 10, 10, 10)

	require.NoError(t, m.Put(-1, 3, 0))
	require.NoError(t, m.Put(3, -1, 1))
	require.NoError(t, m.Put(-5, -5, 2))

	assert.True(t, m.IsEmpty())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, -1, m.MinI())
	assert.Equal(t, -1, m.MaxJ())
	assert.Equal(t, 0, m.BoundingBoxSize())
}

func TestPutZeroIndexIsValid(t *testing.T) {
	m := newTestMapper(t, 10, 10, 10)
	require.NoError(t, m.Put(0, 0, 0))

	assert.False(t, m.IsEmpty())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.BoundingBoxSize())
}

func TestPutOutOfRange(t *testing.T) {
	m := newTestMapper(t, 10, 5, 10)

	require.ErrorIs(t, m.Put(10, 0, 0), ErrIndexOutOfRange)
	require.ErrorIs(t, m.Put(0, 5, 0), ErrIndexOutOfRange)
	require.ErrorIs(t, m.Put(0, 0, 10), ErrIndexOutOfRange)
	require.ErrorIs(t, m.Put(0, 0, -2), ErrIndexOutOfRange)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, m.source.Len(), m.target.Len())
}

func TestBoundingBox(t *testing.T) {
	m := newTestMapper(t, 100, 100, 10)
	require.NoError(t, m.Put(10, 20, 0))
	require.NoError(t, m.Put(15, 22, 1))
	require.NoError(t, m.Put(12, 18, 2))

	assert.Equal(t, 10, m.MinI())
	assert.Equal(t, 15, m.MaxI())
	assert.Equal(t, 18, m.MinJ())
	assert.Equal(t, 22, m.MaxJ())
	assert.Equal(t, 6*5, m.BoundingBoxSize())
}

func TestSortIndicesOrder(t *testing.T) {
	m := newTestMapper(t, 10, 10, 20)

	// Raster-order targets resolving to source cells out of order,
	// with several targets per cell.
	puts := []struct{ i, j, target int }{
		{5, 2, 0}, {1, 0, 1}, {5, 2, 2}, {0, 0, 3}, {9, 9, 4},
		{1, 0, 5}, {5, 2, 6}, {0, 1, 7}, {0, 0, 8}, {9, 9, 9},
	}
	// Insert in reverse so targets arrive descending within each cell.
	for k := len(puts) - 1; k >= 0; k-- {
		p := puts[k]
		require.NoError(t, m.Put(p.i, p.j, int64(p.target)))
	}
	require.NoError(t, m.SortIndices())

	for k := 1; k < m.Len(); k++ {
		prevS, curS := m.source.At(k-1), m.source.At(k)
		require.LessOrEqual(t, prevS, curS)
		if prevS == curS {
			require.Less(t, m.target.At(k-1), m.target.At(k))
		}
	}

	entries := collect(t, m)
	require.Len(t, entries, 5)

	want := []GroupedEntry[int]{
		{I: 0, J: 0, SourceIndex: 0, Targets: []int{3, 8}},
		{I: 1, J: 0, SourceIndex: 1, Targets: []int{1, 5}},
		{I: 0, J: 1, SourceIndex: 10, Targets: []int{7}},
		{I: 5, J: 2, SourceIndex: 25, Targets: []int{0, 2, 6}},
		{I: 9, J: 9, SourceIndex: 99, Targets: []int{4, 9}},
	}
	assert.Equal(t, want, entries)
}

func TestSortIndicesOnce(t *testing.T) {
	m := newTestMapper(t, 4, 4, 4)
	require.NoError(t, m.Put(1, 1, 0))
	require.NoError(t, m.SortIndices())

	require.ErrorIs(t, m.SortIndices(), ErrAlreadySorted)
	require.ErrorIs(t, m.Put(2, 2, 1), ErrAlreadySorted)
	assert.Equal(t, 1, m.Len())
}

func TestUniquePairCountAcrossSort(t *testing.T) {
	m := newTestMapper(t, 10, 10, 8)
	for target, c := range [][2]int{{3, 3}, {0, 0}, {3, 3}, {7, 1}, {0, 0}, {3, 3}} {
		require.NoError(t, m.Put(c[0], c[1], int64(target)))
	}
	assert.Equal(t, 3, m.UniquePairCount())

	require.NoError(t, m.SortIndices())
	assert.Equal(t, 3, m.UniquePairCount())
	assert.Equal(t, m.Stats().UniquePairs, m.UniquePairCount())
	assert.Equal(t, 6, m.Len())
}

func TestIterateUnsorted(t *testing.T) {
	m := newTestMapper(t, 4, 4, 4)
	require.NoError(t, m.Put(1, 1, 0))

	it := m.Entries()
	assert.False(t, it.Next())
	require.ErrorIs(t, it.Err(), ErrNotSorted)

	sl := m.Scanlines()
	assert.False(t, sl.Next())
	require.ErrorIs(t, sl.Err(), ErrNotSorted)
}

func TestEntriesRestartable(t *testing.T) {
	m := newTestMapper(t, 4, 4, 4)
	require.NoError(t, m.Put(1, 1, 0))
	require.NoError(t, m.Put(2, 1, 1))
	require.NoError(t, m.SortIndices())

	first := collect(t, m)
	second := collect(t, m)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestScanlineGrouping(t *testing.T) {
	m := newTestMapper(t, 10, 10, 5)

	// Enumeration order resolves to rows 3, 3, 3, 5, 5.
	require.NoError(t, m.Put(7, 3, 0))
	require.NoError(t, m.Put(2, 3, 1))
	require.NoError(t, m.Put(5, 3, 2))
	require.NoError(t, m.Put(4, 5, 3))
	require.NoError(t, m.Put(1, 5, 4))
	require.NoError(t, m.SortIndices())

	var lines []Scanline[int]
	it := m.Scanlines()
	for it.Next() {
		lines = append(lines, it.Scanline())
	}
	require.NoError(t, it.Err())
	require.Len(t, lines, 2)

	assert.Equal(t, 3, lines[0].J)
	assert.Equal(t, 2, lines[0].MinI)
	assert.Equal(t, 7, lines[0].MaxI)
	assert.Equal(t, 6, lines[0].Width())
	require.Len(t, lines[0].Entries, 3)
	assert.Equal(t, []int{2, 5, 7}, []int{lines[0].Entries[0].I, lines[0].Entries[1].I, lines[0].Entries[2].I})
	assert.Equal(t, []int{1}, lines[0].Entries[0].Targets)

	assert.Equal(t, 5, lines[1].J)
	assert.Equal(t, 1, lines[1].MinI)
	assert.Equal(t, 4, lines[1].MaxI)
	require.Len(t, lines[1].Entries, 2)
	assert.Equal(t, 1, lines[1].Entries[0].I)
	assert.Equal(t, 4, lines[1].Entries[1].I)

	assert.Equal(t, 2, m.RowCount())
}

func TestStats(t *testing.T) {
	build := func(sorted bool) *DomainMapper[int] {
		m := newTestMapper(t, 10, 10, 8)
		require.NoError(t, m.Put(2, 1, 0))
		require.NoError(t, m.Put(2, 1, 1))
		require.NoError(t, m.Put(6, 1, 2))
		require.NoError(t, m.Put(3, 4, 3))
		require.NoError(t, m.Put(3, 4, 4))
		require.NoError(t, m.Put(4, 4, 5))
		if sorted {
			require.NoError(t, m.SortIndices())
		}
		return m
	}

	for _, sorted := range []bool{false, true} {
		s := build(sorted).Stats()
		assert.Equal(t, 6, s.Pairs)
		assert.Equal(t, 4, s.UniquePairs)
		assert.Equal(t, 2, s.Rows)
		assert.Equal(t, 5, s.MaxRowSpan)
		assert.Equal(t, 5+2, s.RowSpanCells)
		assert.Equal(t, 5*4, s.BoundingBoxSize)
		assert.Equal(t, 100, s.SourceCells)
		assert.Equal(t, 8, s.TargetSize)
		assert.Positive(t, s.CompactBytes)
	}
}

func TestStatsEmpty(t *testing.T) {
	m := newTestMapper(t, 3, 3, 3)
	require.NoError(t, m.SortIndices())

	s := m.Stats()
	assert.Zero(t, s.Pairs)
	assert.Zero(t, s.UniquePairs)
	assert.Zero(t, s.Rows)
	assert.Zero(t, s.BoundingBoxSize)

	it := m.Entries()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}
