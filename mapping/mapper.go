package mapping

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/scigolib/gridextract/internal/compact"
)

// Errors returned by DomainMapper.
var (
	// ErrTargetTooLarge is returned when a target domain does not fit in a
	// signed 32-bit index.
	ErrTargetTooLarge = errors.New("target domain too large")
	// ErrIndexOutOfRange is returned by Put for coordinates beyond the
	// source grid or the target domain.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrAlreadySorted is returned when the mapper is modified or sorted
	// after SortIndices.
	ErrAlreadySorted = errors.New("mapper already sorted")
	// ErrNotSorted is reported by iterators over an unsorted mapper.
	ErrNotSorted = errors.New("mapper not sorted")
)

// DomainMapper accumulates pairs of (source cell, target position).
//
// Source cells are stored as flat indices j*sourceWidth+i, target positions
// as flat integers that T decodes. Both are held in compact arrays sized
// for the source grid and the target domain respectively.
//
// Lifecycle: Put for every target position, SortIndices exactly once, then
// any number of read-only iterations. A mapper is immutable after sorting
// and safe to share between goroutines from then on.
type DomainMapper[T any] struct {
	sourceWidth  int
	sourceHeight int
	targetSize   int

	source *compact.Array
	target *compact.Array

	minI, maxI int
	minJ, maxJ int

	sorted  bool
	unique  int // distinct source cells, fixed by SortIndices
	convert func(int64) T
}

// NewDomainMapper creates an empty mapper for a source grid of
// sourceWidth x sourceHeight cells and a target domain of targetSize
// positions. convert decodes a flat target index into T.
func NewDomainMapper[T any](sourceWidth, sourceHeight, targetSize int, convert func(int64) T) (*DomainMapper[T], error) {
	if sourceWidth < 1 || sourceHeight < 1 {
		return nil, fmt.Errorf("source grid must have positive size, got %dx%d", sourceWidth, sourceHeight)
	}
	if targetSize < 0 {
		return nil, fmt.Errorf("negative target domain size %d", targetSize)
	}
	if targetSize > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d positions exceed %d", ErrTargetTooLarge, targetSize, math.MaxInt32)
	}

	chunk := max(targetSize/10, 1)

	sourceCells := uint64(sourceWidth) * uint64(sourceHeight)
	m := &DomainMapper[T]{
		sourceWidth:  sourceWidth,
		sourceHeight: sourceHeight,
		targetSize:   targetSize,
		source:       compact.New(sourceCells-1, chunk),
		target:       compact.New(uint64(max(targetSize-1, 0)), chunk),
		minI:         -1,
		maxI:         -1,
		minJ:         -1,
		maxJ:         -1,
		convert:      convert,
	}
	tracer().Debugf("new mapper: source %dx%d (%s), target %d (%s), chunk %d",
		sourceWidth, sourceHeight, m.source.Width(), targetSize, m.target.Width(), chunk)
	return m, nil
}

// Put records that source cell (i, j) supplies target position target.
// A negative i or j means the position has no source cell and is ignored.
func (m *DomainMapper[T]) Put(i, j int, target int64) error {
	if i < 0 || j < 0 {
		return nil
	}
	if m.sorted {
		return ErrAlreadySorted
	}
	if i >= m.sourceWidth || j >= m.sourceHeight {
		return fmt.Errorf("%w: source cell (%d, %d) outside %dx%d", ErrIndexOutOfRange, i, j, m.sourceWidth, m.sourceHeight)
	}
	if target < 0 || target >= int64(m.targetSize) {
		return fmt.Errorf("%w: target %d outside [0, %d)", ErrIndexOutOfRange, target, m.targetSize)
	}

	// Both values are validated, so neither append can fail half way.
	if err := m.source.Append(int64(j)*int64(m.sourceWidth) + int64(i)); err != nil {
		return err
	}
	if err := m.target.Append(target); err != nil {
		return err
	}

	if m.minI < 0 {
		m.minI, m.maxI, m.minJ, m.maxJ = i, i, j, j
		return nil
	}
	m.minI = min(m.minI, i)
	m.maxI = max(m.maxI, i)
	m.minJ = min(m.minJ, j)
	m.maxJ = max(m.maxJ, j)
	return nil
}

// SortIndices orders the pairs by source index, then by target index.
// It must be called exactly once, after the last Put.
func (m *DomainMapper[T]) SortIndices() error {
	if m.sorted {
		return ErrAlreadySorted
	}

	n := m.source.Len()
	perm := make([]int, n)
	for k := range perm {
		perm[k] = k
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		if sa, sb := m.source.At(a), m.source.At(b); sa != sb {
			if sa < sb {
				return -1
			}
			return 1
		}
		ta, tb := m.target.At(a), m.target.At(b)
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	})
	m.source.Permute(perm)
	m.target.Permute(perm)
	m.sorted = true
	m.unique = m.scan().UniquePairs

	tracer().Debugf("sorted %d pairs", n)
	return nil
}

// Sorted reports whether SortIndices has run.
func (m *DomainMapper[T]) Sorted() bool { return m.sorted }

// IsEmpty reports whether no pair was ever recorded, which happens when
// the target domain and the source grid do not intersect.
func (m *DomainMapper[T]) IsEmpty() bool { return m.source.Len() == 0 }

// Len returns the number of recorded pairs.
func (m *DomainMapper[T]) Len() int { return m.source.Len() }

// SourceWidth returns the number of source cells along i.
func (m *DomainMapper[T]) SourceWidth() int { return m.sourceWidth }

// SourceHeight returns the number of source cells along j.
func (m *DomainMapper[T]) SourceHeight() int { return m.sourceHeight }

// TargetSize returns the size of the target domain.
func (m *DomainMapper[T]) TargetSize() int { return m.targetSize }

// MinI returns the smallest source i recorded, or -1 when empty.
func (m *DomainMapper[T]) MinI() int { return m.minI }

// MaxI returns the largest source i recorded, or -1 when empty.
func (m *DomainMapper[T]) MaxI() int { return m.maxI }

// MinJ returns the smallest source j recorded, or -1 when empty.
func (m *DomainMapper[T]) MinJ() int { return m.minJ }

// MaxJ returns the largest source j recorded, or -1 when empty.
func (m *DomainMapper[T]) MaxJ() int { return m.maxJ }

// BoundingBoxSize returns the number of source cells in the bounding box
// of all recorded cells, i.e. what a single rectangular read would fetch.
func (m *DomainMapper[T]) BoundingBoxSize() int {
	if m.IsEmpty() {
		return 0
	}
	return (m.maxI - m.minI + 1) * (m.maxJ - m.minJ + 1)
}

// ConvertIndex decodes a flat target index.
func (m *DomainMapper[T]) ConvertIndex(index int64) T { return m.convert(index) }

// UniquePairCount returns the number of distinct source cells referenced.
// Sorted mappers answer from the count taken by SortIndices; unsorted ones
// scan every pair.
func (m *DomainMapper[T]) UniquePairCount() int {
	if m.sorted {
		return m.unique
	}
	return m.scan().UniquePairs
}

// RowCount returns the number of distinct source rows referenced.
func (m *DomainMapper[T]) RowCount() int {
	return m.scan().Rows
}

// Stats is a snapshot of a mapper's shape, used to choose a read strategy.
type Stats struct {
	Pairs           int // recorded (source, target) pairs
	UniquePairs     int // distinct source cells
	Rows            int // distinct source rows
	MaxRowSpan      int // widest row segment, maxI-minI+1 within one row
	RowSpanCells    int // sum of row segment widths, cells a scanline read fetches
	BoundingBoxSize int // cells a bounding-box read fetches
	SourceCells     int
	TargetSize      int
	CompactBytes    int // memory held by both compact arrays
}

// Stats scans the mapper and returns its shape.
func (m *DomainMapper[T]) Stats() Stats {
	s := m.scan()
	s.Pairs = m.Len()
	s.BoundingBoxSize = m.BoundingBoxSize()
	s.SourceCells = m.sourceWidth * m.sourceHeight
	s.TargetSize = m.targetSize
	s.CompactBytes = m.source.SizeBytes() + m.target.SizeBytes()
	return s
}

type rowSpan struct{ lo, hi int }

// scan counts distinct cells and rows. Sorted mappers are scanned in one
// linear pass; unsorted ones fall back to sets.
func (m *DomainMapper[T]) scan() Stats {
	var s Stats
	n := m.source.Len()
	if n == 0 {
		return s
	}

	w := int64(m.sourceWidth)
	if !m.sorted {
		cells := make(map[int64]struct{})
		rows := make(map[int64]rowSpan)
		for k := 0; k < n; k++ {
			src := m.source.At(k)
			cells[src] = struct{}{}
			j, i := src/w, int(src%w)
			r, ok := rows[j]
			if !ok {
				r = rowSpan{lo: i, hi: i}
			}
			r.lo, r.hi = min(r.lo, i), max(r.hi, i)
			rows[j] = r
		}
		s.UniquePairs = len(cells)
		s.Rows = len(rows)
		for _, r := range rows {
			s.MaxRowSpan = max(s.MaxRowSpan, r.hi-r.lo+1)
			s.RowSpanCells += r.hi - r.lo + 1
		}
		return s
	}

	prev := int64(-1)
	row := int64(-1)
	var span rowSpan
	closeRow := func() {
		if row >= 0 {
			s.MaxRowSpan = max(s.MaxRowSpan, span.hi-span.lo+1)
			s.RowSpanCells += span.hi - span.lo + 1
		}
	}
	for k := 0; k < n; k++ {
		src := m.source.At(k)
		if src == prev {
			continue
		}
		prev = src
		s.UniquePairs++
		j, i := src/w, int(src%w)
		if j != row {
			closeRow()
			row = j
			span = rowSpan{lo: i, hi: i}
			s.Rows++
			continue
		}
		span.hi = i
	}
	closeRow()
	return s
}
