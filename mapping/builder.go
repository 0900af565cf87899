package mapping

import (
	"fmt"
	"math"

	"github.com/scigolib/gridextract/grid"
)

// GridCoord is a cell position (column X, row Y) in a target grid.
type GridCoord struct {
	X, Y int
}

// Domain2DMapper maps source cells onto the cells of a target grid.
type Domain2DMapper struct {
	*DomainMapper[GridCoord]
	targetWidth  int
	targetHeight int
}

// TargetWidth returns the number of target columns.
func (m *Domain2DMapper) TargetWidth() int { return m.targetWidth }

// TargetHeight returns the number of target rows.
func (m *Domain2DMapper) TargetHeight() int { return m.targetHeight }

// NewDomain2DMapper creates an empty mapper from source onto target.
// Most callers want ForGrid instead.
func NewDomain2DMapper(source, target grid.Grid) (*Domain2DMapper, error) {
	tw, th := target.Width(), target.Height()
	size := int64(tw) * int64(th)
	if size > math.MaxInt32 {
		return nil, fmt.Errorf("%w: target grid %dx%d", ErrTargetTooLarge, tw, th)
	}
	dm, err := NewDomainMapper(source.Width(), source.Height(), int(size), func(index int64) GridCoord {
		return GridCoord{X: int(index % int64(tw)), Y: int(index / int64(tw))}
	})
	if err != nil {
		return nil, err
	}
	return &Domain2DMapper{DomainMapper: dm, targetWidth: tw, targetHeight: th}, nil
}

// ForGrid builds and sorts the mapping from source onto every cell of target.
//
// When both grids are rectilinear and share a CRS, source indices are
// resolved once per target column and once per target row. Otherwise each
// target cell centre is transformed into the source CRS and looked up
// individually; cells whose transform fails have no source cell.
func ForGrid(source, target grid.Grid) (*Domain2DMapper, error) {
	m, err := NewDomain2DMapper(source, target)
	if err != nil {
		return nil, err
	}

	if grid.IsSeparable(source, target) {
		err = m.fillSeparable(source.(grid.Rectilinear), target.(grid.Rectilinear))
	} else {
		err = m.fillGeneral(source, target)
	}
	if err != nil {
		return nil, err
	}

	if err := m.SortIndices(); err != nil {
		return nil, err
	}
	tracer().Infof("mapped %dx%d target onto %dx%d source: %d pairs, bbox %d cells",
		m.targetWidth, m.targetHeight, source.Width(), source.Height(), m.Len(), m.BoundingBoxSize())
	return m, nil
}

func (m *Domain2DMapper) fillSeparable(source, target grid.Rectilinear) error {
	sx, sy := source.XAxis(), source.YAxis()
	tx, ty := target.XAxis(), target.YAxis()

	xIndex := make([]int, m.targetWidth)
	for col := range xIndex {
		xIndex[col] = sx.IndexOf(tx.Coordinate(col))
	}

	for row := 0; row < m.targetHeight; row++ {
		j := sy.IndexOf(ty.Coordinate(row))
		if j < 0 {
			continue
		}
		base := int64(row) * int64(m.targetWidth)
		for col, i := range xIndex {
			if err := m.Put(i, j, base+int64(col)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Domain2DMapper) fillGeneral(source, target grid.Grid) error {
	transform, err := target.CRS().TransformTo(source.CRS())
	if err != nil {
		return fmt.Errorf("mapping target onto source: %w", err)
	}

	failed := 0
	for row := 0; row < m.targetHeight; row++ {
		base := int64(row) * int64(m.targetWidth)
		for col := 0; col < m.targetWidth; col++ {
			p, err := transform(target.Coordinate(col, row))
			if err != nil {
				failed++
				continue
			}
			i, j := source.IndexOf(p)
			if err := m.Put(i, j, base+int64(col)); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		tracer().Debugf("%d target cells could not be transformed into the source CRS", failed)
	}
	return nil
}

// Domain1DMapper maps source cells onto positions of a list. Target
// positions are indices into the list.
type Domain1DMapper struct {
	*DomainMapper[int]
}

// ForList builds and sorts the mapping from source onto each position of
// targets. Positions outside the source grid have no source cell.
func ForList(source grid.Grid, targets grid.PositionList) (*Domain1DMapper, error) {
	dm, err := NewDomainMapper(source.Width(), source.Height(), targets.Len(), func(index int64) int {
		return int(index)
	})
	if err != nil {
		return nil, err
	}
	m := &Domain1DMapper{DomainMapper: dm}

	var transform grid.Transform = grid.Identity
	if targets.CRS != nil {
		transform, err = targets.CRS.TransformTo(source.CRS())
		if err != nil {
			return nil, fmt.Errorf("mapping positions onto source: %w", err)
		}
	}

	for k, pos := range targets.Positions {
		p, err := transform(pos)
		if err != nil {
			continue
		}
		i, j := source.IndexOf(p)
		if err := m.Put(i, j, int64(k)); err != nil {
			return nil, err
		}
	}

	if err := m.SortIndices(); err != nil {
		return nil, err
	}
	tracer().Debugf("mapped %d positions: %d found in source", targets.Len(), m.Len())
	return m, nil
}
