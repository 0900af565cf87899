package strategy

import (
	"fmt"

	"github.com/scigolib/gridextract/mapping"
	"github.com/scigolib/gridextract/source"
)

// ReadPoints fills out[k] for every list position k mapped by m, issuing
// one single-cell read per referenced source cell. Unmapped positions
// are left untouched.
func ReadPoints(m *mapping.Domain1DMapper, src source.DataSource, req Request, out []float64) error {
	if len(out) != m.TargetSize() {
		return fmt.Errorf("%w: output holds %d points, target has %d", ErrOutputShape, len(out), m.TargetSize())
	}
	t, z := source.Point(req.T), source.Point(req.Z)

	it := m.Entries()
	for it.Next() {
		e := it.Entry()
		b, err := src.Read(req.Variable, t, z, source.Point(e.J), source.Point(e.I))
		if err != nil {
			return readFailure(KindPixel, req, err)
		}
		v := b.Get(0, 0, 0, 0)
		for _, k := range e.Targets {
			if k < 0 || k >= len(out) {
				return fmt.Errorf("%w: point %d from source cell (%d, %d)", ErrScatterBounds, k, e.I, e.J)
			}
			out[k] = v
		}
	}
	return it.Err()
}
