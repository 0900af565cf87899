package array

import "fmt"

// CombineFunc computes one derived cell from the co-located input values,
// passed in the order the inputs were given to NewLazy.
type CombineFunc func(values ...float64) float64

// Lazy is a read-only Block whose cells are computed on Get from other
// blocks of identical shape.
//
// It backs variables that do not exist in a file but are derived from ones
// that do, such as wind speed from its u and v components.
type Lazy struct {
	shape   [4]int
	inputs  []Block
	combine CombineFunc
}

var _ Block = (*Lazy)(nil)

// NewLazy creates a view over inputs. All inputs must share one shape.
func NewLazy(combine CombineFunc, inputs ...Block) (*Lazy, error) {
	if combine == nil {
		return nil, fmt.Errorf("lazy view needs a combine function")
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("lazy view needs at least one input")
	}
	shape := inputs[0].Shape()
	for i, in := range inputs[1:] {
		if in.Shape() != shape {
			return nil, fmt.Errorf("input %d has shape %v, want %v", i+1, in.Shape(), shape)
		}
	}
	return &Lazy{shape: shape, inputs: inputs, combine: combine}, nil
}

// Shape returns the shared input shape.
func (l *Lazy) Shape() [4]int { return l.shape }

// Get combines the input values at (t, z, y, x).
func (l *Lazy) Get(t, z, y, x int) float64 {
	vals := make([]float64, len(l.inputs))
	for i, in := range l.inputs {
		vals[i] = in.Get(t, z, y, x)
	}
	return l.combine(vals...)
}

// Set always fails with ErrReadOnly.
func (l *Lazy) Set(t, z, y, x int, _ float64) error {
	return fmt.Errorf("set (%d,%d,%d,%d) on derived view: %w", t, z, y, x, ErrReadOnly)
}
