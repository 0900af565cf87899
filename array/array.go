// Package array provides the numeric containers exchanged between data
// sources, read strategies and callers.
//
// Data sources return 4D blocks in (t, z, y, x) order whatever the physical
// layout of the underlying file. Read strategies scatter values from those
// blocks into a 2D output sized to the target grid.
package array

import (
	"errors"
	"fmt"
	"math"
)

// ErrReadOnly is returned by Set on views that compute their values on demand.
var ErrReadOnly = errors.New("array is read-only")

// Block is a 4D array indexed (t, z, y, x).
type Block interface {
	// Shape returns the extent of each axis in (t, z, y, x) order.
	Shape() [4]int
	// Get returns the value at the given position.
	Get(t, z, y, x int) float64
	// Set stores a value. Views that cannot be written return ErrReadOnly.
	Set(t, z, y, x int, v float64) error
}

// Array4D is a dense row-major 4D array; x varies fastest.
type Array4D struct {
	shape [4]int
	data  []float64
}

var _ Block = (*Array4D)(nil)

// New4D allocates a zeroed array.
func New4D(nt, nz, ny, nx int) *Array4D {
	return &Array4D{
		shape: [4]int{nt, nz, ny, nx},
		data:  make([]float64, nt*nz*ny*nx),
	}
}

// Wrap4D creates an array over existing row-major data without copying.
func Wrap4D(shape [4]int, data []float64) (*Array4D, error) {
	n := 1
	for i, s := range shape {
		if s <= 0 {
			return nil, fmt.Errorf("axis %d has non-positive extent %d", i, s)
		}
		n *= s
	}
	if len(data) != n {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d cells)", len(data), shape, n)
	}
	return &Array4D{shape: shape, data: data}, nil
}

// Shape returns the extent of each axis in (t, z, y, x) order.
func (a *Array4D) Shape() [4]int { return a.shape }

// Len returns the number of cells.
func (a *Array4D) Len() int { return len(a.data) }

// Data returns the backing slice.
func (a *Array4D) Data() []float64 { return a.data }

func (a *Array4D) offset(t, z, y, x int) int {
	return ((t*a.shape[1]+z)*a.shape[2]+y)*a.shape[3] + x
}

func (a *Array4D) inBounds(t, z, y, x int) bool {
	return t >= 0 && t < a.shape[0] &&
		z >= 0 && z < a.shape[1] &&
		y >= 0 && y < a.shape[2] &&
		x >= 0 && x < a.shape[3]
}

// Get returns the value at (t, z, y, x). It panics if the position is outside the array.
func (a *Array4D) Get(t, z, y, x int) float64 {
	if !a.inBounds(t, z, y, x) {
		panic(fmt.Sprintf("array: index (%d,%d,%d,%d) outside shape %v", t, z, y, x, a.shape))
	}
	return a.data[a.offset(t, z, y, x)]
}

// Set stores v at (t, z, y, x).
func (a *Array4D) Set(t, z, y, x int, v float64) error {
	if !a.inBounds(t, z, y, x) {
		return fmt.Errorf("array: index (%d,%d,%d,%d) outside shape %v", t, z, y, x, a.shape)
	}
	a.data[a.offset(t, z, y, x)] = v
	return nil
}

// Array2D is a (height, width) output array; x varies fastest.
// Cells that were never written hold the missing value.
type Array2D struct {
	width   int
	height  int
	missing float64
	data    []float64
}

// New2D allocates an array filled with the missing value.
func New2D(width, height int, missing float64) *Array2D {
	data := make([]float64, width*height)
	for i := range data {
		data[i] = missing
	}
	return &Array2D{
		width:   width,
		height:  height,
		missing: missing,
		data:    data,
	}
}

// Width returns the x extent.
func (a *Array2D) Width() int { return a.width }

// Height returns the y extent.
func (a *Array2D) Height() int { return a.height }

// Missing returns the value stored in unmapped cells.
func (a *Array2D) Missing() float64 { return a.missing }

// Data returns the backing slice in row-major order.
func (a *Array2D) Data() []float64 { return a.data }

// Get returns the value at (x, y).
func (a *Array2D) Get(x, y int) float64 {
	return a.data[y*a.width+x]
}

// Set stores v at (x, y).
func (a *Array2D) Set(x, y int, v float64) {
	a.data[y*a.width+x] = v
}

// IsMissing reports whether v is the missing value. A NaN missing value
// matches every NaN.
func (a *Array2D) IsMissing(v float64) bool {
	if math.IsNaN(a.missing) {
		return math.IsNaN(v)
	}
	return v == a.missing
}

// CountValid returns the number of cells holding a non-missing value.
func (a *Array2D) CountValid() int {
	n := 0
	for _, v := range a.data {
		if !a.IsMissing(v) {
			n++
		}
	}
	return n
}

// Identical reports whether both arrays have the same shape and bit-identical
// cell values.
func (a *Array2D) Identical(b *Array2D) bool {
	if a.width != b.width || a.height != b.height {
		return false
	}
	for i := range a.data {
		if math.Float64bits(a.data[i]) != math.Float64bits(b.data[i]) {
			return false
		}
	}
	return true
}
