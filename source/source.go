// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package source provides 4D random-access data sources.
//
// A DataSource serves rectangular blocks of a variable addressed by
// inclusive (t, z, y, x) index ranges. The returned block always has the
// shape of the requested ranges in (t, z, y, x) order, whatever the storage
// order of the backend.
//
// Backends:
//
//   - Memory: variables held in memory, also used as a test fixture.
//   - HDF5: datasets of an HDF5 file.
//   - ChunkStore: chunked arrays with per-variable JSON metadata in a Store.
//   - Derived: variables computed per cell from other variables.
package source

import (
	"errors"
	"fmt"

	"github.com/npillmayer/schuko/tracing"

	"github.com/scigolib/gridextract/array"
	"github.com/scigolib/gridextract/internal/utils"
)

// tracer writes to trace with key 'gridextract.source'.
func tracer() tracing.Trace {
	return tracing.Select("gridextract.source")
}

// Errors reported by data sources. Every read failure wraps ErrDataRead.
var (
	ErrDataRead        = errors.New("data read failed")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrOutOfBounds     = errors.New("range out of bounds")
	ErrClosed          = errors.New("data source closed")
)

// Range is an inclusive index range.
type Range struct {
	Min int
	Max int
}

// Point returns the range covering only i.
func Point(i int) Range { return Range{Min: i, Max: i} }

// Span returns the range [lo, hi].
func Span(lo, hi int) Range { return Range{Min: lo, Max: hi} }

// Len returns the number of indices covered.
func (r Range) Len() int { return r.Max - r.Min + 1 }

// String returns "min..max".
func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Min, r.Max) }

// DataSource reads blocks of 4D variables.
type DataSource interface {
	// Read returns the block of variable covering the given inclusive
	// ranges. The block shape is {t.Len(), z.Len(), y.Len(), x.Len()}.
	Read(variable string, t, z, y, x Range) (array.Block, error)
	// Close releases the underlying resources.
	Close() error
}

// Opener opens a DataSource. Callers open right before reading and close
// when done.
type Opener interface {
	Open() (DataSource, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func() (DataSource, error)

// Open calls f.
func (f OpenerFunc) Open() (DataSource, error) { return f() }

// readError wraps cause as a read failure of variable.
func readError(variable string, cause error) error {
	return utils.WrapVariableError("reading", variable, fmt.Errorf("%w: %w", ErrDataRead, cause))
}

// checkRanges validates ranges against a variable shape and returns the
// block shape they describe.
func checkRanges(shape [4]int, t, z, y, x Range) ([4]int, error) {
	rs := [4]Range{t, z, y, x}
	var out [4]int
	for d, r := range rs {
		if r.Min < 0 || r.Max < r.Min || r.Max >= shape[d] {
			return out, fmt.Errorf("%w: %s range %s, size %d", ErrOutOfBounds, axisNames[d], r, shape[d])
		}
		out[d] = r.Len()
	}
	if _, err := utils.CellCount(out[:]...); err != nil {
		return out, err
	}
	return out, nil
}

var axisNames = [4]string{"t", "z", "y", "x"}

// shape4D lifts a 2D, 3D or 4D storage shape onto (t, z, y, x):
// [Y X] becomes [1 1 Y X], [T Y X] becomes [T 1 Y X].
func shape4D(dims []int) ([4]int, error) {
	switch len(dims) {
	case 2:
		return [4]int{1, 1, dims[0], dims[1]}, nil
	case 3:
		return [4]int{dims[0], 1, dims[1], dims[2]}, nil
	case 4:
		return [4]int{dims[0], dims[1], dims[2], dims[3]}, nil
	default:
		return [4]int{}, fmt.Errorf("%w: %d dimensions, want 2 to 4", ErrShapeMismatch, len(dims))
	}
}

// storageRanges drops the axes a 2D or 3D variable does not store.
func storageRanges(ndims int, t, z, y, x Range) []Range {
	switch ndims {
	case 2:
		return []Range{y, x}
	case 3:
		return []Range{t, y, x}
	default:
		return []Range{t, z, y, x}
	}
}
