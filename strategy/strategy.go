// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package strategy reads the source cells named by a mapper into a 2D
// output array.
//
// Three strategies trade the number of range reads against the memory
// held per read:
//
//   - pixel: one single-cell read per referenced source cell.
//   - bbox: one read of the mapper's bounding box.
//   - scanline: one read per referenced source row, spanning the cells
//     used in that row.
//
// All three fill identical outputs for the same mapper and source. A
// Selector picks one from the mapper's shape and the cost of a read.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/scigolib/gridextract/array"
	"github.com/scigolib/gridextract/internal/utils"
	"github.com/scigolib/gridextract/mapping"
	"github.com/scigolib/gridextract/source"
)

// tracer writes to trace with key 'gridextract.strategy'.
func tracer() tracing.Trace {
	return tracing.Select("gridextract.strategy")
}

// Kind names a read strategy.
type Kind string

// Strategy kinds.
const (
	KindPixel       Kind = "pixel"
	KindBoundingBox Kind = "bbox"
	KindScanline    Kind = "scanline"
)

// Kinds lists every strategy kind.
var Kinds = []Kind{KindPixel, KindBoundingBox, KindScanline}

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Errors returned by this package.
var (
	ErrUnknownKind   = errors.New("unknown strategy")
	ErrOutputShape   = errors.New("output does not match target grid")
	ErrScatterBounds = errors.New("target position outside output")
)

// ParseKind parses a strategy name, case-insensitively. "bounding-box"
// and "boundingbox" are accepted for bbox, "pixel-by-pixel" for pixel.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pixel", "pixel-by-pixel":
		return KindPixel, nil
	case "bbox", "bounding-box", "boundingbox":
		return KindBoundingBox, nil
	case "scanline":
		return KindScanline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Request selects the variable and the fixed time and vertical indices of a read.
type Request struct {
	Variable string
	T        int
	Z        int
}

// Strategy fills out from src for every entry of m.
//
// Cells of out without a source cell are left untouched. On error the
// content of out is unspecified and should be discarded.
type Strategy interface {
	Kind() Kind
	Read(m *mapping.Domain2DMapper, src source.DataSource, req Request, out *array.Array2D) error
}

// New returns the strategy of the given kind.
func New(kind Kind) (Strategy, error) {
	switch kind {
	case KindPixel:
		return Pixel{}, nil
	case KindBoundingBox:
		return BoundingBox{}, nil
	case KindScanline:
		return Scanline{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Apply allocates an output filled with missing and runs s.
// An empty mapper yields the all-missing output without reading.
func Apply(s Strategy, m *mapping.Domain2DMapper, src source.DataSource, req Request, missing float64) (*array.Array2D, error) {
	out := array.New2D(m.TargetWidth(), m.TargetHeight(), missing)
	if m.IsEmpty() {
		tracer().Debugf("%s: empty mapping, no reads", s.Kind())
		return out, nil
	}
	if err := s.Read(m, src, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkOutput(m *mapping.Domain2DMapper, out *array.Array2D) error {
	if out.Width() != m.TargetWidth() || out.Height() != m.TargetHeight() {
		return fmt.Errorf("%w: output %dx%d, target %dx%d",
			ErrOutputShape, out.Width(), out.Height(), m.TargetWidth(), m.TargetHeight())
	}
	return nil
}

// scatter writes v to every target of e.
func scatter(out *array.Array2D, e mapping.GroupedEntry[mapping.GridCoord], v float64) error {
	for _, c := range e.Targets {
		if c.X < 0 || c.X >= out.Width() || c.Y < 0 || c.Y >= out.Height() {
			return fmt.Errorf("%w: (%d, %d) from source cell (%d, %d)", ErrScatterBounds, c.X, c.Y, e.I, e.J)
		}
		out.Set(c.X, c.Y, v)
	}
	return nil
}

// readFailure wraps a source error so that it always matches source.ErrDataRead.
func readFailure(kind Kind, req Request, err error) error {
	if !errors.Is(err, source.ErrDataRead) {
		err = fmt.Errorf("%w: %w", source.ErrDataRead, err)
	}
	return utils.WrapError(fmt.Sprintf("%s read of %q (t=%d, z=%d)", kind, req.Variable, req.T, req.Z), err)
}

// Pixel issues one single-cell read per referenced source cell.
type Pixel struct{}

// Kind returns KindPixel.
func (Pixel) Kind() Kind { return KindPixel }

// Read implements Strategy.
func (p Pixel) Read(m *mapping.Domain2DMapper, src source.DataSource, req Request, out *array.Array2D) error {
	if err := checkOutput(m, out); err != nil {
		return err
	}
	t, z := source.Point(req.T), source.Point(req.Z)

	it := m.Entries()
	for it.Next() {
		e := it.Entry()
		b, err := src.Read(req.Variable, t, z, source.Point(e.J), source.Point(e.I))
		if err != nil {
			return readFailure(p.Kind(), req, err)
		}
		if err := scatter(out, e, b.Get(0, 0, 0, 0)); err != nil {
			return err
		}
	}
	return it.Err()
}

// BoundingBox issues one read covering every referenced source cell.
type BoundingBox struct{}

// Kind returns KindBoundingBox.
func (BoundingBox) Kind() Kind { return KindBoundingBox }

// Read implements Strategy.
func (bb BoundingBox) Read(m *mapping.Domain2DMapper, src source.DataSource, req Request, out *array.Array2D) error {
	if err := checkOutput(m, out); err != nil {
		return err
	}
	if m.IsEmpty() {
		return nil
	}
	minI, minJ := m.MinI(), m.MinJ()
	if _, err := utils.CellCount(m.MaxI()-minI+1, m.MaxJ()-minJ+1); err != nil {
		return utils.WrapError("bounding box", err)
	}

	b, err := src.Read(req.Variable, source.Point(req.T), source.Point(req.Z),
		source.Span(minJ, m.MaxJ()), source.Span(minI, m.MaxI()))
	if err != nil {
		return readFailure(bb.Kind(), req, err)
	}

	it := m.Entries()
	for it.Next() {
		e := it.Entry()
		if err := scatter(out, e, b.Get(0, 0, e.J-minJ, e.I-minI)); err != nil {
			return err
		}
	}
	return it.Err()
}

// Scanline issues one read per referenced source row.
type Scanline struct{}

// Kind returns KindScanline.
func (Scanline) Kind() Kind { return KindScanline }

// Read implements Strategy.
func (s Scanline) Read(m *mapping.Domain2DMapper, src source.DataSource, req Request, out *array.Array2D) error {
	if err := checkOutput(m, out); err != nil {
		return err
	}
	t, z := source.Point(req.T), source.Point(req.Z)

	it := m.Scanlines()
	for it.Next() {
		line := it.Scanline()
		b, err := src.Read(req.Variable, t, z, source.Point(line.J), source.Span(line.MinI, line.MaxI))
		if err != nil {
			return readFailure(s.Kind(), req, err)
		}
		for _, e := range line.Entries {
			if err := scatter(out, e, b.Get(0, 0, 0, e.I-line.MinI)); err != nil {
				return err
			}
		}
	}
	return it.Err()
}
