// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package gridextract

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/scigolib/gridextract/array"
	"github.com/scigolib/gridextract/cache"
	"github.com/scigolib/gridextract/grid"
	"github.com/scigolib/gridextract/internal/utils"
	"github.com/scigolib/gridextract/mapping"
	"github.com/scigolib/gridextract/source"
	"github.com/scigolib/gridextract/strategy"
)

// ErrDomainMismatch is returned when a request does not fit the
// dataset's axes. It is raised before the source is opened.
var ErrDomainMismatch = errors.New("domain mismatch")

// DefaultMapperCacheSize is the capacity of the mapper cache a dataset
// creates when none is supplied.
const DefaultMapperCacheSize = 16

// Dataset reads variables of one data source laid out on one grid.
//
// Variables are [T][Z][Y][X]; Y and X follow the grid, the sizes of T
// and Z are set with WithTimeAxis and WithVerticalAxis (default 1).
// A Dataset is safe for concurrent reads when its Opener hands out
// independent sources.
type Dataset struct {
	opener    source.Opener
	grid      grid.Grid
	nt        int
	nz        int
	variables []string

	kind     strategy.Kind
	selector *strategy.Selector
	metrics  *strategy.Metrics
	mappers  *cache.MapperCache
	missing  float64
}

// Open returns a dataset reading from opener on grid g.
//
// Nothing is opened yet; each read opens and closes its own source.
func Open(opener source.Opener, g grid.Grid, opts ...Option) (*Dataset, error) {
	if opener == nil {
		return nil, errors.New("gridextract: nil opener")
	}
	if g == nil {
		return nil, errors.New("gridextract: nil grid")
	}
	d := &Dataset{
		opener:  opener,
		grid:    g,
		nt:      1,
		nz:      1,
		kind:    strategy.KindScanline,
		missing: math.NaN(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.mappers == nil {
		c, err := cache.New(DefaultMapperCacheSize, cache.PolicyLRU)
		if err != nil {
			return nil, err
		}
		d.mappers = c
	}
	tracer().Debugf("dataset on %dx%d grid, nt=%d nz=%d, strategy %s", g.Width(), g.Height(), d.nt, d.nz, d.strategyName())
	return d, nil
}

// Grid returns the source grid.
func (d *Dataset) Grid() grid.Grid { return d.grid }

// MissingValue returns the value of unmapped output cells.
func (d *Dataset) MissingValue() float64 { return d.missing }

// Metrics returns the metrics collector, nil unless WithMetrics was given.
func (d *Dataset) Metrics() *strategy.Metrics { return d.metrics }

// MapperCache returns the dataset's mapper cache.
func (d *Dataset) MapperCache() *cache.MapperCache { return d.mappers }

func (d *Dataset) strategyName() string {
	if d.selector != nil {
		return "auto"
	}
	return d.kind.String()
}

// Mapper returns the sorted mapper from the dataset grid onto target,
// building and caching it on first use.
func (d *Dataset) Mapper(target grid.Grid) (*mapping.Domain2DMapper, error) {
	if target == nil {
		return nil, errors.New("gridextract: nil target grid")
	}
	return d.mappers.GetOrBuild(cache.Key(d.grid, target), func() (*mapping.Domain2DMapper, error) {
		return mapping.ForGrid(d.grid, target)
	})
}

// Strategy returns the read strategy used for m, with the selector's
// decision when automatic selection is on.
func (d *Dataset) Strategy(m *mapping.Domain2DMapper) (strategy.Strategy, *strategy.Decision, error) {
	kind := d.kind
	var decision *strategy.Decision
	if d.selector != nil {
		dec := d.selector.Select(m.Stats())
		if d.metrics != nil {
			d.metrics.RecordDecision(dec)
		}
		kind, decision = dec.Kind, &dec
	}
	s, err := strategy.New(kind)
	if err != nil {
		return nil, nil, err
	}
	return strategy.Instrument(s, d.metrics), decision, nil
}

func (d *Dataset) checkDomain(variable string, t, z int) error {
	if t < 0 || t >= d.nt {
		return fmt.Errorf("%w: time index %d outside [0, %d)", ErrDomainMismatch, t, d.nt)
	}
	if z < 0 || z >= d.nz {
		return fmt.Errorf("%w: vertical index %d outside [0, %d)", ErrDomainMismatch, z, d.nz)
	}
	if len(d.variables) > 0 && !slices.Contains(d.variables, variable) {
		return fmt.Errorf("%w: unknown variable %q", ErrDomainMismatch, variable)
	}
	return nil
}

// withSource opens the data source, runs read and closes the source.
// A close error is returned only if read succeeded.
func (d *Dataset) withSource(read func(src source.DataSource) error) (err error) {
	src, err := d.opener.Open()
	if err != nil {
		return utils.WrapError("opening data source", fmt.Errorf("%w: %w", source.ErrDataRead, err))
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = utils.WrapError("closing data source", cerr)
		}
	}()
	return read(src)
}

// ReadGrid reads variable at time index t and vertical index z onto
// target. Target cells outside the dataset grid hold the missing value.
func (d *Dataset) ReadGrid(variable string, t, z int, target grid.Grid) (*array.Array2D, error) {
	if err := d.checkDomain(variable, t, z); err != nil {
		return nil, err
	}
	m, err := d.Mapper(target)
	if err != nil {
		return nil, err
	}
	out := array.New2D(m.TargetWidth(), m.TargetHeight(), d.missing)
	if m.IsEmpty() {
		tracer().Debugf("read %q: target outside source grid", variable)
		return out, nil
	}

	s, decision, err := d.Strategy(m)
	if err != nil {
		return nil, err
	}
	if decision != nil {
		tracer().Infof("read %q: %s", variable, decision.Reason)
	}

	req := strategy.Request{Variable: variable, T: t, Z: z}
	err = d.withSource(func(src source.DataSource) error {
		return s.Read(m, src, req, out)
	})
	if err != nil {
		tracer().Errorf("read %q with %s: %v", variable, s.Kind(), err)
		return nil, err
	}
	return out, nil
}

// ReadPoints reads variable at time index t and vertical index z at
// every position of points. Positions outside the grid hold the missing
// value.
func (d *Dataset) ReadPoints(variable string, t, z int, points grid.PositionList) ([]float64, error) {
	if err := d.checkDomain(variable, t, z); err != nil {
		return nil, err
	}
	m, err := mapping.ForList(d.grid, points)
	if err != nil {
		return nil, err
	}
	out := d.filled(points.Len())
	if m.IsEmpty() {
		return out, nil
	}

	req := strategy.Request{Variable: variable, T: t, Z: z}
	err = d.withSource(func(src source.DataSource) error {
		return strategy.ReadPoints(m, src, req, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadProfile reads every vertical level of variable at time index t in
// the grid cell containing pos, given in the grid's CRS.
func (d *Dataset) ReadProfile(variable string, t int, pos grid.Position) ([]float64, error) {
	if err := d.checkDomain(variable, t, 0); err != nil {
		return nil, err
	}
	return d.readColumn(variable, pos, source.Point(t), source.Span(0, d.nz-1), func(b array.Block, k int) float64 {
		return b.Get(0, k, 0, 0)
	})
}

// ReadTimeseries reads every time step of variable at vertical index z
// in the grid cell containing pos, given in the grid's CRS.
func (d *Dataset) ReadTimeseries(variable string, z int, pos grid.Position) ([]float64, error) {
	if err := d.checkDomain(variable, 0, z); err != nil {
		return nil, err
	}
	return d.readColumn(variable, pos, source.Span(0, d.nt-1), source.Point(z), func(b array.Block, k int) float64 {
		return b.Get(k, 0, 0, 0)
	})
}

// readColumn issues a single range read along t or z through the cell
// containing pos. One of tr, zr is a single index.
func (d *Dataset) readColumn(variable string, pos grid.Position, tr, zr source.Range,
	at func(b array.Block, k int) float64) ([]float64, error) {
	out := d.filled(tr.Len() * zr.Len())
	i, j := d.grid.IndexOf(pos)
	if i < 0 || j < 0 {
		return out, nil
	}
	err := d.withSource(func(src source.DataSource) error {
		b, err := src.Read(variable, tr, zr, source.Point(j), source.Point(i))
		if err != nil {
			if !errors.Is(err, source.ErrDataRead) {
				err = fmt.Errorf("%w: %w", source.ErrDataRead, err)
			}
			return utils.WrapVariableError(fmt.Sprintf("column read at (%d, %d) of", i, j), variable, err)
		}
		for k := range out {
			out[k] = at(b, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dataset) filled(n int) []float64 {
	out := make([]float64, n)
	for k := range out {
		out[k] = d.missing
	}
	return out
}
