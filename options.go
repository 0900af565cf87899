// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package gridextract

import (
	"fmt"

	"github.com/scigolib/gridextract/cache"
	"github.com/scigolib/gridextract/strategy"
)

// Option configures a Dataset during Open.
//
// Example:
//
//	ds, err := gridextract.Open(opener, g,
//	    gridextract.WithTimeAxis(24),
//	    gridextract.WithAutoStrategy(strategy.NewSelector(
//	        strategy.WithSourceCost(strategy.CostHigh),
//	    )),
//	)
type Option func(*Dataset) error

// WithStrategy fixes the read strategy for every grid read.
// Default: strategy.KindScanline.
func WithStrategy(kind strategy.Kind) Option {
	return func(d *Dataset) error {
		if _, err := strategy.New(kind); err != nil {
			return err
		}
		d.kind = kind
		d.selector = nil
		return nil
	}
}

// WithAutoStrategy picks the strategy per read from the mapper's shape.
// A nil selector uses strategy.NewSelector defaults.
func WithAutoStrategy(sel *strategy.Selector) Option {
	return func(d *Dataset) error {
		if sel == nil {
			sel = strategy.NewSelector()
		}
		d.selector = sel
		return nil
	}
}

// WithMapperCache shares c between datasets. Keys include the source
// grid, so datasets on different grids do not collide.
func WithMapperCache(c *cache.MapperCache) Option {
	return func(d *Dataset) error {
		if c == nil {
			return fmt.Errorf("gridextract: nil mapper cache")
		}
		d.mappers = c
		return nil
	}
}

// WithMissingValue sets the value of unmapped output cells. Default: NaN.
func WithMissingValue(v float64) Option {
	return func(d *Dataset) error {
		d.missing = v
		return nil
	}
}

// WithMetrics records every strategy run and selector decision in m.
func WithMetrics(m *strategy.Metrics) Option {
	return func(d *Dataset) error {
		d.metrics = m
		return nil
	}
}

// WithVerticalAxis sets the number of vertical levels.
func WithVerticalAxis(levels int) Option {
	return func(d *Dataset) error {
		if levels < 1 {
			return fmt.Errorf("gridextract: vertical axis needs at least one level, got %d", levels)
		}
		d.nz = levels
		return nil
	}
}

// WithTimeAxis sets the number of time steps.
func WithTimeAxis(steps int) Option {
	return func(d *Dataset) error {
		if steps < 1 {
			return fmt.Errorf("gridextract: time axis needs at least one step, got %d", steps)
		}
		d.nt = steps
		return nil
	}
}

// WithVariables restricts reads to the named variables. Requests for
// other names fail with ErrDomainMismatch before the source is opened.
func WithVariables(names ...string) Option {
	return func(d *Dataset) error {
		d.variables = append([]string(nil), names...)
		return nil
	}
}

// WithConfig applies a validated policy file. Options given after it
// override its settings.
func WithConfig(cfg *Config) Option {
	return func(d *Dataset) error {
		if cfg == nil {
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		for _, opt := range cfg.options() {
			if err := opt(d); err != nil {
				return err
			}
		}
		return nil
	}
}
