// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package mapping computes which source-grid cells supply which positions
// of a target domain.
//
// A DomainMapper collects (source cell, target position) pairs in two
// parallel compact integer arrays, keeps a running bounding box of the
// source cells it has seen, and after a single sort offers grouped and
// scanline iteration over the pairs. Read strategies consume these views
// to decide how to batch range reads against a data source.
//
// Two concrete encodings exist:
//
//   - Domain2DMapper maps onto a target grid; target positions are GridCoord.
//   - Domain1DMapper maps onto a list of scattered positions; target
//     positions are list indices.
//
// Basic usage:
//
//	m, err := mapping.ForGrid(sourceGrid, targetGrid)
//	if err != nil {
//	    return err
//	}
//	it := m.Entries()
//	for it.Next() {
//	    e := it.Entry()
//	    // e.I, e.J is the source cell, e.Targets the positions it feeds
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
package mapping

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'gridextract.mapping'.
func tracer() tracing.Trace {
	return tracing.Select("gridextract.mapping")
}
