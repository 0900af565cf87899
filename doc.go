// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package gridextract reads gridded variables onto arbitrary target
// grids and point lists with as little I/O as possible.
//
// A Dataset couples a data source with the grid its variables live on.
// Each read maps the target onto source cells (package mapping), picks a
// read strategy (package strategy) and fetches only the source cells the
// target needs:
//
//	ds, err := gridextract.Open(source.HDF5Opener("ocean.h5"), sourceGrid,
//	    gridextract.WithVerticalAxis(40),
//	    gridextract.WithStrategy(strategy.KindScanline),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	field, err := ds.ReadGrid("temp", 0, 0, targetGrid)
//
// The data source is opened immediately before each read and closed
// afterwards. Cells of the target outside the source grid hold the
// dataset's missing value; a target entirely outside yields an
// all-missing array without opening the source.
package gridextract

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'gridextract'.
func tracer() tracing.Trace {
	return tracing.Select("gridextract")
}
