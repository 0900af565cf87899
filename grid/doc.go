// Package grid describes the horizontal geometry of source and target grids.
//
// A source grid is the grid on which data is physically stored and
// addressable by (i, j) cell indices. A target grid is any set of output
// positions that has to be populated from a source grid. Both are described
// by the Grid interface; grids whose cells are the cartesian product of two
// independent 1D axes additionally implement Rectilinear, which lets the
// mapping layer resolve each axis once instead of every cell separately.
//
// Coordinate reference systems are parsed and transformed with
// github.com/ctessum/geom/proj; this package only decides whether two grids
// share a CRS and, if not, supplies the transform between them.
package grid
