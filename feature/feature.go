// Package feature pre-filters discrete features (stations, profiles,
// trajectories) by their 4D extent before any feature data is read.
//
// Two indexers answer the same queries: Naive scans every feature, RTree
// bulk-loads the features into a 4D rectangle tree and checks only the
// candidates the tree returns. Both return identical, sorted results.
package feature

import (
	"slices"
	"time"

	"github.com/npillmayer/schuko/tracing"

	"github.com/scigolib/gridextract/grid"
)

// tracer writes to trace with key 'gridextract.feature'.
func tracer() tracing.Trace {
	return tracing.Select("gridextract.feature")
}

// Bounds is the immutable extent of one feature.
type Bounds struct {
	ID string

	// Positions are the horizontal locations the feature was recorded at.
	// A single position for a station, many for a trajectory.
	Positions []grid.Position

	// Z is the vertical extent, nil if the feature has none.
	Z *grid.Extent

	// T is the time extent, nil if the feature has none.
	T *grid.TimeExtent

	Variables []string
}

// Query constrains a search. A nil field leaves that dimension
// unconstrained; an empty Variables slice means any variable.
type Query struct {
	BBox      *grid.BBox
	Z         *grid.Extent
	T         *grid.TimeExtent
	Variables []string
}

// Indexer finds features by extent.
type Indexer interface {
	// FindFeatureIDs returns the sorted ids of every feature matching q.
	FindFeatureIDs(q Query) []string
	// AllFeatureIDs returns every indexed id, sorted.
	AllFeatureIDs() []string
}

// Matches reports whether b satisfies every constraint of q.
//
// A feature without a vertical or time extent never satisfies a
// constraint in that dimension. The horizontal test passes if any
// position lies in the box, edges included.
func (q Query) Matches(b Bounds) bool {
	if q.BBox != nil && !slices.ContainsFunc(b.Positions, q.BBox.Contains) {
		return false
	}
	if q.Z != nil && (b.Z == nil || !b.Z.Intersects(*q.Z)) {
		return false
	}
	if q.T != nil && (b.T == nil || !b.T.Intersects(*q.T)) {
		return false
	}
	if len(q.Variables) > 0 && !slices.ContainsFunc(b.Variables, func(v string) bool {
		return slices.Contains(q.Variables, v)
	}) {
		return false
	}
	return true
}

// TimeQuery is a convenience constructor for a time-only constraint.
func TimeQuery(start, end time.Time) Query {
	return Query{T: &grid.TimeExtent{Start: start, End: end}}
}

func sortedIDs(bounds []Bounds) []string {
	ids := make([]string, len(bounds))
	for i, b := range bounds {
		ids[i] = b.ID
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Naive answers queries by a linear scan.
type Naive struct {
	bounds []Bounds
	ids    []string
}

var _ Indexer = (*Naive)(nil)

// NewNaive indexes bounds. The slice is copied.
func NewNaive(bounds []Bounds) *Naive {
	b := slices.Clone(bounds)
	return &Naive{bounds: b, ids: sortedIDs(b)}
}

// FindFeatureIDs implements Indexer.
func (n *Naive) FindFeatureIDs(q Query) []string {
	var ids []string
	for _, b := range n.bounds {
		if q.Matches(b) {
			ids = append(ids, b.ID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// AllFeatureIDs implements Indexer.
func (n *Naive) AllFeatureIDs() []string { return slices.Clone(n.ids) }

// Len returns the number of indexed features.
func (n *Naive) Len() int { return len(n.bounds) }
