package feature

import (
	"math"
	"slices"
	"time"

	"github.com/dhconnelly/rtreego"
)

// Tree fan-out.
const (
	minChildren = 4
	maxChildren = 16
)

// unbounded stands in for a missing extent in the tree.
const unbounded = 1e300

// RTree answers queries from a bulk-loaded 4D rectangle tree over
// (x, y, z, t). The tree is built once; adding features means building
// a new index.
type RTree struct {
	tree *rtreego.Rtree
	ids  []string
}

var _ Indexer = (*RTree)(nil)

type item struct {
	rect   rtreego.Rect
	bounds Bounds
}

func (it *item) Bounds() rtreego.Rect { return it.rect }

// NewRTree bulk-loads bounds into a tree.
func NewRTree(bounds []Bounds) *RTree {
	objs := make([]rtreego.Spatial, 0, len(bounds))
	for _, b := range bounds {
		objs = append(objs, &item{rect: featureRect(b), bounds: b})
	}
	tree := rtreego.NewTree(4, minChildren, maxChildren, objs...)
	tracer().Debugf("rtree: bulk-loaded %d features, depth %d", tree.Size(), tree.Depth())
	return &RTree{tree: tree, ids: sortedIDs(bounds)}
}

// FindFeatureIDs implements Indexer.
func (r *RTree) FindFeatureIDs(q Query) []string {
	var ids []string
	for _, s := range r.tree.SearchIntersect(queryRect(q)) {
		b := s.(*item).bounds
		if q.Matches(b) {
			ids = append(ids, b.ID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// AllFeatureIDs implements Indexer.
func (r *RTree) AllFeatureIDs() []string { return slices.Clone(r.ids) }

// Len returns the number of indexed features.
func (r *RTree) Len() int { return r.tree.Size() }

type interval struct{ lo, hi float64 }

var everything = interval{-unbounded, unbounded}

func featureRect(b Bounds) rtreego.Rect {
	var dims [4]interval
	dims[0], dims[1] = everything, everything
	if len(b.Positions) > 0 {
		dims[0] = interval{math.Inf(1), math.Inf(-1)}
		dims[1] = dims[0]
		for _, p := range b.Positions {
			dims[0] = interval{math.Min(dims[0].lo, p.X), math.Max(dims[0].hi, p.X)}
			dims[1] = interval{math.Min(dims[1].lo, p.Y), math.Max(dims[1].hi, p.Y)}
		}
	}
	dims[2], dims[3] = everything, everything
	if b.Z != nil {
		dims[2] = interval{b.Z.Min, b.Z.Max}
	}
	if b.T != nil {
		dims[3] = interval{seconds(b.T.Start), seconds(b.T.End)}
	}
	return rect(dims)
}

func queryRect(q Query) rtreego.Rect {
	dims := [4]interval{everything, everything, everything, everything}
	if q.BBox != nil {
		dims[0] = interval{q.BBox.MinX, q.BBox.MaxX}
		dims[1] = interval{q.BBox.MinY, q.BBox.MaxY}
	}
	if q.Z != nil {
		dims[2] = interval{q.Z.Min, q.Z.Max}
	}
	if q.T != nil {
		dims[3] = interval{seconds(q.T.Start), seconds(q.T.End)}
	}
	return rect(dims)
}

// rect widens every interval by a small margin on both sides. The tree
// rejects zero-length sides and treats touching rectangles as disjoint;
// candidates are checked exactly afterwards.
func rect(dims [4]interval) rtreego.Rect {
	origin := make(rtreego.Point, 4)
	lengths := make([]float64, 4)
	for i, d := range dims {
		lo, hi := d.lo, d.hi
		if lo > hi {
			lo, hi = hi, lo
		}
		lo -= margin(lo)
		hi += margin(hi)
		origin[i] = lo
		lengths[i] = hi - lo
	}
	r, err := rtreego.NewRect(origin, lengths)
	if err != nil {
		// Lengths are positive by construction.
		panic(err)
	}
	return r
}

func margin(v float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(v))
}

// seconds converts t to Unix seconds. UnixNano overflows outside the
// years 1678 to 2262, Unix does not.
func seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}
