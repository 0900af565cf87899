package feature

import (
	"errors"
	"fmt"
	"slices"

	"github.com/derekparker/trie"

	"github.com/scigolib/gridextract/internal/utils"
)

// ErrUnknownFeature is returned when an id is not in the catalog.
var ErrUnknownFeature = errors.New("unknown feature")

// ReadFunc reads one feature by id.
type ReadFunc[F any] func(id string) (F, error)

// Catalog couples an Indexer with a feature reader. Queries go through
// the index first; only matching features are read.
type Catalog[F any] struct {
	index Indexer
	ids   *trie.Trie
	read  ReadFunc[F]
}

// NewCatalog returns a catalog over every id of index.
func NewCatalog[F any](index Indexer, read ReadFunc[F]) *Catalog[F] {
	t := trie.New()
	for _, id := range index.AllFeatureIDs() {
		t.Add(id, nil)
	}
	return &Catalog[F]{index: index, ids: t, read: read}
}

// Find returns the sorted ids matching q.
func (c *Catalog[F]) Find(q Query) []string {
	return c.index.FindFeatureIDs(q)
}

// Has reports whether id is in the catalog.
func (c *Catalog[F]) Has(id string) bool {
	_, ok := c.ids.Find(id)
	return ok
}

// IDsWithPrefix returns the sorted ids starting with prefix.
func (c *Catalog[F]) IDsWithPrefix(prefix string) []string {
	if !c.ids.HasKeysWithPrefix(prefix) {
		return nil
	}
	ids := c.ids.PrefixSearch(prefix)
	slices.Sort(ids)
	return ids
}

// ReadByID reads a single feature.
func (c *Catalog[F]) ReadByID(id string) (F, error) {
	if !c.Has(id) {
		var zero F
		return zero, fmt.Errorf("%w: %q", ErrUnknownFeature, id)
	}
	f, err := c.read(id)
	if err != nil {
		return f, utils.WrapError(fmt.Sprintf("reading feature %q", id), err)
	}
	return f, nil
}

// Read reads every feature matching q, in id order.
// The first read error stops the read.
func (c *Catalog[F]) Read(q Query) ([]F, error) {
	ids := c.Find(q)
	tracer().Debugf("catalog: %d features match", len(ids))
	out := make([]F, 0, len(ids))
	for _, id := range ids {
		f, err := c.read(id)
		if err != nil {
			return nil, utils.WrapError(fmt.Sprintf("reading feature %q", id), err)
		}
		out = append(out, f)
	}
	return out, nil
}
