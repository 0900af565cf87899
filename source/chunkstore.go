package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/qri-io/dataset/compression"

	"github.com/scigolib/gridextract/array"
)

// Compressor ids handled without the generic decompressor.
const (
	CompressorRaw  = ""
	CompressorZstd = "zstd"
)

// ChunkStore is a DataSource over chunked arrays kept in a Store.
//
// Each variable is a directory-like key prefix holding a MetaKey document
// and one blob per chunk, keyed by the chunk's grid coordinates joined by
// the dimension separator ("temp/0.1.3"). Reads fetch only the chunks that
// overlap the requested block; chunks missing from the store read as the
// fill value. Decoded chunks are kept in an LRU cache.
type ChunkStore struct {
	store Store

	mu    sync.Mutex
	metas map[string]*ArrayMeta

	chunks *lru.Cache[string, []float64]
	zdec   *zstd.Decoder
}

var _ DataSource = (*ChunkStore)(nil)

type chunkStoreConfig struct {
	cacheChunks int
}

// ChunkStoreOption configures a ChunkStore.
type ChunkStoreOption func(*chunkStoreConfig)

// WithChunkCache sets how many decoded chunks are cached; 0 disables caching.
func WithChunkCache(n int) ChunkStoreOption {
	return func(c *chunkStoreConfig) {
		c.cacheChunks = n
	}
}

// DefaultChunkCache is the default number of cached chunks.
const DefaultChunkCache = 64

// NewChunkStore creates a data source over store.
func NewChunkStore(store Store, opts ...ChunkStoreOption) (*ChunkStore, error) {
	cfg := chunkStoreConfig{cacheChunks: DefaultChunkCache}
	for _, opt := range opts {
		opt(&cfg)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	cs := &ChunkStore{
		store: store,
		metas: make(map[string]*ArrayMeta),
		zdec:  dec,
	}
	if cfg.cacheChunks > 0 {
		cs.chunks, err = lru.New[string, []float64](cfg.cacheChunks)
		if err != nil {
			dec.Close()
			return nil, fmt.Errorf("creating chunk cache: %w", err)
		}
	}
	return cs, nil
}

// ChunkStoreOpener returns an Opener creating a ChunkStore over store on every call.
func ChunkStoreOpener(store Store, opts ...ChunkStoreOption) Opener {
	return OpenerFunc(func() (DataSource, error) {
		return NewChunkStore(store, opts...)
	})
}

// Meta returns the metadata of a variable.
func (cs *ChunkStore) Meta(variable string) (*ArrayMeta, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if m, ok := cs.metas[variable]; ok {
		return m, nil
	}

	rc, err := cs.store.Get(variable + "/" + MetaKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, variable)
		}
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	m, err := ParseArrayMeta(data)
	if err != nil {
		return nil, err
	}
	cs.metas[variable] = m
	return m, nil
}

// Shape returns the (t, z, y, x) shape of a variable.
func (cs *ChunkStore) Shape(variable string) ([4]int, error) {
	m, err := cs.Meta(variable)
	if err != nil {
		return [4]int{}, err
	}
	return shape4D(m.Shape)
}

// Read assembles the requested block from every overlapping chunk.
func (cs *ChunkStore) Read(variable string, t, z, y, x Range) (array.Block, error) {
	meta, err := cs.Meta(variable)
	if err != nil {
		return nil, readError(variable, err)
	}
	full, err := shape4D(meta.Shape)
	if err != nil {
		return nil, readError(variable, err)
	}
	shape, err := checkRanges(full, t, z, y, x)
	if err != nil {
		return nil, readError(variable, err)
	}
	dtype, err := ParseDtype(meta.Dtype)
	if err != nil {
		return nil, readError(variable, err)
	}
	fill, err := meta.Fill()
	if err != nil {
		return nil, readError(variable, err)
	}

	ranges := storageRanges(len(meta.Shape), t, z, y, x)
	out := array.New4D(shape[0], shape[1], shape[2], shape[3])
	data := out.Data()
	for i := range data {
		data[i] = fill
	}

	outStrides := make([]int, len(ranges))
	lens := make([]int, len(ranges))
	for d, r := range ranges {
		lens[d] = r.Len()
	}
	rowMajorStrides(lens, outStrides)
	chunkStrides := make([]int, len(meta.Chunks))
	rowMajorStrides(meta.Chunks, chunkStrides)

	first := make([]int, len(ranges))
	last := make([]int, len(ranges))
	for d, r := range ranges {
		first[d] = r.Min / meta.Chunks[d]
		last[d] = r.Max / meta.Chunks[d]
	}

	lo := make([]int, len(ranges))
	hi := make([]int, len(ranges))
	fetched := 0
	err = forEachCoord(first, last, func(c []int) error {
		values, ok, err := cs.chunk(variable, meta, dtype, c)
		if err != nil {
			return fmt.Errorf("chunk %v: %w", c, err)
		}
		if !ok {
			return nil
		}
		fetched++

		for d, r := range ranges {
			start := c[d] * meta.Chunks[d]
			lo[d] = max(r.Min, start)
			hi[d] = min(r.Max, start+meta.Chunks[d]-1)
		}
		return forEachCoord(lo, hi, func(p []int) error {
			oi, ci := 0, 0
			for d := range p {
				oi += (p[d] - ranges[d].Min) * outStrides[d]
				ci += (p[d] - c[d]*meta.Chunks[d]) * chunkStrides[d]
			}
			data[oi] = values[ci]
			return nil
		})
	})
	if err != nil {
		return nil, readError(variable, err)
	}

	tracer().Debugf("read %s t=%s z=%s y=%s x=%s from %d chunks", variable, t, z, y, x, fetched)
	return out, nil
}

// chunk returns the decoded values of one chunk; ok is false if the chunk
// is not stored.
func (cs *ChunkStore) chunk(variable string, meta *ArrayMeta, dtype Dtype, coords []int) ([]float64, bool, error) {
	key := meta.chunkKey(variable, coords)
	if cs.chunks != nil {
		if v, ok := cs.chunks.Get(key); ok {
			return v, true, nil
		}
	}

	rc, err := cs.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	raw, err := cs.decompress(meta.Compressor, rc)
	if err != nil {
		return nil, false, err
	}

	values, err := dtype.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	want := 1
	for _, c := range meta.Chunks {
		want *= c
	}
	if len(values) != want {
		return nil, false, fmt.Errorf("%w: chunk %s holds %d values, want %d", ErrShapeMismatch, key, len(values), want)
	}

	if cs.chunks != nil {
		cs.chunks.Add(key, values)
	}
	return values, true, nil
}

func (cs *ChunkStore) decompress(c *CompressorMeta, rc io.ReadCloser) ([]byte, error) {
	id := CompressorRaw
	if c != nil {
		id = c.ID
	}

	switch id {
	case CompressorRaw:
		defer rc.Close()
		return io.ReadAll(rc)
	case CompressorZstd:
		defer rc.Close()
		compressed, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		return cs.zdec.DecodeAll(compressed, nil)
	default:
		dr, err := compression.Decompressor(id, rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("compressor %q: %w", id, err)
		}
		defer dr.Close()
		return io.ReadAll(dr)
	}
}

// Close releases the decoder and drops cached chunks.
func (cs *ChunkStore) Close() error {
	if cs.chunks != nil {
		cs.chunks.Purge()
	}
	cs.zdec.Close()
	return nil
}

// PutArray writes data (row-major over meta.Shape) to store as a chunked
// variable, with meta as its metadata. Only raw and zstd chunks are written.
func PutArray(store Store, variable string, meta ArrayMeta, data []float64) error {
	if meta.ZarrFormat == 0 {
		meta.ZarrFormat = 2
	}
	if meta.Order == "" {
		meta.Order = "C"
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	n := 1
	for _, s := range meta.Shape {
		n *= s
	}
	if len(data) != n {
		return fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(data), meta.Shape)
	}

	dtype, _ := ParseDtype(meta.Dtype)
	fill, _ := meta.Fill()

	var enc *zstd.Encoder
	if meta.Compressor != nil {
		switch meta.Compressor.ID {
		case CompressorRaw:
		case CompressorZstd:
			var err error
			enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(max(meta.Compressor.Level, 1))))
			if err != nil {
				return fmt.Errorf("creating zstd encoder: %w", err)
			}
			defer enc.Close()
		default:
			return fmt.Errorf("writing with compressor %q is not supported", meta.Compressor.ID)
		}
	}

	doc, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := store.Put(variable+"/"+MetaKey, bytes.NewReader(doc)); err != nil {
		return err
	}

	ndims := len(meta.Shape)
	strides := make([]int, ndims)
	rowMajorStrides(meta.Shape, strides)
	chunkStrides := make([]int, ndims)
	rowMajorStrides(meta.Chunks, chunkStrides)
	chunkCells := chunkStrides[0] * meta.Chunks[0]

	first := make([]int, ndims)
	last := make([]int, ndims)
	for d := range meta.Shape {
		last[d] = (meta.Shape[d] - 1) / meta.Chunks[d]
	}
	lo := make([]int, ndims)
	hi := make([]int, ndims)
	buf := make([]float64, chunkCells)

	return forEachCoord(first, last, func(c []int) error {
		for i := range buf {
			buf[i] = fill
		}
		for d := range c {
			lo[d] = c[d] * meta.Chunks[d]
			hi[d] = min(lo[d]+meta.Chunks[d], meta.Shape[d]) - 1
		}
		_ = forEachCoord(lo, hi, func(p []int) error {
			si, ci := 0, 0
			for d := range p {
				si += p[d] * strides[d]
				ci += (p[d] - c[d]*meta.Chunks[d]) * chunkStrides[d]
			}
			buf[ci] = data[si]
			return nil
		})

		blob := dtype.Encode(buf)
		if enc != nil {
			blob = enc.EncodeAll(blob, nil)
		}
		return store.Put(meta.chunkKey(variable, c), bytes.NewReader(blob))
	})
}

// rowMajorStrides fills strides for a C-ordered array of the given shape.
func rowMajorStrides(shape, strides []int) {
	s := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = s
		s *= shape[d]
	}
}

// forEachCoord calls fn for every coordinate between first and last
// inclusive, last dimension fastest. The slice passed to fn is reused.
func forEachCoord(first, last []int, fn func(c []int) error) error {
	for d := range first {
		if last[d] < first[d] {
			return nil
		}
	}
	c := make([]int, len(first))
	copy(c, first)
	for {
		if err := fn(c); err != nil {
			return err
		}
		d := len(c) - 1
		for ; d >= 0; d-- {
			c[d]++
			if c[d] <= last[d] {
				break
			}
			c[d] = first[d]
		}
		if d < 0 {
			return nil
		}
	}
}
