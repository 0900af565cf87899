package source

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/scigolib/hdf5"

	"github.com/scigolib/gridextract/array"
)

// HDF5 is a DataSource over the datasets of an HDF5 file.
//
// Variables are dataset paths with or without the leading slash. 2D
// datasets are read as [1][1][Y][X], 3D datasets as [T][1][Y][X] and 4D
// datasets as stored.
type HDF5 struct {
	path string
	file *hdf5.File

	mu       sync.Mutex
	datasets map[string]*hdf5.Dataset
	dims     map[string][]int
	closed   bool
}

var _ DataSource = (*HDF5)(nil)

// OpenHDF5 opens an HDF5 file and indexes its datasets.
func OpenHDF5(path string) (*HDF5, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, readError(path, fmt.Errorf("opening file: %w", err))
	}

	h := &HDF5{
		path:     path,
		file:     f,
		datasets: make(map[string]*hdf5.Dataset),
		dims:     make(map[string][]int),
	}
	f.Walk(func(p string, obj hdf5.Object) {
		if ds, ok := obj.(*hdf5.Dataset); ok {
			h.datasets[strings.TrimPrefix(p, "/")] = ds
		}
	})
	tracer().Debugf("opened %s: %d datasets", path, len(h.datasets))
	return h, nil
}

// HDF5Opener returns an Opener that opens path on every call.
func HDF5Opener(path string) Opener {
	return OpenerFunc(func() (DataSource, error) {
		return OpenHDF5(path)
	})
}

// Variables returns the dataset paths, sorted, without leading slash.
func (h *HDF5) Variables() []string {
	names := make([]string, 0, len(h.datasets))
	for name := range h.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shape returns the (t, z, y, x) shape of a variable.
func (h *HDF5) Shape(variable string) ([4]int, error) {
	_, dims, err := h.lookup(variable)
	if err != nil {
		return [4]int{}, err
	}
	return shape4D(dims)
}

func (h *HDF5) lookup(variable string) (*hdf5.Dataset, []int, error) {
	name := strings.TrimPrefix(variable, "/")

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, ErrClosed
	}
	ds, ok := h.datasets[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q in %s", ErrUnknownVariable, variable, h.path)
	}
	if dims, ok := h.dims[name]; ok {
		return ds, dims, nil
	}

	info, err := ds.Info()
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset info: %w", err)
	}
	dims, err := parseDataspace(info)
	if err != nil {
		return nil, nil, err
	}
	h.dims[name] = dims
	return ds, dims, nil
}

// Read reads the requested block with a single hyperslab selection.
func (h *HDF5) Read(variable string, t, z, y, x Range) (array.Block, error) {
	ds, dims, err := h.lookup(variable)
	if err != nil {
		return nil, readError(variable, err)
	}
	full, err := shape4D(dims)
	if err != nil {
		return nil, readError(variable, err)
	}
	shape, err := checkRanges(full, t, z, y, x)
	if err != nil {
		return nil, readError(variable, err)
	}

	ranges := storageRanges(len(dims), t, z, y, x)
	start := make([]uint64, len(ranges))
	count := make([]uint64, len(ranges))
	for d, r := range ranges {
		start[d] = uint64(r.Min)
		count[d] = uint64(r.Len())
	}

	raw, err := ds.ReadSlice(start, count)
	if err != nil {
		return nil, readError(variable, err)
	}
	values, err := floatsOf(raw)
	if err != nil {
		return nil, readError(variable, err)
	}
	block, err := array.Wrap4D(shape, values)
	if err != nil {
		return nil, readError(variable, fmt.Errorf("%w: %w", ErrShapeMismatch, err))
	}
	return block, nil
}

// Close closes the file.
func (h *HDF5) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.file.Close()
}

var dataspacePattern = regexp.MustCompile(`(\d+)D array \[([^\]]*)\]`)

// parseDataspace extracts dimensions from a dataset description such as
// "... 2D array [3 x 4] ..." or "... 3D array [2 3 4] ...".
func parseDataspace(info string) ([]int, error) {
	m := dataspacePattern.FindStringSubmatch(info)
	if m == nil {
		return nil, fmt.Errorf("%w: no simple dataspace in %q", ErrShapeMismatch, info)
	}
	rank, _ := strconv.Atoi(m[1])
	fields := strings.FieldsFunc(m[2], func(r rune) bool { return r == ' ' || r == 'x' })
	if len(fields) != rank {
		return nil, fmt.Errorf("%w: rank %d with dimensions %q", ErrShapeMismatch, rank, m[2])
	}
	dims := make([]int, rank)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("parsing dimension %q: %w", f, err)
		}
		dims[i] = v
	}
	return dims, nil
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// floatsOf converts a hyperslab result in the dataset's native type.
func floatsOf(raw interface{}) ([]float64, error) {
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []float32:
		return widen(v), nil
	case []int64:
		return widen(v), nil
	case []int32:
		return widen(v), nil
	case []int16:
		return widen(v), nil
	case []int8:
		return widen(v), nil
	case []uint64:
		return widen(v), nil
	case []uint32:
		return widen(v), nil
	case []uint16:
		return widen(v), nil
	case []uint8:
		return widen(v), nil
	default:
		return nil, fmt.Errorf("unsupported element type %T", raw)
	}
}
