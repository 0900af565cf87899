package source

import (
	"fmt"
	"sort"
	"sync"

	"github.com/scigolib/gridextract/array"
)

// Memory is a DataSource over in-memory variables.
// It is safe for concurrent use; Close is a no-op so one Memory can back
// any number of opens.
type Memory struct {
	mu   sync.RWMutex
	vars map[string]*array.Array4D
}

var _ DataSource = (*Memory)(nil)

// NewMemory creates an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{vars: make(map[string]*array.Array4D)}
}

// Add registers (or replaces) a variable.
func (m *Memory) Add(name string, data *array.Array4D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[name] = data
}

// AddFunc registers a variable of the given shape whose values are f(t, z, y, x).
func (m *Memory) AddFunc(name string, shape [4]int, f func(t, z, y, x int) float64) {
	a := array.New4D(shape[0], shape[1], shape[2], shape[3])
	for t := 0; t < shape[0]; t++ {
		for z := 0; z < shape[1]; z++ {
			for y := 0; y < shape[2]; y++ {
				for x := 0; x < shape[3]; x++ {
					_ = a.Set(t, z, y, x, f(t, z, y, x))
				}
			}
		}
	}
	m.Add(name, a)
}

// Variables returns the registered variable names, sorted.
func (m *Memory) Variables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.vars))
	for name := range m.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shape returns the shape of a variable.
func (m *Memory) Shape(variable string) ([4]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.vars[variable]
	if !ok {
		return [4]int{}, fmt.Errorf("%w: %q", ErrUnknownVariable, variable)
	}
	return a.Shape(), nil
}

// Read copies the requested block.
func (m *Memory) Read(variable string, t, z, y, x Range) (array.Block, error) {
	m.mu.RLock()
	src, ok := m.vars[variable]
	m.mu.RUnlock()
	if !ok {
		return nil, readError(variable, fmt.Errorf("%w: %q", ErrUnknownVariable, variable))
	}

	shape, err := checkRanges(src.Shape(), t, z, y, x)
	if err != nil {
		return nil, readError(variable, err)
	}

	out := array.New4D(shape[0], shape[1], shape[2], shape[3])
	data := out.Data()
	k := 0
	for ti := t.Min; ti <= t.Max; ti++ {
		for zi := z.Min; zi <= z.Max; zi++ {
			for yi := y.Min; yi <= y.Max; yi++ {
				for xi := x.Min; xi <= x.Max; xi++ {
					data[k] = src.Get(ti, zi, yi, xi)
					k++
				}
			}
		}
	}
	return out, nil
}

// Close does nothing.
func (m *Memory) Close() error { return nil }
