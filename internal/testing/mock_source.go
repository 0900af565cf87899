// Package testing provides test doubles for data sources.
package testing

import (
	"errors"
	"sync"

	"github.com/scigolib/gridextract/array"
	"github.com/scigolib/gridextract/source"
)

// ErrInjected is returned by a MockSource once its failure point is reached.
var ErrInjected = errors.New("injected read failure")

// ReadCall records one Read on a MockSource.
type ReadCall struct {
	Variable   string
	T, Z, Y, X source.Range
}

// Cells returns the number of cells the call requested.
func (c ReadCall) Cells() int {
	return c.T.Len() * c.Z.Len() * c.Y.Len() * c.X.Len()
}

// MockSource wraps a DataSource, recording every call and optionally
// failing after a number of successful reads.
type MockSource struct {
	base source.DataSource

	mu        sync.Mutex
	calls     []ReadCall
	failAfter int // -1 never fails
	opens     int
	closes    int
}

var _ source.DataSource = (*MockSource)(nil)

// NewMockSource wraps base.
func NewMockSource(base source.DataSource) *MockSource {
	return &MockSource{base: base, failAfter: -1}
}

// FailAfter makes every read after the first n successful ones fail with ErrInjected.
func (m *MockSource) FailAfter(n int) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// Opener returns an Opener that counts opens and hands out m.
func (m *MockSource) Opener() source.Opener {
	return source.OpenerFunc(func() (source.DataSource, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.opens++
		return m, nil
	})
}

// Read records the call and delegates.
func (m *MockSource) Read(variable string, t, z, y, x source.Range) (array.Block, error) {
	m.mu.Lock()
	call := ReadCall{Variable: variable, T: t, Z: z, Y: y, X: x}
	fail := m.failAfter >= 0 && len(m.calls) >= m.failAfter
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if fail {
		return nil, ErrInjected
	}
	return m.base.Read(variable, t, z, y, x)
}

// Close counts the call and closes the wrapped source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closes++
	m.mu.Unlock()
	return m.base.Close()
}

// Calls returns a copy of the recorded reads.
func (m *MockSource) Calls() []ReadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReadCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ReadCount returns the number of reads attempted.
func (m *MockSource) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CellsRead returns the total cells requested across all reads.
func (m *MockSource) CellsRead() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c.Cells()
	}
	return n
}

// Opens returns how often the Opener handed out the source.
func (m *MockSource) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Closes returns how often Close was called.
func (m *MockSource) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Reset forgets recorded calls and counters.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.opens = 0
	m.closes = 0
}
