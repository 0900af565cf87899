package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/gridextract/array"
)

// encode gives every cell a value that identifies its position.
func encode(t, z, y, x int) float64 {
	return float64(t*1000000 + z*10000 + y*100 + x)
}

func TestMemoryRead(t *testing.T) {
	m := NewMemory()
	m.AddFunc("temp", [4]int{2, 3, 8, 9}, encode)

	b, err := m.Read("temp", Point(1), Span(1, 2), Span(3, 5), Span(4, 8))
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 2, 3, 5}, b.Shape())

	for z := 0; z < 2; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 5; x++ {
				assert.Equal(t, encode(1, z+1, y+3, x+4), b.Get(0, z, y, x))
			}
		}
	}

	// The block is a copy.
	require.NoError(t, b.Set(0, 0, 0, 0, -1))
	again, err := m.Read("temp", Point(1), Point(1), Point(3), Point(4))
	require.NoError(t, err)
	assert.Equal(t, encode(1, 1, 3, 4), again.Get(0, 0, 0, 0))
}

func TestMemoryErrors(t *testing.T) {
	m := NewMemory()
	m.Add("a", array.New4D(1, 1, 2, 2))

	_, err := m.Read("missing", Point(0), Point(0), Point(0), Point(0))
	require.ErrorIs(t, err, ErrDataRead)
	require.ErrorIs(t, err, ErrUnknownVariable)

	_, err = m.Read("a", Point(0), Point(0), Point(0), Span(0, 2))
	require.ErrorIs(t, err, ErrDataRead)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMemoryVariables(t *testing.T) {
	m := NewMemory()
	m.Add("v", array.New4D(1, 1, 1, 1))
	m.Add("u", array.New4D(1, 2, 3, 4))

	assert.Equal(t, []string{"u", "v"}, m.Variables())
	s, err := m.Shape("u")
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 2, 3, 4}, s)

	_, err = m.Shape("w")
	require.ErrorIs(t, err, ErrUnknownVariable)
	assert.NoError(t, m.Close())
}
