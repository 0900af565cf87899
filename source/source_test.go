package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	assert.Equal(t, 1, Point(7).Len())
	assert.Equal(t, 5, Span(3, 7).Len())
	assert.Equal(t, "3..7", Span(3, 7).String())
}

func TestCheckRanges(t *testing.T) {
	shape := [4]int{2, 3, 10, 20}

	tests := []struct {
		name    string
		ranges  [4]Range
		want    [4]int
		wantErr bool
	}{
		{"single cell", [4]Range{Point(0), Point(0), Point(0), Point(0)}, [4]int{1, 1, 1, 1}, false},
		{"full", [4]Range{Span(0, 1), Span(0, 2), Span(0, 9), Span(0, 19)}, shape, false},
		{"row segment", [4]Range{Point(1), Point(2), Point(4), Span(5, 11)}, [4]int{1, 1, 1, 7}, false},
		{"t beyond", [4]Range{Point(2), Point(0), Point(0), Point(0)}, [4]int{}, true},
		{"negative y", [4]Range{Point(0), Point(0), Span(-1, 2), Point(0)}, [4]int{}, true},
		{"inverted x", [4]Range{Point(0), Point(0), Point(0), Span(5, 4)}, [4]int{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkRanges(shape, tt.ranges[0], tt.ranges[1], tt.ranges[2], tt.ranges[3])
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOutOfBounds)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShape4D(t *testing.T) {
	s, err := shape4D([]int{3, 4})
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 1, 3, 4}, s)

	s, err = shape4D([]int{5, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, [4]int{5, 1, 3, 4}, s)

	s, err = shape4D([]int{5, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, [4]int{5, 2, 3, 4}, s)

	_, err = shape4D([]int{5})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestStorageRanges(t *testing.T) {
	tr, zr, yr, xr := Point(1), Point(2), Span(3, 4), Span(5, 6)
	assert.Equal(t, []Range{yr, xr}, storageRanges(2, tr, zr, yr, xr))
	assert.Equal(t, []Range{tr, yr, xr}, storageRanges(3, tr, zr, yr, xr))
	assert.Equal(t, []Range{tr, zr, yr, xr}, storageRanges(4, tr, zr, yr, xr))
}

func TestOpenerFunc(t *testing.T) {
	mem := NewMemory()
	var o Opener = OpenerFunc(func() (DataSource, error) { return mem, nil })
	src, err := o.Open()
	require.NoError(t, err)
	assert.Same(t, mem, src)
}
