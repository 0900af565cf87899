package array

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray4DLayout(t *testing.T) {
	a := New4D(2, 3, 4, 5)
	require.Equal(t, [4]int{2, 3, 4, 5}, a.Shape())
	require.Equal(t, 120, a.Len())

	require.NoError(t, a.Set(1, 2, 3, 4, 7.5))
	assert.Equal(t, 7.5, a.Get(1, 2, 3, 4))
	assert.Equal(t, 7.5, a.Data()[119], "last cell is (nt-1, nz-1, ny-1, nx-1)")

	require.NoError(t, a.Set(0, 0, 1, 0, 2))
	assert.Equal(t, 2.0, a.Data()[5], "x varies fastest")

	require.Error(t, a.Set(2, 0, 0, 0, 1))
	assert.Panics(t, func() { a.Get(0, 3, 0, 0) })
}

func TestWrap4D(t *testing.T) {
	a, err := Wrap4D([4]int{1, 1, 2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3.0, a.Get(0, 0, 1, 0))

	_, err = Wrap4D([4]int{1, 1, 2, 2}, []float64{1, 2, 3})
	require.Error(t, err)

	_, err = Wrap4D([4]int{1, 0, 2, 2}, nil)
	require.Error(t, err)
}

func TestArray2DMissing(t *testing.T) {
	a := New2D(3, 2, math.NaN())
	assert.Equal(t, 3, a.Width())
	assert.Equal(t, 2, a.Height())
	assert.Equal(t, 0, a.CountValid())

	a.Set(2, 1, 4)
	assert.Equal(t, 4.0, a.Get(2, 1))
	assert.Equal(t, 4.0, a.Data()[5])
	assert.Equal(t, 1, a.CountValid())
	assert.True(t, a.IsMissing(a.Get(0, 0)))

	b := New2D(2, 2, -999)
	assert.True(t, b.IsMissing(-999))
	assert.False(t, b.IsMissing(math.NaN()))
}

func TestArray2DIdentical(t *testing.T) {
	a := New2D(2, 2, math.NaN())
	b := New2D(2, 2, math.NaN())
	assert.True(t, a.Identical(b), "NaN cells compare bit-identical")

	a.Set(0, 0, 1)
	assert.False(t, a.Identical(b))
	b.Set(0, 0, 1)
	assert.True(t, a.Identical(b))

	assert.False(t, a.Identical(New2D(4, 1, math.NaN())))
}

func TestLazyView(t *testing.T) {
	u := New4D(1, 1, 1, 2)
	v := New4D(1, 1, 1, 2)
	require.NoError(t, u.Set(0, 0, 0, 0, 3))
	require.NoError(t, v.Set(0, 0, 0, 0, 4))
	require.NoError(t, u.Set(0, 0, 0, 1, 0))
	require.NoError(t, v.Set(0, 0, 0, 1, 1))

	speed, err := NewLazy(func(vals ...float64) float64 {
		return math.Hypot(vals[0], vals[1])
	}, u, v)
	require.NoError(t, err)

	assert.Equal(t, [4]int{1, 1, 1, 2}, speed.Shape())
	assert.Equal(t, 5.0, speed.Get(0, 0, 0, 0))
	assert.Equal(t, 1.0, speed.Get(0, 0, 0, 1))

	// Changes in the inputs are visible through the view.
	require.NoError(t, u.Set(0, 0, 0, 1, 1))
	assert.InDelta(t, math.Sqrt2, speed.Get(0, 0, 0, 1), 1e-12)

	err = speed.Set(0, 0, 0, 0, 1)
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestLazyValidation(t *testing.T) {
	_, err := NewLazy(nil, New4D(1, 1, 1, 1))
	require.Error(t, err)

	_, err = NewLazy(func(vals ...float64) float64 { return 0 })
	require.Error(t, err)

	_, err = NewLazy(func(vals ...float64) float64 { return 0 }, New4D(1, 1, 1, 1), New4D(1, 1, 1, 2))
	require.Error(t, err)
}
