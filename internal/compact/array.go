// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package compact provides append-only integer arrays whose element width is
// chosen once, from the largest value the array will ever have to hold.
//
// Mappings between large grids can hold tens of millions of index pairs.
// Storing each index in the narrowest of 8, 16, 32 or 64 bits keeps such
// mappings within a few bytes per pair, and growing by a fixed chunk instead
// of doubling keeps the slack bounded.
package compact

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by Array operations.
var (
	// ErrValueOutOfRange is returned when an appended value cannot be represented
	// in the array's element width.
	ErrValueOutOfRange = errors.New("value out of range for array width")

	// ErrIndexOutOfBounds is returned when an index is not below Len().
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// Width is the number of bits used to store one element.
type Width uint8

// Supported element widths.
const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Max returns the largest unsigned value representable in w bits.
func (w Width) Max() uint64 {
	switch w {
	case W8:
		return math.MaxUint8
	case W16:
		return math.MaxUint16
	case W32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

// String returns e.g. "uint16".
func (w Width) String() string {
	return fmt.Sprintf("uint%d", uint8(w))
}

// WidthFor returns the smallest width whose unsigned maximum covers maxValue.
func WidthFor(maxValue uint64) Width {
	switch {
	case maxValue <= math.MaxUint8:
		return W8
	case maxValue <= math.MaxUint16:
		return W16
	case maxValue <= math.MaxUint32:
		return W32
	default:
		return W64
	}
}

// store is the width-specific backing of an Array.
type store interface {
	length() int
	capacity() int
	push(v uint64)
	at(i int) uint64
	swap(i, j int)
	permute(perm []int)
	grow(n int)
}

type backing[T uint8 | uint16 | uint32 | uint64] struct {
	data []T
}

func (b *backing[T]) length() int     { return len(b.data) }
func (b *backing[T]) capacity() int   { return cap(b.data) }
func (b *backing[T]) push(v uint64)   { b.data = append(b.data, T(v)) }
func (b *backing[T]) at(i int) uint64 { return uint64(b.data[i]) }
func (b *backing[T]) swap(i, j int)   { b.data[i], b.data[j] = b.data[j], b.data[i] }

// grow reallocates with exactly n more slots of capacity.
func (b *backing[T]) grow(n int) {
	data := make([]T, len(b.data), cap(b.data)+n)
	copy(data, b.data)
	b.data = data
}

func (b *backing[T]) permute(perm []int) {
	data := make([]T, len(b.data), cap(b.data))
	for k, p := range perm {
		data[k] = b.data[p]
	}
	b.data = data
}

func newStore(w Width, capacity int) store {
	switch w {
	case W8:
		return &backing[uint8]{data: make([]uint8, 0, capacity)}
	case W16:
		return &backing[uint16]{data: make([]uint16, 0, capacity)}
	case W32:
		return &backing[uint32]{data: make([]uint32, 0, capacity)}
	default:
		return &backing[uint64]{data: make([]uint64, 0, capacity)}
	}
}

// Array is an append-only sequence of non-negative integers stored in the
// narrowest width able to hold the declared maximum value.
//
// An Array never shrinks. Elements are only added with Append and only
// reordered with Swap or Permute.
type Array struct {
	s        store
	width    Width
	chunk    int
	maxValue uint64
}

// New creates an empty array for values in [0, maxValue].
//
// chunkSize is both the initial capacity and the amount by which capacity
// grows whenever the array is full; values below 1 are treated as 1.
func New(maxValue uint64, chunkSize int) *Array {
	if chunkSize < 1 {
		chunkSize = 1
	}
	w := WidthFor(maxValue)
	return &Array{
		s:        newStore(w, chunkSize),
		width:    w,
		chunk:    chunkSize,
		maxValue: maxValue,
	}
}

// Append stores v at the end of the array.
// Returns ErrValueOutOfRange if v is negative or does not fit the element width.
func (a *Array) Append(v int64) error {
	if v < 0 || uint64(v) > a.width.Max() {
		return fmt.Errorf("%w: %d not in [0, %d] (%s)", ErrValueOutOfRange, v, a.width.Max(), a.width)
	}
	if a.s.length() == a.s.capacity() {
		a.s.grow(a.chunk)
	}
	a.s.push(uint64(v))
	return nil
}

// Get returns the element at position i widened to int64.
func (a *Array) Get(i int) (int64, error) {
	if i < 0 || i >= a.s.length() {
		return 0, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfBounds, i, a.s.length())
	}
	return int64(a.s.at(i)), nil
}

// At is Get without the bounds check error; it panics on a bad index.
func (a *Array) At(i int) int64 {
	return int64(a.s.at(i))
}

// Swap exchanges the elements at i1 and i2.
func (a *Array) Swap(i1, i2 int) {
	a.s.swap(i1, i2)
}

// Permute reorders the array so that element k becomes the former element perm[k].
// perm must be a permutation of 0..Len()-1.
func (a *Array) Permute(perm []int) {
	if len(perm) != a.s.length() {
		panic(fmt.Sprintf("compact: permutation length %d != array length %d", len(perm), a.s.length()))
	}
	a.s.permute(perm)
}

// Len returns the number of stored elements.
func (a *Array) Len() int { return a.s.length() }

// Cap returns the current backing capacity.
func (a *Array) Cap() int { return a.s.capacity() }

// Width returns the element width chosen at construction.
func (a *Array) Width() Width { return a.width }

// ChunkSize returns the growth increment.
func (a *Array) ChunkSize() int { return a.chunk }

// MaxValue returns the declared maximum value the array was sized for.
func (a *Array) MaxValue() uint64 { return a.maxValue }

// SizeBytes returns the memory held by the backing storage.
func (a *Array) SizeBytes() int {
	return a.s.capacity() * int(a.width) / 8
}
