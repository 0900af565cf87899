package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow checks if multiplying two uint64 values would overflow.
// Returns an error if overflow would occur.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil
	}

	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two uint64 values and returns the result if no overflow occurs.
// Returns 0 and an error if overflow would occur.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ValidateBufferSize validates that a buffer size is within reasonable limits.
// maxSize parameter allows different limits for different use cases.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size == 0 {
		return fmt.Errorf("%s: size cannot be zero", description)
	}

	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}

	return nil
}

// MaxBufferCells limits a single in-memory read buffer to 1 billion cells.
const MaxBufferCells = 1_000_000_000

// CellCount multiplies the given extents with overflow checking and
// validates the product against MaxBufferCells.
//
// Every extent must be positive. The result is what a range read spanning
// those extents would have to hold in memory.
func CellCount(extents ...int) (int, error) {
	if len(extents) == 0 {
		return 0, fmt.Errorf("no extents provided")
	}

	total := uint64(1)
	for i, e := range extents {
		if e <= 0 {
			return 0, fmt.Errorf("extent %d must be > 0, got %d", i, e)
		}
		var err error
		total, err = SafeMultiply(total, uint64(e))
		if err != nil {
			return 0, fmt.Errorf("cell count overflow at extent %d: %w", i, err)
		}
	}

	if err := ValidateBufferSize(total, MaxBufferCells, "read buffer"); err != nil {
		return 0, err
	}

	return int(total), nil
}
