package utils

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGridError_Error(t *testing.T) {
	tests := []struct {
		name     string
		context  string
		variable string
		cause    error
		expected string
	}{
		{
			name:     "simple error",
			context:  "reading variable",
			cause:    errors.New("short read"),
			expected: "reading variable: short read",
		},
		{
			name:     "nested error",
			context:  "building mapper",
			cause:    errors.New("target too large"),
			expected: "building mapper: target too large",
		},
		{
			name:     "with variable",
			context:  "reading",
			variable: "temp",
			cause:    errors.New("short read"),
			expected: `reading "temp": short read`,
		},
		{
			name:     "empty context",
			context:  "",
			cause:    errors.New("some error"),
			expected: ": some error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &GridError{
				Context:  tt.context,
				Variable: tt.variable,
				Cause:    tt.cause,
			}
			require.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestWrapError(t *testing.T) {
	require.NoError(t, WrapError("nothing happened", nil))

	err := WrapError("reading chunk", io.ErrUnexpectedEOF)
	require.Error(t, err)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var gerr *GridError
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, "reading chunk", gerr.Context)
}

func TestWrapErrorChain(t *testing.T) {
	base := errors.New("disk gone")
	err := WrapError("outer", WrapError("inner", base))

	require.ErrorIs(t, err, base)
	require.Equal(t, "outer: inner: disk gone", err.Error())
}

func TestWrapVariableError(t *testing.T) {
	require.NoError(t, WrapVariableError("reading", "temp", nil))

	err := WrapVariableError("reading", "temp", io.ErrUnexpectedEOF)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var gerr *GridError
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, "temp", gerr.Variable)
	require.Equal(t, `reading "temp": unexpected EOF`, err.Error())
}
