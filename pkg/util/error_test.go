package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorf(t *testing.T) {
	cause := errors.New("queue full")
	err := fmt.Errorf("push: %w", WrapErrorf(cause, ErrInternalServerError, "session %s", "abc"))

	var uerr *Error
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, ErrInternalServerError, uerr.Code())
	assert.Equal(t, "session abc: queue full", uerr.Error())
	assert.ErrorIs(t, err, cause)

	err = WrapErrorf(nil, ErrNotFound, "session %s not found", "abc")
	assert.Equal(t, "session abc not found", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestClampFloat(t *testing.T) {
	testCases := []struct {
		name     string
		v        float64
		expected float64
	}{
		{name: "below", v: 2, expected: 8.9},
		{name: "inside", v: 13.9, expected: 13.9},
		{name: "above", v: 45, expected: 30},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClampFloat(tc.v, 8.9, 30))
		})
	}
}
