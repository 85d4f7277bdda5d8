package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)
	assert.Equal(t, 2, l.Remaining())

	require.NoError(t, l.Take())
	require.NoError(t, l.Take())
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Remaining())

	err := l.Take()
	require.Error(t, err)

	var maxErr *MaxStepsError
	require.True(t, errors.As(err, &maxErr))
	assert.Equal(t, 2, maxErr.Limit)
	assert.Equal(t, 2, l.Count(), "failed take must not advance the count")
}
