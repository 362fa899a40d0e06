package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunLockMutualExclusion(t *testing.T) {
	lock := NewLocalRunLock()
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	lock.Release(ctx)

	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	lock.Release(ctx)
}
