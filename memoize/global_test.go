package memoize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fncache/go-fncache/cache"
)

func TestGlobalLifecycle(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	_, err := Default()
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, Init(cache.NewMemory()))
	assert.ErrorIs(t, Init(cache.NewMemory()), ErrAlreadyInitialized)

	m, err := Default()
	require.NoError(t, err)

	got, err := Do(context.Background(), m, "k", 0, func(ctx context.Context) (string, error) {
		return "v", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
