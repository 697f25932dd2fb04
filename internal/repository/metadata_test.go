package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMetadataRepository(newTestDB(t))

	t.Run("missing counter reads as zero", func(t *testing.T) {
		v, err := repo.GetCounter(ctx, MetaDataVersion)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), v)
	})

	t.Run("counter only rises", func(t *testing.T) {
		require.NoError(t, repo.RaiseCounter(ctx, MetaDataVersion, 5))
		require.NoError(t, repo.RaiseCounter(ctx, MetaDataVersion, 3))

		v, err := repo.GetCounter(ctx, MetaDataVersion)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), v)

		require.NoError(t, repo.RaiseCounter(ctx, MetaDataVersion, 12))
		v, err = repo.GetCounter(ctx, MetaDataVersion)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), v)
	})

	t.Run("keys are independent", func(t *testing.T) {
		v, err := repo.GetCounter(ctx, MetaNotificationVersion)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), v)
	})
}
