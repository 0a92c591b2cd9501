package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-console/internal/storage"
	"github.com/JakeFAU/crawl-console/internal/storage/local"
	"github.com/JakeFAU/crawl-console/internal/storage/memory"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		for _, backend := range []string{"", "none", " NONE "} {
			store, closeFn, err := storage.Open(ctx, storage.Config{Backend: backend}, nil)
			require.ErrorIs(t, err, storage.ErrDisabled)
			assert.Nil(t, store)
			assert.NoError(t, closeFn())
		}
	})

	t.Run("Local", func(t *testing.T) {
		store, closeFn, err := storage.Open(ctx, storage.Config{Backend: "local", LocalDir: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.IsType(t, &local.BlobStore{}, store)
		assert.NoError(t, closeFn())
	})

	t.Run("LocalWithoutDir", func(t *testing.T) {
		_, _, err := storage.Open(ctx, storage.Config{Backend: "local"}, nil)
		assert.Error(t, err)
	})

	t.Run("Memory", func(t *testing.T) {
		store, _, err := storage.Open(ctx, storage.Config{Backend: "memory"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &memory.BlobStore{}, store)
	})

	t.Run("GCSWithoutBucket", func(t *testing.T) {
		_, closeFn, err := storage.Open(ctx, storage.Config{Backend: "gcs"}, nil)
		assert.Error(t, err)
		assert.NotNil(t, closeFn)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, err := storage.Open(ctx, storage.Config{Backend: "s3"}, nil)
		assert.ErrorContains(t, err, `"s3"`)
	})
}
