package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tensormap/blobstore"
	"github.com/hupe1980/tensormap/testutil"
)

func TestSaveToLoadFrom(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tm := testutil.SphericalExpansion()

	require.NoError(t, SaveTo(ctx, store, "features.npz", tm))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"features.npz"}, names)

	loaded, err := LoadFrom(ctx, store, "features.npz")
	require.NoError(t, err)
	requireEqualMaps(t, tm, loaded)
}

func TestSaveToCompressed(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tm := testutil.SphericalExpansion()

	require.NoError(t, SaveTo(ctx, store, "features.npz.zst", tm, WithCompression(CompressionZstd)))

	loaded, err := LoadFrom(ctx, store, "features.npz.zst")
	require.NoError(t, err)
	requireEqualMaps(t, tm, loaded)
}

func TestLoadFromMissing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := LoadFrom(ctx, store, "missing.npz")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}
