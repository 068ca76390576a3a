package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := store.Open(ctx, "missing.npz")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutAndOpen", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "nested/dir/archive.npz", []byte("payload")))

		blob, err := store.Open(ctx, "nested/dir/archive.npz")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(7), blob.Size())
		data, err := ReadAll(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("ReadAt", func(t *testing.T) {
		blob, err := store.Open(ctx, "nested/dir/archive.npz")
		require.NoError(t, err)
		defer blob.Close()

		p := make([]byte, 4)
		n, err := blob.ReadAt(ctx, p, 3)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("load"), p)
	})

	t.Run("CreateIsAtomic", func(t *testing.T) {
		w, err := store.Create(ctx, "atomic.npz")
		require.NoError(t, err)
		_, err = w.Write([]byte("half"))
		require.NoError(t, err)

		// The blob is invisible until Close renames it into place.
		_, statErr := os.Stat(filepath.Join(root, "atomic.npz"))
		assert.True(t, os.IsNotExist(statErr))

		require.NoError(t, w.Close())
		blob, err := store.Open(ctx, "atomic.npz")
		require.NoError(t, err)
		defer blob.Close()
		data, err := ReadAll(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("half"), data)
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "nested/")
		require.NoError(t, err)
		assert.Equal(t, []string{"nested/dir/archive.npz"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "atomic.npz"))
		_, err := store.Open(ctx, "atomic.npz")
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, store.Delete(ctx, "atomic.npz"))
	})

	t.Run("OverwriteIsAtomic", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "overwrite.npz", []byte("first")))
		require.NoError(t, store.Put(ctx, "overwrite.npz", []byte("second")))

		blob, err := store.Open(ctx, "overwrite.npz")
		require.NoError(t, err)
		defer blob.Close()
		data, err := ReadAll(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})
}
