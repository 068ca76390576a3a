package codec

import (
	"context"
	"fmt"

	"github.com/hupe1980/tensormap"
	"github.com/hupe1980/tensormap/blobstore"
)

// SaveTo encodes a tensor map and writes the archive to the store under the
// given name.
func SaveTo(ctx context.Context, store blobstore.Store, name string, t *tensormap.TensorMap, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	data, err := Encode(t, func(o *Options) { *o = opts })
	if err != nil {
		return err
	}

	opts.Logger.WithArchive(name).WithBlockCount(t.Len()).WithSize(len(data)).Debug("saving archive")

	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("failed to save archive %q: %w", name, err)
	}
	return nil
}

// LoadFrom reads an archive from the store and decodes it.
func LoadFrom(ctx context.Context, store blobstore.Store, name string, optFns ...func(o *Options)) (*tensormap.TensorMap, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive %q: %w", name, err)
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive %q: %w", name, err)
	}

	opts.Logger.WithArchive(name).WithSize(len(data)).Debug("loading archive")

	t, err := Decode(data)
	if err != nil {
		return nil, err
	}

	opts.Logger.WithArchive(name).WithBlockCount(t.Len()).Debug("loaded archive")

	return t, nil
}
