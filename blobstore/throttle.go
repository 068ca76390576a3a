package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledStore wraps a Store and paces requests with a token bucket. It is
// meant for remote object stores where a burst of archive fetches can trip
// provider rate limits.
type ThrottledStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewThrottledStore creates a ThrottledStore allowing rps requests per
// second with the given burst.
func NewThrottledStore(inner Store, rps float64, burst int) *ThrottledStore {
	return &ThrottledStore{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Open opens a blob for reading.
func (s *ThrottledStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{inner: b, limiter: s.limiter}, nil
}

// Put writes a blob atomically.
func (s *ThrottledStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

// Create creates a new writable blob. Only the creation is paced, not the
// individual writes.
func (s *ThrottledStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Create(ctx, name)
}

// Delete removes a blob.
func (s *ThrottledStore) Delete(ctx context.Context, name string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Delete(ctx, name)
}

// List returns all blobs matching the prefix.
func (s *ThrottledStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.List(ctx, prefix)
}

type throttledBlob struct {
	inner   Blob
	limiter *rate.Limiter
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return b.inner.ReadAt(ctx, p, off)
}

func (b *throttledBlob) Size() int64 {
	return b.inner.Size()
}

func (b *throttledBlob) Close() error {
	return b.inner.Close()
}
