package codec

import "github.com/hupe1980/tensormap"

// Compression selects an optional outer compression frame around the
// archive. The plain container stays byte-stable across round trips;
// compressed frames are auto-detected on load.
type Compression uint8

const (
	// CompressionNone writes the plain container.
	CompressionNone Compression = iota
	// CompressionZstd wraps the container in a zstd frame.
	CompressionZstd
	// CompressionLZ4 wraps the container in an lz4 frame.
	CompressionLZ4
)

// Options configures encoding and archive persistence.
type Options struct {
	// Compression selects the outer compression frame.
	Compression Compression

	// Parallelism bounds the number of blocks encoded concurrently.
	Parallelism int

	// Logger receives debug output on save/load paths.
	Logger *tensormap.Logger
}

// DefaultOptions are the options used when none are given.
var DefaultOptions = Options{
	Compression: CompressionNone,
	Parallelism: 4,
	Logger:      tensormap.NoopLogger(),
}

// WithCompression sets the outer compression frame.
func WithCompression(c Compression) func(o *Options) {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithParallelism bounds concurrent block encoding.
func WithParallelism(n int) func(o *Options) {
	return func(o *Options) {
		if n > 0 {
			o.Parallelism = n
		}
	}
}

// WithLogger sets the logger used on save/load paths.
func WithLogger(l *tensormap.Logger) func(o *Options) {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
