package store

import (
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5"
)

// DefaultBlobCacheSize is the number of blobs kept in memory per Repository.
const DefaultBlobCacheSize = 1024

// Option configures a Repository.
type Option func(*options)

type options struct {
	fs            billy.Filesystem
	blobCacheSize int
	logger        *slog.Logger
}

func defaultOptions() *options {
	return &options{
		blobCacheSize: DefaultBlobCacheSize,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithFilesystem sets the filesystem the repository is opened from.
// Defaults to the local filesystem.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithBlobCacheSize sets how many blobs are cached in memory.
// Values below one disable the cache.
func WithBlobCacheSize(n int) Option {
	return func(o *options) {
		o.blobCacheSize = n
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
