package wrapfs

import (
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	fsbilly "github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"

	"github.com/jmgilman/go/gitfs"
	"github.com/jmgilman/go/gitfs/store"
)

// DefaultViewCacheSize is the number of views kept open by a Router.
const DefaultViewCacheSize = 64

// HostFS is the filesystem non-repository paths are served from. Both
// fs/billy filesystems implement it.
type HostFS interface {
	core.ReadFS
	Unwrap() billy.Filesystem
}

// Option configures a Router.
type Option func(*options)

type options struct {
	host          HostFS
	viewCacheSize int
	logger        *slog.Logger
	viewOpts      []gitfs.Option
	storeOpts     []store.Option
}

func defaultOptions() *options {
	return &options{
		viewCacheSize: DefaultViewCacheSize,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithHost sets the host filesystem. Defaults to the local filesystem.
func WithHost(host HostFS) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithViewCacheSize sets how many views stay open.
func WithViewCacheSize(n int) Option {
	return func(o *options) {
		o.viewCacheSize = n
	}
}

// WithLogger sets the logger used by the router and the views it opens.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithViewOptions adds options applied to every view.
func WithViewOptions(opts ...gitfs.Option) Option {
	return func(o *options) {
		o.viewOpts = append(o.viewOpts, opts...)
	}
}

// WithStoreOptions adds options applied when opening repositories.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

func (o *options) hostFS() HostFS {
	if o.host == nil {
		return fsbilly.NewLocal()
	}
	return o.host
}
