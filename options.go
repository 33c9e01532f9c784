package gitfs

import (
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency bounds the object store and working copy reads a view
// has in flight at once.
const DefaultConcurrency = 10

type viewKind int

const (
	viewCommit viewKind = iota
	viewIndex
	viewChanges
	viewOverlay
)

func (k viewKind) String() string {
	switch k {
	case viewIndex:
		return "index"
	case viewChanges:
		return "changes"
	case viewOverlay:
		return "overlay"
	}
	return "commit"
}

// Option configures a view.
type Option func(*options)

type options struct {
	ref         string
	kinds       []viewKind
	overlay     billy.Filesystem
	logger      *slog.Logger
	cache       bool
	concurrency int
	maxLinks    int

	// limit is shared by every reader of one view. Set by New.
	limit *semaphore.Weighted
}

func defaultOptions() *options {
	return &options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cache:       true,
		concurrency: DefaultConcurrency,
		maxLinks:    DefaultMaxSymlinks,
	}
}

// WithRef selects the reference the view is rooted at: a branch, a tag or a
// commit hash. Defaults to HEAD.
func WithRef(name string) Option {
	return func(o *options) {
		o.ref = name
	}
}

// WithIndex roots the view at the staging index.
func WithIndex() Option {
	return func(o *options) {
		o.kinds = append(o.kinds, viewIndex)
	}
}

// WithChangesInIndex restricts the staging index to paths whose content
// differs from HEAD.
func WithChangesInIndex() Option {
	return func(o *options) {
		o.kinds = append(o.kinds, viewChanges)
	}
}

// WithOverlay merges the staging index with the working copy in fs. Files
// present on disk but neither staged nor committed become visible; staged
// deletions stay hidden.
func WithOverlay(fs billy.Filesystem) Option {
	return func(o *options) {
		o.kinds = append(o.kinds, viewOverlay)
		o.overlay = fs
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

// WithoutCache disables memoization of resolved paths.
func WithoutCache() Option {
	return func(o *options) {
		o.cache = false
	}
}

// WithConcurrency sets how many object store and working copy reads the
// view may have in flight at once, across all concurrent operations.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithMaxSymlinks sets how many symbolic links are followed while resolving
// one path.
func WithMaxSymlinks(n int) Option {
	return func(o *options) {
		o.maxLinks = n
	}
}

func (o *options) kind() viewKind {
	if len(o.kinds) == 0 {
		return viewCommit
	}
	return o.kinds[0]
}

func (o *options) refName() string {
	if o.ref == "" {
		return plumbing.HEAD.String()
	}
	return o.ref
}

func (o *options) validate() error {
	if len(o.kinds) > 1 {
		return errConfig("only one of index, changes and overlay views can be selected")
	}
	kind := o.kind()
	if kind != viewCommit && o.refName() != plumbing.HEAD.String() {
		return errConfig("%s view requires ref HEAD, got %q", kind, o.ref)
	}
	if kind == viewOverlay && o.overlay == nil {
		return errConfig("overlay view requires a filesystem")
	}
	if o.concurrency < 1 {
		return errConfig("concurrency must be at least 1, got %d", o.concurrency)
	}
	if o.maxLinks < 1 {
		return errConfig("symbolic link limit must be at least 1, got %d", o.maxLinks)
	}
	return nil
}
