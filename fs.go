package gitfs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/sync/semaphore"
)

// Store is the object store a view reads from. *store.Repository
// implements it.
type Store interface {
	// ResolveTree resolves HEAD, a branch, a tag or a commit hash, in that
	// order, to a root tree.
	ResolveTree(ctx context.Context, name string) (plumbing.Hash, error)
	TreeEntries(ctx context.Context, hash plumbing.Hash) ([]object.TreeEntry, error)
	IndexEntries(ctx context.Context) ([]*index.Entry, error)
	// Blob returns blob contents. Callers must not modify the result.
	Blob(ctx context.Context, hash plumbing.Hash) ([]byte, error)
}

// FS is a read-only view of a repository.
type FS struct {
	res    *resolver
	filter *changesView
	desc   string
	logger *slog.Logger
}

// New creates a view over src. The view is rooted at HEAD unless an option
// selects another reference, the staging index, the staged changes or the
// overlay with a working copy.
//
// References are resolved and the index is read once, here; later changes
// to the repository are not observed. Working copy contents of an overlay
// view are read on demand.
//
// Returns an error with code INVALID_CONFIGURATION for conflicting options
// and NOT_FOUND if the reference does not exist.
func New(ctx context.Context, src Store, opts ...Option) (*FS, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("[gitfs %s@%s]", describe(src), o.refName())
	if kind := o.kind(); kind != viewCommit {
		desc = fmt.Sprintf("[gitfs %s@%s %s]", describe(src), o.refName(), kind)
	}
	logger := o.logger.With("view", desc)
	o.logger = logger

	// One limit for the whole view, whatever the depth of a listing.
	o.limit = semaphore.NewWeighted(int64(o.concurrency))
	src = newLimitedStore(src, o.limit)

	f := &FS{desc: desc, logger: logger}
	if err := f.build(ctx, src, o); err != nil {
		return nil, fmt.Errorf("failed to create view %s: %w", desc, err)
	}

	logger.Debug("created view")
	return f, nil
}

func (f *FS) build(ctx context.Context, src Store, o *options) error {
	var (
		root *entry
		err  error
	)
	switch o.kind() {
	case viewIndex:
		root, err = newIndexRoot(ctx, src)
	case viewChanges, viewOverlay:
		// Both views compare the index against HEAD.
		var headRoot *entry
		if headRoot, err = newHeadRoot(ctx, src); err != nil {
			return err
		}
		if root, err = newIndexRoot(ctx, src); err != nil {
			return err
		}
		head := newResolver(headRoot, o)

		if o.kind() == viewOverlay {
			root = newOverlayRoot(head, root, o)
			break
		}
		// The changes view walks the whole index and filters results.
		f.res = newResolver(root, o)
		f.filter = newChangesView(f.res, head, o)
		return nil
	default:
		root, err = newCommitRoot(ctx, src, o.refName())
	}
	if err != nil {
		return err
	}

	f.res = newResolver(root, o)
	return nil
}

// resolve resolves the normalized path p through the view filter, if any.
func (f *FS) resolve(ctx context.Context, p string, deref bool) (*result, error) {
	res, err := f.res.resolve(ctx, p, deref, nil)
	if err != nil || f.filter == nil {
		return res, err
	}
	return f.filter.apply(ctx, p, deref, res)
}

func describe(src Store) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}

// String describes the view.
func (f *FS) String() string {
	return f.desc
}

// ReadDir returns the names of the entries of the directory at name, in
// source order. Submodules are never listed.
func (f *FS) ReadDir(ctx context.Context, name string) ([]string, error) {
	p := normalize(name)
	res, err := f.resolve(ctx, p, true)
	if err != nil {
		return nil, wrapOp("readdir", p, err)
	}
	if res.entry.kind != KindDirectory {
		return nil, wrapOp("readdir", p, errNotDir(p))
	}

	names := make([]string, len(res.children))
	for i, child := range res.children {
		names[i] = child.name
	}
	return names, nil
}

// ReadFile returns the contents of the file at name, following symbolic
// links.
func (f *FS) ReadFile(ctx context.Context, name string) ([]byte, error) {
	p := normalize(name)
	res, err := f.resolve(ctx, p, true)
	if err != nil {
		return nil, wrapOp("read", p, err)
	}
	if res.entry.kind != KindFile {
		return nil, wrapOp("read", p, errNotFile(p))
	}
	return bytes.Clone(res.data), nil
}

// ReadFileEncoded returns the contents of the file at name decoded with enc.
func (f *FS) ReadFileEncoded(ctx context.Context, name string, enc Encoding) (string, error) {
	data, err := f.ReadFile(ctx, name)
	if err != nil {
		return "", err
	}
	s, err := enc.Decode(data)
	if err != nil {
		return "", wrapOp("read", normalize(name), err)
	}
	return s, nil
}

// Stat describes the entry at name, following symbolic links.
func (f *FS) Stat(ctx context.Context, name string) (*FileInfo, error) {
	p := normalize(name)
	res, err := f.resolve(ctx, p, true)
	if err != nil {
		return nil, wrapOp("stat", p, err)
	}
	return newFileInfo(res), nil
}

// Lstat describes the entry at name. A symbolic link at name is described
// itself rather than followed.
func (f *FS) Lstat(ctx context.Context, name string) (*FileInfo, error) {
	p := normalize(name)
	res, err := f.resolve(ctx, p, false)
	if err != nil {
		return nil, wrapOp("lstat", p, err)
	}
	return newFileInfo(res), nil
}

// Readlink returns the stored target of the symbolic link at name.
func (f *FS) Readlink(ctx context.Context, name string) (string, error) {
	p := normalize(name)
	res, err := f.resolve(ctx, p, false)
	if err != nil {
		return "", wrapOp("readlink", p, err)
	}
	if res.entry.kind != KindSymlink {
		return "", wrapOp("readlink", p, errNotSymlink(p))
	}
	return string(res.data), nil
}

// Realpath returns the canonical path of name with every symbolic link
// resolved.
func (f *FS) Realpath(ctx context.Context, name string) (string, error) {
	p := normalize(name)
	res, err := f.resolve(ctx, p, true)
	if err != nil {
		return "", wrapOp("realpath", p, err)
	}
	return res.entry.path, nil
}
