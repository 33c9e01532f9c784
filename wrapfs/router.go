package wrapfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	platformerrors "github.com/jmgilman/go/errors"
	"golang.org/x/sync/singleflight"

	"github.com/jmgilman/go/gitfs"
	"github.com/jmgilman/go/gitfs/store"
)

type viewKey struct {
	repo string
	kind string
	name string
}

func (k viewKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.repo, k.kind, k.name)
}

// Router serves host paths from the host filesystem and repository
// contents from gitfs views. It is safe for concurrent use.
type Router struct {
	host      HostFS
	logger    *slog.Logger
	viewOpts  []gitfs.Option
	storeOpts []store.Option

	repos *lru.Cache[string, *store.Repository]
	views *lru.Cache[viewKey, *gitfs.FS]
	group singleflight.Group
}

// New creates a Router.
func New(opts ...Option) (*Router, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.viewCacheSize < 1 {
		return nil, platformerrors.Newf(platformerrors.CodeInvalidConfig,
			"view cache size must be positive, got %d", o.viewCacheSize)
	}

	views, err := lru.New[viewKey, *gitfs.FS](o.viewCacheSize)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to create view cache")
	}
	repos, err := lru.New[string, *store.Repository](o.viewCacheSize)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to create repository cache")
	}

	host := o.hostFS()
	return &Router{
		host:      host,
		logger:    o.logger,
		viewOpts:  append([]gitfs.Option{gitfs.WithLogger(o.logger)}, o.viewOpts...),
		storeOpts: append([]store.Option{store.WithFilesystem(host.Unwrap()), store.WithLogger(o.logger)}, o.storeOpts...),
		repos:     repos,
		views:     views,
	}, nil
}

// ReadDir lists the names in a directory. Repository directories list an
// extra "contents" entry first. Relative names are resolved against the
// working directory, as are the names of every other method.
func (r *Router) ReadDir(ctx context.Context, name string) ([]string, error) {
	name = absolute(name)
	t := parse(name)
	switch {
	case t.repo == "":
		return r.hostReadDir(name)
	case !t.contents:
		names, err := r.hostReadDir(name)
		if err != nil {
			return nil, err
		}
		return append([]string{ContentsDir}, names...), nil
	case t.kind == "":
		return slices.Clone(contentKinds), nil
	case t.kind != KindIndex && t.name == "":
		return r.list(ctx, t, name)
	}

	view, err := r.view(ctx, t, name)
	if err != nil {
		return nil, err
	}
	return view.ReadDir(ctx, t.rest)
}

// ReadFile returns the contents of a file.
func (r *Router) ReadFile(ctx context.Context, name string) ([]byte, error) {
	name = absolute(name)
	t := parse(name)
	if t.repo == "" || !t.contents {
		return r.host.ReadFile(name)
	}
	if t.kind == "" || (t.kind != KindIndex && t.name == "") {
		if _, err := r.synthetic(ctx, t, name); err != nil {
			return nil, err
		}
		return nil, pathError("readfile", name, platformerrors.New(gitfs.CodeTypeMismatch, "is not a file"))
	}

	view, err := r.view(ctx, t, name)
	if err != nil {
		return nil, err
	}
	return view.ReadFile(ctx, t.rest)
}

// Stat returns information about a path, following symbolic links.
func (r *Router) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	return r.stat(ctx, name, true)
}

// Lstat returns information about a path without following a final
// symbolic link.
func (r *Router) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	return r.stat(ctx, name, false)
}

func (r *Router) stat(ctx context.Context, name string, deref bool) (fs.FileInfo, error) {
	name = absolute(name)
	t := parse(name)
	if t.repo == "" || !t.contents {
		if deref {
			return r.host.Stat(name)
		}
		return r.host.Unwrap().Lstat(name)
	}
	if info, err := r.synthetic(ctx, t, name); info != nil || err != nil {
		return info, err
	}

	view, err := r.view(ctx, t, name)
	if err != nil {
		return nil, err
	}
	stat := view.Lstat
	if deref {
		stat = view.Stat
	}
	info, err := stat(ctx, t.rest)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Readlink returns the target of a symbolic link.
func (r *Router) Readlink(ctx context.Context, name string) (string, error) {
	name = absolute(name)
	t := parse(name)
	if t.repo == "" || !t.contents {
		return r.host.Unwrap().Readlink(name)
	}
	info, err := r.synthetic(ctx, t, name)
	if err != nil {
		return "", err
	}
	if info != nil {
		return "", pathError("readlink", name, platformerrors.New(gitfs.CodeTypeMismatch, "is not a symlink"))
	}

	view, err := r.view(ctx, t, name)
	if err != nil {
		return "", err
	}
	return view.Readlink(ctx, t.rest)
}

// synthetic stats the directories above a view root. It returns nil, nil
// for paths served by a view.
func (r *Router) synthetic(ctx context.Context, t target, name string) (fs.FileInfo, error) {
	switch {
	case t.kind == "":
		return dirInfo(ContentsDir), nil
	case t.kind == KindIndex:
		if t.rest == "/" {
			return dirInfo(KindIndex), nil
		}
		return nil, nil
	case t.name == "":
		if !slices.Contains(contentKinds, t.kind) {
			return nil, errNotFound("stat", name)
		}
		return dirInfo(t.kind), nil
	case t.rest == "/":
		names, err := r.list(ctx, target{repo: t.repo, contents: true, kind: t.kind}, name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(names, t.name) {
			return nil, errNotFound("stat", name)
		}
		return dirInfo(t.name), nil
	}
	return nil, nil
}

// list returns the names below contents/<kind>.
func (r *Router) list(ctx context.Context, t target, name string) ([]string, error) {
	repo, err := r.repo(t.repo)
	if err != nil {
		return nil, err
	}

	switch t.kind {
	case KindBranches:
		return repo.Branches(ctx)
	case KindTags:
		return repo.Tags(ctx)
	case KindCommits:
		return repo.Commits(ctx)
	}
	return nil, errNotFound("readdir", name)
}

func (r *Router) view(ctx context.Context, t target, name string) (*gitfs.FS, error) {
	var key viewKey
	switch t.kind {
	case KindIndex:
		key = viewKey{repo: t.repo, kind: KindIndex}
	case KindBranches, KindTags, KindCommits:
		key = viewKey{repo: t.repo, kind: t.kind, name: t.name}
	default:
		return nil, errNotFound("open", name)
	}

	if view, ok := r.views.Get(key); ok {
		return view, nil
	}

	ch := r.group.DoChan(key.String(), func() (any, error) {
		if view, ok := r.views.Get(key); ok {
			return view, nil
		}

		repo, err := r.repo(key.repo)
		if err != nil {
			return nil, err
		}

		opts := slices.Clone(r.viewOpts)
		if key.kind == KindIndex {
			opts = append(opts, gitfs.WithIndex())
		} else {
			opts = append(opts, gitfs.WithRef(key.name))
		}

		view, err := gitfs.New(context.WithoutCancel(ctx), repo, opts...)
		if err != nil {
			return nil, err
		}
		r.views.Add(key, view)
		r.logger.Debug("opened view", "repo", key.repo, "kind", key.kind, "name", key.name)
		return view, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if platformerrors.GetCode(res.Err) == platformerrors.CodeNotFound {
				return nil, errNotFound("open", name)
			}
			return nil, res.Err
		}
		return res.Val.(*gitfs.FS), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Router) repo(p string) (*store.Repository, error) {
	if repo, ok := r.repos.Get(p); ok {
		return repo, nil
	}

	repo, err := store.Open(p, r.storeOpts...)
	if err != nil {
		return nil, err
	}
	if prev, ok, _ := r.repos.PeekOrAdd(p, repo); ok {
		return prev, nil
	}
	return repo, nil
}

func (r *Router) hostReadDir(name string) ([]string, error) {
	entries, err := r.host.ReadDir(name)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func pathError(op, name string, err error) error {
	return &gitfs.Error{Op: op, Path: name, Err: err}
}

func errNotFound(op, name string) error {
	return pathError(op, name, platformerrors.New(gitfs.CodeNotFound, "no such file or directory"))
}

// IsNotFound reports whether err means the path does not exist, whether it
// came from a view or the host filesystem.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

type dirInfo string

func (d dirInfo) Name() string       { return string(d) }
func (d dirInfo) Size() int64        { return 0 }
func (d dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (d dirInfo) ModTime() time.Time { return time.Time{} }
func (d dirInfo) IsDir() bool        { return true }
func (d dirInfo) Sys() any           { return nil }
