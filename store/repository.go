package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	lru "github.com/hashicorp/golang-lru/v2"
	platformerrors "github.com/jmgilman/go/errors"
)

// Repository is a read-only object store backed by a go-git repository.
// It is safe for concurrent use.
type Repository struct {
	path   string
	repo   *gogit.Repository
	fs     billy.Filesystem
	blobs  *lru.Cache[plumbing.Hash, []byte]
	logger *slog.Logger
}

// Open opens an existing repository at the specified path.
//
// Both standard repositories (with a .git directory) and bare repositories
// are supported. By default the local filesystem is used; WithFilesystem
// overrides it.
//
// Returns an error with code NOT_FOUND if no repository exists at the path.
//
// Examples:
//
//	// Open a repository from the local filesystem
//	repo, err := store.Open("/path/to/repo")
//
//	// Open a bare repository
//	repo, err := store.Open("/path/to/repo.git")
//
//	// Open with custom filesystem (for testing)
//	repo, err := store.Open("/repo", store.WithFilesystem(memfs.New()))
func Open(path string, opts ...Option) (*Repository, error) {
	// Apply options with defaults
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	// Paths on the local filesystem are made absolute so the repository
	// does not depend on the working directory later
	fs := options.fs
	if fs == nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, wrapError(err, "failed to resolve repository path")
		}
		path = abs
		fs = osfs.New("/")
	}

	scopedFs, err := fs.Chroot(path)
	if err != nil {
		return nil, wrapError(err, "failed to scope filesystem to path")
	}

	// A .git directory means a standard repository; otherwise the path
	// itself holds the objects and there is no working copy
	storageFs := scopedFs
	worktreeFs := scopedFs
	if stat, err := scopedFs.Stat(gogit.GitDirName); err == nil && stat.IsDir() {
		storageFs, err = scopedFs.Chroot(gogit.GitDirName)
		if err != nil {
			return nil, wrapError(err, "failed to scope filesystem to .git")
		}
	} else {
		worktreeFs = nil
	}

	storage := filesystem.NewStorage(storageFs, cache.NewObjectLRUDefault())
	repo, err := gogit.Open(storage, worktreeFs)
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to open repository %q", path))
	}

	r, err := newRepository(path, repo, scopedFs, options)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("opened repository", "path", path, "bare", worktreeFs == nil)
	return r, nil
}

// New wraps an already opened go-git repository. The path is only used to
// describe the repository.
//
// Example:
//
//	raw, _ := gogit.Init(memory.NewStorage(), memfs.New())
//	repo, err := store.New("/virtual", raw)
func New(path string, repo *gogit.Repository, opts ...Option) (*Repository, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return newRepository(path, repo, options.fs, options)
}

func newRepository(path string, repo *gogit.Repository, fs billy.Filesystem, options *options) (*Repository, error) {
	r := &Repository{
		path:   path,
		repo:   repo,
		fs:     fs,
		logger: options.logger,
	}
	if options.blobCacheSize > 0 {
		blobs, err := lru.New[plumbing.Hash, []byte](options.blobCacheSize)
		if err != nil {
			return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to create blob cache")
		}
		r.blobs = blobs
	}
	return r, nil
}

// Path returns the path the repository was opened from.
func (r *Repository) Path() string {
	return r.path
}

// Underlying returns the underlying go-git Repository.
func (r *Repository) Underlying() *gogit.Repository {
	return r.repo
}

// Filesystem returns the filesystem scoped to the repository path. For
// standard repositories this is the working copy, including its .git
// directory. It is nil for repositories created with New unless
// WithFilesystem was given.
func (r *Repository) Filesystem() billy.Filesystem {
	return r.fs
}

// String implements fmt.Stringer.
func (r *Repository) String() string {
	return r.path
}

// ResolveTree resolves name to the hash of a root tree.
//
// The name is tried, in order, as HEAD, a branch, a tag and a full commit
// hash. Annotated tags are peeled. Returns an error with code NOT_FOUND when
// nothing matches.
//
// Examples:
//
//	tree, err := repo.ResolveTree(ctx, "HEAD")
//	tree, err := repo.ResolveTree(ctx, "main")
//	tree, err := repo.ResolveTree(ctx, "v1.0.0")
func (r *Repository) ResolveTree(ctx context.Context, name string) (plumbing.Hash, error) {
	if err := ctx.Err(); err != nil {
		return plumbing.ZeroHash, err
	}

	// Name to commit or tag object
	hash, err := r.resolveName(name)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	// Object to root tree
	tree, err := r.peelToTree(hash)
	if err != nil {
		return plumbing.ZeroHash, wrapError(err, fmt.Sprintf("failed to resolve tree for %q", name))
	}

	r.logger.Debug("resolved reference", "name", name, "tree", tree.String())
	return tree, nil
}

func (r *Repository) resolveName(name string) (plumbing.Hash, error) {
	if name == "" {
		return plumbing.ZeroHash, platformerrors.New(platformerrors.CodeInvalidInput, "reference name is required")
	}

	if name == plumbing.HEAD.String() {
		head, err := r.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, wrapError(err, "failed to resolve HEAD")
		}
		return head.Hash(), nil
	}

	// Branches shadow tags of the same name
	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(name),
		plumbing.NewTagReferenceName(name),
	}
	for _, refName := range candidates {
		ref, err := r.repo.Reference(refName, true)
		if err == nil {
			return ref.Hash(), nil
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, wrapError(err, fmt.Sprintf("failed to resolve %s", refName))
		}
	}

	// Existence is checked while peeling
	if plumbing.IsHash(name) {
		return plumbing.NewHash(name), nil
	}

	return plumbing.ZeroHash, platformerrors.Newf(platformerrors.CodeNotFound,
		"%q is not a branch, tag or commit", name)
}

// peelToTree follows tags and commits until it reaches a tree.
func (r *Repository) peelToTree(hash plumbing.Hash) (plumbing.Hash, error) {
	for {
		obj, err := r.repo.Object(plumbing.AnyObject, hash)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		switch o := obj.(type) {
		case *object.Tag:
			// Tags may point at other tags
			hash = o.Target
		case *object.Commit:
			return o.TreeHash, nil
		case *object.Tree:
			return o.Hash, nil
		default:
			return plumbing.ZeroHash, fmt.Errorf("%s is a %s: %w", hash, obj.Type(), plumbing.ErrInvalidType)
		}
	}
}

// TreeEntries returns the direct entries of the tree with the given hash in
// stored order.
func (r *Repository) TreeEntries(ctx context.Context, hash plumbing.Hash) ([]object.TreeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := r.repo.TreeObject(hash)
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to read tree %s", hash))
	}
	return tree.Entries, nil
}

// IndexEntries returns the entries of the staging index. A repository
// without an index file has no entries.
func (r *Repository) IndexEntries(ctx context.Context) ([]*index.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, wrapError(err, "failed to read index")
	}
	return idx.Entries, nil
}

// Blob returns the contents of the blob with the given hash. The returned
// slice is shared with the cache and must not be modified.
func (r *Repository) Blob(ctx context.Context, hash plumbing.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Check cache first
	if r.blobs != nil {
		if data, ok := r.blobs.Get(hash); ok {
			return data, nil
		}
	}

	blob, err := r.repo.BlobObject(hash)
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to read blob %s", hash))
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to open blob %s", hash))
	}
	defer func() { _ = reader.Close() }()

	// Read fully; blobs are immutable so the result can be shared
	var buf bytes.Buffer
	buf.Grow(int(blob.Size))
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to read blob %s", hash))
	}

	data := buf.Bytes()
	if r.blobs != nil {
		r.blobs.Add(hash, data)
	}
	return data, nil
}
