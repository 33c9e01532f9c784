package testutil

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/jmgilman/go/gitfs/store"
)

const (
	// TestAuthor is the author name used for fixture commits and tags.
	TestAuthor = "Test User"
	// TestEmail is the author email used for fixture commits and tags.
	TestEmail = "test@example.com"
)

// Repo is a repository under construction.
type Repo struct {
	path string
	repo *gogit.Repository
	fs   billy.Filesystem
	when time.Time
}

// NewMemoryRepo creates an empty repository held entirely in memory. HEAD
// points at the unborn master branch.
//
// Example:
//
//	repo, err := testutil.NewMemoryRepo()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	head, err := repo.Commit("initial", testutil.Files{"README.md": testutil.Regular("# Test")})
func NewMemoryRepo() (*Repo, error) {
	repo, err := gogit.Init(memory.NewStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory repository: %w", err)
	}
	return &Repo{path: "memory", repo: repo, when: fixedTime()}, nil
}

// NewFilesystemRepo creates an empty standard repository at path inside fs,
// with its object database in a .git directory. The returned repository can
// be reopened with store.Open(path, store.WithFilesystem(fs)).
func NewFilesystemRepo(fs billy.Filesystem, repoPath string) (*Repo, error) {
	if err := fs.MkdirAll(repoPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	worktree, err := fs.Chroot(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scope filesystem: %w", err)
	}
	dotGit, err := worktree.Chroot(gogit.GitDirName)
	if err != nil {
		return nil, fmt.Errorf("failed to scope .git filesystem: %w", err)
	}

	storage := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())
	repo, err := gogit.Init(storage, worktree)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	return &Repo{path: repoPath, repo: repo, fs: worktree, when: fixedTime()}, nil
}

func fixedTime() time.Time {
	return time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
}

// Underlying returns the go-git repository.
func (r *Repo) Underlying() *gogit.Repository {
	return r.repo
}

// Worktree returns the working copy filesystem of a repository created with
// NewFilesystemRepo, or nil for memory repositories.
func (r *Repo) Worktree() billy.Filesystem {
	return r.fs
}

// Store wraps the repository in a store.Repository.
func (r *Repo) Store(opts ...store.Option) (*store.Repository, error) {
	//nolint:wrapcheck // Test utility - errors from store are already wrapped
	return store.New(r.path, r.repo, opts...)
}

// Commit records files as a new commit on the branch HEAD points at and
// advances that branch. The commit's parent is the branch's previous tip,
// if any.
func (r *Repo) Commit(message string, files Files) (plumbing.Hash, error) {
	tree, err := r.writeTree(files)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	head, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to read HEAD: %w", err)
	}
	branch := head.Name()
	if head.Type() == plumbing.SymbolicReference {
		branch = head.Target()
	}

	var parents []plumbing.Hash
	if tip, err := r.repo.Storer.Reference(branch); err == nil {
		parents = append(parents, tip.Hash())
	}

	r.when = r.when.Add(time.Minute)
	sig := object.Signature{Name: TestAuthor, Email: TestEmail, When: r.when}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode commit: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store commit: %w", err)
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(branch, hash)); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to update %s: %w", branch, err)
	}
	return hash, nil
}

// CreateBranch points a new branch at commit.
func (r *Repo) CreateBranch(name string, commit plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), commit)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to create branch %q: %w", name, err)
	}
	return nil
}

// CreateTag tags commit. An empty message creates a lightweight tag,
// otherwise an annotated tag object is written.
func (r *Repo) CreateTag(name string, commit plumbing.Hash, message string) error {
	target := commit
	if message != "" {
		tag := &object.Tag{
			Name:       name,
			Tagger:     object.Signature{Name: TestAuthor, Email: TestEmail, When: r.when},
			Message:    message,
			TargetType: plumbing.CommitObject,
			Target:     commit,
		}
		obj := r.repo.Storer.NewEncodedObject()
		if err := tag.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode tag: %w", err)
		}
		hash, err := r.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return fmt.Errorf("failed to store tag: %w", err)
		}
		target = hash
	}

	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), target)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	return nil
}

// Stage replaces the staging index with exactly files.
func (r *Repo) Stage(files Files) error {
	idx := &index.Index{Version: 2}
	for _, p := range files.Paths() {
		f := files[p]
		hash, err := r.writeEntry(f)
		if err != nil {
			return err
		}
		idx.Entries = append(idx.Entries, &index.Entry{
			Name:       p,
			Mode:       f.Mode,
			Hash:       hash,
			Size:       uint32(len(f.Content)),
			CreatedAt:  r.when,
			ModifiedAt: r.when,
		})
	}

	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// WriteBlob stores content as a blob and returns its hash.
func (r *Repo) WriteBlob(content string) (plumbing.Hash, error) {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to open blob writer: %w", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to close blob writer: %w", err)
	}

	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

func (r *Repo) writeEntry(f File) (plumbing.Hash, error) {
	if f.Mode == filemode.Submodule {
		return f.Commit, nil
	}
	return r.WriteBlob(f.Content)
}

type dirNode struct {
	files map[string]File
	dirs  map[string]*dirNode
}

func newDirNode() *dirNode {
	return &dirNode{files: map[string]File{}, dirs: map[string]*dirNode{}}
}

func (r *Repo) writeTree(files Files) (plumbing.Hash, error) {
	root := newDirNode()
	for _, p := range files.Paths() {
		node := root
		dir, name := path.Split(p)
		for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
			if seg == "" {
				continue
			}
			child, ok := node.dirs[seg]
			if !ok {
				child = newDirNode()
				node.dirs[seg] = child
			}
			node = child
		}
		node.files[name] = files[p]
	}
	return r.writeDir(root)
}

func (r *Repo) writeDir(node *dirNode) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(node.files)+len(node.dirs))
	for name, f := range node.files {
		hash, err := r.writeEntry(f)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: f.Mode, Hash: hash})
	}
	for name, child := range node.dirs {
		hash, err := r.writeDir(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}

	// Git orders tree entries as if directory names ended with a slash.
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})

	tree := &object.Tree{Entries: entries}
	obj := r.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}
