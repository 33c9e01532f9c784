// Package gitfs exposes the contents of a git repository as a read-only
// filesystem.
//
// A view selects what backs the filesystem root:
//
//   - a committed reference (branch, tag or commit hash), the default being HEAD
//   - the staging index
//   - the paths whose staged content differs from HEAD
//   - the staging index merged with an on-disk working copy
//
// Paths are absolute and slash separated. Symbolic links are followed by
// ReadDir, ReadFile, Stat and Realpath and reported as links by Lstat and
// Readlink. Submodules are never visible. Failures carry the codes ENOENT,
// ENOTDIR and ELOOP like their POSIX counterparts, TYPE_MISMATCH when the
// final path element has the wrong type, and INVALID_CONFIGURATION for
// unsupported view options.
//
// Example:
//
//	repo, err := store.Open("/path/to/repo")
//	if err != nil {
//	    return err
//	}
//	view, err := gitfs.New(ctx, repo, gitfs.WithRef("v1.0.0"))
//	if err != nil {
//	    return err
//	}
//	names, err := view.ReadDir(ctx, "/")
//
// Results are memoized per view, and concurrent lookups of the same path
// share a single computation. Every view is safe for concurrent use.
package gitfs
