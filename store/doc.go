// Package store adapts a go-git repository into the read-only object store
// consumed by gitfs views.
//
// A Repository resolves reference names to root trees, lists tree and
// staging-index entries and serves blob contents. Blob contents are kept in a
// bounded LRU cache since the same blob is often read repeatedly while
// resolving symbolic links and comparing views.
//
// All I/O goes through a billy.Filesystem, which keeps the package usable
// against in-memory repositories in tests:
//
//	repo, err := store.Open("/path/to/repo")
//	if err != nil {
//	    return err
//	}
//	tree, err := repo.ResolveTree(ctx, "main")
package store
