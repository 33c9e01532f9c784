// Package testutil builds repositories for tests without touching the real
// filesystem. Commits, trees, tags and the staging index are written
// directly into go-git storage, so fixtures can contain symbolic links,
// executables and submodule entries regardless of the host platform.
package testutil
