package testutil

import (
	"maps"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// File describes a single tree or index entry.
type File struct {
	Mode    filemode.FileMode
	Content string

	// Commit is the referenced commit for submodule entries.
	Commit plumbing.Hash
}

// Files maps slash separated paths, relative to the repository root and
// without a leading slash, to entries. Intermediate directories are implied.
type Files map[string]File

// Regular returns a non-executable file with the given content.
func Regular(content string) File {
	return File{Mode: filemode.Regular, Content: content}
}

// Executable returns an executable file with the given content.
func Executable(content string) File {
	return File{Mode: filemode.Executable, Content: content}
}

// Symlink returns a symbolic link pointing at target.
func Symlink(target string) File {
	return File{Mode: filemode.Symlink, Content: target}
}

// Submodule returns a submodule entry referencing commit.
func Submodule(commit string) File {
	return File{Mode: filemode.Submodule, Commit: plumbing.NewHash(commit)}
}

// With returns a copy of f with other's entries added or replaced.
func (f Files) With(other Files) Files {
	out := maps.Clone(f)
	if out == nil {
		out = Files{}
	}
	maps.Copy(out, other)
	return out
}

// Without returns a copy of f without the given paths.
func (f Files) Without(paths ...string) Files {
	out := maps.Clone(f)
	for _, p := range paths {
		delete(out, p)
	}
	return out
}

// Paths returns the paths of f in sorted order.
func (f Files) Paths() []string {
	paths := make([]string, 0, len(f))
	for p := range f {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
