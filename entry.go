package gitfs

import (
	"context"
	"path"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Kind is the logical type of a filesystem entry.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	}
	return "unknown"
}

// kindOf maps a git file mode to a Kind. Submodules report false.
func kindOf(mode filemode.FileMode) (Kind, bool) {
	switch mode {
	case filemode.Dir:
		return KindDirectory, true
	case filemode.Symlink:
		return KindSymlink, true
	case filemode.Submodule:
		return 0, false
	}
	return KindFile, true
}

// node supplies the content of an entry. Directories implement children,
// files and symbolic links implement contents.
type node interface {
	children(ctx context.Context, dir *entry) ([]*entry, error)
	contents(ctx context.Context, e *entry) ([]byte, error)
}

// linker is implemented by nodes whose symbolic link targets need more than
// the link contents to be resolved.
type linker interface {
	linkTarget(ctx context.Context, e *entry) (string, error)
}

// entry is one named node of a view. Entries are never mutated after
// construction; they are shared between memoized results.
type entry struct {
	name string
	path string
	mode filemode.FileMode
	kind Kind
	hash plumbing.Hash
	node node
}

func newEntry(parent string, name string, mode filemode.FileMode, hash plumbing.Hash, n node) (*entry, bool) {
	kind, ok := kindOf(mode)
	if !ok {
		return nil, false
	}
	return &entry{
		name: name,
		path: path.Join(parent, name),
		mode: mode,
		kind: kind,
		hash: hash,
		node: n,
	}, true
}

func rootEntry(n node) *entry {
	return &entry{path: "/", mode: filemode.Dir, kind: KindDirectory, node: n}
}

// withNode returns a copy of e backed by n.
func (e *entry) withNode(n node) *entry {
	c := *e
	c.node = n
	return &c
}

// noChildren is the node of an empty directory.
type noChildren struct{}

func (noChildren) children(context.Context, *entry) ([]*entry, error) { return nil, nil }
func (noChildren) contents(context.Context, *entry) ([]byte, error)   { return nil, nil }
