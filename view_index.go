package gitfs

import (
	"context"
	"path"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// indexDir is a directory synthesized from staged paths.
type indexDir struct {
	entries []*entry
}

func (n *indexDir) children(context.Context, *entry) ([]*entry, error) {
	return n.entries, nil
}

func (n *indexDir) contents(context.Context, *entry) ([]byte, error) {
	return nil, nil
}

// newIndexRoot builds the directory tree of the staging index. Every
// ancestor of a staged path exists exactly once, in order of first
// appearance. Submodules keep their ancestors but are not listed.
func newIndexRoot(ctx context.Context, src Store) (*entry, error) {
	staged, err := src.IndexEntries(ctx)
	if err != nil {
		return nil, err
	}

	rootDir := &indexDir{}
	dirs := map[string]*indexDir{"/": rootDir}

	var ensureDir func(p string) *indexDir
	ensureDir = func(p string) *indexDir {
		if d, ok := dirs[p]; ok {
			return d
		}
		parentPath, name := path.Split(p)
		parentPath = normalize(parentPath)
		parent := ensureDir(parentPath)
		d := &indexDir{}
		e, _ := newEntry(parentPath, name, filemode.Dir, plumbing.ZeroHash, d)
		parent.entries = append(parent.entries, e)
		dirs[p] = d
		return d
	}

	blobs := &blobNode{src: src}
	seen := make(map[string]bool, len(staged))
	for _, se := range mergedEntries(staged) {
		p := normalize(se.Name)
		if seen[p] {
			continue
		}
		seen[p] = true

		parentPath, name := path.Split(p)
		parentPath = normalize(parentPath)
		parent := ensureDir(parentPath)
		if e, ok := newEntry(parentPath, name, se.Mode, se.Hash, blobs); ok {
			parent.entries = append(parent.entries, e)
		}
	}

	return rootEntry(rootDir), nil
}

// mergedEntries keeps one entry per path: the merged entry if there is one,
// else "ours", else the first conflict stage.
func mergedEntries(entries []*index.Entry) []*index.Entry {
	rank := func(s index.Stage) int {
		switch s {
		case index.Merged:
			return 0
		case index.OurMode:
			return 1
		}
		return 2
	}

	best := make(map[string]*index.Entry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		prev, ok := best[e.Name]
		if !ok {
			order = append(order, e.Name)
		}
		if !ok || rank(e.Stage) < rank(prev.Stage) {
			best[e.Name] = e
		}
	}

	out := make([]*index.Entry, 0, len(order))
	for _, name := range order {
		out = append(out, best[name])
	}
	return out
}
