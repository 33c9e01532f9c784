package gitfs

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	platformerrors "github.com/jmgilman/go/errors"
)

// treeNode is a directory backed by a committed tree.
type treeNode struct {
	src  Store
	hash plumbing.Hash
}

func (n *treeNode) children(ctx context.Context, dir *entry) ([]*entry, error) {
	entries, err := n.src.TreeEntries(ctx, n.hash)
	if err != nil {
		return nil, err
	}

	out := make([]*entry, 0, len(entries))
	for _, te := range entries {
		var child node
		if te.Mode == filemode.Dir {
			child = &treeNode{src: n.src, hash: te.Hash}
		} else {
			child = &blobNode{src: n.src}
		}
		if e, ok := newEntry(dir.path, te.Name, te.Mode, te.Hash, child); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (n *treeNode) contents(context.Context, *entry) ([]byte, error) {
	return nil, errors.New("tree has no contents")
}

// blobNode reads file and link contents from the object store by the
// entry's hash.
type blobNode struct {
	src Store
}

func (n *blobNode) children(_ context.Context, dir *entry) ([]*entry, error) {
	return nil, errNotDir(dir.path)
}

func (n *blobNode) contents(ctx context.Context, e *entry) ([]byte, error) {
	return n.src.Blob(ctx, e.hash)
}

// newCommitRoot resolves ref to the root of a committed-ref view.
func newCommitRoot(ctx context.Context, src Store, ref string) (*entry, error) {
	tree, err := src.ResolveTree(ctx, ref)
	if err != nil {
		return nil, err
	}
	return rootEntry(&treeNode{src: src, hash: tree}), nil
}

// newHeadRoot is newCommitRoot for HEAD, treating an unborn HEAD as an
// empty tree.
func newHeadRoot(ctx context.Context, src Store) (*entry, error) {
	root, err := newCommitRoot(ctx, src, plumbing.HEAD.String())
	if err != nil {
		if platformerrors.GetCode(err) == platformerrors.CodeNotFound {
			return rootEntry(noChildren{}), nil
		}
		return nil, err
	}
	return root, nil
}
