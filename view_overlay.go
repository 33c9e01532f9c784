package gitfs

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// overlayView merges the staging index with a working copy on disk.
type overlayView struct {
	disk        billy.Filesystem
	head        *resolver
	limit       *semaphore.Weighted
	concurrency int
}

// overlayDir is a directory of an overlayView. index is nil for
// directories that only exist on disk.
type overlayDir struct {
	view  *overlayView
	index node
}

// diskNode reads files and links from the working copy.
type diskNode struct {
	view *overlayView
}

func newOverlayRoot(head *resolver, index *entry, o *options) *entry {
	v := &overlayView{
		disk:        o.overlay,
		head:        head,
		limit:       o.limit,
		concurrency: o.concurrency,
	}
	return index.withNode(&overlayDir{view: v, index: index.node})
}

// children lists staged entries first, then entries that only exist on
// disk. Disk entries shadowed by a staged entry of the same name, or
// recorded in HEAD and therefore staged for deletion, are left out.
//
// Example:
//
//	HEAD:   a.txt b.txt
//	index:  a.txt c.txt        (b.txt staged for deletion)
//	disk:   a.txt b.txt d.txt
//	result: a.txt c.txt d.txt
func (n *overlayDir) children(ctx context.Context, dir *entry) ([]*entry, error) {
	// Staged entries win; a directory that only exists on disk has none.
	var staged []*entry
	if n.index != nil {
		var err error
		staged, err = n.index.children(ctx, dir)
		if err != nil {
			return nil, err
		}
	}

	// Staged subdirectories keep merging with the disk below them.
	out := make([]*entry, 0, len(staged))
	names := make(map[string]bool, len(staged))
	for _, child := range staged {
		names[child.name] = true
		if child.kind == KindDirectory {
			child = child.withNode(&overlayDir{view: n.view, index: child.node})
		}
		out = append(out, child)
	}

	// Disk entries with a staged name are shadowed.
	onDisk, err := n.view.readDir(ctx, dir.path)
	if err != nil {
		return nil, err
	}
	candidates := make([]*entry, 0, len(onDisk))
	for _, child := range onDisk {
		if !names[child.name] {
			candidates = append(candidates, child)
		}
	}

	// The rest are untracked files, unless HEAD has them: then the index
	// deletes them and so does the view.
	keep := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.view.concurrency)
	for i, child := range candidates {
		g.Go(func() error {
			untracked, err := n.view.untracked(gctx, child.path)
			keep[i] = untracked
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, child := range candidates {
		if keep[i] {
			out = append(out, child)
		}
	}
	return out, nil
}

func (n *overlayDir) contents(context.Context, *entry) ([]byte, error) {
	return nil, nil
}

// untracked reports whether p is absent from HEAD.
func (v *overlayView) untracked(ctx context.Context, p string) (bool, error) {
	_, err := v.head.lookup(ctx, p)
	if err == nil {
		return false, nil
	}
	if isMissing(err) {
		return true, nil
	}
	return false, err
}

// readDir lists the working copy directory at p. A missing directory, or a
// non-directory, has no entries. Entry types come from lstat, so links are
// reported as links.
func (v *overlayView) readDir(ctx context.Context, p string) ([]*entry, error) {
	var info os.FileInfo
	err := limited(ctx, v.limit, func() (err error) {
		info, err = v.disk.Lstat(p)
		return err
	})
	if err != nil {
		if missingOnDisk(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var infos []os.FileInfo
	err = limited(ctx, v.limit, func() (err error) {
		infos, err = v.disk.ReadDir(p)
		return err
	})
	if err != nil {
		if missingOnDisk(err) {
			return nil, nil
		}
		return nil, err
	}

	found := make([]*entry, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, fi := range infos {
		// The repository itself is never part of the working copy.
		if fi.Name() == gogit.GitDirName {
			continue
		}
		g.Go(func() error {
			// ReadDir may follow links; lstat again to see them.
			childPath := path.Join(p, fi.Name())
			var li os.FileInfo
			err := limited(gctx, v.limit, func() (err error) {
				li, err = v.disk.Lstat(childPath)
				return err
			})
			if err != nil {
				if missingOnDisk(err) {
					return nil
				}
				return err
			}

			mode, err := filemode.NewFromOSFileMode(li.Mode())
			if err != nil {
				// Devices, sockets and pipes have no git representation.
				return nil
			}

			var n node = &diskNode{view: v}
			if mode == filemode.Dir {
				n = &overlayDir{view: v}
			}
			found[i], _ = newEntry(p, fi.Name(), mode, plumbing.ZeroHash, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Drop skipped and vanished entries, keeping disk order.
	out := found[:0]
	for _, e := range found {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (n *diskNode) children(_ context.Context, dir *entry) ([]*entry, error) {
	return nil, errNotDir(dir.path)
}

func (n *diskNode) contents(ctx context.Context, e *entry) ([]byte, error) {
	var data []byte
	err := limited(ctx, n.view.limit, func() error {
		if e.kind == KindSymlink {
			target, err := n.view.disk.Readlink(e.path)
			data = []byte(target)
			return err
		}
		var err error
		data, err = util.ReadFile(n.view.disk, e.path)
		return err
	})
	if err != nil {
		return nil, diskError(e.path, err)
	}
	return data, nil
}

// linkTarget resolves a working copy link to a view path. Links leaving
// the working copy are rejected.
func (n *diskNode) linkTarget(ctx context.Context, e *entry) (string, error) {
	var target string
	err := limited(ctx, n.view.limit, func() (err error) {
		target, err = n.view.disk.Readlink(e.path)
		return err
	})
	if err != nil {
		if errors.Is(err, billy.ErrCrossedBoundary) {
			return "", errConfig("symbolic link %s points outside the working copy", e.path)
		}
		return "", diskError(e.path, err)
	}
	// osfs checks the boundary itself; memfs and others do not.
	if escapesRoot(e.path, target) {
		return "", errConfig("symbolic link %s points outside the working copy: %s", e.path, target)
	}
	return resolveLink(e.path, target), nil
}

// escapesRoot reports whether the link at linkPath with the given target
// leaves the root directory.
//
// Examples:
//
//	escapesRoot("/a/link", "../b")     // false, resolves to /b
//	escapesRoot("/a/link", "../../b")  // true
//	escapesRoot("/link", "/../etc")    // true
func escapesRoot(linkPath, target string) bool {
	var rel string
	if path.IsAbs(target) {
		rel = path.Clean(strings.TrimPrefix(target, "/"))
	} else {
		rel = path.Join(strings.TrimPrefix(path.Dir(linkPath), "/"), target)
	}
	return rel == ".." || strings.HasPrefix(rel, "../")
}

func missingOnDisk(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func diskError(p string, err error) error {
	if missingOnDisk(err) {
		return errNotFound(p)
	}
	return err
}
