package fuse

import (
	"context"
	"log/slog"
	"path"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/jmgilman/go/gitfs"
)

// node is one path of the view. Directories, files and symbolic links
// share the type; the kernel only calls the methods that fit the mode.
type node struct {
	gofuse.Inode
	view   *gitfs.FS
	path   string
	logger *slog.Logger
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReadlinker = (*node)(nil)

func (n *node) child(name string) *node {
	return &node{view: n.view, path: path.Join(n.path, name), logger: n.logger}
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	child := n.child(name)
	info, err := n.view.Lstat(ctx, child.path)
	if err != nil {
		return nil, n.errno("lookup", child.path, err)
	}

	fillAttr(info, &out.Attr)
	return n.NewInode(ctx, child, gofuse.StableAttr{Mode: fileType(info)}), 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	names, err := n.view.ReadDir(ctx, n.path)
	if err != nil {
		return nil, n.errno("readdir", n.path, err)
	}

	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		info, err := n.view.Lstat(ctx, path.Join(n.path, name))
		if err != nil {
			return nil, n.errno("readdir", path.Join(n.path, name), err)
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: fileType(info)})
	}
	return gofuse.NewListDirStream(entries), 0
}

func (n *node) Getattr(ctx context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info, err := n.view.Lstat(ctx, n.path)
	if err != nil {
		return n.errno("getattr", n.path, err)
	}
	fillAttr(info, &out.Attr)
	return 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}

	data, err := n.view.ReadFile(ctx, n.path)
	if err != nil {
		return nil, 0, n.errno("open", n.path, err)
	}

	// Blobs never change, so the page cache stays valid.
	return &handle{data: data}, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.view.Readlink(ctx, n.path)
	if err != nil {
		return nil, n.errno("readlink", n.path, err)
	}
	return []byte(target), 0
}

func (n *node) errno(op, p string, err error) syscall.Errno {
	errno := toErrno(err)
	if errno == syscall.EIO {
		n.logger.Error("view operation failed", "op", op, "path", p, "error", err)
	}
	return errno
}

// handle serves reads of an open file from the contents read at open.
type handle struct {
	data []byte
}

var _ gofuse.FileReader = (*handle)(nil)

func (h *handle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off >= int64(len(h.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := min(off+int64(len(dest)), int64(len(h.data)))
	return fuse.ReadResultData(h.data[off:end]), 0
}

func fileType(info *gitfs.FileInfo) uint32 {
	switch info.Kind() {
	case gitfs.KindDirectory:
		return syscall.S_IFDIR
	case gitfs.KindSymlink:
		return syscall.S_IFLNK
	}
	return syscall.S_IFREG
}

func fillAttr(info *gitfs.FileInfo, out *fuse.Attr) {
	perm := uint32(0o444)
	switch {
	case info.IsDir():
		perm = 0o555
	case info.IsSymlink():
		perm = 0o777
	case info.Mode()&0o111 != 0:
		perm = 0o555
	}

	out.Mode = fileType(info) | perm
	out.Size = uint64(info.Size())
	out.Blocks = (out.Size + 511) / 512
	out.Nlink = 1
}
