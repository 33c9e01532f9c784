package gitfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"

	"github.com/jmgilman/go/fs/core"
)

// IOFS adapts a view to io/fs. Names follow io/fs conventions: unrooted,
// slash separated, with "." for the root. Every call uses the context the
// adapter was created with.
type IOFS struct {
	ctx context.Context
	fs  *FS
}

var (
	_ core.ReadFS   = (*IOFS)(nil)
	_ fs.ReadDirFS  = (*IOFS)(nil)
	_ fs.ReadFileFS = (*IOFS)(nil)
	_ fs.StatFS     = (*IOFS)(nil)
	_ fs.ReadLinkFS = (*IOFS)(nil)
)

// IOFS returns an io/fs adapter bound to ctx.
func (f *FS) IOFS(ctx context.Context) *IOFS {
	return &IOFS{ctx: ctx, fs: f}
}

func (a *IOFS) path(op, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return "/", nil
	}
	return "/" + name, nil
}

// pathError wraps a view error for io/fs callers. The *Error stays in the
// chain so errors.Is keeps matching fs.ErrNotExist.
func pathError(op, name string, err error) error {
	return &fs.PathError{Op: op, Path: name, Err: wrapOp(op, "/"+name, err)}
}

// Open opens the named file or directory for reading.
func (a *IOFS) Open(name string) (fs.File, error) {
	p, err := a.path("open", name)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(a.ctx, p)
	if err != nil {
		return nil, pathError("open", name, err)
	}

	if info.IsDir() {
		entries, err := a.ReadDir(name)
		if err != nil {
			return nil, err
		}
		return &openDir{info: info, entries: entries}, nil
	}

	data, err := a.fs.ReadFile(a.ctx, p)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	return &openFile{info: info, Reader: bytes.NewReader(data)}, nil
}

// Stat describes the named entry, following symbolic links.
func (a *IOFS) Stat(name string) (fs.FileInfo, error) {
	p, err := a.path("stat", name)
	if err != nil {
		return nil, err
	}
	info, err := a.fs.Stat(a.ctx, p)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return info, nil
}

// Lstat describes the named entry without following a final symbolic link.
func (a *IOFS) Lstat(name string) (fs.FileInfo, error) {
	p, err := a.path("lstat", name)
	if err != nil {
		return nil, err
	}
	info, err := a.fs.Lstat(a.ctx, p)
	if err != nil {
		return nil, pathError("lstat", name, err)
	}
	return info, nil
}

// ReadLink returns the target of the named symbolic link.
func (a *IOFS) ReadLink(name string) (string, error) {
	p, err := a.path("readlink", name)
	if err != nil {
		return "", err
	}
	target, err := a.fs.Readlink(a.ctx, p)
	if err != nil {
		return "", pathError("readlink", name, err)
	}
	return target, nil
}

// ReadDir lists the named directory sorted by name.
func (a *IOFS) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := a.path("readdir", name)
	if err != nil {
		return nil, err
	}

	res, err := a.fs.resolve(a.ctx, p, true)
	if err != nil {
		return nil, pathError("readdir", name, err)
	}
	if res.entry.kind != KindDirectory {
		return nil, pathError("readdir", name, errNotDir(p))
	}

	entries := make([]fs.DirEntry, len(res.children))
	for i, child := range res.children {
		entries[i] = &dirEntry{fs: a, entry: child}
	}
	slices.SortFunc(entries, func(x, y fs.DirEntry) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return entries, nil
}

// ReadFile returns the contents of the named file.
func (a *IOFS) ReadFile(name string) ([]byte, error) {
	p, err := a.path("readfile", name)
	if err != nil {
		return nil, err
	}
	data, err := a.fs.ReadFile(a.ctx, p)
	if err != nil {
		return nil, pathError("readfile", name, err)
	}
	return data, nil
}

// Exists reports whether the named entry exists, following symbolic links.
func (a *IOFS) Exists(name string) (bool, error) {
	_, err := a.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

type dirEntry struct {
	fs    *IOFS
	entry *entry
}

func (d *dirEntry) Name() string { return d.entry.name }
func (d *dirEntry) IsDir() bool  { return d.entry.kind == KindDirectory }

func (d *dirEntry) Type() fs.FileMode {
	switch d.entry.kind {
	case KindDirectory:
		return fs.ModeDir
	case KindSymlink:
		return fs.ModeSymlink
	}
	return 0
}

func (d *dirEntry) Info() (fs.FileInfo, error) {
	info, err := d.fs.fs.Lstat(d.fs.ctx, d.entry.path)
	if err != nil {
		return nil, pathError("lstat", strings.TrimPrefix(d.entry.path, "/"), err)
	}
	return info, nil
}

type openFile struct {
	*bytes.Reader
	info *FileInfo
}

func (f *openFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *openFile) Close() error               { return nil }

type openDir struct {
	info    *FileInfo
	entries []fs.DirEntry
	offset  int
}

func (d *openDir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *openDir) Close() error               { return nil }

func (d *openDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.Name(), Err: fs.ErrInvalid}
}

// ReadDir implements fs.ReadDirFile.
func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}
