package gitfs

import (
	"io/fs"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// FileInfo describes an entry of a view. It implements fs.FileInfo.
type FileInfo struct {
	name string
	path string
	mode filemode.FileMode
	kind Kind
	size int64
	hash plumbing.Hash
}

func newFileInfo(res *result) *FileInfo {
	e := res.entry
	fi := &FileInfo{
		name: e.name,
		path: e.path,
		mode: e.mode,
		kind: e.kind,
		hash: e.hash,
	}
	if e.path == "/" {
		fi.name = "/"
	}
	if e.kind == KindFile {
		fi.size = int64(len(res.data))
	}
	return fi
}

// Name returns the base name of the entry.
func (fi *FileInfo) Name() string { return fi.name }

// Path returns the canonical path of the entry.
func (fi *FileInfo) Path() string { return fi.path }

// Size returns the length of a file in bytes. It is zero for directories
// and symbolic links.
func (fi *FileInfo) Size() int64 { return fi.size }

// Mode converts the git file mode to an fs.FileMode.
func (fi *FileInfo) Mode() fs.FileMode {
	mode, err := fi.mode.ToOSFileMode()
	if err != nil {
		return 0
	}
	return mode
}

// GitMode returns the mode recorded by git, e.g. 0100755 for executables.
func (fi *FileInfo) GitMode() filemode.FileMode { return fi.mode }

// Kind returns the entry's type.
func (fi *FileInfo) Kind() Kind { return fi.kind }

// Hash returns the object hash of the entry, or the zero hash for entries
// synthesized from the index or read from disk.
func (fi *FileInfo) Hash() plumbing.Hash { return fi.hash }

// ModTime returns the zero time; git does not record modification times.
func (fi *FileInfo) ModTime() time.Time { return time.Time{} }

func (fi *FileInfo) IsDir() bool     { return fi.kind == KindDirectory }
func (fi *FileInfo) IsFile() bool    { return fi.kind == KindFile }
func (fi *FileInfo) IsSymlink() bool { return fi.kind == KindSymlink }

// Sys returns nil.
func (fi *FileInfo) Sys() any { return nil }

var _ fs.FileInfo = (*FileInfo)(nil)
