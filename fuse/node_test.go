package fuse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/gitfs"
	"github.com/jmgilman/go/gitfs/testutil"
)

func newTestRoot(t *testing.T) *node {
	t.Helper()

	repo, err := testutil.NewMemoryRepo()
	require.NoError(t, err)
	_, err = repo.Commit("initial", testutil.Files{
		"README.md":   testutil.Regular("hello world"),
		"bin/run.sh":  testutil.Executable("#!/bin/sh\n"),
		"bin/link":    testutil.Symlink("run.sh"),
		"loop":        testutil.Symlink("loop"),
		"vendor/mod":  testutil.Submodule("0123456789012345678901234567890123456789"),
		"docs/a.txt":  testutil.Regular("a"),
		"docs/b.txt":  testutil.Regular("b"),
		"docs/c/d.md": testutil.Regular("d"),
	})
	require.NoError(t, err)

	src, err := repo.Store()
	require.NoError(t, err)
	view, err := gitfs.New(context.Background(), src)
	require.NoError(t, err)

	return newRoot(view, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestToErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{name: "nil", err: nil, want: 0},
		{name: "not found", err: platformerrors.New(gitfs.CodeNotFound, "missing"), want: syscall.ENOENT},
		{name: "not a directory", err: platformerrors.New(gitfs.CodeNotDir, "file"), want: syscall.ENOTDIR},
		{name: "loop", err: platformerrors.New(gitfs.CodeLoop, "loop"), want: syscall.ELOOP},
		{name: "type mismatch", err: platformerrors.New(gitfs.CodeTypeMismatch, "dir"), want: syscall.EINVAL},
		{
			name: "wrapped",
			err:  fmt.Errorf("lookup: %w", &gitfs.Error{Op: "stat", Path: "/x", Err: platformerrors.New(gitfs.CodeNotFound, "missing")}),
			want: syscall.ENOENT,
		},
		{name: "canceled", err: context.Canceled, want: syscall.EINTR},
		{name: "other", err: errors.New("boom"), want: syscall.EIO},
		{name: "other platform error", err: platformerrors.New(platformerrors.CodeInternal, "boom"), want: syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toErrno(tt.err))
		})
	}
}

func TestNode_Getattr(t *testing.T) {
	root := newTestRoot(t)
	ctx := context.Background()

	tests := []struct {
		path string
		mode uint32
		size uint64
	}{
		{path: "/", mode: syscall.S_IFDIR | 0o555},
		{path: "/README.md", mode: syscall.S_IFREG | 0o444, size: 11},
		{path: "/bin/run.sh", mode: syscall.S_IFREG | 0o555, size: 10},
		{path: "/bin/link", mode: syscall.S_IFLNK | 0o777},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n := root.child(tt.path)
			var out fuse.AttrOut
			require.Equal(t, syscall.Errno(0), n.Getattr(ctx, nil, &out))
			assert.Equal(t, tt.mode, out.Mode)
			assert.Equal(t, tt.size, out.Size)
		})
	}

	var out fuse.AttrOut
	assert.Equal(t, syscall.ENOENT, root.child("missing").Getattr(ctx, nil, &out))
	assert.Equal(t, syscall.ENOENT, root.child("vendor/mod").Getattr(ctx, nil, &out))
	assert.Equal(t, syscall.ENOTDIR, root.child("README.md/x").Getattr(ctx, nil, &out))
}

func TestNode_Readdir(t *testing.T) {
	root := newTestRoot(t)

	stream, errno := root.child("docs").Readdir(context.Background())
	require.Equal(t, syscall.Errno(0), errno)
	defer stream.Close()

	got := map[string]uint32{}
	for stream.HasNext() {
		e, errno := stream.Next()
		require.Equal(t, syscall.Errno(0), errno)
		got[e.Name] = e.Mode
	}
	assert.Equal(t, map[string]uint32{
		"a.txt": syscall.S_IFREG,
		"b.txt": syscall.S_IFREG,
		"c":     syscall.S_IFDIR,
	}, got)

	_, errno = root.child("README.md").Readdir(context.Background())
	assert.Equal(t, syscall.ENOTDIR, errno)
}

func TestNode_Open(t *testing.T) {
	root := newTestRoot(t)
	ctx := context.Background()

	for _, flags := range []uint32{syscall.O_WRONLY, syscall.O_RDWR, syscall.O_RDONLY | syscall.O_TRUNC} {
		_, _, errno := root.child("README.md").Open(ctx, flags)
		assert.Equal(t, syscall.EROFS, errno)
	}

	fh, fuseFlags, errno := root.child("bin/link").Open(ctx, syscall.O_RDONLY)
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, uint32(fuse.FOPEN_KEEP_CACHE), fuseFlags)

	h, ok := fh.(*handle)
	require.True(t, ok)
	assert.Equal(t, "#!/bin/sh\n", string(h.data))

	_, _, errno = root.child("loop").Open(ctx, syscall.O_RDONLY)
	assert.Equal(t, syscall.ELOOP, errno)
}

func TestHandle_Read(t *testing.T) {
	h := &handle{data: []byte("hello world")}
	ctx := context.Background()

	tests := []struct {
		name string
		size int
		off  int64
		want string
	}{
		{name: "whole", size: 64, off: 0, want: "hello world"},
		{name: "prefix", size: 5, off: 0, want: "hello"},
		{name: "middle", size: 3, off: 6, want: "wor"},
		{name: "tail", size: 64, off: 6, want: "world"},
		{name: "past end", size: 8, off: 11, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, errno := h.Read(ctx, make([]byte, tt.size), tt.off)
			require.Equal(t, syscall.Errno(0), errno)
			data, status := res.Bytes(make([]byte, tt.size))
			require.Equal(t, fuse.OK, status)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestNode_Readlink(t *testing.T) {
	root := newTestRoot(t)

	target, errno := root.child("bin/link").Readlink(context.Background())
	require.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, "run.sh", string(target))

	_, errno = root.child("README.md").Readlink(context.Background())
	assert.Equal(t, syscall.EINVAL, errno)
}

func TestMount_Validation(t *testing.T) {
	_, err := Mount(nil, Options{Mountpoint: t.TempDir()})
	require.Error(t, err)

	root := newTestRoot(t)
	_, err = Mount(root.view, Options{})
	require.Error(t, err)
}
