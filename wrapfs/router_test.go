package wrapfs

import (
	"context"
	"io/fs"
	"syscall"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"
	platformerrors "github.com/jmgilman/go/errors"
	fsbilly "github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/gitfs"
	"github.com/jmgilman/go/gitfs/testutil"
)

const repoPath = "/work/project.git"

type fixture struct {
	router *Router
	first  plumbing.Hash
	second plumbing.Hash
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	host := fsbilly.NewMemory()
	require.NoError(t, util.WriteFile(host.Unwrap(), "/work/notes.txt", []byte("host file"), 0o644))

	repo, err := testutil.NewFilesystemRepo(host.Unwrap(), repoPath)
	require.NoError(t, err)

	v1 := testutil.Files{
		"README.md":    testutil.Regular("v1"),
		"docs/guide":   testutil.Regular("guide"),
		"docs/current": testutil.Symlink("guide"),
	}
	first, err := repo.Commit("first", v1)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTag("v1.0.0", first, "release"))

	v2 := v1.With(testutil.Files{"README.md": testutil.Regular("v2")})
	second, err := repo.Commit("second", v2)
	require.NoError(t, err)
	require.NoError(t, repo.CreateBranch("feature", first))
	require.NoError(t, repo.Stage(v2.With(testutil.Files{"staged.txt": testutil.Regular("staged")})))

	router, err := New(append([]Option{WithHost(host)}, opts...)...)
	require.NoError(t, err)
	return &fixture{router: router, first: first, second: second}
}

func TestNew_InvalidCacheSize(t *testing.T) {
	_, err := New(WithHost(fsbilly.NewMemory()), WithViewCacheSize(0))
	require.Error(t, err)
}

func TestRouter_ReadDir(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "host directory", path: "/work", want: []string{"notes.txt", "project.git"}},
		{name: "repository adds contents", path: repoPath, want: []string{ContentsDir, ".git"}},
		{name: "contents", path: repoPath + "/contents", want: []string{KindBranches, KindTags, KindCommits, KindIndex}},
		{name: "branches", path: repoPath + "/contents/branches", want: []string{"feature", "master"}},
		{name: "tags", path: repoPath + "/contents/tags", want: []string{"v1.0.0"}},
		{name: "branch root", path: repoPath + "/contents/branches/master", want: []string{"README.md", "docs"}},
		{name: "branch subdirectory", path: repoPath + "/contents/branches/feature/docs", want: []string{"current", "guide"}},
		{name: "index", path: repoPath + "/contents/index", want: []string{"README.md", "docs", "staged.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.router.ReadDir(ctx, tt.path)
			require.NoError(t, err)
			if tt.name == "branches" || tt.name == "host directory" {
				assert.ElementsMatch(t, tt.want, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter_ReadDir_Commits(t *testing.T) {
	f := newFixture(t)

	got, err := f.router.ReadDir(context.Background(), repoPath+"/contents/commits")
	require.NoError(t, err)
	assert.Equal(t, []string{f.second.String(), f.first.String()}, got)

	names, err := f.router.ReadDir(context.Background(), repoPath+"/contents/commits/"+f.first.String()+"/docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"current", "guide"}, names)
}

func TestRouter_ReadFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "host file", path: "/work/notes.txt", want: "host file"},
		{name: "branch", path: repoPath + "/contents/branches/master/README.md", want: "v2"},
		{name: "other branch", path: repoPath + "/contents/branches/feature/README.md", want: "v1"},
		{name: "annotated tag", path: repoPath + "/contents/tags/v1.0.0/README.md", want: "v1"},
		{name: "commit", path: repoPath + "/contents/commits/" + f.second.String() + "/README.md", want: "v2"},
		{name: "symlink", path: repoPath + "/contents/branches/master/docs/current", want: "guide"},
		{name: "index", path: repoPath + "/contents/index/staged.txt", want: "staged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.router.ReadFile(ctx, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRouter_ReadFile_Directory(t *testing.T) {
	f := newFixture(t)

	for _, p := range []string{
		repoPath + "/contents",
		repoPath + "/contents/branches",
		repoPath + "/contents/branches/master",
	} {
		_, err := f.router.ReadFile(context.Background(), p)
		require.Error(t, err, p)
		assert.Equal(t, gitfs.CodeTypeMismatch, platformerrors.GetCode(err), p)
	}
}

func TestRouter_Stat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		path  string
		isDir bool
		size  int64
	}{
		{name: "host file", path: "/work/notes.txt", size: 9},
		{name: "contents", path: repoPath + "/contents", isDir: true},
		{name: "kind", path: repoPath + "/contents/tags", isDir: true},
		{name: "existing branch", path: repoPath + "/contents/branches/feature", isDir: true},
		{name: "existing commit", path: repoPath + "/contents/commits/" + f.first.String(), isDir: true},
		{name: "file in branch", path: repoPath + "/contents/branches/master/README.md", size: 2},
		{name: "symlink followed", path: repoPath + "/contents/branches/master/docs/current", size: 5},
		{name: "index root", path: repoPath + "/contents/index", isDir: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := f.router.Stat(ctx, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.isDir, info.IsDir())
			if !tt.isDir {
				assert.Equal(t, tt.size, info.Size())
			}
		})
	}
}

func TestRouter_Stat_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, p := range []string{
		"/work/missing.txt",
		repoPath + "/contents/remotes",
		repoPath + "/contents/remotes/origin/file",
		repoPath + "/contents/branches/missing",
		repoPath + "/contents/branches/missing/README.md",
		repoPath + "/contents/branches/master/missing.txt",
		repoPath + "/contents/commits/" + plumbing.ZeroHash.String(),
	} {
		_, err := f.router.Stat(ctx, p)
		require.Error(t, err, p)
		assert.True(t, IsNotFound(err), "%s: %v", p, err)
	}
}

func TestRouter_Lstat(t *testing.T) {
	f := newFixture(t)

	info, err := f.router.Lstat(context.Background(), repoPath+"/contents/branches/master/docs/current")
	require.NoError(t, err)
	assert.Equal(t, fs.ModeSymlink, info.Mode().Type())

	info, err = f.router.Lstat(context.Background(), "/work/notes.txt")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestRouter_RelativePath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t.Chdir("/")

	got, err := f.router.ReadFile(ctx, "work/project.git/contents/branches/master/README.md")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	names, err := f.router.ReadDir(ctx, "work/project.git")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, ContentsDir, names[0])

	info, err := f.router.Stat(ctx, "work/project.git/contents/tags")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	target, err := f.router.Readlink(ctx, "work/project.git/contents/branches/master/docs/current")
	require.NoError(t, err)
	assert.Equal(t, "guide", target)
}

func TestRouter_Readlink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target, err := f.router.Readlink(ctx, repoPath+"/contents/tags/v1.0.0/docs/current")
	require.NoError(t, err)
	assert.Equal(t, "guide", target)

	_, err = f.router.Readlink(ctx, repoPath+"/contents/tags")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestRouter_ViewCache(t *testing.T) {
	f := newFixture(t, WithViewCacheSize(1))
	ctx := context.Background()

	for range 2 {
		for _, branch := range []string{"master", "feature"} {
			_, err := f.router.ReadDir(ctx, repoPath+"/contents/branches/"+branch)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1, f.router.views.Len())
}

func TestRouter_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.router.ReadDir(ctx, repoPath+"/contents/branches")
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(errNotFound("stat", "/x")))
	assert.True(t, IsNotFound(fs.ErrNotExist))
	assert.True(t, IsNotFound(syscall.ENOENT))
	assert.False(t, IsNotFound(fs.ErrInvalid))
}
