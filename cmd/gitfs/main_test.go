package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/gitfs/testutil"
)

func newTestRepo(t *testing.T) string {
	t.Helper()
	color.NoColor = true

	dir := filepath.Join(t.TempDir(), "project.git")
	repo, err := testutil.NewFilesystemRepo(osfs.New("/"), dir)
	require.NoError(t, err)

	files := testutil.Files{
		"README.md":  testutil.Regular("hello"),
		"bin/run.sh": testutil.Executable("#!/bin/sh\n"),
		"bin/link":   testutil.Symlink("run.sh"),
	}
	_, err = repo.Commit("initial", files)
	require.NoError(t, err)
	require.NoError(t, repo.Stage(files.With(testutil.Files{"new.txt": testutil.Regular("new")})))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestLs(t *testing.T) {
	dir := newTestRepo(t)

	out, err := run(t, "ls", "--repo", dir)
	require.NoError(t, err)
	assert.Equal(t, "README.md\nbin/\n", out)

	out, err = run(t, "ls", "--repo", dir, "--index")
	require.NoError(t, err)
	assert.Equal(t, "README.md\nbin/\nnew.txt\n", out)

	out, err = run(t, "ls", "--repo", dir, "--changes")
	require.NoError(t, err)
	assert.Equal(t, "new.txt\n", out)
}

func TestLs_HostPaths(t *testing.T) {
	dir := newTestRepo(t)

	out, err := run(t, "ls", filepath.Join(dir, "contents"))
	require.NoError(t, err)
	assert.Equal(t, "branches/\ntags/\ncommits/\nindex/\n", out)

	out, err = run(t, "ls", filepath.Join(dir, "contents", "branches", "master", "bin"))
	require.NoError(t, err)
	assert.Equal(t, "link\nrun.sh\n", out)
}

func TestLs_ViewFlagsNeedRepo(t *testing.T) {
	_, err := run(t, "ls", "--index", "/")
	require.Error(t, err)
}

func TestCat(t *testing.T) {
	dir := newTestRepo(t)

	out, err := run(t, "cat", "--repo", dir, "bin/link")
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", out)

	out, err = run(t, "cat", "--repo", dir, "--encoding", "hex", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "68656c6c6f\n", out)

	_, err = run(t, "cat", "--repo", dir, "--encoding", "ebcdic", "README.md")
	require.Error(t, err)

	_, err = run(t, "cat", "--repo", dir, "bin")
	require.Error(t, err)
}

func TestStat(t *testing.T) {
	dir := newTestRepo(t)

	out, err := run(t, "stat", "--repo", dir, "-P", "bin/link")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: symlink\n")
	assert.Contains(t, out, "target: run.sh\n")

	out, err = run(t, "stat", "--repo", dir, "bin/link")
	require.NoError(t, err)
	assert.Contains(t, out, "path: /bin/run.sh\n")
	assert.Contains(t, out, "size: 10\n")
}

func TestRealpath(t *testing.T) {
	dir := newTestRepo(t)

	out, err := run(t, "realpath", "--repo", dir, "bin/link")
	require.NoError(t, err)
	assert.Equal(t, "/bin/run.sh", strings.TrimSpace(out))

	_, err = run(t, "realpath", "bin/link")
	require.Error(t, err)
}
