package gitfs

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/gitfs/store"
	"github.com/jmgilman/go/gitfs/testutil"
)

const submoduleCommit = "0123456789abcdef0123456789abcdef01234567"

// headFiles is the content of HEAD in most tests.
func headFiles() testutil.Files {
	return testutil.Files{
		"foo.txt":                testutil.Regular(strings.Repeat("f", 99)),
		"executable.sh":          testutil.Executable(strings.Repeat("x", 42)),
		"subdir/quux.txt":        testutil.Regular("quux"),
		"subdir/nested/deep.txt": testutil.Regular("deep"),
		"subdir/parentLink":      testutil.Symlink("../foo.txt"),
		"symlinkToSubdir":        testutil.Symlink("subdir"),
		"symlinkToSelf":          testutil.Symlink("symlinkToSelf"),
		"symlinkToFoo":           testutil.Symlink("foo.txt"),
		"absoluteLink":           testutil.Symlink("/subdir/quux.txt"),
		"dangling":               testutil.Symlink("nope"),
		"loopA":                  testutil.Symlink("loopB"),
		"loopB":                  testutil.Symlink("loopA"),
		"sub":                    testutil.Submodule(submoduleCommit),
	}
}

type fixture struct {
	repo  *testutil.Repo
	store *store.Repository
	head  plumbing.Hash
}

// newFixture commits files as HEAD of a fresh memory repository.
func newFixture(t *testing.T, files testutil.Files) *fixture {
	t.Helper()

	repo, err := testutil.NewMemoryRepo()
	require.NoError(t, err)
	head, err := repo.Commit("initial", files)
	require.NoError(t, err)
	s, err := repo.Store()
	require.NoError(t, err)

	return &fixture{repo: repo, store: s, head: head}
}

func (f *fixture) stage(t *testing.T, files testutil.Files) {
	t.Helper()
	require.NoError(t, f.repo.Stage(files))
}

func (f *fixture) view(t *testing.T, opts ...Option) *FS {
	t.Helper()
	v, err := New(context.Background(), f.store, opts...)
	require.NoError(t, err)
	return v
}

func requireCode(t *testing.T, err error, code platformerrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, platformerrors.GetCode(err), "error: %v", err)
}

// countingStore records how often each tree is listed.
type countingStore struct {
	Store

	mu    sync.Mutex
	trees map[plumbing.Hash]int
}

func newCountingStore(s Store) *countingStore {
	return &countingStore{Store: s, trees: make(map[plumbing.Hash]int)}
}

func (c *countingStore) TreeEntries(ctx context.Context, hash plumbing.Hash) ([]object.TreeEntry, error) {
	c.mu.Lock()
	c.trees[hash]++
	c.mu.Unlock()
	return c.Store.TreeEntries(ctx, hash)
}

func (c *countingStore) calls() map[plumbing.Hash]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[plumbing.Hash]int, len(c.trees))
	for k, v := range c.trees {
		out[k] = v
	}
	return out
}
