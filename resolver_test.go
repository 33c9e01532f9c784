package gitfs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/gitfs/testutil"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":        "/",
		"/":       "/",
		"//":      "/",
		"a":       "/a",
		"/a/":     "/a",
		"/a/b///": "/a/b",
		"a/b":     "/a/b",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalize(in), in)
	}
}

func TestResolveLink(t *testing.T) {
	tests := []struct {
		link   string
		target string
		want   string
	}{
		{link: "/a", target: "b", want: "/b"},
		{link: "/dir/a", target: "b", want: "/dir/b"},
		{link: "/dir/a", target: "../b", want: "/b"},
		{link: "/dir/a", target: "../../../b", want: "/b"},
		{link: "/dir/a", target: "/x/y/", want: "/x/y"},
		{link: "/dir/a", target: "./sub/./c", want: "/dir/sub/c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveLink(tt.link, tt.target), "%s -> %s", tt.link, tt.target)
	}
}

func TestLinkChain(t *testing.T) {
	var empty *linkChain
	assert.Equal(t, 0, empty.len())
	assert.False(t, empty.contains("/a"))
	assert.Empty(t, empty.targets())

	a := empty.with("/a")
	b := a.with("/b")
	c := a.with("/c")

	assert.Equal(t, 2, b.len())
	assert.True(t, b.contains("/a"))
	assert.True(t, b.contains("/b"))
	assert.False(t, b.contains("/c"))
	assert.False(t, a.contains("/b"), "extending a chain must not change it")
	assert.Equal(t, []string{"/a", "/b"}, b.targets())
	assert.Equal(t, []string{"/a", "/c"}, c.targets())
}

func TestMemo(t *testing.T) {
	t.Run("shares concurrent computations", func(t *testing.T) {
		m := newMemo[string, int]()
		var calls atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		results := make([]int, 20)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := m.do(context.Background(), "key", func(context.Context) (int, error) {
					calls.Add(1)
					<-release
					return 42, nil
				})
				assert.NoError(t, err)
				results[i] = v
			}()
		}

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, v := range results {
			assert.Equal(t, 42, v)
		}
	})

	t.Run("caches errors", func(t *testing.T) {
		m := newMemo[string, int]()
		calls := 0
		fail := errors.New("boom")
		for range 3 {
			_, err := m.do(context.Background(), "key", func(context.Context) (int, error) {
				calls++
				return 0, fail
			})
			assert.ErrorIs(t, err, fail)
		}
		assert.Equal(t, 1, calls)
	})

	t.Run("does not cache context errors", func(t *testing.T) {
		m := newMemo[string, int]()
		calls := 0
		fn := func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, context.Canceled
			}
			return 7, nil
		}

		_, err := m.do(context.Background(), "key", fn)
		assert.ErrorIs(t, err, context.Canceled)
		v, err := m.do(context.Background(), "key", fn)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("canceled caller stops waiting", func(t *testing.T) {
		m := newMemo[string, int]()
		release := make(chan struct{})
		defer close(release)

		go func() {
			_, _ = m.do(context.Background(), "key", func(context.Context) (int, error) {
				<-release
				return 1, nil
			})
		}()
		time.Sleep(10 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.do(ctx, "key", func(context.Context) (int, error) {
			<-release
			return 2, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoization(t *testing.T) {
	f := newFixture(t, headFiles())
	ctx := context.Background()

	t.Run("concurrent lookups list each tree once", func(t *testing.T) {
		counting := newCountingStore(f.store)
		v, err := New(ctx, counting)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				data, err := v.ReadFile(ctx, "/subdir/quux.txt")
				assert.NoError(t, err)
				assert.Equal(t, "quux", string(data))
			}()
		}
		wg.Wait()

		for hash, n := range counting.calls() {
			assert.Equal(t, 1, n, "tree %s listed %d times", hash, n)
		}
		assert.Len(t, counting.calls(), 2)
	})

	t.Run("results do not depend on the cache", func(t *testing.T) {
		cached := f.view(t)
		uncached := f.view(t, WithoutCache())

		paths := []string{
			"/", "/foo.txt", "/subdir", "/subdir/", "/symlinkToSubdir/quux.txt",
			"/symlinkToSelf", "/loopA", "/dangling", "/sub", "/foo.txt/x", "/missing",
		}
		for _, p := range paths {
			for range 2 {
				want, wantErr := uncached.Stat(ctx, p)
				got, gotErr := cached.Stat(ctx, p)
				if wantErr != nil {
					require.Error(t, gotErr, p)
					assert.Equal(t, wantErr.Error(), gotErr.Error(), p)
					continue
				}
				require.NoError(t, gotErr, p)
				assert.Equal(t, want, got, p)
			}
		}
	})
}

func TestNew_InvalidConfiguration(t *testing.T) {
	f := newFixture(t, testutil.Files{"a": testutil.Regular("a")})
	require.NoError(t, f.repo.CreateTag("v1", f.head, ""))
	ctx := context.Background()

	tests := map[string][]Option{
		"index with ref":     {WithIndex(), WithRef("v1")},
		"changes with ref":   {WithChangesInIndex(), WithRef("v1")},
		"overlay with ref":   {WithOverlay(nil), WithRef("v1")},
		"index and changes":  {WithIndex(), WithChangesInIndex()},
		"overlay without fs": {WithOverlay(nil)},
		"zero concurrency":   {WithConcurrency(0)},
		"zero symlink limit": {WithMaxSymlinks(0)},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(ctx, f.store, opts...)
			requireCode(t, err, CodeInvalidConfig)
		})
	}

	t.Run("index with explicit HEAD", func(t *testing.T) {
		_, err := New(ctx, f.store, WithIndex(), WithRef("HEAD"))
		require.NoError(t, err)
	})
}
