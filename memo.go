package gitfs

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

type memoResult[V any] struct {
	val V
	err error
}

// memo caches the outcome of a computation per key. Concurrent calls for a
// key that is not cached yet share one computation. Context errors are not
// cached.
type memo[K comparable, V any] struct {
	mu    sync.Mutex
	done  map[K]memoResult[V]
	group singleflight.Group
}

func newMemo[K comparable, V any]() *memo[K, V] {
	return &memo[K, V]{done: make(map[K]memoResult[V])}
}

// do returns the cached result for key or runs fn. fn receives a context
// that is not canceled with ctx, since its result is shared with other
// callers; ctx only bounds how long this caller waits.
func (m *memo[K, V]) do(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	m.mu.Lock()
	if r, ok := m.done[key]; ok {
		m.mu.Unlock()
		return r.val, r.err
	}
	m.mu.Unlock()

	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(fmt.Sprintf("%#v", key), func() (any, error) {
		m.mu.Lock()
		if r, ok := m.done[key]; ok {
			m.mu.Unlock()
			return r.val, r.err
		}
		m.mu.Unlock()

		val, err := fn(shared)
		if !isContextErr(err) {
			m.mu.Lock()
			m.done[key] = memoResult[V]{val: val, err: err}
			m.mu.Unlock()
		}
		return val, err
	})

	select {
	case r := <-ch:
		return r.Val.(V), r.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
