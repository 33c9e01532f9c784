package gitfs

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/sync/semaphore"
)

// limitedStore bounds the object store reads a view has in flight. The
// bound holds for the whole view however deep a listing fans out, since
// store calls never nest.
type limitedStore struct {
	Store
	sem *semaphore.Weighted
}

func newLimitedStore(src Store, sem *semaphore.Weighted) *limitedStore {
	return &limitedStore{Store: src, sem: sem}
}

func (s *limitedStore) ResolveTree(ctx context.Context, name string) (plumbing.Hash, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return plumbing.ZeroHash, err
	}
	defer s.sem.Release(1)
	return s.Store.ResolveTree(ctx, name)
}

func (s *limitedStore) TreeEntries(ctx context.Context, hash plumbing.Hash) ([]object.TreeEntry, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.Store.TreeEntries(ctx, hash)
}

func (s *limitedStore) IndexEntries(ctx context.Context) ([]*index.Entry, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.Store.IndexEntries(ctx)
}

func (s *limitedStore) Blob(ctx context.Context, hash plumbing.Hash) ([]byte, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.Store.Blob(ctx, hash)
}

// limited runs fn while holding one unit of sem.
func limited(ctx context.Context, sem *semaphore.Weighted, fn func() error) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)
	return fn()
}
