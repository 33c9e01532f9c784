package store

import (
	"context"
	"errors"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Branches returns the short names of all local branches.
func (r *Repository) Branches(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	iter, err := r.repo.Branches()
	if err != nil {
		return nil, wrapError(err, "failed to list branches")
	}

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, wrapError(err, "failed to iterate branches")
	}
	return names, nil
}

// Tags returns the short names of all tags, lightweight and annotated.
func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, wrapError(err, "failed to list tags")
	}

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, wrapError(err, "failed to iterate tags")
	}
	return names, nil
}

// Commits returns the hashes of all commits reachable from any reference,
// in log order.
func (r *Repository) Commits(ctx context.Context) ([]string, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{All: true})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, wrapError(err, "failed to walk commits")
	}
	defer iter.Close()

	var hashes []string
	seen := make(map[plumbing.Hash]struct{})
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := seen[c.Hash]; ok {
			return nil
		}
		seen[c.Hash] = struct{}{}
		hashes = append(hashes, c.Hash.String())
		return nil
	})
	if err != nil {
		return nil, wrapError(err, "failed to iterate commits")
	}
	return hashes, nil
}
