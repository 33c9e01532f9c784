package gitfs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// changesView narrows the staging index down to paths that differ from
// HEAD. Paths are resolved against the full index, so links that did not
// change still lead to changes behind them, and only the final result is
// filtered:
//
//   - a file or followed link is kept when HEAD resolves the same path to
//     something else, or not at all
//   - a directory is kept while at least one entry below it differs
//   - an unfollowed link is kept when it was retargeted or when what it
//     points to is kept
//
// The root is always visible.
type changesView struct {
	index       *resolver
	head        *resolver
	listed      *memo[string, []*entry]
	dirty       *memo[string, bool]
	concurrency int
}

func newChangesView(index, head *resolver, o *options) *changesView {
	return &changesView{
		index:       index,
		head:        head,
		listed:      newMemo[string, []*entry](),
		dirty:       newMemo[string, bool](),
		concurrency: o.concurrency,
	}
}

// apply filters res, the index resolution of p.
func (v *changesView) apply(ctx context.Context, p string, deref bool, res *result) (*result, error) {
	var (
		keep bool
		err  error
	)
	switch {
	case res.entry.kind == KindDirectory:
		keep = res.entry.path == "/"
		if !keep {
			keep, err = v.isDirty(ctx, res.entry)
		}
	case res.entry.kind == KindSymlink:
		// Only reached for an unfollowed link.
		keep, err = v.included(ctx, p, res.entry)
	default:
		keep, err = v.differsAt(ctx, p, res.entry, deref)
	}
	if err != nil {
		return nil, err
	}
	if !keep {
		return nil, errNotFound(p)
	}

	if res.entry.kind != KindDirectory {
		return res, nil
	}
	children, err := v.list(ctx, res.entry, res.children)
	if err != nil {
		return nil, err
	}
	return &result{entry: res.entry, children: children}, nil
}

// list keeps the children of dir that are visible on their own. Children
// are listed by their canonical paths, so a directory reached through
// different links is filtered once.
func (v *changesView) list(ctx context.Context, dir *entry, children []*entry) ([]*entry, error) {
	return v.listed.do(ctx, dir.path, func(ctx context.Context) ([]*entry, error) {
		keep := make([]bool, len(children))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.concurrency)
		for i, child := range children {
			g.Go(func() error {
				ok, err := v.included(gctx, child.path, child)
				keep[i] = ok
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		out := make([]*entry, 0, len(children))
		for i, child := range children {
			if keep[i] {
				out = append(out, child)
			}
		}
		return out, nil
	})
}

// included reports whether e, found unfollowed at p, is visible.
func (v *changesView) included(ctx context.Context, p string, e *entry) (bool, error) {
	switch e.kind {
	case KindDirectory:
		return v.isDirty(ctx, e)
	case KindFile:
		return v.differsAt(ctx, p, e, false)
	}

	retargeted, err := v.differsAt(ctx, p, e, false)
	if err != nil || retargeted {
		return retargeted, err
	}

	// Same link as in HEAD: visible when its target is.
	target, err := v.index.resolve(ctx, p, true, nil)
	if err != nil {
		if unresolvable(err) {
			return false, nil
		}
		return false, err
	}
	if target.entry.kind == KindDirectory {
		return v.isDirty(ctx, target.entry)
	}
	return v.differsAt(ctx, p, target.entry, true)
}

// isDirty reports whether any entry below the index directory dir differs
// from the entry HEAD has at the same path. Links below dir are compared,
// never followed, so the walk only descends and always terminates.
func (v *changesView) isDirty(ctx context.Context, dir *entry) (bool, error) {
	return v.dirty.do(ctx, dir.path, func(ctx context.Context) (bool, error) {
		children, err := dir.node.children(ctx, dir)
		if err != nil {
			return false, err
		}

		dirty := make([]bool, len(children))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.concurrency)
		for i, child := range children {
			g.Go(func() error {
				var err error
				if child.kind == KindDirectory {
					dirty[i], err = v.isDirty(gctx, child)
				} else {
					dirty[i], err = v.differsAt(gctx, child.path, child, false)
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return false, err
		}

		for _, d := range dirty {
			if d {
				return true, nil
			}
		}
		return false, nil
	})
}

// differsAt reports whether HEAD resolves p to something other than the
// staged entry, following a link at p when deref is set.
func (v *changesView) differsAt(ctx context.Context, p string, staged *entry, deref bool) (bool, error) {
	var (
		committed *entry
		err       error
	)
	if deref {
		var res *result
		if res, err = v.head.resolve(ctx, p, true, nil); err == nil {
			committed = res.entry
		}
	} else {
		committed, err = v.head.lookup(ctx, p)
	}
	if err != nil {
		if unresolvable(err) {
			return true, nil
		}
		return false, err
	}

	if committed.kind != staged.kind {
		return true, nil
	}
	return committed.hash != staged.hash, nil
}
