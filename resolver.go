package gitfs

import (
	"context"
	"log/slog"
	"path"
	"strings"
)

type resolveKey struct {
	path  string
	deref bool
}

// result is the outcome of resolving a path. Directories carry their
// children, files and unfollowed links their contents.
type result struct {
	entry    *entry
	children []*entry
	data     []byte
}

// resolver walks paths from a view root. Lookups that are not part of a
// symbolic link chain are memoized.
//
// Example:
//
//	r := newResolver(root, o)
//	res, err := r.resolve(ctx, "/docs/current", true, nil)
//	// res.entry is what docs/current points to, res.data its contents
type resolver struct {
	root     *entry
	memo     *memo[resolveKey, *result]
	maxLinks int
	logger   *slog.Logger
}

func newResolver(root *entry, o *options) *resolver {
	r := &resolver{
		root:     root,
		maxLinks: o.maxLinks,
		logger:   o.logger,
	}
	if o.cache {
		r.memo = newMemo[resolveKey, *result]()
	}
	return r
}

// normalize makes p absolute and strips trailing slashes.
//
// Examples:
//
//	normalize("")       // "/"
//	normalize("a/b/")   // "/a/b"
//	normalize("//")     // "/"
func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// resolve resolves the normalized path p. Links met at the final element are
// followed when deref is set; links in parent elements are always followed.
func (r *resolver) resolve(ctx context.Context, p string, deref bool, chain *linkChain) (*result, error) {
	// Inside a link chain the outcome depends on the chain, not only on p:
	// a path that loops back is ELOOP here but fine on its own. Such
	// lookups bypass the memo so they never poison it.
	if chain.len() > 0 || r.memo == nil {
		return r.walk(ctx, p, deref, chain)
	}
	return r.memo.do(ctx, resolveKey{path: p, deref: deref}, func(ctx context.Context) (*result, error) {
		r.logger.Debug("resolving path", "path", p, "deref", deref)
		return r.walk(ctx, p, deref, nil)
	})
}

func (r *resolver) walk(ctx context.Context, p string, deref bool, chain *linkChain) (*result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The root has no parent to look it up in
	if p == "/" {
		children, err := r.root.node.children(ctx, r.root)
		if err != nil {
			return nil, err
		}
		return &result{entry: r.root, children: children}, nil
	}

	// Resolve the parent, following links, then find the final element
	match, err := r.lookupIn(ctx, p, chain)
	if err != nil {
		return nil, err
	}

	switch match.kind {
	case KindDirectory:
		children, err := match.node.children(ctx, match)
		if err != nil {
			return nil, err
		}
		return &result{entry: match, children: children}, nil

	case KindSymlink:
		if deref {
			return r.follow(ctx, p, match, chain)
		}
	}

	// Files, and links that are not followed, carry their blob
	data, err := match.node.contents(ctx, match)
	if err != nil {
		return nil, err
	}
	return &result{entry: match, data: data}, nil
}

// lookup returns the entry at p without following a link at p and without
// reading its content.
func (r *resolver) lookup(ctx context.Context, p string) (*entry, error) {
	if p == "/" {
		return r.root, nil
	}
	return r.lookupIn(ctx, p, nil)
}

func (r *resolver) lookupIn(ctx context.Context, p string, chain *linkChain) (*entry, error) {
	// Parents are always followed and share the memo with other lookups
	dir, name := path.Split(p)
	parent, err := r.resolve(ctx, normalize(dir), true, chain)
	if err != nil {
		return nil, err
	}
	if parent.entry.kind != KindDirectory {
		return nil, errNotDir(p)
	}

	for _, child := range parent.children {
		if child.name == name {
			return child, nil
		}
	}
	return nil, errNotFound(p)
}

// follow resolves the target of link, found at p, extending chain.
//
// Example:
//
//	// loopA -> loopB, loopB -> loopA
//	follow("/loopA")  // chain [/loopB], then [/loopB /loopA], then /loopB again: ELOOP
func (r *resolver) follow(ctx context.Context, p string, link *entry, chain *linkChain) (*result, error) {
	target, err := r.linkTarget(ctx, link)
	if err != nil {
		return nil, err
	}

	// A target seen before in this chain can only loop
	if target == p || target == link.path || chain.contains(target) {
		r.logger.Debug("symbolic link cycle", "path", p, "target", target, "chain", chain.targets())
		return nil, errLoop(p)
	}
	// Long chains without repeats still stop at the limit
	next := chain.with(target)
	if next.len() > r.maxLinks {
		r.logger.Debug("symbolic link limit exceeded", "path", p, "limit", r.maxLinks)
		return nil, errLoop(p)
	}

	r.logger.Debug("following symbolic link", "path", p, "target", target)
	return r.resolve(ctx, target, true, next)
}

// linkTarget returns the view path link points to. Nodes that know better,
// such as working copy links, resolve it themselves.
func (r *resolver) linkTarget(ctx context.Context, link *entry) (string, error) {
	if l, ok := link.node.(linker); ok {
		return l.linkTarget(ctx, link)
	}
	data, err := link.node.contents(ctx, link)
	if err != nil {
		return "", err
	}
	return resolveLink(link.path, string(data)), nil
}
