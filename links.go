package gitfs

import "path"

// DefaultMaxSymlinks is the number of symbolic links followed while
// resolving a single path.
const DefaultMaxSymlinks = 40

// linkChain is the immutable list of symbolic link targets followed to
// reach the path currently being resolved. A nil chain is empty.
type linkChain struct {
	target string
	prev   *linkChain
	n      int
}

func (c *linkChain) with(target string) *linkChain {
	return &linkChain{target: target, prev: c, n: c.len() + 1}
}

func (c *linkChain) len() int {
	if c == nil {
		return 0
	}
	return c.n
}

func (c *linkChain) contains(target string) bool {
	for l := c; l != nil; l = l.prev {
		if l.target == target {
			return true
		}
	}
	return false
}

// targets returns the chain oldest first.
func (c *linkChain) targets() []string {
	out := make([]string, c.len())
	for l, i := c, c.len()-1; l != nil; l, i = l.prev, i-1 {
		out[i] = l.target
	}
	return out
}

// resolveLink returns the absolute path a link stored at linkPath with the
// given contents points at.
func resolveLink(linkPath, target string) string {
	if path.IsAbs(target) {
		return path.Clean(target)
	}
	return path.Join(path.Dir(linkPath), target)
}
