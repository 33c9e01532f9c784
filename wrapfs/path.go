package wrapfs

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ContentsDir is the virtual directory added to every repository.
const ContentsDir = "contents"

var repoPattern = regexp.MustCompile(`^(.*?/[^/]*\.git)(/` + ContentsDir + `($|/.*$)|$)`)

// Kinds of listings below the contents directory.
const (
	KindBranches = "branches"
	KindTags     = "tags"
	KindCommits  = "commits"
	KindIndex    = "index"
)

var contentKinds = []string{KindBranches, KindTags, KindCommits, KindIndex}

// target is a parsed path.
type target struct {
	// repo is the repository directory, empty for host paths.
	repo string
	// contents is set for paths at or below the contents directory.
	contents bool
	kind     string
	name     string
	// rest is the absolute path inside the selected view.
	rest string
}

// absolute resolves a relative name against the working directory so that
// repositories below it are recognized.
//
// Example:
//
//	// in /home/me
//	absolute("src/app.git/contents") // "/home/me/src/app.git/contents"
func absolute(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return name
	}
	return filepath.ToSlash(abs)
}

func parse(p string) target {
	m := repoPattern.FindStringSubmatch(p)
	if m == nil {
		return target{}
	}

	t := target{repo: m[1]}
	if m[2] == "" {
		return t
	}
	t.contents = true

	parts := strings.SplitN(strings.Trim(m[3], "/"), "/", 3)
	if parts[0] == "" {
		return t
	}
	t.kind = parts[0]

	if t.kind == KindIndex {
		t.rest = "/" + strings.Join(parts[1:], "/")
		return t
	}
	if len(parts) > 1 {
		t.name = parts[1]
	}
	t.rest = "/"
	if len(parts) > 2 {
		t.rest = "/" + parts[2]
	}
	return t
}
